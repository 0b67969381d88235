package scheduler

import (
	"fmt"
	"strings"
)

// Kind enumerates the error categories the scheduler can surface, covering
// both synchronous graph-mutation failures and asynchronous campaign
// failures delivered through the terminal callback.
type Kind int

const (
	InvalidState Kind = iota
	VertexNotFound
	DuplicateVertex
	EdgeNotFound
	DuplicateEdge
	SelfLoop
	StateFailed
	FailedStates
	CyclicGraph
)

func (k Kind) String() string {
	switch k {
	case InvalidState:
		return "InvalidState"
	case VertexNotFound:
		return "VertexNotFound"
	case DuplicateVertex:
		return "DuplicateVertex"
	case EdgeNotFound:
		return "EdgeNotFound"
	case DuplicateEdge:
		return "DuplicateEdge"
	case SelfLoop:
		return "SelfLoop"
	case StateFailed:
		return "StateFailed"
	case FailedStates:
		return "FailedStates"
	case CyclicGraph:
		return "CyclicGraph"
	default:
		return "Unknown"
	}
}

// Error is the scheduler's single error type. Payload carries a single
// vertex id for StateFailed, the list of failed vertex ids for
// FailedStates, and the offending id or value otherwise.
type Error struct {
	Kind    Kind
	Payload []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case StateFailed:
		return fmt.Sprintf("scheduler: %s: vertex %q failed", e.Kind, first(e.Payload))
	case FailedStates:
		return fmt.Sprintf("scheduler: %s: vertices [%s] failed", e.Kind, strings.Join(e.Payload, ", "))
	default:
		return fmt.Sprintf("scheduler: %s: %s", e.Kind, first(e.Payload))
	}
}

// KindOf extracts the Kind of a scheduler error, mirroring graph.KindOf.
func KindOf(err error) (Kind, bool) {
	se, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return se.Kind, true
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}
