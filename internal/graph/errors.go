package graph

import "fmt"

// Kind enumerates the synchronous graph-construction error conditions from
// the orchestrator's error taxonomy.
type Kind int

const (
	DuplicateVertex Kind = iota
	VertexNotFound
	SelfLoop
	DuplicateEdge
	EdgeNotFound
	CyclicGraph
)

func (k Kind) String() string {
	switch k {
	case DuplicateVertex:
		return "DuplicateVertex"
	case VertexNotFound:
		return "VertexNotFound"
	case SelfLoop:
		return "SelfLoop"
	case DuplicateEdge:
		return "DuplicateEdge"
	case EdgeNotFound:
		return "EdgeNotFound"
	case CyclicGraph:
		return "CyclicGraph"
	default:
		return "Unknown"
	}
}

// Error is a typed graph-construction error. Graph mutation errors are
// always synchronous: they are returned to the caller at the site of the
// bad call and never disturb any in-flight campaign.
type Error struct {
	Kind    Kind
	Subject string // the offending vertex id, or "s -> e" for an edge
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: %s: %s", e.Kind, e.Subject)
}

// KindOf extracts the Kind of a graph error, for callers that want to
// branch on error category without a type assertion at every call site.
func KindOf(err error) (Kind, bool) {
	ge, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return ge.Kind, true
}
