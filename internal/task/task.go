// Package task defines the narrow contract between the scheduler and a
// concrete task implementation: a task reports its outcome through an
// explicit callback pair, and reads or writes shared campaign data only
// through the ResultReader it is handed at start.
package task

import "github.com/zclconf/go-cty/cty"

// Reporter is how a running task reports its own outcome. A vertex
// implements Reporter directly, since OnTaskSuccess/OnTaskFailure already
// have this signature, so the scheduler never needs an adapter object
// between a task and the vertex driving it.
type Reporter interface {
	OnTaskSuccess(data cty.Value)
	OnTaskFailure(err error)
}

// Adapter is a task bindable to a vertex. Start is invoked at most once
// per campaign, on its own goroutine, when the vertex's start signal
// fires. The implementation must eventually call exactly one of
// report.OnTaskSuccess or report.OnTaskFailure; calling neither stalls
// the vertex forever, and calling both is a protocol violation silently
// resolved in favor of whichever call arrives first.
type Adapter interface {
	Start(results ResultReader, report Reporter)
}

// ResultReader is the shared campaign result map a task is handed at
// start. It is satisfied by *vertex.ResultSet; defined here rather than
// imported so this package has no direct dependency on the vertex
// package. Set lets a task read another vertex's output or write extra
// entries of its own; the scheduler separately writes the value passed
// to Reporter.OnTaskSuccess under the task's own vertex id once it
// commits, per the convention that a task otherwise writes only under
// its own id.
type ResultReader interface {
	Get(key string) (cty.Value, bool)
	Set(key string, v cty.Value)
	Snapshot() map[string]cty.Value
}

// AdapterFunc adapts a plain function to the Adapter interface, for tasks
// simple enough not to need their own type.
type AdapterFunc func(results ResultReader, report Reporter)

func (f AdapterFunc) Start(results ResultReader, report Reporter) { f(results, report) }
