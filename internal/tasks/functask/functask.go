// Package functask implements the simplest possible task adapter: running
// an in-process Go function. It exists for tests, local dry runs, and
// HCL campaigns that need a cheap vertex with no external side effect.
package functask

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/task"
)

// Fn is a plain function producing a result or an error.
type Fn func(results task.ResultReader) (cty.Value, error)

// Task adapts Fn to task.Adapter. A nil Fn fails immediately rather than
// panicking, since a misconfigured campaign should surface as a task
// error, not a crash.
type Task struct {
	Fn Fn
}

// Start implements task.Adapter.
func (t *Task) Start(results task.ResultReader, report task.Reporter) {
	if t.Fn == nil {
		report.OnTaskFailure(fmt.Errorf("functask: no function bound"))
		return
	}
	v, err := t.Fn(results)
	if err != nil {
		report.OnTaskFailure(err)
		return
	}
	report.OnTaskSuccess(v)
}

// Always returns a Task whose Fn always succeeds with v, for tests and
// trivial placeholder vertices.
func Always(v cty.Value) *Task {
	return &Task{Fn: func(task.ResultReader) (cty.Value, error) { return v, nil }}
}

// AlwaysFail returns a Task whose Fn always fails with err.
func AlwaysFail(err error) *Task {
	return &Task{Fn: func(task.ResultReader) (cty.Value, error) { return cty.NilVal, err }}
}
