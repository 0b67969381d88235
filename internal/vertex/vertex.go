// Package vertex implements a single node of the execution graph: its
// state machine, its opaque data payload, and the one-shot wiring between
// a bound task and the scheduler that owns it.
package vertex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"
)

// NotifyFunc is how a Vertex reports a task outcome back to its owning
// scheduler. It carries the vertex id so the scheduler can look the
// vertex up itself, rather than the Vertex holding a back-pointer to the
// scheduler type — completion events are explicit messages, not method
// calls up an ownership chain.
type NotifyFunc func(id string, success bool, data cty.Value, err error)

// StartFunc is the function invoked exactly once per campaign when a
// vertex transitions to InProgress while its scheduler is running.
type StartFunc func(results *ResultSet)

// InvalidStateError is returned by SetState when asked to transition to a
// value outside the valid state range.
type InvalidStateError struct {
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid vertex state: %d", int32(e.State))
}

// Vertex is one node of the execution graph.
type Vertex struct {
	id string

	state atomic.Int32

	dataMu sync.Mutex
	data   cty.Value

	startFn   StartFunc
	startOnce sync.Once

	reportOnce sync.Once
	notify     NotifyFunc
}

// New creates a vertex in state NotReady with an empty data payload.
// notify is called exactly once, the first time the bound task reports
// success or failure.
func New(id string, notify NotifyFunc) *Vertex {
	v := &Vertex{
		id:     id,
		data:   cty.NilVal,
		notify: notify,
	}
	v.state.Store(int32(NotReady))
	return v
}

// ID returns the vertex's caller-chosen identifier.
func (v *Vertex) ID() string { return v.id }

// State atomically returns the vertex's current state.
func (v *Vertex) State() State { return State(v.state.Load()) }

// Data atomically returns the vertex's current payload.
func (v *Vertex) Data() cty.Value {
	v.dataMu.Lock()
	defer v.dataMu.Unlock()
	return v.data
}

// SetData overwrites the vertex's payload. Last write wins.
func (v *Vertex) SetData(d cty.Value) {
	v.dataMu.Lock()
	v.data = d
	v.dataMu.Unlock()
}

// BindStart records the function to invoke when this vertex's start
// signal fires. It may be called at most once per vertex, before the
// first campaign start.
func (v *Vertex) BindStart(fn StartFunc) {
	v.startFn = fn
}

// ResetForNewCampaign rewinds a vertex to NotReady with fresh one-shot
// guards, for scheduler re-invocation after a prior campaign's terminal
// delivery.
func (v *Vertex) ResetForNewCampaign() {
	v.state.Store(int32(NotReady))
	v.startOnce = sync.Once{}
	v.reportOnce = sync.Once{}
}

// SetState validates and applies a state transition. running reflects
// whether the owning scheduler is currently running a campaign; results
// is the live shared result map handed to the bound start function.
//
// When the new state is InProgress and the scheduler is running, the
// one-shot start signal fires: the bound start function runs on its own
// goroutine so that a task whose Start implementation reports its outcome
// synchronously never re-enters the scheduler's lock on the same
// goroutine that is driving dispatch. If the scheduler is not running,
// the state still updates but the signal is suppressed — a stale
// wake-up after shutdown is silently dropped.
func (v *Vertex) SetState(new State, running bool, results *ResultSet) error {
	if !new.Valid() {
		return &InvalidStateError{State: new}
	}
	v.state.Store(int32(new))
	if new == InProgress && running {
		fn := v.startFn
		if fn != nil {
			v.startOnce.Do(func() {
				go fn(results)
			})
		}
	}
	return nil
}

// OnTaskSuccess records data on the vertex and notifies the owning
// scheduler of a successful outcome. Only the first of OnTaskSuccess /
// OnTaskFailure to be called for a given campaign has any effect.
func (v *Vertex) OnTaskSuccess(data cty.Value) {
	v.reportOnce.Do(func() {
		v.SetData(data)
		if v.notify != nil {
			v.notify(v.id, true, data, nil)
		}
	})
}

// OnTaskFailure notifies the owning scheduler of a failed outcome. The
// error itself is not stored on the vertex; it is only surfaced through
// the scheduler's terminal callback and logging.
func (v *Vertex) OnTaskFailure(err error) {
	v.reportOnce.Do(func() {
		if v.notify != nil {
			v.notify(v.id, false, cty.NilVal, err)
		}
	})
}
