package scheduler

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/graph"
	"github.com/specialistvlad/dagsched/internal/orchlog"
	"github.com/specialistvlad/dagsched/internal/task"
	"github.com/specialistvlad/dagsched/internal/vertex"
)

// TerminalFunc is invoked exactly once per campaign, when every vertex has
// reached a final state or the failure policy cuts the campaign short.
// err is nil on full success.
type TerminalFunc func(err error, results *vertex.ResultSet)

// Config configures a Scheduler. Name appears in the PrettyState header;
// the scheduler generates its own guid regardless.
//
// LoggingSink is optional. When absent, diagnostics go to Logger (or, if
// Logger is also absent, to standard output) through the default
// orchlog.SlogSink adapter. Logging is cosmetic and never affects state
// transitions. LoggingContext, when set, is merged into every entry the
// scheduler reports through the sink.
type Config struct {
	Name           string
	Terminal       TerminalFunc
	QuitOnFailure  bool
	MaxConcurrent  int
	Logger         *slog.Logger
	LoggingSink    orchlog.Sink
	LoggingContext map[string]any
}

// Scheduler owns one graph, drives the vertex state machine, and
// enforces a concurrency cap and failure policy across a campaign. Every
// exported method is safe to call concurrently; internally they all
// serialize through a single mutex, as the specification requires for
// state-transition delivery.
type Scheduler struct {
	mu sync.Mutex

	guid string
	name string

	graph *graph.Graph

	terminal      TerminalFunc
	quitOnFailure bool
	maxConcurrent int

	running       bool
	terminalFired bool
	inFlight      int
	topoOrder     []string
	results       *vertex.ResultSet

	sink           orchlog.Sink
	loggingContext map[string]any
}

// New creates a Scheduler with an empty graph.
func New(cfg Config) *Scheduler {
	sink := cfg.LoggingSink
	if sink == nil {
		logger := cfg.Logger
		if logger == nil {
			logger = orchlog.New("info", "text", os.Stdout)
		}
		sink = &orchlog.SlogSink{Logger: logger}
	}
	return &Scheduler{
		guid:           uuid.NewString(),
		name:           cfg.Name,
		graph:          graph.New(),
		terminal:       cfg.Terminal,
		quitOnFailure:  cfg.QuitOnFailure,
		maxConcurrent:  cfg.MaxConcurrent,
		sink:           sink,
		loggingContext: cfg.LoggingContext,
	}
}

// logLocked reports one cosmetic log entry through the configured sink,
// merging in the scheduler's guid and any LoggingContext supplied at
// construction. Must be called with s.mu held, matching every other
// *Locked helper.
func (s *Scheduler) logLocked(level orchlog.Level, message string, fields map[string]any) {
	if s.sink == nil {
		return
	}
	merged := make(map[string]any, len(s.loggingContext)+len(fields)+1)
	for k, v := range s.loggingContext {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	merged["guid"] = s.guid
	s.sink.AddLog(level, message, merged)
}

// GUID returns the scheduler's per-instance correlation identifier.
func (s *Scheduler) GUID() string { return s.guid }

// AddVertex creates a vertex bound to adapter and adds it to the graph.
// It may only be called while the scheduler is not running.
func (s *Scheduler) AddVertex(id string, adapter task.Adapter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := vertex.New(id, s.onVertexReport)
	v.BindStart(func(results *vertex.ResultSet) {
		adapter.Start(results, v)
	})
	if err := s.graph.AddVertex(v); err != nil {
		kind, _ := graph.KindOf(err)
		return &Error{Kind: mapGraphKind(kind), Payload: []string{id}}
	}
	return nil
}

// AddEdge delegates to the underlying graph.
func (s *Scheduler) AddEdge(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.graph.AddEdge(from, to); err != nil {
		kind, _ := graph.KindOf(err)
		return &Error{Kind: mapGraphKind(kind), Payload: []string{from, to}}
	}
	return nil
}

func mapGraphKind(k graph.Kind) Kind {
	switch k {
	case graph.DuplicateVertex:
		return DuplicateVertex
	case graph.VertexNotFound:
		return VertexNotFound
	case graph.SelfLoop:
		return SelfLoop
	case graph.DuplicateEdge:
		return DuplicateEdge
	case graph.EdgeNotFound:
		return EdgeNotFound
	case graph.CyclicGraph:
		return CyclicGraph
	default:
		return InvalidState
	}
}

// Start begins a campaign. results becomes the shared mutable map handed
// to every task and to the terminal callback. Start is single-shot per
// campaign; calling it again after a prior terminal delivery resets the
// scheduler and starts a fresh campaign over the same graph.
//
// If the graph contains a cycle, Start returns a CyclicGraph error
// synchronously and no task is ever started — a deliberate deviation from
// silently running with an empty topological order. Graph.TopologicalSort
// itself stays silent about a cycle (it returns an empty order with a nil
// error, per the specification's own contract for that method); Start is
// the one that turns a short order into a hard failure.
func (s *Scheduler) Start(results *vertex.ResultSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, _ := s.graph.TopologicalSort()
	if len(order) != s.graph.VertexCount() {
		s.logLocked(orchlog.LevelError, "cannot start campaign: graph is cyclic", nil)
		return &Error{Kind: CyclicGraph}
	}

	for _, v := range s.graph.Vertices() {
		v.ResetForNewCampaign()
	}

	s.results = results
	s.topoOrder = order
	s.inFlight = 0
	s.terminalFired = false
	s.running = true

	s.logLocked(orchlog.LevelDebug, "campaign starting", map[string]any{"vertices": len(order)})

	s.propagateLocked()
	s.dispatchLocked()
	return nil
}

// onVertexReport is the NotifyFunc every vertex in this scheduler's graph
// is constructed with. It is the explicit message-passing channel that
// replaces a vertex holding a back-pointer to its scheduler: a vertex
// reports (id, outcome) and the scheduler looks the vertex up itself.
func (s *Scheduler) onVertexReport(id string, success bool, data cty.Value, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		if s.results != nil {
			s.results.Set(id, data)
		}
		s.setStateLocked(id, vertex.Success)
	} else {
		s.logLocked(orchlog.LevelError, "task failed", map[string]any{"vertex": id, "error": err})
		s.setStateLocked(id, vertex.Fail)
	}
}

// SetState is the scheduler's internal commit point for a vertex state
// transition. It is also usable as an external escape hatch by a caller
// that wants to force a vertex's outcome without going through a task.
func (s *Scheduler) SetState(id string, new vertex.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStateLocked(id, new)
}

func (s *Scheduler) setStateLocked(id string, new vertex.State) error {
	v, ok := s.graph.Vertex(id)
	if !ok {
		return &Error{Kind: VertexNotFound, Payload: []string{id}}
	}
	if !new.Valid() {
		return &Error{Kind: InvalidState}
	}

	if err := v.SetState(new, s.running, s.results); err != nil {
		return &Error{Kind: InvalidState, Payload: []string{id}}
	}

	switch new {
	case vertex.Success:
		s.commitSuccessLocked()
	case vertex.Fail:
		s.commitFailureLocked(id)
	}
	return nil
}

// commitSuccessLocked implements the SUCCESS transition commit: decrement
// inFlight, propagate, then decide whether the campaign is done, blocked
// on a failed subtree, or has more work to dispatch.
func (s *Scheduler) commitSuccessLocked() {
	s.inFlight--
	s.propagateLocked()

	allSuccess, failedIDs, allFinal := s.summarizeLocked()

	// allSuccess always implies allFinal (no vertex left in a non-terminal
	// state), so there is exactly one terminating branch here rather than
	// two overlapping ones.
	switch {
	case allFinal:
		if allSuccess {
			s.fireTerminalLocked(nil)
		} else {
			s.fireTerminalLocked(&Error{Kind: FailedStates, Payload: failedIDs})
		}
	case len(failedIDs) > 0:
		if s.quitOnFailure {
			s.fireTerminalLocked(&Error{Kind: FailedStates, Payload: failedIDs})
		} else {
			s.propagateLocked()
			s.dispatchLocked()
		}
	default:
		s.dispatchLocked()
	}
}

// commitFailureLocked implements the FAIL transition commit.
func (s *Scheduler) commitFailureLocked(id string) {
	s.inFlight--
	s.propagateLocked()

	if s.quitOnFailure {
		s.fireTerminalLocked(&Error{Kind: StateFailed, Payload: []string{id}})
		return
	}

	s.propagateLocked()
	_, failedIDs, allFinal := s.summarizeLocked()
	if allFinal && len(failedIDs) > 0 {
		s.fireTerminalLocked(&Error{Kind: FailedStates, Payload: failedIDs})
		return
	}
	s.dispatchLocked()
}

// summarizeLocked computes, over every vertex: whether all are SUCCESS,
// the ids of every vertex currently FAIL, and whether every vertex has
// reached a final state (SUCCESS or FAIL).
func (s *Scheduler) summarizeLocked() (allSuccess bool, failedIDs []string, allFinal bool) {
	allSuccess = true
	allFinal = true
	for _, id := range s.topoOrder {
		v, ok := s.graph.Vertex(id)
		if !ok {
			continue
		}
		switch v.State() {
		case vertex.Success:
			// still allSuccess, still allFinal
		case vertex.Fail:
			allSuccess = false
			failedIDs = append(failedIDs, id)
		default:
			allSuccess = false
			allFinal = false
		}
	}
	sort.Strings(failedIDs)
	return allSuccess, failedIDs, allFinal
}

// propagateLocked runs one pass of the state-propagation algorithm: every
// new state is computed from a single consistent snapshot of prior
// states before any is applied, so a vertex's own transition within this
// pass never influences the decision for a later vertex in the same
// pass.
func (s *Scheduler) propagateLocked() {
	type change struct {
		id  string
		new vertex.State
	}
	var changes []change

	for _, id := range s.topoOrder {
		v, ok := s.graph.Vertex(id)
		if !ok {
			continue
		}
		if v.State() != vertex.NotReady {
			continue
		}

		parents := s.graph.Parents(id)
		if len(parents) == 0 {
			changes = append(changes, change{id, vertex.Ready})
			continue
		}

		allSuccess := true
		anyFailed := false
		for _, p := range parents {
			pv, ok := s.graph.Vertex(p)
			if !ok {
				continue
			}
			switch pv.State() {
			case vertex.Success:
			case vertex.Fail:
				anyFailed = true
				allSuccess = false
			default:
				allSuccess = false
			}
		}

		switch {
		case allSuccess:
			changes = append(changes, change{id, vertex.Ready})
		case anyFailed:
			changes = append(changes, change{id, vertex.Fail})
		}
	}

	for _, c := range changes {
		v, ok := s.graph.Vertex(c.id)
		if !ok {
			continue
		}
		v.SetState(c.new, s.running, s.results)
	}
}

// dispatchLocked transitions every READY vertex to IN_PROGRESS subject to
// the concurrency cap. It is idempotent with respect to vertices already
// IN_PROGRESS, SUCCESS or FAIL.
func (s *Scheduler) dispatchLocked() {
	for _, id := range s.topoOrder {
		v, ok := s.graph.Vertex(id)
		if !ok {
			continue
		}
		if v.State() != vertex.Ready {
			continue
		}
		if s.maxConcurrent > 0 && s.inFlight >= s.maxConcurrent {
			return
		}
		s.inFlight++
		v.SetState(vertex.InProgress, s.running, s.results)
	}
}

// fireTerminalLocked delivers the terminal callback at most once per
// campaign, guarded by terminalFired rather than relying on any
// subscriber's lifetime.
func (s *Scheduler) fireTerminalLocked(err error) {
	if s.terminalFired {
		return
	}
	s.terminalFired = true
	s.running = false

	if err != nil {
		s.logLocked(orchlog.LevelError, "campaign terminated with failures", map[string]any{"error": err})
	} else {
		s.logLocked(orchlog.LevelInfo, "campaign terminated successfully", nil)
	}

	cb := s.terminal
	results := s.results
	if cb == nil {
		return
	}
	go cb(err, results)
}

// OverallState is a structural snapshot of the scheduler for external
// inspection: logging, pretty-printing, or tests.
type OverallState struct {
	GUID          string
	TopoOrder     []string
	States        map[vertex.State][]string
	QuitOnFailure bool
	Running       bool
	MaxConcurrent int
	InFlight      int
	Results       *vertex.ResultSet
}

// OverallState snapshots the scheduler's current state.
func (s *Scheduler) OverallState() OverallState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overallStateLocked()
}

func (s *Scheduler) overallStateLocked() OverallState {
	buckets := make(map[vertex.State][]string, len(vertex.AllStates))
	for _, st := range vertex.AllStates {
		buckets[st] = nil
	}
	for _, id := range s.topoOrder {
		v, ok := s.graph.Vertex(id)
		if !ok {
			continue
		}
		buckets[v.State()] = append(buckets[v.State()], id)
	}
	return OverallState{
		GUID:          s.guid,
		TopoOrder:     append([]string(nil), s.topoOrder...),
		States:        buckets,
		QuitOnFailure: s.quitOnFailure,
		Running:       s.running,
		MaxConcurrent: s.maxConcurrent,
		InFlight:      s.inFlight,
		Results:       s.results,
	}
}

// PrettyState is a companion to OverallState that renders the same
// snapshot as human-readable, multi-line text. The exact layout is not
// meant to be parsed by anything.
func (s *Scheduler) PrettyState() string {
	s.mu.Lock()
	st := s.overallStateLocked()
	// Before the first Start there is no topological order yet; every
	// vertex is then listed in id order instead.
	ids := st.TopoOrder
	if len(ids) == 0 {
		ids = s.graph.VertexIDs()
	}
	stateByID := make(map[string]vertex.State, len(ids))
	for _, id := range ids {
		if v, ok := s.graph.Vertex(id); ok {
			stateByID[id] = v.State()
		}
	}
	s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "campaign %s (%s)\n", s.name, st.GUID)
	fmt.Fprintf(&b, "  running=%t quit_on_failure=%t max_concurrent=%d in_flight=%d\n",
		st.Running, st.QuitOnFailure, st.MaxConcurrent, st.InFlight)
	for _, id := range ids {
		fmt.Fprintf(&b, "  %-24s %s\n", id, stateByID[id])
	}
	fmt.Fprintf(&b, "summary: %d succeeded, %d failed, %d total\n",
		len(st.States[vertex.Success]), len(st.States[vertex.Fail]), len(ids))
	return b.String()
}

// Results returns the live shared result map for the current campaign.
func (s *Scheduler) Results() *vertex.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}
