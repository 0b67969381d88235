// Package orchtests exercises the orchestrator end to end, through HCL
// campaigns loaded and run with orchtestutil.
package orchtests

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/orchtestutil"
	"github.com/specialistvlad/dagsched/internal/task"
	"github.com/specialistvlad/dagsched/internal/tasks"
	"github.com/specialistvlad/dagsched/internal/vertex"
)

// recorder is a task.Adapter that appends its own name to a shared,
// mutex-guarded order slice, then reports success.
type recorder struct {
	name  string
	mu    *sync.Mutex
	order *[]string
}

func (r *recorder) Start(_ task.ResultReader, report task.Reporter) {
	r.mu.Lock()
	*r.order = append(*r.order, r.name)
	r.mu.Unlock()
	report.OnTaskSuccess(cty.EmptyObjectVal)
}

func registerRecorder(mu *sync.Mutex, order *[]string) func(*tasks.Registry) {
	return func(r *tasks.Registry) {
		r.Register("recorder", func(args cty.Value, _ *tasks.Resources) (task.Adapter, error) {
			name := args.GetAttr("name").AsString()
			return &recorder{name: name, mu: mu, order: order}, nil
		})
	}
}

func TestOrchestrator_ImplicitDependencyOrdering(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string

	hcl := `
campaign {
  name = "implicit-dep"
}

vertex "a" {
  task = "recorder"
  arguments = { name = "a" }
}

vertex "b" {
  task = "recorder"
  arguments = { name = "b", after = vertex.a }
}
`

	res := orchtestutil.RunCampaign(t, map[string]string{"campaign.hcl": hcl}, registerRecorder(&mu, &order))
	require.NoError(t, res.Err)
	require.Equal(t, []string{"a", "b"}, order)
}

func TestOrchestrator_ExplicitDependencyOrdering(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string

	hcl := `
campaign {
  name = "explicit-dep"
}

vertex "a" {
  task = "recorder"
  arguments = { name = "a" }
}

vertex "b" {
  task = "recorder"
  depends_on = ["a"]
  arguments = { name = "b" }
}

vertex "c" {
  task = "recorder"
  depends_on = ["b"]
  arguments = { name = "c" }
}
`

	res := orchtestutil.RunCampaign(t, map[string]string{"campaign.hcl": hcl}, registerRecorder(&mu, &order))
	require.NoError(t, res.Err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestOrchestrator_FailurePropagationWithoutQuit(t *testing.T) {
	t.Parallel()

	hcl := `
campaign {
  name = "failure-prop"
  quit_on_failure = false
}

vertex "a" {
  task = "recorder"
  arguments = { name = "a" }
}

vertex "fails" {
  task = "always_fail"
  depends_on = ["a"]
  arguments = {}
}

vertex "blocked" {
  task = "recorder"
  depends_on = ["fails"]
  arguments = { name = "blocked" }
}
`

	var mu sync.Mutex
	var order []string

	res := orchtestutil.RunCampaign(t, map[string]string{"campaign.hcl": hcl}, func(r *tasks.Registry) {
		registerRecorder(&mu, &order)(r)
		r.Register("always_fail", func(cty.Value, *tasks.Resources) (task.Adapter, error) {
			return alwaysFail{}, nil
		})
	})

	require.Error(t, res.Err)
	require.Contains(t, order, "a")
	require.NotContains(t, order, "blocked")

	st := res.App.Scheduler.OverallState()
	require.Contains(t, st.States[vertex.Fail], "fails")
	require.Contains(t, st.States[vertex.Fail], "blocked")
}

type alwaysFail struct{}

func (alwaysFail) Start(_ task.ResultReader, report task.Reporter) {
	report.OnTaskFailure(errAlwaysFail)
}

var errAlwaysFail = errors.New("orchtests: task configured to always fail")
