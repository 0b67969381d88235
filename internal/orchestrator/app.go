// Package orchestrator wires a loaded campaign into a running scheduler:
// it builds the declared resources, binds each vertex to a task.Adapter
// from the tasks registry, and assembles the resulting scheduler.Scheduler
// ready for Start.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/config"
	"github.com/specialistvlad/dagsched/internal/orchlog"
	"github.com/specialistvlad/dagsched/internal/scheduler"
	"github.com/specialistvlad/dagsched/internal/tasks"
	"github.com/specialistvlad/dagsched/internal/tasks/httptask"
	"github.com/specialistvlad/dagsched/internal/tasks/sockettask"
	"github.com/specialistvlad/dagsched/internal/vertex"
)

// Config holds everything needed to build and run one campaign.
type Config struct {
	Campaign *config.Campaign
	Tasks    *tasks.Registry
	// Terminal, if set, is invoked in addition to the one Run's caller
	// observes through its own return value.
	Terminal scheduler.TerminalFunc
	Logger   *slog.Logger
}

// App owns the scheduler built from a campaign, along with the live
// resources (http clients, socket.io connections) the campaign's tasks
// depend on.
type App struct {
	Scheduler *scheduler.Scheduler
	resources *tasks.Resources
	logger    *slog.Logger

	done    chan struct{}
	runErr  error
	results *vertex.ResultSet
}

// Build constructs every resource the campaign declares, binds every
// vertex to its task, and wires the edges — both explicit (depends_on)
// and implicit (detected by the loader from arguments expressions).
func Build(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = orchlog.FromContext(ctx)
	}

	resources := tasks.NewResources()
	for _, rs := range cfg.Campaign.Resources {
		obj, err := buildResource(ctx, rs)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: building resource %q: %w", rs.Name, err)
		}
		resources.Set(rs.Name, obj)
		logger.Debug("resource built", "name", rs.Name, "kind", rs.Kind)
	}

	app := &App{resources: resources, logger: logger, done: make(chan struct{})}

	sched := scheduler.New(scheduler.Config{
		Name: cfg.Campaign.Name,
		Terminal: func(err error, results *vertex.ResultSet) {
			app.runErr = err
			app.results = results
			close(app.done)
			if cfg.Terminal != nil {
				cfg.Terminal(err, results)
			}
		},
		QuitOnFailure: cfg.Campaign.QuitOnFailure,
		MaxConcurrent: cfg.Campaign.MaxConcurrent,
		Logger:        logger,
	})
	app.Scheduler = sched

	for _, vs := range cfg.Campaign.Vertices {
		adapter, err := cfg.Tasks.Build(vs.Task, vs.Arguments, resources)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: building vertex %q: %w", vs.ID, err)
		}
		if err := sched.AddVertex(vs.ID, adapter); err != nil {
			return nil, fmt.Errorf("orchestrator: adding vertex %q: %w", vs.ID, err)
		}
	}
	for _, vs := range cfg.Campaign.Vertices {
		for _, dep := range vs.DependsOn {
			if err := sched.AddEdge(dep, vs.ID); err != nil {
				return nil, fmt.Errorf("orchestrator: adding edge %s -> %s: %w", dep, vs.ID, err)
			}
		}
	}

	return app, nil
}

// Resources exposes the campaign's built resources, primarily for tests.
func (a *App) Resources() *tasks.Resources { return a.resources }

// Run starts the campaign and blocks until its terminal callback fires or
// ctx is cancelled, whichever comes first. Cancelling ctx does not stop
// any task already IN_PROGRESS — the specification provides no
// cancellation — it only stops Run from waiting on them.
func (a *App) Run(ctx context.Context) (error, *vertex.ResultSet) {
	if err := a.Scheduler.Start(vertex.NewResultSet()); err != nil {
		return err, nil
	}

	select {
	case <-a.done:
		return a.runErr, a.results
	case <-ctx.Done():
		return ctx.Err(), a.Scheduler.Results()
	}
}

func buildResource(ctx context.Context, rs *config.ResourceSpec) (any, error) {
	switch rs.Kind {
	case "http_client":
		timeout := optionalDuration(rs.Arguments, "timeout", 30*time.Second)
		return httptask.NewClient(timeout), nil
	case "socketio_client":
		url := optionalAttrString(rs.Arguments, "url", "")
		namespace := optionalAttrString(rs.Arguments, "namespace", "/")
		insecure := optionalAttrBool(rs.Arguments, "insecure_skip_verify", false)
		return sockettask.Connect(ctx, url, namespace, insecure)
	default:
		return nil, fmt.Errorf("orchestrator: unknown resource kind %q", rs.Kind)
	}
}

func optionalAttrString(obj cty.Value, attr, def string) string {
	if obj.IsNull() || !obj.Type().IsObjectType() || !obj.Type().HasAttribute(attr) {
		return def
	}
	v := obj.GetAttr(attr)
	if v.IsNull() || !v.IsKnown() {
		return def
	}
	return v.AsString()
}

func optionalAttrBool(obj cty.Value, attr string, def bool) bool {
	if obj.IsNull() || !obj.Type().IsObjectType() || !obj.Type().HasAttribute(attr) {
		return def
	}
	v := obj.GetAttr(attr)
	if v.IsNull() || !v.IsKnown() {
		return def
	}
	return v.True()
}

func optionalDuration(obj cty.Value, attr string, def time.Duration) time.Duration {
	s := optionalAttrString(obj, attr, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
