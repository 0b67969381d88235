// Command orchestrator loads a declarative campaign from HCL and runs it
// to completion.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/dagsched/internal/cli"
	"github.com/specialistvlad/dagsched/internal/hclconfig"
	"github.com/specialistvlad/dagsched/internal/orchlog"
	"github.com/specialistvlad/dagsched/internal/orchestrator"
	"github.com/specialistvlad/dagsched/internal/tasks"
	"github.com/specialistvlad/dagsched/internal/vertex"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(outW, "A critical startup error occurred: %v\n", r)
			os.Exit(1)
		}
	}()

	logger := orchlog.New(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := orchlog.WithLogger(context.Background(), logger)

	loader := hclconfig.NewLoader()
	campaign, err := loader.Load(ctx, cfg.CampaignPath)
	if err != nil {
		return fmt.Errorf("loading campaign: %w", err)
	}

	if cfg.QuitOnFailure != nil {
		campaign.QuitOnFailure = *cfg.QuitOnFailure
	}
	if cfg.MaxConcurrent != nil {
		campaign.MaxConcurrent = *cfg.MaxConcurrent
	}

	registry := tasks.New()
	tasks.RegisterBuiltins(registry)

	app, err := orchestrator.Build(ctx, orchestrator.Config{
		Campaign: campaign,
		Tasks:    registry,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("building orchestrator: %w", err)
	}

	runErr, results := app.Run(ctx)
	logSummary(logger, app, results)
	return runErr
}

func logSummary(logger *slog.Logger, app *orchestrator.App, results *vertex.ResultSet) {
	st := app.Scheduler.OverallState()
	logger.Info("campaign finished",
		"guid", st.GUID,
		"succeeded", len(st.States[vertex.Success]),
		"failed", len(st.States[vertex.Fail]),
	)
}
