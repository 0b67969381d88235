// Package orchtestutil provides a standardized harness for integration
// tests that exercise a campaign end to end: writing HCL files to a
// temporary directory, loading them, and running the resulting scheduler.
package orchtestutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/dagsched/internal/hclconfig"
	"github.com/specialistvlad/dagsched/internal/orchlog"
	"github.com/specialistvlad/dagsched/internal/orchestrator"
	"github.com/specialistvlad/dagsched/internal/tasks"
	"github.com/specialistvlad/dagsched/internal/vertex"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements io.Writer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements fmt.Stringer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcome of a single campaign run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *orchestrator.App
	Results   *vertex.ResultSet
}

// RunCampaign writes files to a temporary directory, loads them as a
// campaign, registers registerTasks on top of the builtins, and runs the
// resulting scheduler to completion.
func RunCampaign(t *testing.T, files map[string]string, registerTasks func(*tasks.Registry)) *HarnessResult {
	t.Helper()
	return RunCampaignWithContext(context.Background(), t, files, registerTasks)
}

// RunCampaignWithContext is RunCampaign with a caller-supplied base context.
func RunCampaignWithContext(ctx context.Context, t *testing.T, files map[string]string, registerTasks func(*tasks.Registry)) *HarnessResult {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".dagsched-integration-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	logBuffer := &SafeBuffer{}
	logger := orchlog.New("debug", "text", logBuffer)
	ctx = orchlog.WithLogger(ctx, logger)

	registry := tasks.New()
	tasks.RegisterBuiltins(registry)
	if registerTasks != nil {
		registerTasks(registry)
	}

	campaign, err := hclconfig.NewLoader().Load(ctx, tmpDir)
	if err != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: fmt.Errorf("loading campaign: %w", err)}
	}

	var testApp *orchestrator.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp, err = orchestrator.Build(ctx, orchestrator.Config{
			Campaign: campaign,
			Tasks:    registry,
			Logger:   logger,
		})
	}()

	if panicErr != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: fmt.Errorf("orchestrator build panicked: %v", panicErr)}
	}
	if err != nil {
		return &HarnessResult{LogOutput: logBuffer.String(), Err: fmt.Errorf("building orchestrator: %w", err)}
	}

	runErr, results := testApp.Run(ctx)

	if os.Getenv("DAGSCHED_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
		Results:   results,
	}
}
