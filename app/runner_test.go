package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/dispatch"
	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/robotstatus"
	"github.com/kilianp07/amrfleet/core/scenario"
	"github.com/kilianp07/amrfleet/core/simulator"
	"github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func TestRunnerDrivesBaselineRunToCompletion(t *testing.T) {
	bus := eventbus.New()
	log := logger.NopLogger{}

	manager := dispatch.NewManager(dispatch.DefaultConfig(), bus, log, robotstatus.NewMemoryStore(), nil)

	simCfg := simulator.DefaultConfig()
	simCfg.SimTickHz = 200
	simCfg.MaxSimSeconds = 120

	scenCfg := scenario.DefaultConfig()
	runner := NewRunner(bus, log, scenCfg, simCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)
	go runner.Run(ctx)

	done := bus.Subscribe(events.RunCompleted)
	defer done.Close()

	bus.Publish(events.Envelope{
		RoutingKey: events.RunStarted,
		RunID:      "run-mini",
		Payload:    events.RunStartedPayload{RunID: "run-mini", Mode: "baseline", Seed: 1, Scale: "mini"},
	})

	select {
	case env := <-done.C:
		p, ok := env.Payload.(events.RunCompletedPayload)
		require.True(t, ok)
		require.Equal(t, "run-mini", p.RunID)
		require.Equal(t, 5, p.Metrics.JobsCompleted+p.Metrics.JobsFailed)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for run.completed")
	}
}
