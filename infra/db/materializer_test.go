package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/events"
	infralogger "github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMaterializerPersistsFullRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	bus := eventbus.New()
	m := NewMaterializer(store, bus, infralogger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	bus.Publish(events.Envelope{RoutingKey: events.RunStarted, RunID: "r1", Payload: events.RunStartedPayload{RunID: "r1", Mode: "baseline", Seed: 1, Scale: "small"}})
	bus.Publish(events.Envelope{RoutingKey: events.JobCreated, RunID: "r1", Payload: events.JobCreatedPayload{RunID: "r1", JobID: "job_1", Priority: 3, DeadlineTS: 100}})
	bus.Publish(events.Envelope{RoutingKey: events.JobAssigned, RunID: "r1", Payload: events.JobAssignedPayload{RunID: "r1", JobID: "job_1", RobotID: 1, SimTimeS: 5, Reason: "baseline_edf_nearest"}})
	bus.Publish(events.Envelope{RoutingKey: events.JobCompleted, RunID: "r1", Payload: events.JobTerminalPayload{RunID: "r1", JobID: "job_1", SimTimeS: 40, LatenessS: -10}})
	bus.Publish(events.Envelope{RoutingKey: events.TelemetryReceived, RunID: "r1", Payload: events.TelemetryReceivedPayload{RunID: "r1", RobotID: 1, SimTimeS: 5, State: "moving_to_pickup", X: 1, Y: 2, Battery: 90}})
	bus.Publish(events.Envelope{RoutingKey: events.RunCompleted, RunID: "r1", Payload: events.RunCompletedPayload{
		RunID: "r1", SimTimeS: 40,
		Metrics: events.RunCompletedMetrics{OnTimeRate: 1, JobsCompleted: 1},
	}})

	require.Eventually(t, func() bool {
		run, err := store.GetRun(context.Background(), "r1")
		return err == nil && run.Metrics != nil
	}, time.Second, time.Millisecond)

	run, err := store.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "baseline", run.Mode)
	require.True(t, run.CompletedAt.Valid)
	require.Equal(t, 1.0, run.Metrics.OnTimeRate)
	require.Equal(t, 1, run.Metrics.JobsCompleted)
}

func TestMaterializerIgnoresMalformedPayload(t *testing.T) {
	store := newTestStore(t)
	bus := eventbus.New()
	m := NewMaterializer(store, bus, infralogger.NopLogger{})

	require.NotPanics(t, func() {
		m.handle(context.Background(), events.Envelope{RoutingKey: events.JobCreated, RunID: "r1", Payload: "bad"})
	})
}
