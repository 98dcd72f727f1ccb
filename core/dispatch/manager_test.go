package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/core/robotstatus"
	infralogger "github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func ptr[T any](v T) *T { return &v }

func drainAssigned(t *testing.T, sub *eventbus.Subscription, n int) []events.JobAssignedPayload {
	t.Helper()
	out := make([]events.JobAssignedPayload, 0, n)
	for i := 0; i < n; i++ {
		select {
		case env := <-sub.C:
			require.Equal(t, events.JobAssigned, env.RoutingKey)
			out = append(out, env.Payload.(events.JobAssignedPayload))
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for job.assigned (%d/%d)", i, n)
		}
	}
	return out
}

func TestBaselineAssignsNearestIdleRobotOnRobotUpdated(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(events.JobAssigned)
	defer sub.Close()

	cfg := DefaultConfig()
	m := NewManager(cfg, bus, infralogger.NopLogger{}, robotstatus.NewMemoryStore(), nil)

	m.handleRunStarted(events.RunStartedPayload{RunID: "r1", Mode: "baseline", Seed: 1})
	m.handleJobCreated(events.JobCreatedPayload{RunID: "r1", JobID: "job_1", PickupX: 10, PickupY: 0, DropoffX: 20, DropoffY: 0, DeadlineTS: 100, Priority: 3})

	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 1, State: "idle", SimTimeS: 0,
		X: ptr(0.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(100.0),
	})
	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 2, State: "idle", SimTimeS: 0,
		X: ptr(50.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(100.0),
	})

	got := drainAssigned(t, sub, 1)
	require.Equal(t, "job_1", got[0].JobID)
	require.Equal(t, 1, got[0].RobotID)
	require.Equal(t, "baseline_edf_nearest", got[0].Reason)
	require.Equal(t, "r1:job_1", got[0].IdempotencyKey)
}

func TestDuplicateAssignmentIsIgnored(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(events.JobAssigned)
	defer sub.Close()

	m := NewManager(DefaultConfig(), bus, infralogger.NopLogger{}, robotstatus.NewMemoryStore(), nil)
	m.handleRunStarted(events.RunStartedPayload{RunID: "r1", Mode: "baseline", Seed: 1})
	m.handleJobCreated(events.JobCreatedPayload{RunID: "r1", JobID: "job_1", DeadlineTS: 100, Priority: 3})

	rs := m.run("r1")
	m.emitAssignment(rs, "job_1", 1, 0, "baseline_edf_nearest")
	m.emitAssignment(rs, "job_1", 2, 0, "baseline_edf_nearest")

	got := drainAssigned(t, sub, 1)
	require.Equal(t, 1, got[0].RobotID)

	select {
	case env := <-sub.C:
		t.Fatalf("unexpected second assignment: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGAIdleGapTriggersReplanExactlyOnce(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(events.JobAssigned)
	defer sub.Close()

	optimizeCalls := 0
	fake := func(seed int64, robots []model.Robot, jobs []model.Job, simTimeS float64) ([]model.Assignment, error) {
		optimizeCalls++
		out := make([]model.Assignment, 0, len(jobs))
		for i, j := range jobs {
			out = append(out, model.Assignment{JobID: j.ID, RobotID: robots[i%len(robots)].ID})
		}
		return out, nil
	}

	m := NewManager(DefaultConfig(), bus, infralogger.NopLogger{}, robotstatus.NewMemoryStore(), fake)
	m.handleRunStarted(events.RunStartedPayload{RunID: "r1", Mode: "ga", Seed: 7})
	m.handleJobCreated(events.JobCreatedPayload{RunID: "r1", JobID: "job_1", DeadlineTS: 100, Priority: 3})

	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 1, State: "idle", SimTimeS: 0,
		X: ptr(0.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(100.0),
	})

	got := drainAssigned(t, sub, 1)
	require.Equal(t, "job_1", got[0].JobID)
	require.Equal(t, "ga_planned", got[0].Reason)
	require.Equal(t, 1, optimizeCalls)
}

func TestGASingleFlightSuppressesOverlappingReplans(t *testing.T) {
	rs := newRunState("r1", model.ModeGA, 1, 0)

	require.True(t, rs.tryBeginOptimize())
	require.False(t, rs.tryBeginOptimize())
	rs.finishOptimize()
	require.True(t, rs.tryBeginOptimize())
}

func TestBatteryGuardRedistributesStrandedQueue(t *testing.T) {
	bus := eventbus.New()
	sub := bus.Subscribe(events.JobAssigned)
	defer sub.Close()

	calls := 0
	fake := func(seed int64, robots []model.Robot, jobs []model.Job, simTimeS float64) ([]model.Assignment, error) {
		calls++
		out := make([]model.Assignment, 0, len(jobs))
		for i, j := range jobs {
			out = append(out, model.Assignment{JobID: j.ID, RobotID: robots[i%len(robots)].ID})
		}
		return out, nil
	}

	m := NewManager(DefaultConfig(), bus, infralogger.NopLogger{}, robotstatus.NewMemoryStore(), fake)
	m.handleRunStarted(events.RunStartedPayload{RunID: "r1", Mode: "ga", Seed: 1})
	m.handleJobCreated(events.JobCreatedPayload{RunID: "r1", JobID: "job_1", DeadlineTS: 100, Priority: 3})
	m.handleJobCreated(events.JobCreatedPayload{RunID: "r1", JobID: "job_2", DeadlineTS: 200, Priority: 3})

	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 1, State: "moving_to_pickup", SimTimeS: 0,
		X: ptr(0.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(100.0), CurrentJobID: ptr("job_1"),
	})
	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 2, State: "idle", SimTimeS: 0,
		X: ptr(5.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(100.0),
	})

	rs := m.run("r1")
	rs.mu.Lock()
	rs.plannedQueue[1] = []string{"job_2"}
	rs.mu.Unlock()

	m.handleRobotUpdated(events.RobotUpdatedPayload{
		RunID: "r1", RobotID: 1, State: "charging", SimTimeS: 1,
		X: ptr(0.0), Y: ptr(0.0), Speed: ptr(1.0), Battery: ptr(5.0), CurrentJobID: ptr("job_1"),
	})

	require.Eventually(t, func() bool { return calls >= 1 }, time.Second, time.Millisecond)

	rs.mu.Lock()
	strandedQueue := rs.plannedQueue[1]
	rs.mu.Unlock()
	require.Empty(t, strandedQueue)
}

func TestMalformedRobotUpdatedIsDroppedNotPanicked(t *testing.T) {
	bus := eventbus.New()
	m := NewManager(DefaultConfig(), bus, infralogger.NopLogger{}, robotstatus.NewMemoryStore(), nil)
	m.handleRunStarted(events.RunStartedPayload{RunID: "r1", Mode: "baseline", Seed: 1})

	require.NotPanics(t, func() {
		m.handle(events.Envelope{RoutingKey: events.RobotUpdated, RunID: "r1", Payload: "not-a-payload"})
	})
}
