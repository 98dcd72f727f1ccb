package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/infra/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

func newTestEngine(t *testing.T, scenario model.Scenario) (*Engine, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	eng := New("run-test", scenario, DefaultConfig(), bus, logger.NopLogger{})
	return eng, bus
}

func oneRobotOneJobScenario() model.Scenario {
	return model.Scenario{
		RunID: "run-test",
		Seed:  1,
		Robots: []model.Robot{
			{ID: 1, X: 0, Y: 0, Speed: 10, Battery: 100, State: model.RobotIdle},
		},
		Jobs: []model.Job{
			{ID: "job_1", PickupX: 0, PickupY: 0, DropoffX: 5, DropoffY: 0, Priority: 3, DeadlineTS: 60, ServiceTimeS: 1},
		},
	}
}

func runUntilJobTerminal(eng *Engine, jobID string, maxTicks int) bool {
	for i := 0; i < maxTicks; i++ {
		eng.Step()
		for _, j := range eng.Jobs() {
			if j.ID == jobID && (j.State == model.JobCompleted || j.State == model.JobFailed) {
				return true
			}
		}
	}
	return false
}

func TestEngineCompletesJobAndReturnsRobotIdle(t *testing.T) {
	eng, bus := newTestEngine(t, oneRobotOneJobScenario())
	defer bus.Close()

	eng.QueueAssignment("job_1", 1, "run-test:job_1")
	ok := runUntilJobTerminal(eng, "job_1", 500)
	require.True(t, ok, "job never reached a terminal state")

	jobs := eng.Jobs()
	require.Equal(t, model.JobCompleted, jobs[0].State)

	robots := eng.Robots()
	require.Equal(t, model.RobotIdle, robots[0].State)
	require.Empty(t, robots[0].CurrentJobID)
	require.Greater(t, robots[0].DistanceTraveled, 0.0)
}

func TestEngineDuplicateIdempotencyKeyIsNoop(t *testing.T) {
	eng, bus := newTestEngine(t, oneRobotOneJobScenario())
	defer bus.Close()

	eng.QueueAssignment("job_1", 1, "run-test:job_1")
	eng.QueueAssignment("job_1", 1, "run-test:job_1")
	eng.Step()

	robots := eng.Robots()
	require.Equal(t, "job_1", robots[0].CurrentJobID)

	jobs := eng.Jobs()
	require.Equal(t, model.JobAssigned, jobs[0].State)
	require.Equal(t, 1, jobs[0].AssignedRobotID)
}

func TestEngineAtMostOneJobPerRobot(t *testing.T) {
	scenario := model.Scenario{
		RunID: "run-test",
		Robots: []model.Robot{
			{ID: 1, X: 0, Y: 0, Speed: 5, Battery: 100, State: model.RobotIdle},
		},
		Jobs: []model.Job{
			{ID: "job_1", PickupX: 1, PickupY: 0, DropoffX: 2, DropoffY: 0, Priority: 1, DeadlineTS: 60, ServiceTimeS: 1},
			{ID: "job_2", PickupX: 3, PickupY: 0, DropoffX: 4, DropoffY: 0, Priority: 1, DeadlineTS: 60, ServiceTimeS: 1},
		},
	}
	eng, bus := newTestEngine(t, scenario)
	defer bus.Close()

	// Assign both jobs to the same idle robot; the second must be rejected
	// because the robot is no longer idle once the first is applied.
	eng.QueueAssignment("job_1", 1, "run-test:job_1")
	eng.QueueAssignment("job_2", 1, "run-test:job_2")
	eng.Step()

	robots := eng.Robots()
	require.Equal(t, "job_1", robots[0].CurrentJobID)

	jobs := eng.Jobs()
	var pendingCount, assignedCount int
	for _, j := range jobs {
		switch j.State {
		case model.JobPending:
			pendingCount++
		case model.JobAssigned:
			assignedCount++
		}
	}
	require.Equal(t, 1, pendingCount)
	require.Equal(t, 1, assignedCount)
}

func TestEngineBatteryDepletionForcesCharging(t *testing.T) {
	scenario := model.Scenario{
		RunID: "run-test",
		Robots: []model.Robot{
			{ID: 1, X: 0, Y: 0, Speed: 50, Battery: 1, State: model.RobotIdle},
		},
		Jobs: []model.Job{
			{ID: "job_1", PickupX: 0, PickupY: 0, DropoffX: 100, DropoffY: 0, Priority: 1, DeadlineTS: 600, ServiceTimeS: 1},
		},
	}
	eng, bus := newTestEngine(t, scenario)
	defer bus.Close()

	eng.QueueAssignment("job_1", 1, "run-test:job_1")

	sawCharging := false
	for i := 0; i < 100 && !sawCharging; i++ {
		eng.Step()
		for _, r := range eng.Robots() {
			if r.State == model.RobotCharging {
				sawCharging = true
			}
		}
	}
	require.True(t, sawCharging, "expected robot to enter charging after draining battery")
}

func TestEngineFinalizeFailsRemainingJobs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSimSeconds = 1 // force immediate timeout
	scenario := oneRobotOneJobScenario()
	bus := eventbus.New()
	defer bus.Close()
	eng := New("run-test", scenario, cfg, bus, logger.NopLogger{})

	metrics := eng.Finalize()
	jobs := eng.Jobs()
	require.Equal(t, model.JobFailed, jobs[0].State)
	require.Equal(t, 1, metrics.JobsFailed)
	require.Equal(t, 0, metrics.JobsCompleted)
}
