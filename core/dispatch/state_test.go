package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/model"
)

func TestPendingJobsLockedIsCanonicallyOrdered(t *testing.T) {
	rs := newRunState("r1", model.ModeBaseline, 1, 0)
	rs.jobs["job_b"] = model.Job{ID: "job_b", DeadlineTS: 100, Priority: 1, State: model.JobPending}
	rs.jobs["job_a"] = model.Job{ID: "job_a", DeadlineTS: 100, Priority: 5, State: model.JobPending}
	rs.jobs["job_c"] = model.Job{ID: "job_c", DeadlineTS: 50, Priority: 1, State: model.JobPending}
	rs.jobs["job_d"] = model.Job{ID: "job_d", DeadlineTS: 100, Priority: 1, State: model.JobAssigned}

	pending := rs.pendingJobsLocked()
	require.Len(t, pending, 3)
	require.Equal(t, "job_c", pending[0].ID)
	require.Equal(t, "job_a", pending[1].ID)
	require.Equal(t, "job_b", pending[2].ID)
}

func TestComputeBaselineAssignmentsPicksNearestAndBreaksTiesByID(t *testing.T) {
	robots := map[int]robotView{
		2: {ID: 2, X: 10, Y: 0, State: model.RobotIdle, Battery: 100},
		1: {ID: 1, X: 10, Y: 0, State: model.RobotIdle, Battery: 100},
		3: {ID: 3, X: 0, Y: 0, State: model.RobotCharging, Battery: 100},
	}
	pending := []model.Job{
		{ID: "job_1", PickupX: 10, PickupY: 0, DeadlineTS: 10},
	}

	assignments := computeBaselineAssignments(pending, robots, nil, 20)
	require.Len(t, assignments, 1)
	require.Equal(t, 1, assignments[0].RobotID)
}

func TestComputeBaselineAssignmentsSkipsBlockedAndIneligibleRobots(t *testing.T) {
	robots := map[int]robotView{
		1: {ID: 1, X: 0, Y: 0, State: model.RobotIdle, Battery: 5},  // below threshold
		2: {ID: 2, X: 0, Y: 0, State: model.RobotIdle, Battery: 100}, // blocked
		3: {ID: 3, X: 100, Y: 100, State: model.RobotIdle, Battery: 100},
	}
	pending := []model.Job{{ID: "job_1", PickupX: 0, PickupY: 0, DeadlineTS: 10}}
	blocked := map[int]struct{}{2: {}}

	assignments := computeBaselineAssignments(pending, robots, blocked, 20)
	require.Len(t, assignments, 1)
	require.Equal(t, 3, assignments[0].RobotID)
}

func TestApplyPlanDropsAssignmentsForUnknownRobotsAndNonPendingJobs(t *testing.T) {
	rs := newRunState("r1", model.ModeGA, 1, 0)
	rs.jobs["job_1"] = model.Job{ID: "job_1", State: model.JobPending}
	rs.jobs["job_2"] = model.Job{ID: "job_2", State: model.JobAssigned}
	rs.assignedJobs["job_2"] = struct{}{}

	eligible := []model.Robot{{ID: 1}}
	rs.applyPlan([]model.Assignment{
		{JobID: "job_1", RobotID: 1},
		{JobID: "job_2", RobotID: 1}, // no longer pending
		{JobID: "job_1", RobotID: 99}, // unknown robot
	}, eligible)

	require.Equal(t, []string{"job_1"}, rs.plannedQueue[1])
}

func TestPeriodicReplanScheduleAdvancesPastSimTime(t *testing.T) {
	rs := newRunState("r1", model.ModeGA, 1, 5)
	require.NotNil(t, rs.nextPeriodicReplanSimS)
	require.True(t, rs.periodicDue(5))
	require.False(t, rs.periodicDue(4))

	rs.advancePeriodicSchedule(5, 5)
	require.False(t, rs.periodicDue(9))
	require.True(t, rs.periodicDue(10))
}
