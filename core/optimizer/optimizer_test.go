package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/amrfleet/core/model"
)

func sampleRobots() []model.Robot {
	return []model.Robot{
		{ID: 1, X: 0, Y: 0, Speed: 2, Battery: 100, State: model.RobotIdle},
		{ID: 2, X: 50, Y: 50, Speed: 1.5, Battery: 80, State: model.RobotIdle},
	}
}

func sampleJobs() []model.Job {
	return []model.Job{
		{ID: "job_2", PickupX: 10, PickupY: 10, DropoffX: 20, DropoffY: 20, Priority: 3, DeadlineTS: 200, ServiceTimeS: 5},
		{ID: "job_1", PickupX: 5, PickupY: 5, DropoffX: 8, DropoffY: 8, Priority: 5, DeadlineTS: 100, ServiceTimeS: 5},
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a, metaA := Optimize(cfg, 42, sampleRobots(), sampleJobs(), 0)
	b, metaB := Optimize(cfg, 42, sampleRobots(), sampleJobs(), 0)

	require.Equal(t, a, b)
	require.Equal(t, metaA, metaB)
}

func TestOptimizeReturnsCanonicalJobOrder(t *testing.T) {
	cfg := DefaultConfig()
	assignments, _ := Optimize(cfg, 1, sampleRobots(), sampleJobs(), 0)

	require.Len(t, assignments, 2)
	require.Equal(t, "job_1", assignments[0].JobID)
	require.Equal(t, "job_2", assignments[1].JobID)
}

func TestOptimizeEmptyJobsReturnsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	assignments, meta := Optimize(cfg, 1, sampleRobots(), nil, 0)

	require.Empty(t, assignments)
	require.Zero(t, meta.BestScore)
}

func TestOptimizeEmptyRobotsReturnsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	assignments, _ := Optimize(cfg, 1, nil, sampleJobs(), 0)

	require.Empty(t, assignments)
}

func TestOptimizeAssignsEveryJobToAKnownRobot(t *testing.T) {
	cfg := DefaultConfig()
	robots := sampleRobots()
	assignments, _ := Optimize(cfg, 7, robots, sampleJobs(), 0)

	known := map[int]bool{}
	for _, r := range robots {
		known[r.ID] = true
	}
	for _, a := range assignments {
		require.True(t, known[a.RobotID], "assignment references unknown robot %d", a.RobotID)
	}
}

func TestFitnessPenalizesLateness(t *testing.T) {
	cfg := DefaultConfig()
	robots := []model.Robot{{ID: 1, X: 0, Y: 0, Speed: 1, Battery: 100}}
	jobs := []model.Job{
		{ID: "job_1", PickupX: 0, PickupY: 0, DropoffX: 1, DropoffY: 0, Priority: 1, DeadlineTS: 0, ServiceTimeS: 0},
	}
	onTime := evaluate(cfg, chromosome{0}, robots, []model.Job{{ID: "job_1", PickupX: 0, PickupY: 0, DropoffX: 1, DropoffY: 0, Priority: 5, DeadlineTS: 1000, ServiceTimeS: 0}}, 0)
	late := evaluate(cfg, chromosome{0}, robots, jobs, 0)

	require.Less(t, onTime, late)
}
