package dispatch

import (
	"sort"
	"sync"

	"github.com/kilianp07/amrfleet/core/model"
)

// robotView is the dispatcher's projection of one robot, built solely from
// consumed robot.updated events. It is never the source of truth.
type robotView struct {
	ID           int
	X, Y         float64
	Speed        float64
	Battery      float64
	State        model.RobotState
	CurrentJobID string
}

func (r robotView) eligible(batteryThreshold float64) bool {
	return r.State != model.RobotCharging && r.Battery >= batteryThreshold
}

// runState is the dispatcher's per-run projection: pending jobs, robots,
// planned queues and the single-flight replan guard. All access outside of
// the event-handling goroutine (i.e. from the background replan goroutine)
// must go through the methods that take mu and hold it for their duration.
type runState struct {
	runID string
	mode  model.Mode
	seed  int64

	mu                     sync.Mutex
	robots                 map[int]robotView
	jobs                   map[string]model.Job
	assignedJobs           map[string]struct{}
	pendingAssignments     map[int]string // robot_id -> job_id awaiting confirmation
	plannedQueue           map[int][]string
	inFlightOptimize       bool
	lastReplanSimTimeS     float64
	nextPeriodicReplanSimS *float64
}

func newRunState(runID string, mode model.Mode, seed int64, replanIntervalS float64) *runState {
	rs := &runState{
		runID:              runID,
		mode:               mode,
		seed:               seed,
		robots:             make(map[int]robotView),
		jobs:               make(map[string]model.Job),
		assignedJobs:        make(map[string]struct{}),
		pendingAssignments: make(map[int]string),
		plannedQueue:       make(map[int][]string),
	}
	if replanIntervalS > 0 {
		next := replanIntervalS
		rs.nextPeriodicReplanSimS = &next
	}
	return rs
}

// pendingJobsLocked returns canonically ordered pending jobs. Callers must
// hold mu.
func (rs *runState) pendingJobsLocked() []model.Job {
	pending := make([]model.Job, 0, len(rs.jobs))
	for id, j := range rs.jobs {
		if j.State != model.JobPending {
			continue
		}
		if _, assigned := rs.assignedJobs[id]; assigned {
			continue
		}
		pending = append(pending, j)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Less(pending[j]) })
	return pending
}

func (rs *runState) hasPendingJobs() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.pendingJobsLocked()) > 0
}

func (rs *runState) isInFlight() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.inFlightOptimize
}

// tryBeginOptimize enforces the single-flight guard; returns false if a
// replan is already in progress.
func (rs *runState) tryBeginOptimize() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.inFlightOptimize {
		return false
	}
	rs.inFlightOptimize = true
	return true
}

func (rs *runState) finishOptimize() {
	rs.mu.Lock()
	rs.inFlightOptimize = false
	rs.mu.Unlock()
}

func (rs *runState) setLastReplanSimTimeS(simTimeS float64) {
	rs.mu.Lock()
	rs.lastReplanSimTimeS = simTimeS
	rs.mu.Unlock()
}

// periodicDue reports whether simTimeS has reached the next absolute
// periodic-replan boundary.
func (rs *runState) periodicDue(simTimeS float64) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.nextPeriodicReplanSimS != nil && simTimeS >= *rs.nextPeriodicReplanSimS
}

// advancePeriodicSchedule fast-forwards the next periodic replan boundary
// past simTimeS, so a slow consumer catching up on many ticks does not fire
// once per skipped tick.
func (rs *runState) advancePeriodicSchedule(simTimeS, intervalS float64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.nextPeriodicReplanSimS == nil {
		return
	}
	for *rs.nextPeriodicReplanSimS <= simTimeS {
		*rs.nextPeriodicReplanSimS += intervalS
	}
}

// LastReplanSimTimeS returns the sim time of the most recent completed
// replan for this run, part of the projection spec.md documents.
func (rs *runState) LastReplanSimTimeS() float64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastReplanSimTimeS
}

func (rs *runState) queueEmpty(robotID int) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.plannedQueue[robotID]) == 0
}

// snapshotForReplan returns the canonical pending jobs and eligible robots
// (sorted by id) as of the moment the replan begins.
func (rs *runState) snapshotForReplan(batteryThreshold float64) ([]model.Job, []model.Robot) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	pending := rs.pendingJobsLocked()

	robots := make([]model.Robot, 0, len(rs.robots))
	for _, r := range rs.robots {
		if !r.eligible(batteryThreshold) {
			continue
		}
		robots = append(robots, model.Robot{ID: r.ID, X: r.X, Y: r.Y, Speed: r.Speed, Battery: r.Battery, State: r.State})
	}
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	return pending, robots
}

// applyPlan replaces the planned queue with a GA plan's assignments,
// grouped by robot in the order the optimizer emitted them. Assignments for
// jobs that are no longer pending, or that name an unknown robot or a robot
// that has started charging since the replan began, are dropped rather than
// stranded.
func (rs *runState) applyPlan(assignments []model.Assignment, eligibleRobots []model.Robot) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	next := make(map[int][]string, len(eligibleRobots))
	for _, r := range eligibleRobots {
		next[r.ID] = nil
	}
	for _, a := range assignments {
		if _, assigned := rs.assignedJobs[a.JobID]; assigned {
			continue
		}
		job, ok := rs.jobs[a.JobID]
		if !ok || job.State != model.JobPending {
			continue
		}
		if _, known := next[a.RobotID]; !known {
			continue
		}
		if r, ok := rs.robots[a.RobotID]; ok && r.State == model.RobotCharging {
			continue
		}
		next[a.RobotID] = append(next[a.RobotID], a.JobID)
	}
	rs.plannedQueue = next
}

func (rs *runState) robotIDs() []int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ids := make([]int, 0, len(rs.robots))
	for id := range rs.robots {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func parseRobotState(s string) model.RobotState {
	switch s {
	case "idle":
		return model.RobotIdle
	case "moving_to_pickup":
		return model.RobotMovingToPickup
	case "servicing":
		return model.RobotServicing
	case "moving_to_dropoff":
		return model.RobotMovingToDropoff
	case "charging":
		return model.RobotCharging
	default:
		return model.RobotIdle
	}
}
