package simulator

import (
	"math"
	"sort"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/logger"
	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// pendingAssignment is a job.assigned command queued for the next tick.
type pendingAssignment struct {
	jobID          string
	robotID        int
	idempotencyKey string
}

// Engine owns the authoritative world state for one run and is the sole
// writer of robot and job state. It consumes job.assigned commands and
// emits robot/job/telemetry/snapshot events on the bus.
type Engine struct {
	cfg   Config
	runID string
	bus   *eventbus.Bus
	log   logger.Logger

	robots []model.Robot
	jobs   []model.Job

	robotIdx map[int]int
	jobIdx   map[string]int

	tick int64

	phaseRemaining       map[int]float64
	resumeState          map[int]model.RobotState
	targetX, targetY     map[int]float64
	lastPositionEmitSimS map[int]int64
	appliedIdempotency   map[string]struct{}
	pending              []pendingAssignment
}

// New builds an Engine over a generated scenario.
func New(runID string, scenario model.Scenario, cfg Config, bus *eventbus.Bus, log logger.Logger) *Engine {
	robots := append([]model.Robot(nil), scenario.Robots...)
	jobs := append([]model.Job(nil), scenario.Jobs...)
	sort.Slice(robots, func(i, j int) bool { return robots[i].ID < robots[j].ID })
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	e := &Engine{
		cfg:                  cfg,
		runID:                runID,
		bus:                  bus,
		log:                  log,
		robots:               robots,
		jobs:                 jobs,
		robotIdx:             make(map[int]int, len(robots)),
		jobIdx:               make(map[string]int, len(jobs)),
		phaseRemaining:       make(map[int]float64),
		resumeState:          make(map[int]model.RobotState),
		targetX:              make(map[int]float64),
		targetY:              make(map[int]float64),
		lastPositionEmitSimS: make(map[int]int64),
		appliedIdempotency:   make(map[string]struct{}),
	}
	for i, r := range e.robots {
		e.robotIdx[r.ID] = i
	}
	for i, j := range e.jobs {
		e.jobIdx[j.ID] = i
	}
	return e
}

// SimTimeS returns the current simulation time in seconds.
func (e *Engine) SimTimeS() float64 {
	return float64(e.tick) * e.cfg.dt()
}

func (e *Engine) simTimeSInt() int64 {
	return int64(e.SimTimeS())
}

// QueueAssignment enqueues a job.assigned command for application on the
// next tick. A key that has already been applied is dropped immediately; a
// key queued twice before the next tick is applied once and skipped the
// second time.
func (e *Engine) QueueAssignment(jobID string, robotID int, idempotencyKey string) {
	if _, seen := e.appliedIdempotency[idempotencyKey]; seen {
		return
	}
	e.pending = append(e.pending, pendingAssignment{jobID: jobID, robotID: robotID, idempotencyKey: idempotencyKey})
}

// EmitInitial publishes job.created for every job and a forced robot.updated
// for every robot, as of sim start.
func (e *Engine) EmitInitial() {
	simTimeS := e.SimTimeS()
	for _, j := range e.jobs {
		e.publishJobCreated(j, simTimeS)
	}
	for i := range e.robots {
		e.emitRobotUpdated(&e.robots[i], true)
	}
}

// Step advances the simulation by exactly one tick: applies queued
// assignments, advances every robot in id order, and emits due events.
func (e *Engine) Step() {
	e.applyPending()

	simTimeS := e.SimTimeS()
	prevSimTimeS := e.simTimeSInt()

	for i := range e.robots {
		r := &e.robots[i]
		prevState := r.State
		e.advanceRobot(r)
		if r.State != prevState {
			e.emitRobotUpdated(r, true)
		} else {
			e.emitRobotUpdated(r, false)
		}
	}

	e.tick++
	newSimTimeS := e.simTimeSInt()
	if newSimTimeS > prevSimTimeS {
		e.emitTelemetryForAll(float64(newSimTimeS))
	}
	e.emitSnapshot(simTimeS)
}

// ShouldStop reports whether the run has reached its time limit or every
// job has reached a terminal state.
func (e *Engine) ShouldStop() bool {
	if e.SimTimeS() >= e.cfg.MaxSimSeconds {
		return true
	}
	for _, j := range e.jobs {
		if j.State != model.JobCompleted && j.State != model.JobFailed {
			return false
		}
	}
	return true
}

// Finalize marks every non-terminal job as failed, records lateness and
// emits job.failed for each, then publishes run.completed with metrics.
func (e *Engine) Finalize() model.RunMetrics {
	simTimeS := e.SimTimeS()
	for i := range e.jobs {
		j := &e.jobs[i]
		if j.State == model.JobCompleted || j.State == model.JobFailed {
			continue
		}
		j.State = model.JobFailed
		j.CompletedTS = simTimeS
		lateness := math.Max(0, j.Lateness(simTimeS))
		e.publishJobTerminal(events.JobFailed, *j, lateness)
	}

	metrics := ComputeMetrics(e.jobs, e.totalDistance())
	e.publishRunCompleted(metrics, false, "")
	return metrics
}

// Robots returns a defensive copy of current robot state, id-ordered.
func (e *Engine) Robots() []model.Robot {
	return append([]model.Robot(nil), e.robots...)
}

// Jobs returns a defensive copy of current job state, id-ordered.
func (e *Engine) Jobs() []model.Job {
	return append([]model.Job(nil), e.jobs...)
}

func (e *Engine) applyPending() {
	if len(e.pending) == 0 {
		return
	}
	batch := e.pending
	e.pending = nil
	for _, p := range batch {
		e.applyAssignment(p)
	}
}

func (e *Engine) applyAssignment(p pendingAssignment) {
	if _, seen := e.appliedIdempotency[p.idempotencyKey]; seen {
		return
	}
	ri, ok := e.robotIdx[p.robotID]
	if !ok {
		e.log.Warnf("simulator: assignment for unknown robot %d ignored", p.robotID)
		return
	}
	ji, ok := e.jobIdx[p.jobID]
	if !ok {
		e.log.Warnf("simulator: assignment for unknown job %s ignored", p.jobID)
		return
	}
	robot := &e.robots[ri]
	job := &e.jobs[ji]

	if robot.State != model.RobotIdle {
		e.log.Debugf("simulator: robot %d not idle, ignoring assignment for %s", robot.ID, job.ID)
		return
	}
	if job.State != model.JobPending {
		e.log.Debugf("simulator: job %s not pending (state=%s), ignoring duplicate/late assignment", job.ID, job.State)
		return
	}

	e.appliedIdempotency[p.idempotencyKey] = struct{}{}

	job.State = model.JobAssigned
	job.AssignedRobotID = robot.ID
	job.AssignedTS = e.SimTimeS()

	robot.CurrentJobID = job.ID
	e.targetX[robot.ID] = job.PickupX
	e.targetY[robot.ID] = job.PickupY
	delete(e.phaseRemaining, robot.ID)
	robot.State = model.RobotMovingToPickup
}

func (e *Engine) advanceRobot(r *model.Robot) {
	dt := e.cfg.dt()

	if r.State == model.RobotCharging {
		r.Battery = math.Min(100, r.Battery+e.cfg.ChargeRate*dt)
		if r.Battery >= e.cfg.ChargeResumeThreshold {
			resume, ok := e.resumeState[r.ID]
			if !ok {
				resume = model.RobotIdle
			}
			delete(e.resumeState, r.ID)
			r.State = resume
		}
		return
	}

	if r.State == model.RobotServicing {
		e.advanceServicing(r)
		return
	}

	if r.Battery <= 0 && (r.State == model.RobotMovingToPickup || r.State == model.RobotMovingToDropoff) {
		e.resumeState[r.ID] = r.State
		r.State = model.RobotCharging
		return
	}

	if r.State != model.RobotMovingToPickup && r.State != model.RobotMovingToDropoff {
		return
	}

	job, ok := e.currentJob(r)
	if !ok {
		e.clearRobotJob(r)
		return
	}

	tx, hasTX := e.targetX[r.ID]
	ty, hasTY := e.targetY[r.ID]
	if !hasTX || !hasTY {
		e.clearRobotJob(r)
		return
	}

	dx := tx - r.X
	dy := ty - r.Y
	distanceToTarget := math.Hypot(dx, dy)
	stepDistance := r.Speed * dt

	if distanceToTarget > 0 {
		travel := math.Min(distanceToTarget, stepDistance)
		ratio := travel / distanceToTarget
		r.X += dx * ratio
		r.Y += dy * ratio
		r.DistanceTraveled += travel
		r.Battery = math.Max(0, r.Battery-travel*e.cfg.BatteryDrainPerUnit)
		if r.Battery <= 0 {
			e.resumeState[r.ID] = r.State
			r.State = model.RobotCharging
			return
		}
	}

	arrived := distanceToTarget <= stepDistance+1e-9
	if !arrived {
		return
	}

	switch r.State {
	case model.RobotMovingToPickup:
		r.State = model.RobotServicing
		e.phaseRemaining[r.ID] = e.cfg.ServiceTimeS
		delete(e.targetX, r.ID)
		delete(e.targetY, r.ID)
	case model.RobotMovingToDropoff:
		completion := e.SimTimeS()
		lateness := job.Lateness(completion)
		job.State = model.JobCompleted
		job.CompletedTS = completion
		e.jobs[e.jobIdx[job.ID]] = *job
		e.publishJobTerminal(events.JobCompleted, *job, lateness)

		r.State = model.RobotIdle
		r.CurrentJobID = ""
		delete(e.targetX, r.ID)
		delete(e.targetY, r.ID)
		delete(e.phaseRemaining, r.ID)
	}
}

// advanceServicing decrements the pickup-side service timer for a stationary
// robot; on reaching zero it moves the job to in_progress and the robot
// starts moving_to_dropoff.
func (e *Engine) advanceServicing(r *model.Robot) {
	dt := e.cfg.dt()
	remaining := math.Max(0, e.phaseRemaining[r.ID]-dt)
	if remaining > 0 {
		e.phaseRemaining[r.ID] = remaining
		return
	}
	delete(e.phaseRemaining, r.ID)

	job, ok := e.currentJob(r)
	if !ok {
		e.clearRobotJob(r)
		return
	}
	job.State = model.JobInProgress
	e.jobs[e.jobIdx[job.ID]] = *job

	r.State = model.RobotMovingToDropoff
	e.targetX[r.ID] = job.DropoffX
	e.targetY[r.ID] = job.DropoffY
}

func (e *Engine) currentJob(r *model.Robot) (*model.Job, bool) {
	if r.CurrentJobID == "" {
		return nil, false
	}
	idx, ok := e.jobIdx[r.CurrentJobID]
	if !ok {
		return nil, false
	}
	j := e.jobs[idx]
	return &j, true
}

func (e *Engine) clearRobotJob(r *model.Robot) {
	r.State = model.RobotIdle
	r.CurrentJobID = ""
	delete(e.targetX, r.ID)
	delete(e.targetY, r.ID)
	delete(e.phaseRemaining, r.ID)
}

func (e *Engine) totalDistance() float64 {
	var total float64
	for _, r := range e.robots {
		total += r.DistanceTraveled
	}
	return total
}
