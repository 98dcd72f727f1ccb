// Package dispatch consumes run.started, job.created and robot.updated
// events, maintains a stale-tolerant per-run projection of world state, and
// emits job.assigned commands under either the baseline EDF+nearest
// heuristic or GA whole-fleet replans.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/amrfleet/core/dispatch/logging"
	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/logger"
	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/core/robotstatus"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Manager owns the dispatcher's per-run state and the event loop that
// drives it. A Manager is safe to Run once; its runs map is guarded
// separately from each run's own state so that concurrent runs never block
// each other.
type Manager struct {
	cfg      Config
	bus      *eventbus.Bus
	log      logger.Logger
	optimize OptimizeFunc
	status   robotstatus.Store
	store    logging.LogStore

	mu   sync.Mutex
	runs map[string]*runState
}

// NewManager builds a Manager. status may be nil if no dispatcher-side
// robot projection needs to be shared with other components.
func NewManager(cfg Config, bus *eventbus.Bus, log logger.Logger, status robotstatus.Store, optimize OptimizeFunc) *Manager {
	return &Manager{
		cfg:      cfg,
		bus:      bus,
		log:      log,
		status:   status,
		optimize: optimize,
		runs:     make(map[string]*runState),
	}
}

// SetLogStore configures the store used to persist a dispatch decision audit
// trail. Nil (the default) disables logging.
func (m *Manager) SetLogStore(store logging.LogStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = store
}

// Close releases resources held by the manager, including its log store.
func (m *Manager) Close() error {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()
	if store != nil {
		return store.Close()
	}
	return nil
}

// Run subscribes to the bus and processes events until ctx is canceled.
// Events for a single run are handled one at a time, in publish order;
// replan goroutines spawned along the way run concurrently with the loop.
func (m *Manager) Run(ctx context.Context) {
	sub := m.bus.Subscribe(events.RunStarted, events.JobCreated, events.RobotUpdated)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			m.handle(env)
		}
	}
}

func (m *Manager) handle(env events.Envelope) {
	switch env.RoutingKey {
	case events.RunStarted:
		p, ok := env.Payload.(events.RunStartedPayload)
		if !ok {
			m.log.Warnf("dispatch: dropping malformed run.started payload")
			return
		}
		m.handleRunStarted(p)
	case events.JobCreated:
		p, ok := env.Payload.(events.JobCreatedPayload)
		if !ok {
			m.log.Warnf("dispatch: dropping malformed job.created payload")
			return
		}
		m.handleJobCreated(p)
	case events.RobotUpdated:
		p, ok := env.Payload.(events.RobotUpdatedPayload)
		if !ok {
			m.log.Warnf("dispatch: dropping malformed robot.updated payload")
			return
		}
		m.handleRobotUpdated(p)
	}
}

func (m *Manager) run(runID string) *runState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[runID]
}

func (m *Manager) handleRunStarted(p events.RunStartedPayload) {
	if p.RunID == "" {
		m.log.Warnf("dispatch: run.started missing run_id")
		return
	}
	rs := newRunState(p.RunID, model.Mode(p.Mode), p.Seed, m.cfg.GAReplanIntervalS)

	m.mu.Lock()
	m.runs[p.RunID] = rs
	m.mu.Unlock()

	m.log.Infof("dispatch: run started run_id=%s mode=%s seed=%d", p.RunID, p.Mode, p.Seed)

	if rs.mode == model.ModeGA {
		m.triggerReplan(rs, 0, "initial")
	}
}

func (m *Manager) handleJobCreated(p events.JobCreatedPayload) {
	rs := m.run(p.RunID)
	if rs == nil {
		return
	}
	if p.JobID == "" {
		m.log.Warnf("dispatch: job.created missing job_id run_id=%s", p.RunID)
		return
	}

	rs.mu.Lock()
	rs.jobs[p.JobID] = model.Job{
		ID:         p.JobID,
		PickupX:    p.PickupX,
		PickupY:    p.PickupY,
		DropoffX:   p.DropoffX,
		DropoffY:   p.DropoffY,
		Priority:   p.Priority,
		DeadlineTS: p.DeadlineTS,
		State:      model.JobPending,
	}
	rs.mu.Unlock()

	// Assignment is triggered by robot.updated, not here, to avoid
	// over-assigning during the job.created burst that follows run.started.
}

func (m *Manager) handleRobotUpdated(p events.RobotUpdatedPayload) {
	rs := m.run(p.RunID)
	if rs == nil {
		return
	}

	rawCurrentJobID := ""
	if p.CurrentJobID != nil {
		rawCurrentJobID = *p.CurrentJobID
	}

	rs.mu.Lock()
	if pendingJobID, waiting := rs.pendingAssignments[p.RobotID]; waiting {
		if rawCurrentJobID == pendingJobID || p.State != "idle" {
			delete(rs.pendingAssignments, p.RobotID)
		} else if p.State == "idle" && rawCurrentJobID == "" {
			rs.mu.Unlock()
			m.log.Debugf("dispatch: ignoring idle robot.updated while assignment pending run_id=%s robot_id=%d", p.RunID, p.RobotID)
			return
		}
	}

	existing, hadPrev := rs.robots[p.RobotID]
	prevState := model.RobotState(-1)
	if hadPrev {
		prevState = existing.State
	}

	updated := existing
	updated.ID = p.RobotID
	if p.X != nil {
		updated.X = *p.X
	}
	if p.Y != nil {
		updated.Y = *p.Y
	}
	if p.Speed != nil {
		updated.Speed = *p.Speed
	}
	if p.Battery != nil {
		updated.Battery = *p.Battery
	}
	if p.CurrentJobID != nil {
		updated.CurrentJobID = *p.CurrentJobID
	}
	updated.State = parseRobotState(p.State)
	rs.robots[p.RobotID] = updated

	becameIneligible := updated.State == model.RobotCharging || updated.Battery < m.cfg.BatteryThreshold
	prevQueueLen := len(rs.plannedQueue[p.RobotID])
	if becameIneligible {
		rs.plannedQueue[p.RobotID] = nil
		delete(rs.pendingAssignments, p.RobotID)
	}
	mode := rs.mode
	rs.mu.Unlock()

	if mode == model.ModeBaseline {
		m.dispatchBaseline(rs, p.SimTimeS)
		return
	}

	// GA mode.
	m.emitPlannedForIdleRobot(rs, p.RobotID, p.SimTimeS)

	if m.cfg.GAReplanIntervalS > 0 && rs.periodicDue(p.SimTimeS) && rs.hasPendingJobs() && !rs.isInFlight() {
		m.triggerReplan(rs, p.SimTimeS, "periodic")
		rs.advancePeriodicSchedule(p.SimTimeS, m.cfg.GAReplanIntervalS)
	}

	transitionedToIdle := prevState != model.RobotIdle && updated.State == model.RobotIdle
	if transitionedToIdle && rs.queueEmpty(p.RobotID) && rs.hasPendingJobs() && !rs.isInFlight() {
		m.triggerReplan(rs, p.SimTimeS, "idle_gap")
	}

	if becameIneligible && prevQueueLen > 0 && rs.hasPendingJobs() && !rs.isInFlight() {
		m.triggerReplan(rs, p.SimTimeS, "battery_guard")
	}
}

func (m *Manager) dispatchBaseline(rs *runState, simTimeS float64) {
	rs.mu.Lock()
	pending := rs.pendingJobsLocked()
	if len(pending) == 0 {
		rs.mu.Unlock()
		return
	}
	blocked := make(map[int]struct{}, len(rs.pendingAssignments))
	for robotID := range rs.pendingAssignments {
		blocked[robotID] = struct{}{}
	}
	robots := make(map[int]robotView, len(rs.robots))
	for id, r := range rs.robots {
		robots[id] = r
	}
	rs.mu.Unlock()

	for _, a := range computeBaselineAssignments(pending, robots, blocked, m.cfg.BatteryThreshold) {
		m.emitAssignment(rs, a.JobID, a.RobotID, simTimeS, "baseline_edf_nearest")
	}
}

// triggerReplan enforces the single-flight guard and takes the replan
// snapshot synchronously, on the event-handler goroutine, so the cheap
// no-pending-work early exit cannot stall a later trigger's chance to run.
// Only the optimizer call itself — the potentially slow step — is pushed
// onto a background goroutine, matching the "call happens off the
// event-handler thread" concurrency note: incoming events keep updating the
// projection while it runs.
func (m *Manager) triggerReplan(rs *runState, simTimeS float64, reason string) {
	if !rs.tryBeginOptimize() {
		return
	}

	pending, robots := rs.snapshotForReplan(m.cfg.BatteryThreshold)
	if len(pending) == 0 || len(robots) == 0 {
		rs.finishOptimize()
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Errorf("dispatch: replan panic run_id=%s reason=%s err=%v", rs.runID, reason, r)
				rs.finishOptimize()
			}
		}()

		assignments, err := m.optimize(rs.seed, robots, pending, simTimeS)
		if err != nil {
			m.log.Errorf("dispatch: ga replan failed run_id=%s reason=%s err=%v", rs.runID, reason, err)
			rs.finishOptimize()
			return
		}

		rs.applyPlan(assignments, robots)
		rs.setLastReplanSimTimeS(simTimeS)
		m.log.Infof("dispatch: ga replan run_id=%s reason=%s sim_time_s=%.0f pending=%d", rs.runID, reason, simTimeS, len(pending))
		rs.finishOptimize()
		m.emitPlannedForIdleRobots(rs, simTimeS)
	}()
}

// emitPlannedForIdleRobots drains the head of every robot's planned queue
// that is currently idle and eligible, in ascending robot id order.
func (m *Manager) emitPlannedForIdleRobots(rs *runState, simTimeS float64) {
	for _, robotID := range rs.robotIDs() {
		m.emitPlannedForIdleRobot(rs, robotID, simTimeS)
	}
}

// emitPlannedForIdleRobot assigns the next still-pending job from a
// specific robot's planned queue, skipping over queued jobs that were
// consumed elsewhere in the meantime.
func (m *Manager) emitPlannedForIdleRobot(rs *runState, robotID int, simTimeS float64) {
	for {
		rs.mu.Lock()
		robot, ok := rs.robots[robotID]
		if !ok || robot.State != model.RobotIdle || robot.Battery < m.cfg.BatteryThreshold {
			rs.mu.Unlock()
			return
		}
		queue := rs.plannedQueue[robotID]
		if len(queue) == 0 {
			rs.mu.Unlock()
			return
		}
		jobID := queue[0]
		rs.plannedQueue[robotID] = queue[1:]
		job, exists := rs.jobs[jobID]
		_, alreadyAssigned := rs.assignedJobs[jobID]
		rs.mu.Unlock()

		if !exists || alreadyAssigned || job.State != model.JobPending {
			continue
		}
		m.emitAssignment(rs, jobID, robotID, simTimeS, "ga_planned")
		return
	}
}

// emitAssignment publishes a job.assigned command with idempotency
// safeguards: a job already assigned, or no longer pending, is silently
// ignored.
func (m *Manager) emitAssignment(rs *runState, jobID string, robotID int, simTimeS float64, reason string) {
	rs.mu.Lock()
	if _, already := rs.assignedJobs[jobID]; already {
		rs.mu.Unlock()
		return
	}
	job, ok := rs.jobs[jobID]
	if !ok || job.State != model.JobPending {
		rs.mu.Unlock()
		return
	}
	rs.assignedJobs[jobID] = struct{}{}
	job.State = model.JobAssigned
	rs.jobs[jobID] = job
	if robot, ok := rs.robots[robotID]; ok {
		robot.State = model.RobotMovingToPickup
		robot.CurrentJobID = jobID
		rs.robots[robotID] = robot
	}
	rs.pendingAssignments[robotID] = jobID
	rs.mu.Unlock()

	idempotencyKey := rs.runID + ":" + jobID
	if m.status != nil {
		m.status.MarkAssignmentInFlight(robotID, jobID)
	}
	if m.store != nil {
		if err := m.store.Append(context.Background(), logging.LogRecord{
			Timestamp: time.Now(),
			RunID:     rs.runID,
			JobID:     jobID,
			RobotID:   robotID,
			Reason:    reason,
			SimTimeS:  simTimeS,
		}); err != nil {
			m.log.Warnf("dispatch: log store append failed run_id=%s job_id=%s err=%v", rs.runID, jobID, err)
		}
	}

	m.bus.Publish(events.Envelope{
		RoutingKey: events.JobAssigned,
		RunID:      rs.runID,
		Payload: events.JobAssignedPayload{
			RunID:          rs.runID,
			JobID:          jobID,
			RobotID:        robotID,
			SimTimeS:       simTimeS,
			Reason:         reason,
			IdempotencyKey: idempotencyKey,
		},
	})
	m.log.Infof("dispatch: assignment emitted run_id=%s job_id=%s robot_id=%d reason=%s", rs.runID, jobID, robotID, reason)
}
