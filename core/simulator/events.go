package simulator

import (
	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/model"
)

func (e *Engine) publish(routingKey string, payload any) {
	e.bus.Publish(events.Envelope{RoutingKey: routingKey, RunID: e.runID, Payload: payload})
}

func (e *Engine) publishJobCreated(j model.Job, simTimeS float64) {
	e.publish(events.JobCreated, events.JobCreatedPayload{
		RunID:      e.runID,
		JobID:      j.ID,
		PickupX:    j.PickupX,
		PickupY:    j.PickupY,
		DropoffX:   j.DropoffX,
		DropoffY:   j.DropoffY,
		DeadlineTS: j.DeadlineTS,
		Priority:   j.Priority,
		SimTimeS:   simTimeS,
	})
}

func (e *Engine) publishJobTerminal(routingKey string, j model.Job, lateness float64) {
	e.publish(routingKey, events.JobTerminalPayload{
		RunID:     e.runID,
		JobID:     j.ID,
		SimTimeS:  e.SimTimeS(),
		LatenessS: lateness,
	})
}

func (e *Engine) emitRobotUpdated(r *model.Robot, force bool) {
	simTimeS := e.simTimeSInt()
	if !force {
		last, seen := e.lastPositionEmitSimS[r.ID]
		if seen && simTimeS <= last {
			return
		}
	}
	e.lastPositionEmitSimS[r.ID] = simTimeS

	x, y, speed, battery := r.X, r.Y, r.Speed, r.Battery
	var currentJobID *string
	if r.CurrentJobID != "" {
		id := r.CurrentJobID
		currentJobID = &id
	}
	e.publish(events.RobotUpdated, events.RobotUpdatedPayload{
		RunID:        e.runID,
		RobotID:      r.ID,
		State:        r.State.String(),
		SimTimeS:     float64(simTimeS),
		X:            &x,
		Y:            &y,
		Speed:        &speed,
		Battery:      &battery,
		CurrentJobID: currentJobID,
	})
}

func (e *Engine) emitTelemetryForAll(simTimeS float64) {
	for _, r := range e.robots {
		e.publish(events.TelemetryReceived, events.TelemetryReceivedPayload{
			RunID:    e.runID,
			SimTimeS: simTimeS,
			RobotID:  r.ID,
			State:    r.State.String(),
			X:        r.X,
			Y:        r.Y,
			Battery:  r.Battery,
		})
	}
}

func (e *Engine) emitSnapshot(simTimeS float64) {
	payload := events.SnapshotTickPayload{RunID: e.runID, SimTimeS: simTimeS}
	for _, r := range e.robots {
		payload.Snapshot.Robots = append(payload.Snapshot.Robots, events.RobotSnapshot{
			ID:           r.ID,
			X:            r.X,
			Y:            r.Y,
			State:        r.State.String(),
			Battery:      r.Battery,
			CurrentJobID: r.CurrentJobID,
		})
	}
	for _, j := range e.jobs {
		payload.Snapshot.Jobs = append(payload.Snapshot.Jobs, events.JobSnapshot{
			ID:       j.ID,
			State:    j.State.String(),
			Priority: j.Priority,
			Deadline: j.DeadlineTS,
		})
	}
	e.publish(events.SnapshotTick, payload)
}

func (e *Engine) publishRunCompleted(metrics model.RunMetrics, failed bool, reason string) {
	e.publish(events.RunCompleted, events.RunCompletedPayload{
		RunID:    e.runID,
		SimTimeS: e.SimTimeS(),
		Failed:   failed,
		Reason:   reason,
		Metrics: events.RunCompletedMetrics{
			OnTimeRate:        metrics.OnTimeRate,
			TotalDistance:     metrics.TotalDistance,
			AvgCompletionTime: metrics.AvgCompletionTime,
			MaxLateness:       metrics.MaxLateness,
			JobsCompleted:     metrics.JobsCompleted,
			JobsFailed:        metrics.JobsFailed,
		},
	})
}
