package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// StartCollector subscribes to the event bus and forwards each event to
// sink's applicable recorder interfaces. It stops when ctx is canceled.
func StartCollector(ctx context.Context, bus *eventbus.Bus, sink MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe(events.JobAssigned, events.JobCompleted, events.JobFailed, events.RunCompleted, events.RobotUpdated)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-sub.C:
				if !ok {
					return
				}
				handle(sink, env)
			}
		}
	}()
}

func handle(sink MetricsSink, env events.Envelope) {
	switch env.RoutingKey {
	case events.JobAssigned:
		p, ok := env.Payload.(events.JobAssignedPayload)
		if !ok {
			return
		}
		_ = sink.RecordAssignment(AssignmentEvent{RunID: p.RunID, JobID: p.JobID, RobotID: p.RobotID, Reason: p.Reason, Time: time.Now()})
	case events.JobCompleted, events.JobFailed:
		p, ok := env.Payload.(events.JobTerminalPayload)
		if !ok {
			return
		}
		if r, ok := sink.(JobTerminalRecorder); ok {
			state := "completed"
			if env.RoutingKey == events.JobFailed {
				state = "failed"
			}
			_ = r.RecordJobTerminal(JobTerminalEvent{RunID: p.RunID, JobID: p.JobID, State: state, LatenessS: p.LatenessS, Time: time.Now()})
		}
	case events.RunCompleted:
		p, ok := env.Payload.(events.RunCompletedPayload)
		if !ok {
			return
		}
		if r, ok := sink.(RunCompletedRecorder); ok {
			_ = r.RecordRunCompleted(RunCompletedEvent{
				RunID:  p.RunID,
				Failed: p.Failed,
				Metrics: RunMetrics{
					OnTimeRate:        p.Metrics.OnTimeRate,
					TotalDistance:     p.Metrics.TotalDistance,
					AvgCompletionTime: p.Metrics.AvgCompletionTime,
					MaxLateness:       p.Metrics.MaxLateness,
					JobsCompleted:     p.Metrics.JobsCompleted,
					JobsFailed:        p.Metrics.JobsFailed,
				},
				Time: time.Now(),
			})
		}
	case events.RobotUpdated:
		p, ok := env.Payload.(events.RobotUpdatedPayload)
		if !ok {
			return
		}
		if r, ok := sink.(RobotStateRecorder); ok {
			battery := 0.0
			if p.Battery != nil {
				battery = *p.Battery
			}
			_ = r.RecordRobotState(RobotStateEvent{RunID: p.RunID, RobotID: p.RobotID, State: p.State, Battery: battery, Time: time.Now()})
		}
	}
}
