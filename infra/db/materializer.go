package db

import (
	"context"
	"time"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/logger"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Materializer subscribes to the event bus and persists a queryable
// projection of every run into a Store. It never influences a run's
// behavior; it is a pure downstream consumer.
type Materializer struct {
	store *Store
	bus   *eventbus.Bus
	log   logger.Logger
}

// NewMaterializer builds a Materializer writing into store.
func NewMaterializer(store *Store, bus *eventbus.Bus, log logger.Logger) *Materializer {
	return &Materializer{store: store, bus: bus, log: log}
}

// Run subscribes to the full event stream and persists each event's
// contribution to the runs/run_metrics/jobs/telemetry tables until ctx is
// canceled.
func (m *Materializer) Run(ctx context.Context) {
	sub := m.bus.Subscribe(
		events.RunStarted, events.JobCreated, events.JobAssigned,
		events.JobCompleted, events.JobFailed, events.TelemetryReceived,
		events.RunCompleted,
	)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			m.handle(ctx, env)
		}
	}
}

func (m *Materializer) handle(ctx context.Context, env events.Envelope) {
	var err error
	switch env.RoutingKey {
	case events.RunStarted:
		p, ok := env.Payload.(events.RunStartedPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		err = m.store.insertRun(ctx, p.RunID, p.Mode, p.Seed, p.Scale, time.Now().Unix())
	case events.JobCreated:
		p, ok := env.Payload.(events.JobCreatedPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		err = m.store.insertJobCreated(ctx, p.RunID, p.JobID, p.PickupX, p.PickupY, p.DropoffX, p.DropoffY, p.Priority, p.DeadlineTS, p.SimTimeS)
	case events.JobAssigned:
		p, ok := env.Payload.(events.JobAssignedPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		err = m.store.markJobAssigned(ctx, p.RunID, p.JobID, p.RobotID, p.SimTimeS, p.Reason)
	case events.JobCompleted, events.JobFailed:
		p, ok := env.Payload.(events.JobTerminalPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		state := "completed"
		if env.RoutingKey == events.JobFailed {
			state = "failed"
		}
		err = m.store.markJobTerminal(ctx, p.RunID, p.JobID, state, p.SimTimeS, p.LatenessS)
	case events.TelemetryReceived:
		p, ok := env.Payload.(events.TelemetryReceivedPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		err = m.store.insertTelemetry(ctx, p.RunID, p.RobotID, p.SimTimeS, p.State, p.X, p.Y, p.Battery)
	case events.RunCompleted:
		p, ok := env.Payload.(events.RunCompletedPayload)
		if !ok {
			m.warn(env.RoutingKey)
			return
		}
		if err = m.store.completeRun(ctx, p.RunID, time.Now().Unix(), p.Failed, p.Reason); err != nil {
			break
		}
		err = m.store.upsertRunMetrics(ctx, p.RunID, RunMetrics{
			OnTimeRate:        p.Metrics.OnTimeRate,
			TotalDistance:     p.Metrics.TotalDistance,
			AvgCompletionTime: p.Metrics.AvgCompletionTime,
			MaxLateness:       p.Metrics.MaxLateness,
			JobsCompleted:     p.Metrics.JobsCompleted,
			JobsFailed:        p.Metrics.JobsFailed,
		})
	}
	if err != nil {
		m.log.Errorf("db materializer: persist failed routing_key=%s run_id=%s err=%v", env.RoutingKey, env.RunID, err)
	}
}

func (m *Materializer) warn(routingKey string) {
	m.log.Warnf("db materializer: dropping malformed %s payload", routingKey)
}
