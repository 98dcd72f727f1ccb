package app

import (
	"context"
	"time"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/logger"
	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/core/scenario"
	"github.com/kilianp07/amrfleet/core/simulator"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Runner consumes run.started, drives one simulator.Engine per active run
// to completion, and applies job.assigned commands as they arrive from
// core/dispatch. It never blocks the bus: each run executes in its own
// goroutine so concurrent runs never delay each other.
type Runner struct {
	bus         *eventbus.Bus
	log         logger.Logger
	scenarioCfg scenario.Config
	simCfg      simulator.Config
}

// NewRunner builds a Runner. scenarioCfg and simCfg carry every knob not
// determined by the run.started payload itself (seed and scale, which
// override scenarioCfg.Seed/NRobots/NJobs per run).
func NewRunner(bus *eventbus.Bus, log logger.Logger, scenarioCfg scenario.Config, simCfg simulator.Config) *Runner {
	return &Runner{bus: bus, log: log, scenarioCfg: scenarioCfg, simCfg: simCfg}
}

// Run subscribes to run.started and spawns a simulation goroutine per run
// until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	sub := r.bus.Subscribe(events.RunStarted)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			p, ok := env.Payload.(events.RunStartedPayload)
			if !ok {
				r.log.Warnf("runner: dropping malformed run.started payload")
				continue
			}
			go r.simulateRun(ctx, p)
		}
	}
}

func (r *Runner) simulateRun(ctx context.Context, p events.RunStartedPayload) {
	nRobots, nJobs, err := model.Scale(p.Scale).Dims()
	if err != nil {
		r.log.Errorf("runner: run_id=%s bad scale=%q: %v", p.RunID, p.Scale, err)
		return
	}

	scenCfg := r.scenarioCfg
	scenCfg.Seed = p.Seed
	scenCfg.NRobots = nRobots
	scenCfg.NJobs = nJobs
	sc, err := scenario.Generate(p.RunID, scenCfg)
	if err != nil {
		r.log.Errorf("runner: run_id=%s scenario generation failed: %v", p.RunID, err)
		return
	}

	eng := simulator.New(p.RunID, sc, r.simCfg, r.bus, r.log)

	assignments := r.bus.Subscribe(events.JobAssigned)
	defer assignments.Close()

	eng.EmitInitial()

	period := time.Duration(float64(time.Second) / r.simCfg.SimTickHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for !eng.ShouldStop() {
		drainAssignments(eng, assignments, p.RunID)
		eng.Step()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	eng.Finalize()
	r.log.Infof("runner: run_id=%s finished at sim_time_s=%.0f", p.RunID, eng.SimTimeS())
}

// drainAssignments applies every job.assigned command already queued for
// runID without blocking, so a run only ever reacts to commands its own
// dispatcher issued for it.
func drainAssignments(eng *simulator.Engine, sub *eventbus.Subscription, runID string) {
	for {
		select {
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			p, ok := env.Payload.(events.JobAssignedPayload)
			if !ok || p.RunID != runID {
				continue
			}
			eng.QueueAssignment(p.JobID, p.RobotID, p.IdempotencyKey)
		default:
			return
		}
	}
}
