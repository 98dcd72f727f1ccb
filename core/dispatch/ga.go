package dispatch

import (
	"fmt"

	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/core/optimizer"
)

// OptimizeFunc computes a whole-fleet assignment plan for a replan trigger.
// The default implementation wraps core/optimizer.Optimize; tests substitute
// a fake to exercise the failure path without running a full GA.
type OptimizeFunc func(seed int64, robots []model.Robot, pendingJobs []model.Job, simTimeS float64) ([]model.Assignment, error)

// NewGAOptimizeFunc adapts the pure GA optimizer to OptimizeFunc, recovering
// from a panic inside Optimize so a malformed snapshot cannot take down the
// replan goroutine.
func NewGAOptimizeFunc(cfg optimizer.Config) OptimizeFunc {
	return func(seed int64, robots []model.Robot, pendingJobs []model.Job, simTimeS float64) (assignments []model.Assignment, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("optimizer panic: %v", r)
			}
		}()
		assignments, _ = optimizer.Optimize(cfg, seed, robots, pendingJobs, simTimeS)
		return assignments, nil
	}
}
