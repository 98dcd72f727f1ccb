package dispatch

import (
	"math"
	"sort"

	"github.com/kilianp07/amrfleet/core/model"
)

// computeBaselineAssignments implements the EDF + nearest-idle-robot
// heuristic: while pending jobs and idle eligible robots remain, pop the
// top pending job by canonical order and hand it to the nearest idle
// eligible robot (ties broken by ascending robot id). blocked names robots
// with an assignment already awaiting confirmation, which must not receive
// a second one.
func computeBaselineAssignments(pending []model.Job, robots map[int]robotView, blocked map[int]struct{}, batteryThreshold float64) []model.Assignment {
	idle := make([]robotView, 0, len(robots))
	for _, r := range robots {
		if _, isBlocked := blocked[r.ID]; isBlocked {
			continue
		}
		if r.State != model.RobotIdle {
			continue
		}
		if !r.eligible(batteryThreshold) {
			continue
		}
		idle = append(idle, r)
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].ID < idle[j].ID })

	used := make(map[int]struct{}, len(idle))
	assignments := make([]model.Assignment, 0)

	for _, job := range pending {
		bestIdx := -1
		bestDist := math.Inf(1)
		for i, r := range idle {
			if _, taken := used[r.ID]; taken {
				continue
			}
			d := model.Distance(r.X, r.Y, job.PickupX, job.PickupY)
			if bestIdx == -1 || d < bestDist || (d == bestDist && r.ID < idle[bestIdx].ID) {
				bestDist = d
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			continue
		}
		chosen := idle[bestIdx]
		used[chosen.ID] = struct{}{}
		assignments = append(assignments, model.Assignment{JobID: job.ID, RobotID: chosen.ID})
	}
	return assignments
}
