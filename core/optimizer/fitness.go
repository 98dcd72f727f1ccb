package optimizer

import (
	"math"

	"github.com/kilianp07/amrfleet/core/model"
)

// chromosome is a gene-per-job vector; chromosome[k] is a robot index into
// the canonical robot slice, taken modulo the robot count.
type chromosome []int

type robotCursor struct {
	x, y     float64
	battery  float64
	time     float64
	jobCount int
}

// evaluate scores a chromosome against the canonical robots and jobs,
// simulating each robot's sequential execution of its assigned jobs in
// canonical job order.
func evaluate(cfg Config, ch chromosome, robots []model.Robot, jobs []model.Job, simTimeS float64) float64 {
	if len(jobs) == 0 {
		return 0
	}
	if len(robots) == 0 {
		return 1e9 * float64(len(jobs))
	}

	cursors := make([]robotCursor, len(robots))
	for i, r := range robots {
		cursors[i] = robotCursor{x: r.X, y: r.Y, battery: r.Battery, time: simTimeS}
	}

	var total float64
	for k, job := range jobs {
		ri := ch[k] % len(robots)
		robot := robots[ri]
		cur := &cursors[ri]

		travelToPickup := model.Distance(cur.x, cur.y, job.PickupX, job.PickupY)
		travelPickupToDropoff := model.Distance(job.PickupX, job.PickupY, job.DropoffX, job.DropoffY)
		distance := travelToPickup + travelPickupToDropoff

		speed := math.Max(robot.Speed, 0.1)
		travelTime := distance / speed

		completion := cur.time + travelTime + 2*job.ServiceTimeS
		lateness := math.Max(0, completion-job.DeadlineTS)

		batteryAfter := cur.battery - distance*cfg.BatteryDrainPerUnit
		var batteryPenalty float64
		switch {
		case batteryAfter < 0:
			batteryPenalty = 500 + math.Abs(batteryAfter)*100
		case batteryAfter < 10:
			batteryPenalty = 200
		}

		loadPenalty := float64(cur.jobCount*cur.jobCount) * 30

		penalty := lateness*1000 + distance*2 + float64(6-job.Priority)*3 + batteryPenalty + loadPenalty
		total += penalty

		cur.time = completion
		cur.x, cur.y = job.DropoffX, job.DropoffY
		cur.battery = math.Max(0, batteryAfter)
		cur.jobCount++
	}

	return total
}
