// Package scenario implements the deterministic scenario generator: given a
// seed and sizing, it draws robots and jobs from a single seeded source in a
// fixed order so that two runs with identical inputs produce byte-identical
// scenarios.
package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/kilianp07/amrfleet/core/model"
)

// Generate produces robots and jobs for cfg and returns the scenario along
// with its scenario_hash. Robots are drawn first in id order, then jobs in
// id order, each job's fields in the fixed order: pickup_x, pickup_y,
// dropoff_x, dropoff_y, priority, deadline slack.
func Generate(runID string, cfg Config) (model.Scenario, error) {
	if cfg.NRobots <= 0 {
		return model.Scenario{}, fmt.Errorf("scenario: n_robots must be > 0")
	}
	if cfg.NJobs <= 0 {
		return model.Scenario{}, fmt.Errorf("scenario: n_jobs must be > 0")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	robots := make([]model.Robot, 0, cfg.NRobots)
	for id := 1; id <= cfg.NRobots; id++ {
		robots = append(robots, model.Robot{
			ID:      id,
			X:       round3(rng.Float64() * cfg.WorldSize),
			Y:       round3(rng.Float64() * cfg.WorldSize),
			Speed:   round3(cfg.SpeedMin + rng.Float64()*(cfg.SpeedMax-cfg.SpeedMin)),
			Battery: 100,
			State:   model.RobotIdle,
		})
	}

	jobs := make([]model.Job, 0, cfg.NJobs)
	for n := 1; n <= cfg.NJobs; n++ {
		pickupX := round3(rng.Float64() * cfg.WorldSize)
		pickupY := round3(rng.Float64() * cfg.WorldSize)
		dropoffX := round3(rng.Float64() * cfg.WorldSize)
		dropoffY := round3(rng.Float64() * cfg.WorldSize)
		priority := 1 + rng.Intn(5)
		slack := cfg.SlackMin + rng.Float64()*(cfg.SlackMax-cfg.SlackMin)

		dist := model.Distance(pickupX, pickupY, dropoffX, dropoffY)
		deadline := math.Ceil(dist/cfg.SpeedMin) + cfg.ServiceTimeS + slack

		jobs = append(jobs, model.Job{
			ID:           fmt.Sprintf("job_%d", n),
			PickupX:      pickupX,
			PickupY:      pickupY,
			DropoffX:     dropoffX,
			DropoffY:     dropoffY,
			Priority:     priority,
			CreatedTS:    0,
			DeadlineTS:   deadline,
			ServiceTimeS: cfg.ServiceTimeS,
			State:        model.JobPending,
		})
	}

	hash, err := scenarioHash(cfg.Seed, cfg.NRobots, cfg.NJobs, cfg.WorldSize, cfg.SpeedMin, cfg.SpeedMax, robots, jobs)
	if err != nil {
		return model.Scenario{}, err
	}

	return model.Scenario{
		RunID:        runID,
		Seed:         cfg.Seed,
		Robots:       robots,
		Jobs:         jobs,
		ScenarioHash: hash,
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// scenarioHash is the SHA-256 hex digest of the ordered, sorted-key JSON
// encoding of the scenario payload. It depends only on seed, sizing, world
// size and speed range — never on wall-clock time.
func scenarioHash(seed int64, nRobots, nJobs int, worldSize, speedMin, speedMax float64, robots []model.Robot, jobs []model.Job) (string, error) {
	payload := map[string]any{
		"seed":       seed,
		"n_robots":   nRobots,
		"n_jobs":     nJobs,
		"world_size": worldSize,
		"speed_min":  speedMin,
		"speed_max":  speedMax,
		"robots":     robotPayload(robots),
		"jobs":       jobPayload(jobs),
	}
	// encoding/json sorts map[string]any keys alphabetically, matching
	// original_source's json.dumps(sort_keys=True) canonical encoding.
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("scenario: encode hash payload: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

func robotPayload(robots []model.Robot) []map[string]any {
	out := make([]map[string]any, 0, len(robots))
	for _, r := range robots {
		out = append(out, map[string]any{
			"id":      r.ID,
			"x":       r.X,
			"y":       r.Y,
			"speed":   r.Speed,
			"battery": r.Battery,
			"state":   r.State.String(),
		})
	}
	return out
}

func jobPayload(jobs []model.Job) []map[string]any {
	out := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, map[string]any{
			"id":          j.ID,
			"pickup_x":    j.PickupX,
			"pickup_y":    j.PickupY,
			"dropoff_x":   j.DropoffX,
			"dropoff_y":   j.DropoffY,
			"deadline_ts": j.DeadlineTS,
			"priority":    j.Priority,
		})
	}
	return out
}

