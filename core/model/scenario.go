package model

import "fmt"

// Mode selects which dispatch strategy drives assignment decisions.
type Mode string

const (
	ModeBaseline Mode = "baseline"
	ModeGA       Mode = "ga"
)

// Scale names a canned (n_robots, n_jobs) sizing.
type Scale string

const (
	ScaleMini  Scale = "mini"
	ScaleSmall Scale = "small"
	ScaleDemo  Scale = "demo"
	ScaleLarge Scale = "large"
)

// Dims returns the default robot/job counts for a scale name.
func (s Scale) Dims() (nRobots, nJobs int, err error) {
	switch s {
	case ScaleMini:
		return 5, 5, nil
	case ScaleSmall:
		return 5, 25, nil
	case ScaleDemo:
		return 10, 50, nil
	case ScaleLarge:
		return 20, 100, nil
	default:
		return 0, 0, fmt.Errorf("unknown scale %q", s)
	}
}

// RunContext is the immutable configuration a run was launched with.
type RunContext struct {
	RunID          string
	Mode           Mode
	Seed           int64
	Scale          Scale
	NRobots        int
	NJobs          int
	WorldWidth     float64
	WorldHeight    float64
	SpeedMin       float64
	SpeedMax       float64
	MaxSimSeconds  float64
	SimTickHz      float64
	BatteryGate    float64
	ReplanPeriodS  float64
	IdleGapSeconds float64
}

// Scenario is the fully materialized (deterministic) world for a run.
type Scenario struct {
	RunID        string
	Seed         int64
	Robots       []Robot
	Jobs         []Job
	ScenarioHash string
}

// Validate checks structural invariants of a generated scenario.
func (sc Scenario) Validate() error {
	if len(sc.Robots) == 0 {
		return fmt.Errorf("scenario %s: no robots", sc.RunID)
	}
	for _, r := range sc.Robots {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.RunID, err)
		}
	}
	for _, j := range sc.Jobs {
		if err := j.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.RunID, err)
		}
	}
	return nil
}
