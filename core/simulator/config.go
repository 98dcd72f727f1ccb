// Package simulator drives discrete-time simulation of a fleet of robots
// against a generated scenario: kinematics, battery, job lifecycle and event
// emission are exactly this package's authority.
package simulator

// Config carries the enumerated per-tick physics knobs.
type Config struct {
	SimTickHz             float64 `json:"sim_tick_hz"`
	ServiceTimeS          float64 `json:"service_time_s"`
	MaxSimSeconds         float64 `json:"max_sim_seconds"`
	ChargeRate            float64 `json:"charge_rate"`
	ChargeResumeThreshold float64 `json:"charge_resume_threshold"`
	BatteryDrainPerUnit   float64 `json:"battery_drain_per_unit"` // battery percent lost per world unit traveled
}

// DefaultConfig returns the enumerated defaults from the configuration table.
func DefaultConfig() Config {
	return Config{
		SimTickHz:             5,
		ServiceTimeS:          5,
		MaxSimSeconds:         3600,
		ChargeRate:            5,
		ChargeResumeThreshold: 20,
		BatteryDrainPerUnit:   0.1,
	}
}

func (c Config) dt() float64 {
	return 1 / c.SimTickHz
}
