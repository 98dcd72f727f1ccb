package dispatch

// Config carries the dispatcher's enumerated knobs.
type Config struct {
	BatteryThreshold  float64 `json:"battery_threshold"`
	GAReplanIntervalS float64 `json:"ga_replan_interval_s"`
	OptimizerSeed     int64   `json:"optimizer_seed"`
}

// DefaultConfig returns the enumerated defaults from the configuration table.
func DefaultConfig() Config {
	return Config{
		BatteryThreshold:  20,
		GAReplanIntervalS: 0,
	}
}
