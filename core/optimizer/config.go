// Package optimizer implements the deterministic genetic-algorithm
// assignment optimizer: a pure function of (seed, robots, pending jobs,
// sim_time_s) to a list of job-to-robot assignments. It holds no state
// across calls.
package optimizer

// Config carries the enumerated GA knobs.
type Config struct {
	PopulationSize      int     `json:"population_size"`
	Generations         int     `json:"generations"`
	EliteSize           int     `json:"elite_size"`
	CrossoverRate       float64 `json:"crossover_rate"`
	MutationRate        float64 `json:"mutation_rate"`
	BatteryDrainPerUnit float64 `json:"battery_drain_per_unit"`
}

// DefaultConfig returns the enumerated defaults from the configuration table.
func DefaultConfig() Config {
	return Config{
		PopulationSize:      64,
		Generations:         80,
		EliteSize:           4,
		CrossoverRate:       0.90,
		MutationRate:        0.10,
		BatteryDrainPerUnit: 0.1,
	}
}
