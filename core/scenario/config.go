package scenario

// Config carries every knob the generator needs, all defaultable per the
// enumerated configuration.
type Config struct {
	Seed          int64
	NRobots       int
	NJobs         int
	WorldSize     float64
	SpeedMin      float64
	SpeedMax      float64
	MaxSimSeconds float64
	ServiceTimeS  float64
	SlackMin      float64
	SlackMax      float64
}

// DefaultConfig returns the enumerated defaults from the configuration table.
func DefaultConfig() Config {
	return Config{
		WorldSize:     100,
		SpeedMin:      1.0,
		SpeedMax:      2.0,
		MaxSimSeconds: 3600,
		ServiceTimeS:  5,
		SlackMin:      0,
		SlackMax:      20,
	}
}
