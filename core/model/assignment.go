package model

// Assignment binds a job to a robot as decided by a dispatch policy or the
// GA optimizer. Score carries the GA's total_fitness for the batch the
// assignment was decoded from; it is zero for baseline assignments, which
// have no fitness function.
type Assignment struct {
	JobID          string
	RobotID        int
	IdempotencyKey string
	Score          float64
}

// RunMetrics is the set of aggregate outcomes computed at run completion.
type RunMetrics struct {
	RunID             string
	OnTimeRate        float64
	TotalDistance     float64
	AvgCompletionTime float64
	MaxLateness       float64
	JobsCompleted     int
	JobsFailed        int
}
