package events

// RunStartedPayload boots a run for the simulator and dispatcher. Robots and
// Jobs are optional override lists carried on the wire; the simulator's
// runner does not read them and always generates the scenario from Seed and
// Scale.
type RunStartedPayload struct {
	RunID  string      `json:"run_id"`
	Mode   string      `json:"mode"`
	Seed   int64       `json:"seed"`
	Scale  string      `json:"scale"`
	Robots []RobotSpec `json:"robots,omitempty"`
	Jobs   []JobSpec   `json:"jobs,omitempty"`
}

// RobotSpec and JobSpec are the override shapes a run.started payload can
// carry; no component applies them to the generated scenario.
type RobotSpec struct {
	ID      int     `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Speed   float64 `json:"speed"`
	Battery float64 `json:"battery"`
}

type JobSpec struct {
	ID         string  `json:"id"`
	PickupX    float64 `json:"pickup_x"`
	PickupY    float64 `json:"pickup_y"`
	DropoffX   float64 `json:"dropoff_x"`
	DropoffY   float64 `json:"dropoff_y"`
	Priority   int     `json:"priority"`
	DeadlineTS float64 `json:"deadline_ts"`
}

// JobCreatedPayload announces a new job to the dispatcher.
type JobCreatedPayload struct {
	RunID      string  `json:"run_id"`
	JobID      string  `json:"job_id"`
	PickupX    float64 `json:"pickup_x"`
	PickupY    float64 `json:"pickup_y"`
	DropoffX   float64 `json:"dropoff_x"`
	DropoffY   float64 `json:"dropoff_y"`
	DeadlineTS float64 `json:"deadline_ts"`
	Priority   int     `json:"priority"`
	SimTimeS   float64 `json:"sim_time_s"`
}

// RobotUpdatedPayload reports a robot state transition or throttled position
// update. Required keys are RunID, RobotID, State, SimTimeS; the rest are
// optional and only set when they changed.
type RobotUpdatedPayload struct {
	RunID        string   `json:"run_id"`
	RobotID      int      `json:"robot_id"`
	State        string   `json:"state"`
	SimTimeS     float64  `json:"sim_time_s"`
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Battery      *float64 `json:"battery,omitempty"`
	CurrentJobID *string  `json:"current_job_id,omitempty"`
}

// JobAssignedPayload is the dispatcher's command to the simulator.
type JobAssignedPayload struct {
	RunID          string  `json:"run_id"`
	JobID          string  `json:"job_id"`
	RobotID        int     `json:"robot_id"`
	SimTimeS       float64 `json:"sim_time_s"`
	Reason         string  `json:"reason"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// JobTerminalPayload covers both job.completed and job.failed.
type JobTerminalPayload struct {
	RunID     string  `json:"run_id"`
	JobID     string  `json:"job_id"`
	SimTimeS  float64 `json:"sim_time_s"`
	LatenessS float64 `json:"lateness_s"`
}

// RobotSnapshot and JobSnapshot are the compact per-entity shapes embedded
// in a snapshot.tick payload.
type RobotSnapshot struct {
	ID           int     `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	State        string  `json:"state"`
	Battery      float64 `json:"battery"`
	CurrentJobID string  `json:"current_job_id,omitempty"`
}

type JobSnapshot struct {
	ID       string  `json:"id"`
	State    string  `json:"state"`
	Priority int     `json:"priority"`
	Deadline float64 `json:"deadline_ts"`
}

// SnapshotTickPayload is the once-per-tick full world dump.
type SnapshotTickPayload struct {
	RunID    string  `json:"run_id"`
	SimTimeS float64 `json:"sim_time_s"`
	Snapshot struct {
		Robots []RobotSnapshot `json:"robots"`
		Jobs   []JobSnapshot   `json:"jobs"`
	} `json:"snapshot"`
}

// TelemetryReceivedPayload is emitted once per incremented sim-second per
// robot, and is what the MQTT bridge republishes verbatim.
type TelemetryReceivedPayload struct {
	RunID    string  `json:"run_id"`
	SimTimeS float64 `json:"sim_time_s"`
	RobotID  int     `json:"robot_id"`
	State    string  `json:"state"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Battery  float64 `json:"battery"`
}

// RunCompletedMetrics mirrors model.RunMetrics for wire purposes.
type RunCompletedMetrics struct {
	OnTimeRate        float64 `json:"on_time_rate"`
	TotalDistance     float64 `json:"total_distance"`
	AvgCompletionTime float64 `json:"avg_completion_time"`
	MaxLateness       float64 `json:"max_lateness"`
	JobsCompleted     int     `json:"jobs_completed"`
	JobsFailed        int     `json:"jobs_failed"`
}

// RunCompletedPayload closes out a run, successfully or with a failure marker.
type RunCompletedPayload struct {
	RunID    string              `json:"run_id"`
	SimTimeS float64             `json:"sim_time_s"`
	Failed   bool                `json:"failed,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	Metrics  RunCompletedMetrics `json:"metrics"`
}
