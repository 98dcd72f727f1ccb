// Package metrics defines the observability recorder contracts core
// components emit into, independent of any storage or exposition backend.
package metrics

import "time"

// AssignmentEvent records one job.assigned emission.
type AssignmentEvent struct {
	RunID   string
	JobID   string
	RobotID int
	Reason  string
	Time    time.Time
}

// MetricsSink is the minimum every sink must implement.
type MetricsSink interface {
	RecordAssignment(ev AssignmentEvent) error
}

// JobTerminalEvent records a job reaching completed or failed.
type JobTerminalEvent struct {
	RunID     string
	JobID     string
	State     string // "completed" or "failed"
	LatenessS float64
	Time      time.Time
}

// JobTerminalRecorder is implemented by sinks tracking job outcomes.
type JobTerminalRecorder interface {
	RecordJobTerminal(ev JobTerminalEvent) error
}

// RunMetrics mirrors events.RunCompletedMetrics for recording purposes.
type RunMetrics struct {
	OnTimeRate        float64
	TotalDistance     float64
	AvgCompletionTime float64
	MaxLateness       float64
	JobsCompleted     int
	JobsFailed        int
}

// RunCompletedEvent records a run's final metrics.
type RunCompletedEvent struct {
	RunID   string
	Failed  bool
	Metrics RunMetrics
	Time    time.Time
}

// RunCompletedRecorder is implemented by sinks tracking whole-run outcomes.
type RunCompletedRecorder interface {
	RecordRunCompleted(ev RunCompletedEvent) error
}

// RobotStateEvent records a robot.updated state transition.
type RobotStateEvent struct {
	RunID   string
	RobotID int
	State   string
	Battery float64
	Time    time.Time
}

// RobotStateRecorder is implemented by sinks tracking fleet state.
type RobotStateRecorder interface {
	RecordRobotState(ev RobotStateEvent) error
}

// NopSink implements every recorder interface with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentEvent) error     { return nil }
func (NopSink) RecordJobTerminal(JobTerminalEvent) error   { return nil }
func (NopSink) RecordRunCompleted(RunCompletedEvent) error { return nil }
func (NopSink) RecordRobotState(RobotStateEvent) error     { return nil }
