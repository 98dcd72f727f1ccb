package metrics

import coremetrics "github.com/kilianp07/amrfleet/core/metrics"

// MultiSink fans out to multiple sinks, calling a recorder interface on each
// sink that implements it.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink over sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordJobTerminal(ev coremetrics.JobTerminalEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.JobTerminalRecorder); ok {
			if err := r.RecordJobTerminal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordRunCompleted(ev coremetrics.RunCompletedEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.RunCompletedRecorder); ok {
			if err := r.RecordRunCompleted(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiSink) RecordRobotState(ev coremetrics.RobotStateEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(coremetrics.RobotStateRecorder); ok {
			if err := r.RecordRobotState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
