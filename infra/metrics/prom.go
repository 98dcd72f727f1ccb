// Package metrics implements Prometheus-backed observability sinks for
// core/metrics.MetricsSink.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/amrfleet/core/metrics"
)

// PromSink records dispatch and run outcomes in Prometheus metrics.
type PromSink struct {
	assignments  *prometheus.CounterVec
	jobsTerminal *prometheus.CounterVec
	lateness     prometheus.Histogram
	onTimeRate   prometheus.Gauge
	robotBattery *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil reg defaults to
// the global registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amrfleet_assignments_total",
		Help: "Total number of job.assigned events, by reason.",
	}, []string{"reason"})
	jobsTerminal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "amrfleet_jobs_terminal_total",
		Help: "Total number of jobs reaching a terminal state, by state.",
	}, []string{"state"})
	lateness := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "amrfleet_job_lateness_seconds",
		Help:    "Lateness of completed/failed jobs relative to their deadline.",
		Buckets: prometheus.DefBuckets,
	})
	onTimeRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "amrfleet_run_on_time_rate",
		Help: "On-time completion rate of the most recently completed run.",
	})
	robotBattery := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "amrfleet_robot_battery_percent",
		Help: "Latest reported battery level per robot.",
	}, []string{"run_id", "robot_id"})

	for _, c := range []prometheus.Collector{assignments, jobsTerminal, lateness, onTimeRate, robotBattery} {
		if err := register(reg, c); err != nil {
			return nil, err
		}
	}

	return &PromSink{
		assignments:  assignments,
		jobsTerminal: jobsTerminal,
		lateness:     lateness,
		onTimeRate:   onTimeRate,
		robotBattery: robotBattery,
	}, nil
}

// register is idempotent: a metric already registered (e.g. by a prior
// PromSink in the same process, common in tests) is silently reused.
func register(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(ev.Reason).Inc()
	return nil
}

func (s *PromSink) RecordJobTerminal(ev coremetrics.JobTerminalEvent) error {
	s.jobsTerminal.WithLabelValues(ev.State).Inc()
	s.lateness.Observe(ev.LatenessS)
	return nil
}

func (s *PromSink) RecordRunCompleted(ev coremetrics.RunCompletedEvent) error {
	s.onTimeRate.Set(ev.Metrics.OnTimeRate)
	return nil
}

func (s *PromSink) RecordRobotState(ev coremetrics.RobotStateEvent) error {
	s.robotBattery.WithLabelValues(ev.RunID, strconv.Itoa(ev.RobotID)).Set(ev.Battery)
	return nil
}
