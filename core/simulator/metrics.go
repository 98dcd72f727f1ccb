package simulator

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/amrfleet/core/model"
)

// ComputeMetrics aggregates run-level outcomes from final job states and the
// total distance traveled by the fleet.
//
// on_time_rate is reported as a fraction in [0,1], not a percentage.
func ComputeMetrics(jobs []model.Job, totalDistance float64) model.RunMetrics {
	var completed, failed, onTime int
	var completionTimes []float64
	var latenessValues []float64

	for _, j := range jobs {
		switch j.State {
		case model.JobCompleted:
			completed++
			completionTimes = append(completionTimes, j.CompletedTS)
			lateness := j.Lateness(j.CompletedTS)
			if lateness <= 0 {
				onTime++
			}
			latenessValues = append(latenessValues, lateness)
		case model.JobFailed:
			failed++
		}
	}

	total := len(jobs)
	var onTimeRate float64
	if total > 0 {
		onTimeRate = float64(onTime) / float64(total)
	}

	var avgCompletion float64
	if len(completionTimes) > 0 {
		avgCompletion = stat.Mean(completionTimes, nil)
	}

	var maxLateness float64
	if len(latenessValues) > 0 {
		maxLateness = floats.Max(latenessValues)
	}

	return model.RunMetrics{
		OnTimeRate:        onTimeRate,
		TotalDistance:     totalDistance,
		AvgCompletionTime: avgCompletion,
		MaxLateness:       maxLateness,
		JobsCompleted:     completed,
		JobsFailed:        failed,
	}
}
