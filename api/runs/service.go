package runs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kilianp07/amrfleet/core/events"
	"github.com/kilianp07/amrfleet/core/model"
	"github.com/kilianp07/amrfleet/infra/db"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Defaults carries the fallback mode/scale/seed applied when a create-run
// request omits them.
type Defaults struct {
	Mode  string
	Scale string
	Seed  int64
}

// Service coordinates run creation and retrieval: it validates a request,
// injects run.started onto the bus, and answers queries from the
// materialized db.Store.
type Service struct {
	bus      *eventbus.Bus
	store    *db.Store
	defaults Defaults
}

// NewService builds a Service.
func NewService(bus *eventbus.Bus, store *db.Store, defaults Defaults) *Service {
	return &Service{bus: bus, store: store, defaults: defaults}
}

// CreateRun validates req, assigns a run id, and publishes run.started.
func (s *Service) CreateRun(_ context.Context, req CreateRunRequest) (*CreateRunResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.defaults.Mode
	}
	if model.Mode(mode) != model.ModeBaseline && model.Mode(mode) != model.ModeGA {
		return nil, fmt.Errorf("mode must be baseline or ga")
	}

	scale := req.Scale
	if scale == "" {
		scale = s.defaults.Scale
	}
	if _, _, err := model.Scale(scale).Dims(); err != nil {
		return nil, err
	}

	seed := s.defaults.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}

	runID := uuid.NewString()
	s.bus.Publish(events.Envelope{
		RoutingKey: events.RunStarted,
		RunID:      runID,
		Payload:    events.RunStartedPayload{RunID: runID, Mode: mode, Seed: seed, Scale: scale},
	})

	return &CreateRunResponse{RunID: runID, Mode: mode, Scale: scale, Seed: seed, Status: "started"}, nil
}

// GetRun fetches run metadata and (if available) metrics by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (*RunResponse, error) {
	row, err := s.store.GetRun(ctx, runID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return toRunResponse(row), nil
}

// GetMetrics fetches only the metrics portion of a run, or nil if the run
// has not completed (or does not exist).
func (s *Service) GetMetrics(ctx context.Context, runID string) (*Metric, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil || run == nil {
		return nil, err
	}
	return run.Metrics, nil
}

// ExportJobs returns the per-job rows recorded for runID.
func (s *Service) ExportJobs(ctx context.Context, runID string) ([]db.JobRow, error) {
	return s.store.ListJobs(ctx, runID)
}

// Compare fetches the latest completed baseline and GA runs for seed/scale.
func (s *Service) Compare(ctx context.Context, seed int64, scale string) (*CompareResponse, error) {
	if _, _, err := model.Scale(scale).Dims(); err != nil {
		return nil, err
	}
	baseline, err := s.store.GetLatestRunMetricsByMode(ctx, seed, scale, string(model.ModeBaseline))
	if err != nil {
		return nil, err
	}
	ga, err := s.store.GetLatestRunMetricsByMode(ctx, seed, scale, string(model.ModeGA))
	if err != nil {
		return nil, err
	}
	return &CompareResponse{Seed: seed, Scale: scale, Baseline: toRunResponse(baseline), GA: toRunResponse(ga)}, nil
}

func toRunResponse(row *db.RunSummary) *RunResponse {
	if row == nil {
		return nil
	}
	out := &RunResponse{
		RunID:      row.RunID,
		Mode:       row.Mode,
		Scale:      row.Scale,
		Seed:       row.Seed,
		StartedAt:  row.StartedAt,
		Failed:     row.Failed,
		FailReason: row.FailReason,
	}
	if row.CompletedAt.Valid {
		v := row.CompletedAt.Int64
		out.CompletedAt = &v
	}
	if row.Metrics != nil {
		out.Metrics = &Metric{
			OnTimeRate:        row.Metrics.OnTimeRate,
			TotalDistance:     row.Metrics.TotalDistance,
			AvgCompletionTime: row.Metrics.AvgCompletionTime,
			MaxLateness:       row.Metrics.MaxLateness,
			JobsCompleted:     row.Metrics.JobsCompleted,
			JobsFailed:        row.Metrics.JobsFailed,
		}
	}
	return out
}
