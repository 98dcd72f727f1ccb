package runs

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/amrfleet/pkg/export"
)

// Handler wires HTTP routes to a Service.
type Handler struct {
	svc *Service
}

// NewHandler returns a Handler wired to svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches every route this package serves to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /runs", h.createRun)
	mux.HandleFunc("GET /runs/{id}", h.getRun)
	mux.HandleFunc("GET /runs/{id}/metrics", h.getMetrics)
	mux.HandleFunc("GET /runs/{id}/export.csv", h.exportCSV)
	mux.HandleFunc("GET /compare", h.compare)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) createRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	resp, err := h.svc.CreateRun(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) getMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.svc.GetMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	if metrics == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "metrics not found"})
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ExportJobs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := export.WriteCSV(w, rows); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (h *Handler) compare(w http.ResponseWriter, r *http.Request) {
	seedRaw := r.URL.Query().Get("seed")
	scale := r.URL.Query().Get("scale")
	if seedRaw == "" || scale == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "seed and scale query params are required"})
		return
	}
	seed, err := strconv.ParseInt(seedRaw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid seed"})
		return
	}
	resp, err := h.svc.Compare(r.Context(), seed, scale)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
