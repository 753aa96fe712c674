package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jumiascan/internal/database"
	"jumiascan/internal/models"
	"jumiascan/internal/runs"
)

type Handlers struct {
	runs   *runs.Manager
	logger *slog.Logger
}

func NewHandlers(runs *runs.Manager, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:   runs,
		logger: logger,
	}
}

// Routes mounts the run endpoints on a router.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/runs", h.CreateRun)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)
	r.Get("/runs/{runID}/results", h.GetRunResults)
}

// CreateRunRequest carries the raw input lines of a batch.
type CreateRunRequest struct {
	Inputs []string `json:"inputs"`
}

type RunResultsResponse struct {
	Results  []*models.ProductRecord `json:"results"`
	Failures []models.FailureRecord  `json:"failures"`
}

// CreateRun accepts a batch of SKUs and URLs and starts a run.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Inputs) == 0 {
		h.respondError(w, http.StatusBadRequest, "at least one input is required")
		return
	}

	run, err := h.runs.Submit(r.Context(), req.Inputs)
	if err != nil {
		h.logger.Error("failed to submit run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to submit run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, run)
}

// GetRun returns the status and tallies of one run.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if errors.Is(err, database.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "error", err, "id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// ListRuns returns recent runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

// GetRunResults returns the success and failure partitions of a run.
func (h *Handlers) GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	records, failures, err := h.runs.RunResults(r.Context(), runID)
	if errors.Is(err, database.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run results", "error", err, "id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to get results")
		return
	}

	if records == nil {
		records = []*models.ProductRecord{}
	}
	if failures == nil {
		failures = []models.FailureRecord{}
	}
	h.respondJSON(w, http.StatusOK, RunResultsResponse{Results: records, Failures: failures})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
