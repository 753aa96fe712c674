// Package runs coordinates server-side audit runs: a submitted batch is
// persisted, executed asynchronously, and its outcome written back with
// lifecycle events along the way.
package runs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jumiascan/internal/database"
	"jumiascan/internal/events"
	"jumiascan/internal/input"
	"jumiascan/internal/models"
	"jumiascan/internal/scrape"
)

// Runner executes a normalized batch; satisfied by scrape.Orchestrator.
type Runner interface {
	Run(ctx context.Context, targets []models.Target) *models.Report
}

type Manager struct {
	db         *database.DB
	runner     Runner
	normalizer *input.Normalizer
	publisher  *events.Publisher
	region     string
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewManager(db *database.DB, runner Runner, normalizer *input.Normalizer, publisher *events.Publisher, region string, logger *slog.Logger) *Manager {
	return &Manager{
		db:         db,
		runner:     runner,
		normalizer: normalizer,
		publisher:  publisher,
		region:     region,
		runTimeout: time.Hour,
		logger:     logger.With("component", "run_manager"),
	}
}

// Submit persists a pending run and starts it in the background. The
// returned Run reflects the pending state; poll GetRun for progress.
func (m *Manager) Submit(ctx context.Context, inputs []string) (*database.Run, error) {
	targets := m.normalizer.Normalize(inputs)

	run := &database.Run{
		ID:        uuid.New().String(),
		Status:    database.RunPending,
		Region:    m.region,
		Inputs:    inputs,
		Submitted: len(targets),
	}
	if err := m.db.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	m.logger.Info("run submitted", "id", run.ID, "targets", len(targets))

	// The run outlives the submitting request.
	go m.execute(run.ID, targets)

	return run, nil
}

func (m *Manager) execute(runID string, targets []models.Target) {
	ctx, cancel := context.WithTimeout(context.Background(), m.runTimeout)
	defer cancel()

	if err := m.db.MarkRunStarted(ctx, runID); err != nil {
		m.logger.Error("failed to mark run started", "id", runID, "error", err)
		return
	}
	if err := m.publisher.RunStarted(ctx, runID, m.region, len(targets)); err != nil {
		m.logger.Warn("failed to publish run started", "id", runID, "error", err)
	}

	report := m.runner.Run(ctx, targets)

	for _, rec := range report.Results {
		if err := m.publisher.ProductAudited(ctx, runID, rec); err != nil {
			m.logger.Warn("failed to publish product audited", "id", runID, "error", err)
		}
	}

	if err := m.db.FinishRun(ctx, runID, report); err != nil {
		m.logger.Error("failed to persist run outcome", "id", runID, "error", err)
		if markErr := m.db.MarkRunFailed(ctx, runID, err.Error()); markErr != nil {
			m.logger.Error("failed to mark run failed", "id", runID, "error", markErr)
		}
		return
	}

	if err := m.publisher.RunCompleted(ctx, runID, report); err != nil {
		m.logger.Warn("failed to publish run completed", "id", runID, "error", err)
	}

	m.logger.Info("run completed",
		"id", runID,
		"succeeded", len(report.Results),
		"failed", len(report.Failures),
		"skipped", report.Skipped,
	)
}

func (m *Manager) GetRun(ctx context.Context, id string) (*database.Run, error) {
	return m.db.GetRun(ctx, id)
}

func (m *Manager) ListRuns(ctx context.Context, limit int) ([]*database.Run, error) {
	return m.db.ListRuns(ctx, limit)
}

// RunResults returns the success and failure partitions of a run.
func (m *Manager) RunResults(ctx context.Context, id string) ([]*models.ProductRecord, []models.FailureRecord, error) {
	if _, err := m.db.GetRun(ctx, id); err != nil {
		return nil, nil, err
	}

	records, err := m.db.RunProducts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	failures, err := m.db.RunFailures(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return records, failures, nil
}

var _ Runner = (*scrape.Orchestrator)(nil)
