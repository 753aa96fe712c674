package scrape

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jumiascan/internal/models"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeNotFound = "not_found"
)

// Progress is a coarse per-batch completion snapshot.
type Progress struct {
	Completed int
	Total     int
	ETA       time.Duration
}

// Orchestrator fans targets out over a bounded worker pool and folds the
// outcomes back into a Report in submission order. There are no retries:
// a failed target is recorded and the run moves on.
type Orchestrator struct {
	proc    Processor
	workers int
	metrics *Metrics
	logger  *slog.Logger

	// OnProgress, when set, is called after each batch completes.
	OnProgress func(Progress)
}

func NewOrchestrator(proc Processor, workers int, metrics *Metrics, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Orchestrator{
		proc:    proc,
		workers: workers,
		metrics: metrics,
		logger:  logger.With("component", "orchestrator"),
	}
}

type outcome struct {
	rec *models.ProductRecord
	err error
}

// Run processes all targets and returns the partitioned report. Each
// worker owns its target end-to-end; outcomes land in an indexed slice so
// aggregation preserves submission order no matter how batches interleave.
func (o *Orchestrator) Run(ctx context.Context, targets []models.Target) *models.Report {
	report := &models.Report{Started: time.Now()}
	if len(targets) == 0 {
		report.Finished = time.Now()
		return report
	}

	o.logger.Info("run started", "targets", len(targets), "workers", o.workers)

	outcomes := make([]outcome, len(targets))
	batchSize := o.workers * 2
	completed := 0

	for start := 0; start < len(targets); start += batchSize {
		end := start + batchSize
		if end > len(targets) {
			end = len(targets)
		}

		o.runBatch(ctx, targets, outcomes, start, end)
		completed = end

		if o.OnProgress != nil {
			o.OnProgress(Progress{
				Completed: completed,
				Total:     len(targets),
				ETA:       estimateRemaining(report.Started, completed, len(targets)),
			})
		}
	}

	for i, out := range outcomes {
		switch {
		case out.err == nil:
			report.Results = append(report.Results, out.rec)
			o.metrics.addImages(out.rec.TotalImages)
		case errors.Is(out.err, ErrNotFound):
			// An absent SKU is an expected terminal state. It is counted
			// but appears in neither the results nor the failures.
			report.Skipped++
		default:
			report.Failures = append(report.Failures, models.FailureRecord{
				Input: targets[i].Source,
				Kind:  FailureKindOf(out.err),
			})
		}
	}

	report.Finished = time.Now()
	o.logger.Info("run finished",
		"succeeded", len(report.Results),
		"failed", len(report.Failures),
		"skipped", report.Skipped,
		"duration", report.Duration().String(),
	)
	return report
}

func (o *Orchestrator) runBatch(ctx context.Context, targets []models.Target, outcomes []outcome, start, end int) {
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for i := start; i < end; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			o.metrics.workerStarted()
			defer o.metrics.workerFinished()

			began := time.Now()
			rec, err := o.proc.Process(ctx, targets[idx])
			outcomes[idx] = outcome{rec: rec, err: err}

			switch {
			case err == nil:
				o.metrics.observeOutcome(outcomeSuccess, time.Since(began))
			case errors.Is(err, ErrNotFound):
				o.metrics.observeOutcome(outcomeNotFound, time.Since(began))
				o.logger.Info("target skipped, no results", "input", targets[idx].Source)
			default:
				o.metrics.observeOutcome(outcomeFailure, time.Since(began))
				o.logger.Warn("target failed",
					"input", targets[idx].Source,
					"kind", string(FailureKindOf(err)),
					"error", err,
				)
			}
		}(i)
	}

	wg.Wait()
}

func estimateRemaining(started time.Time, completed, total int) time.Duration {
	if completed == 0 || completed >= total {
		return 0
	}
	perTarget := time.Since(started) / time.Duration(completed)
	return perTarget * time.Duration(total-completed)
}
