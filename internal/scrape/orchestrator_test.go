package scrape

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumiascan/internal/models"
)

// stubProcessor returns scripted outcomes keyed by target source.
type stubProcessor struct {
	mu   sync.Mutex
	errs map[string]error
	seen []string
}

func (s *stubProcessor) Process(_ context.Context, target models.Target) (*models.ProductRecord, error) {
	s.mu.Lock()
	s.seen = append(s.seen, target.Source)
	s.mu.Unlock()

	if err, ok := s.errs[target.Source]; ok {
		return nil, err
	}

	rec := models.NewProductRecord(target.Source)
	rec.Name = "Product " + target.Source
	return rec, nil
}

func urlTargets(sources ...string) []models.Target {
	targets := make([]models.Target, len(sources))
	for i, src := range sources {
		targets[i] = models.Target{
			Kind:   models.KindURL,
			Value:  "https://www.jumia.co.ke/" + src,
			Source: src,
		}
	}
	return targets
}

func newOrchestrator(proc Processor, workers int) *Orchestrator {
	return NewOrchestrator(proc, workers, NewMetrics(), slog.Default())
}

func TestRunAllSucceed(t *testing.T) {
	proc := &stubProcessor{}
	report := newOrchestrator(proc, 2).Run(context.Background(), urlTargets("a", "b", "c"))

	assert.Len(t, report.Results, 3)
	assert.Empty(t, report.Failures)
	assert.Zero(t, report.Skipped)
}

func TestRunIsolatesFailures(t *testing.T) {
	proc := &stubProcessor{errs: map[string]error{
		"c": ErrNavigationTimeout,
	}}

	report := newOrchestrator(proc, 2).Run(context.Background(), urlTargets("a", "b", "c", "d", "e"))

	assert.Len(t, report.Results, 4)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "c", report.Failures[0].Input)
	assert.Equal(t, models.FailNavigationTimeout, report.Failures[0].Kind)
}

func TestRunDropsNotFoundSilently(t *testing.T) {
	proc := &stubProcessor{errs: map[string]error{
		"missing": ErrNotFound,
	}}

	report := newOrchestrator(proc, 2).Run(context.Background(), urlTargets("a", "missing", "b"))

	assert.Len(t, report.Results, 2)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.Skipped)

	for _, rec := range report.Results {
		assert.NotEqual(t, "missing", rec.InputSource)
	}
}

func TestRunPreservesSubmissionOrder(t *testing.T) {
	proc := &stubProcessor{}
	sources := []string{"e", "d", "c", "b", "a"}

	report := newOrchestrator(proc, 3).Run(context.Background(), urlTargets(sources...))

	require.Len(t, report.Results, len(sources))
	for i, rec := range report.Results {
		assert.Equal(t, sources[i], rec.InputSource)
	}
}

func TestRunSessionFailureKind(t *testing.T) {
	proc := &stubProcessor{errs: map[string]error{
		"x": ErrSessionUnavailable,
	}}

	report := newOrchestrator(proc, 1).Run(context.Background(), urlTargets("x"))

	require.Len(t, report.Failures, 1)
	assert.Equal(t, models.FailSessionUnavailable, report.Failures[0].Kind)
}

func TestRunEmptyBatch(t *testing.T) {
	report := newOrchestrator(&stubProcessor{}, 2).Run(context.Background(), nil)

	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
	assert.False(t, report.Finished.IsZero())
}

func TestRunProgressCallback(t *testing.T) {
	proc := &stubProcessor{}
	orch := newOrchestrator(proc, 2)

	var snapshots []Progress
	orch.OnProgress = func(p Progress) { snapshots = append(snapshots, p) }

	orch.Run(context.Background(), urlTargets("a", "b", "c", "d", "e"))

	// Batches of workers*2: 4 then 1.
	require.Len(t, snapshots, 2)
	assert.Equal(t, 4, snapshots[0].Completed)
	assert.Equal(t, 5, snapshots[1].Completed)
	assert.Equal(t, 5, snapshots[1].Total)
}

func TestFailureKindOf(t *testing.T) {
	tests := []struct {
		err      error
		expected models.FailureKind
	}{
		{ErrSessionUnavailable, models.FailSessionUnavailable},
		{ErrNavigationTimeout, models.FailNavigationTimeout},
		{ErrNotFound, models.FailNotFound},
		{ErrConnection, models.FailConnection},
		{assert.AnError, models.FailConnection},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FailureKindOf(tt.err))
	}
}

func TestClassifyNavError(t *testing.T) {
	assert.NoError(t, classifyNavError(nil))

	err := classifyNavError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrNavigationTimeout)

	err = classifyNavError(assert.AnError)
	assert.ErrorIs(t, err, ErrConnection)
}
