package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jumiascan/internal/models"
)

var (
	// ErrSessionUnavailable means the browser driver could not be started
	// or installed. Fatal for the target, never for the run.
	ErrSessionUnavailable = errors.New("browser session unavailable")
	// ErrNavigationTimeout covers any timeout while navigating or waiting
	// for a readiness signal.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrConnection covers lower-level transport faults.
	ErrConnection = errors.New("connection error")
	// ErrNotFound means a SKU search produced no result cards. This is an
	// expected terminal state, not a processing error.
	ErrNotFound = errors.New("no results for search term")
)

// FailureKindOf maps a worker-boundary error onto the report taxonomy.
func FailureKindOf(err error) models.FailureKind {
	switch {
	case errors.Is(err, ErrSessionUnavailable):
		return models.FailSessionUnavailable
	case errors.Is(err, ErrNavigationTimeout):
		return models.FailNavigationTimeout
	case errors.Is(err, ErrNotFound):
		return models.FailNotFound
	default:
		return models.FailConnection
	}
}

// classifyNavError buckets a raw navigation fault. Playwright surfaces
// timeouts as TimeoutError strings; everything else is a transport fault.
func classifyNavError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return fmt.Errorf("%w: %v", ErrNavigationTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}
