package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jumiascan/internal/models"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one submitted audit batch and its outcome tallies.
type Run struct {
	ID           string         `json:"id"`
	Status       RunStatus      `json:"status"`
	Region       string         `json:"region"`
	Inputs       []string       `json:"inputs"`
	Submitted    int            `json:"submitted"`
	Succeeded    int            `json:"succeeded"`
	Failed       int            `json:"failed"`
	Skipped      int            `json:"skipped"`
	ErrorMessage sql.NullString `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    sql.NullTime   `json:"-"`
	FinishedAt   sql.NullTime   `json:"-"`
}

const createRunSQL = `
	INSERT INTO audit_runs (id, status, region, inputs, submitted, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())`

func (db *DB) CreateRun(ctx context.Context, run *Run) error {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("failed to encode inputs: %w", err)
	}

	_, err = db.Exec(ctx, createRunSQL, run.ID, run.Status, run.Region, inputs, run.Submitted)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (db *DB) MarkRunStarted(ctx context.Context, id string) error {
	_, err := db.Exec(ctx,
		`UPDATE audit_runs SET status = $2, started_at = NOW() WHERE id = $1`,
		id, RunRunning)
	if err != nil {
		return fmt.Errorf("failed to mark run started: %w", err)
	}
	return nil
}

func (db *DB) MarkRunFailed(ctx context.Context, id, message string) error {
	_, err := db.Exec(ctx,
		`UPDATE audit_runs SET status = $2, error_message = $3, finished_at = NOW() WHERE id = $1`,
		id, RunFailed, message)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return nil
}

// FinishRun stores the report tallies and the per-product outcomes in one
// transaction so a half-written run can never be read back as completed.
func (db *DB) FinishRun(ctx context.Context, id string, report *models.Report) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`UPDATE audit_runs
			 SET status = $2, succeeded = $3, failed = $4, skipped = $5, finished_at = NOW()
			 WHERE id = $1`,
			id, RunCompleted, len(report.Results), len(report.Failures), report.Skipped)
		if err != nil {
			return fmt.Errorf("failed to finalize run: %w", err)
		}

		for _, rec := range report.Results {
			payload, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO run_products (run_id, sku, product_name, is_refurbished, record, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())`,
				id, rec.SKU, rec.Name, rec.IsRefurbished, payload)
			if err != nil {
				return fmt.Errorf("failed to insert run product: %w", err)
			}
		}

		for _, fail := range report.Failures {
			_, err = tx.Exec(ctx,
				`INSERT INTO run_failures (run_id, input, kind, created_at)
				 VALUES ($1, $2, $3, NOW())`,
				id, fail.Input, string(fail.Kind))
			if err != nil {
				return fmt.Errorf("failed to insert run failure: %w", err)
			}
		}

		return nil
	})
}

const getRunSQL = `
	SELECT id, status, region, inputs, submitted, succeeded, failed, skipped,
	       error_message, created_at, started_at, finished_at
	FROM audit_runs WHERE id = $1`

func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	var inputs []byte

	err := db.QueryRow(ctx, getRunSQL, id).Scan(
		&run.ID, &run.Status, &run.Region, &inputs, &run.Submitted,
		&run.Succeeded, &run.Failed, &run.Skipped,
		&run.ErrorMessage, &run.CreatedAt, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(inputs, &run.Inputs); err != nil {
		return nil, fmt.Errorf("failed to decode inputs: %w", err)
	}
	return &run, nil
}

func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(ctx,
		`SELECT id, status, region, inputs, submitted, succeeded, failed, skipped,
		        error_message, created_at, started_at, finished_at
		 FROM audit_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var inputs []byte
		err := rows.Scan(
			&run.ID, &run.Status, &run.Region, &inputs, &run.Submitted,
			&run.Succeeded, &run.Failed, &run.Skipped,
			&run.ErrorMessage, &run.CreatedAt, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal(inputs, &run.Inputs); err != nil {
			return nil, fmt.Errorf("failed to decode inputs: %w", err)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// RunProducts returns the stored ProductRecords of a completed run.
func (db *DB) RunProducts(ctx context.Context, runID string) ([]*models.ProductRecord, error) {
	rows, err := db.Query(ctx,
		`SELECT record FROM run_products WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run products: %w", err)
	}
	defer rows.Close()

	var records []*models.ProductRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan run product: %w", err)
		}
		var rec models.ProductRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RunFailures returns the failure partition of a completed run.
func (db *DB) RunFailures(ctx context.Context, runID string) ([]models.FailureRecord, error) {
	rows, err := db.Query(ctx,
		`SELECT input, kind FROM run_failures WHERE run_id = $1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run failures: %w", err)
	}
	defer rows.Close()

	var failures []models.FailureRecord
	for rows.Next() {
		var fail models.FailureRecord
		var kind string
		if err := rows.Scan(&fail.Input, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan run failure: %w", err)
		}
		fail.Kind = models.FailureKind(kind)
		failures = append(failures, fail)
	}
	return failures, rows.Err()
}
