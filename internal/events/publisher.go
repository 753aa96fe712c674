// Package events publishes run lifecycle events to a Redis stream so
// downstream consumers (dashboards, alerting) can follow audit progress
// without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jumiascan/internal/models"
)

type EventType string

const (
	EventRunStarted     EventType = "RUN_STARTED"
	EventProductAudited EventType = "PRODUCT_AUDITED"
	EventRunCompleted   EventType = "RUN_COMPLETED"
)

// RedisClient is the slice of go-redis the publisher needs. Tests supply
// a recording stub.
type RedisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type Envelope struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
}

type RunStartedPayload struct {
	Envelope
	Region    string `json:"region"`
	Submitted int    `json:"submitted"`
}

type ProductAuditedPayload struct {
	Envelope
	SKU           string `json:"sku"`
	ProductName   string `json:"product_name"`
	IsRefurbished string `json:"is_refurbished"`
	HasWarranty   string `json:"has_warranty"`
}

type RunCompletedPayload struct {
	Envelope
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Duration  string `json:"duration"`
}

// Publisher writes events to one stream. Publish failures are logged and
// swallowed by callers; events are advisory, never part of run correctness.
type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

func (p *Publisher) RunStarted(ctx context.Context, runID, region string, submitted int) error {
	return p.publish(ctx, RunStartedPayload{
		Envelope:  newEnvelope(EventRunStarted, runID),
		Region:    region,
		Submitted: submitted,
	})
}

func (p *Publisher) ProductAudited(ctx context.Context, runID string, rec *models.ProductRecord) error {
	return p.publish(ctx, ProductAuditedPayload{
		Envelope:      newEnvelope(EventProductAudited, runID),
		SKU:           rec.SKU,
		ProductName:   rec.Name,
		IsRefurbished: rec.IsRefurbished,
		HasWarranty:   rec.HasWarranty,
	})
}

func (p *Publisher) RunCompleted(ctx context.Context, runID string, report *models.Report) error {
	return p.publish(ctx, RunCompletedPayload{
		Envelope:  newEnvelope(EventRunCompleted, runID),
		Succeeded: len(report.Results),
		Failed:    len(report.Failures),
		Skipped:   report.Skipped,
		Duration:  report.Duration().String(),
	})
}

func (p *Publisher) publish(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{"payload": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published", "stream", p.stream)
	return nil
}

func newEnvelope(t EventType, runID string) Envelope {
	return Envelope{
		EventID:   uuid.New().String(),
		EventType: t,
		Timestamp: time.Now(),
		RunID:     runID,
	}
}
