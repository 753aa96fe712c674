package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumiascan/internal/models"
)

// recordingClient captures XAdd calls instead of talking to Redis.
type recordingClient struct {
	calls []*redis.XAddArgs
	err   error
}

func (c *recordingClient) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	c.calls = append(c.calls, a)
	if c.err != nil {
		return redis.NewStringResult("", c.err)
	}
	return redis.NewStringResult("1-1", nil)
}

func decodePayload(t *testing.T, args *redis.XAddArgs, into any) {
	t.Helper()

	values, ok := args.Values.(map[string]interface{})
	require.True(t, ok)
	payload, ok := values["payload"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(payload), into))
}

func TestRunStarted(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, "stream:audit_runs", slog.Default())

	require.NoError(t, p.RunStarted(context.Background(), "run-1", "ke", 5))
	require.Len(t, client.calls, 1)
	assert.Equal(t, "stream:audit_runs", client.calls[0].Stream)

	var payload RunStartedPayload
	decodePayload(t, client.calls[0], &payload)
	assert.Equal(t, EventRunStarted, payload.EventType)
	assert.Equal(t, "run-1", payload.RunID)
	assert.Equal(t, "ke", payload.Region)
	assert.Equal(t, 5, payload.Submitted)
	assert.NotEmpty(t, payload.EventID)
}

func TestProductAudited(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, "stream:audit_runs", slog.Default())

	rec := models.NewProductRecord("ABC123")
	rec.SKU = "SA948EA0Z4NAFAM"
	rec.Name = "Renewed Galaxy A10"
	rec.IsRefurbished = models.Yes

	require.NoError(t, p.ProductAudited(context.Background(), "run-1", rec))

	var payload ProductAuditedPayload
	decodePayload(t, client.calls[0], &payload)
	assert.Equal(t, EventProductAudited, payload.EventType)
	assert.Equal(t, "SA948EA0Z4NAFAM", payload.SKU)
	assert.Equal(t, models.Yes, payload.IsRefurbished)
}

func TestRunCompletedTallies(t *testing.T) {
	client := &recordingClient{}
	p := NewPublisher(client, "stream:audit_runs", slog.Default())

	report := &models.Report{
		Results:  []*models.ProductRecord{models.NewProductRecord("a")},
		Failures: []models.FailureRecord{{Input: "b", Kind: models.FailConnection}},
		Skipped:  2,
	}

	require.NoError(t, p.RunCompleted(context.Background(), "run-1", report))

	var payload RunCompletedPayload
	decodePayload(t, client.calls[0], &payload)
	assert.Equal(t, 1, payload.Succeeded)
	assert.Equal(t, 1, payload.Failed)
	assert.Equal(t, 2, payload.Skipped)
}

func TestPublishSurfacesRedisErrors(t *testing.T) {
	client := &recordingClient{err: assert.AnError}
	p := NewPublisher(client, "stream:audit_runs", slog.Default())

	err := p.RunStarted(context.Background(), "run-1", "ke", 1)
	assert.Error(t, err)
}
