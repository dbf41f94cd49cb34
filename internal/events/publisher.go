// Package events publishes and consumes match lifecycle events on a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enigmatch/enigmatch/internal/metrics"
)

const (
	// StreamKey is the Redis stream for match events.
	StreamKey = "stream:match_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:match_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 250 * time.Millisecond

	// TypeMatchCreated is the event type emitted once per new match.
	TypeMatchCreated = "match.created"
)

// MatchCreated is the stream payload of a match.created event.
type MatchCreated struct {
	Type      string `json:"type"`
	MatchID   string `json:"match_id"`
	User1ID   string `json:"user1_id"`
	User2ID   string `json:"user2_id"`
	CreatedAt int64  `json:"t"` // Unix milliseconds
}

// NewMatchCreated builds a match.created payload.
func NewMatchCreated(matchID, user1ID, user2ID string, createdAt time.Time) MatchCreated {
	return MatchCreated{
		Type:      TypeMatchCreated,
		MatchID:   matchID,
		User1ID:   user1ID,
		User2ID:   user2ID,
		CreatedAt: createdAt.UnixMilli(),
	}
}

// Publisher enqueues match events to a Redis stream.
type Publisher struct {
	redis    *redis.Client
	logger   *slog.Logger
	metrics  metrics.Recorder
	inflight sync.WaitGroup
}

// NewPublisher creates a new match event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "events.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event MatchCreated) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"type":    event.Type,
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishMatchCreated publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishMatchCreated(event MatchCreated) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish match event",
				"match_id", event.MatchID,
				"error", err,
			)
			p.metrics.IncMatchEventPublished("dropped")
			return
		}

		p.logger.Debug("match event published",
			"match_id", event.MatchID,
			"stream_id", streamID,
		)
		p.metrics.IncMatchEventPublished("success")
	}()
}

// Shutdown waits for in-flight publishes or until ctx is done.
func (p *Publisher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop discards events. It is used when Redis is not configured.
type Noop struct{}

// PublishMatchCreated is a no-op.
func (Noop) PublishMatchCreated(MatchCreated) {}
