package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultGroup is the Redis consumer group name.
	DefaultGroup = "match_event_consumers"

	// DefaultBatchSize is the max events per read.
	DefaultBatchSize = 100

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 30 * time.Second
)

// Handler processes a batch of decoded events. Returning an error leaves the
// batch unacknowledged so it is redelivered.
type Handler func(ctx context.Context, events []MatchCreated) error

// Consumer reads match events from the stream with a consumer group.
type Consumer struct {
	redis        *redis.Client
	handler      Handler
	logger       *slog.Logger
	group        string
	consumerID   string
	batchSize    int
	blockTimeout time.Duration
	claimIdle    time.Duration
	claimStartID string

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewConsumer creates a consumer in group. An empty group selects DefaultGroup.
func NewConsumer(client *redis.Client, group string, handler Handler, logger *slog.Logger) *Consumer {
	if group == "" {
		group = DefaultGroup
	}
	consumerID := NewConsumerID()
	return &Consumer{
		redis:        client,
		handler:      handler,
		logger:       logger.With("component", "events.consumer", "consumer_id", consumerID),
		group:        group,
		consumerID:   consumerID,
		batchSize:    DefaultBatchSize,
		blockTimeout: DefaultBlockTimeout,
		claimIdle:    DefaultClaimIdle,
		claimStartID: "0-0",
	}
}

// NewConsumerID creates a stable-ish consumer ID for Redis consumer groups.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "consumer"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}

// SetBlockTimeout overrides the default blocking timeout.
func (c *Consumer) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.blockTimeout = timeout
	}
}

// Run starts the consume loop. Blocks until ctx is cancelled or Shutdown is called.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("consumer already started")
	}
	c.started = true
	c.done = make(chan struct{})
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	defer close(c.done)

	if err := c.ensureGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	c.logger.Info("match event consumer started", "group", c.group)

	for {
		c.mu.Lock()
		draining := c.draining
		c.mu.Unlock()
		if draining {
			return nil
		}

		select {
		case <-ctx.Done():
			c.logger.Info("match event consumer stopping")
			return nil
		default:
			if err := c.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				c.logger.Error("process error", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// Shutdown stops the consumer after the in-flight batch.
// It implements server.ShutdownFunc.
func (c *Consumer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.draining = true
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.logger.Warn("match event consumer shutdown timed out")
		return ctx.Err()
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, StreamKey, c.group, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return err
	}
	return nil
}

func (c *Consumer) processOnce(ctx context.Context) error {
	messages, err := c.claimPending(ctx)
	if err != nil {
		c.logger.Warn("failed to claim pending messages", "error", err)
	}
	if len(messages) == 0 {
		messages, err = c.readBatch(ctx)
		if err != nil {
			return err
		}
	}
	if len(messages) == 0 {
		return nil
	}

	events, ids := c.parseMessages(ctx, messages)
	if len(events) > 0 {
		if err := c.handler(ctx, events); err != nil {
			// Not acknowledged; redelivered through XAUTOCLAIM.
			return fmt.Errorf("handle batch: %w", err)
		}
	}

	if _, err := c.redis.XAck(ctx, StreamKey, c.group, ids...).Result(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *Consumer) claimPending(ctx context.Context) ([]redis.XMessage, error) {
	messages, start, err := c.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    c.group,
		Consumer: c.consumerID,
		MinIdle:  c.claimIdle,
		Start:    c.claimStartID,
		Count:    int64(c.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		c.claimStartID = start
	}
	return messages, nil
}

func (c *Consumer) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(c.batchSize),
		Block:    c.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

// parseMessages decodes stream entries. Malformed entries are moved to the
// dead-letter stream and still acknowledged.
func (c *Consumer) parseMessages(ctx context.Context, messages []redis.XMessage) ([]MatchCreated, []string) {
	events := make([]MatchCreated, 0, len(messages))
	ids := make([]string, 0, len(messages))

	for _, msg := range messages {
		ids = append(ids, msg.ID)

		event, reason, err := decodeMessage(msg)
		if err != nil {
			c.deadLetter(ctx, msg, reason, err.Error())
			continue
		}
		events = append(events, event)
	}
	return events, ids
}

func decodeMessage(msg redis.XMessage) (MatchCreated, string, error) {
	var event MatchCreated

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return event, "invalid_format", errors.New("payload field missing or not a string")
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, "unmarshal_error", err
	}
	if err := Validate(event); err != nil {
		return event, "validation_error", err
	}
	return event, "", nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	c.logger.Warn("dead-lettering poison message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	err := c.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		c.logger.Error("failed to write to dead-letter stream",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// isGroupExistsError checks for the BUSYGROUP reply.
func isGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
