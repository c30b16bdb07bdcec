package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dreschagin/mission-control/internal/application/port"
	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/pkg/logger"
)

// ErrConsumerClosed is returned by Consume after Close.
var ErrConsumerClosed = errors.New("consumer is closed")

// Config holds the reader settings for the snapshot topic.
type Config struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int
	MaxBytes       int
	CommitInterval time.Duration
	RetryBackoff   time.Duration
}

// Reader is the subset of *kafka.Reader used by the consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RejectFunc is called for every message that never reaches the handler.
type RejectFunc func(reason string)

// SnapshotConsumer reads JSON metrics snapshots from a Kafka topic.
type SnapshotConsumer struct {
	reader   Reader
	logger   *logger.Logger
	backoff  time.Duration
	onReject RejectFunc
	closed   atomic.Bool

	consumed atomic.Uint64
	rejected atomic.Uint64
}

// NewSnapshotConsumer creates a consumer-group reader for the snapshot topic.
func NewSnapshotConsumer(cfg Config, log *logger.Logger) (*SnapshotConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "mission-control"
	}
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		CommitInterval: cfg.CommitInterval,
		StartOffset:    kafka.LastOffset,
	})

	return NewSnapshotConsumerWithReader(reader, cfg.RetryBackoff, log), nil
}

// NewSnapshotConsumerWithReader wraps an existing reader (used in tests).
func NewSnapshotConsumerWithReader(reader Reader, backoff time.Duration, log *logger.Logger) *SnapshotConsumer {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &SnapshotConsumer{
		reader:  reader,
		logger:  log,
		backoff: backoff,
	}
}

// OnReject registers a callback for undecodable or invalid messages.
func (c *SnapshotConsumer) OnReject(fn RejectFunc) {
	c.onReject = fn
}

// Consume blocks until ctx is cancelled, passing each decoded snapshot to handler.
// Offsets are committed after the handler returns, even when it fails, so a
// poison message does not stall the partition.
func (c *SnapshotConsumer) Consume(ctx context.Context, handler port.SnapshotHandler) error {
	c.logger.Info("Kafka snapshot consumer started")

	for {
		if c.closed.Load() {
			return ErrConsumerClosed
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrConsumerClosed) || c.closed.Load() {
				return ErrConsumerClosed
			}
			c.logger.Error("Failed to fetch Kafka message", err)

			select {
			case <-time.After(c.backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		c.process(ctx, msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Warn("Failed to commit Kafka offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err.Error(),
			)
		}
	}
}

func (c *SnapshotConsumer) process(ctx context.Context, msg kafka.Message, handler port.SnapshotHandler) {
	snapshot, err := decodeSnapshot(msg)
	if err != nil {
		c.reject("decode")
		c.logger.Warn("Skipping undecodable snapshot message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err.Error(),
		)
		return
	}

	if err := handler(ctx, snapshot); err != nil {
		c.reject("handler")
		c.logger.Error("Failed to handle snapshot from Kafka", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return
	}

	c.consumed.Add(1)
	c.logger.Debug("Snapshot consumed from Kafka",
		"partition", msg.Partition,
		"offset", msg.Offset,
	)
}

func (c *SnapshotConsumer) reject(reason string) {
	c.rejected.Add(1)
	if c.onReject != nil {
		c.onReject(reason)
	}
}

func decodeSnapshot(msg kafka.Message) (*entity.MetricsSnapshot, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New("empty message")
	}

	var snapshot entity.MetricsSnapshot
	if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = msg.Time
	}
	return &snapshot, nil
}

// Close stops the reader. Safe to call more than once.
func (c *SnapshotConsumer) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}

// Stats returns consumer counters.
func (c *SnapshotConsumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed: c.consumed.Load(),
		Rejected: c.rejected.Load(),
	}
}

// ConsumerStats holds consumer counters
type ConsumerStats struct {
	Consumed uint64
	Rejected uint64
}
