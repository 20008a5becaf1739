package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/carebook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Observer interface {
	ObserveConsumed(topic, outcome string)
}

type Consumer struct {
	reader      MessageReader
	logger      *slog.Logger
	inbox       Inbox
	handler     Handler
	obs         Observer
	maxAttempts int
	backoff     time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
	// MaxAttempts bounds handler retries for one message before it is skipped.
	MaxAttempts int
	Backoff     time.Duration
	// Reader overrides the Kafka reader built from the fields above.
	Reader MessageReader
}

func New(logger *slog.Logger, inbox Inbox, obs Observer, cfg Config, handler Handler) *Consumer {
	reader := cfg.Reader
	if reader == nil {
		reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkax.SplitBrokers(cfg.Brokers),
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{
		reader:      reader,
		logger:      logger,
		inbox:       inbox,
		handler:     handler,
		obs:         obs,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
}

// Run consumes until ctx ends. Offsets are committed after each message is applied,
// recognised as a duplicate, or given up on.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}

		outcome := c.process(ctx, msg)
		if c.obs != nil {
			c.obs.ObserveConsumed(msg.Topic, outcome)
		}
		if ctx.Err() != nil {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("kafka commit failed", "err", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) string {
	ctxSpan, span := kafkax.StartConsumeSpan(ctx, msg)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	for attempt := 1; ; attempt++ {
		outcome, err := c.handleOnce(ctxSpan, msg, meta)
		if err == nil {
			if outcome == "duplicate" {
				c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			}
			return outcome
		}
		span.RecordError(err)
		if attempt >= c.maxAttempts {
			c.logger.Error("event dropped after retries", "err", err, "event_id", meta.EventID, "attempts", attempt)
			return "failed"
		}
		c.logger.Warn("handler error; retrying", "err", err, "event_id", meta.EventID, "attempt", attempt)
		if !sleep(ctx, c.backoff*time.Duration(attempt)) {
			return "failed"
		}
	}
}

// Events without an id cannot be deduplicated and are applied as delivered.
func (c *Consumer) handleOnce(ctx context.Context, msg kafka.Message, meta kafkax.EventMeta) (string, error) {
	if meta.EventID == "" {
		if err := c.handler(ctx, msg); err != nil {
			return "", err
		}
		return "applied", nil
	}
	ok, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
	if err != nil {
		return "", err
	}
	if !ok {
		return "duplicate", nil
	}
	if err := c.handler(ctx, msg); err != nil {
		if ferr := c.inbox.Forget(ctx, meta.EventID); ferr != nil {
			c.logger.Error("inbox forget failed", "err", ferr, "event_id", meta.EventID)
		}
		return "", err
	}
	return "applied", nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
