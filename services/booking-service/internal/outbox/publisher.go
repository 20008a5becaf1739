package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/libs/db"
	"github.com/md-rashed-zaman/carebook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/carebook/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishObserver counts published and failed batches. Nil-safe implementations are fine.
type PublishObserver interface {
	ObserveOutboxPublished(n int)
	ObserveOutboxFailure()
}

type Publisher struct {
	db        db.Beginner
	repo      *Repository
	logger    *slog.Logger
	writer    MessageWriter
	obs       PublishObserver
	pollEvery time.Duration
	batchSize int
}

type PublisherConfig struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
	// Writer overrides the Kafka writer built from Brokers.
	Writer MessageWriter
}

func NewPublisher(conn db.Beginner, repo *Repository, logger *slog.Logger, obs PublishObserver, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	writer := cfg.Writer
	if writer == nil {
		if brokers := kafkax.SplitBrokers(cfg.Brokers); len(brokers) > 0 {
			writer = &kafka.Writer{
				Addr:                   kafka.TCP(brokers...),
				Balancer:               &kafka.Hash{},
				RequiredAcks:           kafka.RequireAll,
				AllowAutoTopicCreation: true,
			}
		}
	}
	return &Publisher{
		db:        conn,
		repo:      repo,
		logger:    logger,
		writer:    writer,
		obs:       obs,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if p.writer == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}
	defer p.writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx)
			if err != nil {
				p.logger.Error("outbox publish failed", "err", err)
				if p.obs != nil {
					p.obs.ObserveOutboxFailure()
				}
				continue
			}
			if n > 0 && p.obs != nil {
				p.obs.ObserveOutboxPublished(n)
			}
		}
	}
}

// PublishBatch sends one batch and marks it published. It returns the number of events sent.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	var sent int
	err := db.InTx(ctx, p.db, func(tx pgx.Tx) error {
		records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(records))
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			msgCtx := otelx.TraceContext{Traceparent: r.Traceparent, Tracestate: r.Tracestate}.Context(ctx)
			meta := kafkax.EventMeta{EventID: r.EventID, EventType: r.EventType}
			msgs = append(msgs, kafka.Message{
				Topic:   r.EventType,
				Key:     []byte(r.AggregateID),
				Value:   r.Payload,
				Headers: kafkax.InjectTraceHeaders(msgCtx, meta.Headers()),
			})
			ids = append(ids, r.ID)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		if err := p.repo.MarkPublished(ctx, tx, ids); err != nil {
			return err
		}
		sent = len(records)
		return nil
	})
	return sent, err
}
