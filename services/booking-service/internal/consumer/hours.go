package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/outbox"
	"github.com/segmentio/kafka-go"
)

type HoursWriter interface {
	ReplaceWeek(ctx context.Context, providerID string, records []availability.HoursRecord, after func(ctx context.Context, tx pgx.Tx) error) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, providerID string) error
}

// HoursUpdated applies provider.hours.updated.v1 events to the local hours replica.
// Events produced by self are skipped. Payloads that fail validation are logged and
// dropped; only storage errors are returned for retry.
func HoursUpdated(logger *slog.Logger, hours HoursWriter, cache Invalidator, self string) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload outbox.HoursPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.Source != "" && payload.Source == self {
			return nil
		}
		if payload.ProviderID == "" {
			logger.Error("missing required event fields", "topic", msg.Topic)
			return nil
		}

		week, err := availability.ParseWeek(payload.Hours)
		if err == nil {
			err = availability.ValidateWeek(week)
		}
		if err != nil {
			logger.Error("rejected operating hours", "err", err, "provider_id", payload.ProviderID)
			return nil
		}

		if err := hours.ReplaceWeek(ctx, payload.ProviderID, week.Records(), nil); err != nil {
			return err
		}
		if err := cache.Invalidate(ctx, payload.ProviderID); err != nil {
			logger.Warn("hours cache invalidation failed", "err", err, "provider_id", payload.ProviderID)
		}
		logger.Info("operating hours replicated", "provider_id", payload.ProviderID, "open_days", week.OpenDays())
		return nil
	}
}
