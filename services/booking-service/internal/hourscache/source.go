// Package hourscache fronts the operating-hours store with a Redis read-through cache.
package hourscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "carebook:hours:"

// Observer is told whether each lookup hit, missed or errored.
type Observer interface {
	ObserveHoursCache(result string)
}

// Source is an availability.HoursSource that caches the wrapped source's records.
// Redis failures fall through to the wrapped source. A nil client disables caching.
type Source struct {
	rdb    redis.Cmdable
	next   availability.HoursSource
	ttl    time.Duration
	logger *slog.Logger
	obs    Observer
}

func New(rdb redis.Cmdable, next availability.HoursSource, ttl time.Duration, logger *slog.Logger, obs Observer) *Source {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Source{rdb: rdb, next: next, ttl: ttl, logger: logger, obs: obs}
}

func (s *Source) OperatingHours(ctx context.Context, providerID string) ([]availability.HoursRecord, error) {
	if s.rdb == nil {
		return s.next.OperatingHours(ctx, providerID)
	}
	key := keyPrefix + providerID
	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []availability.HoursRecord
		if jerr := json.Unmarshal(raw, &records); jerr == nil {
			s.observe("hit")
			return records, nil
		}
		s.logger.Warn("hours cache entry unreadable", "provider_id", providerID)
		s.observe("error")
	case errors.Is(err, redis.Nil):
		s.observe("miss")
	default:
		s.logger.Warn("hours cache read failed", "err", err, "provider_id", providerID)
		s.observe("error")
	}

	records, err := s.next.OperatingHours(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []availability.HoursRecord{}
	}
	if body, jerr := json.Marshal(records); jerr == nil {
		if serr := s.rdb.Set(ctx, key, body, s.ttl).Err(); serr != nil {
			s.logger.Warn("hours cache write failed", "err", serr, "provider_id", providerID)
		}
	}
	return records, nil
}

// Invalidate drops the cached entry for providerID.
func (s *Source) Invalidate(ctx context.Context, providerID string) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, keyPrefix+providerID).Err()
}

func (s *Source) observe(result string) {
	if s.obs != nil {
		s.obs.ObserveHoursCache(result)
	}
}
