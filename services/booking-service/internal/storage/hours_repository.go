package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/libs/db"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
)

// HoursRepository is the local replica of provider operating hours.
type HoursRepository struct {
	db DB
}

func NewHoursRepository(conn DB) *HoursRepository {
	return &HoursRepository{db: conn}
}

// OperatingHours returns the stored records for providerID, Sunday first. A provider
// with no rows has never configured hours.
func (r *HoursRepository) OperatingHours(ctx context.Context, providerID string) ([]availability.HoursRecord, error) {
	return operatingHours(ctx, r.db, providerID)
}

func operatingHours(ctx context.Context, q querier, providerID string) ([]availability.HoursRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT day_of_week, start_time, end_time, is_closed
		FROM provider_operating_hours
		WHERE provider_id = $1
		ORDER BY day_of_week ASC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.HoursRecord
	for rows.Next() {
		var rec availability.HoursRecord
		if err := rows.Scan(&rec.DayOfWeek, &rec.StartTime, &rec.EndTime, &rec.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ReplaceWeek swaps the provider's stored hours for records in one transaction, holding
// the same provider lock as BookingRepository.Book. after, when set, runs inside the same
// transaction (outbox writes).
func (r *HoursRepository) ReplaceWeek(ctx context.Context, providerID string, records []availability.HoursRecord, after func(ctx context.Context, tx pgx.Tx) error) error {
	return db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProvider(ctx, tx, providerID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM provider_operating_hours WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("clear hours: %w", err)
		}
		for _, rec := range records {
			if _, err := tx.Exec(ctx, `
				INSERT INTO provider_operating_hours (provider_id, day_of_week, start_time, end_time, is_closed, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
			`, providerID, rec.DayOfWeek, rec.StartTime, rec.EndTime, rec.IsClosed); err != nil {
				return fmt.Errorf("insert hours for day %d: %w", rec.DayOfWeek, err)
			}
		}
		if after != nil {
			return after(ctx, tx)
		}
		return nil
	})
}
