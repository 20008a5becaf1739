package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/carebook/libs/db"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/model"
)

const appointmentColumns = `id::text, provider_id, patient_name, patient_email, notes,
	start_time, end_time, status, cancelled_at, created_at, updated_at`

// Guard decides, under the provider's booking lock, whether the appointment may be
// inserted given the provider's operating hours and occupying bookings on that day.
type Guard func(hours []availability.HoursRecord, booked []availability.BookingRecord) error

// AfterFunc runs inside the write transaction after the appointment row changes.
type AfterFunc func(ctx context.Context, tx pgx.Tx, appt model.Appointment) error

type BookingRepository struct {
	db DB
}

func NewBookingRepository(conn DB) *BookingRepository {
	return &BookingRepository{db: conn}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Bookings returns the provider's occupying appointments overlapping window.
func (r *BookingRepository) Bookings(ctx context.Context, providerID string, window availability.Interval) ([]availability.BookingRecord, error) {
	return occupyingBookings(ctx, r.db, providerID, window.Start.Time(), window.End.Time())
}

// lockProvider takes the transaction-scoped lock that serializes writes per provider.
func lockProvider(ctx context.Context, tx pgx.Tx, providerID string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, providerID); err != nil {
		return fmt.Errorf("lock provider: %w", err)
	}
	return nil
}

func occupyingBookings(ctx context.Context, q querier, providerID string, start, end time.Time) ([]availability.BookingRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT start_time, end_time, status
		FROM appointments
		WHERE provider_id = $1
			AND start_time < $3
			AND end_time > $2
			AND status = ANY($4)
		ORDER BY start_time ASC
	`, providerID, start, end, availability.OccupyingStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.BookingRecord
	for rows.Next() {
		var st, et time.Time
		var status string
		if err := rows.Scan(&st, &et, &status); err != nil {
			return nil, err
		}
		out = append(out, availability.BookingRecord{
			StartTime: availability.FormatISO(st),
			EndTime:   availability.FormatISO(et),
			Status:    status,
		})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Book inserts appt as pending while holding the provider's advisory lock, so that
// concurrent bookings and hours replacements for one provider are applied one at a time.
// guard sees the stored hours and the bookings on the appointment's day; a guard error aborts the insert and is
// returned unchanged. An exclusion-constraint hit maps to ErrSlotUnavailable.
func (r *BookingRepository) Book(ctx context.Context, appt model.Appointment, guard Guard, after AfterFunc) (model.Appointment, error) {
	appt.ID = uuid.NewString()
	appt.Status = string(availability.StatusPending)

	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockProvider(ctx, tx, appt.ProviderID); err != nil {
			return err
		}

		hours, err := operatingHours(ctx, tx, appt.ProviderID)
		if err != nil {
			return fmt.Errorf("load hours: %w", err)
		}
		dayStart := time.Date(appt.StartTime.Year(), appt.StartTime.Month(), appt.StartTime.Day(), 0, 0, 0, 0, time.UTC)
		booked, err := occupyingBookings(ctx, tx, appt.ProviderID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("load bookings: %w", err)
		}
		if err := guard(hours, booked); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO appointments
				(id, provider_id, patient_name, patient_email, notes, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, appt.ID, appt.ProviderID, appt.PatientName, appt.PatientEmail, appt.Notes,
			appt.StartTime, appt.EndTime, appt.Status).Scan(&appt.CreatedAt, &appt.UpdatedAt)
		if err != nil {
			if IsConflict(err) {
				return fmt.Errorf("%w: overlaps an existing appointment", availability.ErrSlotUnavailable)
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		if after != nil {
			return after(ctx, tx, appt)
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus moves an appointment to status. Setting the current status again is a
// no-op and skips after. Moves out of a terminal status fail with ErrInvalidTransition.
func (r *BookingRepository) UpdateStatus(ctx context.Context, providerID, appointmentID string, status availability.Status, after AfterFunc) (model.Appointment, error) {
	var appt model.Appointment
	err := db.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		appt, err = scanAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1 AND provider_id = $2
			FOR UPDATE
		`, appointmentID, providerID))
		if err != nil {
			return err
		}

		from := availability.Status(appt.Status)
		if from == status {
			return nil
		}
		if !availability.CanTransition(from, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, status)
		}

		err = tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = $3,
				updated_at = now(),
				cancelled_at = CASE WHEN $3 = 'cancelled' THEN now() ELSE cancelled_at END
			WHERE id = $1 AND provider_id = $2
			RETURNING updated_at, cancelled_at
		`, appointmentID, providerID, string(status)).Scan(&appt.UpdatedAt, &appt.CancelledAt)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		appt.Status = string(status)

		if after != nil {
			return after(ctx, tx, appt)
		}
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// ListByDay returns every appointment for the provider starting on date, any status.
func (r *BookingRepository) ListByDay(ctx context.Context, providerID string, date availability.Date) ([]model.Appointment, error) {
	window := availability.DayWindow(date)
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
			AND start_time >= $2
			AND start_time < $3
		ORDER BY start_time ASC
	`, providerID, window.Start.Time(), window.End.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.ProviderID,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.Notes,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&appt.CancelledAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}
