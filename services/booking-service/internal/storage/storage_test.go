package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/model"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday   = availability.MustDate(2026, time.January, 5)
	lockSQL  = regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")
	occupied = []string{"pending", "confirmed", "completed"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func wall(h, m int) time.Time {
	return time.Date(2026, time.January, 5, h, m, 0, 0, time.UTC)
}

func appointmentRow(id, status string, start, end time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "provider_id", "patient_name", "patient_email", "notes",
		"start_time", "end_time", "status", "cancelled_at", "created_at", "updated_at"}).
		AddRow(id, "prov-1", "Ada", "ada@example.com", "", start, end, status, (*time.Time)(nil), wall(6, 0), wall(6, 0))
}

func mondayHours() *pgxmock.Rows {
	nine, five := "09:00", "17:00"
	return pgxmock.NewRows([]string{"day_of_week", "start_time", "end_time", "is_closed"}).
		AddRow(1, &nine, &five, false)
}

func TestHoursRepository_OperatingHours(t *testing.T) {
	mock := newMock(t)
	repo := NewHoursRepository(mock)

	nine, five := "09:00", "17:00"
	mock.ExpectQuery("FROM provider_operating_hours").WithArgs("prov-1").
		WillReturnRows(pgxmock.NewRows([]string{"day_of_week", "start_time", "end_time", "is_closed"}).
			AddRow(0, (*string)(nil), (*string)(nil), true).
			AddRow(1, &nine, &five, false))

	got, err := repo.OperatingHours(context.Background(), "prov-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsClosed)
	assert.Equal(t, "09:00", *got[1].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoursRepository_ReplaceWeek(t *testing.T) {
	mock := newMock(t)
	repo := NewHoursRepository(mock)

	nine, five := "09:00", "17:00"
	records := []availability.HoursRecord{
		{DayOfWeek: 0, IsClosed: true},
		{DayOfWeek: 1, StartTime: &nine, EndTime: &five},
	}

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("prov-1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec("DELETE FROM provider_operating_hours").WithArgs("prov-1").WillReturnResult(pgxmock.NewResult("DELETE", 7))
	mock.ExpectExec("INSERT INTO provider_operating_hours").WithArgs("prov-1", 0, (*string)(nil), (*string)(nil), true).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO provider_operating_hours").WithArgs("prov-1", 1, &nine, &five, false).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO outbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.ReplaceWeek(context.Background(), "prov-1", records, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, "INSERT INTO outbox_events (event_type) VALUES ('provider.hours.updated.v1')")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Bookings(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectQuery("FROM appointments").
		WithArgs("prov-1", wall(0, 0), wall(0, 0).AddDate(0, 0, 1), occupied).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time", "status"}).
			AddRow(wall(10, 0), wall(11, 0), "confirmed"))

	got, err := repo.Bookings(context.Background(), "prov-1", availability.DayWindow(monday))
	require.NoError(t, err)
	assert.Equal(t, []availability.BookingRecord{
		{StartTime: "2026-01-05T10:00:00", EndTime: "2026-01-05T11:00:00", Status: "confirmed"},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Book(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("prov-1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM provider_operating_hours").WithArgs("prov-1").WillReturnRows(mondayHours())
	mock.ExpectQuery("SELECT start_time, end_time, status").
		WithArgs("prov-1", wall(0, 0), wall(0, 0).AddDate(0, 0, 1), occupied).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time", "status"}).
			AddRow(wall(10, 0), wall(11, 0), "confirmed"))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "prov-1", "Ada", "ada@example.com", "", wall(9, 0), wall(9, 30), "pending").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(wall(6, 0), wall(6, 0)))
	mock.ExpectCommit()

	var guarded []availability.BookingRecord
	var guardHours []availability.HoursRecord
	var afterID string
	appt, err := repo.Book(context.Background(), model.Appointment{
		ProviderID:   "prov-1",
		PatientName:  "Ada",
		PatientEmail: "ada@example.com",
		StartTime:    wall(9, 0),
		EndTime:      wall(9, 30),
	}, func(hours []availability.HoursRecord, booked []availability.BookingRecord) error {
		guardHours = hours
		guarded = booked
		return nil
	}, func(_ context.Context, _ pgx.Tx, a model.Appointment) error {
		afterID = a.ID
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, appt.ID, afterID)
	assert.Equal(t, "pending", appt.Status)
	assert.Len(t, guarded, 1)
	require.Len(t, guardHours, 1)
	assert.Equal(t, 1, guardHours[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Book_GuardRejects(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("prov-1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM provider_operating_hours").WithArgs("prov-1").WillReturnRows(mondayHours())
	mock.ExpectQuery("SELECT start_time, end_time, status").
		WithArgs("prov-1", wall(0, 0), wall(0, 0).AddDate(0, 0, 1), occupied).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time", "status"}))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), model.Appointment{ProviderID: "prov-1", StartTime: wall(9, 0), EndTime: wall(10, 0)},
		func(hours []availability.HoursRecord, _ []availability.BookingRecord) error {
			require.Len(t, hours, 1)
			return availability.ErrSlotUnavailable
		}, nil)
	assert.ErrorIs(t, err, availability.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Book_ExclusionViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(lockSQL).WithArgs("prov-1").WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM provider_operating_hours").WithArgs("prov-1").WillReturnRows(mondayHours())
	mock.ExpectQuery("SELECT start_time, end_time, status").
		WithArgs("prov-1", wall(0, 0), wall(0, 0).AddDate(0, 0, 1), occupied).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "end_time", "status"}))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "prov-1", "", "", "", wall(9, 0), wall(10, 0), "pending").
		WillReturnError(&pgconn.PgError{Code: "23P01"})
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), model.Appointment{ProviderID: "prov-1", StartTime: wall(9, 0), EndTime: wall(10, 0)},
		func([]availability.HoursRecord, []availability.BookingRecord) error { return nil }, nil)
	assert.ErrorIs(t, err, availability.ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)
	cancelledAt := wall(8, 0)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1", "prov-1").WillReturnRows(appointmentRow("appt-1", "confirmed", wall(9, 0), wall(10, 0)))
	mock.ExpectQuery("UPDATE appointments").WithArgs("appt-1", "prov-1", "cancelled").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at", "cancelled_at"}).AddRow(cancelledAt, &cancelledAt))
	mock.ExpectCommit()

	called := false
	appt, err := repo.UpdateStatus(context.Background(), "prov-1", "appt-1", availability.StatusCancelled,
		func(context.Context, pgx.Tx, model.Appointment) error {
			called = true
			return nil
		})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "cancelled", appt.Status)
	require.NotNil(t, appt.CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_UpdateStatus_Terminal(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("appt-1", "prov-1").WillReturnRows(appointmentRow("appt-1", "cancelled", wall(9, 0), wall(10, 0)))
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), "prov-1", "appt-1", availability.StatusConfirmed, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_UpdateStatus_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("missing", "prov-1").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.UpdateStatus(context.Background(), "prov-1", "missing", availability.StatusCancelled, nil)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByDay(t *testing.T) {
	mock := newMock(t)
	repo := NewBookingRepository(mock)

	mock.ExpectQuery("FROM appointments").WithArgs("prov-1", wall(0, 0), wall(0, 0).AddDate(0, 0, 1)).
		WillReturnRows(appointmentRow("appt-1", "pending", wall(9, 0), wall(9, 30)))

	got, err := repo.ListByDay(context.Background(), "prov-1", monday)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "appt-1", got[0].ID)
	assert.Nil(t, got[0].CancelledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsConflict(&pgconn.PgError{Code: "23P01"}))
	assert.False(t, IsConflict(errors.New("other")))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
}
