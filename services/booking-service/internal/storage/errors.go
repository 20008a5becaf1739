package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrInvalidTransition is returned when an appointment cannot move to the requested status.
var ErrInvalidTransition = errors.New("storage: invalid status transition")

// IsConflict reports an exclusion-constraint violation on appointments.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
