package errors

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors from the session store to AppError
// instances:
//   - sql.ErrNoRows → NotFound
//   - unique constraint violations → Conflict
//   - context timeouts/cancellations → Timeout/Canceled
//
// Unrecognized errors are returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "session store request timed out",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "session store request was canceled",
			Cause:   err,
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "session not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return &AppError{
				Code:    ErrCodeConflict,
				Message: "session already exists",
				Cause:   err,
			}
		case pgerrcode.SerializationFailure:
			return &AppError{
				Code:    ErrCodeConflict,
				Message: "concurrent session update",
				Cause:   err,
			}
		}
	}

	return err
}
