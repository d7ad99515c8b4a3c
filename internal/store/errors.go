// errors.go classifies PostgreSQL errors for the import pipeline:
// idempotency-key violations become AlreadyExists outcomes, transient
// failures are retried at the transaction boundary, everything else is
// fatal for the attempt.
package store

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes. Class 08 is connection failures; 40001 and 40P01 are
// serialization failure and deadlock, both safe to retry after rollback.
const (
	codeUniqueViolation     = "23505"
	codeSerializationFail   = "40001"
	codeDeadlockDetected    = "40P01"
	classConnectionFailure  = "08"
	classOperatorIntervened = "57" // admin shutdown, statement timeout
)

// IsUniqueViolation reports whether err is a unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsTransient reports whether err is worth retrying with a fresh
// transaction. Context cancellation is never transient: the caller's
// deadline has passed and retrying cannot help.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		if code == codeSerializationFail || code == codeDeadlockDetected {
			return true
		}
		if len(code) >= 2 {
			class := code[:2]
			if class == classConnectionFailure || class == classOperatorIntervened {
				return true
			}
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
