package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/catalog-tracker/internal/store"
)

// PostgreSQL error codes the store maps onto its taxonomy.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	classConnectionException = "08"
)

// classify wraps err with the store sentinel matching its PostgreSQL error code.
// Errors that match nothing are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation, pgErr.Code == codeCheckViolation:
			return fmt.Errorf("%w: %s: %w", store.ErrConstraintViolation, pgErr.ConstraintName, err)
		case pgErr.Code == codeSerializationFailure,
			pgErr.Code == codeDeadlockDetected,
			pgErr.Code == codeAdminShutdown,
			strings.HasPrefix(pgErr.Code, classConnectionException):
			return fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
		}
		return err
	}

	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", store.ErrStorageUnavailable, err)
	}
	return err
}
