package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/uniimport/internal/store"
)

// PostgreSQL error codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeLockNotAvailable    = "55P03"
)

// mapError translates driver errors into the store sentinels. Other errors
// pass through unchanged so connection failures keep their message.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w (%s)", store.ErrConflict, pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: foreign key %s", store.ErrNotFound, pgErr.ConstraintName)
	case codeCheckViolation:
		return fmt.Errorf("check constraint %s violated: %w", pgErr.ConstraintName, err)
	case codeLockNotAvailable:
		return fmt.Errorf("lock timeout: %w", err)
	default:
		return err
	}
}
