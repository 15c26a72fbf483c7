package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/uniimport/internal/store"
)

// tx adapts pgx.Tx. Begin on a pgx.Tx creates a savepoint, which is what the
// resolver relies on to survive a lost uniqueness race.
type tx struct {
	tx pgx.Tx
}

var _ store.Tx = (*tx)(nil)

func (t *tx) db() DBTX { return t.tx }

func (t *tx) Begin(ctx context.Context) (store.Tx, error) {
	nested, err := t.tx.Begin(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil, store.ErrTxDone
		}
		return nil, err
	}
	return &tx{tx: nested}, nil
}

func (t *tx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return store.ErrTxDone
	}
	return mapError(err)
}

// Rollback is a no-op on a finished transaction.
func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
