package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// PostgreSQL error codes surfaced while waiting on a scope lock.
const (
	pgErrDeadlock        = "40P01"
	pgErrLockNotAvail    = "55P03"
	pgErrSerialization   = "40001"
	pgErrQueryCanceled   = "57014"
)

// ScopeLocker implements usecase.ScopeLocker with a pessimistic row lock
// against the scope_locks table. The row lock is held by the enclosing
// transaction and released automatically at commit or rollback, so it can
// never leak.
type ScopeLocker struct{}

// NewScopeLocker creates a new ScopeLocker.
func NewScopeLocker() *ScopeLocker {
	return &ScopeLocker{}
}

// Lock acquires the per-scope lock inside tx. Concurrent appends to the same
// scope block here until the holder's transaction finishes; contention beyond
// the storage layer's deadlock/timeout window surfaces as
// domain.ErrConcurrencyTimeout.
func (l *ScopeLocker) Lock(ctx context.Context, tx usecase.Transaction, key string) error {
	pgxTx := tx.(*Tx).PgxTx()

	// Ensure the lock row exists. ON CONFLICT keeps this idempotent across
	// concurrent first appends to a scope.
	if _, err := pgxTx.Exec(ctx,
		`INSERT INTO scope_locks (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, key); err != nil {
		return mapLockError(err)
	}

	var locked string
	if err := pgxTx.QueryRow(ctx,
		`SELECT key FROM scope_locks WHERE key = $1 FOR UPDATE`, key).Scan(&locked); err != nil {
		return mapLockError(err)
	}

	return nil
}

func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrLockNotAvail, pgErrSerialization, pgErrQueryCanceled:
			return fmt.Errorf("%w: %s", domain.ErrConcurrencyTimeout, pgErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrConcurrencyTimeout, err)
	}

	return err
}
