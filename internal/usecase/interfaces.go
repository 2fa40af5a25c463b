package usecase

import (
	"context"
	"time"

	"github.com/finvault/vaultledger/internal/domain"
)

// EntryRepository defines data access for ledger entries. The ledger is
// append-only: Insert is the only write, and the storage layer rejects
// updates and deletes with domain.ErrImmutableEntry.
type EntryRepository interface {
	Insert(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	// FindReversalOf returns the reversal entry referencing id, or nil when
	// the entry has not been reversed.
	FindReversalOf(ctx context.Context, id string) (*domain.LedgerEntry, error)
	// ListByScope returns committed entries for a scope ordered by
	// (timestamp, id). Reversal entries are filtered out unless
	// includeReversals is set.
	ListByScope(ctx context.Context, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error)
	// ListByScopeTx is ListByScope inside a transaction, so the fold sees
	// entries inserted earlier in the same unit of work.
	ListByScopeTx(ctx context.Context, tx Transaction, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error)
}

// DerivedStateRepository defines data access for the materialized aggregates.
// Writes are full-row replacements, never patches.
type DerivedStateRepository interface {
	GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error)
	GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error)
	GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error)
	ReplaceVaultState(ctx context.Context, tx Transaction, state *domain.VaultState) error
	ReplaceUserHolding(ctx context.Context, tx Transaction, holding *domain.UserHolding) error
	ReplaceAssetHolding(ctx context.Context, tx Transaction, holding *domain.AssetHolding) error
}

// ScopeLocker provides per-scope-key mutual exclusion for one
// recomputation-and-write. The lock is bound to the transaction and released
// when it commits or rolls back. Lock contention that exceeds the storage
// layer's timeout surfaces as domain.ErrConcurrencyTimeout.
type ScopeLocker interface {
	Lock(ctx context.Context, tx Transaction, key string) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations for derived-state reads. Get returns
// (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// Retrier retries an operation on transient errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// MetricsRecorder receives ledger-level measurements. Implemented by the
// metrics infrastructure; a no-op implementation is used when metrics are
// disabled.
type MetricsRecorder interface {
	ObserveAppend(entryType string, seconds float64)
	ObserveRecompute(scopeKind string, seconds float64)
	IncAppendError(errType string)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) ObserveAppend(string, float64)    {}
func (NopMetrics) ObserveRecompute(string, float64) {}
func (NopMetrics) IncAppendError(string)            {}
