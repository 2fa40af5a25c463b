// Package memory provides an in-process implementation of the ledger
// repositories: staged transactions, an in-process scope lock table, and
// copy-on-read immutability. It backs unit and concurrency tests and small
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// Store holds committed ledger state. It implements usecase.EntryRepository,
// usecase.DerivedStateRepository, usecase.TransactionManager,
// usecase.ScopeLocker and usecase.OutboxRepository.
type Store struct {
	mu            sync.RWMutex
	entries       map[string]*domain.LedgerEntry
	order         []string
	vaultStates   map[string]*domain.VaultState
	userHoldings  map[string]*domain.UserHolding
	assetHoldings map[string]*domain.AssetHolding
	events        map[string]*domain.OutboxEvent
	eventOrder    []string

	locks sync.Map // scope key -> *sync.Mutex
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries:       make(map[string]*domain.LedgerEntry),
		vaultStates:   make(map[string]*domain.VaultState),
		userHoldings:  make(map[string]*domain.UserHolding),
		assetHoldings: make(map[string]*domain.AssetHolding),
		events:        make(map[string]*domain.OutboxEvent),
	}
}

// Tx stages writes until Commit. Scope locks acquired through the store are
// bound to the transaction and released on Commit or Rollback.
type Tx struct {
	store *Store

	entries       []*domain.LedgerEntry
	vaultStates   map[string]*domain.VaultState
	userHoldings  map[string]*domain.UserHolding
	assetHoldings map[string]*domain.AssetHolding
	events        []*domain.OutboxEvent

	held []*sync.Mutex
	done bool
}

// Begin starts a new transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &Tx{
		store:         s,
		vaultStates:   make(map[string]*domain.VaultState),
		userHoldings:  make(map[string]*domain.UserHolding),
		assetHoldings: make(map[string]*domain.AssetHolding),
	}, nil
}

// Commit applies staged writes atomically and releases held scope locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	for _, e := range t.entries {
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	for k, v := range t.vaultStates {
		s.vaultStates[k] = v
	}
	for k, v := range t.userHoldings {
		s.userHoldings[k] = v
	}
	for k, v := range t.assetHoldings {
		s.assetHoldings[k] = v
	}
	for _, ev := range t.events {
		s.events[ev.ID] = ev
		s.eventOrder = append(s.eventOrder, ev.ID)
	}
	s.mu.Unlock()

	t.release()

	return nil
}

// Rollback discards staged writes and releases held scope locks.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.release()

	return nil
}

func (t *Tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

// Lock acquires the in-process mutex for a scope key and binds it to tx.
// Callers lock scopes in sorted key order, which rules out lock-order
// deadlocks.
func (s *Store) Lock(ctx context.Context, tx usecase.Transaction, key string) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	t.held = append(t.held, m)

	return nil
}

// Insert stages a new entry. Reversal uniqueness is enforced here the way
// the SQL partial unique index enforces it in Postgres.
func (s *Store) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	if entry.ReversalOfID != nil {
		target := *entry.ReversalOfID

		s.mu.RLock()
		_, exists := s.entries[target]
		var conflict bool
		for _, e := range s.entries {
			if e.ReversalOfID != nil && *e.ReversalOfID == target {
				conflict = true
				break
			}
		}
		s.mu.RUnlock()

		if !exists {
			return domain.ErrEntryNotFound
		}

		if !conflict {
			for _, e := range t.entries {
				if e.ReversalOfID != nil && *e.ReversalOfID == target {
					conflict = true
					break
				}
			}
		}

		if conflict {
			return fmt.Errorf("%w: %s", domain.ErrReversalConflict, target)
		}
	}

	copied := *entry
	t.entries = append(t.entries, &copied)

	return nil
}

// GetByID retrieves a committed entry by ID. The returned value is a copy;
// committed entries cannot be mutated through it.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}

	copied := *e

	return &copied, nil
}

// FindReversalOf returns the committed reversal referencing id, or nil.
func (s *Store) FindReversalOf(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.ReversalOfID != nil && *e.ReversalOfID == id {
			copied := *e
			return &copied, nil
		}
	}

	return nil, nil
}

// ListByScope lists committed entries for a scope ordered by (timestamp, id).
func (s *Store) ListByScope(ctx context.Context, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	s.mu.RLock()
	entries := make([]*domain.LedgerEntry, 0)
	for _, id := range s.order {
		e := s.entries[id]
		if matchesScope(e, scope) && (includeReversals || !e.IsReversal) {
			copied := *e
			entries = append(entries, &copied)
		}
	}
	s.mu.RUnlock()

	sortEntries(entries)

	return entries, nil
}

// ListByScopeTx lists scope entries visible to the transaction: committed
// rows plus the transaction's own staged inserts.
func (s *Store) ListByScopeTx(ctx context.Context, tx usecase.Transaction, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	entries, err := s.ListByScope(ctx, scope, includeReversals)
	if err != nil {
		return nil, err
	}

	for _, e := range t.entries {
		if matchesScope(e, scope) && (includeReversals || !e.IsReversal) {
			copied := *e
			entries = append(entries, &copied)
		}
	}

	sortEntries(entries)

	return entries, nil
}

// GetVaultState retrieves the committed vault aggregate.
func (s *Store) GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.vaultStates[vaultID]
	if !ok {
		return nil, domain.ErrVaultStateNotFound
	}

	copied := *state

	return &copied, nil
}

// GetUserHolding retrieves the committed holding of one user.
func (s *Store) GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holding, ok := s.userHoldings[vaultID+":"+userID]
	if !ok {
		return nil, domain.ErrUserHoldingNotFound
	}

	copied := *holding

	return &copied, nil
}

// GetAssetHolding retrieves the committed asset position.
func (s *Store) GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holding, ok := s.assetHoldings[vaultID+":"+asset+":"+account]
	if !ok {
		return nil, domain.ErrAssetHoldingNotFound
	}

	copied := *holding

	return &copied, nil
}

// ReplaceVaultState stages a full replacement of the vault aggregate.
func (s *Store) ReplaceVaultState(ctx context.Context, tx usecase.Transaction, state *domain.VaultState) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	copied := *state
	t.vaultStates[state.VaultID] = &copied

	return nil
}

// ReplaceUserHolding stages a full replacement of a user holding.
func (s *Store) ReplaceUserHolding(ctx context.Context, tx usecase.Transaction, holding *domain.UserHolding) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	copied := *holding
	t.userHoldings[holding.VaultID+":"+holding.UserID] = &copied

	return nil
}

// ReplaceAssetHolding stages a full replacement of an asset holding.
func (s *Store) ReplaceAssetHolding(ctx context.Context, tx usecase.Transaction, holding *domain.AssetHolding) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	copied := *holding
	t.assetHoldings[holding.VaultID+":"+holding.Asset+":"+holding.Account] = &copied

	return nil
}

// Create stages an outbox event.
func (s *Store) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, ok := tx.(*Tx)
	if !ok {
		return fmt.Errorf("memory: foreign transaction type %T", tx)
	}

	copied := *event
	t.events = append(t.events, &copied)

	return nil
}

// GetUnpublished retrieves unpublished events oldest first.
func (s *Store) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.OutboxEvent, 0, limit)
	for _, id := range s.eventOrder {
		ev := s.events[id]
		if ev.Published {
			continue
		}

		copied := *ev
		events = append(events, &copied)

		if len(events) == limit {
			break
		}
	}

	return events, nil
}

// MarkPublished marks an event as published.
func (s *Store) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("memory: unknown outbox event %s", id)
	}

	ev.Published = true
	ev.PublishedAt = &publishedAt

	return nil
}

// DeletePublished deletes published events older than the given time.
func (s *Store) DeletePublished(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.eventOrder[:0]
	for _, id := range s.eventOrder {
		ev := s.events[id]
		if ev.Published && ev.PublishedAt != nil && ev.PublishedAt.Before(before) {
			delete(s.events, id)
			continue
		}
		kept = append(kept, id)
	}
	s.eventOrder = kept

	return nil
}

func matchesScope(e *domain.LedgerEntry, scope domain.Scope) bool {
	if e.VaultID != scope.VaultID {
		return false
	}

	switch scope.Kind {
	case domain.ScopeKindUser:
		return e.UserID == scope.UserID
	case domain.ScopeKindAsset:
		return e.Asset == scope.Asset && e.Account == scope.Account
	default:
		return true
	}
}

func sortEntries(entries []*domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].ID < entries[j].ID
	})
}
