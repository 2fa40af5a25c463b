package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// MockEntryRepository is a mock implementation of EntryRepository. Without
// func overrides it behaves as a tiny in-memory ledger.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.LedgerEntry
	order   []string

	InsertFunc         func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	GetByIDFunc        func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	FindReversalOfFunc func(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListByScopeFunc    func(ctx context.Context, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error)
	ListByScopeTxFunc  func(ctx context.Context, tx usecase.Transaction, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.LedgerEntry),
	}
}

func (m *MockEntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) FindReversalOf(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if m.FindReversalOfFunc != nil {
		return m.FindReversalOfFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ReversalOfID != nil && *e.ReversalOfID == id {
			return e, nil
		}
	}
	return nil, nil
}

func (m *MockEntryRepository) ListByScope(ctx context.Context, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	if m.ListByScopeFunc != nil {
		return m.ListByScopeFunc(ctx, scope, includeReversals)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, id := range m.order {
		e := m.entries[id]
		if e.VaultID != scope.VaultID {
			continue
		}
		if scope.Kind == domain.ScopeKindUser && e.UserID != scope.UserID {
			continue
		}
		if scope.Kind == domain.ScopeKindAsset && (e.Asset != scope.Asset || e.Account != scope.Account) {
			continue
		}
		if !includeReversals && e.IsReversal {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *MockEntryRepository) ListByScopeTx(ctx context.Context, tx usecase.Transaction, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	if m.ListByScopeTxFunc != nil {
		return m.ListByScopeTxFunc(ctx, tx, scope, includeReversals)
	}
	return m.ListByScope(ctx, scope, includeReversals)
}

// MockDerivedStateRepository is a mock implementation of
// DerivedStateRepository.
type MockDerivedStateRepository struct {
	mu            sync.RWMutex
	vaultStates   map[string]*domain.VaultState
	userHoldings  map[string]*domain.UserHolding
	assetHoldings map[string]*domain.AssetHolding

	GetVaultStateFunc       func(ctx context.Context, vaultID string) (*domain.VaultState, error)
	GetUserHoldingFunc      func(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error)
	GetAssetHoldingFunc     func(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error)
	ReplaceVaultStateFunc   func(ctx context.Context, tx usecase.Transaction, state *domain.VaultState) error
	ReplaceUserHoldingFunc  func(ctx context.Context, tx usecase.Transaction, holding *domain.UserHolding) error
	ReplaceAssetHoldingFunc func(ctx context.Context, tx usecase.Transaction, holding *domain.AssetHolding) error
}

func NewMockDerivedStateRepository() *MockDerivedStateRepository {
	return &MockDerivedStateRepository{
		vaultStates:   make(map[string]*domain.VaultState),
		userHoldings:  make(map[string]*domain.UserHolding),
		assetHoldings: make(map[string]*domain.AssetHolding),
	}
}

func (m *MockDerivedStateRepository) GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	if m.GetVaultStateFunc != nil {
		return m.GetVaultStateFunc(ctx, vaultID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.vaultStates[vaultID]; ok {
		return s, nil
	}
	return nil, domain.ErrVaultStateNotFound
}

func (m *MockDerivedStateRepository) GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error) {
	if m.GetUserHoldingFunc != nil {
		return m.GetUserHoldingFunc(ctx, vaultID, userID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.userHoldings[vaultID+":"+userID]; ok {
		return h, nil
	}
	return nil, domain.ErrUserHoldingNotFound
}

func (m *MockDerivedStateRepository) GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error) {
	if m.GetAssetHoldingFunc != nil {
		return m.GetAssetHoldingFunc(ctx, vaultID, asset, account)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.assetHoldings[vaultID+":"+asset+":"+account]; ok {
		return h, nil
	}
	return nil, domain.ErrAssetHoldingNotFound
}

func (m *MockDerivedStateRepository) ReplaceVaultState(ctx context.Context, tx usecase.Transaction, state *domain.VaultState) error {
	if m.ReplaceVaultStateFunc != nil {
		return m.ReplaceVaultStateFunc(ctx, tx, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vaultStates[state.VaultID] = state
	return nil
}

func (m *MockDerivedStateRepository) ReplaceUserHolding(ctx context.Context, tx usecase.Transaction, holding *domain.UserHolding) error {
	if m.ReplaceUserHoldingFunc != nil {
		return m.ReplaceUserHoldingFunc(ctx, tx, holding)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userHoldings[holding.VaultID+":"+holding.UserID] = holding
	return nil
}

func (m *MockDerivedStateRepository) ReplaceAssetHolding(ctx context.Context, tx usecase.Transaction, holding *domain.AssetHolding) error {
	if m.ReplaceAssetHoldingFunc != nil {
		return m.ReplaceAssetHoldingFunc(ctx, tx, holding)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assetHoldings[holding.VaultID+":"+holding.Asset+":"+holding.Account] = holding
	return nil
}

// MockScopeLocker is a mock implementation of ScopeLocker. The default
// records lock order and always succeeds.
type MockScopeLocker struct {
	mu     sync.Mutex
	Locked []string

	LockFunc func(ctx context.Context, tx usecase.Transaction, key string) error
}

func NewMockScopeLocker() *MockScopeLocker {
	return &MockScopeLocker{}
}

func (m *MockScopeLocker) Lock(ctx context.Context, tx usecase.Transaction, key string) error {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, tx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Locked = append(m.Locked, key)
	return nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.Mutex
	Events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []*domain.OutboxEvent
	for _, ev := range m.Events {
		if ev.Published {
			continue
		}
		events = append(events, ev)
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.Events {
		if ev.ID == id {
			ev.Published = true
			ev.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.Events[:0]
	for _, ev := range m.Events {
		if ev.Published && ev.PublishedAt != nil && ev.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, ev)
	}
	m.Events = kept
	return nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool

	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu  sync.Mutex
	Txs []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Txs = append(m.Txs, tx)
	return tx, nil
}

// MockIDGenerator is a mock implementation of IDGenerator producing
// sequential IDs.
type MockIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int

	GenerateFunc func() string
}

func NewMockIDGenerator(prefix string) *MockIDGenerator {
	return &MockIDGenerator{prefix: prefix}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return m.prefix + intToFixed(m.next)
}

// intToFixed pads n so generated IDs sort lexicographically in creation
// order, matching ULID behavior in tests.
func intToFixed(n int) string {
	const digits = 8
	buf := [digits]byte{'0', '0', '0', '0', '0', '0', '0', '0'}
	for i := digits - 1; i >= 0 && n > 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
