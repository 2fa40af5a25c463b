package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/finvault/vaultledger/internal/domain"
)

// QueryUseCase serves derived-state snapshots and entry listings to
// reporting layers. Reads never take scope locks: entries are immutable once
// committed and derived rows are replaced atomically.
type QueryUseCase struct {
	entryRepo   EntryRepository
	derivedRepo DerivedStateRepository
	cache       Cache
	cacheTTL    time.Duration
}

// NewQueryUseCase creates a new QueryUseCase.
func NewQueryUseCase(entryRepo EntryRepository, derivedRepo DerivedStateRepository) *QueryUseCase {
	return &QueryUseCase{
		entryRepo:   entryRepo,
		derivedRepo: derivedRepo,
	}
}

// WithCache enables read-through caching of derived snapshots.
func (uc *QueryUseCase) WithCache(cache Cache, ttl time.Duration) *QueryUseCase {
	uc.cache = cache
	uc.cacheTTL = ttl
	return uc
}

// GetVaultState returns the materialized vault aggregate.
func (uc *QueryUseCase) GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	key := cacheKeyVaultState + vaultID

	var cached domain.VaultState
	if uc.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	state, err := uc.derivedRepo.GetVaultState(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	uc.cacheSet(ctx, key, state)

	return state, nil
}

// GetUserHolding returns the materialized holding of one user in a vault.
func (uc *QueryUseCase) GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error) {
	key := cacheKeyUserHolding + vaultID + ":" + userID

	var cached domain.UserHolding
	if uc.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	holding, err := uc.derivedRepo.GetUserHolding(ctx, vaultID, userID)
	if err != nil {
		return nil, err
	}

	uc.cacheSet(ctx, key, holding)

	return holding, nil
}

// GetAssetHolding returns the materialized asset position of a vault.
func (uc *QueryUseCase) GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error) {
	key := cacheKeyAssetHolding + vaultID + ":" + asset + ":" + account

	var cached domain.AssetHolding
	if uc.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	holding, err := uc.derivedRepo.GetAssetHolding(ctx, vaultID, asset, account)
	if err != nil {
		return nil, err
	}

	uc.cacheSet(ctx, key, holding)

	return holding, nil
}

// GetEntry returns a single ledger entry by ID.
func (uc *QueryUseCase) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// ListEntriesInput represents input for listing entries of a scope.
type ListEntriesInput struct {
	Scope            domain.Scope
	IncludeReversals bool
	Limit            int
	Offset           int
}

// ListEntries lists the entries of a scope ordered by (timestamp, id). The
// page is cut after the fetch; scope histories are bounded by the same full
// rescans every append already performs.
func (uc *QueryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	entries, err := uc.entryRepo.ListByScope(ctx, input.Scope, input.IncludeReversals)
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []*domain.LedgerEntry{}, nil
	}

	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}

	return entries[offset:end], nil
}

func (uc *QueryUseCase) cacheGet(ctx context.Context, key string, out any) bool {
	if uc.cache == nil {
		return false
	}

	data, err := uc.cache.Get(ctx, key)
	if err != nil || data == nil {
		return false
	}

	return json.Unmarshal(data, out) == nil
}

func (uc *QueryUseCase) cacheSet(ctx context.Context, key string, value any) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	// Best effort: cache failures never fail the read.
	_ = uc.cache.Set(ctx, key, data, uc.cacheTTL)
}
