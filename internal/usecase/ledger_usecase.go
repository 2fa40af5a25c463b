package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
)

// LedgerUseCase is the dispatcher for the vault ledger: it orchestrates
// Append -> Validate -> Commit -> Recompute-affected-scopes as one atomic
// unit. If any recomputation step fails, the append itself is rolled back so
// the ledger and its derived state never diverge.
type LedgerUseCase struct {
	txManager   TransactionManager
	entryRepo   EntryRepository
	derivedRepo DerivedStateRepository
	locker      ScopeLocker
	outboxRepo  OutboxRepository
	cache       Cache
	idGen       IDGenerator
	metrics     MetricsRecorder
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	derivedRepo DerivedStateRepository,
	locker ScopeLocker,
	idGen IDGenerator,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		entryRepo:   entryRepo,
		derivedRepo: derivedRepo,
		locker:      locker,
		idGen:       idGen,
		metrics:     NopMetrics{},
	}
}

// WithOutbox enables transactional outbox events.
func (uc *LedgerUseCase) WithOutbox(outboxRepo OutboxRepository) *LedgerUseCase {
	uc.outboxRepo = outboxRepo
	return uc
}

// WithCache enables invalidation of the derived-state read cache on append.
func (uc *LedgerUseCase) WithCache(cache Cache) *LedgerUseCase {
	uc.cache = cache
	return uc
}

// WithMetrics enables ledger metrics.
func (uc *LedgerUseCase) WithMetrics(metrics MetricsRecorder) *LedgerUseCase {
	uc.metrics = metrics
	return uc
}

// AppendEntryInput represents input for appending a ledger entry.
type AppendEntryInput struct {
	VaultID        string
	UserID         string
	Type           domain.EntryType
	AmountUSD      decimal.Decimal
	Shares         decimal.Decimal
	PricePerShare  decimal.Decimal
	Asset          string
	Account        string
	AssetQuantity  decimal.Decimal
	AssetPrice     decimal.Decimal
	FeeAmount      decimal.Decimal
	FeeType        string
	FeeRate        decimal.Decimal
	Timestamp      *time.Time
	ReversalOfID   *string
	ReversalReason string
	CreatedBy      string
}

// Append validates and persists one ledger entry, then recomputes every
// affected scope inside the same transaction.
func (uc *LedgerUseCase) Append(ctx context.Context, input AppendEntryInput) (*domain.LedgerEntry, error) {
	start := time.Now()

	entry, err := uc.appendOnce(ctx, input)
	if err != nil {
		uc.metrics.IncAppendError(errType(err))
		return nil, err
	}

	uc.metrics.ObserveAppend(string(entry.Type), time.Since(start).Seconds())

	return entry, nil
}

func (uc *LedgerUseCase) appendOnce(ctx context.Context, input AppendEntryInput) (*domain.LedgerEntry, error) {
	now := time.Now().UTC()

	timestamp := now
	if input.Timestamp != nil {
		timestamp = input.Timestamp.UTC()
	}

	entry := &domain.LedgerEntry{
		ID:             uc.idGen.Generate(),
		VaultID:        input.VaultID,
		UserID:         input.UserID,
		Type:           input.Type,
		Status:         domain.EntryStatusCompleted,
		AmountUSD:      input.AmountUSD,
		Shares:         input.Shares,
		PricePerShare:  input.PricePerShare,
		Asset:          input.Asset,
		Account:        input.Account,
		AssetQuantity:  input.AssetQuantity,
		AssetPrice:     input.AssetPrice,
		FeeAmount:      input.FeeAmount,
		FeeType:        input.FeeType,
		FeeRate:        input.FeeRate,
		Timestamp:      timestamp,
		IsReversal:     input.ReversalOfID != nil,
		ReversalOfID:   input.ReversalOfID,
		ReversalReason: input.ReversalReason,
		CreatedBy:      input.CreatedBy,
		CreatedAt:      now,
	}

	// 1. Pure invariant checks, before any mutation.
	if err := domain.ValidateEntry(entry); err != nil {
		return nil, err
	}

	// 2. Reversal integrity against committed state. The partial unique
	// index on reversal_of_id backstops the race where two reversals of the
	// same entry validate concurrently.
	if entry.ReversalOfID != nil {
		if err := uc.checkReversal(ctx, entry); err != nil {
			return nil, err
		}
	}

	// 3. One transaction for append + every triggered recomputation.
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// 4. Serialize against concurrent postings: lock affected scopes in
	// sorted key order to avoid lock-order deadlocks.
	scopes := domain.ScopesOf(entry)
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Key() < scopes[j].Key() })

	for _, scope := range scopes {
		if err := uc.locker.Lock(ctx, tx, scope.Key()); err != nil {
			return nil, err
		}
	}

	// 5. Fold current state, stamp the entry's snapshot fields, insert, then
	// fold again with the new entry and replace the derived rows.
	vaultState, err := uc.recomputeScopes(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	if uc.outboxRepo != nil {
		if err := uc.writeOutboxEvents(ctx, tx, entry, vaultState); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	uc.invalidateCache(ctx, entry)

	return entry, nil
}

func (uc *LedgerUseCase) checkReversal(ctx context.Context, entry *domain.LedgerEntry) error {
	target, err := uc.entryRepo.GetByID(ctx, *entry.ReversalOfID)
	if err != nil {
		return err
	}

	existing, err := uc.entryRepo.FindReversalOf(ctx, target.ID)
	if err != nil {
		return err
	}

	return domain.ValidateReversal(entry, target, existing)
}

// recomputeScopes performs the fold-and-write step for every scope the entry
// affects. Each scope is read inside the transaction, folded before and
// after the new entry, and its derived row fully replaced. It returns the
// vault aggregate after the fold.
func (uc *LedgerUseCase) recomputeScopes(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) (*domain.VaultState, error) {
	now := time.Now().UTC()

	vaultScope := domain.VaultScope(entry.VaultID)
	vaultEntries, err := uc.entryRepo.ListByScopeTx(ctx, tx, vaultScope, true)
	if err != nil {
		return nil, err
	}

	stateBefore := FoldVaultState(entry.VaultID, vaultEntries)
	stateAfter := FoldVaultState(entry.VaultID, withEntry(vaultEntries, entry))

	entry.AUMBefore = stateBefore.TotalAUM
	entry.AUMAfter = stateAfter.TotalAUM
	entry.SharePriceBefore = stateBefore.SharePrice
	entry.SharePriceAfter = stateAfter.SharePrice

	var userBefore, userAfter *domain.UserHolding
	if entry.UserID != "" {
		userScope := domain.UserScope(entry.VaultID, entry.UserID)
		userEntries, err := uc.entryRepo.ListByScopeTx(ctx, tx, userScope, true)
		if err != nil {
			return nil, err
		}

		userBefore = FoldUserHolding(entry.VaultID, entry.UserID, userEntries)
		userAfter = FoldUserHolding(entry.VaultID, entry.UserID, withEntry(userEntries, entry))

		entry.UserSharesBefore = userBefore.ShareBalance
		entry.UserSharesAfter = userAfter.ShareBalance
	}

	var assetAfter *domain.AssetHolding
	if entry.HasAssetLeg() {
		assetScope := domain.AssetScope(entry.VaultID, entry.Asset, entry.Account)
		assetEntries, err := uc.entryRepo.ListByScopeTx(ctx, tx, assetScope, true)
		if err != nil {
			return nil, err
		}

		assetAfter = FoldAssetHolding(entry.VaultID, entry.Asset, entry.Account, withEntry(assetEntries, entry))
	}

	if err := uc.entryRepo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}

	recomputeStart := time.Now()

	stateAfter.UpdatedAt = now
	if err := uc.derivedRepo.ReplaceVaultState(ctx, tx, stateAfter); err != nil {
		return nil, err
	}
	uc.metrics.ObserveRecompute(string(domain.ScopeKindVault), time.Since(recomputeStart).Seconds())

	if userAfter != nil {
		userAfter.UpdatedAt = now
		if err := uc.derivedRepo.ReplaceUserHolding(ctx, tx, userAfter); err != nil {
			return nil, err
		}
	}

	if assetAfter != nil {
		assetAfter.UpdatedAt = now
		if err := uc.derivedRepo.ReplaceAssetHolding(ctx, tx, assetAfter); err != nil {
			return nil, err
		}
	}

	return stateAfter, nil
}

func (uc *LedgerUseCase) writeOutboxEvents(ctx context.Context, tx Transaction, entry *domain.LedgerEntry, state *domain.VaultState) error {
	now := time.Now().UTC()

	eventType := domain.EventTypeEntryAppended
	payload := map[string]any{
		"entry_id":   entry.ID,
		"vault_id":   entry.VaultID,
		"entry_type": string(entry.Type),
		"amount_usd": entry.AmountUSD.String(),
		"shares":     entry.Shares.String(),
	}

	if entry.UserID != "" {
		payload["user_id"] = entry.UserID
	}

	if entry.IsReversal && entry.ReversalOfID != nil {
		eventType = domain.EventTypeEntryReversed
		payload["original_entry_id"] = *entry.ReversalOfID
		if entry.ReversalReason != "" {
			payload["reason"] = entry.ReversalReason
		}
	}

	err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeEntry,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}

	// A second event carries the vault aggregate every append leaves behind,
	// for consumers that track vault totals instead of individual entries.
	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   state.VaultID,
		AggregateType: domain.AggregateTypeVault,
		EventType:     domain.EventTypeVaultRecomputed,
		Payload: map[string]any{
			"vault_id":      state.VaultID,
			"total_shares":  state.TotalShares.String(),
			"total_aum":     state.TotalAUM.String(),
			"share_price":   state.SharePrice.String(),
			"last_entry_id": state.LastEntryID,
		},
		CreatedAt: now,
	})
}

func (uc *LedgerUseCase) invalidateCache(ctx context.Context, entry *domain.LedgerEntry) {
	if uc.cache == nil {
		return
	}

	// Best effort: a stale cache row expires on its own TTL.
	_ = uc.cache.Delete(ctx, cacheKeyVaultState+entry.VaultID)

	if entry.UserID != "" {
		_ = uc.cache.Delete(ctx, cacheKeyUserHolding+entry.VaultID+":"+entry.UserID)
	}

	if entry.HasAssetLeg() {
		_ = uc.cache.Delete(ctx, cacheKeyAssetHolding+entry.VaultID+":"+entry.Asset+":"+entry.Account)
	}
}

// ReverseEntryInput represents input for reversing a committed entry.
type ReverseEntryInput struct {
	EntryID   string
	Reason    string
	CreatedBy string
}

// ReverseEntry appends a reversal entry mirroring the original. The original
// stays in the ledger; the fold excludes the pair, netting every affected
// aggregate back to its pre-original-entry state.
func (uc *LedgerUseCase) ReverseEntry(ctx context.Context, input ReverseEntryInput) (*domain.LedgerEntry, error) {
	original, err := uc.entryRepo.GetByID(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}

	return uc.Append(ctx, AppendEntryInput{
		VaultID:        original.VaultID,
		UserID:         original.UserID,
		Type:           original.Type,
		AmountUSD:      original.AmountUSD,
		Shares:         original.Shares,
		PricePerShare:  original.PricePerShare,
		Asset:          original.Asset,
		Account:        original.Account,
		AssetQuantity:  original.AssetQuantity,
		AssetPrice:     original.AssetPrice,
		FeeAmount:      original.FeeAmount,
		FeeType:        original.FeeType,
		FeeRate:        original.FeeRate,
		ReversalOfID:   &original.ID,
		ReversalReason: input.Reason,
		CreatedBy:      input.CreatedBy,
	})
}

// withEntry returns entries plus the candidate, ordered by (timestamp, id).
func withEntry(entries []*domain.LedgerEntry, entry *domain.LedgerEntry) []*domain.LedgerEntry {
	merged := make([]*domain.LedgerEntry, 0, len(entries)+1)
	merged = append(merged, entries...)
	merged = append(merged, entry)

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Timestamp.Equal(merged[j].Timestamp) {
			return merged[i].Timestamp.Before(merged[j].Timestamp)
		}
		return merged[i].ID < merged[j].ID
	})

	return merged
}

func errType(err error) string {
	switch {
	case errors.Is(err, domain.ErrConcurrencyTimeout):
		return "concurrency_timeout"
	case errors.Is(err, domain.ErrReversalConflict), errors.Is(err, domain.ErrReversalOfReversal):
		return "reversal_conflict"
	case errors.Is(err, domain.ErrEntryNotFound):
		return "not_found"
	case domain.IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}
