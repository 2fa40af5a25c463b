package usecase

import (
	"context"
	"errors"

	"github.com/finvault/vaultledger/internal/domain"
)

// ReconciliationUseCase verifies that the materialized aggregates match a
// fresh fold over the ledger. Any divergence means the cache was corrupted
// out of band, since every append replaces the derived rows transactionally.
type ReconciliationUseCase struct {
	entryRepo   EntryRepository
	derivedRepo DerivedStateRepository
}

// NewReconciliationUseCase creates a new ReconciliationUseCase.
func NewReconciliationUseCase(entryRepo EntryRepository, derivedRepo DerivedStateRepository) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		entryRepo:   entryRepo,
		derivedRepo: derivedRepo,
	}
}

// VaultReconciliation is the result of reconciling one vault.
type VaultReconciliation struct {
	VaultID    string
	Consistent bool
	Stored     *domain.VaultState
	Computed   *domain.VaultState
}

// ReconcileVault recomputes the vault aggregate from its full entry history
// and compares it with the stored row.
func (uc *ReconciliationUseCase) ReconcileVault(ctx context.Context, vaultID string) (*VaultReconciliation, error) {
	entries, err := uc.entryRepo.ListByScope(ctx, domain.VaultScope(vaultID), true)
	if err != nil {
		return nil, err
	}

	computed := FoldVaultState(vaultID, entries)

	stored, err := uc.derivedRepo.GetVaultState(ctx, vaultID)
	if err != nil {
		if errors.Is(err, domain.ErrVaultStateNotFound) {
			// A vault with no appends has no derived row; that is consistent
			// with an empty fold.
			return &VaultReconciliation{
				VaultID:    vaultID,
				Consistent: computed.TransactionCount == 0,
				Computed:   computed,
			}, nil
		}

		return nil, err
	}

	consistent := stored.TotalShares.Equal(computed.TotalShares) &&
		stored.TotalAUM.Equal(computed.TotalAUM) &&
		stored.SharePrice.Equal(computed.SharePrice) &&
		stored.TransactionCount == computed.TransactionCount &&
		stored.LastEntryID == computed.LastEntryID

	return &VaultReconciliation{
		VaultID:    vaultID,
		Consistent: consistent,
		Stored:     stored,
		Computed:   computed,
	}, nil
}
