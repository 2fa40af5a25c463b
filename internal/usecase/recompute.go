package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
)

// The fold functions below rebuild derived aggregates from scratch on every
// affecting append. They are pure: given the same ordered entry set they
// produce identical output, which is what allows each recomputation to fully
// replace the cached row instead of patching it.
//
// Reversal policy: a reversal entry and the entry it reverses are both
// excluded from the fold, netting the aggregate back to its
// pre-original-entry state.

// FoldVaultState computes the whole-vault aggregate from its entries,
// ordered by (timestamp, id) and including reversals.
func FoldVaultState(vaultID string, entries []*domain.LedgerEntry) *domain.VaultState {
	state := &domain.VaultState{
		VaultID:     vaultID,
		TotalShares: decimal.Zero,
		TotalAUM:    decimal.Zero,
	}

	for _, e := range effectiveEntries(entries) {
		switch {
		case e.Type == domain.EntryTypeValuation:
			// A valuation marks the vault to its reported value; later
			// credits and debits apply on top of that base.
			state.TotalAUM = e.AmountUSD
		case e.Type.IsCredit():
			state.TotalAUM = state.TotalAUM.Add(e.AmountUSD)
			state.TotalShares = state.TotalShares.Add(e.Shares)
		case e.Type.IsDebit():
			state.TotalAUM = state.TotalAUM.Sub(e.AmountUSD)
			state.TotalShares = state.TotalShares.Sub(e.Shares)
		}

		state.TransactionCount++
		state.LastEntryID = e.ID
	}

	if state.TotalShares.IsPositive() {
		state.SharePrice = state.TotalAUM.Div(state.TotalShares)
	} else {
		// An empty vault is priced at par.
		state.SharePrice = domain.ParSharePrice
	}

	return state
}

// FoldUserHolding computes a user's holding from the vault+user scope
// entries.
func FoldUserHolding(vaultID, userID string, entries []*domain.LedgerEntry) *domain.UserHolding {
	holding := &domain.UserHolding{
		VaultID:       vaultID,
		UserID:        userID,
		ShareBalance:  decimal.Zero,
		NetDeposits:   decimal.Zero,
		TotalFeesPaid: decimal.Zero,
	}

	for _, e := range effectiveEntries(entries) {
		switch {
		case e.Type.IsCredit():
			holding.ShareBalance = holding.ShareBalance.Add(e.Shares)
		case e.Type.IsDebit():
			holding.ShareBalance = holding.ShareBalance.Sub(e.Shares)
		}

		switch e.Type {
		case domain.EntryTypeDeposit:
			holding.NetDeposits = holding.NetDeposits.Add(e.AmountUSD)
		case domain.EntryTypeWithdrawal:
			holding.NetDeposits = holding.NetDeposits.Sub(e.AmountUSD)
		case domain.EntryTypeFee:
			holding.TotalFeesPaid = holding.TotalFeesPaid.Add(e.AmountUSD)
		}

		// Fees charged as part of another operation.
		if e.Type != domain.EntryTypeFee && e.FeeAmount.IsPositive() {
			holding.TotalFeesPaid = holding.TotalFeesPaid.Add(e.FeeAmount)
		}

		holding.TransactionCount++
		holding.LastEntryID = e.ID
		holding.LastActivityAt = e.Timestamp
	}

	return holding
}

// FoldAssetHolding computes an asset position from the vault+asset+account
// scope entries.
func FoldAssetHolding(vaultID, asset, account string, entries []*domain.LedgerEntry) *domain.AssetHolding {
	holding := &domain.AssetHolding{
		VaultID:       vaultID,
		Asset:         asset,
		Account:       account,
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
	}

	for _, e := range effectiveEntries(entries) {
		value := e.AssetQuantity.Mul(e.AssetPrice)

		switch {
		case e.Type == domain.EntryTypeValuation:
			holding.TotalValue = value
		case e.Type.IsCredit():
			holding.TotalQuantity = holding.TotalQuantity.Add(e.AssetQuantity)
			holding.TotalValue = holding.TotalValue.Add(value)
		case e.Type.IsDebit():
			holding.TotalQuantity = holding.TotalQuantity.Sub(e.AssetQuantity)
			holding.TotalValue = holding.TotalValue.Sub(value)
		}

		holding.TransactionCount++
		holding.LastEntryID = e.ID
	}

	return holding
}

// effectiveEntries filters out reversal entries and the entries they
// reverse, preserving order.
func effectiveEntries(entries []*domain.LedgerEntry) []*domain.LedgerEntry {
	reversed := make(map[string]bool)
	for _, e := range entries {
		if e.IsReversal && e.ReversalOfID != nil {
			reversed[*e.ReversalOfID] = true
		}
	}

	result := make([]*domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsReversal || reversed[e.ID] {
			continue
		}
		result = append(result, e)
	}

	return result
}
