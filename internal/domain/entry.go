package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry by the financial operation it records.
type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
	EntryTypeMintShares EntryType = "mint_shares"
	EntryTypeBurnShares EntryType = "burn_shares"
	EntryTypeYield      EntryType = "yield"
	EntryTypeIncome     EntryType = "income"
	EntryTypeFee        EntryType = "fee"
	EntryTypeExpense    EntryType = "expense"
	EntryTypeValuation  EntryType = "valuation"
)

// EntryStatus is the lifecycle status of an entry. Entries are written once
// and never transition after commit.
type EntryStatus string

const (
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusPending   EntryStatus = "pending"
)

// Fee types recorded on fee entries.
const (
	FeeTypeManagement  = "management"
	FeeTypePerformance = "performance"
	FeeTypeCustody     = "custody"
	FeeTypeOther       = "other"
)

// LedgerEntry is one immutable financial event within a vault. Corrections
// are new entries with IsReversal set, never in-place edits.
type LedgerEntry struct {
	ID            string
	VaultID       string
	UserID        string
	Type          EntryType
	Status        EntryStatus
	AmountUSD     decimal.Decimal
	Shares        decimal.Decimal
	PricePerShare decimal.Decimal

	Asset         string
	Account       string
	AssetQuantity decimal.Decimal
	AssetPrice    decimal.Decimal

	FeeAmount decimal.Decimal
	FeeType   string
	FeeRate   decimal.Decimal

	// Snapshot of derived state around this entry, stamped by the dispatcher.
	AUMBefore        decimal.Decimal
	AUMAfter         decimal.Decimal
	SharePriceBefore decimal.Decimal
	SharePriceAfter  decimal.Decimal
	UserSharesBefore decimal.Decimal
	UserSharesAfter  decimal.Decimal

	Timestamp      time.Time
	IsReversal     bool
	ReversalOfID   *string
	ReversalReason string
	CreatedBy      string
	CreatedAt      time.Time
}

// IsCredit reports whether the entry type contributes positively to vault
// totals.
func (t EntryType) IsCredit() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeMintShares, EntryTypeYield, EntryTypeIncome:
		return true
	}
	return false
}

// IsDebit reports whether the entry type contributes negatively to vault
// totals.
func (t EntryType) IsDebit() bool {
	switch t {
	case EntryTypeWithdrawal, EntryTypeBurnShares, EntryTypeFee, EntryTypeExpense:
		return true
	}
	return false
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t.IsCredit() || t.IsDebit() || t == EntryTypeValuation
}

// RequiresUser reports whether entries of this type must carry a user ID.
func (t EntryType) RequiresUser() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeMintShares, EntryTypeBurnShares:
		return true
	}
	return false
}

// HasAssetLeg reports whether the entry carries an asset position change.
func (e *LedgerEntry) HasAssetLeg() bool {
	return e.Asset != "" && e.Account != ""
}
