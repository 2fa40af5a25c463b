package domain

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrMissingVaultID   = errors.New("vault ID is required")
	ErrNegativeAmount   = errors.New("amount_usd must not be negative")
	ErrNegativeShares   = errors.New("shares must not be negative")
	ErrNegativePrice    = errors.New("price_per_share must not be negative")
	ErrNegativeFee      = errors.New("fee_amount must not be negative")
	ErrNegativeFeeRate  = errors.New("fee_rate must not be negative")
	ErrUserIDRequired   = errors.New("user_id is required for this entry type")
	ErrSharesRequired   = errors.New("shares must be positive for this entry type")
	ErrAmountRequired   = errors.New("amount_usd must be positive for this entry type")
)

var validationErrors = []error{
	ErrInvalidEntryType,
	ErrMissingVaultID,
	ErrNegativeAmount,
	ErrNegativeShares,
	ErrNegativePrice,
	ErrNegativeFee,
	ErrNegativeFeeRate,
	ErrUserIDRequired,
	ErrSharesRequired,
	ErrAmountRequired,
}

// IsValidationError reports whether err is one of the entry validation
// errors. These are permanent: retrying the same append cannot succeed.
func IsValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// ValidateEntry checks a candidate entry against the ledger invariants that
// do not depend on existing ledger state. Checks run in a fixed order and
// fail fast: sign constraints first, then required-field-by-type rules.
func ValidateEntry(e *LedgerEntry) error {
	if e.VaultID == "" {
		return ErrMissingVaultID
	}

	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, e.Type)
	}

	// 1. Sign constraints
	if e.AmountUSD.IsNegative() {
		return ErrNegativeAmount
	}

	if e.Shares.IsNegative() {
		return ErrNegativeShares
	}

	if e.PricePerShare.IsNegative() {
		return ErrNegativePrice
	}

	if e.FeeAmount.IsNegative() {
		return ErrNegativeFee
	}

	if e.FeeRate.IsNegative() {
		return ErrNegativeFeeRate
	}

	// 2. Required fields by type
	if e.Type.RequiresUser() && e.UserID == "" {
		return fmt.Errorf("%w: %s", ErrUserIDRequired, e.Type)
	}

	switch e.Type {
	case EntryTypeMintShares, EntryTypeBurnShares:
		if !e.Shares.IsPositive() {
			return fmt.Errorf("%w: %s", ErrSharesRequired, e.Type)
		}
	case EntryTypeDeposit, EntryTypeWithdrawal:
		if !e.AmountUSD.IsPositive() {
			return fmt.Errorf("%w: %s", ErrAmountRequired, e.Type)
		}
	}

	return nil
}

// ValidateReversal checks reversal integrity for a candidate reversal entry.
// target is the entry being reversed; existingReversal is any committed
// reversal already referencing the target (nil when none exists).
func ValidateReversal(e *LedgerEntry, target *LedgerEntry, existingReversal *LedgerEntry) error {
	if e.ReversalOfID == nil {
		return nil
	}

	if target == nil {
		return fmt.Errorf("%w: reversal target %s", ErrEntryNotFound, *e.ReversalOfID)
	}

	if target.IsReversal {
		return ErrReversalOfReversal
	}

	if existingReversal != nil {
		return fmt.Errorf("%w: entry %s reversed by %s", ErrReversalConflict, target.ID, existingReversal.ID)
	}

	return nil
}
