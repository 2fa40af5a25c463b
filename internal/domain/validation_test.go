package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func validDeposit() *LedgerEntry {
	return &LedgerEntry{
		ID:        "entry-1",
		VaultID:   "vault-1",
		UserID:    "user-1",
		Type:      EntryTypeDeposit,
		AmountUSD: decimal.NewFromInt(100),
		Shares:    decimal.NewFromInt(100),
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *LedgerEntry)
		wantErr error
	}{
		{
			name:   "valid deposit",
			mutate: func(e *LedgerEntry) {},
		},
		{
			name:    "missing vault ID",
			mutate:  func(e *LedgerEntry) { e.VaultID = "" },
			wantErr: ErrMissingVaultID,
		},
		{
			name:    "unknown entry type",
			mutate:  func(e *LedgerEntry) { e.Type = "transfer" },
			wantErr: ErrInvalidEntryType,
		},
		{
			name:    "negative amount",
			mutate:  func(e *LedgerEntry) { e.AmountUSD = decimal.NewFromInt(-1) },
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "negative shares",
			mutate:  func(e *LedgerEntry) { e.Shares = decimal.NewFromInt(-1) },
			wantErr: ErrNegativeShares,
		},
		{
			name:    "negative price per share",
			mutate:  func(e *LedgerEntry) { e.PricePerShare = decimal.NewFromInt(-1) },
			wantErr: ErrNegativePrice,
		},
		{
			name:    "negative fee amount",
			mutate:  func(e *LedgerEntry) { e.FeeAmount = decimal.NewFromInt(-1) },
			wantErr: ErrNegativeFee,
		},
		{
			name:    "negative fee rate",
			mutate:  func(e *LedgerEntry) { e.FeeRate = decimal.NewFromInt(-1) },
			wantErr: ErrNegativeFeeRate,
		},
		{
			name:    "deposit without user",
			mutate:  func(e *LedgerEntry) { e.UserID = "" },
			wantErr: ErrUserIDRequired,
		},
		{
			name: "mint without shares",
			mutate: func(e *LedgerEntry) {
				e.Type = EntryTypeMintShares
				e.Shares = decimal.Zero
			},
			wantErr: ErrSharesRequired,
		},
		{
			name: "withdrawal without amount",
			mutate: func(e *LedgerEntry) {
				e.Type = EntryTypeWithdrawal
				e.AmountUSD = decimal.Zero
			},
			wantErr: ErrAmountRequired,
		},
		{
			name: "negative sign checked before missing user",
			mutate: func(e *LedgerEntry) {
				e.UserID = ""
				e.AmountUSD = decimal.NewFromInt(-5)
			},
			wantErr: ErrNegativeAmount,
		},
		{
			name: "yield without user is valid",
			mutate: func(e *LedgerEntry) {
				e.Type = EntryTypeYield
				e.UserID = ""
				e.Shares = decimal.Zero
			},
		},
		{
			name: "valuation with zero amount is valid",
			mutate: func(e *LedgerEntry) {
				e.Type = EntryTypeValuation
				e.UserID = ""
				e.AmountUSD = decimal.Zero
				e.Shares = decimal.Zero
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validDeposit()
			tt.mutate(e)

			err := ValidateEntry(e)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateEntry() = %v, want nil", err)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateEntry() = %v, want %v", err, tt.wantErr)
			}
			if !IsValidationError(err) {
				t.Fatalf("IsValidationError(%v) = false, want true", err)
			}
		})
	}
}

func TestValidateReversal(t *testing.T) {
	targetID := "entry-1"
	reversal := &LedgerEntry{
		ID:           "entry-2",
		VaultID:      "vault-1",
		IsReversal:   true,
		ReversalOfID: &targetID,
	}

	t.Run("valid reversal", func(t *testing.T) {
		target := validDeposit()
		if err := ValidateReversal(reversal, target, nil); err != nil {
			t.Fatalf("ValidateReversal() = %v, want nil", err)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		err := ValidateReversal(reversal, nil, nil)
		if !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("ValidateReversal() = %v, want %v", err, ErrEntryNotFound)
		}
	})

	t.Run("target is itself a reversal", func(t *testing.T) {
		target := validDeposit()
		target.IsReversal = true
		err := ValidateReversal(reversal, target, nil)
		if !errors.Is(err, ErrReversalOfReversal) {
			t.Fatalf("ValidateReversal() = %v, want %v", err, ErrReversalOfReversal)
		}
	})

	t.Run("target already reversed", func(t *testing.T) {
		target := validDeposit()
		existing := &LedgerEntry{ID: "entry-3", IsReversal: true, ReversalOfID: &targetID}
		err := ValidateReversal(reversal, target, existing)
		if !errors.Is(err, ErrReversalConflict) {
			t.Fatalf("ValidateReversal() = %v, want %v", err, ErrReversalConflict)
		}
	})

	t.Run("non-reversal entry passes", func(t *testing.T) {
		if err := ValidateReversal(validDeposit(), nil, nil); err != nil {
			t.Fatalf("ValidateReversal() = %v, want nil", err)
		}
	})
}

func TestIsValidationErrorRejectsOtherErrors(t *testing.T) {
	if IsValidationError(ErrEntryNotFound) {
		t.Fatal("IsValidationError(ErrEntryNotFound) = true, want false")
	}
	if IsValidationError(nil) {
		t.Fatal("IsValidationError(nil) = true, want false")
	}
}
