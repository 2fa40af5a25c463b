package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VaultState is the materialized whole-vault aggregate. It is a pure cache:
// always a deterministic function of the vault's ledger entries, fully
// replaced on each recomputation and never hand-edited.
type VaultState struct {
	VaultID          string
	TotalShares      decimal.Decimal
	TotalAUM         decimal.Decimal
	SharePrice       decimal.Decimal
	TransactionCount int64
	LastEntryID      string
	UpdatedAt        time.Time
}

// UserHolding is the materialized per-user aggregate within a vault.
type UserHolding struct {
	VaultID          string
	UserID           string
	ShareBalance     decimal.Decimal
	NetDeposits      decimal.Decimal
	TotalFeesPaid    decimal.Decimal
	TransactionCount int64
	LastEntryID      string
	LastActivityAt   time.Time
	UpdatedAt        time.Time
}

// AssetHolding is the materialized per-asset position within a vault.
type AssetHolding struct {
	VaultID          string
	Asset            string
	Account          string
	TotalQuantity    decimal.Decimal
	TotalValue       decimal.Decimal
	TransactionCount int64
	LastEntryID      string
	UpdatedAt        time.Time
}

// ParSharePrice is the share price of a vault with no shares outstanding.
var ParSharePrice = decimal.NewFromInt(1)
