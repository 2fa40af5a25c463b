package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID            string          `json:"id"`
	VaultID       string          `json:"vault_id"`
	UserID        string          `json:"user_id,omitempty"`
	EntryType     string          `json:"entry_type"`
	Status        string          `json:"status"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	Shares        decimal.Decimal `json:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share"`
	Asset         string          `json:"asset,omitempty"`
	Account       string          `json:"account,omitempty"`
	AssetQuantity decimal.Decimal `json:"asset_quantity"`
	AssetPrice    decimal.Decimal `json:"asset_price"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	FeeType       string          `json:"fee_type,omitempty"`
	FeeRate       decimal.Decimal `json:"fee_rate"`

	AUMBefore        decimal.Decimal `json:"aum_before"`
	AUMAfter         decimal.Decimal `json:"aum_after"`
	SharePriceBefore decimal.Decimal `json:"share_price_before"`
	SharePriceAfter  decimal.Decimal `json:"share_price_after"`
	UserSharesBefore decimal.Decimal `json:"user_shares_before"`
	UserSharesAfter  decimal.Decimal `json:"user_shares_after"`

	Timestamp      time.Time `json:"timestamp"`
	IsReversal     bool      `json:"is_reversal"`
	ReversalOfID   *string   `json:"reversal_of_id,omitempty"`
	ReversalReason string    `json:"reversal_reason,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:               e.ID,
		VaultID:          e.VaultID,
		UserID:           e.UserID,
		EntryType:        string(e.Type),
		Status:           string(e.Status),
		AmountUSD:        e.AmountUSD,
		Shares:           e.Shares,
		PricePerShare:    e.PricePerShare,
		Asset:            e.Asset,
		Account:          e.Account,
		AssetQuantity:    e.AssetQuantity,
		AssetPrice:       e.AssetPrice,
		FeeAmount:        e.FeeAmount,
		FeeType:          e.FeeType,
		FeeRate:          e.FeeRate,
		AUMBefore:        e.AUMBefore,
		AUMAfter:         e.AUMAfter,
		SharePriceBefore: e.SharePriceBefore,
		SharePriceAfter:  e.SharePriceAfter,
		UserSharesBefore: e.UserSharesBefore,
		UserSharesAfter:  e.UserSharesAfter,
		Timestamp:        e.Timestamp,
		IsReversal:       e.IsReversal,
		ReversalOfID:     e.ReversalOfID,
		ReversalReason:   e.ReversalReason,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse represents a list of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int64            `json:"total"`
}

// VaultStateResponse represents the vault aggregate in API responses.
type VaultStateResponse struct {
	VaultID          string          `json:"vault_id"`
	TotalShares      decimal.Decimal `json:"total_shares"`
	TotalAUM         decimal.Decimal `json:"total_aum"`
	SharePrice       decimal.Decimal `json:"share_price"`
	TransactionCount int64           `json:"transaction_count"`
	LastEntryID      string          `json:"last_entry_id,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// VaultStateFromDomain converts a domain vault state to a response.
func VaultStateFromDomain(s *domain.VaultState) *VaultStateResponse {
	return &VaultStateResponse{
		VaultID:          s.VaultID,
		TotalShares:      s.TotalShares,
		TotalAUM:         s.TotalAUM,
		SharePrice:       s.SharePrice,
		TransactionCount: s.TransactionCount,
		LastEntryID:      s.LastEntryID,
		UpdatedAt:        s.UpdatedAt,
	}
}

// UserHoldingResponse represents a user holding in API responses.
type UserHoldingResponse struct {
	VaultID          string          `json:"vault_id"`
	UserID           string          `json:"user_id"`
	ShareBalance     decimal.Decimal `json:"share_balance"`
	NetDeposits      decimal.Decimal `json:"net_deposits"`
	TotalFeesPaid    decimal.Decimal `json:"total_fees_paid"`
	TransactionCount int64           `json:"transaction_count"`
	LastEntryID      string          `json:"last_entry_id,omitempty"`
	LastActivityAt   time.Time       `json:"last_activity_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// UserHoldingFromDomain converts a domain user holding to a response.
func UserHoldingFromDomain(h *domain.UserHolding) *UserHoldingResponse {
	return &UserHoldingResponse{
		VaultID:          h.VaultID,
		UserID:           h.UserID,
		ShareBalance:     h.ShareBalance,
		NetDeposits:      h.NetDeposits,
		TotalFeesPaid:    h.TotalFeesPaid,
		TransactionCount: h.TransactionCount,
		LastEntryID:      h.LastEntryID,
		LastActivityAt:   h.LastActivityAt,
		UpdatedAt:        h.UpdatedAt,
	}
}

// AssetHoldingResponse represents an asset position in API responses.
type AssetHoldingResponse struct {
	VaultID          string          `json:"vault_id"`
	Asset            string          `json:"asset"`
	Account          string          `json:"account"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	TotalValue       decimal.Decimal `json:"total_value"`
	TransactionCount int64           `json:"transaction_count"`
	LastEntryID      string          `json:"last_entry_id,omitempty"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AssetHoldingFromDomain converts a domain asset holding to a response.
func AssetHoldingFromDomain(h *domain.AssetHolding) *AssetHoldingResponse {
	return &AssetHoldingResponse{
		VaultID:          h.VaultID,
		Asset:            h.Asset,
		Account:          h.Account,
		TotalQuantity:    h.TotalQuantity,
		TotalValue:       h.TotalValue,
		TransactionCount: h.TransactionCount,
		LastEntryID:      h.LastEntryID,
		UpdatedAt:        h.UpdatedAt,
	}
}

// ReconciliationResponse represents a vault reconciliation result.
type ReconciliationResponse struct {
	VaultID    string              `json:"vault_id"`
	Consistent bool                `json:"consistent"`
	Stored     *VaultStateResponse `json:"stored,omitempty"`
	Computed   *VaultStateResponse `json:"computed"`
}

// ReconciliationFromDomain converts a reconciliation result to a response.
func ReconciliationFromDomain(r *usecase.VaultReconciliation) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		VaultID:    r.VaultID,
		Consistent: r.Consistent,
		Computed:   VaultStateFromDomain(r.Computed),
	}

	if r.Stored != nil {
		resp.Stored = VaultStateFromDomain(r.Stored)
	}

	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
