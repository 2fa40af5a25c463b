package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// AppendEntryRequest represents a request to append a ledger entry.
type AppendEntryRequest struct {
	UserID        string          `json:"user_id,omitempty"`
	EntryType     string          `json:"entry_type"`
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
	Timestamp     *time.Time      `json:"timestamp,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
}

// ToUseCaseInput converts to use case input. The vault comes from the URL,
// not the body.
func (r *AppendEntryRequest) ToUseCaseInput(vaultID string) usecase.AppendEntryInput {
	return usecase.AppendEntryInput{
		VaultID:       vaultID,
		UserID:        r.UserID,
		Type:          domain.EntryType(r.EntryType),
		AmountUSD:     r.AmountUSD,
		Shares:        r.Shares,
		PricePerShare: r.PricePerShare,
		Asset:         r.Asset,
		Account:       r.Account,
		AssetQuantity: r.AssetQuantity,
		AssetPrice:    r.AssetPrice,
		FeeAmount:     r.FeeAmount,
		FeeType:       r.FeeType,
		FeeRate:       r.FeeRate,
		Timestamp:     r.Timestamp,
		CreatedBy:     r.CreatedBy,
	}
}

// ReverseEntryRequest represents a request to reverse a committed entry.
type ReverseEntryRequest struct {
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseEntryRequest) ToUseCaseInput(entryID string) usecase.ReverseEntryInput {
	return usecase.ReverseEntryInput{
		EntryID:   entryID,
		Reason:    r.Reason,
		CreatedBy: r.CreatedBy,
	}
}
