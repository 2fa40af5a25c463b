package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

const replaceVaultState = `INSERT INTO derived_vault_state
	(vault_id, total_shares, total_aum, share_price, transaction_count, last_entry_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (vault_id) DO UPDATE SET
	total_shares = EXCLUDED.total_shares,
	total_aum = EXCLUDED.total_aum,
	share_price = EXCLUDED.share_price,
	transaction_count = EXCLUDED.transaction_count,
	last_entry_id = EXCLUDED.last_entry_id,
	updated_at = EXCLUDED.updated_at`

const replaceUserHolding = `INSERT INTO derived_user_holdings
	(vault_id, user_id, share_balance, net_deposits, total_fees_paid, transaction_count, last_entry_id, last_activity_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (vault_id, user_id) DO UPDATE SET
	share_balance = EXCLUDED.share_balance,
	net_deposits = EXCLUDED.net_deposits,
	total_fees_paid = EXCLUDED.total_fees_paid,
	transaction_count = EXCLUDED.transaction_count,
	last_entry_id = EXCLUDED.last_entry_id,
	last_activity_at = EXCLUDED.last_activity_at,
	updated_at = EXCLUDED.updated_at`

const replaceAssetHolding = `INSERT INTO derived_asset_holdings
	(vault_id, asset, account, total_quantity, total_value, transaction_count, last_entry_id, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (vault_id, asset, account) DO UPDATE SET
	total_quantity = EXCLUDED.total_quantity,
	total_value = EXCLUDED.total_value,
	transaction_count = EXCLUDED.transaction_count,
	last_entry_id = EXCLUDED.last_entry_id,
	updated_at = EXCLUDED.updated_at`

const getVaultState = `SELECT vault_id, total_shares, total_aum, share_price, transaction_count, last_entry_id, updated_at
FROM derived_vault_state WHERE vault_id = $1`

const getUserHolding = `SELECT vault_id, user_id, share_balance, net_deposits, total_fees_paid, transaction_count, last_entry_id, last_activity_at, updated_at
FROM derived_user_holdings WHERE vault_id = $1 AND user_id = $2`

const getAssetHolding = `SELECT vault_id, asset, account, total_quantity, total_value, transaction_count, last_entry_id, updated_at
FROM derived_asset_holdings WHERE vault_id = $1 AND asset = $2 AND account = $3`

// DerivedStateRepository implements usecase.DerivedStateRepository. Writes
// are full-row upserts: a recomputation replaces the aggregate, it never
// patches it.
type DerivedStateRepository struct {
	pool *pgxpool.Pool
}

// NewDerivedStateRepository creates a new DerivedStateRepository.
func NewDerivedStateRepository(pool *pgxpool.Pool) *DerivedStateRepository {
	return &DerivedStateRepository{pool: pool}
}

// GetVaultState retrieves the materialized vault aggregate.
func (r *DerivedStateRepository) GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error) {
	var (
		s                                 domain.VaultState
		totalShares, totalAUM, sharePrice pgtype.Numeric
		updatedAt                         pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, getVaultState, vaultID).Scan(
		&s.VaultID, &totalShares, &totalAUM, &sharePrice, &s.TransactionCount, &s.LastEntryID, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVaultStateNotFound
		}

		return nil, err
	}

	s.TotalShares = numericToDecimal(totalShares)
	s.TotalAUM = numericToDecimal(totalAUM)
	s.SharePrice = numericToDecimal(sharePrice)
	s.UpdatedAt = updatedAt.Time

	return &s, nil
}

// GetUserHolding retrieves the materialized holding of one user.
func (r *DerivedStateRepository) GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error) {
	var (
		h                                        domain.UserHolding
		shareBalance, netDeposits, totalFeesPaid pgtype.Numeric
		lastActivityAt, updatedAt                pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, getUserHolding, vaultID, userID).Scan(
		&h.VaultID, &h.UserID, &shareBalance, &netDeposits, &totalFeesPaid,
		&h.TransactionCount, &h.LastEntryID, &lastActivityAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserHoldingNotFound
		}

		return nil, err
	}

	h.ShareBalance = numericToDecimal(shareBalance)
	h.NetDeposits = numericToDecimal(netDeposits)
	h.TotalFeesPaid = numericToDecimal(totalFeesPaid)
	h.LastActivityAt = lastActivityAt.Time
	h.UpdatedAt = updatedAt.Time

	return &h, nil
}

// GetAssetHolding retrieves the materialized asset position.
func (r *DerivedStateRepository) GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error) {
	var (
		h                         domain.AssetHolding
		totalQuantity, totalValue pgtype.Numeric
		updatedAt                 pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, getAssetHolding, vaultID, asset, account).Scan(
		&h.VaultID, &h.Asset, &h.Account, &totalQuantity, &totalValue,
		&h.TransactionCount, &h.LastEntryID, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAssetHoldingNotFound
		}

		return nil, err
	}

	h.TotalQuantity = numericToDecimal(totalQuantity)
	h.TotalValue = numericToDecimal(totalValue)
	h.UpdatedAt = updatedAt.Time

	return &h, nil
}

// ReplaceVaultState fully replaces the vault aggregate row.
func (r *DerivedStateRepository) ReplaceVaultState(ctx context.Context, tx usecase.Transaction, state *domain.VaultState) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, replaceVaultState,
		state.VaultID,
		decimalToNumeric(state.TotalShares),
		decimalToNumeric(state.TotalAUM),
		decimalToNumeric(state.SharePrice),
		state.TransactionCount,
		state.LastEntryID,
		timeToPgTimestamptz(state.UpdatedAt),
	)

	return err
}

// ReplaceUserHolding fully replaces a user holding row.
func (r *DerivedStateRepository) ReplaceUserHolding(ctx context.Context, tx usecase.Transaction, holding *domain.UserHolding) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, replaceUserHolding,
		holding.VaultID,
		holding.UserID,
		decimalToNumeric(holding.ShareBalance),
		decimalToNumeric(holding.NetDeposits),
		decimalToNumeric(holding.TotalFeesPaid),
		holding.TransactionCount,
		holding.LastEntryID,
		timeToPgTimestamptz(holding.LastActivityAt),
		timeToPgTimestamptz(holding.UpdatedAt),
	)

	return err
}

// ReplaceAssetHolding fully replaces an asset holding row.
func (r *DerivedStateRepository) ReplaceAssetHolding(ctx context.Context, tx usecase.Transaction, holding *domain.AssetHolding) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, replaceAssetHolding,
		holding.VaultID,
		holding.Asset,
		holding.Account,
		decimalToNumeric(holding.TotalQuantity),
		decimalToNumeric(holding.TotalValue),
		holding.TransactionCount,
		holding.LastEntryID,
		timeToPgTimestamptz(holding.UpdatedAt),
	)

	return err
}
