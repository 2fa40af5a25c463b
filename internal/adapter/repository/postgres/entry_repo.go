package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

const entryColumns = `id, vault_id, user_id, entry_type, status, amount_usd, shares, price_per_share,
	asset, account, asset_quantity, asset_price, fee_amount, fee_type, fee_rate,
	aum_before, aum_after, share_price_before, share_price_after, user_shares_before, user_shares_after,
	entry_at, is_reversal, reversal_of_id, reversal_reason, created_by, created_at`

const insertEntry = `INSERT INTO ledger_entries (` + entryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`

const getEntryByID = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

const findReversalOf = `SELECT ` + entryColumns + ` FROM ledger_entries WHERE reversal_of_id = $1`

// queryer abstracts pool and transaction for read paths.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntryRepository implements usecase.EntryRepository. The ledger table
// carries a row-level guard that raises on UPDATE and DELETE, so the only
// write this repository offers is Insert.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Insert appends a new entry within the given transaction.
func (r *EntryRepository) Insert(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	var reversalOfID pgtype.Text
	if entry.ReversalOfID != nil {
		reversalOfID = pgtype.Text{String: *entry.ReversalOfID, Valid: true}
	}

	_, err := pgxTx.Exec(ctx, insertEntry,
		entry.ID,
		entry.VaultID,
		textOrNull(entry.UserID),
		string(entry.Type),
		string(entry.Status),
		decimalToNumeric(entry.AmountUSD),
		decimalToNumeric(entry.Shares),
		decimalToNumeric(entry.PricePerShare),
		textOrNull(entry.Asset),
		textOrNull(entry.Account),
		decimalToNumeric(entry.AssetQuantity),
		decimalToNumeric(entry.AssetPrice),
		decimalToNumeric(entry.FeeAmount),
		textOrNull(entry.FeeType),
		decimalToNumeric(entry.FeeRate),
		decimalToNumeric(entry.AUMBefore),
		decimalToNumeric(entry.AUMAfter),
		decimalToNumeric(entry.SharePriceBefore),
		decimalToNumeric(entry.SharePriceAfter),
		decimalToNumeric(entry.UserSharesBefore),
		decimalToNumeric(entry.UserSharesAfter),
		timeToPgTimestamptz(entry.Timestamp),
		entry.IsReversal,
		reversalOfID,
		textOrNull(entry.ReversalReason),
		entry.CreatedBy,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return mapInsertError(err)
}

// GetByID retrieves an entry by ID.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return scanEntry(r.pool.QueryRow(ctx, getEntryByID, id))
}

// FindReversalOf returns the reversal entry referencing id, or nil when the
// entry has not been reversed.
func (r *EntryRepository) FindReversalOf(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	entry, err := scanEntry(r.pool.QueryRow(ctx, findReversalOf, id))
	if err != nil {
		if errors.Is(err, domain.ErrEntryNotFound) {
			return nil, nil
		}

		return nil, err
	}

	return entry, nil
}

// ListByScope lists committed entries for a scope ordered by (timestamp, id).
func (r *EntryRepository) ListByScope(ctx context.Context, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	return listByScope(ctx, r.pool, scope, includeReversals)
}

// ListByScopeTx lists entries for a scope inside a transaction, so the fold
// observes entries inserted earlier in the same unit of work.
func (r *EntryRepository) ListByScopeTx(ctx context.Context, tx usecase.Transaction, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	return listByScope(ctx, tx.(*Tx).PgxTx(), scope, includeReversals)
}

func listByScope(ctx context.Context, q queryer, scope domain.Scope, includeReversals bool) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE vault_id = $1`
	args := []any{scope.VaultID}

	switch scope.Kind {
	case domain.ScopeKindUser:
		query += ` AND user_id = $2`
		args = append(args, scope.UserID)
	case domain.ScopeKindAsset:
		query += ` AND asset = $2 AND account = $3`
		args = append(args, scope.Asset, scope.Account)
	}

	if !includeReversals {
		query += ` AND is_reversal = FALSE`
	}

	query += ` ORDER BY entry_at, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var (
		e                                     domain.LedgerEntry
		entryType, status                     string
		userID, asset, account, feeType       pgtype.Text
		reversalOfID, reversalReason          pgtype.Text
		amountUSD, shares, pricePerShare      pgtype.Numeric
		assetQuantity, assetPrice             pgtype.Numeric
		feeAmount, feeRate                    pgtype.Numeric
		aumBefore, aumAfter                   pgtype.Numeric
		sharePriceBefore, sharePriceAfter     pgtype.Numeric
		userSharesBefore, userSharesAfter     pgtype.Numeric
		entryAt, createdAt                    pgtype.Timestamptz
	)

	err := row.Scan(
		&e.ID, &e.VaultID, &userID, &entryType, &status, &amountUSD, &shares, &pricePerShare,
		&asset, &account, &assetQuantity, &assetPrice, &feeAmount, &feeType, &feeRate,
		&aumBefore, &aumAfter, &sharePriceBefore, &sharePriceAfter, &userSharesBefore, &userSharesAfter,
		&entryAt, &e.IsReversal, &reversalOfID, &reversalReason, &e.CreatedBy, &createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	e.UserID = userID.String
	e.Type = domain.EntryType(entryType)
	e.Status = domain.EntryStatus(status)
	e.AmountUSD = numericToDecimal(amountUSD)
	e.Shares = numericToDecimal(shares)
	e.PricePerShare = numericToDecimal(pricePerShare)
	e.Asset = asset.String
	e.Account = account.String
	e.AssetQuantity = numericToDecimal(assetQuantity)
	e.AssetPrice = numericToDecimal(assetPrice)
	e.FeeAmount = numericToDecimal(feeAmount)
	e.FeeType = feeType.String
	e.FeeRate = numericToDecimal(feeRate)
	e.AUMBefore = numericToDecimal(aumBefore)
	e.AUMAfter = numericToDecimal(aumAfter)
	e.SharePriceBefore = numericToDecimal(sharePriceBefore)
	e.SharePriceAfter = numericToDecimal(sharePriceAfter)
	e.UserSharesBefore = numericToDecimal(userSharesBefore)
	e.UserSharesAfter = numericToDecimal(userSharesAfter)
	e.Timestamp = entryAt.Time
	e.CreatedAt = createdAt.Time

	if reversalOfID.Valid {
		id := reversalOfID.String
		e.ReversalOfID = &id
	}
	e.ReversalReason = reversalReason.String

	return &e, nil
}

func mapInsertError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			// Partial unique index: at most one reversal per original entry.
			if pgErr.ConstraintName == "uq_ledger_entries_reversal" {
				return fmt.Errorf("%w: %s", domain.ErrReversalConflict, pgErr.Detail)
			}
		case "23503":
			// Self-referencing FK: reversal target must exist.
			if pgErr.ConstraintName == "fk_ledger_entries_reversal_of" {
				return domain.ErrEntryNotFound
			}
		}
	}

	return err
}
