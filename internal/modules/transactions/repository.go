// Package transactions stores and validates buy/sell transaction records.
package transactions

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Repository handles transaction database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new transaction repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// transactionColumns keeps SELECT statements and scan order in one place.
const transactionColumns = `id, asset_kind, ticker, market, txn_kind, date, price, quantity,
currency, custodian, asset_class, staking_reward, commission, notes, created_at, updated_at`

// List returns all transactions, newest purchase first.
func (r *Repository) List() ([]domain.Transaction, error) {
	return r.query("SELECT " + transactionColumns + " FROM transactions ORDER BY date DESC, id DESC")
}

// ListChronological returns all transactions in date order, oldest first.
// Ties on the same date keep insertion order so replays are deterministic.
func (r *Repository) ListChronological() ([]domain.Transaction, error) {
	return r.query("SELECT " + transactionColumns + " FROM transactions ORDER BY date ASC, id ASC")
}

// ListByTicker returns all transactions for one instrument in date order.
func (r *Repository) ListByTicker(ticker string) ([]domain.Transaction, error) {
	return r.query(
		"SELECT "+transactionColumns+" FROM transactions WHERE ticker = ? ORDER BY date ASC, id ASC",
		strings.ToUpper(ticker),
	)
}

// GetByID returns one transaction or domain.ErrNotFound.
func (r *Repository) GetByID(id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow("SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// Create inserts a new transaction and populates its ID and timestamps.
func (r *Repository) Create(txn *domain.Transaction) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		INSERT INTO transactions
		(asset_kind, ticker, market, txn_kind, date, price, quantity, currency,
		 custodian, asset_class, staking_reward, commission, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(txn.AssetKind),
		strings.ToUpper(txn.Ticker),
		string(txn.Market),
		string(txn.Kind),
		txn.DateString(),
		txn.Price,
		txn.Quantity,
		txn.Currency,
		nullString(txn.Custodian),
		nullString(txn.AssetClass),
		boolToInt(txn.StakingReward),
		txn.Commission,
		nullString(txn.Notes),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}

	txn.ID = id
	txn.CreatedAt = now
	txn.UpdatedAt = now

	r.log.Info().
		Str("ticker", txn.Ticker).
		Str("kind", string(txn.Kind)).
		Float64("quantity", txn.Quantity).
		Float64("price", txn.Price).
		Msg("Transaction created")

	return nil
}

// Update overwrites an existing transaction.
func (r *Repository) Update(txn *domain.Transaction) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE transactions
		SET asset_kind = ?, ticker = ?, market = ?, txn_kind = ?, date = ?, price = ?,
		    quantity = ?, currency = ?, custodian = ?, asset_class = ?, staking_reward = ?,
		    commission = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		string(txn.AssetKind),
		strings.ToUpper(txn.Ticker),
		string(txn.Market),
		string(txn.Kind),
		txn.DateString(),
		txn.Price,
		txn.Quantity,
		txn.Currency,
		nullString(txn.Custodian),
		nullString(txn.AssetClass),
		boolToInt(txn.StakingReward),
		txn.Commission,
		nullString(txn.Notes),
		now.Unix(),
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	txn.UpdatedAt = now
	return nil
}

// Delete removes a transaction by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Info().Int64("id", id).Msg("Transaction deleted")
	return nil
}

// Count returns the number of stored transactions.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (r *Repository) query(query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransactionRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		txn           domain.Transaction
		assetKind     string
		market        string
		txnKind       string
		dateStr       string
		custodian     sql.NullString
		assetClass    sql.NullString
		stakingReward int
		notes         sql.NullString
		createdAt     int64
		updatedAt     int64
	)

	err := row.Scan(
		&txn.ID,
		&assetKind,
		&txn.Ticker,
		&market,
		&txnKind,
		&dateStr,
		&txn.Price,
		&txn.Quantity,
		&txn.Currency,
		&custodian,
		&assetClass,
		&stakingReward,
		&txn.Commission,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	date, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid stored date %q: %w", dateStr, err)
	}

	txn.AssetKind = domain.AssetKind(assetKind)
	txn.Market = domain.Market(market)
	txn.Kind = domain.TxnKind(txnKind)
	txn.Date = date
	txn.Custodian = stringPtr(custodian)
	txn.AssetClass = stringPtr(assetClass)
	txn.StakingReward = stakingReward != 0
	txn.Notes = stringPtr(notes)
	txn.CreatedAt = time.Unix(createdAt, 0).UTC()
	txn.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return txn, nil
}

func scanTransactionRows(rows *sql.Rows) (domain.Transaction, error) {
	return scanTransaction(rows)
}

// Helpers for nullable columns

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
