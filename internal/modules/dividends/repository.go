// Package dividends manages dividend/income records: CRUD, the yearly
// summary, expected-yield projection and the best-effort feed sync.
package dividends

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Repository handles dividend database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new dividend repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dividends").Logger(),
	}
}

const dividendColumns = `id, ticker, dividend_type, payment_date, gross_amount, net_amount,
currency, status, source, notes, created_at, updated_at`

// List returns all dividend records, newest payment first.
func (r *Repository) List() ([]domain.DividendRecord, error) {
	return r.query("SELECT " + dividendColumns + " FROM dividends ORDER BY payment_date DESC, id DESC")
}

// ListByYear returns records whose payment date falls in year.
func (r *Repository) ListByYear(year int) ([]domain.DividendRecord, error) {
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)
	return r.query(
		"SELECT "+dividendColumns+" FROM dividends WHERE payment_date >= ? AND payment_date <= ? ORDER BY payment_date ASC, id ASC",
		from, to,
	)
}

// GetByID returns one record or domain.ErrNotFound.
func (r *Repository) GetByID(id int64) (*domain.DividendRecord, error) {
	row := r.db.QueryRow("SELECT "+dividendColumns+" FROM dividends WHERE id = ?", id)
	record, err := scanDividend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend: %w", err)
	}
	return &record, nil
}

// ExistsFor reports whether a record already exists for (ticker, payment
// date). Used by the feed sync as its duplicate check.
func (r *Repository) ExistsFor(ticker string, paymentDate time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM dividends WHERE ticker = ? AND payment_date = ?",
		strings.ToUpper(ticker), paymentDate.Format(domain.DateLayout),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check dividend existence: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new dividend record and populates its ID and timestamps.
func (r *Repository) Create(record *domain.DividendRecord) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		INSERT INTO dividends
		(ticker, dividend_type, payment_date, gross_amount, net_amount, currency,
		 status, source, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToUpper(record.Ticker),
		string(record.Type),
		record.PaymentDate.Format(domain.DateLayout),
		nullFloat(record.GrossAmount),
		record.NetAmount,
		record.Currency,
		string(record.Status),
		string(record.Source),
		nullString(record.Notes),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dividend: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}

	record.ID = id
	record.CreatedAt = now
	record.UpdatedAt = now

	r.log.Info().
		Str("ticker", record.Ticker).
		Float64("net_amount", record.NetAmount).
		Str("source", string(record.Source)).
		Msg("Dividend record created")

	return nil
}

// Update overwrites an existing dividend record.
func (r *Repository) Update(record *domain.DividendRecord) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE dividends
		SET ticker = ?, dividend_type = ?, payment_date = ?, gross_amount = ?,
		    net_amount = ?, currency = ?, status = ?, source = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		strings.ToUpper(record.Ticker),
		string(record.Type),
		record.PaymentDate.Format(domain.DateLayout),
		nullFloat(record.GrossAmount),
		record.NetAmount,
		record.Currency,
		string(record.Status),
		string(record.Source),
		nullString(record.Notes),
		now.Unix(),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	record.UpdatedAt = now
	return nil
}

// Delete removes a dividend record by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM dividends WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Info().Int64("id", id).Msg("Dividend record deleted")
	return nil
}

func (r *Repository) query(query string, args ...interface{}) ([]domain.DividendRecord, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends: %w", err)
	}
	defer rows.Close()

	var records []domain.DividendRecord
	for rows.Next() {
		record, err := scanDividend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividends: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDividend(row rowScanner) (domain.DividendRecord, error) {
	var (
		record      domain.DividendRecord
		divType     string
		paymentDate string
		gross       sql.NullFloat64
		status      string
		source      string
		notes       sql.NullString
		createdAt   int64
		updatedAt   int64
	)

	err := row.Scan(
		&record.ID,
		&record.Ticker,
		&divType,
		&paymentDate,
		&gross,
		&record.NetAmount,
		&record.Currency,
		&status,
		&source,
		&notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.DividendRecord{}, err
	}

	date, err := time.Parse(domain.DateLayout, paymentDate)
	if err != nil {
		return domain.DividendRecord{}, fmt.Errorf("invalid stored payment date %q: %w", paymentDate, err)
	}

	record.Type = domain.DividendType(divType)
	record.PaymentDate = date
	record.Status = domain.DividendStatus(status)
	record.Source = domain.DividendSource(source)
	record.CreatedAt = time.Unix(createdAt, 0).UTC()
	record.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if gross.Valid {
		g := gross.Float64
		record.GrossAmount = &g
	}
	if notes.Valid && notes.String != "" {
		n := notes.String
		record.Notes = &n
	}

	return record, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
