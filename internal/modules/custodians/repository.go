// Package custodians manages the institutions that hold the portfolio's
// assets.
package custodians

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/acalderon/cartera/internal/domain"
)

// Repository handles custodian database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new custodian repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "custodians").Logger(),
	}
}

// List returns all custodians ordered by name.
func (r *Repository) List() ([]domain.Custodian, error) {
	rows, err := r.db.Query("SELECT id, name, kind, created_at FROM custodians ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list custodians: %w", err)
	}
	defer rows.Close()

	var out []domain.Custodian
	for rows.Next() {
		c, err := scanCustodian(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID returns a single custodian.
func (r *Repository) GetByID(id int64) (*domain.Custodian, error) {
	row := r.db.QueryRow("SELECT id, name, kind, created_at FROM custodians WHERE id = ?", id)
	c, err := scanCustodian(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByName returns the custodian with the given name, nil when absent.
func (r *Repository) GetByName(name string) (*domain.Custodian, error) {
	row := r.db.QueryRow("SELECT id, name, kind, created_at FROM custodians WHERE name = ?", name)
	c, err := scanCustodian(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a custodian. Names are unique.
func (r *Repository) Create(c *domain.Custodian) error {
	c.CreatedAt = time.Now().UTC()
	res, err := r.db.Exec(
		"INSERT INTO custodians (name, kind, created_at) VALUES (?, ?, ?)",
		c.Name, nullString(c.Kind), c.CreatedAt.Unix(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Validationf("custodian %q already exists", c.Name)
		}
		return fmt.Errorf("failed to create custodian: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read custodian id: %w", err)
	}
	r.log.Info().Int64("id", c.ID).Str("name", c.Name).Msg("custodian created")
	return nil
}

// Update renames a custodian and/or changes its kind.
func (r *Repository) Update(c *domain.Custodian) error {
	res, err := r.db.Exec(
		"UPDATE custodians SET name = ?, kind = ? WHERE id = ?",
		c.Name, nullString(c.Kind), c.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return domain.Validationf("custodian %q already exists", c.Name)
		}
		return fmt.Errorf("failed to update custodian: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a custodian record. Transactions keep their custodian
// string, so existing rows are unaffected.
func (r *Repository) Delete(id int64) error {
	res, err := r.db.Exec("DELETE FROM custodians WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete custodian: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	r.log.Info().Int64("id", id).Msg("custodian deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustodian(row rowScanner) (domain.Custodian, error) {
	var (
		c       domain.Custodian
		kind    sql.NullString
		created int64
	)
	if err := row.Scan(&c.ID, &c.Name, &kind, &created); err != nil {
		return c, err
	}
	if kind.Valid {
		c.Kind = &kind.String
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
