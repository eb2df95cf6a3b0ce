package database

import (
	"database/sql"
	"fmt"
)

// schema creates the base tables. Statements are idempotent so New can be
// called against an existing database file.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	asset_kind     TEXT NOT NULL DEFAULT 'stock',
	ticker         TEXT NOT NULL,
	market         TEXT NOT NULL DEFAULT 'MX',
	txn_kind       TEXT NOT NULL DEFAULT 'buy',
	date           TEXT NOT NULL,
	price          REAL NOT NULL,
	quantity       REAL NOT NULL,
	currency       TEXT NOT NULL DEFAULT 'MXN',
	custodian      TEXT,
	asset_class    TEXT,
	staking_reward INTEGER NOT NULL DEFAULT 0,
	commission     REAL NOT NULL DEFAULT 0,
	notes          TEXT,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_ticker ON transactions(ticker);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);

CREATE TABLE IF NOT EXISTS custodians (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	kind       TEXT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS allocation_config (
	asset_class TEXT PRIMARY KEY,
	target_pct  REAL NOT NULL,
	active      INTEGER NOT NULL DEFAULT 1,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dividends (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker        TEXT NOT NULL,
	dividend_type TEXT NOT NULL DEFAULT 'dividend',
	payment_date  TEXT NOT NULL,
	gross_amount  REAL,
	net_amount    REAL NOT NULL,
	currency      TEXT NOT NULL DEFAULT 'MXN',
	status        TEXT NOT NULL DEFAULT 'confirmed',
	source        TEXT NOT NULL DEFAULT 'manual',
	notes         TEXT,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dividends_ticker ON dividends(ticker);
CREATE INDEX IF NOT EXISTS idx_dividends_payment_date ON dividends(payment_date);
`

func (d *DB) initSchema() error {
	if _, err := d.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return d.applyMigrations()
}

// applyMigrations adds columns introduced after the initial schema. Existing
// rows get the column default; nothing is rewritten or dropped.
func (d *DB) applyMigrations() error {
	migrations := []struct {
		table, column, decl string
	}{
		// txn_kind landed after the first release; older rows are buys.
		{"transactions", "txn_kind", "TEXT NOT NULL DEFAULT 'buy'"},
		{"transactions", "asset_class", "TEXT"},
		{"transactions", "staking_reward", "INTEGER NOT NULL DEFAULT 0"},
		{"dividends", "status", "TEXT NOT NULL DEFAULT 'confirmed'"},
		{"dividends", "source", "TEXT NOT NULL DEFAULT 'manual'"},
	}

	for _, m := range migrations {
		if err := d.ensureColumn(m.table, m.column, m.decl); err != nil {
			return err
		}
	}
	return nil
}

// ensureColumn adds a column if the table does not already have it.
func (d *DB) ensureColumn(table, column, decl string) error {
	rows, err := d.conn.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("failed to scan column info for %s: %w", table, err)
		}
		if name == column {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating column info for %s: %w", table, err)
	}

	if exists {
		return nil
	}

	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)
	if _, err := d.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}
	return nil
}
