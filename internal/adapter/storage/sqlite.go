package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteSchema mirrors migrations/schema.sql in SQLite dialect. Embedded
// deployments and the test suite run against it.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS inventory_items (
	id               TEXT PRIMARY KEY,
	sku              TEXT NOT NULL UNIQUE,
	name             TEXT NOT NULL,
	category_id      TEXT NOT NULL DEFAULT '',
	supplier_id      TEXT NOT NULL DEFAULT '',
	current_quantity REAL NOT NULL DEFAULT 0,
	reorder_level    REAL NOT NULL DEFAULT 0,
	maximum_level    REAL NOT NULL DEFAULT 0,
	unit_cost        REAL NOT NULL DEFAULT 0,
	unit_of_measure  TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'active',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS stock_ledger (
	id           TEXT PRIMARY KEY,
	item_id      TEXT NOT NULL REFERENCES inventory_items(id),
	action_type  TEXT NOT NULL,
	quantity     REAL NOT NULL,
	batch_number TEXT,
	expiry_date  DATETIME,
	unit_cost    REAL,
	notes        TEXT NOT NULL DEFAULT '',
	actor_id     TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_ledger_item ON stock_ledger(item_id, created_at);

CREATE TABLE IF NOT EXISTS item_batches (
	id                 TEXT PRIMARY KEY,
	batch_number       TEXT NOT NULL UNIQUE,
	item_id            TEXT NOT NULL REFERENCES inventory_items(id),
	quantity_received  REAL NOT NULL,
	manufacturing_date DATETIME,
	expiry_date        DATETIME,
	received_date      DATETIME NOT NULL,
	supplier_id        TEXT,
	purchase_order_ref TEXT,
	cost_per_unit      REAL NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'active',
	notes              TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);
`

// OpenSQLite opens (or creates) an embedded SQLite database and ensures the
// schema exists. The pool is capped at one connection: the pure-Go driver
// serializes writers, and a single connection keeps transactions from
// tripping over SQLITE_BUSY.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// NewSQLiteAdapter wraps an open SQLite handle, typically from OpenSQLite.
func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, isDuplicate: isSQLiteDuplicate}
}

func isSQLiteDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
