package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schema is the full ledger schema. Timestamps are stored as UTC unix nanoseconds
// so FIFO ordering is a plain integer comparison.
const schema = `
CREATE TABLE IF NOT EXISTS farmers (
    user_id          TEXT PRIMARY KEY,
    full_name        TEXT NOT NULL,
    nin_number       TEXT NOT NULL,
    phone            TEXT NOT NULL,
    recommender_name TEXT NOT NULL DEFAULT '',
    recommender_nin  TEXT NOT NULL DEFAULT '',
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_farmers_phone ON farmers(phone);
CREATE UNIQUE INDEX IF NOT EXISTS idx_farmers_nin ON farmers(nin_number);

CREATE TABLE IF NOT EXISTS stock_lots (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    chick_type   TEXT NOT NULL CHECK (chick_type IN ('broiler_local', 'broiler_exotic', 'layer_local', 'layer_exotic')),
    quantity     INTEGER NOT NULL CHECK (quantity >= 0),
    age_in_days  INTEGER NOT NULL DEFAULT 0 CHECK (age_in_days >= 0),
    is_available INTEGER NOT NULL DEFAULT 1,
    added_by     TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stock_lots_fifo ON stock_lots(chick_type, is_available, created_at, seq);

CREATE TABLE IF NOT EXISTS chick_requests (
    seq                INTEGER PRIMARY KEY AUTOINCREMENT,
    id                 TEXT NOT NULL UNIQUE,
    farmer_id          TEXT NOT NULL,
    chick_type         TEXT NOT NULL CHECK (chick_type IN ('broiler', 'layer')),
    breed_type         TEXT NOT NULL CHECK (breed_type IN ('local', 'exotic')),
    quantity_requested INTEGER NOT NULL CHECK (quantity_requested > 0),
    farmer_tier        TEXT NOT NULL CHECK (farmer_tier IN ('starter', 'returning')),
    status             TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'sold')),
    total_amount       TEXT NOT NULL,
    notes              TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL,
    approved_by        TEXT,
    approved_at        INTEGER,
    rejected_by        TEXT,
    rejected_at        INTEGER
);

CREATE INDEX IF NOT EXISTS idx_chick_requests_farmer ON chick_requests(farmer_id, created_at);
CREATE INDEX IF NOT EXISTS idx_chick_requests_status ON chick_requests(status, created_at);

CREATE TABLE IF NOT EXISTS sales (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    request_id   TEXT NOT NULL UNIQUE REFERENCES chick_requests(id),
    completed_by TEXT NOT NULL,
    total_amount TEXT NOT NULL,
    notes        TEXT NOT NULL DEFAULT '',
    sold_at      INTEGER NOT NULL
);
`

// Open opens a SQLite database connection and configures pragmas.
//
// The pool is capped at one connection: SQLite allows a single writer, and an
// in-memory database only exists on the connection that created it.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
