// Package sqlite is the embedded storage backend. It keeps the whole
// platform runnable from a single file with no external database, using the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open creates (or opens) the database file and bootstraps the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single writer connection sidesteps SQLITE_BUSY under concurrent
	// request handlers; reads still interleave through WAL.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cars (
			id TEXT PRIMARY KEY,
			owner_email TEXT NOT NULL,
			booking_status TEXT NOT NULL DEFAULT 'Available',
			booking_count INTEGER NOT NULL DEFAULT 0 CHECK (booking_count >= 0),
			attributes TEXT NOT NULL DEFAULT '{}',
			date_added INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cars_owner_email ON cars (owner_email)`,
		`CREATE INDEX IF NOT EXISTS idx_cars_date_added ON cars (date_added)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			car_id TEXT NOT NULL,
			user_email TEXT NOT NULL,
			booking_date TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_car_id ON bookings (car_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user_email ON bookings (user_email)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}
