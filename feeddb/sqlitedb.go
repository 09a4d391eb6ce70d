package feeddb

import (
	"database/sql"
	"errors"
	"fmt"

	"bustrails.opentransit.org/internal/appconf"
)

// createDB opens a new SQLite database and creates the feed tables. Row order
// matters for calendar exceptions, so tables keep their implicit rowid and
// queries order by it to reproduce feed file order.
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, errors.New("test database must use in-memory storage")
	}

	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would open its own empty
	// database, so the pool must stay at a single connection.
	db.SetMaxOpenConns(1)

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	if err := createTables(tx); err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_trips_service_id ON trips(service_id);
		CREATE INDEX IF NOT EXISTS idx_stop_times_trip_id ON stop_times(trip_id);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, fmt.Errorf("error creating indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return db, nil
}

func createTables(tx *sql.Tx) error {
	statements := []struct {
		table string
		ddl   string
	}{
		{"calendar", `
			CREATE TABLE IF NOT EXISTS calendar (
				service_id TEXT NOT NULL,
				monday INTEGER NOT NULL,
				tuesday INTEGER NOT NULL,
				wednesday INTEGER NOT NULL,
				thursday INTEGER NOT NULL,
				friday INTEGER NOT NULL,
				saturday INTEGER NOT NULL,
				sunday INTEGER NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL
			);`},
		{"calendar_dates", `
			CREATE TABLE IF NOT EXISTS calendar_dates (
				service_id TEXT NOT NULL,
				date TEXT NOT NULL,
				exception_type INTEGER NOT NULL
			);`},
		{"trips", `
			CREATE TABLE IF NOT EXISTS trips (
				trip_id TEXT PRIMARY KEY,
				route_id TEXT NOT NULL,
				service_id TEXT NOT NULL
			);`},
		{"stop_times", `
			CREATE TABLE IF NOT EXISTS stop_times (
				trip_id TEXT NOT NULL,
				stop_id TEXT NOT NULL,
				stop_sequence INTEGER NOT NULL,
				departure_time TEXT NOT NULL
			);`},
		{"stops", `
			CREATE TABLE IF NOT EXISTS stops (
				stop_id TEXT PRIMARY KEY,
				stop_lat REAL NOT NULL,
				stop_lon REAL NOT NULL
			);`},
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt.ddl); err != nil {
			return fmt.Errorf("error creating table %s: %w", stmt.table, err)
		}
	}
	return nil
}
