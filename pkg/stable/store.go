package stable

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] upgrades a database at user_version i to i+1. Version 0 has
// stable_entries only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stable_maps (
		map_id     INTEGER PRIMARY KEY CHECK (map_id BETWEEN 0 AND 255),
		name       TEXT NOT NULL,
		key_type   TEXT NOT NULL,
		value_type TEXT NOT NULL
	)`,
}

// schemaVersion is the user_version of a fully migrated database.
var schemaVersion = len(migrations)

// connPragmas run on every open. Writers wait up to five seconds for a lock.
var connPragmas = [][2]string{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
}

// Store holds every stable map of one canister in a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the store at path, creating and migrating it as needed.
// ":memory:" gives a store that lives as long as the returned value.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open stable store %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open stable store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func prepare(db *sql.DB) error {
	for _, p := range connPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p[0], p[1])); err != nil {
			return fmt.Errorf("pragma %s: %w", p[0], err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

// migrate applies every pending migration in one transaction together with
// the user_version bump.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < schemaVersion; v++ {
		if _, err := tx.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("migrate: set user_version: %w", err)
	}
	return tx.Commit()
}

// Close releases the database. A zero Store closes cleanly.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// pragma reads the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
