// Package store implements the relational persistence contract of §4.9:
// a notes/segments schema with linear migrations, foreign-key CASCADE,
// and a uniqueness invariant on segments.
package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion is the current migration version applied by Open,
// matching §6's "current schema version 4".
const SchemaVersion = 4

// requiredTables is checked by the post-migration repair pass.
var requiredTables = []string{"notes", "segments"}

// DB wraps a SQLite connection opened per §4.9's persistence contract.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the database file at path, enables
// foreign keys, applies all pending migrations, and runs the repair
// pass for any table missing afterward.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// PRAGMA foreign_keys is per-connection; the DSN flag above covers
	// the pool's connections, this covers whichever one we have now.
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	// SQLite only supports one writer; serialize through a single
	// connection so CASCADE/unique semantics are observed consistently.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := db.repair(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: load migration source: %w", err)
	}

	dbDriver, err := sqlite3.WithInstance(db.conn, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("store: init migrator: %w", err)
	}

	if err := m.Migrate(SchemaVersion); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	return nil
}

// repair verifies each required table exists after migration and
// recreates any missing ones idempotently, per §4.9 and error kind
// DbSchemaMissing.
func (db *DB) repair() error {
	for _, table := range requiredTables {
		exists, err := db.tableExists(table)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := db.recreateTable(table); err != nil {
			return fmt.Errorf("store: repair missing table %q: %w", table, err)
		}
	}
	return nil
}

func (db *DB) tableExists(name string) (bool, error) {
	var found string
	err := db.conn.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check table %q: %w", name, err)
	}
	return true, nil
}

// recreateTable idempotently restores a required table to its
// fully-migrated shape. Each statement is schema-complete (includes all
// columns added across migrations) so a fresh create matches a
// migrated-from-scratch database exactly.
func (db *DB) recreateTable(name string) error {
	var ddl string
	switch name {
	case "notes":
		ddl = `CREATE TABLE IF NOT EXISTS notes (
			id          TEXT PRIMARY KEY,
			created_at  INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER,
			audio_path  TEXT,
			language_lock TEXT,
			asr_model     TEXT,
			llm_model     TEXT,
			insights_status TEXT
		)`
	case "segments":
		ddl = `CREATE TABLE IF NOT EXISTS segments (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
			start_ms INTEGER NOT NULL,
			end_ms   INTEGER NOT NULL,
			text     TEXT NOT NULL,
			is_final INTEGER NOT NULL,
			lang     TEXT,
			UNIQUE(note_id, start_ms, end_ms)
		)`
	default:
		return fmt.Errorf("store: unknown required table %q", name)
	}
	if _, err := db.conn.Exec(ddl); err != nil {
		return err
	}
	if name == "segments" {
		_, err := db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_segments_note_start ON segments(note_id, start_ms)`)
		return err
	}
	return nil
}
