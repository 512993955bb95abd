package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schemaSQL is the DDL executed when creating a new state database.
const schemaSQL = `
-- === SAVED CONNECTION PROFILES ===
-- Passwords never live here. They go to the OS credential manager.

CREATE TABLE IF NOT EXISTS saved_connections (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL UNIQUE,
    driver              TEXT NOT NULL,
    host                TEXT,
    port                INTEGER,
    database_name       TEXT,
    username            TEXT,
    ssl_mode            TEXT,
    project             TEXT,
    dataset             TEXT,
    credentials_file    TEXT,
    bigquery_auth_mode  TEXT,
    ssh_enabled         INTEGER NOT NULL DEFAULT 0,
    ssh_host            TEXT,
    ssh_port            INTEGER,
    ssh_user            TEXT,
    ssh_key_path        TEXT,
    created_at          TEXT DEFAULT (datetime('now')),
    updated_at          TEXT DEFAULT (datetime('now'))
);

-- === SESSION STATE ===
-- The open workspaces and tabs from the last run, replaced wholesale on
-- every save.

CREATE TABLE IF NOT EXISTS session_workspaces (
    id               TEXT PRIMARY KEY,
    profile_json     TEXT NOT NULL,
    current_database TEXT,
    active_tab_id    TEXT,
    sort_order       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_tabs (
    id            TEXT PRIMARY KEY,
    workspace_id  TEXT NOT NULL REFERENCES session_workspaces(id) ON DELETE CASCADE,
    title         TEXT NOT NULL,
    database_name TEXT,
    tab_type      TEXT NOT NULL,
    table_name    TEXT,
    page          INTEGER NOT NULL DEFAULT 1,
    page_size     INTEGER NOT NULL DEFAULT 100,
    query         TEXT,
    sort_order    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS session_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Schema versioning for future migrations
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// currentSchemaVersion is the latest schema version this code supports.
const currentSchemaVersion = 1

// OpenDB opens (or creates) a SQLite database at filePath and returns the
// connection. It enables foreign keys and WAL journal mode.
func OpenDB(filePath string) (*sql.DB, error) {
	// Ensure the parent directory exists.
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Use WAL journal mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	return db, nil
}

// InitSchema creates all tables if they do not already exist.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// MigrateSchema checks the current schema version and applies incremental
// migrations. Returns an error if the file version is newer than supported.
func MigrateSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("state file version %d is newer than supported version %d, please update dbdeck", version, currentSchemaVersion)
	}
	// Future migrations go here, e.g.:
	// if version < 2 { applyMigrationV2(db); }
	return nil
}
