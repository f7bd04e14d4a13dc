package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion is the newest schema this package writes.
const SchemaVersion = "1.0.0"

type migration struct {
	version string
	up      string
}

var migrations = []migration{
	{version: "1.0.0", up: schemaV1},
}

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pdb_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    architecture TEXT NOT NULL,
    type_count INTEGER NOT NULL,
    exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS types (
    pdb_id INTEGER NOT NULL,
    type_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    unique_name TEXT,
    size INTEGER NOT NULL,
    scoped INTEGER NOT NULL DEFAULT 0,
    anonymous INTEGER NOT NULL DEFAULT 0,
    declaration TEXT,
    PRIMARY KEY (pdb_id, type_index),
    FOREIGN KEY (pdb_id) REFERENCES pdb_files(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_types_name ON types(pdb_id, name);

CREATE TABLE IF NOT EXISTS members (
    pdb_id INTEGER NOT NULL,
    type_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    byte_offset INTEGER NOT NULL,
    declaration TEXT NOT NULL,
    access TEXT NOT NULL,
    is_static INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (pdb_id, type_index, position),
    FOREIGN KEY (pdb_id, type_index) REFERENCES types(pdb_id, type_index) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS base_classes (
    pdb_id INTEGER NOT NULL,
    type_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    base_index INTEGER NOT NULL,
    name TEXT NOT NULL,
    access TEXT NOT NULL,
    is_virtual INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (pdb_id, type_index, position),
    FOREIGN KEY (pdb_id, type_index) REFERENCES types(pdb_id, type_index) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS enumerators (
    pdb_id INTEGER NOT NULL,
    type_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (pdb_id, type_index, position),
    FOREIGN KEY (pdb_id, type_index) REFERENCES types(pdb_id, type_index) ON DELETE CASCADE
);
`

// migrate brings db up to SchemaVersion.
func migrate(ctx context.Context, db *sql.DB) error {
	current := semver.MustParse("0.0.0")

	var table string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&table)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("check schema_version table: %w", err)
	default:
		var v string
		err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&v)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read schema_version: %w", err)
		}
		if v != "" {
			if current, err = semver.NewVersion(v); err != nil {
				return fmt.Errorf("invalid schema version %s: %w", v, err)
			}
		}
	}

	if current.GreaterThan(semver.MustParse(SchemaVersion)) {
		return fmt.Errorf("%w: database schema %s is newer than %s", ErrSchemaTooNew, current, SchemaVersion)
	}

	for _, m := range migrations {
		v := semver.MustParse(m.version)
		if !current.LessThan(v) {
			continue
		}
		if _, err := db.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		current = v
	}
	return nil
}
