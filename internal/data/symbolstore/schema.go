// # internal/data/symbolstore/schema.go
package symbolstore

import (
	"database/sql"
	"fmt"
)

const SchemaVersion = 1

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  created_at_utc TEXT NOT NULL,
  file_count INTEGER NOT NULL,
  failure_count INTEGER NOT NULL,
  complete INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  file_id INTEGER NOT NULL,
  path TEXT NOT NULL,
  module TEXT NOT NULL,
  hash TEXT NOT NULL,
  is_package INTEGER NOT NULL,
  PRIMARY KEY (run_id, file_id)
);
CREATE TABLE IF NOT EXISTS failures (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  path TEXT NOT NULL,
  error TEXT NOT NULL,
  PRIMARY KEY (run_id, path)
);
CREATE TABLE IF NOT EXISTS scopes (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  scope_id INTEGER NOT NULL,
  kind TEXT NOT NULL,
  parent_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  PRIMARY KEY (run_id, scope_id)
);
CREATE TABLE IF NOT EXISTS symbols (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  symbol_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  scope_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL,
  ident_start INTEGER NOT NULL,
  ident_end INTEGER NOT NULL,
  container_id INTEGER NOT NULL,
  PRIMARY KEY (run_id, symbol_id)
);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(run_id, name);
CREATE TABLE IF NOT EXISTS refs (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  ref_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  file_id INTEGER NOT NULL,
  span_start INTEGER NOT NULL,
  span_end INTEGER NOT NULL,
  kind TEXT NOT NULL,
  target_id INTEGER NOT NULL,
  status TEXT NOT NULL,
  pass INTEGER NOT NULL,
  PRIMARY KEY (run_id, ref_id)
);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(run_id, target_id);
CREATE TABLE IF NOT EXISTS imports (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  import_id INTEGER NOT NULL,
  file_id INTEGER NOT NULL,
  module TEXT NOT NULL,
  name TEXT NOT NULL,
  alias TEXT NOT NULL,
  qualified TEXT NOT NULL,
  resolved_file_id INTEGER NOT NULL,
  target_id INTEGER NOT NULL,
  status TEXT NOT NULL,
  PRIMARY KEY (run_id, import_id)
);
CREATE TABLE IF NOT EXISTS types (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  symbol_id INTEGER NOT NULL,
  class_id INTEGER NOT NULL,
  type_name TEXT NOT NULL,
  provenance TEXT NOT NULL,
  PRIMARY KEY (run_id, symbol_id)
);
CREATE TABLE IF NOT EXISTS bases (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  class_id INTEGER NOT NULL,
  ordinal INTEGER NOT NULL,
  base_id INTEGER NOT NULL,
  unresolved TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, class_id, ordinal)
);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
