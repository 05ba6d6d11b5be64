// # internal/data/symbolstore/store.go
package symbolstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pyrefactor/internal/engine/pipeline"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store persists analysis bundles into a SQLite file. Each bundle is kept
// under its run ID; saving the same run twice replaces it.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

type Run struct {
	ID        string
	CreatedAt time.Time
	Files     int
	Failures  int
	Complete  bool
}

type SymbolRow struct {
	ID         uint32
	Name       string
	Kind       string
	Path       string
	Start      int
	End        int
	References int
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("symbol store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create symbol store directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveBundle writes every entity of b in one transaction.
func (s *Store) SaveBundle(ctx context.Context, b *pipeline.Bundle) error {
	if b == nil {
		return fmt.Errorf("bundle must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save bundle", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := writeBundle(ctx, tx, b); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func writeBundle(ctx context.Context, tx *sql.Tx, b *pipeline.Bundle) error {
	run := b.RunID
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at_utc, file_count, failure_count, complete) VALUES (?, ?, ?, ?, ?)`,
		run, b.CreatedAt.UTC().Format(time.RFC3339Nano), b.SuccessCount(), b.FailureCount(), boolInt(b.IsComplete()),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	ins := &inserter{ctx: ctx, tx: tx, run: run}
	for _, f := range b.Failed() {
		ins.exec(`INSERT INTO failures (run_id, path, error) VALUES (?, ?, ?)`, f.Path, f.Err.Error())
	}
	for _, f := range b.Files() {
		ins.exec(`INSERT INTO files (run_id, file_id, path, module, hash, is_package) VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, f.Path, f.Module, f.Hash, boolInt(f.Package))
	}
	for _, sc := range b.Scopes() {
		ins.exec(`INSERT INTO scopes (run_id, scope_id, kind, parent_id, file_id, name) VALUES (?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.Kind.String(), sc.Parent, sc.File, sc.Name)
	}
	for _, sym := range b.Symbols() {
		ins.exec(`INSERT INTO symbols (run_id, symbol_id, name, kind, scope_id, file_id, ident_start, ident_end, container_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sym.ID, sym.Name, sym.Kind.String(), sym.Scope, sym.File, sym.Ident.Start, sym.Ident.End, sym.Container)
	}
	for _, r := range b.References() {
		ins.exec(`INSERT INTO refs (run_id, ref_id, name, file_id, span_start, span_end, kind, target_id, status, pass) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.File, r.Span.Start, r.Span.End, r.Kind.String(), r.Target, r.Status.String(), r.Pass)
	}
	for _, imp := range b.Imports() {
		ins.exec(`INSERT INTO imports (run_id, import_id, file_id, module, name, alias, qualified, resolved_file_id, target_id, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			imp.ID, imp.File, imp.Module, imp.Name, imp.Alias, imp.Qualified, imp.ResolvedFile, imp.Target, imp.Status.String())
	}
	for _, t := range b.Types() {
		ins.exec(`INSERT INTO types (run_id, symbol_id, class_id, type_name, provenance) VALUES (?, ?, ?, ?, ?)`,
			t.Symbol, t.Class, t.TypeName, t.Provenance.String())
	}
	for _, info := range b.Inheritance() {
		for i, base := range info.Bases {
			ins.exec(`INSERT INTO bases (run_id, class_id, ordinal, base_id) VALUES (?, ?, ?, ?)`, info.Class, i, base)
		}
		for i, name := range info.Unresolved {
			ins.exec(`INSERT INTO bases (run_id, class_id, ordinal, base_id, unresolved) VALUES (?, ?, ?, 0, ?)`,
				info.Class, len(info.Bases)+i, name)
		}
	}
	return ins.err
}

// inserter prepares each statement once per transaction and keeps the
// first error.
type inserter struct {
	ctx   context.Context
	tx    *sql.Tx
	run   string
	stmts map[string]*sql.Stmt
	err   error
}

func (in *inserter) exec(query string, args ...any) {
	if in.err != nil {
		return
	}
	if in.stmts == nil {
		in.stmts = make(map[string]*sql.Stmt)
	}
	stmt, ok := in.stmts[query]
	if !ok {
		var err error
		stmt, err = in.tx.PrepareContext(in.ctx, query)
		if err != nil {
			in.err = fmt.Errorf("prepare %q: %w", query, err)
			return
		}
		in.stmts[query] = stmt
	}
	if _, err := stmt.ExecContext(in.ctx, append([]any{in.run}, args...)...); err != nil {
		in.err = fmt.Errorf("insert: %w", err)
	}
}

func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at_utc, file_count, failure_count, complete FROM runs ORDER BY created_at_utc`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			created  string
			complete int
		)
		if err := rows.Scan(&r.ID, &created, &r.Files, &r.Failures, &complete); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		r.Complete = complete == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// SymbolsNamed returns the symbols of a run called name with the number of
// resolved references to each.
func (s *Store) SymbolsNamed(ctx context.Context, runID, name string) ([]SymbolRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.symbol_id, s.name, s.kind, f.path, s.ident_start, s.ident_end,
  (SELECT COUNT(*) FROM refs r WHERE r.run_id = s.run_id AND r.target_id = s.symbol_id)
FROM symbols s
JOIN files f ON f.run_id = s.run_id AND f.file_id = s.file_id
WHERE s.run_id = ? AND s.name = ?
ORDER BY s.symbol_id`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolRow
	for rows.Next() {
		var r SymbolRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind, &r.Path, &r.Start, &r.End, &r.References); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
