package symbolstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyrefactor/internal/engine/pipeline"
)

func analyze(t *testing.T, inputs ...pipeline.Input) *pipeline.Bundle {
	t.Helper()
	b, err := pipeline.New(pipeline.Options{Workers: 2, SourceRoots: []string{""}}).Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return b
}

func TestStore_SaveBundleAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "symbols.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	b := analyze(t,
		pipeline.Input{Path: "x.py", Content: []byte("def foo():\n    return 1\n")},
		pipeline.Input{Path: "y.py", Content: []byte("from x import foo\nfoo()\nfoo()\n")},
		pipeline.Input{Path: "bad.py", Content: []byte("def bad(:\n")},
	)
	ctx := context.Background()
	if err := store.SaveBundle(ctx, b); err != nil {
		t.Fatalf("save bundle: %v", err)
	}
	// Saving the same run again replaces it.
	if err := store.SaveBundle(ctx, b); err != nil {
		t.Fatalf("save bundle twice: %v", err)
	}

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].ID != b.RunID || runs[0].Files != 2 || runs[0].Failures != 1 || runs[0].Complete {
		t.Fatalf("unexpected run row: %+v", runs[0])
	}

	rows, err := store.SymbolsNamed(ctx, b.RunID, "foo")
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	var def *SymbolRow
	for i := range rows {
		if rows[i].Kind == "function" {
			def = &rows[i]
		}
	}
	if def == nil {
		t.Fatalf("expected a function row among %+v", rows)
	}
	if def.Path != "x.py" || def.Start != 4 || def.End != 7 {
		t.Fatalf("unexpected definition row: %+v", *def)
	}
	if def.References != 2 {
		t.Fatalf("expected 2 references to foo, got %d", def.References)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir(), 0)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path, 0)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.db")
	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store.Close()

	db, err := sql.Open(driverName, path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	if err := EnsureSchema(db); err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("expected version drift error, got %v", err)
	}
}
