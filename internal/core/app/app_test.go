// # internal/core/app/app_test.go
package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pyrefactor/internal/core/config"
	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/data/symbolstore"
	"pyrefactor/internal/engine/rename"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func newApp(t *testing.T, files map[string]string) (*App, string) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	cfg := config.Default()
	cfg.Workspace.Roots = []string{root}
	cfg.Analysis.Workers = 2
	a, err := New(cfg)
	require.NoError(t, err)
	return a, root
}

var workspace = map[string]string{
	"x.py":             "def foo():\n    return 1\n",
	"y.py":             "from x import foo\nfoo()\n",
	"venv/lib/site.py": "def foo():\n    pass\n",
	"README.md":        "not python",
	"pkg/__init__.py":  "",
	"pkg/uses.py":      "import x\nx.foo()\n",
}

func TestScanWorkspace_HonoursExcludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, workspace)
	writeTree(t, root, map[string]string{"pkg/skip_me.py": "a = 1\n"})

	files, err := ScanWorkspace([]string{root}, []string{"venv"}, []string{"skip_*.py"})
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"pkg/__init__.py", "pkg/uses.py", "x.py", "y.py"}, paths)

	_, err = ScanWorkspace([]string{root}, []string{"[bad"}, nil)
	assert.Error(t, err)
}

func TestApp_AnalyzeAndRenameToDisk(t *testing.T) {
	a, root := newApp(t, workspace)
	ctx := context.Background()

	_, err := a.Engine()
	assert.True(t, errors.IsCode(err, errors.CodeIncomplete))

	b, err := a.Analyze(ctx)
	require.NoError(t, err)
	assert.True(t, b.IsComplete())
	assert.Equal(t, 4, b.SuccessCount())

	sym, err := a.Locate(filepath.Join(root, "y.py"), 18)
	require.NoError(t, err)
	assert.Equal(t, "foo", sym.Name)

	report, err := a.Impact("x.py", 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pkg/uses.py", "y.py"}, report.Dependents)

	res, err := a.Rename(ctx, rename.Request{Path: filepath.Join(root, "x.py"), Offset: 4, NewName: "bar"}, RenameOptions{Write: true, Diff: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/uses.py", "x.py", "y.py"}, res.Written)
	assert.Contains(t, string(res.Diff), "+def bar():")

	assert.Equal(t, "def bar():\n    return 1\n", read(t, root, "x.py"))
	assert.Equal(t, "from x import bar\nbar()\n", read(t, root, "y.py"))
	assert.Equal(t, "import x\nx.bar()\n", read(t, root, "pkg/uses.py"))
	assert.Equal(t, "def foo():\n    pass\n", read(t, root, "venv/lib/site.py"))

	leftovers, err := filepath.Glob(filepath.Join(root, ".*.pyrefactor-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestApp_RenameDryRunLeavesDiskAlone(t *testing.T) {
	a, root := newApp(t, workspace)
	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	res, err := a.Rename(context.Background(), rename.Request{Path: "x.py", Offset: 4, NewName: "bar"}, RenameOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	assert.Nil(t, res.Diff)
	assert.Equal(t, workspace["x.py"], read(t, root, "x.py"))
}

func TestApp_RenameRefusesStaleFiles(t *testing.T) {
	a, root := newApp(t, workspace)
	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"y.py": "from x import foo\nfoo()\nfoo()\n"})
	_, err = a.Rename(context.Background(), rename.Request{Path: "x.py", Offset: 4, NewName: "bar"}, RenameOptions{Write: true})
	require.True(t, errors.IsCode(err, errors.CodeValidationError))

	assert.Equal(t, workspace["x.py"], read(t, root, "x.py"))
	assert.Equal(t, workspace["pkg/uses.py"], read(t, root, "pkg/uses.py"))
}

func TestApp_RenameRefusesIncompleteWorkspace(t *testing.T) {
	files := map[string]string{"broken.py": "def broken(:\n"}
	for k, v := range workspace {
		files[k] = v
	}
	a, root := newApp(t, files)
	b, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.False(t, b.IsComplete())

	_, err = a.Rename(context.Background(), rename.Request{Path: "x.py", Offset: 4, NewName: "bar"}, RenameOptions{Write: true})
	require.True(t, errors.IsCode(err, errors.CodeIncomplete))
	assert.Equal(t, workspace["x.py"], read(t, root, "x.py"))

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, b.RunID, status.RunID)
}

func TestApp_Export(t *testing.T) {
	a, root := newApp(t, workspace)
	dbPath := filepath.Join(root, "out", "symbols.db")

	assert.True(t, errors.IsCode(a.Export(context.Background(), dbPath), errors.CodeIncomplete))

	b, err := a.Analyze(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Export(context.Background(), dbPath))

	store, err := symbolstore.Open(dbPath, 0)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, b.RunID, runs[0].ID)

	status := NewHealthService(a).Check(context.Background())
	assert.Equal(t, "up", status.Status)
}

func TestApp_OffsetAt(t *testing.T) {
	a, _ := newApp(t, workspace)
	_, err := a.Analyze(context.Background())
	require.NoError(t, err)

	off, err := a.OffsetAt("y.py", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 18, off)

	off, err = a.OffsetAt("x.py", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, off)

	_, err = a.OffsetAt("x.py", 9, 1)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	_, err = a.OffsetAt("x.py", 1, 40)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	_, err = a.OffsetAt("nope.py", 1, 1)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
