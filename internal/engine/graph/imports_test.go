// # internal/engine/graph/imports_test.go
package graph_test

import (
	"context"
	"testing"

	"pyrefactor/internal/engine/graph"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/resolver"
	"pyrefactor/internal/engine/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importGraph(t *testing.T, files map[string]string) *graph.ImportGraph {
	t.Helper()
	a := parser.NewLocalAnalyzer(parser.NewParser(0), []string{""})
	var raw []*parser.File
	for path, src := range files {
		f, err := a.Analyze(path, []byte(src))
		require.NoError(t, err)
		raw = append(raw, f)
	}
	db := symbols.NewDatabase()
	symbols.Register(db, raw)
	_, err := resolver.New(db).Run(context.Background())
	require.NoError(t, err)
	return graph.NewImportGraph(db)
}

func TestImportGraph_DetectCycles(t *testing.T) {
	g := importGraph(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "import c\n",
		"c.py": "import a\nimport os\n",
		"d.py": "import a\n",
	})
	assert.Equal(t, 4, g.EdgeCount())
	assert.Equal(t, [][]string{{"a.py", "b.py", "c.py"}}, g.DetectCycles())
}

func TestImportGraph_Importers(t *testing.T) {
	g := importGraph(t, map[string]string{
		"core.py":  "def f():\n    pass\n",
		"mid.py":   "from core import f\n",
		"top.py":   "import mid\n",
		"alone.py": "x = 1\n",
	})
	report, err := g.Importers("core.py")
	require.NoError(t, err)
	assert.Equal(t, "core", report.TargetModule)
	assert.Equal(t, []string{"mid.py"}, report.DirectImporters)
	assert.Equal(t, []string{"top.py"}, report.TransitiveImporters)

	chain, ok := g.FindImportChain("top.py", "core.py")
	require.True(t, ok)
	assert.Equal(t, []string{"top.py", "mid.py", "core.py"}, chain)

	_, ok = g.FindImportChain("alone.py", "core.py")
	assert.False(t, ok)

	_, err = g.Importers("missing.py")
	assert.ErrorIs(t, err, graph.ErrFileNotFound)
}
