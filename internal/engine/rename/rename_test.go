package rename_test

import (
	"context"
	"strings"
	"testing"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/rename"
	"pyrefactor/internal/engine/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type files map[string]string

func analyze(t *testing.T, src files) *pipeline.Bundle {
	t.Helper()
	inputs := make([]pipeline.Input, 0, len(src))
	for path, content := range src {
		inputs = append(inputs, pipeline.Input{Path: path, Content: []byte(content)})
	}
	b, err := pipeline.New(pipeline.Options{Workers: 2, SourceRoots: []string{""}}).Run(context.Background(), inputs)
	require.NoError(t, err)
	return b
}

func engine(t *testing.T, src files, opts ...rename.Option) *rename.Engine {
	t.Helper()
	return rename.NewEngine(analyze(t, src), opts...)
}

// symbolNamed returns the single symbol called name defined in path.
func symbolNamed(t *testing.T, b *pipeline.Bundle, path, name string) symbols.Symbol {
	t.Helper()
	f, ok := b.DB().FileByPath(path)
	require.True(t, ok, path)
	var found []symbols.Symbol
	for _, sym := range b.Symbols() {
		if sym.File == f.ID && sym.Name == name {
			found = append(found, sym)
		}
	}
	require.Len(t, found, 1, "%s in %s", name, path)
	return found[0]
}

// at returns the offset of the nth occurrence of needle, plus shift.
func at(t *testing.T, content, needle string, nth, shift int) int {
	t.Helper()
	off := -1
	for i := 0; i <= nth; i++ {
		next := strings.Index(content[off+1:], needle)
		require.GreaterOrEqual(t, next, 0, "occurrence %d of %q", i, needle)
		off += next + 1
	}
	return off + shift
}

func renameAt(t *testing.T, e *rename.Engine, path string, offset int, newName string) *rename.Response {
	t.Helper()
	resp, err := e.Rename(rename.Request{Path: path, Offset: offset, NewName: newName})
	require.NoError(t, err)
	return resp
}

var crossFile = files{
	"x.py": "def foo():\n    return 1\n",
	"y.py": "from x import foo\nfoo()\n",
}

func TestRename_AcrossFiles(t *testing.T) {
	e := engine(t, crossFile)
	resp := renameAt(t, e, "y.py", at(t, crossFile["y.py"], "foo()", 0, 0), "bar")

	assert.Equal(t, "foo", resp.Symbol.Name)
	assert.Equal(t, symbols.KindFunction, resp.Symbol.Kind)
	assert.Equal(t, "def bar():\n    return 1\n", string(resp.Files["x.py"]))
	assert.Equal(t, "from x import bar\nbar()\n", string(resp.Files["y.py"]))
	require.Len(t, resp.Edits, 3)

	// Ordered by path, then by descending offset.
	assert.Equal(t, "x.py", resp.Edits[0].Path)
	assert.Equal(t, "y.py", resp.Edits[1].Path)
	assert.Greater(t, resp.Edits[1].Span.Start, resp.Edits[2].Span.Start)
	for _, ed := range resp.Edits {
		assert.Equal(t, "foo", ed.OldText)
		assert.Equal(t, "bar", ed.NewText)
	}
}

func TestImpact_ListsSitesAndDependents(t *testing.T) {
	e := engine(t, crossFile)
	report, err := e.ImpactAt("x.py", at(t, crossFile["x.py"], "foo", 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "x.py", report.Path)
	assert.Equal(t, []string{"y.py"}, report.Dependents)
	assert.Equal(t, []string{"x.py", "y.py"}, report.Files())

	require.Len(t, report.References, 3)
	def, imp, ref := report.References[0], report.References[1], report.References[2]
	assert.Equal(t, rename.SiteDefinition, def.Kind)
	assert.Equal(t, 1, def.Line)
	assert.Equal(t, 5, def.Column)
	assert.Equal(t, rename.SiteImport, imp.Kind)
	assert.Equal(t, 1, imp.Line)
	assert.Equal(t, 15, imp.Column)
	assert.Equal(t, rename.SiteReference, ref.Kind)
	assert.Equal(t, 2, ref.Line)
	assert.Equal(t, 1, ref.Column)
}

func TestLocate(t *testing.T) {
	e := engine(t, crossFile)
	content := crossFile["x.py"]

	t.Run("inside identifier", func(t *testing.T) {
		sym, err := e.Locate("x.py", at(t, content, "foo", 0, 1))
		require.NoError(t, err)
		assert.Equal(t, "foo", sym.Name)
	})

	t.Run("cursor just past identifier", func(t *testing.T) {
		sym, err := e.Locate("x.py", at(t, content, "foo", 0, 3))
		require.NoError(t, err)
		assert.Equal(t, "foo", sym.Name)
	})

	t.Run("import name resolves to definition", func(t *testing.T) {
		sym, err := e.Locate("y.py", at(t, crossFile["y.py"], "foo", 0, 0))
		require.NoError(t, err)
		assert.Equal(t, symbols.KindFunction, sym.Kind)
	})

	t.Run("whitespace", func(t *testing.T) {
		_, err := e.Locate("x.py", at(t, content, "    return", 0, 1))
		assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	})

	t.Run("unknown file", func(t *testing.T) {
		_, err := e.Locate("missing.py", 0)
		assert.True(t, errors.IsCode(err, errors.CodeNotFound))
	})

	t.Run("offset outside file", func(t *testing.T) {
		_, err := e.Locate("x.py", len(content)+1)
		assert.True(t, errors.IsCode(err, errors.CodeValidationError))
	})
}

func TestRename_Alias(t *testing.T) {
	src := files{
		"a.py": "def helper():\n    pass\n",
		"b.py": "from a import helper as h\nh()\n",
	}

	t.Run("renaming the definition keeps the alias", func(t *testing.T) {
		e := engine(t, src)
		resp := renameAt(t, e, "a.py", at(t, src["a.py"], "helper", 0, 0), "util")
		assert.Equal(t, "def util():\n    pass\n", string(resp.Files["a.py"]))
		assert.Equal(t, "from a import util as h\nh()\n", string(resp.Files["b.py"]))
	})

	t.Run("renaming the alias stays local", func(t *testing.T) {
		e := engine(t, src)
		resp := renameAt(t, e, "b.py", at(t, src["b.py"], "h()", 0, 0), "g")
		assert.Equal(t, symbols.KindImportAlias, resp.Symbol.Kind)
		assert.Equal(t, "from a import helper as g\ng()\n", string(resp.Files["b.py"]))
		assert.NotContains(t, resp.Files, "a.py")
	})
}

func TestRename_UpdatesDunderAll(t *testing.T) {
	src := files{
		"m.py": "__all__ = [\"run\"]\n\ndef run():\n    pass\n",
		"n.py": "from m import *\nrun()\n",
	}
	e := engine(t, src)
	resp := renameAt(t, e, "m.py", at(t, src["m.py"], "run", 1, 0), "start")

	assert.Equal(t, "__all__ = [\"start\"]\n\ndef start():\n    pass\n", string(resp.Files["m.py"]))
	assert.Equal(t, "from m import *\nstart()\n", string(resp.Files["n.py"]))

	kinds := map[rename.SiteKind]int{}
	for _, ed := range resp.Edits {
		kinds[ed.Kind]++
	}
	assert.Equal(t, 1, kinds[rename.SiteExport])
}

func TestRename_CascadesToOverrides(t *testing.T) {
	src := files{
		"base.py":  "class Base:\n    def run(self):\n        pass\n",
		"child.py": "from base import Base\n\nclass Child(Base):\n    def run(self):\n        return super().run()\n\nChild().run()\n",
	}
	e := engine(t, src)
	resp := renameAt(t, e, "base.py", at(t, src["base.py"], "run", 0, 0), "execute")

	assert.Equal(t, "class Base:\n    def execute(self):\n        pass\n", string(resp.Files["base.py"]))
	assert.Equal(t,
		"from base import Base\n\nclass Child(Base):\n    def execute(self):\n        return super().execute()\n\nChild().execute()\n",
		string(resp.Files["child.py"]))
}

func TestRename_Refusals(t *testing.T) {
	src := files{
		"x.py": "def foo():\n    return 1\n\ndef bar():\n    return 2\n",
		"y.py": "import os\nos.getcwd()\n",
	}
	foo := at(t, src["x.py"], "foo", 0, 0)

	t.Run("invalid names", func(t *testing.T) {
		e := engine(t, src)
		for _, name := range []string{"", "1abc", "class", "a-b"} {
			_, err := e.Rename(rename.Request{Path: "x.py", Offset: foo, NewName: name})
			assert.True(t, errors.IsCode(err, errors.CodeInvalidName), name)
		}
	})

	t.Run("conflict in scope", func(t *testing.T) {
		e := engine(t, src)
		_, err := e.Rename(rename.Request{Path: "x.py", Offset: foo, NewName: "bar"})
		assert.True(t, errors.IsCode(err, errors.CodeNameConflict))
	})

	t.Run("conflict checks disabled", func(t *testing.T) {
		e := engine(t, src, rename.WithConflictChecks(false))
		resp := renameAt(t, e, "x.py", foo, "bar")
		assert.Len(t, resp.Edits, 1)
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		e := engine(t, src)
		resp := renameAt(t, e, "x.py", foo, "foo")
		assert.Empty(t, resp.Edits)
		assert.Empty(t, resp.Files)
	})

	t.Run("external import", func(t *testing.T) {
		e := engine(t, src)
		_, err := e.Rename(rename.Request{Path: "y.py", Offset: 7, NewName: "system"})
		assert.True(t, errors.IsCode(err, errors.CodeNotSupported))
	})
}

func TestRename_RefusesIncompleteAnalysis(t *testing.T) {
	src := files{
		"x.py":      "def foo():\n    return 1\n",
		"broken.py": "def broken(:\n",
	}
	e := engine(t, src)

	_, err := e.Rename(rename.Request{Path: "x.py", Offset: 4, NewName: "bar"})
	require.True(t, errors.IsCode(err, errors.CodeIncomplete))
	failed, ok := errors.ContextValue(err, errors.CtxFailed)
	require.True(t, ok)
	assert.Equal(t, []string{"broken.py"}, failed)

	_, err = e.ImpactAt("x.py", 4)
	assert.True(t, errors.IsCode(err, errors.CodeIncomplete))

	b := analyze(t, src)
	foo := symbolNamed(t, b, "x.py", "foo")
	direct := rename.NewEngine(b)

	_, err = direct.Impact(foo.ID)
	assert.True(t, errors.IsCode(err, errors.CodeIncomplete))
	op, _ := errors.ContextValue(err, errors.CtxOperation)
	assert.Equal(t, "impact", op)

	_, err = direct.Apply(foo.ID, "bar")
	assert.True(t, errors.IsCode(err, errors.CodeIncomplete))
	failed, ok = errors.ContextValue(err, errors.CtxFailed)
	require.True(t, ok)
	assert.Equal(t, []string{"broken.py"}, failed)
}

func TestRename_LeavesUnknownStarImportsAlone(t *testing.T) {
	src := files{
		"unknown.py": "def loose():\n    pass\n",
		"use.py":     "from unknown import *\nloose()\n",
	}
	e := engine(t, src)
	resp := renameAt(t, e, "unknown.py", at(t, src["unknown.py"], "loose", 0, 0), "tight")

	assert.Equal(t, "def tight():\n    pass\n", string(resp.Files["unknown.py"]))
	assert.NotContains(t, resp.Files, "use.py")
	for _, ed := range resp.Edits {
		assert.Equal(t, "unknown.py", ed.Path)
	}
}

// TestRename_RoundTrip re-analyzes renamed sources: nothing may still
// resolve to the old name, and an unrelated class keeps its method.
func TestRename_RoundTrip(t *testing.T) {
	src := files{
		"shapes.py": "class Shape:\n    def area(self):\n        return 0\n\nclass Square(Shape):\n    def area(self):\n        return 4\n",
		"other.py":  "class Field:\n    def area(self):\n        return 1\n\nField().area()\n",
		"main.py":   "from shapes import Shape, Square\n\ndef total(s: Shape):\n    return s.area()\n\nSquare().area()\n",
	}
	e := engine(t, src)
	resp := renameAt(t, e, "shapes.py", at(t, src["shapes.py"], "area", 0, 0), "size")
	assert.NotContains(t, resp.Files, "other.py")

	renamed := files{}
	for path, content := range src {
		renamed[path] = content
	}
	for path, content := range resp.Files {
		renamed[path] = string(content)
	}
	assert.NotContains(t, renamed["shapes.py"], "area")
	assert.NotContains(t, renamed["main.py"], "area")

	b := analyze(t, renamed)
	require.True(t, b.IsComplete())
	db := b.DB()
	field := symbolNamed(t, b, "other.py", "area")

	resolvedToField := 0
	for _, r := range b.References() {
		if r.Target == 0 {
			continue
		}
		target, ok := db.Symbol(r.Target)
		require.True(t, ok)
		if target.Name != "area" {
			continue
		}
		assert.Equal(t, field.ID, target.ID, "reference %s at %v", r.Name, r.Span)
		resolvedToField++
	}
	assert.Equal(t, 1, resolvedToField)

	sizes := 0
	for _, sym := range b.Symbols() {
		if sym.Name == "size" {
			assert.Equal(t, symbols.KindMethod, sym.Kind)
			sizes++
		}
	}
	assert.Equal(t, 2, sizes)
}
