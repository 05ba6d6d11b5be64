// # internal/engine/resolver/resolver_test.go
package resolver

import (
	"context"
	"testing"

	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace map[string]string

func resolve(t *testing.T, files workspace) *symbols.Database {
	t.Helper()
	a := parser.NewLocalAnalyzer(parser.NewParser(0), []string{""})
	raw := make([]*parser.File, 0, len(files))
	for path, src := range files {
		f, err := a.Analyze(path, []byte(src))
		require.NoError(t, err, path)
		raw = append(raw, f)
	}
	db := symbols.NewDatabase()
	symbols.Register(db, raw)
	_, err := New(db).Run(context.Background())
	require.NoError(t, err)
	return db
}

// identSpan returns the span of the nth (0-based) standalone occurrence of
// name in src.
func identSpan(t *testing.T, src, name string, nth int) symbols.Span {
	t.Helper()
	isIdent := func(b byte) bool {
		return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
	}
	seen := 0
	for i := 0; i+len(name) <= len(src); i++ {
		if src[i:i+len(name)] != name {
			continue
		}
		if i > 0 && isIdent(src[i-1]) || i+len(name) < len(src) && isIdent(src[i+len(name)]) {
			continue
		}
		if seen == nth {
			return symbols.Span{Start: i, End: i + len(name)}
		}
		seen++
	}
	t.Fatalf("occurrence %d of %q not found", nth, name)
	return symbols.Span{}
}

func refAt(t *testing.T, db *symbols.Database, files workspace, path, name string, nth int) symbols.Reference {
	t.Helper()
	f, ok := db.FileByPath(path)
	require.True(t, ok, path)
	ref, ok := db.ReferenceAt(f.ID, identSpan(t, files[path], name, nth))
	require.True(t, ok, "no reference to %s #%d in %s", name, nth, path)
	return ref
}

func symbolAt(t *testing.T, db *symbols.Database, files workspace, path, name string, nth int) symbols.Symbol {
	t.Helper()
	f, ok := db.FileByPath(path)
	require.True(t, ok, path)
	id, ok := db.SymbolAt(f.ID, identSpan(t, files[path], name, nth))
	require.True(t, ok, "no symbol %s #%d in %s", name, nth, path)
	sym, _ := db.Symbol(id)
	return sym
}

func TestResolver_ImportFromScenario(t *testing.T) {
	files := workspace{
		"x.py": "def foo():\n    return 1\n",
		"y.py": "from x import foo\n\nfoo()\n",
	}
	db := resolve(t, files)

	foo := symbolAt(t, db, files, "x.py", "foo", 0)
	binding := symbolAt(t, db, files, "y.py", "foo", 0)
	assert.Equal(t, symbols.KindImport, binding.Kind)

	ref := refAt(t, db, files, "y.py", "foo", 1)
	assert.Equal(t, foo.ID, ref.Target)
	assert.Equal(t, binding.ID, ref.Via)
	assert.Equal(t, symbols.Resolved, ref.Status)

	imp, ok := db.Import(binding.Import)
	require.True(t, ok)
	assert.Equal(t, "x.foo", imp.Qualified)
	assert.Equal(t, foo.ID, imp.Target)
	assert.False(t, imp.IsModule)
}

func TestResolver_ImportTablePerForm(t *testing.T) {
	files := workspace{
		"pkg/__init__.py": "",
		"pkg/sub.py":      "def f():\n    pass\n",
		"main.py": `import pkg.sub
import pkg.sub as ps
from pkg import sub
from pkg.sub import f
from pkg.sub import f as g
import os.path
`,
	}
	db := resolve(t, files)
	main, _ := db.FileByPath("main.py")
	sub, _ := db.FileByPath("pkg/sub.py")
	pkg, _ := db.FileByPath("pkg/__init__.py")
	f := symbolAt(t, db, files, "pkg/sub.py", "f", 0)

	table := db.ImportTable(main.ID)
	require.NotNil(t, table)

	tests := []struct {
		name      string
		qualified string
		file      symbols.FileID
		module    bool
		target    symbols.SymbolID
	}{
		{name: "pkg", qualified: "pkg", file: pkg.ID, module: true},
		{name: "ps", qualified: "pkg.sub", file: sub.ID, module: true},
		{name: "sub", qualified: "pkg.sub", file: sub.ID, module: true},
		{name: "f", qualified: "pkg.sub.f", file: sub.ID, target: f.ID},
		{name: "g", qualified: "pkg.sub.f", file: sub.ID, target: f.ID},
		{name: "os", qualified: "os", module: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := table.Lookup(tt.name)
			require.Len(t, entries, 1)
			e := entries[0]
			assert.Equal(t, tt.qualified, e.Qualified)
			assert.Equal(t, tt.file, e.File)
			assert.Equal(t, tt.module, e.Module)
			imp, _ := db.Import(e.Import)
			assert.Equal(t, tt.target, imp.Target)
		})
	}
}

func TestResolver_RelativeImports(t *testing.T) {
	files := workspace{
		"pkg/__init__.py": "",
		"pkg/sub.py":      "def f():\n    pass\n",
		"pkg/a.py":        "from .sub import f\nfrom . import sub\nfrom ... import nowhere\n",
	}
	db := resolve(t, files)
	a, _ := db.FileByPath("pkg/a.py")
	sub, _ := db.FileByPath("pkg/sub.py")
	f := symbolAt(t, db, files, "pkg/sub.py", "f", 0)

	imports := db.ImportsOf(a.ID)
	require.Len(t, imports, 3)

	assert.Equal(t, "pkg.sub.f", imports[0].Qualified)
	assert.Equal(t, f.ID, imports[0].Target)

	assert.Equal(t, "pkg.sub", imports[1].Qualified)
	assert.True(t, imports[1].IsModule)
	assert.Equal(t, sub.ID, imports[1].ResolvedFile)

	assert.Equal(t, "", imports[2].Qualified, "escapes the top-level package")
	assert.Equal(t, symbols.Unresolved, imports[2].Status)
	assert.Zero(t, imports[2].ResolvedFile)
}

func TestResolver_ModulePrefersPlainFileOverPackage(t *testing.T) {
	files := workspace{
		"util.py":          "def helper():\n    pass\n",
		"util/__init__.py": "def helper():\n    pass\n",
		"main.py":          "from util import helper\n",
	}
	db := resolve(t, files)
	plain := symbolAt(t, db, files, "util.py", "helper", 0)
	main, _ := db.FileByPath("main.py")
	imp := db.ImportsOf(main.ID)[0]
	assert.Equal(t, plain.ID, imp.Target)
}

func TestResolver_LEGB(t *testing.T) {
	src := `x = 1
class C:
    x = 2
    y = x
    def m(self):
        return x
def outer():
    x = 3
    def inner():
        return x
    return inner
squares = [x for x in range(3)]
print(x)
`
	files := workspace{"m.py": src}
	db := resolve(t, files)

	moduleX := symbolAt(t, db, files, "m.py", "x", 0)
	classX := symbolAt(t, db, files, "m.py", "x", 1)
	outerX := symbolAt(t, db, files, "m.py", "x", 4)
	compX := symbolAt(t, db, files, "m.py", "x", 7)

	tests := []struct {
		name   string
		nth    int
		target symbols.SymbolID
	}{
		{name: "class body sees its own binding", nth: 2, target: classX.ID},
		{name: "method skips the class scope", nth: 3, target: moduleX.ID},
		{name: "closure sees the enclosing function", nth: 5, target: outerX.ID},
		{name: "comprehension element", nth: 6, target: compX.ID},
		{name: "module level", nth: 8, target: moduleX.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := refAt(t, db, files, "m.py", "x", tt.nth)
			assert.Equal(t, tt.target, ref.Target)
			assert.Equal(t, symbols.Resolved, ref.Status)
		})
	}

	printRef := refAt(t, db, files, "m.py", "print", 0)
	assert.Equal(t, symbols.Builtin, printRef.Status)
	assert.Zero(t, printRef.Target)

	rangeRef := refAt(t, db, files, "m.py", "range", 0)
	assert.Equal(t, symbols.Builtin, rangeRef.Status)
}

func TestResolver_GlobalAndNonlocal(t *testing.T) {
	src := `count = 0
def bump():
    global count
    count += 1
    return count
def outer():
    total = 0
    def inner():
        nonlocal total
        total = total + 1
    return inner
`
	files := workspace{"m.py": src}
	db := resolve(t, files)
	count := symbolAt(t, db, files, "m.py", "count", 0)
	total := symbolAt(t, db, files, "m.py", "total", 0)

	decl := refAt(t, db, files, "m.py", "count", 1)
	assert.Equal(t, parser.RefDeclaration, decl.Kind)
	assert.Equal(t, count.ID, decl.Target)

	write := refAt(t, db, files, "m.py", "count", 2)
	assert.Equal(t, parser.RefWrite, write.Kind)
	assert.Equal(t, count.ID, write.Target)
	assert.Equal(t, count.ID, refAt(t, db, files, "m.py", "count", 3).Target)

	for nth := 1; nth <= 3; nth++ {
		assert.Equal(t, total.ID, refAt(t, db, files, "m.py", "total", nth).Target, "total #%d", nth)
	}
}

func TestResolver_FollowsReExportChains(t *testing.T) {
	files := workspace{
		"a.py": "def f():\n    pass\n",
		"b.py": "from a import f\n",
		"c.py": "from b import f as g\ng()\n",
	}
	db := resolve(t, files)
	f := symbolAt(t, db, files, "a.py", "f", 0)
	alias := symbolAt(t, db, files, "c.py", "g", 0)

	ref := refAt(t, db, files, "c.py", "g", 1)
	assert.Equal(t, f.ID, ref.Target)
	assert.Equal(t, alias.ID, ref.Via)
	assert.Equal(t, symbols.KindImportAlias, alias.Kind)
}

func TestResolver_ImportCyclesTerminate(t *testing.T) {
	files := workspace{
		"a.py": "from b import g\ng()\n",
		"b.py": "from a import g\n",
	}
	db := resolve(t, files)
	a, _ := db.FileByPath("a.py")
	imp := db.ImportsOf(a.ID)[0]
	assert.Zero(t, imp.Target)

	ref := refAt(t, db, files, "a.py", "g", 1)
	binding := symbolAt(t, db, files, "a.py", "g", 0)
	assert.Equal(t, binding.ID, ref.Target)
}

func TestResolver_StarImports(t *testing.T) {
	files := workspace{
		"known.py":   "__all__ = [\"pub\"]\ndef pub():\n    pass\ndef hidden():\n    pass\n",
		"unknown.py": "def loose():\n    pass\n",
		"use.py":     "from known import *\nfrom unknown import *\npub()\nhidden()\nloose()\nlen([])\n",
	}
	db := resolve(t, files)
	pub := symbolAt(t, db, files, "known.py", "pub", 1)
	loose := symbolAt(t, db, files, "unknown.py", "loose", 0)

	pubRef := refAt(t, db, files, "use.py", "pub", 0)
	assert.Equal(t, pub.ID, pubRef.Target)
	assert.Equal(t, symbols.Resolved, pubRef.Status)

	hiddenRef := refAt(t, db, files, "use.py", "hidden", 0)
	assert.Equal(t, symbols.Ambiguous, hiddenRef.Status, "the unknown star may still provide it")
	assert.Zero(t, hiddenRef.Target)

	looseRef := refAt(t, db, files, "use.py", "loose", 0)
	assert.Equal(t, symbols.Ambiguous, looseRef.Status)
	assert.Zero(t, looseRef.Target, "a star without __all__ leaves the name unbound")
	assert.Empty(t, db.ReferencesTo(loose.ID))

	assert.Equal(t, symbols.Builtin, refAt(t, db, files, "use.py", "len", 0).Status)

	use, _ := db.FileByPath("use.py")
	stars := db.ImportTable(use.ID).Stars
	require.Len(t, stars, 2)
	assert.Equal(t, "known", stars[0].Qualified)
}

func TestResolver_KnownExportsHideUnlisted(t *testing.T) {
	files := workspace{
		"known.py": "__all__ = [\"pub\"]\ndef hidden():\n    pass\ndef pub():\n    pass\n",
		"use.py":   "from known import *\nhidden()\n",
	}
	db := resolve(t, files)
	ref := refAt(t, db, files, "use.py", "hidden", 0)
	assert.Equal(t, symbols.Unresolved, ref.Status)
	assert.Zero(t, ref.Target)
}

func TestResolver_ModuleQualifiedAttributes(t *testing.T) {
	files := workspace{
		"pkg/__init__.py": "",
		"pkg/sub.py":      "def f():\n    pass\nVALUE = 1\n",
		"main.py":         "import pkg.sub\nimport pkg.sub as ps\npkg.sub.f()\nprint(ps.VALUE)\n",
	}
	db := resolve(t, files)
	f := symbolAt(t, db, files, "pkg/sub.py", "f", 0)
	value := symbolAt(t, db, files, "pkg/sub.py", "VALUE", 0)

	call := refAt(t, db, files, "main.py", "f", 0)
	assert.Equal(t, parser.RefCall, call.Kind)
	assert.Equal(t, f.ID, call.Target)
	assert.Equal(t, uint8(3), call.Pass)

	attr := refAt(t, db, files, "main.py", "VALUE", 0)
	assert.Equal(t, parser.RefAttribute, attr.Kind)
	assert.Equal(t, value.ID, attr.Target)
}

func TestResolver_Deterministic(t *testing.T) {
	files := workspace{
		"a.py": "def f():\n    pass\n",
		"b.py": "from a import f\nimport a\nf()\na.f()\n",
		"c.py": "from b import *\nf()\n",
	}
	first := resolve(t, files)
	second := resolve(t, files)
	assert.Equal(t, first.References(), second.References())
	assert.Equal(t, first.Imports(), second.Imports())
}

func TestRelativeBase(t *testing.T) {
	pkgFile := symbols.File{Module: "pkg.sub", Package: true}
	modFile := symbols.File{Module: "pkg.sub.mod"}

	tests := []struct {
		name   string
		file   symbols.File
		depth  int
		module string
		want   string
		ok     bool
	}{
		{name: "package self", file: pkgFile, depth: 1, module: "x", want: "pkg.sub.x", ok: true},
		{name: "module sibling", file: modFile, depth: 1, module: "x", want: "pkg.sub.x", ok: true},
		{name: "parent", file: modFile, depth: 2, module: "", want: "pkg", ok: true},
		{name: "top", file: modFile, depth: 3, module: "y", want: "y", ok: true},
		{name: "escape", file: modFile, depth: 4, module: "y", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RelativeBase(tt.file, tt.depth, tt.module)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
