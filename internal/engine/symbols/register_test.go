package symbols

import (
	"testing"

	"pyrefactor/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeAll(t *testing.T, files map[string]string, order []string) []*parser.File {
	t.Helper()
	a := parser.NewLocalAnalyzer(parser.NewParser(0), []string{""})
	out := make([]*parser.File, 0, len(order))
	for _, path := range order {
		f, err := a.Analyze(path, []byte(files[path]))
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func build(t *testing.T, files map[string]string, order []string) *Database {
	t.Helper()
	db := NewDatabase()
	Register(db, analyzeAll(t, files, order))
	return db
}

func findSymbol(db *Database, name string, kind SymbolKind) (Symbol, bool) {
	for _, s := range db.Symbols() {
		if s.Name == name && s.Kind == kind {
			return s, true
		}
	}
	return Symbol{}, false
}

func TestRegister_IdentitiesIndependentOfInputOrder(t *testing.T) {
	files := map[string]string{
		"b.py": "def helper():\n    return 1\n",
		"a.py": "class A:\n    def run(self):\n        pass\n",
		"c.py": "from a import A\nx = A()\n",
	}
	first := build(t, files, []string{"c.py", "a.py", "b.py"})
	second := build(t, files, []string{"b.py", "c.py", "a.py"})

	assert.Equal(t, first.Files(), second.Files())
	assert.Equal(t, first.Scopes(), second.Scopes())
	assert.Equal(t, first.Symbols(), second.Symbols())
	assert.Equal(t, first.Imports(), second.Imports())

	paths := make([]string, 0, 3)
	for i, f := range first.Files() {
		paths = append(paths, f.Path)
		assert.Equal(t, i, f.Ordinal)
	}
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, paths)
}

func TestRegister_SingleCounterAcrossEntities(t *testing.T) {
	db := build(t, map[string]string{"m.py": "class A:\n    def m(self):\n        pass\n"}, []string{"m.py"})

	seen := map[uint32]bool{}
	add := func(id uint32) {
		assert.False(t, seen[id], "identity %d reused", id)
		seen[id] = true
	}
	for _, f := range db.Files() {
		add(uint32(f.ID))
	}
	for _, s := range db.Scopes() {
		add(uint32(s.ID))
	}
	for _, s := range db.Symbols() {
		add(uint32(s.ID))
	}

	file := db.Files()[0]
	scopes := db.ScopesOf(file.ID)
	require.Len(t, scopes, 3)
	assert.Less(t, uint32(file.ID), uint32(scopes[0]))
	assert.Less(t, uint32(scopes[0]), uint32(scopes[1]), "parents before children")
}

func TestRegister_ClassesBeforeOtherSymbols(t *testing.T) {
	src := `def early():
    pass

class Late:
    def method(self):
        pass
`
	db := build(t, map[string]string{"m.py": src}, []string{"m.py"})
	class, ok := findSymbol(db, "Late", KindClass)
	require.True(t, ok)
	early, ok := findSymbol(db, "early", KindFunction)
	require.True(t, ok)
	method, ok := findSymbol(db, "method", KindMethod)
	require.True(t, ok)

	assert.Less(t, uint32(class.ID), uint32(early.ID))
	assert.Equal(t, class.ID, method.Container)

	body, ok := db.Scope(class.Body)
	require.True(t, ok)
	assert.Equal(t, class.ID, body.Owner)

	self, ok := findSymbol(db, "self", KindParameter)
	require.True(t, ok)
	assert.Equal(t, method.Body, self.Scope)
	assert.Equal(t, 0, self.Param)
}

func TestRegister_RebindingsBecomePendingWrites(t *testing.T) {
	src := `count = 0
count = 1
def bump():
    global count
    count += 1
def outer():
    total = 0
    def inner():
        nonlocal total
        total = 5
`
	db := build(t, map[string]string{"m.py": src}, []string{"m.py"})

	var counts, totals int
	for _, s := range db.Symbols() {
		switch s.Name {
		case "count":
			counts++
		case "total":
			totals++
		}
	}
	assert.Equal(t, 1, counts, "global assignment binds the module symbol")
	assert.Equal(t, 1, totals, "nonlocal assignment binds the enclosing symbol")

	facts := db.Facts(db.Files()[0].ID)
	require.Len(t, facts.Writes, 3)
	for _, w := range facts.Writes {
		assert.Equal(t, parser.RefWrite, w.Kind)
	}
}

func TestRegister_NameIndexAndImports(t *testing.T) {
	files := map[string]string{
		"x.py": "def foo():\n    pass\n",
		"y.py": "from x import foo as bar\nimport os.path\n",
	}
	db := build(t, files, []string{"y.py", "x.py"})

	entries := db.LookupName("foo", KindFunction)
	require.Len(t, entries, 1)
	xFile, _ := db.FileByPath("x.py")
	assert.Equal(t, xFile.ID, entries[0].File)

	yFile, _ := db.FileByPath("y.py")
	imports := db.ImportsOf(yFile.ID)
	require.Len(t, imports, 2)
	assert.Equal(t, "x", imports[0].Module)
	assert.Equal(t, "foo", imports[0].Name)
	assert.Equal(t, "bar", imports[0].Bound)

	alias, ok := db.Symbol(imports[0].Binding)
	require.True(t, ok)
	assert.Equal(t, KindImportAlias, alias.Kind)
	assert.Equal(t, imports[0].ID, alias.Import)

	osSym, ok := db.Symbol(imports[1].Binding)
	require.True(t, ok)
	assert.Equal(t, "os", osSym.Name)
	assert.Equal(t, KindImport, osSym.Kind)
}

func TestDatabase_FreezeRejectsWrites(t *testing.T) {
	db := NewDatabase()
	db.AddFile(File{Path: "a.py"})
	db.Freeze()
	assert.Panics(t, func() { db.AddFile(File{Path: "b.py"}) })
}

func TestDatabase_AddReferenceDeduplicatesBySpan(t *testing.T) {
	db := NewDatabase()
	fid := db.AddFile(File{Path: "a.py"})
	span := Span{Start: 3, End: 6}
	first, added := db.AddReference(Reference{File: fid, Span: span, Name: "foo", Pass: 3})
	require.True(t, added)
	second, added := db.AddReference(Reference{File: fid, Span: span, Name: "foo", Pass: 4})
	assert.False(t, added)
	assert.Equal(t, first, second)
	assert.Len(t, db.References(), 1)
}
