package symbols

import (
	"pyrefactor/internal/engine/parser"
)

// Database is the append-only store built by one analysis run. Passes 2 to 4
// write to it in order; Freeze turns it read-only and any later write panics.
// Every entity draws its identity from the same counter.
type Database struct {
	counter uint32
	frozen  bool

	files       []File
	scopes      []Scope
	symbols     []Symbol
	references  []Reference
	imports     []Import
	types       []TypeInfo
	attrTypes   []AttributeType
	inheritance []InheritanceInfo

	fileIdx   map[FileID]int
	scopeIdx  map[ScopeID]int
	symbolIdx map[SymbolID]int
	refIdx    map[ReferenceID]int
	importIdx map[ImportID]int

	byPath       map[string]FileID
	fileScopes   map[FileID][]ScopeID
	fileImports  map[FileID][]ImportID
	locals       map[ScopeID]map[string]SymbolID
	idents       map[FileID]map[Span]SymbolID
	names        map[nameKey][]NameEntry
	refSpans     map[FileID]map[Span]ReferenceID
	refsByTarget map[SymbolID][]ReferenceID
	typeIdx      map[SymbolID]int
	attrTypeIdx  map[attrKey]int
	inheritIdx   map[SymbolID]int
	tables       map[FileID]*ImportTable
	facts        map[FileID]*FileFacts
}

type attrKey struct {
	class SymbolID
	attr  string
}

// FileFacts keeps a file's Pass 1 output next to the identities Pass 2 gave
// its scopes and bindings, for use by the later passes.
type FileFacts struct {
	Raw      *parser.File
	Scopes   []ScopeID  // by local scope index
	Bindings []SymbolID // symbol each binding defines or rebinds, 0 if none
	Imports  []ImportID // by local import index
	Writes   []parser.Reference
}

func NewDatabase() *Database {
	return &Database{
		fileIdx:      make(map[FileID]int),
		scopeIdx:     make(map[ScopeID]int),
		symbolIdx:    make(map[SymbolID]int),
		refIdx:       make(map[ReferenceID]int),
		importIdx:    make(map[ImportID]int),
		byPath:       make(map[string]FileID),
		fileScopes:   make(map[FileID][]ScopeID),
		fileImports:  make(map[FileID][]ImportID),
		locals:       make(map[ScopeID]map[string]SymbolID),
		idents:       make(map[FileID]map[Span]SymbolID),
		names:        make(map[nameKey][]NameEntry),
		refSpans:     make(map[FileID]map[Span]ReferenceID),
		refsByTarget: make(map[SymbolID][]ReferenceID),
		typeIdx:      make(map[SymbolID]int),
		attrTypeIdx:  make(map[attrKey]int),
		inheritIdx:   make(map[SymbolID]int),
		tables:       make(map[FileID]*ImportTable),
		facts:        make(map[FileID]*FileFacts),
	}
}

func (db *Database) next() uint32 {
	db.mustWritable()
	db.counter++
	return db.counter
}

func (db *Database) mustWritable() {
	if db.frozen {
		panic("symbols: write to a frozen database")
	}
}

// Freeze ends the build. The database is safe for concurrent reads afterwards.
func (db *Database) Freeze() {
	db.frozen = true
}

func (db *Database) Frozen() bool {
	return db.frozen
}

func (db *Database) AddFile(f File) FileID {
	f.ID = FileID(db.next())
	db.fileIdx[f.ID] = len(db.files)
	db.files = append(db.files, f)
	db.byPath[f.Path] = f.ID
	return f.ID
}

func (db *Database) AddScope(s Scope) ScopeID {
	s.ID = ScopeID(db.next())
	db.scopeIdx[s.ID] = len(db.scopes)
	db.scopes = append(db.scopes, s)
	db.fileScopes[s.File] = append(db.fileScopes[s.File], s.ID)
	return s.ID
}

func (db *Database) setScopeOwner(id ScopeID, owner SymbolID) {
	db.mustWritable()
	if i, ok := db.scopeIdx[id]; ok {
		db.scopes[i].Owner = owner
	}
}

func (db *Database) AddSymbol(s Symbol) SymbolID {
	s.ID = SymbolID(db.next())
	db.symbolIdx[s.ID] = len(db.symbols)
	db.symbols = append(db.symbols, s)

	if db.locals[s.Scope] == nil {
		db.locals[s.Scope] = make(map[string]SymbolID)
	}
	if _, exists := db.locals[s.Scope][s.Name]; !exists {
		db.locals[s.Scope][s.Name] = s.ID
	}
	if db.idents[s.File] == nil {
		db.idents[s.File] = make(map[Span]SymbolID)
	}
	db.idents[s.File][s.Ident] = s.ID

	key := nameKey{name: s.Name, kind: s.Kind}
	db.names[key] = append(db.names[key], NameEntry{File: s.File, Symbol: s.ID})
	return s.ID
}

func (db *Database) setSymbolImport(id SymbolID, imp ImportID) {
	db.mustWritable()
	if i, ok := db.symbolIdx[id]; ok {
		db.symbols[i].Import = imp
	}
}

func (db *Database) AddImport(imp Import) ImportID {
	imp.ID = ImportID(db.next())
	db.importIdx[imp.ID] = len(db.imports)
	db.imports = append(db.imports, imp)
	db.fileImports[imp.File] = append(db.fileImports[imp.File], imp.ID)
	return imp.ID
}

// ResolveImport records the resolver's outcome for an import.
func (db *Database) ResolveImport(id ImportID, qualified string, file FileID, isModule bool, target SymbolID, status Status) {
	db.mustWritable()
	i, ok := db.importIdx[id]
	if !ok {
		return
	}
	imp := &db.imports[i]
	imp.Qualified = qualified
	imp.ResolvedFile = file
	imp.IsModule = isModule
	imp.Target = target
	imp.Status = status
}

// AddReference registers a reference unless one already exists at the same
// (file, span); the existing ID is returned with false in that case.
func (db *Database) AddReference(r Reference) (ReferenceID, bool) {
	db.mustWritable()
	if existing, ok := db.ReferenceAt(r.File, r.Span); ok {
		return existing.ID, false
	}
	r.ID = ReferenceID(db.next())
	db.refIdx[r.ID] = len(db.references)
	db.references = append(db.references, r)
	if db.refSpans[r.File] == nil {
		db.refSpans[r.File] = make(map[Span]ReferenceID)
	}
	db.refSpans[r.File][r.Span] = r.ID
	if r.Target != 0 {
		db.refsByTarget[r.Target] = append(db.refsByTarget[r.Target], r.ID)
	}
	return r.ID, true
}

// SetType records a symbol's inferred type, replacing any earlier entry.
func (db *Database) SetType(t TypeInfo) {
	db.mustWritable()
	if i, ok := db.typeIdx[t.Symbol]; ok {
		db.types[i] = t
		return
	}
	db.typeIdx[t.Symbol] = len(db.types)
	db.types = append(db.types, t)
}

func (db *Database) SetAttributeType(t AttributeType) {
	db.mustWritable()
	key := attrKey{class: t.Class, attr: t.Attr}
	if i, ok := db.attrTypeIdx[key]; ok {
		db.attrTypes[i] = t
		return
	}
	db.attrTypeIdx[key] = len(db.attrTypes)
	db.attrTypes = append(db.attrTypes, t)
}

func (db *Database) AddInheritance(info InheritanceInfo) {
	db.mustWritable()
	db.inheritIdx[info.Class] = len(db.inheritance)
	db.inheritance = append(db.inheritance, info)
}

func (db *Database) SetImportTable(t *ImportTable) {
	db.mustWritable()
	db.tables[t.File] = t
}

func (db *Database) setFacts(id FileID, f *FileFacts) {
	db.facts[id] = f
}
