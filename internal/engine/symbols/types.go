package symbols

import (
	"pyrefactor/internal/engine/parser"
)

type (
	FileID      uint32
	ScopeID     uint32
	SymbolID    uint32
	ReferenceID uint32
	ImportID    uint32
)

type (
	Span      = parser.Span
	ScopeKind = parser.ScopeKind
	RefKind   = parser.RefKind
)

type SymbolKind uint8

const (
	KindFunction SymbolKind = iota
	KindClass
	KindMethod
	KindParameter
	KindVariable
	KindImport
	KindImportAlias
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindMethod:
		return "method"
	case KindParameter:
		return "parameter"
	case KindVariable:
		return "variable"
	case KindImport:
		return "import"
	case KindImportAlias:
		return "import_alias"
	default:
		return "unknown"
	}
}

// IsImport reports whether the symbol is a local binding created by an
// import statement.
func (k SymbolKind) IsImport() bool {
	return k == KindImport || k == KindImportAlias
}

type File struct {
	ID      FileID
	Path    string
	Hash    string
	Ordinal int
	Module  string
	Package bool
	Content []byte
	Exports parser.Exports
}

type Scope struct {
	ID        ScopeID
	Kind      ScopeKind
	Parent    ScopeID // 0 for a module scope
	File      FileID
	Name      string
	Globals   []string
	Nonlocals []string
	Lexical   Span
	Owner     SymbolID
}

type Symbol struct {
	ID         SymbolID
	Name       string
	Kind       SymbolKind
	Scope      ScopeID
	File       FileID
	Ident      Span
	Def        Span
	Container  SymbolID
	Body       ScopeID
	Import     ImportID
	Param      int
	Decorators []string
}

type Status uint8

const (
	Unresolved Status = iota
	Resolved
	Ambiguous
	Builtin
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Ambiguous:
		return "ambiguous"
	case Builtin:
		return "builtin"
	default:
		return "unresolved"
	}
}

type Reference struct {
	ID     ReferenceID
	Name   string
	Scope  ScopeID
	File   FileID
	Span   Span
	Kind   RefKind
	Target SymbolID
	Via    SymbolID // local import binding the lookup went through
	Status Status
	Pass   uint8
}

type Import struct {
	ID       ImportID
	File     FileID
	Scope    ScopeID
	Module   string
	Name     string
	Bound    string
	Alias    string
	Depth    int
	From     bool
	Star     bool
	Binding  SymbolID
	NameSpan Span
	Span     Span

	// Filled by the resolver.
	Qualified    string
	ResolvedFile FileID
	IsModule     bool
	Target       SymbolID
	Status       Status
}

type Provenance uint8

const (
	ProvenanceConstructor Provenance = iota + 1
	ProvenanceAnnotation
	ProvenanceClassAttribute
	ProvenanceReceiver
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceConstructor:
		return "L1"
	case ProvenanceAnnotation:
		return "L2"
	case ProvenanceClassAttribute:
		return "L3"
	case ProvenanceReceiver:
		return "receiver"
	default:
		return "none"
	}
}

type TypeInfo struct {
	Symbol     SymbolID
	Class      SymbolID
	TypeName   string
	Provenance Provenance
	// ClassObject is set when the symbol holds the class itself, as `cls`
	// does in a classmethod, rather than an instance.
	ClassObject bool
}

// AttributeType is the type of an instance attribute assigned or annotated
// through `self` inside a class's methods.
type AttributeType struct {
	Class      SymbolID
	Attr       string
	Type       SymbolID
	TypeName   string
	Provenance Provenance
}

type InheritanceInfo struct {
	Class      SymbolID
	Bases      []SymbolID
	Unresolved []string
}

// NameEntry is one hit of the global name index.
type NameEntry struct {
	File   FileID
	Symbol SymbolID
}

type nameKey struct {
	name string
	kind SymbolKind
}

// ImportEntry maps a locally bound name to its qualified target.
type ImportEntry struct {
	Name      string
	Qualified string
	File      FileID // resolved file, 0 when the target is outside the workspace
	Module    bool   // the target is a module rather than a member
	Symbol    SymbolID
	Import    ImportID
	Scope     ScopeID
}

// StarEntry is a `from m import *` in a given scope.
type StarEntry struct {
	Scope     ScopeID
	Qualified string
	File      FileID
	Import    ImportID
}

// ImportTable is the per-file import-resolution table.
type ImportTable struct {
	File    FileID
	Entries []ImportEntry
	Stars   []StarEntry

	byName map[string][]int
}

func NewImportTable(file FileID) *ImportTable {
	return &ImportTable{
		File:   file,
		byName: make(map[string][]int),
	}
}

func (t *ImportTable) Add(e ImportEntry) {
	idx := len(t.Entries)
	t.Entries = append(t.Entries, e)
	t.byName[e.Name] = append(t.byName[e.Name], idx)
}

// Lookup returns every entry binding name in any scope of the file.
func (t *ImportTable) Lookup(name string) []ImportEntry {
	idxs := t.byName[name]
	out := make([]ImportEntry, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, t.Entries[i])
	}
	return out
}

// StarsIn returns the star imports executed directly in scope.
func (t *ImportTable) StarsIn(scope ScopeID) []StarEntry {
	var out []StarEntry
	for _, s := range t.Stars {
		if s.Scope == scope {
			out = append(out, s)
		}
	}
	return out
}
