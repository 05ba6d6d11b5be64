// # internal/engine/parser/types.go
package parser

import (
	"fmt"
	"time"
)

// Span is a half-open byte range [Start, End) into a file's content.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

type Location struct {
	Line   int
	Column int
}

type ScopeKind uint8

const (
	ScopeModule ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeLambda
	ScopeComprehension
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeLambda:
		return "lambda"
	case ScopeComprehension:
		return "comprehension"
	default:
		return "unknown"
	}
}

// IsFunctionLike reports whether names bound in the scope are visible to
// nested scopes as closures.
func (k ScopeKind) IsFunctionLike() bool {
	return k == ScopeFunction || k == ScopeLambda || k == ScopeComprehension
}

type BindingKind uint8

const (
	BindFunction BindingKind = iota
	BindClass
	BindParameter
	BindVariable
	BindImport
	BindImportAlias
)

func (k BindingKind) String() string {
	switch k {
	case BindFunction:
		return "function"
	case BindClass:
		return "class"
	case BindParameter:
		return "parameter"
	case BindVariable:
		return "variable"
	case BindImport:
		return "import"
	case BindImportAlias:
		return "import_alias"
	default:
		return "unknown"
	}
}

type RefKind uint8

const (
	RefRead RefKind = iota
	RefWrite
	RefDeclaration
	RefAttribute
	RefCall
)

func (k RefKind) String() string {
	switch k {
	case RefRead:
		return "read"
	case RefWrite:
		return "write"
	case RefDeclaration:
		return "declaration"
	case RefAttribute:
		return "attribute"
	case RefCall:
		return "call"
	default:
		return "unknown"
	}
}

// File is the Pass 1 result for one source file: every fact is local and
// unresolved, with scopes and bindings addressed by their index in this file.
type File struct {
	Path     string
	Hash     string
	Module   string
	Package  bool
	Source   []byte
	ParsedAt time.Time

	Scopes        []Scope
	Bindings      []Binding
	References    []Reference
	Imports       []Import
	Hints         []TypeHint
	Constructions []Construction
	Bases         []BaseDecl
	Attributes    []AttributeSite
	Exports       Exports
}

type Scope struct {
	Index     int
	Kind      ScopeKind
	Parent    int // -1 for the module scope
	Name      string
	Node      NodeID
	Lexical   Span
	Globals   []string
	Nonlocals []string
	Owner     int // binding that opens this scope, -1 for module/lambda/comprehension
}

type Binding struct {
	Index      int
	Name       string
	Kind       BindingKind
	Scope      int
	Node       NodeID
	Ident      Span
	Def        Span
	Body       int // scope opened by a def or class, -1 otherwise
	Param      int // position in the parameter list, -1 otherwise
	Decorators []string
	Import     int // index into File.Imports, -1 otherwise
}

type Reference struct {
	Name  string
	Scope int
	Node  NodeID
	Span  Span
	Kind  RefKind
}

// Import is one bound name of an import statement. `import a, b` yields two.
type Import struct {
	Index    int
	Scope    int
	Module   string // dotted path as written, without leading dots
	Name     string // imported member of a from-import, "" for `import m`
	Alias    string
	Bound    string // local name, "" for star imports
	Depth    int    // leading dots of a relative import, 0 when absolute
	From     bool
	Star     bool
	NameSpan Span // the imported member token, or the first segment of `import a.b`
	Binding  int  // -1 for star imports
	Span     Span
}

// TypeHint is an explicit annotation on a parameter, a variable or an
// attribute of a named receiver (`self.x: T`).
type TypeHint struct {
	Scope       int // scope the annotation expression is evaluated in
	TargetScope int
	Name        string
	Target      Span
	Receiver    string
	Attr        string
	Type        []string
	Parameter   bool
	ClassLevel  bool
}

// Construction records `x = C(...)` or `self.x = C(...)`.
type Construction struct {
	Scope    int
	Name     string
	Target   Span
	Receiver string
	Attr     string
	Callee   []string
}

type BaseDecl struct {
	Class Span // identifier span of the class name
	Scope int  // scope the base list is evaluated in
	Bases [][]string
}

// Step is one link of a receiver chain: a name, optionally called.
type Step struct {
	Name string
	Call bool
}

// AttributeSite is `<receiver>.<Name>`; method-call sites have Call set.
type AttributeSite struct {
	Scope    int
	Name     string
	Span     Span
	Receiver []Step
	Call     bool
	Store    bool
}

// Exports holds a statically known module-level __all__.
type Exports struct {
	Known bool
	Names []string
	Spans []Span // string literal bodies, parallel to Names

	dynamic bool
}

func (e Exports) Has(name string) bool {
	for _, n := range e.Names {
		if n == name {
			return true
		}
	}
	return false
}
