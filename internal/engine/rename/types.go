package rename

import (
	"pyrefactor/internal/engine/symbols"
)

type SiteKind string

const (
	SiteDefinition SiteKind = "definition"
	SiteReference  SiteKind = "reference"
	SiteImport     SiteKind = "import"
	SiteExport     SiteKind = "export"
	SiteOverride   SiteKind = "override"
)

// Site is one place a rename must rewrite.
type Site struct {
	Path   string
	Span   symbols.Span
	Line   int
	Column int
	Kind   SiteKind
	Symbol symbols.SymbolID
	Text   string
}

// Report is the impact of renaming a symbol.
type Report struct {
	Symbol     symbols.Symbol
	Path       string
	References []Site
	// Dependents are workspace files importing the defining file.
	Dependents []string
}

// Files returns the distinct paths touched by the report, in order.
func (r *Report) Files() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range r.References {
		if !seen[s.Path] {
			seen[s.Path] = true
			out = append(out, s.Path)
		}
	}
	return out
}

type Edit struct {
	Path    string
	Span    symbols.Span
	Line    int
	Column  int
	Kind    SiteKind
	OldText string
	NewText string
}

// Result holds the edits of a rename and the rewritten content of every
// file they touch. Edits are ordered by path, then by descending offset.
type Result struct {
	Symbol  symbols.Symbol
	NewName string
	Edits   []Edit
	Files   map[string][]byte
}

type Request struct {
	Path    string
	Offset  int
	NewName string
}

type Response struct {
	Symbol symbols.Symbol
	Edits  []Edit
	Files  map[string][]byte
}
