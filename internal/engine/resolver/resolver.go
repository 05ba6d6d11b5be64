// # internal/engine/resolver/resolver.go
package resolver

import (
	"context"
	"log/slog"
	"sort"

	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
)

// Stats summarizes one resolver run.
type Stats struct {
	Imports         int
	ExternalImports int
	Resolved        int
	Unresolved      int
	Ambiguous       int
	Builtin         int
}

func (s *Stats) count(status symbols.Status) {
	switch status {
	case symbols.Resolved:
		s.Resolved++
	case symbols.Ambiguous:
		s.Ambiguous++
	case symbols.Builtin:
		s.Builtin++
	default:
		s.Unresolved++
	}
}

// Resolver is Pass 3. It resolves every import to a file and, for from-imports,
// to the original definition; then binds each raw reference to a symbol with
// LEGB lookup, and resolves attributes read off imported modules.
type Resolver struct {
	db      *symbols.Database
	modules *ModuleIndex

	importDone   map[symbols.ImportID]bool
	importActive map[symbols.ImportID]bool
	members      map[memberKey]chainEnd
	memberActive map[memberKey]bool

	stats Stats
}

func New(db *symbols.Database) *Resolver {
	return &Resolver{
		db:           db,
		modules:      NewModuleIndex(db.Files()),
		importDone:   make(map[symbols.ImportID]bool),
		importActive: make(map[symbols.ImportID]bool),
		members:      make(map[memberKey]chainEnd),
		memberActive: make(map[memberKey]bool),
	}
}

// Run resolves imports, builds the per-file import tables and registers
// Pass 3 references. Files are visited in database order, so the references
// get the same identities on every run.
func (r *Resolver) Run(ctx context.Context) (Stats, error) {
	files := r.db.Files()

	// 1. Imports, lazily following chains across files.
	for _, f := range files {
		for _, imp := range r.db.ImportsOf(f.ID) {
			r.resolveImport(imp.ID)
		}
	}
	for _, f := range files {
		r.db.SetImportTable(r.buildTable(f.ID))
	}
	if err := ctx.Err(); err != nil {
		return r.stats, err
	}

	// 2. Names, then module-qualified attributes.
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return r.stats, err
		}
		r.resolveNames(f)
		r.resolveModuleAttributes(f)
	}

	slog.Debug("pass 3 complete",
		"imports", r.stats.Imports,
		"external_imports", r.stats.ExternalImports,
		"resolved", r.stats.Resolved,
		"unresolved", r.stats.Unresolved,
		"ambiguous", r.stats.Ambiguous,
		"builtin", r.stats.Builtin,
	)
	return r.stats, nil
}

func (r *Resolver) resolveNames(f symbols.File) {
	facts := r.db.Facts(f.ID)
	if facts == nil {
		return
	}
	refs := make([]parser.Reference, 0, len(facts.Raw.References)+len(facts.Writes))
	refs = append(refs, facts.Raw.References...)
	refs = append(refs, facts.Writes...)
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Span.Start < refs[j].Span.Start
	})

	for _, raw := range refs {
		scope := facts.Scopes[raw.Scope]
		res := r.lookup(scope, raw.Name)
		_, added := r.db.AddReference(symbols.Reference{
			Name:   raw.Name,
			Scope:  scope,
			File:   f.ID,
			Span:   raw.Span,
			Kind:   raw.Kind,
			Target: res.target,
			Via:    res.via,
			Status: res.status,
			Pass:   3,
		})
		if added {
			r.stats.count(res.status)
		}
	}
}
