package rename

import (
	"sort"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
	"pyrefactor/internal/shared/observability"
)

// ImpactAt reports the impact of renaming the symbol under the cursor.
func (e *Engine) ImpactAt(path string, offset int) (*Report, error) {
	sym, err := e.Locate(path, offset)
	if err != nil {
		observability.RenameRequestsTotal.WithLabelValues("impact", string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	return e.Impact(sym.ID)
}

// Impact lists every site a rename of id rewrites: the definition, the
// references that spell its name, import statements naming it, __all__
// entries and, for methods, every override in a subclass with its
// references.
func (e *Engine) Impact(id symbols.SymbolID) (*Report, error) {
	if err := e.ensureComplete("impact"); err != nil {
		observability.RenameRequestsTotal.WithLabelValues("impact", string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	sym, ok := e.db.Symbol(id)
	if !ok {
		err := errors.New(errors.CodeNotFound, "unknown symbol")
		return nil, errors.AddContext(err, errors.CtxSymbol, id)
	}
	file, _ := e.db.File(sym.File)

	c := newCollector(e.db)
	if sym.Kind == symbols.KindImportAlias {
		e.aliasSites(c, sym)
	} else {
		e.symbolSites(c, sym, SiteDefinition)
		if sym.Kind == symbols.KindMethod && e.bundle.Graph() != nil {
			for _, o := range e.bundle.Graph().Overrides(sym.ID) {
				if over, ok := e.db.Symbol(o); ok {
					e.symbolSites(c, over, SiteOverride)
				}
			}
		}
	}

	report := &Report{Symbol: sym, Path: file.Path, References: c.sorted()}
	if ig := e.bundle.ImportGraph(); ig != nil {
		if deps, err := ig.Importers(file.Path); err == nil {
			report.Dependents = append(append(report.Dependents, deps.DirectImporters...), deps.TransitiveImporters...)
		}
	}
	observability.RenameRequestsTotal.WithLabelValues("impact", "ok").Inc()
	return report, nil
}

func (e *Engine) symbolSites(c *collector, sym symbols.Symbol, def SiteKind) {
	c.add(sym.File, sym.Ident, def, sym.ID)
	for _, r := range e.db.ReferencesTo(sym.ID) {
		if _, viaAlias := e.aliasVia(r); viaAlias {
			continue
		}
		c.add(r.File, r.Span, SiteReference, sym.ID)
	}
	for _, imp := range e.db.Imports() {
		if imp.Target == sym.ID && !imp.Star && !imp.NameSpan.IsZero() {
			c.add(imp.File, imp.NameSpan, SiteImport, sym.ID)
		}
	}
	for _, f := range e.db.Files() {
		if !f.Exports.Known {
			continue
		}
		for i, name := range f.Exports.Names {
			if name != sym.Name {
				continue
			}
			if id, ok := e.exported(f.ID, name); ok && id == sym.ID {
				c.add(f.ID, f.Exports.Spans[i], SiteExport, sym.ID)
			}
		}
	}
}

// aliasSites covers `import m as x` and `from m import y as x`: the alias
// token and every reference spelled through it.
func (e *Engine) aliasSites(c *collector, alias symbols.Symbol) {
	c.add(alias.File, alias.Ident, SiteDefinition, alias.ID)
	for _, r := range e.db.References() {
		if r.Via == alias.ID || r.Target == alias.ID {
			c.add(r.File, r.Span, SiteReference, alias.ID)
		}
	}
	scope, ok := e.db.ModuleScope(alias.File)
	if !ok || alias.Scope != scope {
		return
	}
	f, _ := e.db.File(alias.File)
	for i, name := range f.Exports.Names {
		if name == alias.Name {
			c.add(f.ID, f.Exports.Spans[i], SiteExport, alias.ID)
		}
	}
}

type siteKey struct {
	file symbols.FileID
	span symbols.Span
}

// collector accumulates sites, keeping the first kind seen per span.
type collector struct {
	db    *symbols.Database
	seen  map[siteKey]bool
	sites []Site
}

func newCollector(db *symbols.Database) *collector {
	return &collector{db: db, seen: make(map[siteKey]bool)}
}

func (c *collector) add(file symbols.FileID, span symbols.Span, kind SiteKind, id symbols.SymbolID) {
	key := siteKey{file: file, span: span}
	if span.IsZero() || c.seen[key] {
		return
	}
	c.seen[key] = true
	f, ok := c.db.File(file)
	if !ok || span.End > len(f.Content) {
		return
	}
	loc := parser.LocationOf(f.Content, span.Start)
	c.sites = append(c.sites, Site{
		Path:   f.Path,
		Span:   span,
		Line:   loc.Line,
		Column: loc.Column,
		Kind:   kind,
		Symbol: id,
		Text:   string(f.Content[span.Start:span.End]),
	})
}

func (c *collector) sorted() []Site {
	sort.SliceStable(c.sites, func(i, j int) bool {
		if c.sites[i].Path != c.sites[j].Path {
			return c.sites[i].Path < c.sites[j].Path
		}
		return c.sites[i].Span.Start < c.sites[j].Span.Start
	})
	return c.sites
}
