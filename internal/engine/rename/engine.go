package rename

import (
	"fmt"
	"sort"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/symbols"
	"pyrefactor/internal/shared/observability"
)

type Option func(*Engine)

// WithConflictChecks toggles refusing names already bound in the symbol's
// scope. It is on by default.
func WithConflictChecks(enabled bool) Option {
	return func(e *Engine) { e.checkConflicts = enabled }
}

// locSite is a span a cursor can land on and the symbol it denotes.
type locSite struct {
	span   symbols.Span
	symbol symbols.SymbolID
}

// Engine answers locate, impact and rename queries against one bundle. It
// never mutates the bundle and is safe for concurrent use.
type Engine struct {
	bundle         *pipeline.Bundle
	db             *symbols.Database
	checkConflicts bool
	sites          map[symbols.FileID][]locSite
}

func NewEngine(b *pipeline.Bundle, opts ...Option) *Engine {
	e := &Engine{
		bundle:         b,
		db:             b.DB(),
		checkConflicts: true,
		sites:          make(map[symbols.FileID][]locSite),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.index()
	return e
}

func (e *Engine) index() {
	add := func(file symbols.FileID, span symbols.Span, id symbols.SymbolID) {
		if id == 0 || span.IsZero() {
			return
		}
		e.sites[file] = append(e.sites[file], locSite{span: span, symbol: id})
	}
	for _, s := range e.db.Symbols() {
		add(s.File, s.Ident, e.canonical(s.ID))
	}
	for _, r := range e.db.References() {
		if r.Target == 0 {
			continue
		}
		if alias, ok := e.aliasVia(r); ok {
			add(r.File, r.Span, alias)
			continue
		}
		add(r.File, r.Span, e.canonical(r.Target))
	}
	for _, imp := range e.db.Imports() {
		if imp.Star || imp.NameSpan.IsZero() {
			continue
		}
		if imp.Target != 0 {
			add(imp.File, imp.NameSpan, imp.Target)
			continue
		}
		add(imp.File, imp.NameSpan, e.canonical(imp.Binding))
	}
	for _, f := range e.db.Files() {
		if !f.Exports.Known {
			continue
		}
		for i, name := range f.Exports.Names {
			if id, ok := e.exported(f.ID, name); ok {
				add(f.ID, f.Exports.Spans[i], id)
			}
		}
	}
	for _, sites := range e.sites {
		sort.SliceStable(sites, func(i, j int) bool { return sites[i].span.Start < sites[j].span.Start })
	}
}

// canonical maps an import binding to the definition its chain ends at.
// Alias bindings stay themselves since their text is the alias.
func (e *Engine) canonical(id symbols.SymbolID) symbols.SymbolID {
	sym, ok := e.db.Symbol(id)
	if !ok || sym.Kind != symbols.KindImport || sym.Import == 0 {
		return id
	}
	if imp, ok := e.db.Import(sym.Import); ok && imp.Target != 0 {
		return imp.Target
	}
	return id
}

func (e *Engine) aliasVia(r symbols.Reference) (symbols.SymbolID, bool) {
	if r.Via == 0 {
		return 0, false
	}
	via, ok := e.db.Symbol(r.Via)
	if !ok || via.Kind != symbols.KindImportAlias {
		return 0, false
	}
	return via.ID, true
}

// exported resolves an __all__ entry to the symbol the module binds under
// that name.
func (e *Engine) exported(file symbols.FileID, name string) (symbols.SymbolID, bool) {
	scope, ok := e.db.ModuleScope(file)
	if !ok {
		return 0, false
	}
	id, ok := e.db.Local(scope, name)
	if !ok {
		return 0, false
	}
	return e.canonical(id), true
}

func (e *Engine) ensureComplete(operation string) error {
	if e.bundle.IsComplete() {
		return nil
	}
	err := errors.Newf(errors.CodeIncomplete, "analysis incomplete: %d file(s) failed to parse", e.bundle.FailureCount())
	err = errors.AddContext(err, errors.CtxFailed, e.bundle.FailedPaths())
	return errors.AddContext(err, errors.CtxOperation, operation)
}

// Locate returns the symbol at offset in path. An offset just past the end
// of an identifier also matches it.
func (e *Engine) Locate(path string, offset int) (*symbols.Symbol, error) {
	if err := e.ensureComplete("locate"); err != nil {
		return nil, err
	}
	path = parser.CanonicalPath(path)
	f, ok := e.db.FileByPath(path)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "file is not part of the analysis"), errors.CtxPath, path)
	}
	if offset < 0 || offset > len(f.Content) {
		err := errors.Newf(errors.CodeValidationError, "offset outside file (size %d)", len(f.Content))
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxOffset, offset)
	}

	ids := e.match(f.ID, func(s symbols.Span) bool { return s.Contains(offset) })
	if len(ids) == 0 {
		ids = e.match(f.ID, func(s symbols.Span) bool { return s.End == offset })
	}
	switch len(ids) {
	case 0:
		err := errors.New(errors.CodeNotFound, "no symbol at location")
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxOffset, offset)
	case 1:
		sym, _ := e.db.Symbol(ids[0])
		return &sym, nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		sym, _ := e.db.Symbol(id)
		names = append(names, fmt.Sprintf("%s(%s)", sym.Name, sym.Kind))
	}
	err := errors.Newf(errors.CodeAmbiguousSymbol, "%d symbols at location", len(ids))
	err = errors.AddContext(err, errors.CtxPath, path)
	err = errors.AddContext(err, errors.CtxOffset, offset)
	return nil, errors.AddContext(err, errors.CtxSymbol, names)
}

func (e *Engine) match(file symbols.FileID, hit func(symbols.Span) bool) []symbols.SymbolID {
	var ids []symbols.SymbolID
	seen := make(map[symbols.SymbolID]bool)
	for _, s := range e.sites[file] {
		if hit(s.span) && !seen[s.symbol] {
			seen[s.symbol] = true
			ids = append(ids, s.symbol)
		}
	}
	return ids
}

// Rename locates the symbol under the cursor and renames it.
func (e *Engine) Rename(req Request) (*Response, error) {
	sym, err := e.Locate(req.Path, req.Offset)
	if err != nil {
		observability.RenameRequestsTotal.WithLabelValues("rename", string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	res, err := e.Apply(sym.ID, req.NewName)
	if err != nil {
		return nil, err
	}
	return &Response{Symbol: res.Symbol, Edits: res.Edits, Files: res.Files}, nil
}
