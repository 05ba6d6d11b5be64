package rename

import (
	"sort"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
	"pyrefactor/internal/shared/observability"
)

// Apply computes the edits renaming id to newName and the rewritten
// content of every touched file. Nothing is written to disk.
func (e *Engine) Apply(id symbols.SymbolID, newName string) (*Result, error) {
	res, err := e.apply(id, newName)
	if err != nil {
		observability.RenameRequestsTotal.WithLabelValues("rename", string(errors.CodeOf(err))).Inc()
		return nil, err
	}
	observability.RenameRequestsTotal.WithLabelValues("rename", "ok").Inc()
	observability.RenameEditsTotal.Add(float64(len(res.Edits)))
	return res, nil
}

func (e *Engine) apply(id symbols.SymbolID, newName string) (*Result, error) {
	if err := e.ensureComplete("rename"); err != nil {
		return nil, err
	}
	if !parser.IsIdentifier(newName) || parser.IsKeyword(newName) {
		return nil, errors.AddContext(errors.New(errors.CodeInvalidName, "not a valid identifier"), errors.CtxName, newName)
	}
	sym, ok := e.db.Symbol(id)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "unknown symbol"), errors.CtxSymbol, id)
	}
	if sym.Kind == symbols.KindImport {
		err := errors.New(errors.CodeNotSupported, "import binding does not resolve to a workspace definition")
		return nil, errors.AddContext(err, errors.CtxSymbol, sym.Name)
	}
	if newName == sym.Name {
		return &Result{Symbol: sym, NewName: newName, Files: map[string][]byte{}}, nil
	}

	report, err := e.Impact(id)
	if err != nil {
		return nil, err
	}
	if e.checkConflicts {
		if err := e.conflicts(sym, report, newName); err != nil {
			return nil, err
		}
	}

	byPath := make(map[string][]Edit)
	var paths []string
	for _, s := range report.References {
		if s.Text != sym.Name {
			err := errors.Newf(errors.CodeInternal, "site text %q does not match %q", s.Text, sym.Name)
			err = errors.AddContext(err, errors.CtxPath, s.Path)
			return nil, errors.AddContext(err, errors.CtxOffset, s.Span.Start)
		}
		if _, ok := byPath[s.Path]; !ok {
			paths = append(paths, s.Path)
		}
		byPath[s.Path] = append(byPath[s.Path], Edit{
			Path:    s.Path,
			Span:    s.Span,
			Line:    s.Line,
			Column:  s.Column,
			Kind:    s.Kind,
			OldText: s.Text,
			NewText: newName,
		})
	}
	sort.Strings(paths)

	res := &Result{Symbol: sym, NewName: newName, Files: make(map[string][]byte, len(paths))}
	for _, path := range paths {
		edits := byPath[path]
		sort.SliceStable(edits, func(i, j int) bool { return edits[i].Span.Start > edits[j].Span.Start })
		for i := 1; i < len(edits); i++ {
			if edits[i].Span.Overlaps(edits[i-1].Span) {
				err := errors.New(errors.CodeOverlappingEdits, "edits overlap")
				err = errors.AddContext(err, errors.CtxPath, path)
				return nil, errors.AddContext(err, errors.CtxOffset, edits[i].Span.Start)
			}
		}
		f, _ := e.db.FileByPath(path)
		res.Files[path] = applyEdits(f.Content, edits)
		res.Edits = append(res.Edits, edits...)
	}
	return res, nil
}

// applyEdits rewrites content; edits are sorted by descending offset so
// earlier spans stay valid.
func applyEdits(content []byte, edits []Edit) []byte {
	out := append([]byte(nil), content...)
	for _, ed := range edits {
		tail := append([]byte(ed.NewText), out[ed.Span.End:]...)
		out = append(out[:ed.Span.Start], tail...)
	}
	return out
}

// conflicts refuses names already bound where the renamed symbol, its
// overrides or its unaliased import bindings live.
func (e *Engine) conflicts(sym symbols.Symbol, report *Report, newName string) error {
	scopes := []symbols.ScopeID{sym.Scope}
	for _, s := range report.References {
		switch s.Kind {
		case SiteOverride:
			if over, ok := e.db.Symbol(s.Symbol); ok {
				scopes = append(scopes, over.Scope)
			}
		case SiteImport:
			f, _ := e.db.FileByPath(s.Path)
			for _, imp := range e.db.ImportsOf(f.ID) {
				if imp.NameSpan == s.Span && imp.Alias == "" {
					scopes = append(scopes, imp.Scope)
				}
			}
		}
	}
	for _, scope := range scopes {
		if existing, ok := e.db.Local(scope, newName); ok {
			other, _ := e.db.Symbol(existing)
			f, _ := e.db.File(other.File)
			err := errors.Newf(errors.CodeNameConflict, "%q is already bound in this scope", newName)
			err = errors.AddContext(err, errors.CtxName, newName)
			return errors.AddContext(err, errors.CtxPath, f.Path)
		}
	}
	return nil
}
