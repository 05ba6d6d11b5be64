package resolver

import (
	"sort"

	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
)

type resolution struct {
	target symbols.SymbolID
	via    symbols.SymbolID
	status symbols.Status
}

// Lookup resolves name as read in scope, for callers outside Pass 3 such as
// inference resolving base classes and receivers.
func (r *Resolver) Lookup(scope symbols.ScopeID, name string) (symbols.SymbolID, symbols.SymbolID, symbols.Status) {
	res := r.lookup(scope, name)
	return res.target, res.via, res.status
}

// lookup applies LEGB. global and nonlocal declarations in the starting scope
// redirect the search; class bodies are only searched when the lookup starts
// in them.
func (r *Resolver) lookup(start symbols.ScopeID, name string) resolution {
	s, ok := r.db.Scope(start)
	if !ok {
		return resolution{status: symbols.Unresolved}
	}
	switch {
	case has(s.Globals, name):
		return r.global(s.File, name)
	case has(s.Nonlocals, name):
		return r.nonlocal(s, name)
	}

	for i, sid := range r.db.ScopeChain(start) {
		scope, _ := r.db.Scope(sid)
		switch {
		case scope.Kind == parser.ScopeModule:
			return r.global(scope.File, name)
		case scope.Kind == parser.ScopeClass && i > 0:
			continue
		}
		if id, ok := r.db.Local(sid, name); ok {
			return r.bind(id)
		}
	}
	return r.builtin(name)
}

func (r *Resolver) nonlocal(s symbols.Scope, name string) resolution {
	for _, sid := range r.db.ScopeChain(s.Parent) {
		scope, _ := r.db.Scope(sid)
		switch scope.Kind {
		case parser.ScopeClass:
			continue
		case parser.ScopeModule:
			return resolution{status: symbols.Unresolved}
		}
		if id, ok := r.db.Local(sid, name); ok {
			return r.bind(id)
		}
	}
	return resolution{status: symbols.Unresolved}
}

// global searches the module's own bindings, then its star imports, then the
// builtins.
func (r *Resolver) global(file symbols.FileID, name string) resolution {
	if sym, ok := r.moduleLocal(file, name); ok {
		return r.bind(sym.ID)
	}
	end := r.starMember(file, name)
	switch {
	case end.status == symbols.Ambiguous && parser.IsBuiltin(name):
		return r.builtin(name)
	case end.status != symbols.Unresolved:
		if end.module || end.symbol == 0 {
			return resolution{status: end.status}
		}
		return resolution{target: end.symbol, status: end.status}
	}
	return r.builtin(name)
}

func (r *Resolver) builtin(name string) resolution {
	if parser.IsBuiltin(name) {
		return resolution{status: symbols.Builtin}
	}
	return resolution{status: symbols.Unresolved}
}

// bind turns a local hit into a resolution. Import bindings resolve to the
// definition their chain ends at, keeping the binding as Via; module imports
// and imports leaving the workspace resolve to the binding itself.
func (r *Resolver) bind(id symbols.SymbolID) resolution {
	sym, ok := r.db.Symbol(id)
	if !ok {
		return resolution{status: symbols.Unresolved}
	}
	if !sym.Kind.IsImport() || sym.Import == 0 {
		return resolution{target: id, status: symbols.Resolved}
	}
	end := r.follow(sym)
	if end.module || end.symbol == 0 {
		return resolution{target: id, status: symbols.Resolved}
	}
	return resolution{target: end.symbol, via: id, status: end.status}
}

func has(sorted []string, name string) bool {
	i := sort.SearchStrings(sorted, name)
	return i < len(sorted) && sorted[i] == name
}
