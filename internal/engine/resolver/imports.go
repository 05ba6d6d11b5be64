package resolver

import (
	"strings"

	"pyrefactor/internal/engine/symbols"
)

// chainEnd is where an import chain stops: a definition, a module, or
// nothing known.
type chainEnd struct {
	symbol symbols.SymbolID
	file   symbols.FileID
	module bool
	status symbols.Status
}

type memberKey struct {
	file symbols.FileID
	name string
}

// resolveImport resolves one import, following re-export chains through the
// files it names. Results are memoized; an import met again while it is
// being resolved is part of a cycle and stays unresolved.
func (r *Resolver) resolveImport(id symbols.ImportID) symbols.Import {
	imp, ok := r.db.Import(id)
	if !ok || r.importDone[id] || r.importActive[id] {
		return imp
	}
	r.importActive[id] = true
	defer delete(r.importActive, id)

	qualified, end := r.importTarget(imp)
	r.db.ResolveImport(id, qualified, end.file, end.module, end.symbol, end.status)
	r.importDone[id] = true
	r.stats.Imports++
	if end.file == 0 {
		r.stats.ExternalImports++
	}
	imp, _ = r.db.Import(id)
	return imp
}

func (r *Resolver) importTarget(imp symbols.Import) (string, chainEnd) {
	base := imp.Module
	if imp.Depth > 0 {
		f, _ := r.db.File(imp.File)
		var ok bool
		if base, ok = RelativeBase(f, imp.Depth, imp.Module); !ok {
			return "", chainEnd{status: symbols.Unresolved}
		}
	}

	switch {
	case !imp.From:
		// `import a.b.c` binds a; with an alias the whole path is bound.
		qualified := base
		if imp.Alias == "" {
			qualified = splitModule(base)[0]
		}
		return qualified, r.moduleEnd(qualified)
	case imp.Star:
		return base, r.moduleEnd(base)
	}

	qualified := joinModule(base, imp.Name)
	baseFile, hasBase := r.modules.Lookup(base)
	if hasBase {
		if sym, ok := r.moduleLocal(baseFile, imp.Name); ok {
			end := r.follow(sym)
			if end.file == 0 && !end.module {
				end.file = baseFile
			}
			return qualified, end
		}
	}
	if sub := r.moduleEnd(qualified); sub.file != 0 {
		return qualified, sub
	}
	if hasBase {
		end := r.starMember(baseFile, imp.Name)
		if end.file == 0 {
			end.file = baseFile
		}
		return qualified, end
	}
	return qualified, chainEnd{status: symbols.Unresolved}
}

func (r *Resolver) moduleEnd(module string) chainEnd {
	if f, ok := r.modules.Lookup(module); ok {
		return chainEnd{file: f, module: true, status: symbols.Resolved}
	}
	return chainEnd{module: true, status: symbols.Unresolved}
}

func (r *Resolver) moduleLocal(file symbols.FileID, name string) (symbols.Symbol, bool) {
	scope, ok := r.db.ModuleScope(file)
	if !ok {
		return symbols.Symbol{}, false
	}
	id, ok := r.db.Local(scope, name)
	if !ok {
		return symbols.Symbol{}, false
	}
	return r.db.Symbol(id)
}

// follow resolves a symbol that may be an import binding to where its chain
// ends. Plain definitions end at themselves.
func (r *Resolver) follow(sym symbols.Symbol) chainEnd {
	if !sym.Kind.IsImport() || sym.Import == 0 {
		return chainEnd{symbol: sym.ID, file: sym.File, status: symbols.Resolved}
	}
	imp := r.resolveImport(sym.Import)
	if !r.importDone[sym.Import] {
		return chainEnd{status: symbols.Unresolved}
	}
	return chainEnd{
		symbol: imp.Target,
		file:   imp.ResolvedFile,
		module: imp.IsModule,
		status: imp.Status,
	}
}

// member looks name up as an attribute of the module in file: its
// module-level bindings first, then its star imports.
func (r *Resolver) member(file symbols.FileID, name string) chainEnd {
	if sym, ok := r.moduleLocal(file, name); ok {
		return r.follow(sym)
	}
	return r.starMember(file, name)
}

// starMember searches the module-level star imports of file, latest first.
// A star whose module has no known __all__ makes the name ambiguous.
func (r *Resolver) starMember(file symbols.FileID, name string) chainEnd {
	key := memberKey{file: file, name: name}
	if end, ok := r.members[key]; ok {
		return end
	}
	if r.memberActive[key] {
		return chainEnd{status: symbols.Unresolved}
	}
	r.memberActive[key] = true
	defer delete(r.memberActive, key)

	end := r.searchStars(file, name)
	r.members[key] = end
	return end
}

func (r *Resolver) searchStars(file symbols.FileID, name string) chainEnd {
	scope, ok := r.db.ModuleScope(file)
	if !ok {
		return chainEnd{status: symbols.Unresolved}
	}
	unknown := false
	imports := r.db.ImportsOf(file)
	for i := len(imports) - 1; i >= 0; i-- {
		imp := imports[i]
		if !imp.Star || imp.Scope != scope {
			continue
		}
		end, provides, exact := r.throughStar(imp, name)
		if provides {
			return end
		}
		unknown = unknown || !exact
	}
	if unknown {
		return chainEnd{status: symbols.Ambiguous}
	}
	return chainEnd{status: symbols.Unresolved}
}

// throughStar reports whether a star import provides name. exact is false
// when the star module has no statically known __all__; such a module only
// provides the names it binds itself, ambiguously and without a target.
func (r *Resolver) throughStar(imp symbols.Import, name string) (end chainEnd, provides, exact bool) {
	imp = r.resolveImport(imp.ID)
	if imp.ResolvedFile == 0 {
		return chainEnd{status: symbols.Ambiguous}, true, false
	}
	src, _ := r.db.File(imp.ResolvedFile)
	if src.Exports.Known {
		if !src.Exports.Has(name) {
			return chainEnd{}, false, true
		}
		return r.member(imp.ResolvedFile, name), true, true
	}
	if strings.HasPrefix(name, "_") {
		return chainEnd{}, false, false
	}
	if r.member(imp.ResolvedFile, name).status == symbols.Unresolved {
		return chainEnd{}, false, false
	}
	return chainEnd{status: symbols.Ambiguous}, true, false
}

func (r *Resolver) buildTable(file symbols.FileID) *symbols.ImportTable {
	table := symbols.NewImportTable(file)
	for _, imp := range r.db.ImportsOf(file) {
		if imp.Star {
			table.Stars = append(table.Stars, symbols.StarEntry{
				Scope:     imp.Scope,
				Qualified: imp.Qualified,
				File:      imp.ResolvedFile,
				Import:    imp.ID,
			})
			continue
		}
		table.Add(symbols.ImportEntry{
			Name:      imp.Bound,
			Qualified: imp.Qualified,
			File:      imp.ResolvedFile,
			Module:    imp.IsModule,
			Symbol:    imp.Binding,
			Import:    imp.ID,
			Scope:     imp.Scope,
		})
	}
	return table
}
