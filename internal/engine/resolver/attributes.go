package resolver

import (
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
)

// ModuleRef is a module reached through imports. File is 0 for modules
// outside the workspace and for namespace packages.
type ModuleRef struct {
	Name string
	File symbols.FileID
}

// resolveModuleAttributes registers `pkg.mod.func` style accesses whose
// receiver is an imported module. Other receivers are left to type inference.
func (r *Resolver) resolveModuleAttributes(f symbols.File) {
	facts := r.db.Facts(f.ID)
	if facts == nil {
		return
	}
	for _, site := range facts.Raw.Attributes {
		scope := facts.Scopes[site.Scope]
		mod, ok := r.ModuleReceiver(scope, site.Receiver)
		if !ok {
			continue
		}
		end := r.moduleMember(mod, site.Name)
		if end.module || end.symbol == 0 {
			continue
		}
		kind := parser.RefAttribute
		if site.Call {
			kind = parser.RefCall
		}
		_, added := r.db.AddReference(symbols.Reference{
			Name:   site.Name,
			Scope:  scope,
			File:   f.ID,
			Span:   site.Span,
			Kind:   kind,
			Target: end.symbol,
			Status: end.status,
			Pass:   3,
		})
		if added {
			r.stats.count(end.status)
		}
	}
}

// ModuleReceiver evaluates a receiver chain made only of names, starting at
// a module import, and returns the module it denotes.
func (r *Resolver) ModuleReceiver(scope symbols.ScopeID, steps []parser.Step) (ModuleRef, bool) {
	if len(steps) == 0 || steps[0].Call {
		return ModuleRef{}, false
	}
	res := r.lookup(scope, steps[0].Name)
	mod, ok := r.moduleOf(res)
	if !ok {
		return ModuleRef{}, false
	}
	for _, step := range steps[1:] {
		if step.Call {
			return ModuleRef{}, false
		}
		end := r.moduleMember(mod, step.Name)
		if !end.module {
			return ModuleRef{}, false
		}
		mod = r.refOf(end, joinModule(mod.Name, step.Name))
	}
	return mod, true
}

// Member is an attribute of a module: a definition or a submodule.
type Member struct {
	Symbol   symbols.SymbolID
	Module   ModuleRef
	IsModule bool
	Status   symbols.Status
}

// ModuleMember resolves name as an attribute of mod.
func (r *Resolver) ModuleMember(mod ModuleRef, name string) Member {
	end := r.moduleMember(mod, name)
	if end.module {
		return Member{
			Module:   r.refOf(end, joinModule(mod.Name, name)),
			IsModule: true,
			Status:   end.status,
		}
	}
	return Member{Symbol: end.symbol, Status: end.status}
}

func (r *Resolver) moduleOf(res resolution) (ModuleRef, bool) {
	if res.target == 0 || res.via != 0 {
		return ModuleRef{}, false
	}
	sym, ok := r.db.Symbol(res.target)
	if !ok || !sym.Kind.IsImport() || sym.Import == 0 {
		return ModuleRef{}, false
	}
	imp, ok := r.db.Import(sym.Import)
	if !ok || !imp.IsModule {
		return ModuleRef{}, false
	}
	return r.refOf(chainEnd{file: imp.ResolvedFile, module: true}, imp.Qualified), true
}

func (r *Resolver) refOf(end chainEnd, fallback string) ModuleRef {
	if end.file != 0 {
		if f, ok := r.db.File(end.file); ok {
			return ModuleRef{Name: f.Module, File: end.file}
		}
	}
	return ModuleRef{Name: fallback}
}

// moduleMember prefers a binding in the module's file and falls back to a
// submodule of the same name.
func (r *Resolver) moduleMember(mod ModuleRef, name string) chainEnd {
	if mod.File != 0 {
		if end := r.member(mod.File, name); end.status != symbols.Unresolved {
			return end
		}
	}
	if sub := r.moduleEnd(joinModule(mod.Name, name)); sub.file != 0 {
		return sub
	}
	return chainEnd{status: symbols.Unresolved}
}
