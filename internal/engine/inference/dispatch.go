package inference

import (
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
)

// dispatch registers a typed reference for every attribute site whose
// receiver evaluates to a class, an instance or super(). Sites already
// resolved by Pass 3 keep their reference.
func (in *Inferrer) dispatch(f symbols.File) {
	facts := in.db.Facts(f.ID)
	if facts == nil {
		return
	}
	for _, site := range facts.Raw.Attributes {
		if _, done := in.db.ReferenceAt(f.ID, site.Span); done {
			continue
		}
		scope := facts.Scopes[site.Scope]
		recv := in.evalSteps(scope, site.Receiver)
		target, ok := in.accept(recv, site.Name)
		if !ok {
			continue
		}
		kind := parser.RefAttribute
		if site.Call {
			kind = parser.RefCall
		}
		if _, added := in.db.AddReference(symbols.Reference{
			Name:   site.Name,
			Scope:  scope,
			File:   f.ID,
			Span:   site.Span,
			Kind:   kind,
			Target: target,
			Status: symbols.Resolved,
			Pass:   4,
		}); added {
			in.stats.MethodReferences++
		}
	}
}

// accept matches name against the class-level candidates of the name index
// and keeps the one defined by the first class of the receiver's MRO that
// defines the name at all.
func (in *Inferrer) accept(recv value, name string) (symbols.SymbolID, bool) {
	switch recv.kind {
	case valueInstance, valueClass, valueSuper:
	default:
		return 0, false
	}
	owner, ok := in.member(recv, name)
	if !ok {
		return 0, false
	}
	for _, kind := range []symbols.SymbolKind{symbols.KindMethod, symbols.KindVariable, symbols.KindClass} {
		for _, c := range in.db.LookupName(name, kind) {
			if c.Symbol != owner {
				continue
			}
			sym, _ := in.db.Symbol(c.Symbol)
			if sym.Container != 0 {
				return c.Symbol, true
			}
		}
	}
	return 0, false
}
