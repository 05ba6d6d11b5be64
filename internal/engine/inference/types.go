package inference

import (
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/symbols"
)

// typeReceivers types the first parameter of every method that is not a
// staticmethod as its owning class; for a classmethod it holds the class
// object itself.
func (in *Inferrer) typeReceivers() {
	for _, sym := range in.db.Symbols() {
		if sym.Kind != symbols.KindParameter || sym.Param != 0 {
			continue
		}
		scope, ok := in.db.Scope(sym.Scope)
		if !ok {
			continue
		}
		method, ok := in.db.Symbol(scope.Owner)
		if !ok || method.Kind != symbols.KindMethod || method.Container == 0 {
			continue
		}
		if hasDecorator(method, "staticmethod") {
			continue
		}
		in.setType(symbols.TypeInfo{
			Symbol:      sym.ID,
			Class:       method.Container,
			Provenance:  symbols.ProvenanceReceiver,
			ClassObject: hasDecorator(method, "classmethod"),
		})
	}
}

func hasDecorator(sym symbols.Symbol, name string) bool {
	for _, d := range sym.Decorators {
		if d == name {
			return true
		}
	}
	return false
}

type evidence struct {
	class      symbols.SymbolID
	conflict   bool
	provenance symbols.Provenance
}

// inferTypes applies constructor evidence (L1), then annotations (L2) and
// class-level annotations (L3), which replace it. Two constructors of
// different classes for the same symbol leave it untyped.
func (in *Inferrer) inferTypes() {
	l1 := make(map[symbols.SymbolID]*evidence)
	var order []symbols.SymbolID
	annotated := make(map[symbols.SymbolID]bool)

	for _, f := range in.db.Files() {
		facts := in.db.Facts(f.ID)
		if facts == nil {
			continue
		}
		for _, c := range facts.Raw.Constructions {
			if c.Receiver != "" {
				continue
			}
			sym, ok := in.variableAt(f.ID, c.Target)
			if !ok {
				continue
			}
			v := in.evalDotted(facts.Scopes[c.Scope], c.Callee)
			if v.kind != valueClass {
				continue
			}
			e, seen := l1[sym]
			if !seen {
				l1[sym] = &evidence{class: v.class, provenance: symbols.ProvenanceConstructor}
				order = append(order, sym)
				continue
			}
			if e.class != v.class {
				e.conflict = true
			}
		}
	}

	for _, f := range in.db.Files() {
		facts := in.db.Facts(f.ID)
		if facts == nil {
			continue
		}
		for _, h := range facts.Raw.Hints {
			if h.Receiver != "" {
				continue
			}
			sym, ok := in.variableAt(f.ID, h.Target)
			if !ok || annotated[sym] {
				continue
			}
			v := in.evalDotted(facts.Scopes[h.Scope], h.Type)
			if v.kind != valueClass {
				continue
			}
			prov := symbols.ProvenanceAnnotation
			if h.ClassLevel {
				prov = symbols.ProvenanceClassAttribute
			}
			annotated[sym] = true
			in.setType(symbols.TypeInfo{Symbol: sym, Class: v.class, Provenance: prov})
		}
	}

	for _, sym := range order {
		e := l1[sym]
		if annotated[sym] {
			continue
		}
		if e.conflict {
			in.stats.ConflictingTypes++
			continue
		}
		in.setType(symbols.TypeInfo{Symbol: sym, Class: e.class, Provenance: e.provenance})
	}
}

type attrKey struct {
	class symbols.SymbolID
	attr  string
}

// inferAttributeTypes records `self.x = C()` (L1) and `self.x: C` (L2)
// inside methods as instance attribute types of the method's class.
func (in *Inferrer) inferAttributeTypes() {
	l1 := make(map[attrKey]*evidence)
	var order []attrKey
	annotated := make(map[attrKey]bool)

	for _, f := range in.db.Files() {
		facts := in.db.Facts(f.ID)
		if facts == nil {
			continue
		}
		for _, h := range facts.Raw.Hints {
			if h.Receiver == "" {
				continue
			}
			scope := facts.Scopes[h.Scope]
			class, ok := in.selfClass(scope, h.Receiver)
			key := attrKey{class: class, attr: h.Attr}
			if !ok || annotated[key] {
				continue
			}
			v := in.evalDotted(scope, h.Type)
			if v.kind != valueClass {
				continue
			}
			annotated[key] = true
			in.setAttributeType(key, v.class, symbols.ProvenanceAnnotation)
		}
	}

	for _, f := range in.db.Files() {
		facts := in.db.Facts(f.ID)
		if facts == nil {
			continue
		}
		for _, c := range facts.Raw.Constructions {
			if c.Receiver == "" {
				continue
			}
			scope := facts.Scopes[c.Scope]
			class, ok := in.selfClass(scope, c.Receiver)
			if !ok {
				continue
			}
			v := in.evalDotted(scope, c.Callee)
			if v.kind != valueClass {
				continue
			}
			key := attrKey{class: class, attr: c.Attr}
			e, seen := l1[key]
			if !seen {
				l1[key] = &evidence{class: v.class, provenance: symbols.ProvenanceConstructor}
				order = append(order, key)
				continue
			}
			if e.class != v.class {
				e.conflict = true
			}
		}
	}

	for _, key := range order {
		e := l1[key]
		if annotated[key] || e.conflict {
			continue
		}
		in.setAttributeType(key, e.class, e.provenance)
	}
}

// selfClass returns the class an instance receiver name refers to in scope.
func (in *Inferrer) selfClass(scope symbols.ScopeID, receiver string) (symbols.SymbolID, bool) {
	target, _, status := in.res.Lookup(scope, receiver)
	if status != symbols.Resolved {
		return 0, false
	}
	t, ok := in.db.TypeOf(target)
	if !ok || t.Provenance != symbols.ProvenanceReceiver || t.ClassObject {
		return 0, false
	}
	return t.Class, true
}

// variableAt returns the variable or parameter bound at span, following a
// rebinding to the symbol it writes.
func (in *Inferrer) variableAt(file symbols.FileID, span parser.Span) (symbols.SymbolID, bool) {
	id, ok := in.db.SymbolAt(file, span)
	if !ok {
		ref, found := in.db.ReferenceAt(file, span)
		if !found || ref.Kind != parser.RefWrite || ref.Target == 0 {
			return 0, false
		}
		id = ref.Target
	}
	sym, ok := in.db.Symbol(id)
	if !ok || (sym.Kind != symbols.KindVariable && sym.Kind != symbols.KindParameter) {
		return 0, false
	}
	return id, true
}

func (in *Inferrer) setType(t symbols.TypeInfo) {
	if class, ok := in.db.Symbol(t.Class); ok {
		t.TypeName = class.Name
	}
	if _, exists := in.db.TypeOf(t.Symbol); !exists {
		in.stats.Types++
	}
	in.db.SetType(t)
}

func (in *Inferrer) setAttributeType(key attrKey, class symbols.SymbolID, prov symbols.Provenance) {
	t := symbols.AttributeType{Class: key.class, Attr: key.attr, Type: class, Provenance: prov}
	if sym, ok := in.db.Symbol(class); ok {
		t.TypeName = sym.Name
	}
	in.db.SetAttributeType(t)
	in.stats.AttributeTypes++
}
