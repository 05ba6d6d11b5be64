package inference

import (
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/resolver"
	"pyrefactor/internal/engine/symbols"
)

type valueKind uint8

const (
	valueUnknown valueKind = iota
	valueInstance
	valueClass
	valueModule
	valueSuper
)

// value is what a receiver expression is known to evaluate to.
type value struct {
	kind   valueKind
	class  symbols.SymbolID
	module resolver.ModuleRef
	search []symbols.SymbolID // classes searched by super()
}

var unknown = value{}

// evalDotted evaluates a chain of names such as a base class or annotation.
func (in *Inferrer) evalDotted(scope symbols.ScopeID, chain []string) value {
	steps := make([]parser.Step, len(chain))
	for i, name := range chain {
		steps[i] = parser.Step{Name: name}
	}
	return in.evalSteps(scope, steps)
}

// evalSteps evaluates a receiver chain left to right.
func (in *Inferrer) evalSteps(scope symbols.ScopeID, steps []parser.Step) value {
	if len(steps) == 0 {
		return unknown
	}
	v := in.evalName(scope, steps[0].Name)
	if steps[0].Call {
		v = in.call(scope, steps[0].Name, v)
	}
	for _, step := range steps[1:] {
		if v.kind == valueUnknown {
			return unknown
		}
		v = in.attribute(v, step.Name)
		if step.Call {
			v = in.call(scope, step.Name, v)
		}
	}
	return v
}

func (in *Inferrer) evalName(scope symbols.ScopeID, name string) value {
	if mod, ok := in.res.ModuleReceiver(scope, []parser.Step{{Name: name}}); ok {
		return value{kind: valueModule, module: mod}
	}
	target, _, status := in.res.Lookup(scope, name)
	switch status {
	case symbols.Resolved:
		return in.valueOf(target)
	case symbols.Builtin:
		if name == "super" {
			return value{kind: valueSuper}
		}
	}
	return unknown
}

// valueOf is the value a reference to sym denotes.
func (in *Inferrer) valueOf(id symbols.SymbolID) value {
	sym, ok := in.db.Symbol(id)
	if !ok {
		return unknown
	}
	switch sym.Kind {
	case symbols.KindClass:
		return value{kind: valueClass, class: id}
	case symbols.KindVariable, symbols.KindParameter:
		t, ok := in.db.TypeOf(id)
		if !ok {
			return unknown
		}
		if t.ClassObject {
			return value{kind: valueClass, class: t.Class}
		}
		return value{kind: valueInstance, class: t.Class}
	}
	return unknown
}

// call applies a call to v. Calling a class constructs an instance; a bare
// super() inside a method searches the MRO after the method's class.
func (in *Inferrer) call(scope symbols.ScopeID, name string, v value) value {
	switch v.kind {
	case valueClass:
		return value{kind: valueInstance, class: v.class}
	case valueSuper:
		if name != "super" || in.graph == nil {
			return unknown
		}
		class, _, ok := in.db.EnclosingClass(scope)
		if !ok {
			return unknown
		}
		return value{kind: valueSuper, class: class, search: in.graph.After(class, class)}
	}
	return unknown
}

// attribute evaluates `v.name`.
func (in *Inferrer) attribute(v value, name string) value {
	switch v.kind {
	case valueModule:
		m := in.res.ModuleMember(v.module, name)
		if m.IsModule {
			return value{kind: valueModule, module: m.Module}
		}
		if m.Status != symbols.Resolved || m.Symbol == 0 {
			return unknown
		}
		return in.valueOf(m.Symbol)
	case valueInstance:
		if t, ok := in.instanceAttribute(v.class, name); ok {
			return value{kind: valueInstance, class: t}
		}
		fallthrough
	case valueClass, valueSuper:
		member, ok := in.member(v, name)
		if !ok {
			return unknown
		}
		return in.valueOf(member)
	}
	return unknown
}

// member finds the class-level definition of name visible from v.
func (in *Inferrer) member(v value, name string) (symbols.SymbolID, bool) {
	switch v.kind {
	case valueInstance, valueClass:
		if in.graph == nil {
			return in.defines(v.class, name)
		}
		_, m, ok := in.graph.Lookup(v.class, name)
		return m, ok
	case valueSuper:
		for _, c := range v.search {
			if m, ok := in.defines(c, name); ok {
				return m, true
			}
		}
	}
	return 0, false
}

func (in *Inferrer) defines(class symbols.SymbolID, name string) (symbols.SymbolID, bool) {
	sym, ok := in.db.Symbol(class)
	if !ok || sym.Kind != symbols.KindClass || sym.Body == 0 {
		return 0, false
	}
	return in.db.Local(sym.Body, name)
}

// instanceAttribute returns the type of an attribute assigned through self,
// searched along the MRO.
func (in *Inferrer) instanceAttribute(class symbols.SymbolID, name string) (symbols.SymbolID, bool) {
	mro := []symbols.SymbolID{class}
	if in.graph != nil {
		mro = in.graph.Linearize(class)
	}
	for _, c := range mro {
		if t, ok := in.db.AttributeTypeOf(c, name); ok {
			return t.Type, true
		}
		if _, ok := in.defines(c, name); ok {
			return 0, false
		}
	}
	return 0, false
}
