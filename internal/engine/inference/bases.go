package inference

import (
	"strings"

	"pyrefactor/internal/engine/symbols"
)

// resolveBases turns each class's base expressions into class symbols. A
// base that is not a workspace class is kept by name as unresolved.
func (in *Inferrer) resolveBases() {
	for _, f := range in.db.Files() {
		facts := in.db.Facts(f.ID)
		if facts == nil {
			continue
		}
		for _, decl := range facts.Raw.Bases {
			class, ok := in.db.SymbolAt(f.ID, decl.Class)
			if !ok {
				continue
			}
			info := symbols.InheritanceInfo{Class: class}
			scope := facts.Scopes[decl.Scope]
			for _, chain := range decl.Bases {
				v := in.evalDotted(scope, chain)
				if v.kind == valueClass && v.class != class {
					info.Bases = append(info.Bases, v.class)
					in.stats.ResolvedBases++
					continue
				}
				info.Unresolved = append(info.Unresolved, strings.Join(chain, "."))
				in.stats.UnresolvedBases++
			}
			in.db.AddInheritance(info)
			in.stats.Classes++
		}
	}
}
