// # internal/engine/graph/inheritance.go
package graph

import (
	"sort"

	"pyrefactor/internal/engine/symbols"
)

// InheritanceGraph is the cross-file class hierarchy resolved in Pass 4.
type InheritanceGraph struct {
	db       *symbols.Database
	bases    map[symbols.SymbolID][]symbols.SymbolID
	children map[symbols.SymbolID][]symbols.SymbolID
	mro      map[symbols.SymbolID][]symbols.SymbolID
	sealed   bool
}

func NewInheritanceGraph(db *symbols.Database) *InheritanceGraph {
	g := &InheritanceGraph{
		db:       db,
		bases:    make(map[symbols.SymbolID][]symbols.SymbolID),
		children: make(map[symbols.SymbolID][]symbols.SymbolID),
		mro:      make(map[symbols.SymbolID][]symbols.SymbolID),
	}
	for _, info := range db.Inheritance() {
		g.bases[info.Class] = append([]symbols.SymbolID(nil), info.Bases...)
		for _, b := range info.Bases {
			g.children[b] = append(g.children[b], info.Class)
		}
	}
	for _, kids := range g.children {
		sort.Slice(kids, func(i, j int) bool { return kids[i] < kids[j] })
	}
	// Every order is computed up front so the graph is read-only afterwards.
	for _, sym := range db.Symbols() {
		if sym.Kind == symbols.KindClass {
			g.Linearize(sym.ID)
		}
	}
	g.sealed = true
	return g
}

func (g *InheritanceGraph) Bases(class symbols.SymbolID) []symbols.SymbolID {
	return g.bases[class]
}

// Descendants returns every subclass of class, breadth-first.
func (g *InheritanceGraph) Descendants(class symbols.SymbolID) []symbols.SymbolID {
	var out []symbols.SymbolID
	seen := map[symbols.SymbolID]bool{class: true}
	queue := append([]symbols.SymbolID(nil), g.children[class]...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if seen[curr] {
			continue
		}
		seen[curr] = true
		out = append(out, curr)
		queue = append(queue, g.children[curr]...)
	}
	return out
}

// Defines returns the member named name bound directly in the class body.
func (g *InheritanceGraph) Defines(class symbols.SymbolID, name string) (symbols.SymbolID, bool) {
	sym, ok := g.db.Symbol(class)
	if !ok || sym.Kind != symbols.KindClass || sym.Body == 0 {
		return 0, false
	}
	return g.db.Local(sym.Body, name)
}

// Overrides returns the methods of the same name defined by descendants of
// the method's class, breadth-first.
func (g *InheritanceGraph) Overrides(method symbols.SymbolID) []symbols.SymbolID {
	sym, ok := g.db.Symbol(method)
	if !ok || sym.Kind != symbols.KindMethod || sym.Container == 0 {
		return nil
	}
	var out []symbols.SymbolID
	for _, d := range g.Descendants(sym.Container) {
		if m, ok := g.Defines(d, sym.Name); ok {
			if s, _ := g.db.Symbol(m); s.Kind == symbols.KindMethod {
				out = append(out, m)
			}
		}
	}
	return out
}

// Lookup finds name along the MRO of class, returning the defining class
// and the member.
func (g *InheritanceGraph) Lookup(class symbols.SymbolID, name string) (symbols.SymbolID, symbols.SymbolID, bool) {
	for _, c := range g.Linearize(class) {
		if m, ok := g.Defines(c, name); ok {
			return c, m, true
		}
	}
	return 0, 0, false
}

// After returns the MRO of class with everything up to and including
// after removed, the search order of super() inside after's methods.
func (g *InheritanceGraph) After(class, after symbols.SymbolID) []symbols.SymbolID {
	mro := g.Linearize(class)
	for i, c := range mro {
		if c == after {
			return mro[i+1:]
		}
	}
	return nil
}

// Linearize returns the C3 method resolution order of class. When the
// hierarchy admits no C3 order it falls back to a depth-first, left-to-right
// walk without repeats.
func (g *InheritanceGraph) Linearize(class symbols.SymbolID) []symbols.SymbolID {
	if mro, ok := g.mro[class]; ok || g.sealed {
		if !ok {
			return []symbols.SymbolID{class}
		}
		return mro
	}
	return g.linearize(class, make(map[symbols.SymbolID]bool))
}

func (g *InheritanceGraph) linearize(class symbols.SymbolID, visiting map[symbols.SymbolID]bool) []symbols.SymbolID {
	if mro, ok := g.mro[class]; ok {
		return mro
	}
	if visiting[class] {
		return nil
	}
	visiting[class] = true
	defer delete(visiting, class)

	bases := g.bases[class]
	seqs := make([][]symbols.SymbolID, 0, len(bases)+1)
	for _, b := range bases {
		seq := g.linearize(b, visiting)
		if seq == nil {
			return g.fallback(class)
		}
		seqs = append(seqs, append([]symbols.SymbolID(nil), seq...))
	}
	seqs = append(seqs, append([]symbols.SymbolID(nil), bases...))

	merged, ok := c3Merge(seqs)
	if !ok {
		return g.fallback(class)
	}
	mro := append([]symbols.SymbolID{class}, merged...)
	g.mro[class] = mro
	return mro
}

func c3Merge(seqs [][]symbols.SymbolID) ([]symbols.SymbolID, bool) {
	var out []symbols.SymbolID
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, true
		}

		var head symbols.SymbolID
		found := false
		for _, s := range seqs {
			if !inTail(seqs, s[0]) {
				head, found = s[0], true
				break
			}
		}
		if !found {
			return nil, false
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(seqs [][]symbols.SymbolID, c symbols.SymbolID) bool {
	for _, s := range seqs {
		for _, x := range s[1:] {
			if x == c {
				return true
			}
		}
	}
	return false
}

func (g *InheritanceGraph) fallback(class symbols.SymbolID) []symbols.SymbolID {
	var out []symbols.SymbolID
	seen := make(map[symbols.SymbolID]bool)
	var walk func(c symbols.SymbolID)
	walk = func(c symbols.SymbolID) {
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
		for _, b := range g.bases[c] {
			walk(b)
		}
	}
	walk(class)
	g.mro[class] = out
	return out
}
