package symbols

import (
	"sort"

	"pyrefactor/internal/engine/parser"
)

// SortFiles orders Pass 1 results by canonical path, byte-wise. Identities
// depend on this order only, never on the order results arrived in.
func SortFiles(files []*parser.File) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
}

// Register is Pass 2. For each file in sorted order it registers the File,
// its Scopes in pre-order, its Class symbols, every other symbol and finally
// its Imports. A binding whose owning scope already has a symbol of the same
// name is kept as a pending write for the resolver.
func Register(db *Database, files []*parser.File) {
	sorted := append([]*parser.File(nil), files...)
	SortFiles(sorted)
	for ordinal, raw := range sorted {
		registerFile(db, ordinal, raw)
	}
}

func registerFile(db *Database, ordinal int, raw *parser.File) {
	fid := db.AddFile(File{
		Path:    raw.Path,
		Hash:    raw.Hash,
		Ordinal: ordinal,
		Module:  raw.Module,
		Package: raw.Package,
		Content: raw.Source,
		Exports: raw.Exports,
	})
	facts := &FileFacts{
		Raw:      raw,
		Scopes:   make([]ScopeID, len(raw.Scopes)),
		Bindings: make([]SymbolID, len(raw.Bindings)),
		Imports:  make([]ImportID, len(raw.Imports)),
	}
	db.setFacts(fid, facts)

	for i, s := range raw.Scopes {
		var parent ScopeID
		if s.Parent >= 0 {
			parent = facts.Scopes[s.Parent]
		}
		facts.Scopes[i] = db.AddScope(Scope{
			Kind:      s.Kind,
			Parent:    parent,
			File:      fid,
			Name:      s.Name,
			Globals:   append([]string(nil), s.Globals...),
			Nonlocals: append([]string(nil), s.Nonlocals...),
			Lexical:   s.Lexical,
		})
	}

	owners := bindingOwners(raw)
	for _, classes := range []bool{true, false} {
		for i, b := range raw.Bindings {
			if (b.Kind == parser.BindClass) != classes {
				continue
			}
			registerBinding(db, fid, facts, owners[i], b)
		}
	}

	for i, s := range raw.Scopes {
		if s.Owner >= 0 {
			db.setScopeOwner(facts.Scopes[i], facts.Bindings[s.Owner])
		}
	}

	for i, imp := range raw.Imports {
		var binding SymbolID
		if imp.Binding >= 0 {
			binding = facts.Bindings[imp.Binding]
		}
		facts.Imports[i] = db.AddImport(Import{
			File:     fid,
			Scope:    facts.Scopes[imp.Scope],
			Module:   imp.Module,
			Name:     imp.Name,
			Bound:    imp.Bound,
			Alias:    imp.Alias,
			Depth:    imp.Depth,
			From:     imp.From,
			Star:     imp.Star,
			Binding:  binding,
			NameSpan: imp.NameSpan,
			Span:     imp.Span,
		})
		if binding != 0 {
			if sym, ok := db.Symbol(binding); ok && sym.Ident == raw.Bindings[imp.Binding].Ident {
				db.setSymbolImport(binding, facts.Imports[i])
			}
		}
	}
}

func registerBinding(db *Database, fid FileID, facts *FileFacts, owner int, b parser.Binding) {
	raw := facts.Raw
	if owner < 0 {
		facts.Writes = append(facts.Writes, writeRef(b))
		return
	}
	scope := facts.Scopes[owner]
	if existing, ok := db.Local(scope, b.Name); ok {
		facts.Bindings[b.Index] = existing
		facts.Writes = append(facts.Writes, writeRef(b))
		return
	}

	ownerScope := raw.Scopes[owner]
	var container SymbolID
	if ownerScope.Kind == parser.ScopeClass && ownerScope.Owner >= 0 {
		container = facts.Bindings[ownerScope.Owner]
	}
	var body ScopeID
	if b.Body >= 0 {
		body = facts.Scopes[b.Body]
	}
	facts.Bindings[b.Index] = db.AddSymbol(Symbol{
		Name:       b.Name,
		Kind:       symbolKind(b.Kind, ownerScope.Kind),
		Scope:      scope,
		File:       fid,
		Ident:      b.Ident,
		Def:        b.Def,
		Container:  container,
		Body:       body,
		Param:      b.Param,
		Decorators: append([]string(nil), b.Decorators...),
	})
}

func writeRef(b parser.Binding) parser.Reference {
	return parser.Reference{
		Name:  b.Name,
		Scope: b.Scope,
		Node:  b.Node,
		Span:  b.Ident,
		Kind:  parser.RefWrite,
	}
}

func symbolKind(kind parser.BindingKind, scope parser.ScopeKind) SymbolKind {
	switch kind {
	case parser.BindFunction:
		if scope == parser.ScopeClass {
			return KindMethod
		}
		return KindFunction
	case parser.BindClass:
		return KindClass
	case parser.BindParameter:
		return KindParameter
	case parser.BindImport:
		return KindImport
	case parser.BindImportAlias:
		return KindImportAlias
	default:
		return KindVariable
	}
}

// bindingOwners returns, per binding, the local index of the scope that owns
// the name: the module for `global` names, the nearest enclosing function
// scope binding the name for `nonlocal` ones (-1 if there is none).
func bindingOwners(raw *parser.File) []int {
	direct := make([]map[string]bool, len(raw.Scopes))
	for i := range direct {
		direct[i] = make(map[string]bool)
	}
	for _, b := range raw.Bindings {
		s := raw.Scopes[b.Scope]
		if contains(s.Globals, b.Name) || contains(s.Nonlocals, b.Name) {
			continue
		}
		direct[b.Scope][b.Name] = true
	}

	owners := make([]int, len(raw.Bindings))
	for i, b := range raw.Bindings {
		s := raw.Scopes[b.Scope]
		switch {
		case b.Kind == parser.BindParameter:
			owners[i] = b.Scope
		case contains(s.Globals, b.Name):
			owners[i] = 0
		case contains(s.Nonlocals, b.Name):
			owners[i] = enclosingBinder(raw, direct, s.Parent, b.Name)
		default:
			owners[i] = b.Scope
		}
	}
	return owners
}

func enclosingBinder(raw *parser.File, direct []map[string]bool, from int, name string) int {
	for p := from; p >= 0; p = raw.Scopes[p].Parent {
		switch raw.Scopes[p].Kind {
		case parser.ScopeClass:
			continue
		case parser.ScopeModule:
			return -1
		}
		if direct[p][name] {
			return p
		}
	}
	return -1
}

func contains(sorted []string, v string) bool {
	i := sort.SearchStrings(sorted, v)
	return i < len(sorted) && sorted[i] == v
}
