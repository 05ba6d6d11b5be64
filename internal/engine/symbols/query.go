package symbols

import (
	"pyrefactor/internal/engine/parser"
)

// Files returns all files in ordinal order.
func (db *Database) Files() []File { return db.files }

func (db *Database) Scopes() []Scope { return db.scopes }

func (db *Database) Symbols() []Symbol { return db.symbols }

func (db *Database) References() []Reference { return db.references }

func (db *Database) Imports() []Import { return db.imports }

func (db *Database) Types() []TypeInfo { return db.types }

func (db *Database) AttributeTypes() []AttributeType { return db.attrTypes }

func (db *Database) Inheritance() []InheritanceInfo { return db.inheritance }

func (db *Database) File(id FileID) (File, bool) {
	i, ok := db.fileIdx[id]
	if !ok {
		return File{}, false
	}
	return db.files[i], true
}

func (db *Database) FileByPath(path string) (File, bool) {
	id, ok := db.byPath[path]
	if !ok {
		return File{}, false
	}
	return db.File(id)
}

func (db *Database) Facts(id FileID) *FileFacts {
	return db.facts[id]
}

func (db *Database) Scope(id ScopeID) (Scope, bool) {
	i, ok := db.scopeIdx[id]
	if !ok {
		return Scope{}, false
	}
	return db.scopes[i], true
}

// ScopesOf returns a file's scopes in pre-order; the first is the module.
func (db *Database) ScopesOf(file FileID) []ScopeID {
	return db.fileScopes[file]
}

func (db *Database) ModuleScope(file FileID) (ScopeID, bool) {
	scopes := db.fileScopes[file]
	if len(scopes) == 0 {
		return 0, false
	}
	return scopes[0], true
}

func (db *Database) Symbol(id SymbolID) (Symbol, bool) {
	i, ok := db.symbolIdx[id]
	if !ok {
		return Symbol{}, false
	}
	return db.symbols[i], true
}

// Local returns the symbol that owns name in scope.
func (db *Database) Local(scope ScopeID, name string) (SymbolID, bool) {
	id, ok := db.locals[scope][name]
	return id, ok
}

// Members returns every name owned by scope.
func (db *Database) Members(scope ScopeID) map[string]SymbolID {
	return db.locals[scope]
}

// SymbolAt returns the symbol whose identifier span is exactly span.
func (db *Database) SymbolAt(file FileID, span Span) (SymbolID, bool) {
	id, ok := db.idents[file][span]
	return id, ok
}

// LookupName queries the global (name, kind) index.
func (db *Database) LookupName(name string, kind SymbolKind) []NameEntry {
	return db.names[nameKey{name: name, kind: kind}]
}

func (db *Database) Reference(id ReferenceID) (Reference, bool) {
	i, ok := db.refIdx[id]
	if !ok {
		return Reference{}, false
	}
	return db.references[i], true
}

func (db *Database) ReferenceAt(file FileID, span Span) (Reference, bool) {
	id, ok := db.refSpans[file][span]
	if !ok {
		return Reference{}, false
	}
	return db.Reference(id)
}

// ReferencesTo returns the references resolved to target, in registration order.
func (db *Database) ReferencesTo(target SymbolID) []Reference {
	ids := db.refsByTarget[target]
	out := make([]Reference, 0, len(ids))
	for _, id := range ids {
		if r, ok := db.Reference(id); ok {
			out = append(out, r)
		}
	}
	return out
}

func (db *Database) Import(id ImportID) (Import, bool) {
	i, ok := db.importIdx[id]
	if !ok {
		return Import{}, false
	}
	return db.imports[i], true
}

func (db *Database) ImportsOf(file FileID) []Import {
	ids := db.fileImports[file]
	out := make([]Import, 0, len(ids))
	for _, id := range ids {
		if imp, ok := db.Import(id); ok {
			out = append(out, imp)
		}
	}
	return out
}

func (db *Database) ImportTable(file FileID) *ImportTable {
	return db.tables[file]
}

func (db *Database) TypeOf(id SymbolID) (TypeInfo, bool) {
	i, ok := db.typeIdx[id]
	if !ok {
		return TypeInfo{}, false
	}
	return db.types[i], true
}

func (db *Database) AttributeTypeOf(class SymbolID, attr string) (AttributeType, bool) {
	i, ok := db.attrTypeIdx[attrKey{class: class, attr: attr}]
	if !ok {
		return AttributeType{}, false
	}
	return db.attrTypes[i], true
}

func (db *Database) BasesOf(class SymbolID) (InheritanceInfo, bool) {
	i, ok := db.inheritIdx[class]
	if !ok {
		return InheritanceInfo{}, false
	}
	return db.inheritance[i], true
}

// ScopeChain returns scope and its ancestors, innermost first.
func (db *Database) ScopeChain(id ScopeID) []ScopeID {
	var chain []ScopeID
	for id != 0 {
		s, ok := db.Scope(id)
		if !ok {
			break
		}
		chain = append(chain, id)
		id = s.Parent
	}
	return chain
}

// EnclosingClass returns the class and method whose body directly contains
// scope. Lambdas and comprehensions inside the method count as its body.
func (db *Database) EnclosingClass(id ScopeID) (SymbolID, SymbolID, bool) {
	for _, sid := range db.ScopeChain(id) {
		s, _ := db.Scope(sid)
		if s.Kind != parser.ScopeFunction {
			continue
		}
		method, ok := db.Symbol(s.Owner)
		if !ok || method.Kind != KindMethod {
			return 0, 0, false
		}
		return method.Container, method.ID, true
	}
	return 0, 0, false
}
