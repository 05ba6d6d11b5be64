package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ImportCollector records import statements and the names they bind.
type ImportCollector struct{}

func (ImportCollector) Name() string { return "imports" }

func (i ImportCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"import_statement":      i.importStatement,
		"import_from_statement": i.fromStatement,
	}
}

// `import a.b.c` binds a; `import a.b.c as x` binds x.
func (i ImportCollector) importStatement(ctx *ExtractionContext, node *sitter.Node) {
	scope := ctx.ScopeFor(node)
	stmt := ctx.Span(node)
	for n := uint(0); n < node.NamedChildCount(); n++ {
		child := node.NamedChild(n)
		switch child.Kind() {
		case "dotted_name":
			if child.NamedChildCount() == 0 {
				continue
			}
			first := child.NamedChild(0)
			i.add(ctx, Import{
				Scope:    scope,
				Module:   dotted(ctx, child),
				Bound:    ctx.Text(first),
				NameSpan: ctx.Span(first),
				Span:     stmt,
			}, first, BindImport)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			i.add(ctx, Import{
				Scope:  scope,
				Module: dotted(ctx, name),
				Alias:  ctx.Text(alias),
				Bound:  ctx.Text(alias),
				Span:   stmt,
			}, alias, BindImportAlias)
		}
	}
}

// `from m import b`, `from m import b as c`, `from . import x`, `from m import *`.
func (i ImportCollector) fromStatement(ctx *ExtractionContext, node *sitter.Node) {
	scope := ctx.ScopeFor(node)
	stmt := ctx.Span(node)

	var module string
	depth := 0
	seenImport := false
	for n := uint(0); n < node.ChildCount(); n++ {
		child := node.Child(n)
		switch child.Kind() {
		case "import":
			seenImport = true
		case "relative_import":
			for k := uint(0); k < child.ChildCount(); k++ {
				part := child.Child(k)
				switch part.Kind() {
				case "import_prefix":
					depth = strings.Count(ctx.Text(part), ".")
				case "dotted_name":
					module = dotted(ctx, part)
				}
			}
		case "dotted_name":
			if !seenImport {
				module = dotted(ctx, child)
				continue
			}
			name := ctx.Text(child)
			i.add(ctx, Import{
				Scope:    scope,
				Module:   module,
				Name:     name,
				Bound:    name,
				Depth:    depth,
				From:     true,
				NameSpan: ctx.Span(child),
				Span:     stmt,
			}, child, BindImport)
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil || alias == nil {
				continue
			}
			i.add(ctx, Import{
				Scope:    scope,
				Module:   module,
				Name:     ctx.Text(name),
				Alias:    ctx.Text(alias),
				Bound:    ctx.Text(alias),
				Depth:    depth,
				From:     true,
				NameSpan: ctx.Span(name),
				Span:     stmt,
			}, alias, BindImportAlias)
		case "wildcard_import":
			imp := Import{
				Index:   len(ctx.File.Imports),
				Scope:   scope,
				Module:  module,
				Depth:   depth,
				From:    true,
				Star:    true,
				Binding: -1,
				Span:    stmt,
			}
			ctx.File.Imports = append(ctx.File.Imports, imp)
		}
	}
}

func (ImportCollector) add(ctx *ExtractionContext, imp Import, ident *sitter.Node, kind BindingKind) {
	imp.Index = len(ctx.File.Imports)
	imp.Binding = ctx.AddBinding(Binding{
		Name:   imp.Bound,
		Kind:   kind,
		Scope:  imp.Scope,
		Node:   ctx.NodeID(ident),
		Ident:  ctx.Span(ident),
		Def:    imp.Span,
		Body:   -1,
		Param:  -1,
		Import: imp.Index,
	})
	if !imp.NameSpan.IsZero() {
		ctx.MarkBound(imp.NameSpan)
	}
	ctx.File.Imports = append(ctx.File.Imports, imp)
}

func dotted(ctx *ExtractionContext, node *sitter.Node) string {
	parts := make([]string, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		parts = append(parts, ctx.Text(node.NamedChild(i)))
	}
	if len(parts) == 0 {
		return ctx.Text(node)
	}
	return strings.Join(parts, ".")
}
