package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// BindingCollector records every name a statement binds: definitions,
// parameters, assignment and loop targets, with/except aliases and walrus
// targets. Import bindings come from ImportCollector.
type BindingCollector struct{}

func (BindingCollector) Name() string { return "bindings" }

func (b BindingCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"function_definition":  b.function,
		"class_definition":     b.class,
		"lambda":               b.lambda,
		"assignment":           b.assignment,
		"augmented_assignment": b.assignment,
		"for_statement":        b.forStatement,
		"for_in_clause":        b.forIn,
		"as_pattern":           b.asPattern,
		"except_clause":        b.exceptClause,
		"named_expression":     b.walrus,
	}
}

func (b BindingCollector) function(ctx *ExtractionContext, node *sitter.Node) {
	idx := b.definition(ctx, node, BindFunction)
	body, ok := ctx.ScopeOf(node)
	if !ok {
		return
	}
	ctx.File.Scopes[body].Owner = idx
	b.parameters(ctx, node.ChildByFieldName("parameters"), body)
}

func (b BindingCollector) class(ctx *ExtractionContext, node *sitter.Node) {
	idx := b.definition(ctx, node, BindClass)
	if body, ok := ctx.ScopeOf(node); ok {
		ctx.File.Scopes[body].Owner = idx
	}
}

func (BindingCollector) definition(ctx *ExtractionContext, node *sitter.Node, kind BindingKind) int {
	name := node.ChildByFieldName("name")
	if name == nil {
		return -1
	}
	id, spans := ctx.Positions.Lookup(node)
	body, ok := ctx.ScopeOf(node)
	if !ok {
		body = -1
	}
	return ctx.AddBinding(Binding{
		Name:       ctx.Text(name),
		Kind:       kind,
		Scope:      ctx.ScopeFor(node),
		Node:       id,
		Ident:      ctx.Span(name),
		Def:        spans.Def,
		Body:       body,
		Param:      -1,
		Decorators: decorators(ctx, node),
		Import:     -1,
	})
}

func decorators(ctx *ExtractionContext, node *sitter.Node) []string {
	parent := node.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var out []string
	for i := uint(0); i < parent.NamedChildCount(); i++ {
		child := parent.NamedChild(i)
		if child.Kind() != "decorator" || child.NamedChildCount() == 0 {
			continue
		}
		expr := child.NamedChild(0)
		if expr.Kind() == "call" {
			expr = expr.ChildByFieldName("function")
		}
		if chain := ctx.DottedChain(expr); chain != nil {
			out = append(out, strings.Join(chain, "."))
		}
	}
	return out
}

func (b BindingCollector) lambda(ctx *ExtractionContext, node *sitter.Node) {
	if body, ok := ctx.ScopeOf(node); ok {
		b.parameters(ctx, node.ChildByFieldName("parameters"), body)
	}
}

func (BindingCollector) parameters(ctx *ExtractionContext, params *sitter.Node, scope int) {
	if params == nil {
		return
	}
	position := 0
	for i := uint(0); i < params.NamedChildCount(); i++ {
		name := parameterName(params.NamedChild(i))
		if name == nil {
			continue
		}
		ctx.AddBinding(Binding{
			Name:   ctx.Text(name),
			Kind:   BindParameter,
			Scope:  scope,
			Node:   ctx.NodeID(name),
			Ident:  ctx.Span(name),
			Def:    ctx.Span(params.NamedChild(i)),
			Body:   -1,
			Param:  position,
			Import: -1,
		})
		position++
	}
}

// parameterName returns the identifier a parameter node binds, or nil for
// separators such as `/` and a bare `*`.
func parameterName(param *sitter.Node) *sitter.Node {
	switch param.Kind() {
	case "identifier":
		return param
	case "default_parameter", "typed_default_parameter":
		return param.ChildByFieldName("name")
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		for i := uint(0); i < param.NamedChildCount(); i++ {
			child := param.NamedChild(i)
			if child.Kind() == "identifier" {
				return child
			}
			if inner := parameterName(child); inner != nil && child.Kind() != "type" {
				return inner
			}
		}
	}
	return nil
}

func (b BindingCollector) assignment(ctx *ExtractionContext, node *sitter.Node) {
	b.targets(ctx, node.ChildByFieldName("left"), ctx.ScopeFor(node), ctx.Span(node))
}

func (b BindingCollector) forStatement(ctx *ExtractionContext, node *sitter.Node) {
	b.targets(ctx, node.ChildByFieldName("left"), ctx.ScopeFor(node), ctx.Span(node))
}

func (b BindingCollector) forIn(ctx *ExtractionContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil {
		return
	}
	b.targets(ctx, left, ctx.ScopeFor(left), ctx.Span(node))
}

func (b BindingCollector) asPattern(ctx *ExtractionContext, node *sitter.Node) {
	alias := node.ChildByFieldName("alias")
	if alias == nil {
		return
	}
	b.targets(ctx, alias, ctx.ScopeFor(node), ctx.Span(node))
}

func (b BindingCollector) exceptClause(ctx *ExtractionContext, node *sitter.Node) {
	if alias := node.ChildByFieldName("alias"); alias != nil {
		b.targets(ctx, alias, ctx.ScopeFor(node), ctx.Span(node))
	}
}

// walrus targets inside a comprehension bind in the nearest enclosing
// non-comprehension scope.
func (b BindingCollector) walrus(ctx *ExtractionContext, node *sitter.Node) {
	scope := ctx.ScopeFor(node)
	for ctx.File.Scopes[scope].Kind == ScopeComprehension && ctx.File.Scopes[scope].Parent >= 0 {
		scope = ctx.File.Scopes[scope].Parent
	}
	b.targets(ctx, node.ChildByFieldName("name"), scope, ctx.Span(node))
}

func (b BindingCollector) targets(ctx *ExtractionContext, node *sitter.Node, scope int, def Span) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
		ctx.AddBinding(Binding{
			Name:   ctx.Text(node),
			Kind:   BindVariable,
			Scope:  scope,
			Node:   ctx.NodeID(node),
			Ident:  ctx.Span(node),
			Def:    def,
			Body:   -1,
			Param:  -1,
			Import: -1,
		})
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern", "list_splat", "as_pattern_target":
		for i := uint(0); i < node.NamedChildCount(); i++ {
			b.targets(ctx, node.NamedChild(i), scope, def)
		}
	}
}
