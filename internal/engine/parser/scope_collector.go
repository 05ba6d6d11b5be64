package parser

import (
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var comprehensionNames = map[string]string{
	"list_comprehension":       "<listcomp>",
	"set_comprehension":        "<setcomp>",
	"dictionary_comprehension": "<dictcomp>",
	"generator_expression":     "<genexpr>",
}

// ScopeCollector opens a scope for every scope-forming node and records
// global/nonlocal declarations. It must run before the other collectors.
type ScopeCollector struct{}

func (ScopeCollector) Name() string { return "scopes" }

func (s ScopeCollector) Handlers() map[string]NodeHandler {
	h := map[string]NodeHandler{
		"module":              s.module,
		"class_definition":    s.named(ScopeClass),
		"function_definition": s.named(ScopeFunction),
		"lambda":              s.lambda,
		"global_statement":    s.declare(false),
		"nonlocal_statement":  s.declare(true),
	}
	for kind := range comprehensionNames {
		h[kind] = s.comprehension
	}
	return h
}

func (ScopeCollector) module(ctx *ExtractionContext, node *sitter.Node) {
	ctx.OpenScope(node, ScopeModule, -1, "<module>")
}

func (ScopeCollector) named(kind ScopeKind) NodeHandler {
	return func(ctx *ExtractionContext, node *sitter.Node) {
		ctx.OpenScope(node, kind, ctx.ScopeFor(node), ctx.Text(node.ChildByFieldName("name")))
	}
}

func (ScopeCollector) lambda(ctx *ExtractionContext, node *sitter.Node) {
	ctx.OpenScope(node, ScopeLambda, ctx.ScopeFor(node), "<lambda>")
}

func (ScopeCollector) comprehension(ctx *ExtractionContext, node *sitter.Node) {
	ctx.OpenScope(node, ScopeComprehension, ctx.ScopeFor(node), comprehensionNames[node.Kind()])
}

func (ScopeCollector) declare(nonlocal bool) NodeHandler {
	return func(ctx *ExtractionContext, node *sitter.Node) {
		scope := &ctx.File.Scopes[ctx.ScopeFor(node)]
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() != "identifier" {
				continue
			}
			if nonlocal {
				scope.Nonlocals = insertSorted(scope.Nonlocals, ctx.Text(child))
			} else {
				scope.Globals = insertSorted(scope.Globals, ctx.Text(child))
			}
		}
	}
}

func insertSorted(values []string, v string) []string {
	i := sort.SearchStrings(values, v)
	if i < len(values) && values[i] == v {
		return values
	}
	values = append(values, "")
	copy(values[i+1:], values[i:])
	values[i] = v
	return values
}
