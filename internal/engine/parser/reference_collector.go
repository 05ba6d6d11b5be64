package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ReferenceCollector records every identifier that is read rather than
// bound, plus the names listed in global/nonlocal statements.
type ReferenceCollector struct{}

func (ReferenceCollector) Name() string { return "references" }

func (r ReferenceCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{"identifier": r.identifier}
}

func (ReferenceCollector) identifier(ctx *ExtractionContext, node *sitter.Node) {
	span := ctx.Span(node)
	if ctx.IsBound(span) {
		return
	}
	kind := RefRead
	if parent := node.Parent(); parent != nil {
		switch parent.Kind() {
		case "attribute":
			if isField(parent, "attribute", node) {
				return
			}
		case "keyword_argument":
			if isField(parent, "name", node) {
				return
			}
		case "dotted_name", "aliased_import", "relative_import", "import_prefix":
			return
		case "global_statement", "nonlocal_statement":
			kind = RefDeclaration
		}
	}
	ctx.File.References = append(ctx.File.References, Reference{
		Name:  ctx.Text(node),
		Scope: ctx.ScopeFor(node),
		Node:  ctx.NodeID(node),
		Span:  span,
		Kind:  kind,
	})
}
