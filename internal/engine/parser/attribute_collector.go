package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// AttributeCollector records `<receiver>.<name>` sites whose receiver is a
// chain of names, calls and attributes. Call is set for method-call sites.
type AttributeCollector struct{}

func (AttributeCollector) Name() string { return "attributes" }

func (a AttributeCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{"attribute": a.attribute}
}

func (AttributeCollector) attribute(ctx *ExtractionContext, node *sitter.Node) {
	field := node.ChildByFieldName("attribute")
	receiver := ctx.ReceiverChain(node.ChildByFieldName("object"))
	if field == nil || receiver == nil {
		return
	}
	site := AttributeSite{
		Scope:    ctx.ScopeFor(node),
		Name:     ctx.Text(field),
		Span:     ctx.Span(field),
		Receiver: receiver,
	}
	if parent := node.Parent(); parent != nil {
		switch parent.Kind() {
		case "call":
			site.Call = isField(parent, "function", node)
		case "assignment", "augmented_assignment":
			site.Store = isField(parent, "left", node)
		}
	}
	ctx.File.Attributes = append(ctx.File.Attributes, site)
}
