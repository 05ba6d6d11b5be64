package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// HintCollector records explicit annotations and constructor assignments,
// the raw inputs of type inference.
type HintCollector struct{}

func (HintCollector) Name() string { return "hints" }

func (h HintCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"typed_parameter":         h.parameter,
		"typed_default_parameter": h.parameter,
		"assignment":              h.assignment,
	}
}

func (HintCollector) parameter(ctx *ExtractionContext, node *sitter.Node) {
	name := parameterName(node)
	if name == nil || name.Kind() != "identifier" || !sameNode(name.Parent(), node) {
		return
	}
	params := node.Parent()
	if params == nil || params.Parent() == nil {
		return
	}
	body, ok := ctx.ScopeOf(params.Parent())
	if !ok {
		return
	}
	typ := node.ChildByFieldName("type")
	chain := ctx.DottedChain(typ)
	if chain == nil {
		return
	}
	ctx.File.Hints = append(ctx.File.Hints, TypeHint{
		Scope:       ctx.ScopeFor(typ),
		TargetScope: body,
		Name:        ctx.Text(name),
		Target:      ctx.Span(name),
		Type:        chain,
		Parameter:   true,
	})
}

func (HintCollector) assignment(ctx *ExtractionContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil {
		return
	}
	scope := ctx.ScopeFor(node)

	var name, receiver, attr string
	switch left.Kind() {
	case "identifier":
		name = ctx.Text(left)
	case "attribute":
		obj := left.ChildByFieldName("object")
		field := left.ChildByFieldName("attribute")
		if obj == nil || field == nil || obj.Kind() != "identifier" {
			return
		}
		receiver, attr = ctx.Text(obj), ctx.Text(field)
	default:
		return
	}
	target := ctx.Span(left)
	if attr != "" {
		target = ctx.Span(left.ChildByFieldName("attribute"))
	}

	if typ := node.ChildByFieldName("type"); typ != nil {
		if chain := ctx.DottedChain(typ); chain != nil {
			ctx.File.Hints = append(ctx.File.Hints, TypeHint{
				Scope:       scope,
				TargetScope: scope,
				Name:        name,
				Target:      target,
				Receiver:    receiver,
				Attr:        attr,
				Type:        chain,
				ClassLevel:  attr == "" && ctx.File.Scopes[scope].Kind == ScopeClass,
			})
		}
	}

	right := node.ChildByFieldName("right")
	if right == nil || right.Kind() != "call" {
		return
	}
	callee := ctx.DottedChain(right.ChildByFieldName("function"))
	if callee == nil {
		return
	}
	ctx.File.Constructions = append(ctx.File.Constructions, Construction{
		Scope:    scope,
		Name:     name,
		Target:   target,
		Receiver: receiver,
		Attr:     attr,
		Callee:   callee,
	})
}
