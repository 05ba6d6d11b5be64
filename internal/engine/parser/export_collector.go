package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ExportCollector records a module-level __all__ built only from string
// literals. Any other mutation makes the list unknown for the whole file.
type ExportCollector struct{}

func (ExportCollector) Name() string { return "exports" }

func (e ExportCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{
		"assignment":           e.assignment,
		"augmented_assignment": e.assignment,
		"call":                 e.call,
	}
}

func (ExportCollector) assignment(ctx *ExtractionContext, node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" || ctx.Text(left) != "__all__" || ctx.ScopeFor(node) != 0 {
		return
	}
	exports := &ctx.File.Exports
	if node.Kind() == "assignment" {
		if exports.Known && !exports.dynamic {
			// rebinding drops whatever was collected before
			exports.Names, exports.Spans = nil, nil
		}
		if !exports.dynamic {
			exports.Known = true
		}
	}
	if !exports.Known || !appendLiterals(ctx, exports, node.ChildByFieldName("right")) {
		exports.markDynamic()
	}
}

// __all__.extend([...]) and __all__.append("x")
func (ExportCollector) call(ctx *ExtractionContext, node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "attribute" {
		return
	}
	obj := fn.ChildByFieldName("object")
	if obj == nil || obj.Kind() != "identifier" || ctx.Text(obj) != "__all__" || ctx.ScopeFor(node) != 0 {
		return
	}
	exports := &ctx.File.Exports
	args := node.ChildByFieldName("arguments")
	method := ctx.Text(fn.ChildByFieldName("attribute"))
	if !exports.Known || args == nil || args.NamedChildCount() != 1 {
		exports.markDynamic()
		return
	}
	arg := args.NamedChild(0)
	switch method {
	case "extend":
		if !appendLiterals(ctx, exports, arg) {
			exports.markDynamic()
		}
	case "append":
		if !appendLiteral(ctx, exports, arg) {
			exports.markDynamic()
		}
	default:
		exports.markDynamic()
	}
}

func (e *Exports) markDynamic() {
	e.dynamic = true
	e.Known = false
	e.Names, e.Spans = nil, nil
}

func appendLiterals(ctx *ExtractionContext, exports *Exports, node *sitter.Node) bool {
	if node == nil || (node.Kind() != "list" && node.Kind() != "tuple") {
		return false
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if !appendLiteral(ctx, exports, node.NamedChild(i)) {
			return false
		}
	}
	return true
}

func appendLiteral(ctx *ExtractionContext, exports *Exports, node *sitter.Node) bool {
	if node == nil || node.Kind() != "string" {
		return false
	}
	var content *sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "string_start", "string_end":
		case "string_content":
			if content != nil {
				return false
			}
			content = child
		default:
			return false
		}
	}
	if content == nil {
		return false
	}
	start := ctx.Text(node.NamedChild(0))
	if strings.ContainsAny(start, "fFbB") {
		return false
	}
	name := ctx.Text(content)
	if !IsIdentifier(name) {
		return false
	}
	exports.Names = append(exports.Names, name)
	exports.Spans = append(exports.Spans, ctx.Span(content))
	return true
}
