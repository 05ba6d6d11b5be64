package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// InheritanceCollector records the base-class expressions of each class.
// Keyword arguments such as metaclass= are ignored.
type InheritanceCollector struct{}

func (InheritanceCollector) Name() string { return "inheritance" }

func (i InheritanceCollector) Handlers() map[string]NodeHandler {
	return map[string]NodeHandler{"class_definition": i.class}
}

func (InheritanceCollector) class(ctx *ExtractionContext, node *sitter.Node) {
	name := node.ChildByFieldName("name")
	supers := node.ChildByFieldName("superclasses")
	if name == nil || supers == nil {
		return
	}
	decl := BaseDecl{Class: ctx.Span(name), Scope: ctx.ScopeFor(node)}
	for n := uint(0); n < supers.NamedChildCount(); n++ {
		if chain := ctx.DottedChain(supers.NamedChild(n)); chain != nil {
			decl.Bases = append(decl.Bases, chain)
		}
	}
	if len(decl.Bases) > 0 {
		ctx.File.Bases = append(ctx.File.Bases, decl)
	}
}
