package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes one node on behalf of a collector.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node)

// Collector gathers one kind of fact. Handlers returns the node kinds it
// wants to see; the engine calls them in pre-order during a single walk.
type Collector interface {
	Name() string
	Handlers() map[string]NodeHandler
}

// ExtractorEngine walks the syntax tree once and dispatches each named node
// to the handlers of every registered collector, in registration order.
// Anonymous tokens are skipped: the `lambda` keyword shares its kind with the
// lambda expression.
type ExtractorEngine struct {
	handlers map[string][]NodeHandler
}

func NewExtractorEngine(collectors ...Collector) *ExtractorEngine {
	e := &ExtractorEngine{handlers: make(map[string][]NodeHandler)}
	for _, c := range collectors {
		for kind, h := range c.Handlers() {
			e.handlers[kind] = append(e.handlers[kind], h)
		}
	}
	return e
}

func (e *ExtractorEngine) Walk(ctx *ExtractionContext, root *sitter.Node) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsNamed() {
			for _, h := range e.handlers[node.Kind()] {
				h(ctx, node)
			}
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(uint(i)))
		}
	}
}

// ExtractionContext carries the per-file state shared by collectors.
type ExtractionContext struct {
	Source    []byte
	File      *File
	Positions *PositionTable

	scopeByNode map[NodeID]int
	bound       map[Span]bool
}

func NewExtractionContext(file *File, tree *Tree) *ExtractionContext {
	return &ExtractionContext{
		Source:      tree.Source,
		File:        file,
		Positions:   tree.Positions,
		scopeByNode: make(map[NodeID]int),
		bound:       make(map[Span]bool),
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *ExtractionContext) Span(node *sitter.Node) Span {
	return spanOf(node)
}

func (c *ExtractionContext) NodeID(node *sitter.Node) NodeID {
	id, _ := c.Positions.ID(node)
	return id
}

// OpenScope registers the scope opened by node.
func (c *ExtractionContext) OpenScope(node *sitter.Node, kind ScopeKind, parent int, name string) int {
	id, spans := c.Positions.Lookup(node)
	idx := len(c.File.Scopes)
	c.File.Scopes = append(c.File.Scopes, Scope{
		Index:   idx,
		Kind:    kind,
		Parent:  parent,
		Name:    name,
		Node:    id,
		Lexical: spans.Lexical,
		Owner:   -1,
	})
	c.scopeByNode[id] = idx
	return idx
}

// ScopeOf returns the scope opened by a scope-forming node.
func (c *ExtractionContext) ScopeOf(node *sitter.Node) (int, bool) {
	idx, ok := c.scopeByNode[c.NodeID(node)]
	return idx, ok
}

// ScopeFor returns the scope in which node is evaluated. Decorators, default
// values, annotations and base lists belong to the enclosing scope, as does
// the first iterable of a comprehension.
func (c *ExtractionContext) ScopeFor(node *sitter.Node) int {
	child := node
	var grand *sitter.Node
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if idx, ok := c.enclosedBy(parent, child, grand); ok {
			return idx
		}
		grand, child = child, parent
	}
	return 0
}

func (c *ExtractionContext) enclosedBy(parent, child, grand *sitter.Node) (int, bool) {
	kind, ok := scopeKinds[parent.Kind()]
	if !ok {
		return 0, false
	}
	switch kind {
	case ScopeModule:
		return c.ScopeOf(parent)
	case ScopeClass, ScopeFunction, ScopeLambda:
		if sameNode(parent.ChildByFieldName("body"), child) {
			return c.ScopeOf(parent)
		}
		return 0, false
	default:
		if child.Kind() == "for_in_clause" && grand != nil && isFirstForIn(parent, child) && afterIn(child, grand) {
			return 0, false
		}
		return c.ScopeOf(parent)
	}
}

func isFirstForIn(comp, clause *sitter.Node) bool {
	for i := uint(0); i < comp.ChildCount(); i++ {
		ch := comp.Child(i)
		if ch.Kind() == "for_in_clause" {
			return sameNode(ch, clause)
		}
	}
	return false
}

func afterIn(clause, node *sitter.Node) bool {
	for i := uint(0); i < clause.ChildCount(); i++ {
		ch := clause.Child(i)
		if ch.Kind() == "in" {
			return node.StartByte() > ch.StartByte()
		}
	}
	return false
}

func (c *ExtractionContext) AddBinding(b Binding) int {
	b.Index = len(c.File.Bindings)
	c.File.Bindings = append(c.File.Bindings, b)
	c.MarkBound(b.Ident)
	return b.Index
}

// MarkBound records an identifier span consumed by a binding or import so
// the reference collector skips it.
func (c *ExtractionContext) MarkBound(s Span) {
	c.bound[s] = true
}

func (c *ExtractionContext) IsBound(s Span) bool {
	return c.bound[s]
}

// DottedChain flattens identifiers, attribute chains, `type` wrappers and
// string forward references into name segments. Anything else yields nil.
func (c *ExtractionContext) DottedChain(node *sitter.Node) []string {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		return []string{c.Text(node)}
	case "attribute":
		obj := c.DottedChain(node.ChildByFieldName("object"))
		if obj == nil {
			return nil
		}
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return nil
		}
		return append(obj, c.Text(attr))
	case "type", "parenthesized_expression":
		if node.NamedChildCount() != 1 {
			return nil
		}
		return c.DottedChain(node.NamedChild(0))
	case "string":
		return parseDotted(strings.Trim(c.Text(node), `"'`))
	}
	return nil
}

func parseDotted(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ".")
	for _, p := range parts {
		if !IsIdentifier(p) {
			return nil
		}
	}
	return parts
}

// ReceiverChain flattens the object of an attribute access into steps.
func (c *ExtractionContext) ReceiverChain(node *sitter.Node) []Step {
	if node == nil {
		return nil
	}
	switch node.Kind() {
	case "identifier":
		return []Step{{Name: c.Text(node)}}
	case "attribute":
		obj := c.ReceiverChain(node.ChildByFieldName("object"))
		attr := node.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return nil
		}
		return append(obj, Step{Name: c.Text(attr)})
	case "call":
		fn := c.ReceiverChain(node.ChildByFieldName("function"))
		if len(fn) == 0 || fn[len(fn)-1].Call {
			return nil
		}
		fn[len(fn)-1].Call = true
		return fn
	case "parenthesized_expression":
		if node.NamedChildCount() != 1 {
			return nil
		}
		return c.ReceiverChain(node.NamedChild(0))
	}
	return nil
}

func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	return sameNode(parent.ChildByFieldName(field), child)
}
