// # internal/engine/parser/position.go
package parser

import (
	"bytes"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeID is a node's pre-order ordinal in its tree. It depends only on the
// parsed content, so it is stable across runs.
type NodeID uint32

// NodeSpans are the byte ranges recorded for one node. Ident covers only the
// name token (identifiers and the name of a def/class), Lexical the extent of
// a scope-forming node, and Def a full declaration including decorators.
type NodeSpans struct {
	Kind    string
	Ident   Span
	Lexical Span
	Def     Span
}

type nodeKey struct {
	start uint
	end   uint
	kind  string
}

type PositionTable struct {
	entries []NodeSpans
	ids     map[nodeKey]NodeID
}

var scopeKinds = map[string]ScopeKind{
	"module":                   ScopeModule,
	"class_definition":         ScopeClass,
	"function_definition":      ScopeFunction,
	"lambda":                   ScopeLambda,
	"list_comprehension":       ScopeComprehension,
	"set_comprehension":        ScopeComprehension,
	"dictionary_comprehension": ScopeComprehension,
	"generator_expression":     ScopeComprehension,
}

// BuildPositionTable assigns identities in pre-order and records spans.
func BuildPositionTable(root *sitter.Node) *PositionTable {
	t := &PositionTable{ids: make(map[nodeKey]NodeID)}
	if root == nil {
		return t
	}

	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := keyOf(node)
		if _, dup := t.ids[key]; !dup {
			t.ids[key] = NodeID(len(t.entries))
		}
		t.entries = append(t.entries, spansOf(node))

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(uint(i)))
		}
	}
	return t
}

func spansOf(node *sitter.Node) NodeSpans {
	own := spanOf(node)
	spans := NodeSpans{Kind: node.Kind(), Def: own}
	switch node.Kind() {
	case "identifier":
		spans.Ident = own
	case "function_definition", "class_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			spans.Ident = spanOf(name)
		}
		if parent := node.Parent(); parent != nil && parent.Kind() == "decorated_definition" {
			spans.Def = spanOf(parent)
		}
	}
	if _, ok := scopeKinds[node.Kind()]; ok && node.IsNamed() {
		spans.Lexical = own
	}
	return spans
}

// ID returns the identity of node, which must belong to the table's tree.
func (t *PositionTable) ID(node *sitter.Node) (NodeID, bool) {
	if node == nil {
		return 0, false
	}
	id, ok := t.ids[keyOf(node)]
	return id, ok
}

func (t *PositionTable) Spans(id NodeID) (NodeSpans, bool) {
	if int(id) >= len(t.entries) {
		return NodeSpans{}, false
	}
	return t.entries[id], true
}

// Lookup is ID followed by Spans.
func (t *PositionTable) Lookup(node *sitter.Node) (NodeID, NodeSpans) {
	id, ok := t.ID(node)
	if !ok {
		return 0, NodeSpans{Kind: node.Kind(), Def: spanOf(node)}
	}
	return id, t.entries[id]
}

func (t *PositionTable) Len() int {
	return len(t.entries)
}

func keyOf(node *sitter.Node) nodeKey {
	return nodeKey{start: node.StartByte(), end: node.EndByte(), kind: node.Kind()}
}

func spanOf(node *sitter.Node) Span {
	return Span{Start: int(node.StartByte()), End: int(node.EndByte())}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return keyOf(a) == keyOf(b)
}

// LocationOf converts a byte offset in content to a 1-based line and column.
// Offsets past the end are clamped.
func LocationOf(content []byte, offset int) Location {
	if offset > len(content) {
		offset = len(content)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := content[:offset]
	return Location{
		Line:   bytes.Count(prefix, []byte{'\n'}) + 1,
		Column: offset - bytes.LastIndexByte(prefix, '\n'),
	}
}
