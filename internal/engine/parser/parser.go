// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"unicode/utf8"

	"pyrefactor/internal/core/errors"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Tree is a parsed file together with its position table. Close releases the
// underlying tree-sitter tree.
type Tree struct {
	Path      string
	Source    []byte
	Root      *sitter.Node
	Positions *PositionTable

	tree *sitter.Tree
}

func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Parser turns Python source into a Tree. A file that contains any syntax
// error is rejected instead of being analyzed from a recovered tree.
type Parser struct {
	pool        *ParserPool
	maxFileSize int64
}

func NewParser(maxFileSize int64) *Parser {
	return &Parser{
		pool:        NewParserPool(PythonLanguage()),
		maxFileSize: maxFileSize,
	}
}

func (p *Parser) Parse(path string, content []byte) (*Tree, error) {
	if p.maxFileSize > 0 && int64(len(content)) > p.maxFileSize {
		return nil, parseFailure(path, fmt.Sprintf("file exceeds %d bytes", p.maxFileSize), Location{})
	}
	if !utf8.Valid(content) {
		return nil, parseFailure(path, "content is not valid UTF-8", Location{})
	}

	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, parseFailure(path, "parser returned no tree", Location{})
	}
	root := tree.RootNode()
	if root.HasError() {
		loc := firstErrorLocation(root)
		tree.Close()
		return nil, parseFailure(path, "syntax error", loc)
	}

	return &Tree{
		Path:      path,
		Source:    content,
		Root:      root,
		Positions: BuildPositionTable(root),
		tree:      tree,
	}, nil
}

func parseFailure(path, msg string, loc Location) error {
	err := errors.AddContext(errors.New(errors.CodeParseFailure, msg), errors.CtxPath, path)
	if loc.Line > 0 {
		err = errors.AddContext(err, errors.CtxLine, loc.Line)
		err = errors.AddContext(err, errors.CtxColumn, loc.Column)
	}
	return err
}

func firstErrorLocation(root *sitter.Node) Location {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.IsError() || node.IsMissing() {
			pos := node.StartPosition()
			return Location{Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
		}
		if !node.HasError() {
			continue
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(uint(i)))
		}
	}
	return Location{}
}
