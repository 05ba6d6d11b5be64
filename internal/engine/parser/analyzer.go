package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// LocalAnalyzer is Pass 1: it turns one (path, content) pair into raw,
// unresolved facts. It holds no cross-file state and is safe for concurrent
// use.
type LocalAnalyzer struct {
	parser      *Parser
	sourceRoots []string
	engine      *ExtractorEngine
}

func NewLocalAnalyzer(p *Parser, sourceRoots []string) *LocalAnalyzer {
	return &LocalAnalyzer{
		parser:      p,
		sourceRoots: sourceRoots,
		engine:      NewExtractorEngine(DefaultCollectors()...),
	}
}

// DefaultCollectors returns the Pass 1 collectors in dispatch order. Scopes
// come first, and bindings/imports precede references so bound identifiers
// are already marked when the reference collector sees them.
func DefaultCollectors() []Collector {
	return []Collector{
		ScopeCollector{},
		BindingCollector{},
		ImportCollector{},
		ReferenceCollector{},
		HintCollector{},
		InheritanceCollector{},
		AttributeCollector{},
		ExportCollector{},
	}
}

func (a *LocalAnalyzer) Analyze(path string, content []byte) (*File, error) {
	path = CanonicalPath(path)
	tree, err := a.parser.Parse(path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	module, pkg := ModulePath(path, a.sourceRoots)
	file := &File{
		Path:     path,
		Hash:     ContentHash(content),
		Module:   module,
		Package:  pkg,
		Source:   content,
		ParsedAt: time.Now(),
	}
	a.engine.Walk(NewExtractionContext(file, tree), tree.Root)
	return file, nil
}

func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
