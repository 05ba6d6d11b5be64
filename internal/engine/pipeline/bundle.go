package pipeline

import (
	"time"

	"pyrefactor/internal/engine/graph"
	"pyrefactor/internal/engine/inference"
	"pyrefactor/internal/engine/resolver"
	"pyrefactor/internal/engine/symbols"
)

// FailedFile is an input that produced no Pass 1 result.
type FailedFile struct {
	Path string
	Err  error
}

type Stats struct {
	Resolver  resolver.Stats
	Inference inference.Stats
	Durations map[string]time.Duration
}

// Bundle is the frozen result of one analysis run. It is safe for
// concurrent reads.
type Bundle struct {
	RunID     string
	CreatedAt time.Time
	Stats     Stats

	db          *symbols.Database
	inheritance *graph.InheritanceGraph
	imports     *graph.ImportGraph
	failed      []FailedFile
}

func (b *Bundle) DB() *symbols.Database { return b.db }

func (b *Bundle) Graph() *graph.InheritanceGraph { return b.inheritance }

func (b *Bundle) ImportGraph() *graph.ImportGraph { return b.imports }

func (b *Bundle) Files() []symbols.File { return b.db.Files() }

func (b *Bundle) Scopes() []symbols.Scope { return b.db.Scopes() }

func (b *Bundle) Symbols() []symbols.Symbol { return b.db.Symbols() }

func (b *Bundle) References() []symbols.Reference { return b.db.References() }

func (b *Bundle) Imports() []symbols.Import { return b.db.Imports() }

func (b *Bundle) Types() []symbols.TypeInfo { return b.db.Types() }

func (b *Bundle) AttributeTypes() []symbols.AttributeType { return b.db.AttributeTypes() }

func (b *Bundle) Inheritance() []symbols.InheritanceInfo { return b.db.Inheritance() }

// Failed lists the inputs that failed, sorted by path.
func (b *Bundle) Failed() []FailedFile { return b.failed }

// IsComplete reports whether every input was analyzed. Refactorings are
// refused on incomplete bundles.
func (b *Bundle) IsComplete() bool { return len(b.failed) == 0 }

func (b *Bundle) SuccessCount() int { return len(b.db.Files()) }

func (b *Bundle) FailureCount() int { return len(b.failed) }

// FailedPaths returns the paths of the failed inputs.
func (b *Bundle) FailedPaths() []string {
	out := make([]string, 0, len(b.failed))
	for _, f := range b.failed {
		out = append(out, f.Path)
	}
	return out
}
