package inference

import (
	"context"
	"log/slog"

	"pyrefactor/internal/engine/graph"
	"pyrefactor/internal/engine/resolver"
	"pyrefactor/internal/engine/symbols"
)

type Stats struct {
	Classes          int
	ResolvedBases    int
	UnresolvedBases  int
	Types            int
	ConflictingTypes int
	AttributeTypes   int
	MethodReferences int
}

// Inferrer is Pass 4: inheritance, shallow types and typed method-call
// references. It runs after the resolver on the same database.
type Inferrer struct {
	db    *symbols.Database
	res   *resolver.Resolver
	graph *graph.InheritanceGraph
	stats Stats
}

func New(db *symbols.Database, res *resolver.Resolver) *Inferrer {
	return &Inferrer{db: db, res: res}
}

// Run resolves base classes, builds the inheritance graph, infers types and
// registers method references, in that order.
func (in *Inferrer) Run(ctx context.Context) (*graph.InheritanceGraph, Stats, error) {
	in.resolveBases()
	in.graph = graph.NewInheritanceGraph(in.db)
	if err := ctx.Err(); err != nil {
		return nil, in.stats, err
	}

	in.typeReceivers()
	in.inferTypes()
	in.inferAttributeTypes()
	if err := ctx.Err(); err != nil {
		return nil, in.stats, err
	}

	for _, f := range in.db.Files() {
		if err := ctx.Err(); err != nil {
			return nil, in.stats, err
		}
		in.dispatch(f)
	}

	slog.Debug("pass 4 complete",
		"classes", in.stats.Classes,
		"bases", in.stats.ResolvedBases,
		"unresolved_bases", in.stats.UnresolvedBases,
		"types", in.stats.Types,
		"attribute_types", in.stats.AttributeTypes,
		"method_refs", in.stats.MethodReferences,
	)
	return in.graph, in.stats, nil
}
