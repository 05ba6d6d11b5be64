package pipeline

import (
	"context"
	"testing"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/symbols"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var project = []Input{
	{Path: "pkg/__init__.py", Content: []byte("from .models import Model\n__all__ = [\"Model\"]\n")},
	{Path: "pkg/models.py", Content: []byte("class Model:\n    def save(self):\n        return True\n")},
	{Path: "pkg/special.py", Content: []byte("from .models import Model\n\nclass Special(Model):\n    def save(self):\n        return super().save()\n")},
	{Path: "app.py", Content: []byte("from pkg import *\nimport pkg.special as sp\n\nm = Model()\nm.save()\ns = sp.Special()\ns.save()\n")},
	{Path: "x.py", Content: []byte("def foo():\n    return 1\n")},
	{Path: "y.py", Content: []byte("from x import foo\nfoo()\n")},
}

func reversed(in []Input) []Input {
	out := make([]Input, len(in))
	for i := range in {
		out[len(in)-1-i] = in[i]
	}
	return out
}

func run(t *testing.T, workers int, inputs []Input) *Bundle {
	t.Helper()
	b, err := New(Options{Workers: workers, SourceRoots: []string{""}}).Run(context.Background(), inputs)
	require.NoError(t, err)
	return b
}

func TestPipeline_DeterministicAcrossOrderAndWorkers(t *testing.T) {
	first := run(t, 1, project)
	second := run(t, 8, reversed(project))

	assert.Equal(t, first.Files(), second.Files())
	assert.Equal(t, first.Scopes(), second.Scopes())
	assert.Equal(t, first.Symbols(), second.Symbols())
	assert.Equal(t, first.References(), second.References())
	assert.Equal(t, first.Imports(), second.Imports())
	assert.Equal(t, first.Types(), second.Types())
	assert.Equal(t, first.Inheritance(), second.Inheritance())
	assert.NotEqual(t, first.RunID, second.RunID)

	assert.True(t, first.IsComplete())
	assert.Equal(t, len(project), first.SuccessCount())
	assert.Zero(t, first.FailureCount())
	assert.True(t, first.DB().Frozen())
}

func TestPipeline_ResolvesAcrossPasses(t *testing.T) {
	b := run(t, 4, project)
	db := b.DB()

	models, ok := db.FileByPath("pkg/models.py")
	require.True(t, ok)
	var save, model uint32
	for _, s := range b.Symbols() {
		if s.File != models.ID {
			continue
		}
		switch s.Name {
		case "save":
			save = uint32(s.ID)
		case "Model":
			model = uint32(s.ID)
		}
	}
	require.NotZero(t, save)
	require.NotZero(t, model)

	var saveRefs, modelRefs int
	for _, r := range b.References() {
		switch uint32(r.Target) {
		case save:
			saveRefs++
		case model:
			modelRefs++
		}
	}
	assert.Equal(t, 2, saveRefs, "m.save() and super().save()")
	assert.Equal(t, 2, modelRefs, "the base list and the star-imported constructor call")

	require.Len(t, b.Inheritance(), 1)
	assert.Contains(t, b.Stats.Durations, "infer")
}

func TestPipeline_RecordsParseFailures(t *testing.T) {
	inputs := append([]Input{{Path: "broken.py", Content: []byte("def broken(:\n")}}, project...)
	b := run(t, 2, inputs)

	assert.False(t, b.IsComplete())
	assert.Equal(t, 1, b.FailureCount())
	assert.Equal(t, len(project), b.SuccessCount())
	assert.Equal(t, []string{"broken.py"}, b.FailedPaths())
	assert.True(t, errors.IsCode(b.Failed()[0].Err, errors.CodeParseFailure))
}

func TestPipeline_DuplicatePaths(t *testing.T) {
	inputs := []Input{
		{Path: "a.py", Content: []byte("x = 1\n")},
		{Path: "./a.py", Content: []byte("x = 1\n")},
		{Path: `pkg\b.py`, Content: []byte("y = 1\n")},
		{Path: "pkg/b.py", Content: []byte("y = 2\n")},
	}
	b := run(t, 2, inputs)

	require.Len(t, b.Files(), 1)
	assert.Equal(t, "a.py", b.Files()[0].Path)
	assert.Equal(t, []string{"pkg/b.py"}, b.FailedPaths())
	assert.True(t, errors.IsCode(b.Failed()[0].Err, errors.CodeValidationError))
}

func TestPipeline_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := New(Options{Workers: 2}).Run(ctx, project)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, b)
}

func TestPipeline_CacheReusesResults(t *testing.T) {
	p := New(Options{Workers: 2, CacheEntries: 16, SourceRoots: []string{""}})
	_, err := p.Run(context.Background(), project)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), project)
	require.NoError(t, err)

	hits, misses, ok := p.CacheStats()
	require.True(t, ok)
	assert.Equal(t, uint64(len(project)), hits)
	assert.Equal(t, uint64(len(project)), misses)
}

func TestPipeline_LambdaScopes(t *testing.T) {
	b := run(t, 1, []Input{{Path: "m.py", Content: []byte("f = lambda y: y\n")}})
	scopes := b.Scopes()
	require.Len(t, scopes, 2)
	assert.Equal(t, symbols.Span{Start: 0, End: 16}, scopes[0].Lexical)
	assert.Equal(t, symbols.Span{Start: 4, End: 15}, scopes[1].Lexical)
	assert.Equal(t, scopes[0].ID, scopes[1].Parent)
}
