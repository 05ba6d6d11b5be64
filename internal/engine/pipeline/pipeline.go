package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/graph"
	"pyrefactor/internal/engine/inference"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/resolver"
	"pyrefactor/internal/engine/symbols"
	"pyrefactor/internal/shared/observability"
)

// Input is one source file handed to the pipeline.
type Input struct {
	Path    string
	Content []byte
}

// Analyzer is Pass 1 for a single file.
type Analyzer interface {
	Analyze(path string, content []byte) (*parser.File, error)
}

type Options struct {
	Workers      int
	MaxFileSize  int64
	SourceRoots  []string
	CacheEntries int
}

// Pipeline runs the four analysis passes. Pass 1 is parallel; the rest run
// on one goroutine against a database owned by the run.
type Pipeline struct {
	analyzer Analyzer
	workers  int
}

func New(opts Options) *Pipeline {
	local := parser.NewLocalAnalyzer(parser.NewParser(opts.MaxFileSize), opts.SourceRoots)
	var a Analyzer = local
	if opts.CacheEntries > 0 {
		a = parser.NewCachingAnalyzer(local, opts.CacheEntries)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{analyzer: a, workers: workers}
}

// CacheStats reports Pass 1 cache hits and misses when caching is enabled.
func (p *Pipeline) CacheStats() (hits, misses uint64, ok bool) {
	c, ok := p.analyzer.(*parser.CachingAnalyzer)
	if !ok {
		return 0, 0, false
	}
	hits, misses = c.Stats()
	return hits, misses, true
}

// Run analyzes inputs and returns a frozen bundle. Input order does not
// affect the result. A cancelled context aborts the run with its error.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*Bundle, error) {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.Int("inputs", len(inputs))))
	defer span.End()

	started := time.Now()
	bundle := &Bundle{
		RunID:     uuid.NewString(),
		CreatedAt: started,
		Stats:     Stats{Durations: make(map[string]time.Duration)},
	}

	unique, failed := dedupe(inputs)

	// Pass 1
	files, parseFailures, err := p.analyzeAll(ctx, unique)
	if err != nil {
		return nil, err
	}
	failed = append(failed, parseFailures...)
	sort.Slice(failed, func(i, j int) bool { return failed[i].Path < failed[j].Path })
	bundle.failed = failed
	p.observe(bundle, "local", started)

	// Pass 2
	mark := time.Now()
	db := symbols.NewDatabase()
	_, pass2 := observability.Tracer.Start(ctx, "pipeline.Register")
	symbols.Register(db, files)
	pass2.End()
	p.observe(bundle, "register", mark)

	// Pass 3
	mark = time.Now()
	res := resolver.New(db)
	rctx, pass3 := observability.Tracer.Start(ctx, "pipeline.Resolve")
	bundle.Stats.Resolver, err = res.Run(rctx)
	pass3.End()
	if err != nil {
		return nil, err
	}
	p.observe(bundle, "resolve", mark)

	// Pass 4
	mark = time.Now()
	ictx, pass4 := observability.Tracer.Start(ctx, "pipeline.Infer")
	bundle.inheritance, bundle.Stats.Inference, err = inference.New(db, res).Run(ictx)
	pass4.End()
	if err != nil {
		return nil, err
	}
	p.observe(bundle, "infer", mark)

	bundle.imports = graph.NewImportGraph(db)
	db.Freeze()
	bundle.db = db

	record(bundle)
	span.SetAttributes(
		attribute.String("run_id", bundle.RunID),
		attribute.Int("files", bundle.SuccessCount()),
		attribute.Int("failed", bundle.FailureCount()),
	)
	slog.Info("analysis complete",
		"run_id", bundle.RunID,
		"files", bundle.SuccessCount(),
		"failed", bundle.FailureCount(),
		"symbols", len(db.Symbols()),
		"references", len(db.References()),
		"duration", time.Since(started),
	)
	return bundle, nil
}

func (p *Pipeline) analyzeAll(ctx context.Context, inputs []Input) ([]*parser.File, []FailedFile, error) {
	type slot struct {
		file *parser.File
		err  error
	}
	results := make([]slot, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := p.analyzer.Analyze(in.Path, in.Content)
			results[i] = slot{file: f, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	files := make([]*parser.File, 0, len(inputs))
	var failed []FailedFile
	for i, r := range results {
		if r.err != nil {
			slog.Warn("failed to analyze file", "path", inputs[i].Path, "error", r.err)
			failed = append(failed, FailedFile{Path: inputs[i].Path, Err: r.err})
			continue
		}
		files = append(files, r.file)
	}
	return files, failed, nil
}

// dedupe canonicalizes paths. Repeated paths with identical content collapse
// into one input; repeated paths with differing content all fail.
func dedupe(inputs []Input) ([]Input, []FailedFile) {
	byPath := make(map[string][]Input, len(inputs))
	var order []string
	for _, in := range inputs {
		path := parser.CanonicalPath(in.Path)
		if _, seen := byPath[path]; !seen {
			order = append(order, path)
		}
		byPath[path] = append(byPath[path], Input{Path: path, Content: in.Content})
	}

	unique := make([]Input, 0, len(order))
	var failed []FailedFile
	for _, path := range order {
		group := byPath[path]
		conflict := false
		for _, in := range group[1:] {
			if !bytes.Equal(in.Content, group[0].Content) {
				conflict = true
				break
			}
		}
		if conflict {
			err := errors.New(errors.CodeValidationError, "path given more than once with different content")
			failed = append(failed, FailedFile{Path: path, Err: errors.AddContext(err, errors.CtxPath, path)})
			continue
		}
		unique = append(unique, group[0])
	}
	return unique, failed
}

func (p *Pipeline) observe(b *Bundle, pass string, since time.Time) {
	d := time.Since(since)
	b.Stats.Durations[pass] = d
	observability.PassDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func record(b *Bundle) {
	observability.FilesAnalyzedTotal.WithLabelValues("ok").Add(float64(b.SuccessCount()))
	observability.FilesAnalyzedTotal.WithLabelValues("failed").Add(float64(b.FailureCount()))
	counts := make(map[symbols.Status]int)
	for _, r := range b.References() {
		counts[r.Status]++
	}
	for status, n := range counts {
		observability.ReferencesTotal.WithLabelValues(status.String()).Add(float64(n))
	}
	observability.SymbolsGauge.Set(float64(len(b.Symbols())))
	if b.IsComplete() {
		observability.AnalysisComplete.Set(1)
	} else {
		observability.AnalysisComplete.Set(0)
	}
}
