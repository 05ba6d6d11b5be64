package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pyrefactor/internal/core/config"
	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/data/symbolstore"
	"pyrefactor/internal/engine/parser"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/rename"
	"pyrefactor/internal/engine/symbols"
)

// App owns the workspace: it scans the configured roots, keeps the latest
// bundle and serves rename queries against it.
type App struct {
	Config *config.Config

	pipeline *pipeline.Pipeline
	roots    []string

	mu     sync.RWMutex
	bundle *pipeline.Bundle
	engine *rename.Engine
	disk   map[string]string // analyzed path -> file on disk
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	roots := make([]string, 0, len(cfg.Workspace.Roots))
	for _, root := range cfg.Workspace.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace root %q: %w", root, err)
		}
		roots = append(roots, abs)
	}
	return &App{
		Config: cfg,
		pipeline: pipeline.New(pipeline.Options{
			Workers:      cfg.Analysis.Workers,
			MaxFileSize:  cfg.Analysis.MaxFileSize,
			SourceRoots:  cfg.Workspace.SourceRoots,
			CacheEntries: cfg.Analysis.CacheEntries,
		}),
		roots: roots,
	}, nil
}

// Analyze scans the workspace and replaces the current bundle.
func (a *App) Analyze(ctx context.Context) (*pipeline.Bundle, error) {
	files, err := ScanWorkspace(a.roots, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return nil, err
	}
	inputs := make([]pipeline.Input, 0, len(files))
	disk := make(map[string]string, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f.Disk)
		if err != nil {
			slog.Warn("failed to read source", "path", f.Disk, "error", err)
			continue
		}
		inputs = append(inputs, pipeline.Input{Path: f.Path, Content: content})
		disk[f.Path] = f.Disk
	}

	b, err := a.pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	engine := rename.NewEngine(b, rename.WithConflictChecks(a.Config.ConflictChecks()))

	a.mu.Lock()
	a.bundle, a.engine, a.disk = b, engine, disk
	a.mu.Unlock()
	return b, nil
}

func (a *App) Bundle() *pipeline.Bundle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bundle
}

func (a *App) Engine() (*rename.Engine, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.engine == nil {
		return nil, errors.New(errors.CodeIncomplete, "workspace has not been analyzed")
	}
	return a.engine, nil
}

// RelPath maps a user-supplied path, absolute or relative to the working
// directory, onto the analyzed path space.
func (a *App) RelPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		for _, root := range a.roots {
			rel, err := filepath.Rel(root, abs)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return parser.CanonicalPath(rel)
			}
		}
	}
	return parser.CanonicalPath(p)
}

func (a *App) Locate(path string, offset int) (*symbols.Symbol, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	return e.Locate(a.RelPath(path), offset)
}

func (a *App) Impact(path string, offset int) (*rename.Report, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	return e.ImpactAt(a.RelPath(path), offset)
}

// RenameResult is a computed rename with its optional diff preview.
type RenameResult struct {
	*rename.Response
	Diff    []byte
	Written []string
}

type RenameOptions struct {
	Write bool
	Diff  bool
}

// Rename computes a rename and, with Write set, applies it to disk. Either
// every touched file is written or none is.
func (a *App) Rename(ctx context.Context, req rename.Request, opts RenameOptions) (*RenameResult, error) {
	e, err := a.Engine()
	if err != nil {
		return nil, err
	}
	req.Path = a.RelPath(req.Path)
	resp, err := e.Rename(req)
	if err != nil {
		return nil, err
	}
	out := &RenameResult{Response: resp}
	if opts.Diff {
		res := &rename.Result{Symbol: resp.Symbol, NewName: req.NewName, Edits: resp.Edits, Files: resp.Files}
		if out.Diff, err = e.Diff(res); err != nil {
			return nil, err
		}
	}
	if opts.Write {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if out.Written, err = a.writeAll(resp.Files); err != nil {
			return nil, err
		}
		slog.Info("rename applied", "symbol", resp.Symbol.Name, "new_name", req.NewName, "files", len(out.Written), "edits", len(resp.Edits))
	}
	return out, nil
}

// Export writes the current bundle into the SQLite store at path.
func (a *App) Export(ctx context.Context, path string) error {
	b := a.Bundle()
	if b == nil {
		return errors.New(errors.CodeIncomplete, "workspace has not been analyzed")
	}
	if strings.TrimSpace(path) == "" {
		path = a.Config.DB.Path
	}
	store, err := symbolstore.Open(path, a.Config.DB.BusyTimeout)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveBundle(ctx, b); err != nil {
		return err
	}
	slog.Info("bundle exported", "path", store.Path(), "run_id", b.RunID)
	return nil
}

// OffsetAt converts a 1-based line and column in an analyzed file into a
// byte offset.
func (a *App) OffsetAt(path string, line, column int) (int, error) {
	b := a.Bundle()
	if b == nil {
		return 0, errors.New(errors.CodeIncomplete, "workspace has not been analyzed")
	}
	rel := a.RelPath(path)
	f, ok := b.DB().FileByPath(rel)
	if !ok {
		return 0, errors.AddContext(errors.New(errors.CodeNotFound, "file is not part of the analysis"), errors.CtxPath, rel)
	}
	offset := 0
	for l := 1; l < line; l++ {
		next := bytes.IndexByte(f.Content[offset:], '\n')
		if next < 0 {
			offset = -1
			break
		}
		offset += next + 1
	}
	if line < 1 || column < 1 || offset < 0 {
		err := errors.New(errors.CodeValidationError, "position outside file")
		err = errors.AddContext(err, errors.CtxLine, line)
		return 0, errors.AddContext(err, errors.CtxColumn, column)
	}
	end := bytes.IndexByte(f.Content[offset:], '\n')
	if end < 0 {
		end = len(f.Content) - offset
	}
	if column-1 > end {
		err := errors.New(errors.CodeValidationError, "column past end of line")
		err = errors.AddContext(err, errors.CtxLine, line)
		return 0, errors.AddContext(err, errors.CtxColumn, column)
	}
	return offset + column - 1, nil
}
