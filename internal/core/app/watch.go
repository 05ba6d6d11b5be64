package app

import (
	"context"
	"log/slog"
	"time"

	"pyrefactor/internal/core/watcher"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/shared/observability"
	"pyrefactor/internal/shared/util"
)

// Watch re-analyzes the workspace after every batch of source changes until
// ctx is done. Rebuilds are throttled by the configured rate; onRebuild, if
// set, receives each new bundle.
func (a *App) Watch(ctx context.Context, onRebuild func(*pipeline.Bundle)) error {
	limiter := util.NewLimiter(a.Config.Watch.RebuildRate, a.Config.Watch.RebuildBurst)
	changes := make(chan []string, 1)

	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files, func(paths []string) {
		select {
		case changes <- paths:
		default:
			// A queued rebuild rescans everything anyway.
			slog.Debug("rebuild already queued", "changed", len(paths))
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(a.roots); err != nil {
		return err
	}
	slog.Info("watching workspace", "roots", a.roots, "debounce", a.Config.Watch.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			if d := limiter.Delay(); d > 0 {
				slog.Debug("rebuild throttled", "delay", d)
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
			start := time.Now()
			b, err := a.Analyze(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("rebuild failed", "error", err)
				continue
			}
			observability.RebuildsTotal.Inc()
			slog.Info("workspace rebuilt",
				"changed", len(paths),
				"files", b.SuccessCount(),
				"failed", b.FailureCount(),
				"duration", time.Since(start),
				"heap_mb", util.HeapAllocMB(),
			)
			if onRebuild != nil {
				onRebuild(b)
			}
		}
	}
}
