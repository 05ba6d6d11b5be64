package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pyrefactor/internal/core/app"
	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/engine/pipeline"
	"pyrefactor/internal/engine/rename"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze [PATH...]",
		Short: "Analyze the workspace and report failures",
		Long: `Analyze scans the workspace roots (or the given paths), runs every
analysis pass and prints a summary. The exit code is 1 when any file
failed to parse, since renames are refused on incomplete workspaces.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "text", "sarif"); err != nil {
				return err
			}
			if err := e.withRoots(args); err != nil {
				return err
			}
			start := time.Now()
			b, err := e.app.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			if format == "sarif" {
				err = e.renderSARIF(b)
			} else {
				err = e.renderBundle(b, time.Since(start))
			}
			if err != nil {
				return err
			}
			if !b.IsComplete() {
				return exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or sarif")
	return cmd
}

func newLocateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "locate FILE:OFFSET|FILE:LINE:COL",
		Short: "Show the symbol under a cursor position",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, offset, err := e.analyzeAt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			sym, err := e.app.Locate(path, offset)
			if err != nil {
				return err
			}
			return e.renderSymbol(*sym)
		},
	}
}

func newImpactCmd(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "impact FILE:OFFSET|FILE:LINE:COL",
		Short: "List every site a rename of the symbol would touch",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "text", "markdown"); err != nil {
				return err
			}
			path, offset, err := e.analyzeAt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			r, err := e.app.Impact(path, offset)
			if err != nil {
				return err
			}
			if format == "markdown" {
				return e.renderMarkdown(r)
			}
			return e.renderReport(r)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or markdown")
	return cmd
}

func newRenameCmd(e *env) *cobra.Command {
	var opts app.RenameOptions
	cmd := &cobra.Command{
		Use:   "rename FILE:OFFSET|FILE:LINE:COL NEW_NAME",
		Short: "Rename a symbol across the workspace",
		Long: `Rename computes every edit needed to rename the symbol under the cursor.
Without --write nothing is changed on disk. With --write either every
touched file is rewritten or none is.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, offset, err := e.analyzeAt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := e.app.Rename(cmd.Context(), rename.Request{Path: path, Offset: offset, NewName: args[1]}, opts)
			if err != nil {
				return err
			}
			return e.renderRename(res, args[1])
		},
	}
	cmd.Flags().BoolVar(&opts.Write, "write", false, "Apply the edits to the files on disk")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "Print a unified diff of the edits")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the analysis into a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.app.Analyze(cmd.Context())
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = e.cfg.DB.Path
			}
			if dbPath == "" {
				return usageError{fmt.Errorf("no database path: pass --db or set db.path")}
			}
			if err := e.app.Export(cmd.Context(), dbPath); err != nil {
				return err
			}
			return e.renderExport(b, dbPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to write (defaults to db.path)")
	return cmd
}

func newWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze the workspace whenever sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, err := e.app.Analyze(ctx)
			if err != nil {
				return err
			}
			if err := e.renderBundle(b, 0); err != nil {
				return err
			}

			if addr := e.cfg.Metrics.Address; addr != "" {
				srv := NewObservabilityServer(addr, app.NewHealthService(e.app))
				if err := srv.Start(ctx); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Stop(shutdownCtx)
				}()
			}

			return e.app.Watch(ctx, func(b *pipeline.Bundle) {
				_ = e.renderBundle(b, 0)
			})
		},
	}
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return usageError{fmt.Errorf("unknown format %q (want one of %s)", format, strings.Join(allowed, ", "))}
}

// analyzeAt analyzes the workspace and resolves a cursor argument.
func (e *env) analyzeAt(ctx context.Context, location string) (string, int, error) {
	path, nums, err := parseLocation(location)
	if err != nil {
		return "", 0, err
	}
	if _, err := e.app.Analyze(ctx); err != nil {
		return "", 0, err
	}
	if len(nums) == 1 {
		return path, nums[0], nil
	}
	offset, err := e.app.OffsetAt(path, nums[0], nums[1])
	return path, offset, err
}

// parseLocation splits FILE:OFFSET or FILE:LINE:COL.
func parseLocation(s string) (string, []int, error) {
	parts := strings.Split(s, ":")
	var nums []int
	for len(parts) > 1 && len(nums) < 2 {
		n, err := strconv.Atoi(parts[len(parts)-1])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		parts = parts[:len(parts)-1]
	}
	path := strings.Join(parts, ":")
	if path == "" || len(nums) == 0 {
		err := errors.Newf(errors.CodeValidationError, "location %q must be FILE:OFFSET or FILE:LINE:COL", s)
		return "", nil, usageError{err}
	}
	return path, nums, nil
}
