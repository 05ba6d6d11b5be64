package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pyrefactor/internal/core/app"
	"pyrefactor/internal/core/config"
	"pyrefactor/internal/core/errors"
	"pyrefactor/internal/shared/observability"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"

// exitError carries a process exit code through cobra without printing.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

type usageError struct {
	error
}

func (u usageError) Unwrap() error { return u.error }

func isUsageError(err error) bool {
	if _, ok := err.(usageError); ok {
		return true
	}
	return strings.HasPrefix(err.Error(), "unknown command")
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
	json       bool
}

// env is the state shared by every subcommand of one invocation.
type env struct {
	opts   rootOptions
	out    io.Writer
	errOut io.Writer
	cfg    *config.Config
	app    *app.App
	styles styles

	closeLogs     func()
	shutdownTrace func(context.Context) error
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	e := &env{out: out, errOut: errOut, styles: newStyles(out)}
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	e.teardown(ctx)
	if err == nil {
		return 0
	}
	if ee, ok := err.(exitError); ok {
		return ee.code
	}
	e.printError(err)
	if isUsageError(err) {
		return 2
	}
	return 1
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "pyrefactor",
		Short:         "Semantic analysis and safe renames for Python codebases",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd.Context())
		},
	}
	root.SetVersionTemplate("pyrefactor v{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })
	root.PersistentFlags().StringVar(&e.opts.configPath, "config", config.DefaultFile, "Path to config file")
	root.PersistentFlags().BoolVar(&e.opts.verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&e.opts.json, "json", false, "Print results as JSON")

	root.AddCommand(
		newAnalyzeCmd(e),
		newLocateCmd(e),
		newImpactCmd(e),
		newRenameCmd(e),
		newExportCmd(e),
		newWatchCmd(e),
	)
	return root
}

func (e *env) setup(ctx context.Context) error {
	cfg, err := config.LoadOrDefault(e.opts.configPath)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "load config")
	}
	e.cfg = cfg

	closeLogs, err := configureLogging(cfg.Log, e.opts.verbose, e.errOut)
	if err != nil {
		return err
	}
	e.closeLogs = closeLogs

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.Tracing.OTLPEndpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		e.shutdownTrace = shutdown
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	e.app = a
	return nil
}

func (e *env) teardown(ctx context.Context) {
	if e.shutdownTrace != nil {
		if err := e.shutdownTrace(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	if e.closeLogs != nil {
		e.closeLogs()
	}
}

// withRoots overrides the configured workspace roots from positional args.
func (e *env) withRoots(roots []string) error {
	if len(roots) == 0 {
		return nil
	}
	e.cfg.Workspace.Roots = roots
	a, err := app.New(e.cfg)
	if err != nil {
		return err
	}
	e.app = a
	return nil
}
