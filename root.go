package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// CLIFlags bundles the persistent flags parsed for every invocation.
// Passed explicitly instead of read from package-level globals so
// buildLogger and loadRuntime are easy to exercise from tests.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Debug      bool
	Quiet      bool
}

// Global persistent flags, bound in newRootCmd() and copied into a
// CLIFlags value in PersistentPreRunE.
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that don't need a resolved bucket
// config and live runtime (cache db, S3 gateway) — currently "version"
// and "daemon reload". Commands annotated with this key skip the automatic config
// + runtime construction in PersistentPreRunE.
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles the resolved config, logger, and wired runtime.
// Created once in PersistentPreRunE; RunE handlers pull it via
// mustCLIContext/cliContextFrom instead of threading it through flags.
type CLIContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Flags   CLIFlags
	Runtime *Runtime // nil for commands with skipConfigAnnotation
}

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context.
// Returns nil if PersistentPreRunE has not populated it yet.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message. Use in RunE handlers for commands that require a runtime (no
// skipConfigAnnotation) — the command tree guarantees PersistentPreRunE
// has populated it by the time RunE executes.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — ensure the command " +
			"does not skip config loading (no skipConfigAnnotation) or " +
			"explicitly loads config in its RunE")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "modaqd",
		Short:   "Recording upload and delete pipeline",
		Long:    "modaqd analyzes, deduplicates, uploads, and safely deletes robotics recordings against a time-partitioned object store.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		// PersistentPreRunE builds config + runtime before every command.
		// Commands annotated with skipConfigAnnotation skip runtime
		// construction (e.g. "version" needs no bucket, no cache db).
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			cc := cliContextFrom(cmd.Context())
			if cc == nil || cc.Runtime == nil {
				return nil
			}

			return cc.Runtime.Close()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupCLIContext resolves flags into a CLIFlags value, builds a bootstrap
// logger, and — unless the command opts out via skipConfigAnnotation —
// loads config and wires a Runtime (dedup cache, store gateway, job
// engines, event hub, audit journal), stashing the result on the
// command's context for RunE handlers to retrieve.
func setupCLIContext(cmd *cobra.Command) error {
	flags := CLIFlags{
		ConfigPath: flagConfigPath,
		JSON:       flagJSON,
		Verbose:    flagVerbose,
		Debug:      flagDebug,
		Quiet:      flagQuiet,
	}

	logger := buildLogger(flags)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &CLIContext{Logger: logger, Flags: flags}))
		return nil
	}

	cfg, err := config.Load(flags.ConfigPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building runtime: %w", err)
	}

	cc := &CLIContext{Cfg: cfg, Logger: logger, Flags: flags, Runtime: rt}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved CLI
// flags. --verbose, --debug, and --quiet are mutually exclusive (enforced
// by Cobra); default level is Warn.
func buildLogger(flags CLIFlags) *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flags.Debug:
		level = slog.LevelDebug
	case flags.Verbose:
		level = slog.LevelInfo
	case flags.Quiet:
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
