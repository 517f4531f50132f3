package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/config"
)

// janitorInterval is how often the daemon sweeps both engines for
// abandoned terminal jobs to evict from memory.
const janitorInterval = 5 * time.Minute

// janitorMaxAge bounds how long a terminal job stays queryable via
// "upload status"/"delete run" before the janitor reclaims it.
const janitorMaxAge = time.Hour

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run modaqd in the foreground as a long-lived process",
		Long: `Holds the PID file lock, runs periodic janitor sweeps over the upload
and delete engines, and reships any pending audit logs on SIGHUP —
without this, each CLI invocation builds and tears down its own
short-lived runtime.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context())
		},
	}

	cmd.AddCommand(newDaemonReloadCmd())

	return cmd
}

func newDaemonReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Nudge a running daemon to reship logs and sweep janitors",
		Long: `Sends SIGHUP to the daemon found via the PID file, without restarting it
or touching its held flock.`,
		Annotations: map[string]string{
			skipConfigAnnotation: "true",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendSIGHUP(config.DefaultPIDPath()); err != nil {
				return fmt.Errorf("reloading daemon: %w", err)
			}

			cc.Statusf("reload signal sent\n")

			return nil
		},
	}
}

func runDaemon(ctx context.Context) error {
	cc := mustCLIContext(ctx)
	rt := cc.Runtime

	pidPath := config.DefaultPIDPath()

	cleanup, err := writePIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	defer cleanup()

	cc.Statusf("modaqd daemon started (pid file %s)\n", pidPath)

	shutdown := shutdownContext(ctx, cc.Logger)
	hup := sighupChannel()

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-shutdown.Done():
			cc.Statusf("modaqd daemon shutting down\n")
			return nil

		case <-ticker.C:
			runJanitorSweep(rt, cc.Logger)

		case <-hup:
			cc.Logger.Info("SIGHUP received, reshipping logs and reconciling janitors")
			runJanitorSweep(rt, cc.Logger)
			rt.shipLogs(cc.Logger)
		}
	}
}

func runJanitorSweep(rt *Runtime, logger *slog.Logger) {
	uploadEvicted := rt.Upload.Janitor(janitorMaxAge)
	deleteEvicted := rt.Delete.Janitor(janitorMaxAge)

	logger.Debug("janitor sweep complete",
		slog.Int("upload_jobs_evicted", uploadEvicted),
		slog.Int("delete_jobs_evicted", deleteEvicted),
	)
}
