package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/streamhub"
	"github.com/tonimelisma/modaq-upload/internal/uploadjob"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Manage recording upload jobs",
	}

	cmd.AddCommand(newUploadAddCmd())
	cmd.AddCommand(newUploadWatchCmd())
	cmd.AddCommand(newUploadStatusCmd())
	cmd.AddCommand(newUploadCancelCmd())

	return cmd
}

func newUploadAddCmd() *cobra.Command {
	var (
		flagSkipDuplicates bool
		flagCacheOnly      bool
		flagPipeline       bool
	)

	cmd := &cobra.Command{
		Use:   "add <paths...>",
		Short: "Create an upload job from local recordings and run it to completion",
		Long: `Creates an upload job from the given recording paths, runs the pre-filter,
analysis, and upload phases, streaming progress to stdout as it goes.

By default analysis and upload run as two sequential phases; --pipeline
overlaps them for higher aggregate throughput.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUploadAdd(cmd.Context(), args, flagSkipDuplicates, flagCacheOnly, flagPipeline)
		},
	}

	cmd.Flags().BoolVar(&flagSkipDuplicates, "skip-duplicates", true, "skip files already known to exist in the store")
	cmd.Flags().BoolVar(&flagCacheOnly, "cache-only", false, "pre-filter using only the local cache, no store HEAD calls")
	cmd.Flags().BoolVar(&flagPipeline, "pipeline", false, "overlap analysis and upload")

	return cmd
}

func newUploadWatchCmd() *cobra.Command {
	var flagSkipDuplicates bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a folder and auto-upload new recordings as they appear",
		Long: `Watches dir (and its subdirectories) for new .mcap recordings. A file
that has gone quiet for a couple of seconds is considered fully written
and is run through the analyze-and-upload pipeline automatically. Runs
until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUploadWatch(cmd.Context(), args[0], flagSkipDuplicates)
		},
	}

	cmd.Flags().BoolVar(&flagSkipDuplicates, "skip-duplicates", true, "skip files already known to exist in the store")

	return cmd
}

func runUploadWatch(ctx context.Context, dir string, skipDuplicates bool) error {
	cc := mustCLIContext(ctx)
	rt := cc.Runtime

	watcher, err := newFsWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchesRecursive(watcher, dir, cc.Logger); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cc.Statusf("watching %s for new recordings\n", dir)

	flush := func(paths []string) {
		job, err := rt.Upload.Create(ctx, paths, cc.Cfg.S3Bucket, uploadjob.WithAutoUpload())
		if err != nil {
			cc.Logger.Warn("auto-upload job creation failed", slog.String("error", err.Error()))
			return
		}

		rt.Upload.EmitAutoUploadStarting(job, dir)
		cc.Statusf("auto-uploading %d recording(s) as job %s\n", len(job.Files), job.ID)

		if err := rt.Upload.AnalyzeAndUpload(ctx, job, skipDuplicates); err != nil {
			cc.Logger.Warn("auto-upload failed",
				slog.String("job_id", job.ID), slog.String("error", err.Error()))
			return
		}

		cc.Statusf("auto-upload job %s finished: %s\n", job.ID, job.Snapshot().Status)
	}

	return newFolderWatcher(cc.Logger).run(shutdownContext(ctx, cc.Logger), watcher, flush)
}

func runUploadAdd(ctx context.Context, paths []string, skipDuplicates, cacheOnly, pipeline bool) error {
	cc := mustCLIContext(ctx)
	rt := cc.Runtime

	opts := []uploadjob.JobCreateOption{}
	if cacheOnly {
		opts = append(opts, uploadjob.WithCacheOnlyPreFilter())
	}

	job, err := rt.Upload.Create(ctx, paths, cc.Cfg.S3Bucket, opts...)
	if err != nil {
		return fmt.Errorf("creating upload job: %w", err)
	}

	cc.Statusf("created upload job %s (%d files, %d to parse)\n", job.ID, len(job.Files), job.PreFilterStats.ToParse)

	events := rt.Hub.Subscribe(ctx, job.ID, uploadJobSnapshot(job))
	done := make(chan struct{})

	go streamUploadEvents(cc, events, done)

	if pipeline {
		err = rt.Upload.AnalyzeAndUpload(ctx, job, skipDuplicates)
	} else {
		if analyzeErr := rt.Upload.Analyze(ctx, job); analyzeErr != nil {
			err = analyzeErr
		} else {
			err = rt.Upload.Upload(ctx, job, skipDuplicates)
		}
	}

	<-done

	if err != nil {
		return fmt.Errorf("upload job %s: %w", job.ID, err)
	}

	return printJobSummary(cc, job.ID, job)
}

// uploadJobSnapshot builds the streamhub.JobSnapshot Subscribe emits on
// attach. A job that already reached a terminal status renders as a
// Terminal envelope, so a late subscriber returns promptly instead of
// polling a queue that will never produce one; everything else renders
// as an UploadProgress snapshot.
func uploadJobSnapshot(job *uploadjob.Job) streamhub.JobSnapshot {
	return func() (streamhub.Event, bool) {
		snap := job.Snapshot()

		if snap.Status.IsTerminal() {
			return streamhub.NewTerminal(job.ID, string(snap.Status), snap.CompletedAt), true
		}

		var uploaded, failed, skipped int
		var bytesUploaded, bytesTotal int64

		var files []streamhub.FileProgress

		for _, f := range snap.Files {
			bytesTotal += f.Size

			switch f.Status {
			case uploadjob.FileStatusCompleted:
				uploaded++
				bytesUploaded += f.Size
			case uploadjob.FileStatusFailed:
				failed++
			case uploadjob.FileStatusSkipped:
				skipped++
			case uploadjob.FileStatusUploading:
				bytesUploaded += f.BytesUploaded
				files = append(files, streamhub.FileProgress{
					Filename:      f.Filename,
					Status:        string(f.Status),
					BytesUploaded: f.BytesUploaded,
					TotalBytes:    f.Size,
				})
			}
		}

		return streamhub.NewUploadProgress(job.ID, string(snap.Status), len(snap.Files), uploaded, failed, skipped, bytesUploaded, bytesTotal, files), true
	}
}

// streamUploadEvents drains the hub's subscription channel, printing a
// compact line per event, until the channel closes on a terminal event.
func streamUploadEvents(cc *CLIContext, events <-chan streamhub.Event, done chan<- struct{}) {
	defer close(done)

	for event := range events {
		if cc.Flags.JSON {
			if line, err := json.Marshal(event); err == nil {
				fmt.Println(string(line))
			}

			continue
		}

		cc.Statusf("[%s] %T\n", event.JobID(), event)
	}
}

func newUploadStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of an upload job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			job, err := cc.Runtime.Upload.Get(args[0])
			if err != nil {
				if errors.Is(err, uploadjob.ErrJobNotFound) {
					return fmt.Errorf("upload job %s not found", args[0])
				}

				return err
			}

			return printJobSummary(cc, args[0], job)
		},
	}
}

func printJobSummary(cc *CLIContext, jobID string, job *uploadjob.Job) error {
	snap := job.Snapshot()

	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(snap)
	}

	completed, failed, skipped := 0, 0, 0

	for _, f := range snap.Files {
		switch f.Status {
		case uploadjob.FileStatusCompleted:
			completed++
		case uploadjob.FileStatusFailed:
			failed++
		case uploadjob.FileStatusSkipped:
			skipped++
		}
	}

	fmt.Printf("job %s: %s (%d files: %d completed, %d skipped, %d failed)\n",
		jobID, snap.Status, len(snap.Files), completed, skipped, failed)

	if len(snap.Files) > 0 {
		printUploadFileTable(os.Stdout, snap.Files)
	}

	return nil
}

// printUploadFileTable renders one row per file (name, size, status,
// bytes uploaded, completion time).
func printUploadFileTable(w io.Writer, files []*uploadjob.FileState) {
	headers := []string{"FILE", "SIZE", "STATUS", "UPLOADED", "COMPLETED"}
	rows := make([][]string, len(files))

	for i, f := range files {
		completed := ""
		if !f.UploadCompletedAt.IsZero() {
			completed = formatTime(f.UploadCompletedAt)
		}

		rows[i] = []string{
			f.Filename,
			formatSize(f.Size),
			string(f.Status),
			formatSize(f.BytesUploaded),
			completed,
		}
	}

	printTable(w, headers, rows)
}

func newUploadCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cooperatively cancel an upload job",
		Long: `Flips the job's cancel flag; in-flight uploads are allowed to finish
(cancellation is cooperative, never abortive).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			_, err := cc.Runtime.Upload.Cancel(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, uploadjob.ErrJobNotFound) {
					return fmt.Errorf("upload job %s not found", args[0])
				}

				return err
			}

			cc.Statusf("cancel requested for job %s\n", args[0])

			return nil
		},
	}
}
