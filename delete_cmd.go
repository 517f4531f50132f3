package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/deletejob"
)

func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Manage local-recording deletion jobs",
	}

	cmd.AddCommand(newDeleteScanCmd())
	cmd.AddCommand(newDeleteRunCmd())

	return cmd
}

func newDeleteScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <folder>",
		Short: "Find local recordings already durably uploaded and stage them for deletion",
		Long: `Walks folder recursively for .mcap files, keeping only those the dedup
cache already knows were uploaded. The result is a delete
job ready for "delete run"; scanning alone never removes anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			job, err := cc.Runtime.Delete.Scan(cmd.Context(), args[0], cc.Cfg.S3Bucket)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", args[0], err)
			}

			cc.Statusf("scan complete: %d candidates staged in job %s\n", len(job.Files), job.ID)

			return printDeleteJobSummary(cc, job)
		},
	}
}

func newDeleteRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Verify and delete the files staged by a prior scan",
		Long: `Runs the verify and unlink phases for a job produced by
"delete scan": each candidate is hashed, verified against the object
store (size always, MD5 too for single-part uploads), and only unlinked locally once
verification confirms the upload is durable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			job, err := cc.Runtime.Delete.Get(args[0])
			if err != nil {
				if errors.Is(err, deletejob.ErrJobNotFound) {
					return fmt.Errorf("delete job %s not found", args[0])
				}

				return err
			}

			if err := cc.Runtime.Delete.Run(cmd.Context(), job); err != nil {
				return fmt.Errorf("delete job %s: %w", args[0], err)
			}

			return printDeleteJobSummary(cc, job)
		},
	}
}

func printDeleteJobSummary(cc *CLIContext, job *deletejob.Job) error {
	snap := job.Snapshot()

	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(snap)
	}

	deleted, mismatched, failed := 0, 0, 0

	for _, f := range snap.Files {
		switch f.Status {
		case deletejob.FileStatusDeleted:
			deleted++
		case deletejob.FileStatusMismatch:
			mismatched++
		case deletejob.FileStatusFailed:
			failed++
		}
	}

	fmt.Printf("job %s: %s (%d files: %d deleted, %d mismatched, %d failed)\n",
		job.ID, snap.Status, len(snap.Files), deleted, mismatched, failed)

	if len(snap.Files) > 0 {
		printDeleteFileTable(os.Stdout, snap.Files)
	}

	return nil
}

// printDeleteFileTable renders one row per candidate (name, size, status,
// verification level, deletion time), reusing the same printTable/formatSize
// helpers the upload-side summary uses.
func printDeleteFileTable(w io.Writer, files []*deletejob.FileState) {
	headers := []string{"FILE", "SIZE", "STATUS", "VERIFIED", "DELETED"}
	rows := make([][]string, len(files))

	for i, f := range files {
		deletedAt := ""
		if !f.DeletedAt.IsZero() {
			deletedAt = formatTime(f.DeletedAt)
		}

		verified := string(f.VerifiedLevel)
		if verified == "" {
			verified = "-"
		}

		rows[i] = []string{
			f.Filename,
			formatSize(f.Size),
			string(f.Status),
			verified,
			deletedAt,
		}
	}

	printTable(w, headers, rows)
}
