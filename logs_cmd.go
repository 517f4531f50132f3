package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/modaq-upload/internal/auditlog"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and ship the audit journal",
	}

	cmd.AddCommand(newLogsTailCmd())
	cmd.AddCommand(newLogsShipCmd())

	return cmd
}

func newLogsTailCmd() *cobra.Command {
	var (
		level     string
		category  string
		substring string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent audit journal records",
		Long: `Reads the partitioned JSONL journal filtered by level,
category, and/or a message substring, newest first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			filter := auditlog.QueryFilter{
				Level:     auditlog.Level(level),
				Category:  auditlog.Category(category),
				Substring: substring,
				Limit:     limit,
			}

			records, err := auditlog.Query(cc.Runtime.LogDir, filter)
			if err != nil {
				return fmt.Errorf("querying audit journal: %w", err)
			}

			return printLogRecords(cc, records)
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "filter by level (INFO, WARNING, ERROR)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category (upload, delete, scan, analysis, settings, sync, app)")
	cmd.Flags().StringVar(&substring, "contains", "", "filter by message substring")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to print")

	return cmd
}

func printLogRecords(cc *CLIContext, records []auditlog.Record) error {
	if cc.Flags.JSON {
		enc := json.NewEncoder(os.Stdout)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}

		return nil
	}

	if len(records) == 0 {
		return nil
	}

	headers := []string{"TIME", "LEVEL", "CATEGORY/EVENT", "MESSAGE"}
	rows := make([][]string, len(records))

	for i, rec := range records {
		rows[i] = []string{
			formatTime(rec.Timestamp),
			string(rec.Level),
			fmt.Sprintf("%s/%s", rec.Category, rec.Event),
			rec.Message,
		}
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

func newLogsShipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ship",
		Short: "Upload any journal or CSV files changed since the last ship",
		Long: `Walks the log directory's json/ and csv/ trees and uploads any file whose
size differs from the locally recorded ship-state to the object store
under logs/<relative path>. Normally triggered
automatically after every terminal job; this lets an operator force a
ship out of band.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			result, err := auditlog.Reconcile(cmd.Context(), cc.Runtime.LogDir, cc.Cfg.S3Bucket, cc.Runtime.Gateway, cc.Runtime.Cache)
			if err != nil {
				return fmt.Errorf("shipping logs: %w", err)
			}

			cc.Statusf("shipped %d files, skipped %d unchanged\n", result.Shipped, result.Skipped)

			return nil
		},
	}
}
