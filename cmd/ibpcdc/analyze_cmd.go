// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ManuGH/ibpcdc/internal/loganalyzer"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

const (
	flagLogDir  = "log-dir"
	flagPattern = "pattern"
	flagOut     = "out"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Collect matching lines from every training log in a directory",
		Long: `Scans every *.log file in --log-dir and prints the lines matching --pattern,
grouped by file. The pattern is a regular expression anchored at the start of the line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString(flagLogDir)
			pattern, _ := cmd.Flags().GetString(flagPattern)
			outPath, _ := cmd.Flags().GetString(flagOut)

			results, err := loganalyzer.Scan(cmd.Context(), dir, pattern)
			if err != nil {
				return err
			}

			if outPath == "" {
				return loganalyzer.WriteReport(cmd.OutOrStdout(), results)
			}
			var buf bytes.Buffer
			if err := loganalyzer.WriteReport(&buf, results); err != nil {
				return err
			}
			if err := renameio.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d files matched, report written to %s\n", len(results), outPath)
			return nil
		},
	}
	cmd.Flags().String(flagLogDir, "log", "directory holding the training logs")
	cmd.Flags().String(flagPattern, "", "regular expression matched at the start of each line")
	cmd.Flags().String(flagOut, "", "write the report to this file instead of stdout")
	_ = cmd.MarkFlagRequired(flagPattern)
	return cmd
}

func newSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <logfile>",
		Short: "Tabulate per-epoch learning rate and losses of a training log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			sum, err := loganalyzer.Summarize(f)
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool(flagJSON); asJSON {
				return writeJSON(cmd.OutOrStdout(), sum)
			}
			return loganalyzer.WriteSummary(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().Bool(flagJSON, false, "print JSON")
	return cmd
}
