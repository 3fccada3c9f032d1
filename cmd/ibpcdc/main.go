// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// ibpcdc inspects, plans and serves point-cloud completion training specs.
package main

import (
	"errors"
	"fmt"
	"os"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/version"
	"github.com/spf13/cobra"
)

// errFailed signals a command that already reported its findings.
var errFailed = errors.New("command failed")

const (
	flagConfig   = "config"
	flagDB       = "db"
	flagLogLevel = "log-level"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ibpcdc",
		Short:         "Training spec toolkit for point-cloud completion runs",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString(flagLogLevel)
			xglog.Configure(xglog.Config{
				Level:   level,
				Service: "ibpcdc",
				Version: version.Version,
			})
		},
	}
	root.PersistentFlags().String(flagLogLevel, "warn", "log level for diagnostics (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(),
		newExplainCmd(),
		newScheduleCmd(),
		newPlanCmd(),
		newPrepareCmd(),
		newDiffCmd(),
		newFmtCmd(),
		newAnalyzeCmd(),
		newSummaryCmd(),
		newCatalogCmd(),
		newServeCmd(),
	)
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
