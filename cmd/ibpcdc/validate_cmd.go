// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/spf13/cobra"
)

const flagRecord = "record"

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [files|dirs...]",
		Short: "Validate training specs",
		Long: `Decodes every given spec strictly and checks the business rules.
Directories contribute every *.json, *.yaml and *.yml file they contain.
With --record, outcomes are written to the catalog and valid specs are registered.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runValidate,
	}
	cmd.Flags().Bool(flagRecord, false, "record outcomes in the catalog")
	addCatalogFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	results, err := loadArgs(ctx, args)
	if err != nil {
		return err
	}

	record, _ := cmd.Flags().GetBool(flagRecord)
	var store *catalog.Store
	if record {
		store, err = openCatalog(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	failed := 0
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(out, "✓ %s is valid (%s, %s)\n", r.Path, r.Spec.Tag, r.Spec.Architecture())
		} else {
			failed++
			fmt.Fprintf(errOut, "✗ %s\n", r.Path)
			printProblems(errOut, r.Err)
		}
		if store != nil {
			if err := recordResult(ctx, store, r); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		fmt.Fprintf(errOut, "%d of %d specs invalid\n", failed, len(results))
		return errFailed
	}
	return nil
}

// loadArgs expands directories and loads every spec concurrently in one
// batch, so duplicate TAGs are found across all arguments. A file named more
// than once is loaded once.
func loadArgs(ctx context.Context, args []string) ([]specs.Result, error) {
	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		key := filepath.Clean(p)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		paths = append(paths, p)
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		dirPaths, err := specs.ListDir(arg)
		if err != nil {
			return nil, err
		}
		for _, p := range dirPaths {
			add(p)
		}
	}
	return specs.LoadFiles(ctx, paths)
}

// recordResult stores the outcome of one file. Specs that failed before a TAG
// was known cannot be attributed and are skipped, as are duplicates, whose TAG
// belongs to the file that defined it first.
func recordResult(ctx context.Context, store *catalog.Store, r specs.Result) error {
	if r.OK() {
		if _, err := store.Register(ctx, catalog.Entry{Path: r.Path, Spec: r.Spec}); err != nil {
			return err
		}
		return store.RecordValidation(ctx, r.Spec.Tag, true, "")
	}
	if r.Spec.Tag == "" || errors.Is(r.Err, specs.ErrDuplicateTag) {
		return nil
	}
	if _, err := store.Get(ctx, r.Spec.Tag); err != nil {
		return nil
	}
	return store.RecordValidation(ctx, r.Spec.Tag, false, r.Err.Error())
}

func printProblems(w io.Writer, err error) {
	for _, p := range specs.Problems(err) {
		if p.Field == "" {
			fmt.Fprintf(w, "  %s\n", p.Message)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", p.Field, p.Message)
	}
}

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "List every spec key with its type and meaning",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := specs.GetRegistry(); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tTYPE\tREQUIRED\tDESCRIPTION")
			for _, f := range specs.Fields() {
				required := "no"
				if f.Required {
					required = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Path, f.Kind, required, f.Description)
			}
			return tw.Flush()
		},
	}
}
