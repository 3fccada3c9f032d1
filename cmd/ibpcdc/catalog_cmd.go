// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/config"
	"github.com/ManuGH/ibpcdc/internal/version"
	"github.com/spf13/cobra"
)

const flagFull = "full"

// addCatalogFlags registers the flags that locate the catalog database.
func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagDB, "", "catalog database path (default <dataDir>/"+config.CatalogFile+")")
	cmd.Flags().StringP(flagConfig, "c", "", "service configuration file (YAML)")
}

// openCatalog opens the database named by --db, or the one inside the data
// directory of the service configuration.
func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	path, _ := cmd.Flags().GetString(flagDB)
	if path == "" {
		configPath, _ := cmd.Flags().GetString(flagConfig)
		cfg, err := config.NewLoader(configPath, version.Version).Load()
		if err != nil {
			return nil, err
		}
		path = cfg.CatalogPath()
	}
	return catalog.Open(path)
}

// withCatalog wraps a catalog subcommand so the store is opened and closed
// around it.
func withCatalog(run func(cmd *cobra.Command, store *catalog.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return run(cmd, store, args)
	}
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the experiment catalog",
	}
	sub := []*cobra.Command{
		{
			Use:   "register <file>...",
			Short: "Validate specs and register them under their TAG",
			Args:  cobra.MinimumNArgs(1),
			RunE:  withCatalog(runCatalogRegister),
		},
		{
			Use:   "list",
			Short: "List registered specs",
			Args:  cobra.NoArgs,
			RunE:  withCatalog(runCatalogList),
		},
		{
			Use:   "show <tag>",
			Short: "Print a registered spec with its validation history",
			Args:  cobra.ExactArgs(1),
			RunE:  withCatalog(runCatalogShow),
		},
		{
			Use:     "rm <tag>",
			Aliases: []string{"delete"},
			Short:   "Remove a spec and its history from the catalog",
			Args:    cobra.ExactArgs(1),
			RunE:    withCatalog(runCatalogRemove),
		},
		{
			Use:   "verify",
			Short: "Run an integrity check on the catalog database",
			Args:  cobra.NoArgs,
			RunE:  withCatalog(runCatalogVerify),
		},
	}
	for _, c := range sub {
		addCatalogFlags(c)
		cmd.AddCommand(c)
	}
	sub[1].Flags().Bool(flagJSON, false, "print JSON")
	sub[4].Flags().Bool(flagFull, false, "run a full integrity check instead of the quick one")
	return cmd
}

func runCatalogRegister(cmd *cobra.Command, store *catalog.Store, args []string) error {
	ctx := cmd.Context()
	results, err := loadArgs(ctx, args)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if err := recordResult(ctx, store, r); err != nil {
			return err
		}
		if !r.OK() {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n", r.Path)
			printProblems(cmd.ErrOrStderr(), r.Err)
			continue
		}
		entry, err := store.Get(ctx, r.Spec.Tag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ registered %s (%s) %s\n", entry.Tag, entry.ID, entry.Checksum[:12])
	}
	if failed > 0 {
		return errFailed
	}
	return nil
}

func runCatalogList(cmd *cobra.Command, store *catalog.Store, _ []string) error {
	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool(flagJSON); asJSON {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		return writeJSON(cmd.OutOrStdout(), entries)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tARCHITECTURE\tCHECKSUM\tUPDATED\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Tag, e.Architecture, e.Checksum[:12], e.UpdatedAt.Format(time.RFC3339), filepath.Clean(e.Path))
	}
	return tw.Flush()
}

func runCatalogShow(cmd *cobra.Command, store *catalog.Store, args []string) error {
	ctx := cmd.Context()
	entry, err := store.Get(ctx, args[0])
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%s is not registered", args[0])
	}
	if err != nil {
		return err
	}
	history, err := store.Validations(ctx, entry.Tag)
	if err != nil {
		return err
	}
	if history == nil {
		history = []catalog.Validation{}
	}
	return writeJSON(cmd.OutOrStdout(), struct {
		catalog.Entry
		Validations []catalog.Validation `json:"validations"`
	}{entry, history})
}

func runCatalogRemove(cmd *cobra.Command, store *catalog.Store, args []string) error {
	err := store.Delete(cmd.Context(), args[0])
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%s is not registered", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ removed %s\n", args[0])
	return nil
}

func runCatalogVerify(cmd *cobra.Command, store *catalog.Store, _ []string) error {
	full, _ := cmd.Flags().GetBool(flagFull)
	problems, err := store.Verify(full)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", p)
		}
		return errFailed
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ catalog ok")
	return nil
}
