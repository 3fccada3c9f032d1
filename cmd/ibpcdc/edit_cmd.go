// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/spf13/cobra"
)

const flagWrite = "write"

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Show the keys that differ between two specs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := specs.Load(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			b, err := specs.Load(args[1])
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			changes := specs.Diff(a, b)
			if asJSON, _ := cmd.Flags().GetBool(flagJSON); asJSON {
				if changes == nil {
					changes = []specs.Change{}
				}
				return writeJSON(cmd.OutOrStdout(), changes)
			}

			out := cmd.OutOrStdout()
			if len(changes) == 0 {
				fmt.Fprintln(out, "no differences")
				return nil
			}
			for _, c := range changes {
				fmt.Fprintf(out, "%s: %s -> %s\n", c.Path, renderValue(c.Old), renderValue(c.New))
			}
			return nil
		},
	}
	cmd.Flags().Bool(flagJSON, false, "print JSON")
	return cmd
}

func renderValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func newFmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a spec in canonical key order and indentation",
		Long: `Prints the canonical form of a spec. With -w the file is replaced atomically
when its content differs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			spec, err := specs.Load(path)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n", path)
				printProblems(cmd.ErrOrStderr(), err)
				return errFailed
			}
			format, err := specs.FormatForPath(path)
			if err != nil {
				return err
			}
			canonical, err := specs.Marshal(spec, format)
			if err != nil {
				return err
			}

			write, _ := cmd.Flags().GetBool(flagWrite)
			if !write {
				_, err := cmd.OutOrStdout().Write(canonical)
				return err
			}

			current, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if bytes.Equal(current, canonical) {
				return nil
			}
			if err := specs.Save(path, spec); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolP(flagWrite, "w", false, "write the result back to the file")
	return cmd
}
