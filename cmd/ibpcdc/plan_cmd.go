// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/runplan"
	"github.com/ManuGH/ibpcdc/internal/schedule"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/trainlog"
	"github.com/spf13/cobra"
)

const (
	flagFrom       = "from"
	flagTo         = "to"
	flagMilestones = "milestones"
	flagCheck      = "check"
	flagJSON       = "json"
)

// loadSpec loads and validates one spec, printing its problems on failure.
func loadSpec(cmd *cobra.Command, path string) (specs.Spec, error) {
	spec, err := specs.LoadValidated(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s\n", path)
		printProblems(cmd.ErrOrStderr(), err)
		return specs.Spec{}, errFailed
	}
	return spec, nil
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <file>",
		Short: "Print the learning-rate and loss-weight schedule of a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(cmd, args[0])
			if err != nil {
				return err
			}

			from, _ := cmd.Flags().GetInt(flagFrom)
			to, _ := cmd.Flags().GetInt(flagTo)
			if !cmd.Flags().Changed(flagTo) {
				to = spec.TrainOptions.NumEpochs
			}

			var epochs []int
			if only, _ := cmd.Flags().GetBool(flagMilestones); only {
				if epochs, err = schedule.Milestones(spec); err != nil {
					return err
				}
			}

			rows, err := schedule.Table(spec, from, to)
			if err != nil {
				return err
			}
			if epochs != nil {
				rows = filterRows(rows, epochs)
			}

			if asJSON, _ := cmd.Flags().GetBool(flagJSON); asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return schedule.WriteTable(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().Int(flagFrom, 0, "first epoch")
	cmd.Flags().Int(flagTo, 0, "last epoch (default NumEpochs)")
	cmd.Flags().Bool(flagMilestones, false, "only print epochs where a value changes")
	cmd.Flags().Bool(flagJSON, false, "print JSON instead of a table")
	return cmd
}

func filterRows(rows []schedule.Row, epochs []int) []schedule.Row {
	keep := make(map[int]bool, len(epochs))
	for _, e := range epochs {
		keep[e] = true
	}
	out := rows[:0]
	for _, r := range rows {
		if keep[r.Epoch] {
			out = append(out, r)
		}
	}
	return out
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the run layout of a spec",
		Long: `Resolves checkpoint, tensorboard and log locations and the epoch range.
With --check, the inputs and outputs are inspected on disk and missing inputs fail the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(cmd, args[0])
			if err != nil {
				return err
			}
			plan := runplan.New(spec)
			asJSON, _ := cmd.Flags().GetBool(flagJSON)

			check, _ := cmd.Flags().GetBool(flagCheck)
			if !check {
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), plan)
				}
				writePlan(cmd.OutOrStdout(), plan)
				return nil
			}

			rep := runplan.Inspect(cmd.Context(), plan, spec)
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else {
				writePlan(cmd.OutOrStdout(), plan)
				writeReport(cmd.OutOrStdout(), rep)
			}
			if !rep.OK() {
				return errFailed
			}
			return nil
		},
	}
	cmd.Flags().Bool(flagCheck, false, "inspect inputs and outputs on disk")
	cmd.Flags().Bool(flagJSON, false, "print JSON")
	return cmd
}

func writePlan(w io.Writer, p runplan.Plan) {
	fmt.Fprintf(w, "tag:          %s (%s)\n", p.Tag, p.Architecture)
	fmt.Fprintf(w, "epochs:       %d..%d (%d)\n", p.FirstEpoch, p.LastEpoch, p.Epochs())
	fmt.Fprintf(w, "checkpoints:  %s\n", p.CheckpointDir)
	fmt.Fprintf(w, "tensorboard:  %s\n", p.TensorboardDir)
	fmt.Fprintf(w, "log file:     %s\n", p.LogFile)
	if p.ResumeCheckpoint != "" {
		fmt.Fprintf(w, "resume from:  %s\n", p.ResumeCheckpoint)
	}
	if p.PretrainModel != "" {
		fmt.Fprintf(w, "pretrained:   %s\n", p.PretrainModel)
	}
	for _, l := range p.Losses {
		fmt.Fprintf(w, "loss %-8s  %g from epoch %d (%s)\n", l.Term+":", l.InitRatio, l.BeginEpoch, l.Status())
	}
}

func writeReport(w io.Writer, rep runplan.Report) {
	fmt.Fprintf(w, "train items:  %d\n", rep.TrainItems)
	fmt.Fprintf(w, "test items:   %d\n", rep.TestItems)
	for _, i := range rep.Issues {
		fmt.Fprintf(w, "%s: %s: %s\n", strings.ToUpper(string(i.Severity)), i.Field, i.Message)
	}
	if rep.OK() {
		fmt.Fprintln(w, "✓ ready")
	}
}

func newPrepareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <file>",
		Short: "Create the output directories and open the training log of a run",
		Long: `Creates the checkpoint and tensorboard directories of a spec and opens its
training log with the configured mode and levels. The run header is written to
the log file and to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := loadSpec(cmd, args[0])
			if err != nil {
				return err
			}
			plan := runplan.New(spec)

			for _, dir := range []string{plan.CheckpointDir, plan.TensorboardDir} {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}

			logger, closer, err := trainlog.New(spec.LogOptions, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			logger.Info().Msgf("current network TAG: %s", spec.Tag)
			logger.Info().
				Str(xglog.FieldArchitecture, string(plan.Architecture)).
				Int("first_epoch", plan.FirstEpoch).
				Int("last_epoch", plan.LastEpoch).
				Msg("run prepared")
			if plan.ResumeCheckpoint != "" {
				logger.Info().Msgf("continue training from %s", plan.ResumeCheckpoint)
			}
			if plan.PretrainModel != "" {
				logger.Info().Msgf("load pretrained model from %s", plan.PretrainModel)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ prepared %s, logging to %s\n", spec.Tag, plan.LogFile)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
