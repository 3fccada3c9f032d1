// SPDX-License-Identifier: MIT

package schedule

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/ManuGH/ibpcdc/internal/specs"
)

// Row is the scheduled state of one epoch.
type Row struct {
	Epoch        int     `json:"epoch"`
	LearningRate float64 `json:"learning_rate"`
	IBSA         float64 `json:"ibsa"`
	MADS         float64 `json:"mads"`
	MADI         float64 `json:"madi"`
}

// ErrRange is returned for an epoch range outside [0, NumEpochs].
var ErrRange = errors.New("schedule range")

// Schedules bundles every schedule of a spec.
type Schedules struct {
	LearningRate LearningRate
	Losses       map[specs.LossTerm]LossWeight
	NumEpochs    int
}

// FromSpec builds the schedules of a record.
func FromSpec(s specs.Spec) (Schedules, error) {
	if n := s.TrainOptions.NumEpochs; n > specs.MaxEpochs {
		return Schedules{}, fmt.Errorf("%w: NumEpochs %d exceeds %d", ErrRange, n, specs.MaxEpochs)
	}
	lr, err := NewLearningRate(s.TrainOptions.LearningRateOptions)
	if err != nil {
		return Schedules{}, err
	}
	losses := make(map[specs.LossTerm]LossWeight, len(specs.LossTerms))
	for _, term := range specs.LossTerms {
		opts, _ := s.LossOptions(term)
		losses[term] = NewLossWeight(opts)
	}
	return Schedules{
		LearningRate: lr,
		Losses:       losses,
		NumEpochs:    s.TrainOptions.NumEpochs,
	}, nil
}

// Row evaluates every schedule at epoch.
func (s Schedules) Row(epoch int) Row {
	return Row{
		Epoch:        epoch,
		LearningRate: s.LearningRate.At(epoch),
		IBSA:         s.Losses[specs.LossIBSA].At(epoch),
		MADS:         s.Losses[specs.LossMADS].At(epoch),
		MADI:         s.Losses[specs.LossMADI].At(epoch),
	}
}

// Table evaluates the schedules of a spec for the inclusive epoch range,
// which must lie within [0, NumEpochs].
func Table(s specs.Spec, from, to int) ([]Row, error) {
	if from < 0 {
		return nil, fmt.Errorf("%w: from must be >= 0, got %d", ErrRange, from)
	}
	if from > to {
		return nil, fmt.Errorf("%w: from (%d) is after to (%d)", ErrRange, from, to)
	}
	sched, err := FromSpec(s)
	if err != nil {
		return nil, err
	}
	if to > sched.NumEpochs {
		return nil, fmt.Errorf("%w: to (%d) is past NumEpochs (%d)", ErrRange, to, sched.NumEpochs)
	}
	rows := make([]Row, 0, to-from+1)
	for e := from; e <= to; e++ {
		rows = append(rows, sched.Row(e))
	}
	return rows, nil
}

// Milestones returns the epochs in [0, NumEpochs] at which any scheduled value
// differs from the previous epoch. Epoch 0 is always included.
func Milestones(s specs.Spec) ([]int, error) {
	sched, err := FromSpec(s)
	if err != nil {
		return nil, err
	}
	set := map[int]struct{}{0: {}}
	prev := sched.Row(0)
	for e := 1; e <= sched.NumEpochs; e++ {
		cur := sched.Row(e)
		if cur.LearningRate != prev.LearningRate || cur.IBSA != prev.IBSA ||
			cur.MADS != prev.MADS || cur.MADI != prev.MADI {
			set[e] = struct{}{}
		}
		prev = cur
	}
	out := make([]int, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Ints(out)
	return out, nil
}

// WriteTable renders rows as an aligned text table.
func WriteTable(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "EPOCH\tLR\tIBSA\tMADS\tMADI"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%d\t%.6g\t%.6g\t%.6g\t%.6g\n", r.Epoch, r.LearningRate, r.IBSA, r.MADS, r.MADI); err != nil {
			return err
		}
	}
	return tw.Flush()
}
