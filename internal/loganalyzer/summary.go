// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loganalyzer

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

var (
	epochLine = regexp.MustCompile(`epoch: (\d+), learning rate: (\S+)\s*$`)
	bestLine  = regexp.MustCompile(`current best epoch: (\d+), cd: (\S+)\s*$`)
	lossLine  = regexp.MustCompile(`(?:^|\s)((?:train|test)_\w+): (\S+)\s*$`)
)

// Epoch is what one epoch of a training log reported.
type Epoch struct {
	Epoch        int                `json:"epoch"`
	LearningRate float64            `json:"learning_rate"`
	Losses       map[string]float64 `json:"losses"`
}

// Summary is the parsed progress of a training log.
type Summary struct {
	Epochs    []Epoch `json:"epochs"`
	BestEpoch int     `json:"best_epoch"`
	BestCD    float64 `json:"best_cd"`
	HasBest   bool    `json:"has_best"`
}

// LossNames returns every loss name reported in the summary, sorted.
func (s Summary) LossNames() []string {
	set := map[string]struct{}{}
	for _, e := range s.Epochs {
		for name := range e.Losses {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summarize parses a training log. Loss lines before the first epoch header
// and values that do not parse as floats are skipped. A repeated epoch header (a
// resumed run) replaces the earlier entry.
func Summarize(r io.Reader) (Summary, error) {
	var (
		sum     Summary
		current = -1
		index   = map[int]int{}
	)
	err := eachLine(r, func(line string) {
		if m := bestLine.FindStringSubmatch(line); m != nil {
			epoch, err1 := strconv.Atoi(m[1])
			cd, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				sum.BestEpoch, sum.BestCD, sum.HasBest = epoch, cd, true
			}
			return
		}

		if m := epochLine.FindStringSubmatch(line); m != nil {
			epoch, err1 := strconv.Atoi(m[1])
			lr, err2 := strconv.ParseFloat(m[2], 64)
			if err1 != nil || err2 != nil {
				return
			}
			e := Epoch{Epoch: epoch, LearningRate: lr, Losses: map[string]float64{}}
			if i, ok := index[epoch]; ok {
				sum.Epochs[i] = e
				current = i
			} else {
				index[epoch] = len(sum.Epochs)
				current = len(sum.Epochs)
				sum.Epochs = append(sum.Epochs, e)
			}
			return
		}

		if current < 0 {
			return
		}
		if m := lossLine.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				return
			}
			sum.Epochs[current].Losses[m[1]] = v
		}
	})
	if err != nil {
		return Summary{}, fmt.Errorf("read log: %w", err)
	}
	return sum, nil
}

// WriteSummary renders a summary as an aligned table followed by the best
// epoch line.
func WriteSummary(w io.Writer, s Summary) error {
	names := s.LossNames()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := append([]string{"EPOCH", "LR"}, names...)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, e := range s.Epochs {
		cols := []string{strconv.Itoa(e.Epoch), strconv.FormatFloat(e.LearningRate, 'g', 6, 64)}
		for _, name := range names {
			v, ok := e.Losses[name]
			if !ok {
				cols = append(cols, "-")
				continue
			}
			cols = append(cols, strconv.FormatFloat(v, 'g', 6, 64))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if s.HasBest {
		_, err := fmt.Fprintf(w, "best epoch: %d, cd: %g\n", s.BestEpoch, s.BestCD)
		return err
	}
	return nil
}
