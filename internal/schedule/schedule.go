// SPDX-License-Identifier: MIT

// Package schedule evaluates the per-epoch learning rate and loss weights a
// training spec prescribes.
package schedule

import (
	"errors"
	"fmt"
	"math"

	"github.com/ManuGH/ibpcdc/internal/specs"
)

// ErrUnknownScheduler is returned for an LRScheduler kind without an implementation.
var ErrUnknownScheduler = errors.New("unknown learning-rate scheduler")

// LearningRate yields the optimizer learning rate for an epoch.
type LearningRate interface {
	At(epoch int) float64
	Kind() string
}

// stepLR decays by Gamma every StepSize epochs.
type stepLR struct {
	init  float64
	step  int
	gamma float64
}

func (s stepLR) Kind() string { return specs.SchedulerStep }

func (s stepLR) At(epoch int) float64 {
	epoch = clampEpoch(epoch)
	if s.step <= 0 {
		return s.init
	}
	return s.init * math.Pow(s.gamma, float64(epoch/s.step))
}

// exponentialLR decays by Gamma every epoch.
type exponentialLR struct {
	init  float64
	gamma float64
}

func (s exponentialLR) Kind() string { return specs.SchedulerExponential }

func (s exponentialLR) At(epoch int) float64 {
	return s.init * math.Pow(s.gamma, float64(clampEpoch(epoch)))
}

type constantLR struct {
	init float64
}

func (s constantLR) Kind() string     { return specs.SchedulerConstant }
func (s constantLR) At(_ int) float64 { return s.init }

// NewLearningRate builds the schedule named by opts.LRScheduler.
func NewLearningRate(opts specs.LearningRateOptions) (LearningRate, error) {
	switch opts.LRScheduler {
	case specs.SchedulerStep:
		return stepLR{init: opts.InitLearningRate, step: opts.StepSize, gamma: opts.Gamma}, nil
	case specs.SchedulerExponential:
		return exponentialLR{init: opts.InitLearningRate, gamma: opts.Gamma}, nil
	case specs.SchedulerConstant:
		return constantLR{init: opts.InitLearningRate}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, opts.LRScheduler)
	}
}

// LossWeight yields the weight of one auxiliary loss term per epoch.
type LossWeight struct {
	opts specs.LossWeightOptions
}

// NewLossWeight wraps a loss weighting schedule.
func NewLossWeight(opts specs.LossWeightOptions) LossWeight {
	return LossWeight{opts: opts}
}

// At returns 0 before BeginEpoch, then InitRatio decayed by Gamma every StepSize epochs.
func (w LossWeight) At(epoch int) float64 {
	epoch = clampEpoch(epoch)
	if epoch < w.opts.BeginEpoch {
		return 0
	}
	if w.opts.StepSize <= 0 {
		return w.opts.InitRatio
	}
	steps := (epoch - w.opts.BeginEpoch) / w.opts.StepSize
	return w.opts.InitRatio * math.Pow(w.opts.Gamma, float64(steps))
}

// Active reports whether the term contributes at epoch.
func (w LossWeight) Active(epoch int) bool {
	return clampEpoch(epoch) >= w.opts.BeginEpoch && w.opts.InitRatio > 0
}

func clampEpoch(epoch int) int {
	if epoch < 0 {
		return 0
	}
	return epoch
}
