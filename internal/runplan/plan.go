// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package runplan derives the on-disk layout and epoch range of a training run
// from its spec, and checks that layout against the filesystem before a run.
package runplan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ManuGH/ibpcdc/internal/schedule"
	"github.com/ManuGH/ibpcdc/internal/specs"
)

// ErrNoCheckpoint is returned when a checkpoint directory holds no epoch files.
var ErrNoCheckpoint = errors.New("no checkpoint found")

var checkpointName = regexp.MustCompile(`^epoch_(\d+)\.pth$`)

// Plan is the resolved layout of one run.
type Plan struct {
	Tag              string             `json:"tag"`
	Architecture     specs.Architecture `json:"architecture"`
	FirstEpoch       int                `json:"first_epoch"`
	LastEpoch        int                `json:"last_epoch"`
	CheckpointDir    string             `json:"checkpoint_dir"`
	TensorboardDir   string             `json:"tensorboard_dir"`
	LogFile          string             `json:"log_file"`
	ResumeCheckpoint string             `json:"resume_checkpoint,omitempty"`
	PretrainModel    string             `json:"pretrain_model,omitempty"`
	Losses           []Loss             `json:"losses"`
}

// Loss describes how one auxiliary loss term enters the run.
type Loss struct {
	Term       specs.LossTerm `json:"term"`
	BeginEpoch int            `json:"begin_epoch"`
	InitRatio  float64        `json:"init_ratio"`
	// ActiveAtStart is true when the term already weighs in at FirstEpoch.
	ActiveAtStart bool `json:"active_at_start"`
}

// Status is "active", "pending" for a term that joins later, or "disabled"
// for a zero ratio.
func (l Loss) Status() string {
	switch {
	case l.ActiveAtStart:
		return "active"
	case l.InitRatio > 0:
		return "pending"
	default:
		return "disabled"
	}
}

// New resolves the run layout of a spec.
func New(s specs.Spec) Plan {
	checkpointDir := filepath.Join(s.ParaSaveDir, s.Tag)
	p := Plan{
		Tag:            s.Tag,
		Architecture:   s.Architecture(),
		FirstEpoch:     0,
		LastEpoch:      s.TrainOptions.NumEpochs,
		CheckpointDir:  checkpointDir,
		TensorboardDir: filepath.Join(s.TensorboardLogDir, s.Tag),
		LogFile:        LogFilePath(s.LogOptions),
	}
	if s.TrainOptions.ContinueTrain {
		p.FirstEpoch = s.TrainOptions.ContinueFromEpoch + 1
		p.ResumeCheckpoint = CheckpointPath(checkpointDir, s.TrainOptions.ContinueFromEpoch)
	}
	if s.TrainOptions.PreTrain {
		p.PretrainModel = s.TrainOptions.PreTrainModel
	}
	for _, term := range specs.LossTerms {
		opts, _ := s.LossOptions(term)
		p.Losses = append(p.Losses, Loss{
			Term:          term,
			BeginEpoch:    opts.BeginEpoch,
			InitRatio:     opts.InitRatio,
			ActiveAtStart: schedule.NewLossWeight(opts).Active(p.FirstEpoch),
		})
	}
	return p
}

// Epochs returns how many epochs the run executes.
func (p Plan) Epochs() int {
	if p.LastEpoch < p.FirstEpoch {
		return 0
	}
	return p.LastEpoch - p.FirstEpoch + 1
}

// CheckpointPath returns the checkpoint file the run writes after epoch.
func (p Plan) CheckpointPath(epoch int) string {
	return CheckpointPath(p.CheckpointDir, epoch)
}

// CheckpointPath joins dir with the checkpoint file name of epoch.
func CheckpointPath(dir string, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("epoch_%d.pth", epoch))
}

// LogFilePath returns the log file the training logger writes.
func LogFilePath(o specs.LogOptions) string {
	return filepath.Join(o.LogDir, o.Tag+".log")
}

// LatestCheckpoint returns the highest epoch checkpoint in dir.
func LatestCheckpoint(dir string) (epoch int, path string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, "", fmt.Errorf("%w in %s", ErrNoCheckpoint, dir)
		}
		return 0, "", fmt.Errorf("read checkpoint dir: %w", err)
	}
	best := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := checkpointName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	if best < 0 {
		return 0, "", fmt.Errorf("%w in %s", ErrNoCheckpoint, dir)
	}
	return best, CheckpointPath(dir, best), nil
}
