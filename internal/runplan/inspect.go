// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runplan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	xglog "github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/validate"
)

// Severity grades a preflight issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one preflight finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
}

// Report is the preflight result of a plan.
type Report struct {
	Plan       Plan    `json:"plan"`
	TrainItems int     `json:"train_items"`
	TestItems  int     `json:"test_items"`
	Issues     []Issue `json:"issues"`
}

// OK reports whether the run can start.
func (r Report) OK() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Inspect checks the inputs and outputs of a plan against the filesystem.
// Missing inputs are errors. Output directories that do not exist yet are
// warnings; the trainer creates them.
func Inspect(ctx context.Context, p Plan, s specs.Spec) Report {
	logger := xglog.WithComponentFromContext(xglog.ContextWithTag(ctx, p.Tag), "runplan")
	rep := Report{Plan: p}

	inputs := validate.New()
	inputs.Directory("DataSource", s.DataSource, true)
	inputs.File("TrainSplit", s.TrainSplit)
	inputs.File("TestSplit", s.TestSplit)
	if p.ResumeCheckpoint != "" {
		inputs.File("TrainOptions.ContinueFromEpoch", p.ResumeCheckpoint)
	}
	if p.PretrainModel != "" {
		inputs.File("TrainOptions.PreTrainModel", p.PretrainModel)
	}
	for _, e := range inputs.Errors() {
		rep.Issues = append(rep.Issues, Issue{
			Severity: SeverityError,
			Field:    e.Field,
			Path:     fmt.Sprint(e.Value),
			Message:  e.Message,
		})
	}

	if n, err := countIfPresent(s.TrainSplit); err != nil {
		rep.Issues = append(rep.Issues, Issue{Severity: SeverityError, Field: "TrainSplit", Path: s.TrainSplit, Message: err.Error()})
	} else {
		rep.TrainItems = n
	}
	if n, err := countIfPresent(s.TestSplit); err != nil {
		rep.Issues = append(rep.Issues, Issue{Severity: SeverityError, Field: "TestSplit", Path: s.TestSplit, Message: err.Error()})
	} else {
		rep.TestItems = n
	}

	outputs := []struct{ field, dir string }{
		{"ParaSaveDir", p.CheckpointDir},
		{"TensorboardLogDir", p.TensorboardDir},
		{"LogOptions.LogDir", s.LogOptions.LogDir},
	}
	for _, o := range outputs {
		info, err := os.Stat(o.dir)
		switch {
		case err != nil && os.IsNotExist(err):
			rep.Issues = append(rep.Issues, Issue{Severity: SeverityWarning, Field: o.field, Path: o.dir, Message: "directory does not exist yet"})
		case err != nil:
			rep.Issues = append(rep.Issues, Issue{Severity: SeverityError, Field: o.field, Path: o.dir, Message: err.Error()})
		case !info.IsDir():
			rep.Issues = append(rep.Issues, Issue{Severity: SeverityError, Field: o.field, Path: o.dir, Message: "path is not a directory"})
		}
	}

	if !s.TrainOptions.ContinueTrain {
		if epoch, _, err := LatestCheckpoint(p.CheckpointDir); err == nil {
			rep.Issues = append(rep.Issues, Issue{
				Severity: SeverityWarning,
				Field:    "TrainOptions.ContinueTrain",
				Path:     p.CheckpointDir,
				Message:  fmt.Sprintf("checkpoints up to epoch %d exist and will be overwritten", epoch),
			})
		}
	}

	logger.Debug().
		Str(xglog.FieldEvent, "runplan.inspected").
		Int("issues", len(rep.Issues)).
		Bool("ok", rep.OK()).
		Msg("preflight finished")
	return rep
}

func countIfPresent(path string) (int, error) {
	if _, err := os.Stat(path); err != nil {
		// Reported by the input checks.
		return 0, nil
	}
	return CountSplit(path)
}

// CountSplit counts the instance entries of a split manifest: every string
// leaf of the nested JSON objects and arrays.
func CountSplit(path string) (int, error) {
	// #nosec G304 -- split manifests are named by the operator's spec
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read split: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse split: %w", err)
	}
	return countLeaves(doc), nil
}

func countLeaves(v any) int {
	switch t := v.(type) {
	case string:
		return 1
	case []any:
		n := 0
		for _, item := range t {
			n += countLeaves(item)
		}
		return n
	case map[string]any:
		n := 0
		for _, item := range t {
			n += countLeaves(item)
		}
		return n
	default:
		return 0
	}
}
