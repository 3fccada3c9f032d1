// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runplan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace struct {
	root string
	spec specs.Spec
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	mk := func(rel string) string {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(p, 0750))
		return p
	}
	write := func(rel, content string) string {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0600))
		return p
	}

	spec := specs.Spec{
		Tag:               "PMPNet_INTE",
		DataSource:        mk("data/INTE"),
		TrainSplit:        write("splits/train.json", `{"INTE": {"scene0": ["a", "b", "c"], "scene1": ["d"]}}`),
		TestSplit:         write("splits/test.json", `{"INTE": {"scene2": ["e", "f"]}}`),
		ParaSaveDir:       filepath.Join(root, "model_paras"),
		TensorboardLogDir: filepath.Join(root, "tb"),
		PcdPointNum:       2048,
		TrainOptions:      specs.TrainOptions{NumEpochs: 10, BatchSize: 4},
		LogOptions:        specs.LogOptions{Tag: "PMPNet_INTE", Type: specs.LogTypeTrain, LogDir: mk("logs")},
	}
	return workspace{root: root, spec: spec}
}

func fieldsWith(rep Report, sev Severity) []string {
	var out []string
	for _, i := range rep.Issues {
		if i.Severity == sev {
			out = append(out, i.Field)
		}
	}
	return out
}

func TestInspect_FreshWorkspace(t *testing.T) {
	ws := newWorkspace(t)

	rep := Inspect(t.Context(), New(ws.spec), ws.spec)
	assert.True(t, rep.OK(), "issues: %+v", rep.Issues)
	assert.Equal(t, 4, rep.TrainItems)
	assert.Equal(t, 2, rep.TestItems)
	assert.Equal(t, []string{"ParaSaveDir", "TensorboardLogDir"}, fieldsWith(rep, SeverityWarning))
}

func TestInspect_MissingInputs(t *testing.T) {
	ws := newWorkspace(t)
	ws.spec.DataSource = filepath.Join(ws.root, "absent")
	ws.spec.TestSplit = filepath.Join(ws.root, "splits", "absent.json")
	ws.spec.TrainOptions.ContinueTrain = true
	ws.spec.TrainOptions.ContinueFromEpoch = 3
	ws.spec.TrainOptions.PreTrain = true
	ws.spec.TrainOptions.PreTrainModel = filepath.Join(ws.root, "pretrained.pth")

	rep := Inspect(t.Context(), New(ws.spec), ws.spec)
	assert.False(t, rep.OK())
	assert.Equal(t, []string{
		"DataSource",
		"TestSplit",
		"TrainOptions.ContinueFromEpoch",
		"TrainOptions.PreTrainModel",
	}, fieldsWith(rep, SeverityError))
}

func TestInspect_ResumeCheckpointPresent(t *testing.T) {
	ws := newWorkspace(t)
	ws.spec.TrainOptions.ContinueTrain = true
	ws.spec.TrainOptions.ContinueFromEpoch = 3
	p := New(ws.spec)
	require.NoError(t, os.MkdirAll(p.CheckpointDir, 0750))
	require.NoError(t, os.WriteFile(p.ResumeCheckpoint, nil, 0600))

	rep := Inspect(t.Context(), p, ws.spec)
	assert.True(t, rep.OK(), "issues: %+v", rep.Issues)
}

func TestInspect_WarnsAboutOverwrite(t *testing.T) {
	ws := newWorkspace(t)
	p := New(ws.spec)
	require.NoError(t, os.MkdirAll(p.CheckpointDir, 0750))
	require.NoError(t, os.WriteFile(p.CheckpointPath(7), nil, 0600))

	rep := Inspect(t.Context(), p, ws.spec)
	assert.True(t, rep.OK())
	assert.Contains(t, fieldsWith(rep, SeverityWarning), "TrainOptions.ContinueTrain")
}

func TestInspect_BrokenSplit(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.WriteFile(ws.spec.TrainSplit, []byte("{not json"), 0600))

	rep := Inspect(t.Context(), New(ws.spec), ws.spec)
	assert.False(t, rep.OK())
	assert.Equal(t, []string{"TrainSplit"}, fieldsWith(rep, SeverityError))
}

func TestCountSplit_Shapes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		content string
		want    int
	}{
		{`["a", "b"]`, 2},
		{`{"x": ["a"], "y": {"z": ["b", "c"]}}`, 3},
		{`{"x": [1, 2]}`, 0},
	}
	for i, tt := range tests {
		p := filepath.Join(dir, "split.json")
		require.NoError(t, os.WriteFile(p, []byte(tt.content), 0600))
		n, err := CountSplit(p)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, tt.want, n, "case %d", i)
	}
}
