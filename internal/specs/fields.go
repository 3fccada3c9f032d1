// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the JSON value type expected for a field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindObject Kind = "object"
)

// Field describes one key of the record schema.
type Field struct {
	Path        string // dotted key path as written in the file (e.g. "TrainOptions.BatchSize")
	Kind        Kind
	Required    bool
	Description string
}

// Registry is the inventory of schema keys.
type Registry struct {
	ByPath map[string]Field
	order  []string
}

var (
	globalRegistry    *Registry
	globalRegistryErr error
	registryOnce      sync.Once
)

// GetRegistry returns the schema registry.
// It returns an error if the registry contains duplicates or orphaned keys.
func GetRegistry() (*Registry, error) {
	registryOnce.Do(func() {
		globalRegistry, globalRegistryErr = buildRegistry(schemaFields())
	})
	return globalRegistry, globalRegistryErr
}

// Fields returns the schema keys in document order.
func Fields() []Field {
	r, err := GetRegistry()
	if err != nil {
		return nil
	}
	out := make([]Field, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.ByPath[p])
	}
	return out
}

func lossFields(prefix, name string) []Field {
	return []Field{
		{Path: prefix, Kind: KindObject, Required: true, Description: name + " loss weighting schedule"},
		{Path: prefix + ".BeginEpoch", Kind: KindInt, Required: true, Description: "first epoch the " + name + " term is weighted; weight is 0 before it"},
		{Path: prefix + ".InitRatio", Kind: KindFloat, Required: true, Description: "weight of the " + name + " term at BeginEpoch"},
		{Path: prefix + ".StepSize", Kind: KindInt, Required: true, Description: "epochs between two " + name + " weight decays"},
		{Path: prefix + ".Gamma", Kind: KindFloat, Required: true, Description: "multiplicative " + name + " weight decay, in (0, 1]"},
	}
}

func schemaFields() []Field {
	fields := []Field{
		{Path: "TAG", Kind: KindString, Required: true, Description: "experiment identifier; names checkpoint and TensorBoard subdirectories"},
		{Path: "Description", Kind: KindString, Description: "free-text description"},
		{Path: "DataSource", Kind: KindString, Required: true, Description: "dataset root directory"},
		{Path: "TrainSplit", Kind: KindString, Required: true, Description: "train split manifest (JSON)"},
		{Path: "TestSplit", Kind: KindString, Required: true, Description: "test split manifest (JSON)"},
		{Path: "ParaSaveDir", Kind: KindString, Required: true, Description: "checkpoint root; checkpoints go to ParaSaveDir/TAG/epoch_N.pth"},
		{Path: "TensorboardLogDir", Kind: KindString, Required: true, Description: "TensorBoard root; the writer uses TensorboardLogDir/TAG"},
		{Path: "Device", Kind: KindInt, Required: true, Description: "CUDA device index"},
		{Path: "PcdPointNum", Kind: KindInt, Required: true, Description: "points per point cloud"},

		{Path: "TrainOptions", Kind: KindObject, Required: true, Description: "training schedule"},
		{Path: "TrainOptions.NumEpochs", Kind: KindInt, Required: true, Description: "last epoch to train (inclusive)"},
		{Path: "TrainOptions.BatchSize", Kind: KindInt, Required: true, Description: "samples per batch"},
		{Path: "TrainOptions.DataLoaderThreads", Kind: KindInt, Required: true, Description: "data loader worker count"},
		{Path: "TrainOptions.PreTrain", Kind: KindBool, Required: true, Description: "initialise weights from PreTrainModel"},
		{Path: "TrainOptions.PreTrainModel", Kind: KindString, Description: "pretrained weights path, required when PreTrain is set"},
		{Path: "TrainOptions.ContinueTrain", Kind: KindBool, Required: true, Description: "resume from a saved checkpoint"},
		{Path: "TrainOptions.ContinueFromEpoch", Kind: KindInt, Required: true, Description: "epoch of the checkpoint to resume from"},
		{Path: "TrainOptions.LearningRateOptions", Kind: KindObject, Required: true, Description: "learning-rate schedule"},
		{Path: "TrainOptions.LearningRateOptions.LRScheduler", Kind: KindString, Required: true, Description: "scheduler kind: " + strings.Join(SchedulerKinds, ", ")},
		{Path: "TrainOptions.LearningRateOptions.InitLearningRate", Kind: KindFloat, Required: true, Description: "learning rate at epoch 0"},
		{Path: "TrainOptions.LearningRateOptions.StepSize", Kind: KindInt, Required: true, Description: "epochs between decays (StepLR)"},
		{Path: "TrainOptions.LearningRateOptions.Gamma", Kind: KindFloat, Required: true, Description: "multiplicative decay, in (0, 1]"},
	}
	fields = append(fields, lossFields("IBSALossOptions", "IBSA")...)
	fields = append(fields, lossFields("MADSLossOptions", "MADS")...)
	fields = append(fields, lossFields("MADILossOptions", "MADI")...)
	fields = append(fields,
		Field{Path: "LogOptions", Kind: KindObject, Required: true, Description: "training logger"},
		Field{Path: "LogOptions.TAG", Kind: KindString, Required: true, Description: "logger name; the log file is LogDir/TAG.log"},
		Field{Path: "LogOptions.Type", Kind: KindString, Required: true, Description: "log type: train or test"},
		Field{Path: "LogOptions.LogDir", Kind: KindString, Required: true, Description: "log directory"},
		Field{Path: "LogOptions.Mode", Kind: KindString, Description: "file mode: a (append, default) or w (truncate)"},
		Field{Path: "LogOptions.GlobalLevel", Kind: KindString, Description: "logger level (default INFO)"},
		Field{Path: "LogOptions.FileLevel", Kind: KindString, Description: "file sink level (default INFO)"},
		Field{Path: "LogOptions.StreamLevel", Kind: KindString, Description: "console sink level (default INFO)"},
	)
	return fields
}

func buildRegistry(fields []Field) (*Registry, error) {
	r := &Registry{ByPath: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if _, dup := r.ByPath[f.Path]; dup {
			return nil, fmt.Errorf("duplicate schema path %q", f.Path)
		}
		if parent := parentPath(f.Path); parent != "" {
			pf, ok := r.ByPath[parent]
			if !ok || pf.Kind != KindObject {
				return nil, fmt.Errorf("schema path %q has no object parent %q", f.Path, parent)
			}
		}
		r.ByPath[f.Path] = f
		r.order = append(r.order, f.Path)
	}
	return r, nil
}

// Children returns the direct child keys of an object path ("" for the root), sorted.
func (r *Registry) Children(path string) []string {
	var out []string
	for _, p := range r.order {
		if parentPath(p) == path {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func parentPath(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i]
	}
	return ""
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
