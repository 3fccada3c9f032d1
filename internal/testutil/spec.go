package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// SpecDoc returns a complete, valid training spec as a generic document that
// tests can mutate before writing it out with WriteSpecDoc.
func SpecDoc(tag string) map[string]any {
	return map[string]any{
		"TAG":               tag,
		"Description":       "test record",
		"DataSource":        "data/INTE",
		"TrainSplit":        "splits/train.json",
		"TestSplit":         "splits/test.json",
		"ParaSaveDir":       "model_paras",
		"TensorboardLogDir": "tensorboard_logs",
		"Device":            0,
		"PcdPointNum":       2048,
		"TrainOptions": map[string]any{
			"NumEpochs":         100,
			"BatchSize":         32,
			"DataLoaderThreads": 4,
			"PreTrain":          false,
			"PreTrainModel":     "",
			"ContinueTrain":     false,
			"ContinueFromEpoch": 0,
			"LearningRateOptions": map[string]any{
				"LRScheduler":      "StepLR",
				"InitLearningRate": 0.001,
				"StepSize":         10,
				"Gamma":            0.5,
			},
		},
		"IBSALossOptions": lossDoc(0, 0.1),
		"MADSLossOptions": lossDoc(5, 0.05),
		"MADILossOptions": lossDoc(10, 0.05),
		"LogOptions": map[string]any{
			"TAG":         tag,
			"Type":        "train",
			"LogDir":      "logs",
			"Mode":        "a",
			"GlobalLevel": "INFO",
			"FileLevel":   "INFO",
			"StreamLevel": "INFO",
		},
	}
}

func lossDoc(begin int, ratio float64) map[string]any {
	return map[string]any{
		"BeginEpoch": begin,
		"InitRatio":  ratio,
		"StepSize":   10,
		"Gamma":      0.5,
	}
}

// WriteSpecDoc writes doc as indented JSON to dir/name and returns the path.
func WriteSpecDoc(t *testing.T, dir, name string, doc map[string]any) string {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		t.Fatalf("marshal spec doc: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write spec doc: %v", err)
	}
	return path
}

// Section returns the nested object at key, failing the test if absent.
func Section(t *testing.T, doc map[string]any, key string) map[string]any {
	t.Helper()
	m, ok := doc[key].(map[string]any)
	if !ok {
		t.Fatalf("spec doc has no object %q", key)
	}
	return m
}
