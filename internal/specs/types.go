// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"strings"

	"github.com/ManuGH/ibpcdc/internal/validate"
)

// Spec is one training configuration record.
type Spec struct {
	Tag               string            `json:"TAG" yaml:"TAG"`
	Description       string            `json:"Description,omitempty" yaml:"Description,omitempty"`
	DataSource        string            `json:"DataSource" yaml:"DataSource"`
	TrainSplit        string            `json:"TrainSplit" yaml:"TrainSplit"`
	TestSplit         string            `json:"TestSplit" yaml:"TestSplit"`
	ParaSaveDir       string            `json:"ParaSaveDir" yaml:"ParaSaveDir"`
	TensorboardLogDir string            `json:"TensorboardLogDir" yaml:"TensorboardLogDir"`
	Device            int               `json:"Device" yaml:"Device"`
	PcdPointNum       int               `json:"PcdPointNum" yaml:"PcdPointNum"`
	TrainOptions      TrainOptions      `json:"TrainOptions" yaml:"TrainOptions"`
	IBSALossOptions   LossWeightOptions `json:"IBSALossOptions" yaml:"IBSALossOptions"`
	MADSLossOptions   LossWeightOptions `json:"MADSLossOptions" yaml:"MADSLossOptions"`
	MADILossOptions   LossWeightOptions `json:"MADILossOptions" yaml:"MADILossOptions"`
	LogOptions        LogOptions        `json:"LogOptions" yaml:"LogOptions"`
}

// TrainOptions holds the training schedule.
type TrainOptions struct {
	NumEpochs           int                 `json:"NumEpochs" yaml:"NumEpochs"`
	BatchSize           int                 `json:"BatchSize" yaml:"BatchSize"`
	DataLoaderThreads   int                 `json:"DataLoaderThreads" yaml:"DataLoaderThreads"`
	PreTrain            bool                `json:"PreTrain" yaml:"PreTrain"`
	PreTrainModel       string              `json:"PreTrainModel" yaml:"PreTrainModel"`
	ContinueTrain       bool                `json:"ContinueTrain" yaml:"ContinueTrain"`
	ContinueFromEpoch   int                 `json:"ContinueFromEpoch" yaml:"ContinueFromEpoch"`
	LearningRateOptions LearningRateOptions `json:"LearningRateOptions" yaml:"LearningRateOptions"`
}

// LearningRateOptions configures the optimizer learning-rate schedule.
type LearningRateOptions struct {
	LRScheduler      string  `json:"LRScheduler" yaml:"LRScheduler"`
	InitLearningRate float64 `json:"InitLearningRate" yaml:"InitLearningRate"`
	StepSize         int     `json:"StepSize" yaml:"StepSize"`
	Gamma            float64 `json:"Gamma" yaml:"Gamma"`
}

// LossWeightOptions schedules the weight of one auxiliary loss term.
type LossWeightOptions struct {
	BeginEpoch int     `json:"BeginEpoch" yaml:"BeginEpoch"`
	InitRatio  float64 `json:"InitRatio" yaml:"InitRatio"`
	StepSize   int     `json:"StepSize" yaml:"StepSize"`
	Gamma      float64 `json:"Gamma" yaml:"Gamma"`
}

// LogOptions configures the training logger.
type LogOptions struct {
	Tag         string `json:"TAG" yaml:"TAG"`
	Type        string `json:"Type" yaml:"Type"`
	LogDir      string `json:"LogDir" yaml:"LogDir"`
	Mode        string `json:"Mode,omitempty" yaml:"Mode,omitempty"`
	GlobalLevel string `json:"GlobalLevel,omitempty" yaml:"GlobalLevel,omitempty"`
	FileLevel   string `json:"FileLevel,omitempty" yaml:"FileLevel,omitempty"`
	StreamLevel string `json:"StreamLevel,omitempty" yaml:"StreamLevel,omitempty"`
}

// Learning-rate scheduler kinds.
const (
	SchedulerStep        = "StepLR"
	SchedulerExponential = "ExponentialLR"
	SchedulerConstant    = "ConstantLR"
)

// SchedulerKinds lists the accepted LRScheduler values.
var SchedulerKinds = []string{SchedulerStep, SchedulerExponential, SchedulerConstant}

// Log types and file modes.
const (
	LogTypeTrain = "train"
	LogTypeTest  = "test"

	LogModeAppend   = "a"
	LogModeTruncate = "w"

	DefaultLogLevel = "INFO"
)

// MaxEpochs bounds NumEpochs so a schedule table stays a reasonable size.
const MaxEpochs = 100000

// LogLevels lists the accepted level names for LogOptions.
var LogLevels = validate.TrainLogLevelNames

// LossTerm names one of the scheduled auxiliary losses.
type LossTerm string

const (
	LossIBSA LossTerm = "IBSA"
	LossMADS LossTerm = "MADS"
	LossMADI LossTerm = "MADI"
)

// LossTerms lists the scheduled losses in record order.
var LossTerms = []LossTerm{LossIBSA, LossMADS, LossMADI}

// LossOptions returns the weighting schedule of the named loss term.
func (s Spec) LossOptions(term LossTerm) (LossWeightOptions, bool) {
	switch term {
	case LossIBSA:
		return s.IBSALossOptions, true
	case LossMADS:
		return s.MADSLossOptions, true
	case LossMADI:
		return s.MADILossOptions, true
	default:
		return LossWeightOptions{}, false
	}
}

// FileMode returns the log file mode, defaulting to append.
func (o LogOptions) FileMode() string {
	if o.Mode == "" {
		return LogModeAppend
	}
	return o.Mode
}

// Levels returns the global, file and stream level names with defaults applied.
func (o LogOptions) Levels() (global, file, stream string) {
	pick := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return DefaultLogLevel
		}
		return strings.ToUpper(strings.TrimSpace(v))
	}
	return pick(o.GlobalLevel), pick(o.FileLevel), pick(o.StreamLevel)
}
