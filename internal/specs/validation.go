// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package specs

import (
	"fmt"

	"github.com/ManuGH/ibpcdc/internal/metrics"
	"github.com/ManuGH/ibpcdc/internal/validate"
)

// Validate checks the business rules of a decoded record.
// Every violation is reported with its dotted key path.
func Validate(s Spec) error {
	v := validate.New()

	v.NotEmpty("TAG", s.Tag)
	v.PathSegment("TAG", s.Tag)
	v.NotEmpty("DataSource", s.DataSource)
	v.NotEmpty("TrainSplit", s.TrainSplit)
	v.NotEmpty("TestSplit", s.TestSplit)
	v.NotEmpty("ParaSaveDir", s.ParaSaveDir)
	v.NotEmpty("TensorboardLogDir", s.TensorboardLogDir)
	v.NonNegative("Device", s.Device)
	v.Positive("PcdPointNum", s.PcdPointNum)

	validateTrainOptions(v, s.TrainOptions)

	validateLossOptions(v, "IBSALossOptions", s.IBSALossOptions)
	validateLossOptions(v, "MADSLossOptions", s.MADSLossOptions)
	validateLossOptions(v, "MADILossOptions", s.MADILossOptions)

	validateLogOptions(v, s.LogOptions)

	if err := v.Err(); err != nil {
		metrics.IncSpecValidationError()
		return err
	}
	return nil
}

func validateTrainOptions(v *validate.Validator, o TrainOptions) {
	v.Range("TrainOptions.NumEpochs", o.NumEpochs, 1, MaxEpochs)
	v.Positive("TrainOptions.BatchSize", o.BatchSize)
	v.NonNegative("TrainOptions.DataLoaderThreads", o.DataLoaderThreads)
	v.NonNegative("TrainOptions.ContinueFromEpoch", o.ContinueFromEpoch)

	if o.PreTrain {
		v.NotEmpty("TrainOptions.PreTrainModel", o.PreTrainModel)
	}
	if o.ContinueTrain && o.NumEpochs > 0 && o.ContinueFromEpoch >= o.NumEpochs {
		v.AddError("TrainOptions.ContinueFromEpoch",
			fmt.Sprintf("must be below NumEpochs (%d) when ContinueTrain is set, got %d", o.NumEpochs, o.ContinueFromEpoch),
			o.ContinueFromEpoch)
	}

	lr := o.LearningRateOptions
	v.OneOf("TrainOptions.LearningRateOptions.LRScheduler", lr.LRScheduler, SchedulerKinds)
	v.PositiveFloat("TrainOptions.LearningRateOptions.InitLearningRate", lr.InitLearningRate)
	switch lr.LRScheduler {
	case SchedulerStep:
		v.Positive("TrainOptions.LearningRateOptions.StepSize", lr.StepSize)
		v.DecayFactor("TrainOptions.LearningRateOptions.Gamma", lr.Gamma)
	case SchedulerExponential:
		v.NonNegative("TrainOptions.LearningRateOptions.StepSize", lr.StepSize)
		v.DecayFactor("TrainOptions.LearningRateOptions.Gamma", lr.Gamma)
	}
}

func validateLossOptions(v *validate.Validator, prefix string, o LossWeightOptions) {
	v.NonNegative(prefix+".BeginEpoch", o.BeginEpoch)
	v.NonNegativeFloat(prefix+".InitRatio", o.InitRatio)
	v.Positive(prefix+".StepSize", o.StepSize)
	v.DecayFactor(prefix+".Gamma", o.Gamma)
}

func validateLogOptions(v *validate.Validator, o LogOptions) {
	v.NotEmpty("LogOptions.TAG", o.Tag)
	v.PathSegment("LogOptions.TAG", o.Tag)
	v.OneOf("LogOptions.Type", o.Type, []string{LogTypeTrain, LogTypeTest})
	v.NotEmpty("LogOptions.LogDir", o.LogDir)
	if o.Mode != "" {
		v.OneOf("LogOptions.Mode", o.Mode, []string{LogModeAppend, LogModeTruncate})
	}
	for _, lvl := range []struct{ field, value string }{
		{"LogOptions.GlobalLevel", o.GlobalLevel},
		{"LogOptions.FileLevel", o.FileLevel},
		{"LogOptions.StreamLevel", o.StreamLevel},
	} {
		if lvl.value != "" {
			v.OneOfFold(lvl.field, lvl.value, LogLevels)
		}
	}
}
