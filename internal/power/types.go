// Package power implements frequentist and Bayesian power and
// minimum-detectable-effect (MDE) calculations, the sequential-testing
// correction, the weekly power scheduler and the mid-experiment power
// re-estimator.
//
// Every function is pure: inputs are passed by value, nothing is cached, and
// failures are reported through the Type field of the returned result rather
// than as Go errors or panics.
package power

import "math"

// MetricType selects the moment formulas for a metric.
type MetricType string

const (
	MetricMean     MetricType = "mean"
	MetricBinomial MetricType = "binomial"
)

// EngineType selects the inference framework.
type EngineType string

const (
	EngineFrequentist EngineType = "frequentist"
	EngineBayesian    EngineType = "bayesian"
)

// ResultType discriminates success and error results.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultError   ResultType = "error"
)

// DefaultTargetPower is the power level used for runtime recommendations and
// for the per-week MDE.
const DefaultTargetPower = 0.8

// MetricParams describes one metric's distribution and prior assumptions.
type MetricParams struct {
	Type MetricType `json:"type" yaml:"type" validate:"required,oneof=mean binomial"`

	// mean metrics
	Mean              float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StandardDeviation float64 `json:"standardDeviation,omitempty" yaml:"standardDeviation,omitempty" validate:"gte=0"`

	// binomial metrics
	ConversionRate float64 `json:"conversionRate,omitempty" yaml:"conversionRate,omitempty" validate:"gte=0,lte=1"`

	// EffectSize is the relative lift under test, e.g. 0.05 for 5%.
	EffectSize float64 `json:"effectSize" yaml:"effectSize"`

	MetricProper                     bool    `json:"metricProper,omitempty" yaml:"metricProper,omitempty"`
	MetricPriorLiftMean              float64 `json:"metricPriorLiftMean,omitempty" yaml:"metricPriorLiftMean,omitempty"`
	MetricPriorLiftStandardDeviation float64 `json:"metricPriorLiftStandardDeviation,omitempty" yaml:"metricPriorLiftStandardDeviation,omitempty" validate:"gte=0"`

	OverrideMetricLevelSettings        bool    `json:"overrideMetricLevelSettings,omitempty" yaml:"overrideMetricLevelSettings,omitempty"`
	OverrideProper                     bool    `json:"overrideProper,omitempty" yaml:"overrideProper,omitempty"`
	OverridePriorLiftMean              float64 `json:"overridePriorLiftMean,omitempty" yaml:"overridePriorLiftMean,omitempty"`
	OverridePriorLiftStandardDeviation float64 `json:"overridePriorLiftStandardDeviation,omitempty" yaml:"overridePriorLiftStandardDeviation,omitempty" validate:"gte=0"`
}

// PriorParams is the effective prior on the relative lift.
type PriorParams struct {
	Proper                     bool
	PriorLiftMean              float64
	PriorLiftStandardDeviation float64
}

// MetricMean returns the sample mean (or conversion rate) of the metric.
func (m MetricParams) MetricMean() float64 {
	if m.Type == MetricMean {
		return m.Mean
	}
	return m.ConversionRate
}

// MetricVariance returns the per-unit variance of the metric.
func (m MetricParams) MetricVariance() float64 {
	if m.Type == MetricMean {
		return m.StandardDeviation * m.StandardDeviation
	}
	return m.ConversionRate * (1 - m.ConversionRate)
}

// Degenerate describes why the metric cannot carry a relative lift, or
// returns "" when it can. A zero mean has no relative scale, and a variance
// that is not finite and positive has no standard error.
func (m MetricParams) Degenerate() string {
	mean := m.MetricMean()
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return "metric mean must be finite and non-zero."
	}
	variance := m.MetricVariance()
	if !(variance > 0) || math.IsInf(variance, 0) {
		return "metric variance must be finite and positive."
	}
	return ""
}

// Prior resolves the effective prior; override settings win when enabled.
func (m MetricParams) Prior() PriorParams {
	if m.OverrideMetricLevelSettings {
		return PriorParams{
			Proper:                     m.OverrideProper,
			PriorLiftMean:              m.OverridePriorLiftMean,
			PriorLiftStandardDeviation: m.OverridePriorLiftStandardDeviation,
		}
	}
	return PriorParams{
		Proper:                     m.MetricProper,
		PriorLiftMean:              m.MetricPriorLiftMean,
		PriorLiftStandardDeviation: m.MetricPriorLiftStandardDeviation,
	}
}

// WithEffectSize returns a copy of m with a different effect size.
func (m MetricParams) WithEffectSize(effectSize float64) MetricParams {
	m.EffectSize = effectSize
	return m
}

// StatsEngineSettings selects frequentist or Bayesian inference.
type StatsEngineSettings struct {
	Type                      EngineType `json:"type" yaml:"type" validate:"required,oneof=frequentist bayesian"`
	SequentialTesting         bool       `json:"sequentialTesting,omitempty" yaml:"sequentialTesting,omitempty"`
	SequentialTuningParameter float64    `json:"sequentialTuningParameter,omitempty" yaml:"sequentialTuningParameter,omitempty" validate:"gte=0"`
}

// TuningParameter returns the sequential tuning parameter, or 0 when
// sequential testing is off. A zero value disables every sequential path.
func (s StatsEngineSettings) TuningParameter() float64 {
	if !s.SequentialTesting {
		return 0
	}
	return s.SequentialTuningParameter
}

// PowerCalculationParams are the run-level settings for the weekly scheduler.
type PowerCalculationParams struct {
	NVariations         int                     `json:"nVariations" yaml:"nVariations" validate:"gte=2"`
	NWeeks              int                     `json:"nWeeks" yaml:"nWeeks" validate:"gt=0,lte=520"`
	UsersPerWeek        float64                 `json:"usersPerWeek" yaml:"usersPerWeek" validate:"gt=0"`
	Alpha               float64                 `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	TargetPower         float64                 `json:"targetPower" yaml:"targetPower" validate:"gt=0,lt=1"`
	StatsEngineSettings StatsEngineSettings     `json:"statsEngineSettings" yaml:"statsEngineSettings"`
	Metrics             map[string]MetricParams `json:"metrics" yaml:"metrics" validate:"required,min=1,dive"`
}

// MDEResult is either a success carrying the MDE or an error description.
type MDEResult struct {
	Type        ResultType `json:"type" yaml:"type"`
	MDE         float64    `json:"mde,omitempty" yaml:"mde,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// OK reports whether the result is a success.
func (r MDEResult) OK() bool {
	return r.Type == ResultSuccess
}

func mdeSuccess(mde float64) MDEResult {
	return MDEResult{Type: ResultSuccess, MDE: mde}
}

func mdeError(description string) MDEResult {
	return MDEResult{Type: ResultError, Description: description}
}

// WeekMetric is one metric's figures for one week. EffectSize is nil until
// an MDE has been found for the metric.
type WeekMetric struct {
	EffectSize  *float64 `json:"effectSize" yaml:"effectSize"`
	Power       float64  `json:"power" yaml:"power"`
	IsThreshold bool     `json:"isThreshold" yaml:"isThreshold"`
}

// Week is one scheduling slot with cumulative users.
type Week struct {
	Users   float64               `json:"users" yaml:"users"`
	Metrics map[string]WeekMetric `json:"metrics" yaml:"metrics"`
}

// SampleSizeAndRuntime is the first week a metric reaches the runtime power
// target, with the users accumulated by then.
type SampleSizeAndRuntime struct {
	Weeks int     `json:"weeks" yaml:"weeks"`
	Users float64 `json:"users" yaml:"users"`
}

// PowerCalculationResult is the weekly scheduler output.
type PowerCalculationResult struct {
	Type                 ResultType                       `json:"type" yaml:"type"`
	Description          string                           `json:"description,omitempty" yaml:"description,omitempty"`
	Weeks                []Week                           `json:"weeks" yaml:"weeks"`
	SampleSizeAndRuntime map[string]*SampleSizeAndRuntime `json:"sampleSizeAndRuntime" yaml:"sampleSizeAndRuntime"`
	WeekThreshold        *int                             `json:"weekThreshold,omitempty" yaml:"weekThreshold,omitempty"`
}

// OK reports whether the result is a success.
func (r PowerCalculationResult) OK() bool {
	return r.Type == ResultSuccess
}
