package request

import (
	"github.com/headline-goat/powergoat/internal/decision"
	"github.com/headline-goat/powergoat/internal/power"
)

// Defaults fill request fields the caller left unset.
type Defaults struct {
	Engine                    power.EngineType
	Alpha                     float64
	TargetPower               float64
	SequentialTesting         bool
	SequentialTuningParameter float64
	PriorStandardDeviation    float64
	Health                    decision.HealthSettings
}

// PowerRequest asks for the weekly power schedule of a set of metrics.
type PowerRequest struct {
	power.PowerCalculationParams `yaml:",inline"`
}

// ApplyDefaults fills unset run settings and metric priors.
func (r *PowerRequest) ApplyDefaults(d Defaults) {
	if r.Alpha == 0 {
		r.Alpha = d.Alpha
	}
	if r.TargetPower == 0 {
		r.TargetPower = d.TargetPower
	}
	r.StatsEngineSettings = engineDefaults(r.StatsEngineSettings, d)
	for key, metric := range r.Metrics {
		r.Metrics[key] = metricDefaults(metric, d)
	}
}

// Run computes the schedule.
func (r PowerRequest) Run() power.PowerCalculationResult {
	return power.PowerMetricWeeks(r.PowerCalculationParams)
}

// MDERequest asks for the minimum detectable effect of one metric at a fixed
// sample size. It is comparable so it can key a cache.
type MDERequest struct {
	Metric              power.MetricParams        `json:"metric" yaml:"metric"`
	Users               float64                   `json:"users" yaml:"users" validate:"gt=0"`
	NVariations         int                       `json:"nVariations" yaml:"nVariations" validate:"gte=2"`
	Alpha               float64                   `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	TargetPower         float64                   `json:"targetPower" yaml:"targetPower" validate:"gt=0,lt=1"`
	StatsEngineSettings power.StatsEngineSettings `json:"statsEngineSettings" yaml:"statsEngineSettings"`
}

// ApplyDefaults fills unset settings.
func (r *MDERequest) ApplyDefaults(d Defaults) {
	if r.NVariations == 0 {
		r.NVariations = 2
	}
	if r.Alpha == 0 {
		r.Alpha = d.Alpha
	}
	if r.TargetPower == 0 {
		r.TargetPower = d.TargetPower
	}
	r.StatsEngineSettings = engineDefaults(r.StatsEngineSettings, d)
	r.Metric = metricDefaults(r.Metric, d)
}

// Run solves for the MDE with the configured engine.
func (r MDERequest) Run() power.MDEResult {
	if r.StatsEngineSettings.Type == power.EngineBayesian {
		return power.FindMDEBayesian(r.Metric, r.Alpha, r.TargetPower, r.Users/float64(r.NVariations), true)
	}
	return power.FindMDEFrequentist(r.Metric, r.TargetPower, r.Users, r.NVariations, r.Alpha, r.StatsEngineSettings.TuningParameter())
}

// MidExperimentRequest asks for projected power of a running experiment.
type MidExperimentRequest struct {
	power.MidExperimentParams `yaml:",inline"`
}

// ApplyDefaults fills unset settings.
func (r *MidExperimentRequest) ApplyDefaults(d Defaults) {
	if r.Alpha == 0 {
		r.Alpha = d.Alpha
	}
	if r.Sequential && r.SequentialTuningParameter == 0 {
		r.SequentialTuningParameter = d.SequentialTuningParameter
	}
}

// Run computes the projection.
func (r MidExperimentRequest) Run() power.MidExperimentResult {
	return power.CalculateMidExperimentPower(r.MidExperimentParams)
}

// DecisionRequest asks the decision framework for a recommendation. With
// no criteria the default criteria apply.
type DecisionRequest struct {
	Results          decision.ResultsStatus `json:"results" yaml:"results"`
	Criteria         *decision.Criteria     `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	GoalMetrics      []string               `json:"goalMetrics" yaml:"goalMetrics" validate:"dive,required"`
	GuardrailMetrics []string               `json:"guardrailMetrics" yaml:"guardrailMetrics" validate:"dive,required"`
	DaysNeeded       *int                   `json:"daysNeeded,omitempty" yaml:"daysNeeded,omitempty" validate:"omitempty,gte=0"`
}

// DecisionResponse carries the per-variation actions of both passes with
// the overall recommendation, which is nil while there is none.
type DecisionResponse struct {
	Recommendation *decision.Recommendation     `json:"recommendation" yaml:"recommendation"`
	SuperStatSig   []decision.VariationDecision `json:"superStatSig" yaml:"superStatSig"`
	Ordinary       []decision.VariationDecision `json:"ordinary" yaml:"ordinary"`
}

// ApplyDefaults fills in the default criteria when none were given.
func (r *DecisionRequest) ApplyDefaults(Defaults) {
	if r.Criteria == nil {
		criteria := decision.DefaultCriteria()
		r.Criteria = &criteria
	}
}

// CriteriaOrDefault returns the request's criteria or the default criteria.
func (r DecisionRequest) CriteriaOrDefault() decision.Criteria {
	if r.Criteria != nil {
		return *r.Criteria
	}
	return decision.DefaultCriteria()
}

// Run evaluates the request.
func (r DecisionRequest) Run() DecisionResponse {
	criteria := r.CriteriaOrDefault()
	return DecisionResponse{
		Recommendation: decision.FrameworkStatus(r.Results, criteria, r.GoalMetrics, r.GuardrailMetrics, r.DaysNeeded),
		SuperStatSig:   decision.VariationDecisions(r.Results, criteria, r.GoalMetrics, r.GuardrailMetrics, true),
		Ordinary:       decision.VariationDecisions(r.Results, criteria, r.GoalMetrics, r.GuardrailMetrics, false),
	}
}

// StatusRequest asks for the overall result status of an experiment.
// Health overrides the configured thresholds when set.
type StatusRequest struct {
	decision.StatusInput `yaml:",inline"`
	Health               *decision.HealthSettings `json:"health,omitempty" yaml:"health,omitempty"`
}

// ApplyDefaults fills the health thresholds from configuration.
func (r *StatusRequest) ApplyDefaults(d Defaults) {
	if r.Health == nil {
		h := d.Health
		r.Health = &h
	}
}

// Run classifies the experiment.
func (r StatusRequest) Run() *decision.ExperimentResultStatus {
	return decision.ResultStatus(r.StatusInput, *r.Health)
}

func engineDefaults(s power.StatsEngineSettings, d Defaults) power.StatsEngineSettings {
	if s.Type == "" {
		s.Type = d.Engine
		s.SequentialTesting = s.SequentialTesting || d.SequentialTesting
	}
	if s.SequentialTesting && s.SequentialTuningParameter == 0 {
		s.SequentialTuningParameter = d.SequentialTuningParameter
	}
	return s
}

func metricDefaults(m power.MetricParams, d Defaults) power.MetricParams {
	if m.MetricProper && m.MetricPriorLiftStandardDeviation == 0 {
		m.MetricPriorLiftStandardDeviation = d.PriorStandardDeviation
	}
	if m.OverrideMetricLevelSettings && m.OverrideProper && m.OverridePriorLiftStandardDeviation == 0 {
		m.OverridePriorLiftStandardDeviation = d.PriorStandardDeviation
	}
	return m
}
