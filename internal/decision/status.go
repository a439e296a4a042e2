package decision

import "github.com/headline-goat/powergoat/internal/stats"

// MultipleExposuresMinCount is the number of users seen in more than one
// variation before the experiment can be flagged for multiple exposures.
const MultipleExposuresMinCount = 10

// ResultStatusKind is the headline of ExperimentResultStatus.
type ResultStatusKind string

const (
	ResultNoData            ResultStatusKind = "no-data"
	ResultUnhealthy         ResultStatusKind = "unhealthy"
	ResultBeforeMinDuration ResultStatusKind = "before-min-duration"
	ResultDaysLeft          ResultStatusKind = "days-left"
)

// HealthSettings are the organization thresholds used to judge experiment
// health.
type HealthSettings struct {
	DecisionFrameworkEnabled   bool    `json:"decisionFrameworkEnabled" yaml:"decisionFrameworkEnabled"`
	SRMThreshold               float64 `json:"srmThreshold" yaml:"srmThreshold" validate:"gt=0,lt=1"`
	MultipleExposureMinPercent float64 `json:"multipleExposureMinPercent" yaml:"multipleExposureMinPercent" validate:"gte=0,lte=1"`
	ExperimentMinLengthDays    float64 `json:"experimentMinLengthDays" yaml:"experimentMinLengthDays" validate:"gte=0"`
}

// MultipleExposures describes users who saw more than one variation.
type MultipleExposures struct {
	RawDecimal           float64 `json:"rawDecimal" yaml:"rawDecimal"`
	MultipleExposedUsers int64   `json:"multipleExposedUsers" yaml:"multipleExposedUsers"`
}

// UnhealthyData lists every failing health check.
type UnhealthyData struct {
	SRM               bool               `json:"srm,omitempty" yaml:"srm,omitempty"`
	MultipleExposures *MultipleExposures `json:"multipleExposures,omitempty" yaml:"multipleExposures,omitempty"`
	LowPowered        bool               `json:"lowPowered,omitempty" yaml:"lowPowered,omitempty"`
}

func (u UnhealthyData) any() bool {
	return u.SRM || u.MultipleExposures != nil || u.LowPowered
}

// StatusInput is everything ResultStatus needs about a running experiment.
type StatusInput struct {
	Users                int64    `json:"users" yaml:"users" validate:"gte=0"`
	MultipleExposedUsers int64    `json:"multipleExposedUsers" yaml:"multipleExposedUsers" validate:"gte=0"`
	SRMPValue            *float64 `json:"srmPValue,omitempty" yaml:"srmPValue,omitempty" validate:"omitempty,gte=0,lte=1"`

	// VariationUsers and VariationWeights give the observed and expected
	// traffic split. They are used to compute the SRM p-value when
	// SRMPValue is not supplied.
	VariationUsers   []float64 `json:"variationUsers,omitempty" yaml:"variationUsers,omitempty" validate:"omitempty,eqfield=VariationWeights,dive,gte=0"`
	VariationWeights []float64 `json:"variationWeights,omitempty" yaml:"variationWeights,omitempty" validate:"omitempty,dive,gte=0"`

	LowPowered  bool    `json:"lowPowered" yaml:"lowPowered"`
	DaysRunning float64 `json:"daysRunning" yaml:"daysRunning" validate:"gte=0"`

	// DaysNeeded is nil until the power target has been reached. DaysLeft
	// is the projected remaining duration while it has not.
	DaysNeeded *int `json:"daysNeeded,omitempty" yaml:"daysNeeded,omitempty"`
	DaysLeft   *int `json:"daysLeft,omitempty" yaml:"daysLeft,omitempty"`

	Results          ResultsStatus `json:"results" yaml:"results"`
	Criteria         *Criteria     `json:"criteria,omitempty" yaml:"criteria,omitempty"`
	GoalMetrics      []string      `json:"goalMetrics" yaml:"goalMetrics"`
	GuardrailMetrics []string      `json:"guardrailMetrics" yaml:"guardrailMetrics"`
}

// ExperimentResultStatus is the overall status of an experiment's results.
// Status holds either a ResultStatusKind or, when the decision framework
// made a call, the Recommendation's status.
type ExperimentResultStatus struct {
	Status         string          `json:"status" yaml:"status"`
	UnhealthyData  *UnhealthyData  `json:"unhealthyData,omitempty" yaml:"unhealthyData,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty" yaml:"recommendation,omitempty"`
	DaysLeft       *int            `json:"daysLeft,omitempty" yaml:"daysLeft,omitempty"`
}

// ResultStatus classifies an experiment. Checks run in order: no data,
// health, decision framework, minimum duration, days left. It returns nil
// when none applies.
func ResultStatus(input StatusInput, settings HealthSettings) *ExperimentResultStatus {
	if input.Users <= 0 {
		return &ExperimentResultStatus{Status: string(ResultNoData)}
	}

	if unhealthy := checkHealth(input, settings); unhealthy.any() {
		return &ExperimentResultStatus{Status: string(ResultUnhealthy), UnhealthyData: &unhealthy}
	}

	if settings.DecisionFrameworkEnabled {
		criteria := DefaultCriteria()
		if input.Criteria != nil {
			criteria = *input.Criteria
		}
		if rec := FrameworkStatus(input.Results, criteria, input.GoalMetrics, input.GuardrailMetrics, input.DaysNeeded); rec != nil {
			return &ExperimentResultStatus{Status: string(rec.Status), Recommendation: rec}
		}
	}

	if input.DaysRunning < settings.ExperimentMinLengthDays {
		return &ExperimentResultStatus{Status: string(ResultBeforeMinDuration)}
	}

	if settings.DecisionFrameworkEnabled && input.DaysLeft != nil && *input.DaysLeft > 0 {
		days := *input.DaysLeft
		return &ExperimentResultStatus{Status: string(ResultDaysLeft), DaysLeft: &days}
	}

	return nil
}

func checkHealth(input StatusInput, settings HealthSettings) UnhealthyData {
	var u UnhealthyData
	if p, ok := srmPValue(input); ok && p < settings.SRMThreshold {
		u.SRM = true
	}
	if input.MultipleExposedUsers >= MultipleExposuresMinCount {
		raw := float64(input.MultipleExposedUsers) / float64(input.Users)
		if raw >= settings.MultipleExposureMinPercent {
			u.MultipleExposures = &MultipleExposures{
				RawDecimal:           raw,
				MultipleExposedUsers: input.MultipleExposedUsers,
			}
		}
	}
	u.LowPowered = input.LowPowered
	return u
}

// srmPValue returns the supplied p-value, or computes one from the observed
// traffic split. ok is false when neither is available.
func srmPValue(input StatusInput) (float64, bool) {
	if input.SRMPValue != nil {
		return *input.SRMPValue, true
	}
	if len(input.VariationUsers) == 0 {
		return 0, false
	}
	p, err := stats.SRMPValue(input.VariationUsers, input.VariationWeights)
	if err != nil {
		return 0, false
	}
	return p, true
}
