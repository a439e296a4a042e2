// Package decision turns per-metric significance into ship, rollback or
// review recommendations using an ordered list of decision rules.
package decision

// MetricStatus is the significance classification of one metric for one
// variation.
type MetricStatus string

const (
	StatusWon     MetricStatus = "won"
	StatusLost    MetricStatus = "lost"
	StatusNeutral MetricStatus = "neutral"
)

// GoalMetricStatus carries both the ordinary and the super-stat-sig
// classification of a goal metric.
type GoalMetricStatus struct {
	Status             MetricStatus `json:"status" yaml:"status" validate:"required,oneof=won lost neutral"`
	SuperStatSigStatus MetricStatus `json:"superStatSigStatus,omitempty" yaml:"superStatSigStatus,omitempty" validate:"omitempty,oneof=won lost neutral"`
}

// GuardrailMetricStatus has no super-stat-sig variant.
type GuardrailMetricStatus struct {
	Status MetricStatus `json:"status" yaml:"status" validate:"required,oneof=won lost neutral"`
}

// VariationStatus is one variation's metric snapshot.
type VariationStatus struct {
	VariationID      string                           `json:"variationId" yaml:"variationId" validate:"required"`
	GoalMetrics      map[string]GoalMetricStatus      `json:"goalMetrics" yaml:"goalMetrics" validate:"dive"`
	GuardrailMetrics map[string]GuardrailMetricStatus `json:"guardrailMetrics" yaml:"guardrailMetrics" validate:"dive"`
}

// ResultsStatus is the snapshot for every non-control variation.
type ResultsStatus struct {
	Variations []VariationStatus `json:"variations" yaml:"variations" validate:"dive"`
}

// MetricGroup selects which metric list a condition inspects.
type MetricGroup string

const (
	MetricsGoals      MetricGroup = "goals"
	MetricsGuardrails MetricGroup = "guardrails"
)

// MatchType is the quantifier applied over a metric group.
type MatchType string

const (
	MatchAll  MatchType = "all"
	MatchAny  MatchType = "any"
	MatchNone MatchType = "none"
)

// matches applies the quantifier given how many of total metrics hit the
// target. An empty group satisfies all and none but never any.
func (m MatchType) matches(hits, total int) bool {
	switch m {
	case MatchAll:
		return hits == total
	case MatchAny:
		return hits > 0
	case MatchNone:
		return hits == 0
	}
	return false
}

// Direction names the status a condition looks for.
type Direction string

const (
	DirectionWinner Direction = "statsigWinner"
	DirectionLoser  Direction = "statsigLoser"
)

func (d Direction) target() MetricStatus {
	if d == DirectionLoser {
		return StatusLost
	}
	return StatusWon
}

// Action is what a rule recommends for a variation.
type Action string

const (
	ActionShip     Action = "ship"
	ActionRollback Action = "rollback"
	ActionReview   Action = "review"
)

// Condition is one clause of a rule.
type Condition struct {
	Metrics   MetricGroup `json:"metrics" yaml:"metrics" validate:"required,oneof=goals guardrails"`
	Match     MatchType   `json:"match" yaml:"match" validate:"required,oneof=all any none"`
	Direction Direction   `json:"direction" yaml:"direction" validate:"required,oneof=statsigWinner statsigLoser"`
}

// Rule fires its action when every condition holds.
type Rule struct {
	Conditions []Condition `json:"conditions" yaml:"conditions" validate:"dive"`
	Action     Action      `json:"action" yaml:"action" validate:"required,oneof=ship rollback review"`
}

// Criteria is an ordered rule list; the first matching rule wins.
type Criteria struct {
	ID            string `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string `json:"name,omitempty" yaml:"name,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Rules         []Rule `json:"rules" yaml:"rules" validate:"dive"`
	DefaultAction Action `json:"defaultAction" yaml:"defaultAction" validate:"required,oneof=ship rollback review"`
}

// VariationDecision is the action chosen for one variation.
type VariationDecision struct {
	VariationID string `json:"variationId" yaml:"variationId"`
	Action      Action `json:"decisionCriteriaAction" yaml:"decisionCriteriaAction"`
}

// RecommendationStatus is the headline outcome of the decision framework.
type RecommendationStatus string

const (
	RecommendShip     RecommendationStatus = "ship-now"
	RecommendRollback RecommendationStatus = "rollback-now"
	RecommendReview   RecommendationStatus = "ready-for-review"
)

// Recommendation is the decision framework's verdict for an experiment.
type Recommendation struct {
	Status         RecommendationStatus `json:"status" yaml:"status"`
	VariationIDs   []string             `json:"variationIds" yaml:"variationIds"`
	PowerReached   bool                 `json:"powerReached" yaml:"powerReached"`
	SequentialUsed bool                 `json:"sequentialUsed" yaml:"sequentialUsed"`
}
