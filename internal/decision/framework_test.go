package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headline-goat/powergoat/internal/decision"
)

func intPtr(v int) *int { return &v }

func variation(id string, goal decision.GoalMetricStatus) decision.VariationStatus {
	return decision.VariationStatus{
		VariationID:      id,
		GoalMetrics:      map[string]decision.GoalMetricStatus{"1": goal},
		GuardrailMetrics: map[string]decision.GuardrailMetricStatus{},
	}
}

func statuses(variations ...decision.VariationStatus) decision.ResultsStatus {
	return decision.ResultsStatus{Variations: variations}
}

func gs(status, super decision.MetricStatus) decision.GoalMetricStatus {
	return decision.GoalMetricStatus{Status: status, SuperStatSigStatus: super}
}

func TestFrameworkStatus_Underpowered(t *testing.T) {
	criteria := decision.DefaultCriteria()

	tests := []struct {
		name    string
		results decision.ResultsStatus
		guards  []string
		want    *decision.Recommendation
	}{
		{
			name:    "ordinary win is not enough",
			results: statuses(variation("1", gs(decision.StatusWon, decision.StatusNeutral))),
		},
		{
			name:    "ordinary loss is not enough",
			results: statuses(variation("1", gs(decision.StatusLost, decision.StatusNeutral))),
		},
		{
			name:    "super stat sig win ships",
			results: statuses(variation("1", gs(decision.StatusWon, decision.StatusWon))),
			want:    &decision.Recommendation{Status: decision.RecommendShip, VariationIDs: []string{"1"}, SequentialUsed: true},
		},
		{
			name:    "super stat sig loss rolls back",
			results: statuses(variation("1", gs(decision.StatusLost, decision.StatusLost))),
			want:    &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, SequentialUsed: true},
		},
		{
			name: "guardrail loss overrides a super stat sig win",
			results: statuses(decision.VariationStatus{
				VariationID:      "1",
				GoalMetrics:      map[string]decision.GoalMetricStatus{"1": gs(decision.StatusWon, decision.StatusWon)},
				GuardrailMetrics: map[string]decision.GuardrailMetricStatus{"01": {Status: decision.StatusLost}},
			}),
			guards: []string{"01"},
			want:   &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, SequentialUsed: true},
		},
		{
			name: "one super stat sig loss rolls back beside a neutral variation",
			results: statuses(
				variation("1", gs(decision.StatusLost, decision.StatusLost)),
				variation("2", gs(decision.StatusNeutral, decision.StatusNeutral)),
			),
			want: &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, SequentialUsed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decision.FrameworkStatus(tt.results, criteria, []string{"1"}, tt.guards, nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrameworkStatus_Powered(t *testing.T) {
	criteria := decision.DefaultCriteria()

	tests := []struct {
		name    string
		results decision.ResultsStatus
		guards  []string
		want    *decision.Recommendation
	}{
		{
			name:    "ordinary win ships",
			results: statuses(variation("1", gs(decision.StatusWon, decision.StatusNeutral))),
			want:    &decision.Recommendation{Status: decision.RecommendShip, VariationIDs: []string{"1"}, PowerReached: true},
		},
		{
			name:    "neutral is ready for review",
			results: statuses(variation("1", gs(decision.StatusNeutral, decision.StatusNeutral))),
			want:    &decision.Recommendation{Status: decision.RecommendReview, VariationIDs: []string{"1"}, PowerReached: true},
		},
		{
			name: "guardrail loss rolls back",
			results: statuses(decision.VariationStatus{
				VariationID:      "1",
				GuardrailMetrics: map[string]decision.GuardrailMetricStatus{"01": {Status: decision.StatusLost}},
			}),
			guards: []string{"01"},
			// Guardrails have no super stat sig status, so the early pass
			// already catches this.
			want: &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, SequentialUsed: true},
		},
		{
			name:    "ordinary loss rolls back",
			results: statuses(variation("1", gs(decision.StatusLost, decision.StatusNeutral))),
			want:    &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, PowerReached: true},
		},
		{
			name: "loss in two variations lists both",
			results: statuses(
				variation("1", gs(decision.StatusLost, decision.StatusNeutral)),
				variation("2", gs(decision.StatusLost, decision.StatusNeutral)),
			),
			want: &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1", "2"}, PowerReached: true},
		},
		{
			name: "loss beside a neutral variation still rolls back",
			results: statuses(
				variation("1", gs(decision.StatusLost, decision.StatusNeutral)),
				variation("2", gs(decision.StatusNeutral, decision.StatusNeutral)),
			),
			want: &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"1"}, PowerReached: true},
		},
		{
			name: "rollback beats ship across variations",
			results: statuses(
				variation("1", gs(decision.StatusWon, decision.StatusNeutral)),
				variation("2", gs(decision.StatusLost, decision.StatusNeutral)),
			),
			want: &decision.Recommendation{Status: decision.RecommendRollback, VariationIDs: []string{"2"}, PowerReached: true},
		},
		{
			name: "review lists every variation",
			results: statuses(
				variation("1", gs(decision.StatusNeutral, decision.StatusNeutral)),
				variation("2", gs(decision.StatusNeutral, decision.StatusNeutral)),
			),
			want: &decision.Recommendation{Status: decision.RecommendReview, VariationIDs: []string{"1", "2"}, PowerReached: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decision.FrameworkStatus(tt.results, criteria, []string{"1"}, tt.guards, intPtr(0))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrameworkStatus_SuperStatSigPassRunsFirst(t *testing.T) {
	// A super stat sig win ships early even when the powered pass would
	// also agree; the flags show which pass decided.
	got := decision.FrameworkStatus(
		statuses(variation("1", gs(decision.StatusWon, decision.StatusWon))),
		decision.DefaultCriteria(), []string{"1"}, nil, intPtr(0),
	)

	require.NotNil(t, got)
	assert.Equal(t, decision.RecommendShip, got.Status)
	assert.True(t, got.SequentialUsed)
	assert.False(t, got.PowerReached)
}

func TestFrameworkStatus_CustomCriteria(t *testing.T) {
	// Ship as soon as any goal wins; never roll back.
	criteria := decision.Criteria{
		Rules: []decision.Rule{
			rule(decision.ActionShip, cond(decision.MetricsGoals, decision.MatchAny, decision.DirectionWinner)),
		},
		DefaultAction: decision.ActionReview,
	}

	got := decision.FrameworkStatus(
		statuses(
			variation("1", gs(decision.StatusLost, decision.StatusLost)),
			variation("2", gs(decision.StatusWon, decision.StatusNeutral)),
		),
		criteria, []string{"1"}, nil, intPtr(0),
	)

	assert.Equal(t, &decision.Recommendation{Status: decision.RecommendShip, VariationIDs: []string{"2"}, PowerReached: true}, got)
}

func TestDefaultCriteria(t *testing.T) {
	criteria := decision.DefaultCriteria()

	assert.Equal(t, "Clear Signals", criteria.Name)
	assert.Equal(t, decision.ActionReview, criteria.DefaultAction)
	require.Len(t, criteria.Rules, 3)
	assert.Equal(t, decision.ActionShip, criteria.Rules[0].Action)
	assert.Equal(t, decision.ActionRollback, criteria.Rules[1].Action)
	assert.Equal(t, decision.ActionRollback, criteria.Rules[2].Action)
}
