package decision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headline-goat/powergoat/internal/decision"
)

func health() decision.HealthSettings {
	return decision.HealthSettings{
		DecisionFrameworkEnabled:   true,
		SRMThreshold:               0.001,
		MultipleExposureMinPercent: 0.01,
		ExperimentMinLengthDays:    7,
	}
}

func runningInput() decision.StatusInput {
	return decision.StatusInput{
		Users:       10000,
		DaysRunning: 10,
		Results:     statuses(variation("1", gs(decision.StatusNeutral, decision.StatusNeutral))),
		GoalMetrics: []string{"1"},
	}
}

func TestResultStatus_NoData(t *testing.T) {
	input := runningInput()
	input.Users = 0

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "no-data", got.Status)
}

func TestResultStatus_SRM(t *testing.T) {
	input := runningInput()
	p := 0.0001
	input.SRMPValue = &p

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "unhealthy", got.Status)
	require.NotNil(t, got.UnhealthyData)
	assert.True(t, got.UnhealthyData.SRM)
	assert.Nil(t, got.UnhealthyData.MultipleExposures)
}

func TestResultStatus_SRMFromTrafficSplit(t *testing.T) {
	tests := []struct {
		name  string
		users []float64
		want  bool
	}{
		{"balanced", []float64{5010, 4990}, false},
		{"mismatched", []float64{5500, 4500}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := runningInput()
			input.DaysRunning = 1
			input.VariationUsers = tt.users
			input.VariationWeights = []float64{0.5, 0.5}

			got := decision.ResultStatus(input, health())

			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.UnhealthyData != nil && got.UnhealthyData.SRM)
		})
	}
}

func TestResultStatus_SuppliedSRMPValueWins(t *testing.T) {
	input := runningInput()
	p := 0.5
	input.SRMPValue = &p
	input.VariationUsers = []float64{5500, 4500}
	input.VariationWeights = []float64{0.5, 0.5}

	got := decision.ResultStatus(input, health())

	assert.Nil(t, got)
}

func TestResultStatus_MultipleExposures(t *testing.T) {
	tests := []struct {
		name      string
		exposed   int64
		unhealthy bool
	}{
		{"below minimum count", 9, false},
		{"below minimum percent", 50, false},
		{"over both thresholds", 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := runningInput()
			input.MultipleExposedUsers = tt.exposed

			got := decision.ResultStatus(input, health())

			if !tt.unhealthy {
				if got != nil {
					assert.NotEqual(t, "unhealthy", got.Status)
				}
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, "unhealthy", got.Status)
			require.NotNil(t, got.UnhealthyData.MultipleExposures)
			assert.InDelta(t, 0.02, got.UnhealthyData.MultipleExposures.RawDecimal, 1e-12)
			assert.Equal(t, int64(200), got.UnhealthyData.MultipleExposures.MultipleExposedUsers)
		})
	}
}

func TestResultStatus_LowPowered(t *testing.T) {
	input := runningInput()
	input.LowPowered = true

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "unhealthy", got.Status)
	assert.True(t, got.UnhealthyData.LowPowered)
}

func TestResultStatus_Recommendation(t *testing.T) {
	input := runningInput()
	input.Results = statuses(variation("1", gs(decision.StatusWon, decision.StatusWon)))

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "ship-now", got.Status)
	require.NotNil(t, got.Recommendation)
	assert.Equal(t, []string{"1"}, got.Recommendation.VariationIDs)
}

func TestResultStatus_CustomCriteria(t *testing.T) {
	input := runningInput()
	input.DaysNeeded = intPtr(0)
	input.Criteria = &decision.Criteria{DefaultAction: decision.ActionRollback}

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "rollback-now", got.Status)
}

func TestResultStatus_FrameworkDisabled(t *testing.T) {
	input := runningInput()
	input.Results = statuses(variation("1", gs(decision.StatusWon, decision.StatusWon)))
	input.DaysLeft = intPtr(3)
	settings := health()
	settings.DecisionFrameworkEnabled = false

	assert.Nil(t, decision.ResultStatus(input, settings))
}

func TestResultStatus_BeforeMinDuration(t *testing.T) {
	input := runningInput()
	input.DaysRunning = 3
	input.DaysLeft = intPtr(4)

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "before-min-duration", got.Status)
}

func TestResultStatus_DaysLeft(t *testing.T) {
	input := runningInput()
	input.DaysLeft = intPtr(4)

	got := decision.ResultStatus(input, health())

	require.NotNil(t, got)
	assert.Equal(t, "days-left", got.Status)
	require.NotNil(t, got.DaysLeft)
	assert.Equal(t, 4, *got.DaysLeft)
}

func TestResultStatus_NothingToReport(t *testing.T) {
	assert.Nil(t, decision.ResultStatus(runningInput(), health()))
}
