package power

import (
	"math"
	"strconv"

	"github.com/headline-goat/powergoat/internal/stats"
)

// PowerResponse holds the posterior statistics the upstream stats engine
// reports for one (goal metric, variation) pair.
// Sample sizes may be left out when PowerError is set.
type PowerResponse struct {
	FirstPeriodPairwiseSampleSize float64  `json:"firstPeriodPairwiseSampleSize" yaml:"firstPeriodPairwiseSampleSize" validate:"required_without=PowerError,gte=0"`
	FirstPeriodSampleSize         float64  `json:"firstPeriodSampleSize" yaml:"firstPeriodSampleSize" validate:"required_without=PowerError,gte=0"`
	EffectSize                    float64  `json:"effectSize" yaml:"effectSize"`
	SigmaHat2Delta                *float64 `json:"sigmahat2Delta,omitempty" yaml:"sigmahat2Delta,omitempty" validate:"omitempty,gt=0"`
	Sigma2Posterior               *float64 `json:"sigma2Posterior,omitempty" yaml:"sigma2Posterior,omitempty" validate:"omitempty,gt=0"`
	DeltaPosterior                *float64 `json:"deltaPosterior,omitempty" yaml:"deltaPosterior,omitempty"`
	PowerAdditionalUsers          *float64 `json:"powerAdditionalUsers,omitempty" yaml:"powerAdditionalUsers,omitempty"`

	// NewDailyUsers is the pair's own daily traffic. It overrides the
	// experiment-wide figure scaled to the pair's share.
	NewDailyUsers *float64 `json:"newDailyUsers,omitempty" yaml:"newDailyUsers,omitempty" validate:"omitempty,gte=0"`
	PowerError    string   `json:"powerError,omitempty" yaml:"powerError,omitempty"`
}

// MidExperimentParams describes an in-flight experiment. Responses are
// metric-major: the response for goal metric i and non-control variation j
// is Responses[i*(NumVariations-1)+j].
type MidExperimentParams struct {
	NewDailyUsers             *float64        `json:"newDailyUsers,omitempty" yaml:"newDailyUsers,omitempty" validate:"omitempty,gte=0"`
	SecondPeriodSampleSize    float64         `json:"secondPeriodSampleSize" yaml:"secondPeriodSampleSize" validate:"gt=0"`
	NumVariations             int             `json:"numVariations" yaml:"numVariations" validate:"gte=2"`
	NumGoalMetrics            int             `json:"numGoalMetrics" yaml:"numGoalMetrics" validate:"gte=1"`
	Sequential                bool            `json:"sequential" yaml:"sequential"`
	SequentialTuningParameter float64         `json:"sequentialTuningParameter" yaml:"sequentialTuningParameter" validate:"gte=0"`
	Alpha                     float64         `json:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	VariationWeights          []float64       `json:"variationWeights" yaml:"variationWeights" validate:"required,dive,gte=0,lte=1"`
	Responses                 []PowerResponse `json:"responses" yaml:"responses" validate:"required,dive"`
}

// MidExperimentSingleMetricParams is the input for one (metric, variation)
// pair, with traffic already scaled to the pair's share. NewDailyUsers is nil
// when the experiment-wide figure is unknown.
type MidExperimentSingleMetricParams struct {
	NewDailyUsers             *float64
	SecondPeriodSampleSize    float64
	NumVariations             int
	NumGoalMetrics            int
	Sequential                bool
	SequentialTuningParameter float64
	Alpha                     float64
	Response                  PowerResponse
}

// LowPowerRow flags a (metric, variation) pair whose projected power is
// below alpha.
type LowPowerRow struct {
	Metric                string  `json:"metric" yaml:"metric"`
	Variation             string  `json:"variation" yaml:"variation"`
	EffectSize            float64 `json:"effectSize" yaml:"effectSize"`
	Power                 float64 `json:"power" yaml:"power"`
	AdditionalDaysNeeded  float64 `json:"additionalDaysNeeded" yaml:"additionalDaysNeeded"`
	AdditionalUsersNeeded float64 `json:"additionalUsersNeeded" yaml:"additionalUsersNeeded"`
}

// MidExperimentResult is the projected end-of-experiment power.
type MidExperimentResult struct {
	Type            ResultType    `json:"type" yaml:"type"`
	Description     string        `json:"description,omitempty" yaml:"description,omitempty"`
	Power           float64       `json:"power" yaml:"power"`
	AdditionalDays  float64       `json:"additionalDays" yaml:"additionalDays"`
	AdditionalUsers float64       `json:"additionalUsers" yaml:"additionalUsers"`
	LowPowerWarning bool          `json:"lowPowerWarning" yaml:"lowPowerWarning"`
	LowPowerTable   []LowPowerRow `json:"lowPowerTable,omitempty" yaml:"lowPowerTable,omitempty"`
}

// OK reports whether the result is a success.
func (r MidExperimentResult) OK() bool {
	return r.Type == ResultSuccess
}

func midExperimentError(description string) MidExperimentResult {
	return MidExperimentResult{Type: ResultError, Description: description}
}

// finalPosteriorVariance is the posterior variance at the end of the
// experiment, once the remaining traffic has been observed.
func finalPosteriorVariance(sigma2Posterior, sigmaHat2Delta, scalingFactor float64) float64 {
	precPrior := 1 / sigma2Posterior
	precData := 1 / (sigmaHat2Delta / scalingFactor)
	return 1 / (precPrior + precData)
}

// CalculateMidExperimentPowerSingleMetric projects the power for one
// (metric, variation) pair.
func CalculateMidExperimentPowerSingleMetric(params MidExperimentSingleMetricParams) MidExperimentResult {
	response := params.Response
	dailyUsers := params.NewDailyUsers
	if response.NewDailyUsers != nil {
		dailyUsers = response.NewDailyUsers
	}

	switch {
	case response.PowerError != "":
		return midExperimentError(response.PowerError)
	case response.SigmaHat2Delta == nil:
		return midExperimentError("Missing sigmahat2Delta.")
	case response.Sigma2Posterior == nil:
		return midExperimentError("Missing sigma2Posterior.")
	case response.DeltaPosterior == nil:
		return midExperimentError("Missing deltaPosterior.")
	case dailyUsers == nil:
		return midExperimentError("Missing newDailyUsers.")
	case *dailyUsers == 0:
		return midExperimentError("newDailyUsers is 0.")
	case response.PowerAdditionalUsers == nil:
		return midExperimentError("Missing powerAdditionalUsers.")
	}

	sigmaHat2Delta := *response.SigmaHat2Delta
	sigma2Posterior := *response.Sigma2Posterior
	deltaPosterior := *response.DeltaPosterior
	additionalUsers := *response.PowerAdditionalUsers

	numTests := float64((params.NumVariations - 1) * params.NumGoalMetrics)
	scalingFactor := params.SecondPeriodSampleSize / response.FirstPeriodSampleSize

	var halfwidth float64
	if params.Sequential {
		s2 := sigmaHat2Delta * response.FirstPeriodPairwiseSampleSize
		nTotal := response.FirstPeriodPairwiseSampleSize * (1 + scalingFactor)
		halfwidth = SequentialIntervalHalfwidth(s2, nTotal, params.SequentialTuningParameter, params.Alpha/numTests)
	} else {
		zStar := stats.Quantile(1 - 0.5*params.Alpha/numTests)
		halfwidth = zStar * math.Sqrt(finalPosteriorVariance(sigma2Posterior, sigmaHat2Delta, scalingFactor))
	}

	dataVariance := sigmaHat2Delta / scalingFactor
	marginalVariance := sigma2Posterior + dataVariance
	shrinkHalfwidth := halfwidth * marginalVariance / sigma2Posterior
	shrinkMean := dataVariance * deltaPosterior / sigma2Posterior
	den := math.Sqrt(sigmaHat2Delta)

	powerPos := 1 - stats.CDF((shrinkHalfwidth-shrinkMean-response.EffectSize)/den)
	powerNeg := stats.CDF((-shrinkHalfwidth - shrinkMean - response.EffectSize) / den)
	totalPower := powerPos + powerNeg
	if math.IsNaN(totalPower) {
		return midExperimentError("power is undefined for these posterior statistics.")
	}

	return MidExperimentResult{
		Type:            ResultSuccess,
		Power:           totalPower,
		AdditionalUsers: additionalUsers,
		AdditionalDays:  math.Ceil(additionalUsers / *dailyUsers),
		LowPowerWarning: totalPower < params.Alpha,
	}
}

// CalculateMidExperimentPower projects power for every goal metric and
// non-control variation. The experiment is as powered as its weakest goal
// metric, where each metric counts its best variation; the additional
// traffic needed is the largest over all pairs.
func CalculateMidExperimentPower(params MidExperimentParams) MidExperimentResult {
	if params.NumGoalMetrics < 1 || params.NumVariations < 2 {
		return midExperimentError("need at least one goal metric and two variations.")
	}
	pairsPerMetric := params.NumVariations - 1
	if len(params.Responses) < pairsPerMetric*params.NumGoalMetrics {
		return midExperimentError("Missing power responses.")
	}
	if len(params.VariationWeights) < params.NumVariations {
		return midExperimentError("Missing variation weights.")
	}

	maxPowerByMetric := make([]float64, params.NumGoalMetrics)
	maxDaysByMetric := make([]float64, params.NumGoalMetrics)
	maxUsersByMetric := make([]float64, params.NumGoalMetrics)
	var lowPowerRows []LowPowerRow

	for metric := 0; metric < params.NumGoalMetrics; metric++ {
		for variation := 0; variation < pairsPerMetric; variation++ {
			response := params.Responses[metric*pairsPerMetric+variation]
			share := params.VariationWeights[0] + params.VariationWeights[variation+1]
			var dailyUsers *float64
			if params.NewDailyUsers != nil {
				scaled := *params.NewDailyUsers * share
				dailyUsers = &scaled
			}

			result := CalculateMidExperimentPowerSingleMetric(MidExperimentSingleMetricParams{
				NewDailyUsers:             dailyUsers,
				SecondPeriodSampleSize:    params.SecondPeriodSampleSize * share,
				NumVariations:             params.NumVariations,
				NumGoalMetrics:            params.NumGoalMetrics,
				Sequential:                params.Sequential,
				SequentialTuningParameter: params.SequentialTuningParameter,
				Alpha:                     params.Alpha,
				Response:                  response,
			})
			if !result.OK() {
				return result
			}

			maxPowerByMetric[metric] = math.Max(maxPowerByMetric[metric], result.Power)
			maxDaysByMetric[metric] = math.Max(maxDaysByMetric[metric], result.AdditionalDays)
			maxUsersByMetric[metric] = math.Max(maxUsersByMetric[metric], result.AdditionalUsers)

			if result.Power < params.Alpha {
				lowPowerRows = append(lowPowerRows, LowPowerRow{
					Metric:                strconv.Itoa(metric),
					Variation:             strconv.Itoa(variation),
					EffectSize:            response.EffectSize,
					Power:                 result.Power,
					AdditionalDaysNeeded:  result.AdditionalDays,
					AdditionalUsersNeeded: result.AdditionalUsers,
				})
			}
		}
	}

	minPower := maxPowerByMetric[0]
	bestPower := maxPowerByMetric[0]
	var days, users float64
	for i := range maxPowerByMetric {
		minPower = math.Min(minPower, maxPowerByMetric[i])
		bestPower = math.Max(bestPower, maxPowerByMetric[i])
		days = math.Max(days, maxDaysByMetric[i])
		users = math.Max(users, maxUsersByMetric[i])
	}

	result := MidExperimentResult{
		Type:            ResultSuccess,
		Power:           minPower,
		AdditionalDays:  days,
		AdditionalUsers: users,
		LowPowerWarning: minPower < params.Alpha,
	}
	// The table is only useful when nothing in the experiment is powered.
	if bestPower < params.Alpha {
		result.LowPowerTable = lowPowerRows
	}
	return result
}
