package power

import (
	"fmt"
	"math"
	"sort"
)

// PowerMetricWeeks computes, for every metric and every week of accumulated
// traffic, the power to detect the metric's effect size and the MDE at the
// default target power. It also reports when each metric first reaches the
// runtime power target and the overall recommended duration.
func PowerMetricWeeks(params PowerCalculationParams) PowerCalculationResult {
	keys := make([]string, 0, len(params.Metrics))
	for key := range params.Metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if desc := params.Metrics[key].Degenerate(); desc != "" {
			return PowerCalculationResult{
				Type:        ResultError,
				Description: fmt.Sprintf("metric %q: %s", key, desc),
			}
		}
	}

	weeks := make([]Week, params.NWeeks)
	for i := range weeks {
		weeks[i] = Week{
			Users:   float64(i+1) * params.UsersPerWeek,
			Metrics: make(map[string]WeekMetric, len(params.Metrics)),
		}
	}

	runtimes := make(map[string]*SampleSizeAndRuntime, len(keys))
	var weekThreshold *int

	for _, key := range keys {
		metric := params.Metrics[key]

		var effectSize *float64
		runtimeWeek := 0
		thresholdWeek := -1

		for j := 0; j < params.NWeeks; j++ {
			n := params.UsersPerWeek * float64(j+1)
			power, mde := weekEstimate(params, metric, n)

			if runtimeWeek == 0 && math.Round(power*100)/100 >= DefaultTargetPower {
				runtimeWeek = j + 1
			}
			if mde.OK() {
				v := mde.MDE
				effectSize = &v
			}
			if thresholdWeek < 0 && params.TargetPower < power {
				thresholdWeek = j
			}

			weeks[j].Metrics[key] = WeekMetric{
				EffectSize:  effectSize,
				Power:       power,
				IsThreshold: thresholdWeek == j,
			}
		}

		if runtimeWeek == 0 {
			runtimes[key] = nil
			continue
		}
		runtimes[key] = &SampleSizeAndRuntime{
			Weeks: runtimeWeek,
			Users: params.UsersPerWeek * float64(runtimeWeek),
		}
		if weekThreshold == nil || runtimeWeek > *weekThreshold {
			w := runtimeWeek
			weekThreshold = &w
		}
	}

	return PowerCalculationResult{
		Type:                 ResultSuccess,
		Weeks:                weeks,
		SampleSizeAndRuntime: runtimes,
		WeekThreshold:        weekThreshold,
	}
}

func weekEstimate(params PowerCalculationParams, metric MetricParams, n float64) (float64, MDEResult) {
	nVariations := params.NVariations
	if params.StatsEngineSettings.Type == EngineBayesian {
		nPerVariation := n / float64(nVariations)
		return PowerEstBayesian(metric, params.Alpha, nPerVariation, true),
			FindMDEBayesian(metric, params.Alpha, DefaultTargetPower, nPerVariation, true)
	}

	tuning := params.StatsEngineSettings.TuningParameter()
	return PowerEstFrequentist(metric, n, nVariations, params.Alpha, true, tuning),
		FindMDEFrequentist(metric, DefaultTargetPower, n, nVariations, params.Alpha, tuning)
}
