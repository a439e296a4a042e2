package power

import (
	"math"

	"github.com/headline-goat/powergoat/internal/stats"
)

// FrequentistVariance returns the variance of the difference between a
// treatment (B) and control (A) estimate. With relative set it is the
// delta-method variance of the ratio (B-A)/A.
func FrequentistVariance(varA, meanA, nA, varB, meanB, nB float64, relative bool) float64 {
	if relative {
		return varB/(meanA*meanA*nB) + varA*meanB*meanB/(math.Pow(meanA, 4)*nA)
	}
	return varB/nB + varA/nA
}

// PowerStandardError is the standard error of the lift estimate when the
// treatment mean is the control mean shifted by the metric's effect size.
func PowerStandardError(metric MetricParams, nPerVariation float64, relative bool) float64 {
	mean := metric.MetricMean()
	variance := metric.MetricVariance()
	return math.Sqrt(FrequentistVariance(
		variance, mean, nPerVariation,
		variance, mean*(1+metric.EffectSize), nPerVariation,
		relative,
	))
}

// PowerEstFrequentist estimates the power to detect metric.EffectSize with n
// total users split over nVariations arms. sequentialTuning > 0 switches to
// the always-valid standard error. It returns NaN for a degenerate metric or
// a standard error that is not finite and positive.
func PowerEstFrequentist(metric MetricParams, n float64, nVariations int, alpha float64, twoTailed bool, sequentialTuning float64) float64 {
	if metric.Degenerate() != "" {
		return math.NaN()
	}

	var zStar float64
	if twoTailed {
		zStar = stats.Quantile(1 - 0.5*alpha)
	} else {
		zStar = stats.Quantile(1 - alpha)
	}

	var standardError float64
	if sequentialTuning > 0 {
		standardError = SequentialPowerStandardError(metric, n, nVariations, alpha, sequentialTuning, true)
	} else {
		standardError = PowerStandardError(metric, n/float64(nVariations), true)
	}
	if !(standardError > 0) || math.IsInf(standardError, 0) {
		return math.NaN()
	}

	standardizedEffect := metric.EffectSize / standardError
	power := 1 - stats.CDF(zStar-standardizedEffect)
	if twoTailed {
		power += stats.CDF(-zStar - standardizedEffect)
	}
	return power
}

// FindMDEFrequentist solves for the smallest relative lift reaching the
// given power with n total users. The lift is the positive root of a
// quadratic in the treatment mean.
func FindMDEFrequentist(metric MetricParams, power, n float64, nVariations int, alpha, sequentialTuning float64) MDEResult {
	if power <= alpha {
		return mdeError("power must be greater than alpha.")
	}
	if desc := metric.Degenerate(); desc != "" {
		return mdeError(desc)
	}

	nA := n / float64(nVariations)
	z := stats.Quantile(1-0.5*alpha) - stats.Quantile(1-power)
	m := metric.MetricMean()
	v := metric.MetricVariance()
	if sequentialTuning > 0 {
		v = SequentialPowerSequentialVariance(v, 2*nA, alpha, sequentialTuning)
	}

	// The term under the radical must be non-negative and the leading
	// coefficient positive for a positive solution to exist.
	if nA <= v*z*z/(m*m) {
		return mdeError("need to increase number of users or reduce number of variations.")
	}

	sigma2 := v / nA
	a := 1 - z*z*sigma2/(m*m)
	b := -2 * m
	c := m*m - z*z*sigma2
	disc := b*b - 4*a*c
	treatmentMean := (-b + math.Sqrt(disc)) / (2 * a)

	mde := (treatmentMean - m) / m
	if math.IsNaN(mde) || math.IsInf(mde, 0) {
		return mdeError("need to increase number of users or reduce number of variations.")
	}
	return mdeSuccess(mde)
}
