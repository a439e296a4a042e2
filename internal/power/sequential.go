package power

import (
	"math"

	"github.com/headline-goat/powergoat/internal/stats"
)

// SequentialRho is the mixture-variance constant of the always-valid
// confidence sequence for a given alpha and tuning parameter (the sample
// size at which the sequence is tightest).
func SequentialRho(alpha, tuning float64) float64 {
	return math.Sqrt((-2*math.Log(alpha) + math.Log(-2*math.Log(alpha)+1)) / tuning)
}

// SequentialDiscriminant is the squared halfwidth multiplier of the
// confidence sequence at sample size n, per unit of s².
func SequentialDiscriminant(n, rho, alpha float64) float64 {
	nRho2 := n * rho * rho
	return 2 * (nRho2 + 1) * math.Log(math.Sqrt(nRho2+1)/alpha) / math.Pow(n*rho, 2)
}

// SequentialPowerSequentialVariance inflates a per-unit variance so that a
// fixed-horizon z-test at alpha has the width of the confidence sequence.
func SequentialPowerSequentialVariance(variance, n, alpha, tuning float64) float64 {
	standardErrorSampleMean := math.Sqrt(variance / n)
	rho := SequentialRho(alpha, tuning)
	zSequential := math.Sqrt(n) * math.Sqrt(SequentialDiscriminant(n, rho, alpha))
	zStar := stats.Quantile(1 - 0.5*alpha)
	standardErrorSequential := standardErrorSampleMean * zSequential / zStar
	return n * standardErrorSequential * standardErrorSequential
}

// SequentialPowerStandardError is the standard error used for power when
// sequential testing is on.
func SequentialPowerStandardError(metric MetricParams, n float64, nVariations int, alpha, tuning float64, relative bool) float64 {
	mean := metric.MetricMean()
	variance := metric.MetricVariance()
	perArm := n / float64(nVariations)
	v := FrequentistVariance(
		variance, mean, perArm,
		variance, mean*(1+metric.EffectSize), perArm,
		relative,
	)
	return math.Sqrt(SequentialPowerSequentialVariance(v, 2*n/float64(nVariations), alpha, tuning))
}

// SequentialIntervalHalfwidth is the halfwidth of the always-valid interval.
// s2 is the sample size times the variance of the effect estimate and n the
// total sample size.
func SequentialIntervalHalfwidth(s2, n, tuning, alpha float64) float64 {
	rho := SequentialRho(alpha, tuning)
	return math.Sqrt(s2) * math.Sqrt(SequentialDiscriminant(n, rho, alpha))
}
