package power

import (
	"fmt"
	"math"

	"github.com/headline-goat/powergoat/internal/stats"
)

const (
	mdeStepCoarse = 1e-3
	// 5000 coarse steps of 1e-3 cap the searched lift at 500%.
	mdeCoarseSteps = 5000
	mdeFineSteps   = 100
)

// CalculatePriorMean converts a relative prior mean to the absolute scale
// when inference is absolute.
func CalculatePriorMean(priorMeanRel, mean float64, relative bool) float64 {
	if relative {
		return priorMeanRel
	}
	return priorMeanRel * math.Abs(mean)
}

// CalculatePriorVariance converts a relative prior variance to the absolute
// scale when inference is absolute.
func CalculatePriorVariance(priorVarianceRel, mean float64, relative bool) float64 {
	if relative {
		return priorVarianceRel
	}
	return priorVarianceRel * mean * mean
}

// bayesianTerms gathers the quantities shared by both cutpoints.
type bayesianTerms struct {
	proper                 bool
	priorMeanSpecified     float64
	priorVarianceSpecified float64
	// The data generating process has a fixed effect, so its prior
	// variance is zero and its prior mean is the effect size.
	priorMeanDGP           float64
	tauHatVariance         float64
	posteriorPrecision     float64
	marginalVarianceTauHat float64
}

func newBayesianTerms(metric MetricParams, nPerVariation float64, relative bool) bayesianTerms {
	prior := metric.Prior()
	mean := metric.MetricMean()

	t := bayesianTerms{
		proper:                 prior.Proper,
		priorMeanSpecified:     CalculatePriorMean(prior.PriorLiftMean, mean, relative),
		priorVarianceSpecified: CalculatePriorVariance(prior.PriorLiftStandardDeviation*prior.PriorLiftStandardDeviation, mean, relative),
		priorMeanDGP:           CalculatePriorMean(metric.EffectSize, mean, relative),
	}

	se := PowerStandardError(metric, nPerVariation, relative)
	t.tauHatVariance = se * se
	t.marginalVarianceTauHat = t.tauHatVariance + CalculatePriorVariance(0, mean, relative)
	t.posteriorPrecision = 1 / t.tauHatVariance
	if t.proper {
		t.posteriorPrecision += 1 / t.priorVarianceSpecified
	}
	return t
}

// GetCutpoint returns the standardized rejection cutpoint of the lift
// estimate under the posterior decision rule. upper selects the positive
// side.
func GetCutpoint(metric MetricParams, alpha, nPerVariation float64, relative, upper bool) float64 {
	t := newBayesianTerms(metric, nPerVariation, relative)
	zStar := stats.Quantile(1 - 0.5*alpha)

	sign := -1.0
	if upper {
		sign = 1.0
	}

	numerator := sign*t.tauHatVariance*math.Sqrt(t.posteriorPrecision)*zStar - t.priorMeanDGP
	if t.proper {
		numerator -= t.tauHatVariance * t.priorMeanSpecified / t.priorVarianceSpecified
	}
	return numerator / math.Sqrt(t.marginalVarianceTauHat)
}

// PowerEstBayesian is the probability that the posterior interval excludes
// zero on either side.
func PowerEstBayesian(metric MetricParams, alpha, nPerVariation float64, relative bool) float64 {
	upper := GetCutpoint(metric, alpha, nPerVariation, relative, true)
	lower := GetCutpoint(metric, alpha, nPerVariation, relative, false)
	return (1 - stats.CDF(upper)) + stats.CDF(lower)
}

// FindMDEBayesian searches for the smallest non-negative lift whose Bayesian
// power reaches the target. metric is a copy; the search never touches the
// caller's record.
func FindMDEBayesian(metric MetricParams, alpha, power, nPerVariation float64, relative bool) MDEResult {
	if desc := metric.Degenerate(); desc != "" {
		return mdeError(desc)
	}
	if PowerEstBayesian(metric.WithEffectSize(0), alpha, nPerVariation, relative) >= power {
		return mdeSuccess(0)
	}

	maxError := stats.PDF(0) * mdeStepCoarse
	for i := 0; i < mdeCoarseSteps; i++ {
		effectSize := mdeStepCoarse * float64(i)
		current := PowerEstBayesian(metric.WithEffectSize(effectSize), alpha, nPerVariation, relative)
		if current < power-maxError {
			continue
		}
		if fine := sweepGridFine(metric, alpha, power, nPerVariation, relative, effectSize, mdeStepCoarse); fine.OK() {
			return fine
		}
	}

	return mdeError(fmt.Sprintf("MDE achieving power = %g does not exist.", power))
}

// sweepGridFine scans [upperBound-stepSize, upperBound) in 100 steps and
// returns the first lift that reaches the target power.
func sweepGridFine(metric MetricParams, alpha, power, nPerVariation float64, relative bool, upperBound, stepSize float64) MDEResult {
	stepFine := stepSize / mdeFineSteps
	lowerBound := upperBound - stepSize
	for k := 0; k < mdeFineSteps; k++ {
		effectSize := lowerBound + float64(k)*stepFine
		if PowerEstBayesian(metric.WithEffectSize(effectSize), alpha, nPerVariation, relative) >= power {
			return mdeSuccess(effectSize)
		}
	}
	return mdeError(fmt.Sprintf("MDE achieving power = %g does not exist in this range.", power))
}
