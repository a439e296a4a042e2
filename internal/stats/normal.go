// Package stats holds the normal-distribution primitives the power and
// decision engines are built on.
package stats

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// unit is the standard normal. distuv.Normal has no mutable state once
// constructed, so a single value is safe for concurrent use.
var unit = distuv.UnitNormal

// NormalQuantile returns the inverse CDF of N(mean, sd²) at p, for p in (0, 1).
func NormalQuantile(p, mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd}.Quantile(p)
}

// NormalCDF returns P(X <= x) for X ~ N(mean, sd²).
func NormalCDF(x, mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd}.CDF(x)
}

// NormalPDF returns the density of N(mean, sd²) at x.
func NormalPDF(x, mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd}.Prob(x)
}

// Quantile is NormalQuantile for the standard normal.
func Quantile(p float64) float64 {
	return unit.Quantile(p)
}

// CDF is NormalCDF for the standard normal.
func CDF(x float64) float64 {
	return unit.CDF(x)
}

// PDF is NormalPDF for the standard normal.
func PDF(x float64) float64 {
	return unit.Prob(x)
}
