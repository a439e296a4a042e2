package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/headline-goat/powergoat/internal/stats"
)

func TestQuantile_KnownValues(t *testing.T) {
	assert.InDelta(t, 1.959963984540054, stats.Quantile(0.975), 1e-12)
	assert.InDelta(t, 0.0, stats.Quantile(0.5), 1e-12)
	assert.InDelta(t, -1.6448536269514722, stats.Quantile(0.05), 1e-12)
}

func TestCDF_MatchesErfc(t *testing.T) {
	for _, x := range []float64{-4, -1.96, -0.5, 0, 0.3, 1, 2.5, 5} {
		want := 0.5 * math.Erfc(-x/math.Sqrt2)
		assert.InDelta(t, want, stats.CDF(x), 1e-14, "x=%v", x)
	}
}

func TestPDF_AtZero(t *testing.T) {
	assert.InDelta(t, 1/math.Sqrt(2*math.Pi), stats.PDF(0), 1e-15)
}

func TestNormal_NonStandard(t *testing.T) {
	assert.InDelta(t, 0.5, stats.NormalCDF(3, 3, 2), 1e-15)
	assert.InDelta(t, 3+2*1.959963984540054, stats.NormalQuantile(0.975, 3, 2), 1e-10)
	assert.InDelta(t, stats.PDF(0)/2, stats.NormalPDF(3, 3, 2), 1e-15)
}

func TestQuantile_InvertsCDF(t *testing.T) {
	for _, p := range []float64{0.001, 0.025, 0.2, 0.5, 0.8, 0.975, 0.999} {
		assert.InDelta(t, p, stats.CDF(stats.Quantile(p)), 1e-12, "p=%v", p)
	}
}
