package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// SRMPValue tests observed users per variation against the expected traffic
// split with a chi-square goodness-of-fit test and returns the p-value. A
// small p-value means a sample ratio mismatch. Variations with no users or
// no weight are skipped; with fewer than two left there is nothing to test
// and the p-value is 1.
func SRMPValue(users, weights []float64) (float64, error) {
	if len(users) != len(weights) {
		return 0, fmt.Errorf("got %d user counts for %d weights", len(users), len(weights))
	}

	var observed, expected []float64
	var totalUsers, totalWeight float64
	for i := range users {
		if users[i] <= 0 || weights[i] <= 0 {
			continue
		}
		observed = append(observed, users[i])
		expected = append(expected, weights[i])
		totalUsers += users[i]
		totalWeight += weights[i]
	}
	if len(observed) < 2 {
		return 1, nil
	}

	var x float64
	for i, o := range observed {
		e := expected[i] / totalWeight * totalUsers
		x += (o - e) * (o - e) / e
	}

	return distuv.ChiSquared{K: float64(len(observed) - 1)}.Survival(x), nil
}
