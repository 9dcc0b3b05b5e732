package stats

import "math"

// Confidence performs a pooled two-proportion z-test between variant A and
// variant B and returns the two-tailed confidence (0-1) that the observed
// conversion-rate difference is real.
func Confidence(aConv, aVisitors, bConv, bVisitors int) float64 {
	// Need data from both variants
	if aVisitors == 0 || bVisitors == 0 {
		return 0
	}

	pA := float64(aConv) / float64(aVisitors)
	pB := float64(bConv) / float64(bVisitors)

	// Pooled proportion under the null hypothesis (pA = pB)
	pooledP := float64(aConv+bConv) / float64(aVisitors+bVisitors)

	// Standard error of the difference
	se := math.Sqrt(pooledP * (1 - pooledP) * (1/float64(aVisitors) + 1/float64(bVisitors)))

	if se == 0 {
		if pA != pB {
			return 1.0
		}
		return 0
	}

	z := (pB - pA) / se

	// Two-tailed: confidence = 1 - p = 2*Phi(|z|) - 1
	confidence := 2*normalCDF(math.Abs(z)) - 1
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// normalCDF approximates the cumulative distribution function
// of the standard normal distribution
func normalCDF(x float64) float64 {
	// Use the approximation from Abramowitz and Stegun
	// Handbook of Mathematical Functions, formula 7.1.26
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
