package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrSampleTooSmall is returned when fewer than 3 values are supplied.
	ErrSampleTooSmall = errors.New("shapiro-wilk: need at least 3 values")
	// ErrZeroRange is returned when every value is identical.
	ErrZeroRange = errors.New("shapiro-wilk: all values are identical")
)

// ShapiroWilk tests the null hypothesis that x was drawn from a normal
// distribution, following Royston's AS R94 approximation (valid for
// 3 ≤ n ≤ 5000). It returns the W statistic and the p-value.
//
// Callers are expected to cap very large samples themselves; the pattern
// analyzer passes at most the first 5,000 values.
func ShapiroWilk(x []float64) (w, p float64, err error) {
	n := len(x)
	if n < 3 {
		return 0, 0, ErrSampleTooSmall
	}

	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)
	if sorted[n-1]-sorted[0] == 0 {
		return 0, 0, ErrZeroRange
	}

	norm := distuv.UnitNormal

	// Expected normal order statistics (Blom approximation).
	m := make([]float64, n)
	var ssm float64
	for i := 0; i < n; i++ {
		m[i] = norm.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssm += m[i] * m[i]
	}

	// Polynomial-corrected weights for the two extreme order statistics.
	rsn := 1 / math.Sqrt(float64(n))
	a := make([]float64, n)
	an := poly([]float64{-2.706056, 4.434685, -2.071190, -0.147981, 0.221157, 0}, rsn) + m[n-1]/math.Sqrt(ssm)

	var phi float64
	if n > 5 {
		an1 := poly([]float64{-3.582633, 5.682633, -1.752461, -0.293762, 0.042981, 0}, rsn) + m[n-2]/math.Sqrt(ssm)
		phi = (ssm - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)
		a[n-1], a[n-2] = an, an1
		a[0], a[1] = -an, -an1
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	} else {
		phi = (ssm - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		a[n-1] = an
		a[0] = -an
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
	}

	mean := Mean(sorted)
	var num, den float64
	for i, v := range sorted {
		num += a[i] * v
		d := v - mean
		den += d * d
	}
	w = num * num / den
	if w > 1 {
		w = 1
	}

	// P-value per Royston's normalizing transformations.
	switch {
	case n == 3:
		p = (6 / math.Pi) * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		p = math.Min(math.Max(p, 0), 1)
	case n <= 11:
		fn := float64(n)
		g := -2.273 + 0.459*fn
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		arg := g - math.Log(1-w)
		if arg <= 0 {
			p = 0
			break
		}
		z := (-math.Log(arg) - mu) / sigma
		p = norm.Survival(z)
	default:
		ln := math.Log(float64(n))
		mu := -1.5861 - 0.31082*ln - 0.083751*ln*ln + 0.0038915*ln*ln*ln
		sigma := math.Exp(-0.4803 - 0.082676*ln + 0.0030302*ln*ln)
		z := (math.Log(1-w) - mu) / sigma
		p = norm.Survival(z)
	}

	return w, p, nil
}

// poly evaluates c[0]·x⁵ + c[1]·x⁴ + … + c[5] (Horner form).
func poly(c []float64, x float64) float64 {
	r := 0.0
	for _, coef := range c {
		r = r*x + coef
	}
	return r
}
