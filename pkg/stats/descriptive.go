// Package stats provides the numeric primitives shared by the analysis
// engines: descriptive moments, quantiles, correlation, robust dispersion,
// a Shapiro–Wilk normality test and 2-D density-based clustering.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, NaN for empty input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// StdDev returns the sample standard deviation (n−1 denominator), NaN when
// fewer than two values.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// PopStdDev returns the population standard deviation (n denominator).
func PopStdDev(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := stat.Mean(x, nil)
	var ss float64
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}

// Skewness returns the sample skewness, NaN when undefined.
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return math.NaN()
	}
	return stat.Skew(x, nil)
}

// Kurtosis returns the excess kurtosis, NaN when undefined.
func Kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return math.NaN()
	}
	return stat.ExKurtosis(x, nil)
}

// Median returns the middle value, NaN for empty input.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// Quantile computes the q-th quantile with linear interpolation between
// order statistics (the same scheme pandas/numpy use by default), so IQR
// bounds match what the quality thresholds were calibrated against.
func Quantile(x []float64, q float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Pearson returns the Pearson correlation coefficient of two equal-length
// series, NaN when either side has zero variance.
func Pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// MedianAbsDeviation returns the median of absolute deviations from the median.
func MedianAbsDeviation(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	med := Median(x)
	devs := make([]float64, len(x))
	for i, v := range x {
		devs[i] = math.Abs(v - med)
	}
	return Median(devs)
}

// ZScores returns standard scores computed with the population standard
// deviation. A zero-variance series yields all zeros.
func ZScores(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	m := Mean(x)
	sd := PopStdDev(x)
	if sd == 0 || math.IsNaN(sd) {
		return out
	}
	for i, v := range x {
		out[i] = (v - m) / sd
	}
	return out
}

// Standardize returns (x − mean) / populationStd per element. Zero variance
// leaves values centered at zero.
func Standardize(x []float64) []float64 {
	out := make([]float64, len(x))
	m := Mean(x)
	sd := PopStdDev(x)
	for i, v := range x {
		if sd == 0 || math.IsNaN(sd) {
			out[i] = 0
			continue
		}
		out[i] = (v - m) / sd
	}
	return out
}

// Min returns the smallest value, NaN for empty input.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value, NaN for empty input.
func Max(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
