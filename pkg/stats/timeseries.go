// Package stats provides statistical functions and time series containers
// used by the spread strategy and the backtest metrics.
package stats

import (
	"math"
)

// RollingWindowStats holds the statistics of one rolling window.
type RollingWindowStats struct {
	Mean     float64
	Std      float64
	Variance float64
	Count    int
}

// CalculateRollingStats computes mean, variance and std over the most recent
// period data points in a single pass. Population (1/n) variance.
func CalculateRollingStats(data []float64, period int) RollingWindowStats {
	if len(data) == 0 {
		return RollingWindowStats{}
	}

	n := len(data)
	if period <= 0 || period > n {
		period = n
	}

	recent := data[n-period:]

	var sum float64
	for _, val := range recent {
		sum += val
	}
	mean := sum / float64(len(recent))

	var variance float64
	for _, val := range recent {
		diff := val - mean
		variance += diff * diff
	}
	variance /= float64(len(recent))

	return RollingWindowStats{
		Mean:     mean,
		Std:      math.Sqrt(variance),
		Variance: variance,
		Count:    len(recent),
	}
}

// Mean computes the arithmetic mean.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sum float64
	for _, val := range data {
		sum += val
	}
	return sum / float64(len(data))
}

// Variance computes the population (1/n) variance.
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	mean := Mean(data)
	var variance float64
	for _, val := range data {
		diff := val - mean
		variance += diff * diff
	}
	return variance / float64(len(data))
}

// StdDev computes the population standard deviation.
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// SampleVariance computes the sample (1/(n-1)) variance.
// The spread thresholds use this variant.
func SampleVariance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}

	mean := Mean(data)
	var variance float64
	for _, val := range data {
		diff := val - mean
		variance += diff * diff
	}
	return variance / float64(len(data)-1)
}

// SampleStdDev computes the sample standard deviation.
func SampleStdDev(data []float64) float64 {
	return math.Sqrt(SampleVariance(data))
}

// ZScore computes z = (x - μ) / σ.
func ZScore(value, mean, std float64) float64 {
	if std < 1e-10 {
		return 0
	}
	return (value - mean) / std
}

// Diff returns the first differences data[i] - data[i-1] (length n-1).
func Diff(data []float64) []float64 {
	if len(data) < 2 {
		return []float64{}
	}

	result := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		result[i-1] = data[i] - data[i-1]
	}
	return result
}
