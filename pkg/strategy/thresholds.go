package strategy

import (
	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/stats"
)

// ThresholdSet holds the entry/exit bands around the rolling spread mean.
// With exitSize <= enterSize the ordering is
// LowerLimit <= LowMedium <= Mean <= UpMedium <= UpperLimit.
type ThresholdSet struct {
	Mean float64
	Std  float64

	UpperLimit float64 // entry band, short the spread above this
	LowerLimit float64 // entry band, long the spread below this
	UpMedium   float64 // exit band for a short spread
	LowMedium  float64 // exit band for a long spread
}

// ComputeThresholds builds the band set from aligned lookback windows of the
// two legs. Std is the sample (n-1) standard deviation of the per-bar spread.
func ComputeThresholds(prices0, prices1 []float64, enterSize, exitSize float64) ThresholdSet {
	n := len(prices0)
	if len(prices1) < n {
		n = len(prices1)
	}

	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		spread[i] = prices0[i] - prices1[i]
	}

	mean := stats.Mean(spread)
	std := stats.SampleStdDev(spread)

	return ThresholdSet{
		Mean:       mean,
		Std:        std,
		UpperLimit: mean + enterSize*std,
		LowerLimit: mean - enterSize*std,
		UpMedium:   mean + exitSize*std,
		LowMedium:  mean - exitSize*std,
	}
}
