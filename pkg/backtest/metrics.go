package backtest

import (
	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/stats"
	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/strategy"
)

// TradeStatistics summarizes the trade episodes inferred from a per-bar
// position-status series.
type TradeStatistics struct {
	// NResolvedTrades counts episodes that fully closed within the run.
	NResolvedTrades int

	// NUnresolvedTrades is 1 when an episode is still open at the end,
	// else 0.
	NUnresolvedTrades int

	// NTrades is the sum of resolved and unresolved episodes.
	NTrades int

	// AvgHoldingPeriod is the mean bar count of resolved episodes,
	// or -1 when none resolved.
	AvgHoldingPeriod float64

	// LenUnresolvedTrade is the bar count of the still-open episode,
	// or -1 when there is none.
	LenUnresolvedTrade int
}

// ComputeTradeStatistics segments a status series into trade episodes in a
// single left-to-right scan. A direct short/long flip closes one episode and
// opens the next at the same bar, so no bar is lost to the accounting.
func ComputeTradeStatistics(status []strategy.PositionStatus) TradeStatistics {
	var (
		n        int
		mean     float64
		counter  int
		curState strategy.PositionStatus
	)

	for _, s := range status {
		if curState == strategy.StatusFlat {
			if s == strategy.StatusFlat {
				continue
			}
			// entered a position
			curState = s
			counter = 1
		} else {
			if s != curState {
				// episode closed (back to flat or direct flip)
				mean = (float64(n)*mean + float64(counter)) / float64(n+1)
				n++
				counter = 1
				curState = s
			} else {
				counter++
			}
		}
	}

	result := TradeStatistics{
		NResolvedTrades:    n,
		AvgHoldingPeriod:   -1,
		LenUnresolvedTrade: -1,
	}
	if curState != strategy.StatusFlat {
		result.NUnresolvedTrades = 1
		result.LenUnresolvedTrade = counter
	}
	result.NTrades = result.NResolvedTrades + result.NUnresolvedTrades
	if n > 0 {
		result.AvgHoldingPeriod = mean
	}
	return result
}

// MetricsCollector records the per-bar position status and portfolio value
// once the pair has enough history, and derives the end-of-run statistics.
type MetricsCollector struct {
	lookback int

	status []strategy.PositionStatus
	pv     *stats.TimeSeries
}

// NewMetricsCollector creates a collector gated on lookback bars of history.
func NewMetricsCollector(lookback int) *MetricsCollector {
	return &MetricsCollector{
		lookback: lookback,
		status:   make([]strategy.PositionStatus, 0, 1024),
		pv:       stats.NewTimeSeries("portfolio_value", 0),
	}
}

// Record appends one bar's status and portfolio value. Bars before both legs
// have lookback bars of history are skipped.
func (m *MetricsCollector) Record(len0, len1 int, status strategy.PositionStatus, portfolioValue float64, timestampNs int64) {
	if len0 < m.lookback || len1 < m.lookback {
		return
	}

	m.status = append(m.status, status)
	m.pv.Append(portfolioValue, timestampNs)
}

// TradeStatistics segments the recorded status series.
func (m *MetricsCollector) TradeStatistics() TradeStatistics {
	return ComputeTradeStatistics(m.status)
}

// ReturnsStd is the sample standard deviation of bar-to-bar portfolio value
// changes.
func (m *MetricsCollector) ReturnsStd() float64 {
	return stats.SampleStdDev(stats.Diff(m.pv.GetAll()))
}

// PortfolioValues returns the recorded portfolio value curve.
func (m *MetricsCollector) PortfolioValues() []float64 {
	return m.pv.GetAll()
}

// StatusSeries returns a copy of the recorded status series.
func (m *MetricsCollector) StatusSeries() []strategy.PositionStatus {
	out := make([]strategy.PositionStatus, len(m.status))
	copy(out, m.status)
	return out
}

// Len returns the number of recorded bars.
func (m *MetricsCollector) Len() int {
	return len(m.status)
}
