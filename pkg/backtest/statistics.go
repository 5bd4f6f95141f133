package backtest

import (
	"fmt"
	"strings"
	"time"
)

// BacktestStatistics assembles the final result from the broker and the
// per-bar metrics collector.
type BacktestStatistics struct {
	config    *BacktestConfig
	result    *BacktestResult
	startTime time.Time
}

// NewBacktestStatistics creates a new statistics collector.
func NewBacktestStatistics(config *BacktestConfig) *BacktestStatistics {
	return &BacktestStatistics{
		config:    config,
		startTime: time.Now(),
	}
}

// GenerateResult builds the final backtest result.
func (s *BacktestStatistics) GenerateResult(broker *SimBroker, metrics *MetricsCollector, totalCommission float64, bars int) *BacktestResult {
	endTime := time.Now()

	finalValue := broker.Value()
	initialCash := s.config.Backtest.Initial.Capital

	result := &BacktestResult{
		Name:            s.config.Backtest.Name,
		StartTime:       s.startTime,
		EndTime:         endTime,
		Duration:        endTime.Sub(s.startTime),
		Bars:            bars,
		InitialCash:     initialCash,
		FinalValue:      finalValue,
		TotalPNL:        finalValue - initialCash,
		ReturnsStd:      metrics.ReturnsStd(),
		TotalCommission: totalCommission,
		Fills:           broker.Fills(),
		TradeStats:      metrics.TradeStatistics(),
	}
	if initialCash > 0 {
		result.TotalReturn = result.TotalPNL / initialCash
	}

	s.result = result
	return result
}

// GetResult returns the assembled result, or nil if the run has not
// finished.
func (s *BacktestStatistics) GetResult() *BacktestResult {
	return s.result
}

// PrintSummary prints a summary of the backtest results.
func (s *BacktestStatistics) PrintSummary() {
	if s.result == nil {
		return
	}
	r := s.result

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("BACKTEST SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\nBacktest: %s\n", r.Name)
	fmt.Printf("Bars processed: %d (wall time %v)\n", r.Bars, r.Duration.Round(time.Millisecond))

	fmt.Printf("\nInitial Capital: %.2f\n", r.InitialCash)
	fmt.Printf("Final Value:     %.2f\n", r.FinalValue)
	fmt.Printf("Total PNL:       %.2f (%.2f%%)\n", r.TotalPNL, r.TotalReturn*100)
	fmt.Printf("Returns Std:     %.4f\n", r.ReturnsStd)

	fmt.Printf("\nTrade Statistics:\n")
	fmt.Printf("  Resolved Trades:     %d\n", r.TradeStats.NResolvedTrades)
	fmt.Printf("  Unresolved Trades:   %d\n", r.TradeStats.NUnresolvedTrades)
	fmt.Printf("  Total Trades:        %d\n", r.TradeStats.NTrades)
	if r.TradeStats.AvgHoldingPeriod >= 0 {
		fmt.Printf("  Avg Holding Period:  %.2f bars\n", r.TradeStats.AvgHoldingPeriod)
	} else {
		fmt.Printf("  Avg Holding Period:  n/a\n")
	}
	if r.TradeStats.LenUnresolvedTrade >= 0 {
		fmt.Printf("  Unresolved Length:   %d bars\n", r.TradeStats.LenUnresolvedTrade)
	}
	fmt.Printf("  Total Fills:         %d\n", len(r.Fills))
	fmt.Printf("  Total Commission:    %.2f\n", r.TotalCommission)

	fmt.Println(strings.Repeat("=", 60))
}
