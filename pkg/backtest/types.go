package backtest

import (
	"time"

	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/strategy"
)

// Bar is a single close-price bar loaded from CSV.
type Bar struct {
	TimestampNs int64
	Symbol      string
	Close       float64
}

// Fill records one executed order.
type Fill struct {
	OrderID   string
	Symbol    string
	Side      strategy.OrderSide
	Price     float64
	Size      int64
	Timestamp time.Time
}

// BacktestResult contains the complete backtest results.
type BacktestResult struct {
	// Basic info
	Name        string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Bars        int
	InitialCash float64
	FinalValue  float64

	// Performance
	TotalPNL        float64
	TotalReturn     float64
	ReturnsStd      float64
	TotalCommission float64

	// Trade records
	Fills      []*Fill
	TradeStats TradeStatistics
}
