package backtest

import (
	"fmt"
	"log"
	"time"

	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/stats"
	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/strategy"
)

// BacktestRunner coordinates all components and drives the bar-synchronous
// replay loop. For each bar, prices are updated, the strategy decides,
// queued orders fill, and metrics are recorded, all before the next bar.
type BacktestRunner struct {
	config     *BacktestConfig
	dataReader *HistoricalDataReader
	broker     *SimBroker
	strat      *strategy.DistanceStrategy
	metrics    *MetricsCollector
	statistics *BacktestStatistics
	publisher  *EventPublisher

	series0 *stats.TimeSeries
	series1 *stats.TimeSeries
}

// NewBacktestRunner creates a new backtest runner
func NewBacktestRunner(config *BacktestConfig) (*BacktestRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &BacktestRunner{config: config}, nil
}

// Run runs the complete backtest
func (r *BacktestRunner) Run() (*BacktestResult, error) {
	log.Println("[Backtest] ========================================")
	log.Println("[Backtest] Starting backtest...")
	log.Println("[Backtest] ========================================")

	// 1. Load historical data
	log.Println("[Backtest] [1/6] Loading historical data...")
	r.dataReader = NewHistoricalDataReader(r.config)
	if err := r.dataReader.LoadData(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	log.Printf("[Backtest] Loaded %d bars per symbol", r.dataReader.GetBarCount())

	// 2. Initialize components
	log.Println("[Backtest] [2/6] Initializing components...")
	if err := r.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	// 3. Connect event publisher
	log.Println("[Backtest] [3/6] Setting up event publisher...")
	publisher, err := NewEventPublisher(r.config.Engine.NATSAddr, r.config.Backtest.Name, r.config.Engine.PublishEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	r.publisher = publisher

	// 4. Replay bars
	log.Println("[Backtest] [4/6] Replaying bars...")
	startTime := time.Now()
	bars, err := r.replay()
	if err != nil {
		return nil, fmt.Errorf("failed during replay: %w", err)
	}
	log.Printf("[Backtest] Replay completed: %d bars in %v", bars, time.Since(startTime))

	// 5. Stop strategy
	log.Println("[Backtest] [5/6] Stopping strategy...")
	r.strat.Stop()

	// 6. Generate statistics
	log.Println("[Backtest] [6/6] Generating statistics...")
	result := r.statistics.GenerateResult(r.broker, r.metrics, r.strat.TotalCommission(), bars)
	r.publisher.PublishSummary(result)

	r.cleanup()

	log.Println("[Backtest] ========================================")
	log.Println("[Backtest] Backtest completed successfully!")
	log.Println("[Backtest] ========================================")

	r.statistics.PrintSummary()

	return result, nil
}

// initialize wires the broker, the price series and the strategy
func (r *BacktestRunner) initialize() error {
	symbols := r.config.Backtest.Data.Symbols

	r.broker = NewSimBroker(r.config.Backtest.Initial.Capital)

	r.series0 = stats.NewTimeSeries(symbols[0], 0)
	r.series1 = stats.NewTimeSeries(symbols[1], 0)

	r.strat = strategy.NewDistanceStrategy(r.config.Backtest.Name, r.series0, r.series1, r.broker, r.broker)
	r.broker.SetOrderUpdateCallback(r.strat.OnOrderUpdate)

	if err := r.strat.Initialize(&strategy.Config{
		Symbols:    symbols,
		Parameters: r.config.Strategy.Parameters,
	}); err != nil {
		return fmt.Errorf("failed to initialize strategy: %w", err)
	}

	r.metrics = NewMetricsCollector(r.config.GetLookback())
	r.statistics = NewBacktestStatistics(r.config)

	log.Printf("[Backtest] Strategy initialized: pair %s/%s, lookback %d",
		symbols[0], symbols[1], r.config.GetLookback())
	return nil
}

// replay drives the bar loop and returns the number of bars processed
func (r *BacktestRunner) replay() (int, error) {
	symbols := r.config.Backtest.Data.Symbols

	bars0 := r.dataReader.Bars(symbols[0])
	bars1 := r.dataReader.Bars(symbols[1])
	if len(bars0) != len(bars1) {
		return 0, fmt.Errorf("bar count mismatch: %s has %d, %s has %d",
			symbols[0], len(bars0), symbols[1], len(bars1))
	}

	publishedFills := 0
	for i := range bars0 {
		bar0, bar1 := bars0[i], bars1[i]
		now := time.Unix(0, bar0.TimestampNs)

		r.broker.UpdatePrice(bar0.Symbol, bar0.Close)
		r.broker.UpdatePrice(bar1.Symbol, bar1.Close)
		r.series0.Append(bar0.Close, bar0.TimestampNs)
		r.series1.Append(bar1.Close, bar1.TimestampNs)

		r.strat.Next()
		r.broker.ProcessPending(now)

		value := r.broker.Value()
		r.metrics.Record(r.series0.Len(), r.series1.Len(), r.strat.Status(), value, bar0.TimestampNs)

		if r.config.Engine.PublishEvents {
			r.publisher.PublishBar(&BarEvent{
				Bar:            i,
				TimestampNs:    bar0.TimestampNs,
				Status:         int(r.strat.Status()),
				Spread:         r.strat.Spread(),
				PortfolioValue: value,
			})
			fills := r.broker.Fills()
			for ; publishedFills < len(fills); publishedFills++ {
				r.publisher.PublishFill(fills[publishedFills])
			}
		}
	}

	return len(bars0), nil
}

// cleanup releases external resources
func (r *BacktestRunner) cleanup() {
	log.Println("[Backtest] Cleaning up...")
	if r.publisher != nil {
		r.publisher.Close()
	}
}
