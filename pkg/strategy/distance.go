package strategy

import (
	"fmt"
	"log"
	"sync"
)

// DistanceStrategy implements distance-method pairs trading: it watches the
// price spread between two co-moving instruments and trades its reversion to
// a rolling mean. Entry when the spread leaves the enter band, exit on
// reversion into the exit band, forced exit on the loss limit or a wiped-out
// short leg.
type DistanceStrategy struct {
	ID string

	// Strategy parameters
	lookback           int
	maxLookback        int
	enterThresholdSize float64
	exitThresholdSize  float64
	lossLimit          float64

	// Verbosity toggles (printing only, no behavioral impact)
	printBar         bool
	printMsg         bool
	printTransaction bool

	symbol0 string
	symbol1 string

	// Host collaborators
	data0    MarketData
	data1    MarketData
	broker   Broker
	executor OrderExecutor

	// State
	status     PositionStatus
	open       *OpenTrade // nil while flat
	thresholds ThresholdSet
	spread     float64

	// Outstanding order latch: the strategy refuses to act while any
	// submitted order lacks a terminal notification. Entries and exits
	// submit one order per leg, hence a counter rather than a bool.
	pendingOrders int

	startingValue   float64
	totalCommission float64

	mu sync.RWMutex
}

// NewDistanceStrategy creates a distance-method strategy bound to its host
// collaborators.
func NewDistanceStrategy(id string, data0, data1 MarketData, broker Broker, executor OrderExecutor) *DistanceStrategy {
	return &DistanceStrategy{
		ID:                 id,
		lookback:           84,
		maxLookback:        84,
		enterThresholdSize: 2.0,
		exitThresholdSize:  0.5,
		lossLimit:          -0.015,
		printBar:           true,
		data0:              data0,
		data1:              data1,
		broker:             broker,
		executor:           executor,
		status:             StatusFlat,
	}
}

// Initialize applies the pair and the tunable parameters.
func (ds *DistanceStrategy) Initialize(config *Config) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if len(config.Symbols) != 2 {
		return fmt.Errorf("distance strategy requires exactly 2 symbols, got %d", len(config.Symbols))
	}
	ds.symbol0 = config.Symbols[0]
	ds.symbol1 = config.Symbols[1]

	if val, ok := config.Parameters["lookback"].(int); ok {
		ds.lookback = val
	} else if val, ok := config.Parameters["lookback"].(float64); ok {
		ds.lookback = int(val)
	}
	if val, ok := config.Parameters["max_lookback"].(int); ok {
		ds.maxLookback = val
	} else if val, ok := config.Parameters["max_lookback"].(float64); ok {
		ds.maxLookback = int(val)
	}
	if val, ok := config.Parameters["enter_threshold_size"].(float64); ok {
		ds.enterThresholdSize = val
	}
	if val, ok := config.Parameters["exit_threshold_size"].(float64); ok {
		ds.exitThresholdSize = val
	}
	if val, ok := config.Parameters["loss_limit"].(float64); ok {
		ds.lossLimit = val
	}
	if val, ok := config.Parameters["print_bar"].(bool); ok {
		ds.printBar = val
	}
	if val, ok := config.Parameters["print_msg"].(bool); ok {
		ds.printMsg = val
	}
	if val, ok := config.Parameters["print_transaction"].(bool); ok {
		ds.printTransaction = val
	}

	if ds.lookback <= 1 {
		return fmt.Errorf("lookback must be > 1, got %d", ds.lookback)
	}
	if ds.maxLookback < ds.lookback {
		return fmt.Errorf("max_lookback (%d) must be >= lookback (%d)", ds.maxLookback, ds.lookback)
	}
	if ds.lossLimit >= 0 {
		return fmt.Errorf("loss_limit must be negative, got %v", ds.lossLimit)
	}

	ds.startingValue = ds.broker.Value()

	log.Printf("[DistanceStrategy:%s] Initialized %s/%s, lookback=%d, enter=%.2f, exit=%.2f, loss_limit=%.4f",
		ds.ID, ds.symbol0, ds.symbol1, ds.lookback, ds.enterThresholdSize, ds.exitThresholdSize, ds.lossLimit)

	return nil
}

// Next runs the per-bar decision logic. The host calls it exactly once per
// bar after both legs have been updated.
func (ds *DistanceStrategy) Next() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.data0.Len() < ds.maxLookback || ds.data1.Len() < ds.maxLookback {
		return
	}

	if ds.printBar {
		fmt.Print("-")
	}

	if ds.pendingOrders > 0 {
		// An order is still in flight; no new orders are allowed.
		return
	}

	price0, ok0 := ds.data0.At(0)
	price1, ok1 := ds.data1.At(0)
	if !ok0 || !ok1 {
		return
	}

	ds.spread = price0 - price1

	// Thresholds are refreshed on every flat bar, so at the moment of an
	// entry they always reflect the most recent lookback window.
	if ds.status == StatusFlat {
		ds.thresholds = ComputeThresholds(
			ds.data0.Get(ds.lookback, 0),
			ds.data1.Get(ds.lookback, 0),
			ds.enterThresholdSize,
			ds.exitThresholdSize,
		)
	}

	switch ds.status {
	case StatusFlat:
		if ds.spread > ds.thresholds.UpperLimit {
			ds.shortSpread(price0, price1)
		} else if ds.spread < ds.thresholds.LowerLimit {
			ds.longSpread(price0, price1)
		}

	case StatusShortSpread:
		// short instrument0, long instrument1
		if ds.spread < ds.thresholds.LowerLimit {
			ds.longSpread(price0, price1)
		} else if ds.spread < ds.thresholds.UpMedium {
			ds.exitSpread()
		} else if ds.stopLossHit(price1, price0, ds.open.EntryPrice0, ds.open.Qty1, ds.open.Qty0) {
			ds.exitSpread()
		}

	case StatusLongSpread:
		// long instrument0, short instrument1
		if ds.spread > ds.thresholds.UpperLimit {
			ds.shortSpread(price0, price1)
		} else if ds.spread > ds.thresholds.LowMedium {
			ds.exitSpread()
		} else if ds.stopLossHit(price0, price1, ds.open.EntryPrice1, ds.open.Qty0, ds.open.Qty1) {
			ds.exitSpread()
		}
	}
}

// stopLossHit evaluates the loss limit for the open trade. The long leg is
// marked at its current price, the short leg under the 150% collateral
// convention against its entry price.
func (ds *DistanceStrategy) stopLossHit(longPrice, shortPrice, shortEntry float64, longQty, shortQty int64) bool {
	longPV := longPortfolioValue(longPrice, longQty)
	shortPV := shortPortfolioValue(shortEntry, shortPrice, shortQty)

	netGainLong := longPV - ds.open.InitialLongPV
	netGainShort := shortPV - ds.open.InitialShortPV

	ret := (netGainLong + netGainShort) / ds.open.InitialCash

	if ret < ds.lossLimit || shortPV <= 0 {
		if ds.printMsg {
			log.Printf("[DistanceStrategy:%s] Loss limit hit: return=%.4f (limit=%.4f), short_pv=%.2f",
				ds.ID, ret, ds.lossLimit, shortPV)
		}
		return true
	}
	return false
}

// shortSpread enters (or flips into) a short-spread position: sell
// instrument0, buy instrument1. Order sizes include the unwind of any
// opposite open quantity, so a direct flip needs no separate close step.
func (ds *DistanceStrategy) shortSpread(price0, price1 float64) {
	value := ds.broker.Value()
	x := int64((2 * value / 3.0) / price0)
	y := int64((2 * value / 3.0) / price1)

	var prevQty0, prevQty1 int64
	if ds.open != nil {
		prevQty0 = ds.open.Qty0
		prevQty1 = ds.open.Qty1
	}

	ds.submit(ds.symbol0, -(x + prevQty0))
	ds.submit(ds.symbol1, y+prevQty1)

	ds.status = StatusShortSpread
	ds.open = &OpenTrade{
		Qty0:           x,
		Qty1:           y,
		EntryPrice0:    price0,
		EntryPrice1:    price1,
		InitialCash:    float64(y)*price1 + 0.5*float64(x)*price0,
		InitialLongPV:  longPortfolioValue(price1, y),
		InitialShortPV: 0.5 * price0 * float64(x),
	}

	if ds.printMsg {
		log.Printf("[DistanceStrategy:%s] SHORT spread: spread=%.4f > upper=%.4f, sell %d %s / buy %d %s",
			ds.ID, ds.spread, ds.thresholds.UpperLimit, x, ds.symbol0, y, ds.symbol1)
	}
}

// longSpread enters (or flips into) a long-spread position: buy instrument0,
// sell instrument1.
func (ds *DistanceStrategy) longSpread(price0, price1 float64) {
	value := ds.broker.Value()
	x := int64((2 * value / 3.0) / price0)
	y := int64((2 * value / 3.0) / price1)

	var prevQty0, prevQty1 int64
	if ds.open != nil {
		prevQty0 = ds.open.Qty0
		prevQty1 = ds.open.Qty1
	}

	ds.submit(ds.symbol0, x+prevQty0)
	ds.submit(ds.symbol1, -(y + prevQty1))

	ds.status = StatusLongSpread
	ds.open = &OpenTrade{
		Qty0:           x,
		Qty1:           y,
		EntryPrice0:    price0,
		EntryPrice1:    price1,
		InitialCash:    float64(x)*price0 + 0.5*float64(y)*price1,
		InitialLongPV:  longPortfolioValue(price0, x),
		InitialShortPV: 0.5 * price1 * float64(y),
	}

	if ds.printMsg {
		log.Printf("[DistanceStrategy:%s] LONG spread: spread=%.4f < lower=%.4f, buy %d %s / sell %d %s",
			ds.ID, ds.spread, ds.thresholds.LowerLimit, x, ds.symbol0, y, ds.symbol1)
	}
}

// exitSpread closes both legs and returns to flat.
func (ds *DistanceStrategy) exitSpread() {
	ds.executor.ClosePosition(ds.symbol0)
	ds.pendingOrders++
	ds.executor.ClosePosition(ds.symbol1)
	ds.pendingOrders++

	ds.status = StatusFlat
	ds.open = nil

	if ds.printMsg {
		log.Printf("[DistanceStrategy:%s] EXIT spread: spread=%.4f, mean=%.4f", ds.ID, ds.spread, ds.thresholds.Mean)
	}
}

// submit places one signed-size order and arms the pending latch.
func (ds *DistanceStrategy) submit(symbol string, size int64) {
	ds.executor.Submit(symbol, size)
	ds.pendingOrders++
}

// OnOrderUpdate handles order notifications from the host broker. Completed
// fills incur commission; any terminal status releases the pending latch.
func (ds *DistanceStrategy) OnOrderUpdate(update *OrderUpdate) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	switch update.Status {
	case OrderStatusSubmitted, OrderStatusAccepted:
		// Await further notifications
		return

	case OrderStatusCompleted:
		if ds.printTransaction {
			log.Printf("[DistanceStrategy:%s] %s COMPLETE, %.2f x %d %s",
				ds.ID, update.Side, update.Price, update.Size, update.Symbol)
		}
		ds.incurCommission(update.Price, update.Size)

	case OrderStatusExpired, OrderStatusCanceled, OrderStatusMargin:
		if ds.printTransaction {
			log.Printf("[DistanceStrategy:%s] order %s: %s", ds.ID, update.OrderID, update.Status)
		}
	}

	// Allow new orders
	if ds.pendingOrders > 0 {
		ds.pendingOrders--
	}
}

// incurCommission deducts the fill commission from cash.
func (ds *DistanceStrategy) incurCommission(price float64, qty int64) {
	commission := Commission(price, qty)
	ds.totalCommission += commission
	ds.broker.AddCash(-commission)
}

// Stop logs the end-of-run summary.
func (ds *DistanceStrategy) Stop() {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.printBar {
		fmt.Println()
	}

	if ds.printMsg {
		log.Printf("[DistanceStrategy:%s] Starting value: %.2f", ds.ID, ds.startingValue)
		log.Printf("[DistanceStrategy:%s] Ending   value: %.2f", ds.ID, ds.broker.Value())
	}
}

// Status returns the current position status.
func (ds *DistanceStrategy) Status() PositionStatus {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.status
}

// Spread returns the spread at the most recent processed bar.
func (ds *DistanceStrategy) Spread() float64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.spread
}

// Thresholds returns the bands from the most recent flat bar.
func (ds *DistanceStrategy) Thresholds() ThresholdSet {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.thresholds
}

// OpenTradeInfo returns a copy of the open trade record, or nil while flat.
func (ds *DistanceStrategy) OpenTradeInfo() *OpenTrade {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if ds.open == nil {
		return nil
	}
	open := *ds.open
	return &open
}

// TotalCommission returns the commission charged so far.
func (ds *DistanceStrategy) TotalCommission() float64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.totalCommission
}

// PendingOrders returns the number of orders awaiting a terminal
// notification.
func (ds *DistanceStrategy) PendingOrders() int {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.pendingOrders
}
