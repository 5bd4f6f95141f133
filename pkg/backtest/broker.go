package backtest

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/strategy"
)

// SimBroker is the in-process host broker: it keeps cash and signed
// positions, marks the portfolio to the latest prices, and fills submitted
// orders at the current bar's close. Terminal order notifications are
// delivered when the runner calls ProcessPending, always before the next
// bar's decision logic.
//
// It implements both strategy.Broker and strategy.OrderExecutor.
type SimBroker struct {
	cash       float64
	positions  map[string]int64
	lastPrices map[string]float64

	pending []*pendingOrder
	fills   []*Fill

	onOrderUpdate func(*strategy.OrderUpdate)

	mu sync.Mutex
}

type pendingOrder struct {
	id     string
	symbol string
	size   int64 // signed; 0 means close the current position
	close  bool
}

// NewSimBroker creates a broker with the given starting cash.
func NewSimBroker(initialCash float64) *SimBroker {
	return &SimBroker{
		cash:       initialCash,
		positions:  make(map[string]int64),
		lastPrices: make(map[string]float64),
		pending:    make([]*pendingOrder, 0, 4),
		fills:      make([]*Fill, 0, 1024),
	}
}

// SetOrderUpdateCallback sets the order notification sink.
func (b *SimBroker) SetOrderUpdateCallback(callback func(*strategy.OrderUpdate)) {
	b.onOrderUpdate = callback
}

// UpdatePrice records the current close for a symbol.
func (b *SimBroker) UpdatePrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastPrices[symbol] = price
}

// Value returns cash plus the mark-to-market value of all positions
// (implements strategy.Broker).
func (b *SimBroker) Value() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	value := b.cash
	for symbol, qty := range b.positions {
		value += float64(qty) * b.lastPrices[symbol]
	}
	return value
}

// AddCash adjusts the cash balance (implements strategy.Broker).
func (b *SimBroker) AddCash(delta float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cash += delta
}

// Cash returns the current cash balance.
func (b *SimBroker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// Position returns the signed position in symbol.
func (b *SimBroker) Position(symbol string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol]
}

// Submit queues an order for size shares: buy if positive, sell if negative
// (implements strategy.OrderExecutor). Fire-and-forget; the outcome arrives
// through the order update callback.
func (b *SimBroker) Submit(symbol string, size int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, &pendingOrder{
		id:     uuid.New().String(),
		symbol: symbol,
		size:   size,
	})
}

// ClosePosition queues an order that flattens the position in symbol
// (implements strategy.OrderExecutor).
func (b *SimBroker) ClosePosition(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, &pendingOrder{
		id:     uuid.New().String(),
		symbol: symbol,
		close:  true,
	})
}

// ProcessPending fills all queued orders at the latest prices and delivers
// the terminal notifications. The runner calls it once per bar, after the
// strategy's decision and before the next bar.
func (b *SimBroker) ProcessPending(now time.Time) {
	b.mu.Lock()

	updates := make([]*strategy.OrderUpdate, 0, len(b.pending))
	for _, order := range b.pending {
		updates = append(updates, b.executeLocked(order, now))
	}
	b.pending = b.pending[:0]

	b.mu.Unlock()

	// Deliver outside the lock: the strategy's callback calls back into
	// AddCash for commission.
	for _, update := range updates {
		if b.onOrderUpdate != nil {
			b.onOrderUpdate(update)
		}
	}
}

// executeLocked fills one order at the last price. Caller holds the mutex.
func (b *SimBroker) executeLocked(order *pendingOrder, now time.Time) *strategy.OrderUpdate {
	size := order.size
	if order.close {
		size = -b.positions[order.symbol]
	}

	update := &strategy.OrderUpdate{
		OrderID:   order.id,
		Symbol:    order.symbol,
		Timestamp: now,
	}
	if size >= 0 {
		update.Side = strategy.OrderSideBuy
		update.Size = size
	} else {
		update.Side = strategy.OrderSideSell
		update.Size = -size
	}

	price, ok := b.lastPrices[order.symbol]
	if !ok {
		// No market yet for this symbol
		update.Status = strategy.OrderStatusExpired
		log.Printf("[SimBroker] Order %s expired: no price for %s", order.id, order.symbol)
		return update
	}
	update.Price = price

	if size == 0 {
		if order.close {
			// Already flat
			update.Status = strategy.OrderStatusCanceled
		} else {
			// Entry sized to zero shares: insufficient buying power
			update.Status = strategy.OrderStatusMargin
			log.Printf("[SimBroker] Order %s margin-rejected: zero size for %s", order.id, order.symbol)
		}
		return update
	}

	b.positions[order.symbol] += size
	b.cash -= float64(size) * price
	if b.positions[order.symbol] == 0 {
		delete(b.positions, order.symbol)
	}

	update.Status = strategy.OrderStatusCompleted
	b.fills = append(b.fills, &Fill{
		OrderID:   order.id,
		Symbol:    order.symbol,
		Side:      update.Side,
		Price:     price,
		Size:      update.Size,
		Timestamp: now,
	})

	return update
}

// Fills returns all executed fills.
func (b *SimBroker) Fills() []*Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

// PendingCount returns the number of queued, unprocessed orders.
func (b *SimBroker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
