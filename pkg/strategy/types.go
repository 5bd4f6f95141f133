// Package strategy provides trading strategy implementations
package strategy

import (
	"time"
)

// MarketData is the per-instrument bar history the host exposes to a
// strategy: current length, a close-price lookup, and a lookback window
// query. *stats.TimeSeries satisfies it.
type MarketData interface {
	// Len returns the number of bars available.
	Len() int

	// At returns the close price ago bars back (ago=0 is the current bar).
	At(ago int) (float64, bool)

	// Get returns size close prices ending ago bars back, or nil when
	// fewer than size+ago bars exist.
	Get(size, ago int) []float64
}

// Broker is the portfolio surface the host exposes to a strategy.
type Broker interface {
	// Value returns the current mark-to-market portfolio value.
	Value() float64

	// AddCash adjusts the cash balance (negative for deductions).
	AddCash(delta float64)
}

// OrderExecutor accepts order intents from a strategy. Submission is
// fire-and-forget; outcomes arrive through OnOrderUpdate.
type OrderExecutor interface {
	// Submit places an order for size shares: buy if positive, sell if
	// negative.
	Submit(symbol string, size int64)

	// ClosePosition flattens the current position in symbol.
	ClosePosition(symbol string)
}

// OrderSide identifies the direction of an order.
type OrderSide int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// String returns the side name
func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the lifecycle state reported by the host broker.
type OrderStatus int

const (
	OrderStatusSubmitted OrderStatus = iota
	OrderStatusAccepted
	OrderStatusCompleted
	OrderStatusExpired
	OrderStatusCanceled
	OrderStatusMargin
)

// String returns the status name
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusSubmitted:
		return "SUBMITTED"
	case OrderStatusAccepted:
		return "ACCEPTED"
	case OrderStatusCompleted:
		return "COMPLETED"
	case OrderStatusExpired:
		return "EXPIRED"
	case OrderStatusCanceled:
		return "CANCELED"
	case OrderStatusMargin:
		return "MARGIN"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the order has left the broker's hands and the
// strategy may act again.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusExpired, OrderStatusCanceled, OrderStatusMargin:
		return true
	default:
		return false
	}
}

// OrderUpdate is the order notification delivered by the host broker.
type OrderUpdate struct {
	OrderID   string
	Symbol    string
	Side      OrderSide
	Status    OrderStatus
	Price     float64
	Size      int64 // executed size, always positive
	Timestamp time.Time
}

// Config carries the pair and the tunable parameters for a strategy.
type Config struct {
	Symbols    []string
	Parameters map[string]interface{}
}
