package strategy

// PositionStatus is the state of the spread position.
type PositionStatus int

const (
	// StatusFlat means no open spread position
	StatusFlat PositionStatus = iota
	// StatusShortSpread means short instrument0, long instrument1
	StatusShortSpread
	// StatusLongSpread means long instrument0, short instrument1
	StatusLongSpread
)

// String returns the status name
func (s PositionStatus) String() string {
	switch s {
	case StatusFlat:
		return "FLAT"
	case StatusShortSpread:
		return "SHORT_SPREAD"
	case StatusLongSpread:
		return "LONG_SPREAD"
	default:
		return "UNKNOWN"
	}
}

// OpenTrade holds the bookkeeping of the currently open spread trade.
// Present only while the position is not flat; entering a position fills it
// and exiting drops it, so "no open trade" is a single nil instead of five
// zeroed fields.
type OpenTrade struct {
	Qty0 int64 // shares of instrument0 (magnitude)
	Qty1 int64 // shares of instrument1 (magnitude)

	EntryPrice0 float64
	EntryPrice1 float64

	// Baselines for the stop-loss return calculation, captured at entry.
	InitialCash    float64
	InitialLongPV  float64
	InitialShortPV float64
}

// longPortfolioValue values the long leg at the current price.
func longPortfolioValue(price float64, qty int64) float64 {
	return price * float64(qty)
}

// shortPortfolioValue values the short leg under the 150% collateral
// convention: value = qty * (1.5*entry - current). Non-positive value means
// the collateral is wiped out.
func shortPortfolioValue(entryPrice, currentPrice float64, qty int64) float64 {
	return float64(qty) * (1.5*entryPrice - currentPrice)
}
