package strategy

// Commission returns the commission for a fill:
// 0.005 per share, floored at 1 and capped at 1% of the notional.
func Commission(price float64, qty int64) float64 {
	if qty < 0 {
		qty = -qty
	}

	commission := 0.005 * float64(qty)
	if commission < 1 {
		commission = 1
	}

	notionalCap := 0.01 * price * float64(qty)
	if commission > notionalCap {
		commission = notionalCap
	}
	return commission
}
