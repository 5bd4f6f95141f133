package strategy

import (
	"math"
	"testing"

	"github.com/theMLtrader/statistical-arbitrage-18-19/pkg/stats"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// fakeBroker is a minimal host broker for strategy tests.
type fakeBroker struct {
	value     float64
	cashDelta float64
}

func (b *fakeBroker) Value() float64        { return b.value }
func (b *fakeBroker) AddCash(delta float64) { b.cashDelta += delta }

// orderIntent records one call into the executor.
type orderIntent struct {
	symbol string
	size   int64
	close  bool
}

// fakeExecutor records order intents.
type fakeExecutor struct {
	orders []orderIntent
}

func (e *fakeExecutor) Submit(symbol string, size int64) {
	e.orders = append(e.orders, orderIntent{symbol: symbol, size: size})
}

func (e *fakeExecutor) ClosePosition(symbol string) {
	e.orders = append(e.orders, orderIntent{symbol: symbol, close: true})
}

// harness wires a DistanceStrategy to fake host collaborators.
type harness struct {
	data0    *stats.TimeSeries
	data1    *stats.TimeSeries
	broker   *fakeBroker
	executor *fakeExecutor
	strat    *DistanceStrategy
}

func newHarness(t *testing.T, params map[string]interface{}) *harness {
	t.Helper()

	h := &harness{
		data0:    stats.NewTimeSeries("data0", 0),
		data1:    stats.NewTimeSeries("data1", 0),
		broker:   &fakeBroker{value: 100000},
		executor: &fakeExecutor{},
	}
	h.strat = NewDistanceStrategy("test", h.data0, h.data1, h.broker, h.executor)

	config := &Config{
		Symbols:    []string{"AAA", "BBB"},
		Parameters: params,
	}
	if err := h.strat.Initialize(config); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	return h
}

// bar appends one close per leg and runs one decision cycle.
func (h *harness) bar(price0, price1 float64) {
	h.data0.AppendNow(price0)
	h.data1.AppendNow(price1)
	h.strat.Next()
}

// completeAll delivers Completed notifications for every outstanding order.
func (h *harness) completeAll() {
	for h.strat.PendingOrders() > 0 {
		h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusCompleted, Price: 10, Size: 1})
	}
}

func smallLookbackParams() map[string]interface{} {
	return map[string]interface{}{
		"lookback":             3,
		"max_lookback":         3,
		"enter_threshold_size": 1.0,
		"exit_threshold_size":  0.5,
		"loss_limit":           -0.015,
		"print_bar":            false,
	}
}

func TestDistanceStrategy_NoActionWithoutHistory(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)

	if len(h.executor.orders) != 0 {
		t.Errorf("orders emitted with insufficient history: %v", h.executor.orders)
	}
	if h.strat.Status() != StatusFlat {
		t.Errorf("Status() = %v, want FLAT", h.strat.Status())
	}
}

func TestDistanceStrategy_NoOrderWhileSpreadInBand(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	// Mild wobble keeps the spread inside [lower, upper]
	h.bar(10.0, 10.0)
	h.bar(10.1, 10.0)
	h.bar(10.0, 10.1)
	h.bar(10.1, 10.1)

	if len(h.executor.orders) != 0 {
		t.Errorf("orders emitted while spread within band: %v", h.executor.orders)
	}

	th := h.strat.Thresholds()
	spread := h.strat.Spread()
	if spread > th.UpperLimit || spread < th.LowerLimit {
		t.Fatalf("test setup broken: spread %v outside [%v, %v]", spread, th.LowerLimit, th.UpperLimit)
	}
}

func TestDistanceStrategy_ShortSpreadEntry(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	// Spread jumps to 10 on the entry bar; window spreads are [0, 0, 10]:
	// mean = 10/3, sample std = 5.7735, upper = mean + std = 9.107 < 10.
	h.bar(20, 10)

	if h.strat.Status() != StatusShortSpread {
		t.Fatalf("Status() = %v, want SHORT_SPREAD", h.strat.Status())
	}

	// 2/3 of 100000 = 66666.67; floor division by each leg's price.
	wantQty0 := int64(3333) // 66666.67 / 20
	wantQty1 := int64(6666) // 66666.67 / 10

	if len(h.executor.orders) != 2 {
		t.Fatalf("order count = %d, want 2", len(h.executor.orders))
	}
	if got := h.executor.orders[0]; got.symbol != "AAA" || got.size != -wantQty0 {
		t.Errorf("leg0 order = %+v, want sell %d AAA", got, wantQty0)
	}
	if got := h.executor.orders[1]; got.symbol != "BBB" || got.size != wantQty1 {
		t.Errorf("leg1 order = %+v, want buy %d BBB", got, wantQty1)
	}

	open := h.strat.OpenTradeInfo()
	if open == nil {
		t.Fatal("OpenTradeInfo() = nil after entry")
	}
	if open.Qty0 != wantQty0 || open.Qty1 != wantQty1 {
		t.Errorf("open qty = (%d, %d), want (%d, %d)", open.Qty0, open.Qty1, wantQty0, wantQty1)
	}
	if !almostEqual(open.EntryPrice0, 20, 1e-10) || !almostEqual(open.EntryPrice1, 10, 1e-10) {
		t.Errorf("entry prices = (%v, %v), want (20, 10)", open.EntryPrice0, open.EntryPrice1)
	}

	// initial_cash = qty1*p1 + 0.5*qty0*p0
	wantCash := float64(wantQty1)*10 + 0.5*float64(wantQty0)*20
	if !almostEqual(open.InitialCash, wantCash, 1e-10) {
		t.Errorf("InitialCash = %v, want %v", open.InitialCash, wantCash)
	}
	if !almostEqual(open.InitialLongPV, float64(wantQty1)*10, 1e-10) {
		t.Errorf("InitialLongPV = %v, want %v", open.InitialLongPV, float64(wantQty1)*10)
	}
	if !almostEqual(open.InitialShortPV, 0.5*float64(wantQty0)*20, 1e-10) {
		t.Errorf("InitialShortPV = %v, want %v", open.InitialShortPV, 0.5*float64(wantQty0)*20)
	}
}

func TestDistanceStrategy_ExitOnReversion(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(20, 10) // short entry
	if h.strat.Status() != StatusShortSpread {
		t.Fatalf("Status() = %v, want SHORT_SPREAD", h.strat.Status())
	}
	h.completeAll()
	h.executor.orders = nil

	// Thresholds frozen from the entry bar: lower = -2.44, up_medium = 6.22.
	// Spread 4 lands in [lower, up_medium) -> exit.
	h.bar(14, 10)

	if h.strat.Status() != StatusFlat {
		t.Errorf("Status() = %v, want FLAT after reversion", h.strat.Status())
	}
	if h.strat.OpenTradeInfo() != nil {
		t.Error("OpenTradeInfo() should be nil after exit")
	}

	if len(h.executor.orders) != 2 {
		t.Fatalf("order count = %d, want 2 closes", len(h.executor.orders))
	}
	for i, o := range h.executor.orders {
		if !o.close {
			t.Errorf("order[%d] = %+v, want close", i, o)
		}
	}
}

func TestDistanceStrategy_StopLossForcedExit(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(20, 10) // short entry at p0=20
	h.completeAll()
	h.executor.orders = nil

	// Spread widens a touch (still >= up_medium) and the unrealized loss
	// (3333 shares * 0.20) stays above the -1.5% limit; hold.
	h.bar(20.2, 10)
	if h.strat.Status() != StatusShortSpread {
		t.Fatalf("Status() = %v, want SHORT_SPREAD while loss within limit", h.strat.Status())
	}

	// Short leg wiped out: 1.5*20 - 30 = 0 -> forced exit.
	h.bar(30, 10)
	if h.strat.Status() != StatusFlat {
		t.Errorf("Status() = %v, want FLAT after forced exit", h.strat.Status())
	}
	if len(h.executor.orders) != 2 {
		t.Errorf("order count = %d, want 2 closes", len(h.executor.orders))
	}
}

func TestDistanceStrategy_StopLossFormula(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.strat.open = &OpenTrade{
		InitialCash:    100000,
		InitialLongPV:  50000,
		InitialShortPV: 50000,
	}

	// long value 48000 (1000 @ 48), short value 49000 (1000 * (150 - 101)):
	// return = (-2000 - 1000) / 100000 = -0.03 < -0.015
	if !h.strat.stopLossHit(48, 101, 100, 1000, 1000) {
		t.Error("stopLossHit = false, want true for -3% return")
	}

	// long value 49500, short value 49900: return = -0.006 > -0.015
	if h.strat.stopLossHit(49.5, 100.1, 100, 1000, 1000) {
		t.Error("stopLossHit = true, want false for -0.6% return")
	}

	// Non-positive short value forces an exit regardless of return
	h.strat.open.InitialLongPV = 0
	h.strat.open.InitialShortPV = 0
	if !h.strat.stopLossHit(50, 150, 100, 1000, 1000) {
		t.Error("stopLossHit = false, want true for wiped-out short leg")
	}
}

func TestDistanceStrategy_DirectFlipNetsPriorLegs(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	// Open long-spread state by hand, then push the spread above the
	// frozen upper band to force a flip.
	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(10, 10)
	h.strat.status = StatusLongSpread
	h.strat.open = &OpenTrade{Qty0: 100, Qty1: 200, EntryPrice0: 10, EntryPrice1: 10}
	h.strat.thresholds = ThresholdSet{UpperLimit: 5, LowerLimit: -5, UpMedium: 2, LowMedium: -2}

	h.bar(20, 10) // spread 10 > upper 5

	if h.strat.Status() != StatusShortSpread {
		t.Fatalf("Status() = %v, want SHORT_SPREAD after flip", h.strat.Status())
	}

	// New sizes include the unwind of the prior long-spread legs.
	wantQty0 := int64(3333) // 2/3 * 100000 / 20
	wantQty1 := int64(6666) // 2/3 * 100000 / 10

	if len(h.executor.orders) != 2 {
		t.Fatalf("order count = %d, want 2", len(h.executor.orders))
	}
	if got := h.executor.orders[0]; got.size != -(wantQty0 + 100) {
		t.Errorf("leg0 flip size = %d, want %d", got.size, -(wantQty0 + 100))
	}
	if got := h.executor.orders[1]; got.size != wantQty1+200 {
		t.Errorf("leg1 flip size = %d, want %d", got.size, wantQty1+200)
	}

	// The open record holds the new position only, not the netted sizes.
	open := h.strat.OpenTradeInfo()
	if open.Qty0 != wantQty0 || open.Qty1 != wantQty1 {
		t.Errorf("open qty = (%d, %d), want (%d, %d)", open.Qty0, open.Qty1, wantQty0, wantQty1)
	}
}

func TestDistanceStrategy_PendingOrderLatch(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(20, 10) // entry submits two orders
	if h.strat.PendingOrders() != 2 {
		t.Fatalf("PendingOrders() = %d, want 2", h.strat.PendingOrders())
	}
	h.executor.orders = nil

	// While orders are in flight the strategy must not act.
	h.bar(30, 10)
	if len(h.executor.orders) != 0 {
		t.Errorf("orders emitted while pending: %v", h.executor.orders)
	}

	// Non-terminal notifications keep the latch armed.
	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusSubmitted})
	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusAccepted})
	if h.strat.PendingOrders() != 2 {
		t.Errorf("PendingOrders() = %d after non-terminal updates, want 2", h.strat.PendingOrders())
	}

	// Terminal notifications release it, one per order.
	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusCompleted, Price: 20, Size: 3333})
	if h.strat.PendingOrders() != 1 {
		t.Errorf("PendingOrders() = %d, want 1", h.strat.PendingOrders())
	}
	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusMargin})
	if h.strat.PendingOrders() != 0 {
		t.Errorf("PendingOrders() = %d, want 0", h.strat.PendingOrders())
	}
}

func TestDistanceStrategy_RejectionClearsLatchOnly(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(20, 10)
	statusBefore := h.strat.Status()

	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusMargin})
	h.strat.OnOrderUpdate(&OrderUpdate{Status: OrderStatusExpired})

	if h.strat.Status() != statusBefore {
		t.Errorf("Status changed on rejection: %v -> %v", statusBefore, h.strat.Status())
	}
	if h.broker.cashDelta != 0 {
		t.Errorf("commission charged on rejected orders: %v", h.broker.cashDelta)
	}
	if h.strat.PendingOrders() != 0 {
		t.Errorf("PendingOrders() = %d, want 0", h.strat.PendingOrders())
	}
}

func TestDistanceStrategy_CommissionOnFill(t *testing.T) {
	h := newHarness(t, smallLookbackParams())

	h.bar(10, 10)
	h.bar(10, 10)
	h.bar(20, 10)

	h.strat.OnOrderUpdate(&OrderUpdate{
		Status: OrderStatusCompleted,
		Side:   OrderSideSell,
		Price:  100,
		Size:   50,
	})

	// clamp(0.005*50, min 1, max 0.01*100*50) = 1
	if !almostEqual(h.broker.cashDelta, -1.0, 1e-10) {
		t.Errorf("cash delta = %v, want -1.0", h.broker.cashDelta)
	}
	if !almostEqual(h.strat.TotalCommission(), 1.0, 1e-10) {
		t.Errorf("TotalCommission() = %v, want 1.0", h.strat.TotalCommission())
	}
}

func TestDistanceStrategy_InitializeValidation(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
		params  map[string]interface{}
	}{
		{
			name:    "Wrong symbol count",
			symbols: []string{"AAA"},
			params:  smallLookbackParams(),
		},
		{
			name:    "Lookback too small",
			symbols: []string{"AAA", "BBB"},
			params:  map[string]interface{}{"lookback": 1},
		},
		{
			name:    "Max lookback below lookback",
			symbols: []string{"AAA", "BBB"},
			params:  map[string]interface{}{"lookback": 10, "max_lookback": 5},
		},
		{
			name:    "Positive loss limit",
			symbols: []string{"AAA", "BBB"},
			params:  map[string]interface{}{"lookback": 3, "max_lookback": 3, "loss_limit": 0.01},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewDistanceStrategy("test",
				stats.NewTimeSeries("d0", 0), stats.NewTimeSeries("d1", 0),
				&fakeBroker{value: 100000}, &fakeExecutor{})
			err := ds.Initialize(&Config{Symbols: tt.symbols, Parameters: tt.params})
			if err == nil {
				t.Error("Initialize() error = nil, want validation error")
			}
		})
	}
}
