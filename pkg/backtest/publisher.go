package backtest

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// EventPublisher streams backtest progress over NATS so external tools can
// follow a run live. Publishing is best-effort: a failed publish is logged
// and the backtest continues.
type EventPublisher struct {
	conn    *nats.Conn
	prefix  string
	enabled bool
}

// BarEvent is published on every processed bar.
type BarEvent struct {
	Bar            int     `json:"bar"`
	TimestampNs    int64   `json:"timestamp_ns"`
	Status         int     `json:"status"`
	Spread         float64 `json:"spread"`
	PortfolioValue float64 `json:"portfolio_value"`
}

// FillEvent is published for every executed fill.
type FillEvent struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEventPublisher connects to NATS. When enabled is false it returns a
// no-op publisher and never dials.
func NewEventPublisher(natsAddr, name string, enabled bool) (*EventPublisher, error) {
	p := &EventPublisher{
		prefix:  fmt.Sprintf("backtest.%s", name),
		enabled: enabled,
	}
	if !enabled {
		return p, nil
	}

	conn, err := nats.Connect(natsAddr,
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsAddr, err)
	}
	p.conn = conn

	log.Printf("[Publisher] Connected to NATS: %s", natsAddr)
	return p, nil
}

// PublishBar publishes a per-bar progress event.
func (p *EventPublisher) PublishBar(event *BarEvent) {
	p.publish(p.prefix+".bar", event)
}

// PublishFill publishes a fill event.
func (p *EventPublisher) PublishFill(fill *Fill) {
	p.publish(p.prefix+".fill", &FillEvent{
		OrderID:   fill.OrderID,
		Symbol:    fill.Symbol,
		Side:      fill.Side.String(),
		Price:     fill.Price,
		Size:      fill.Size,
		Timestamp: fill.Timestamp,
	})
}

// PublishSummary publishes the final result.
func (p *EventPublisher) PublishSummary(result *BacktestResult) {
	p.publish(p.prefix+".summary", result)
}

func (p *EventPublisher) publish(subject string, payload interface{}) {
	if !p.enabled || p.conn == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Publisher] Failed to marshal event for %s: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Printf("[Publisher] Failed to publish to %s: %v", subject, err)
	}
}

// Close flushes and drops the NATS connection.
func (p *EventPublisher) Close() {
	if p.conn != nil {
		p.conn.Flush()
		p.conn.Close()
		p.conn = nil
	}
}
