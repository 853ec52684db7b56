// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spread-trader/internal/models"
)

// PaperBroker implements the Broker interface with an in-memory simulated
// gateway. Orders fill instantly at the requested (or quoted) price. It
// backs the --paper trading mode and the package tests.
type PaperBroker struct {
	// Optional real broker for market data; quotes fall back to the
	// seeded price table when nil.
	dataBroker Broker

	quotes      map[string]models.Quote
	instruments map[models.Exchange][]VenueInstrument
	events      map[string][]models.OrderEvent
	orders      map[string]OrderRequest

	availableMargin float64
	orderCounter    int
	// RejectSymbols maps venue-qualified symbols to a rejection message,
	// letting tests force asymmetric batch outcomes.
	rejectSymbols map[string]string

	mu sync.RWMutex
}

// PaperBrokerConfig holds configuration for paper broker.
type PaperBrokerConfig struct {
	DataBroker      Broker
	AvailableMargin float64
}

// NewPaperBroker creates a new paper trading broker.
func NewPaperBroker(cfg PaperBrokerConfig) *PaperBroker {
	margin := cfg.AvailableMargin
	if margin == 0 {
		margin = 1000000 // 10 lakhs default
	}

	return &PaperBroker{
		dataBroker:      cfg.DataBroker,
		quotes:          make(map[string]models.Quote),
		instruments:     make(map[models.Exchange][]VenueInstrument),
		events:          make(map[string][]models.OrderEvent),
		orders:          make(map[string]OrderRequest),
		rejectSymbols:   make(map[string]string),
		availableMargin: margin,
	}
}

// IsAuthenticated always returns true for paper trading.
func (p *PaperBroker) IsAuthenticated() bool {
	return true
}

// SetQuote seeds a quote for a venue-qualified symbol.
func (p *PaperBroker) SetQuote(qualified string, quote models.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[qualified] = quote
}

// SetInstruments seeds the instrument dump for an exchange.
func (p *PaperBroker) SetInstruments(exchange models.Exchange, instruments []VenueInstrument) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instruments[exchange] = instruments
}

// RejectNext makes submissions for the symbol fail with the given message.
func (p *PaperBroker) RejectNext(qualified, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectSymbols[qualified] = message
}

// GetQuotes returns seeded quotes, delegating to the data broker when one
// is configured. Unknown symbols are omitted, matching the partial-result
// contract of the live gateway.
func (p *PaperBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if p.dataBroker != nil {
		return p.dataBroker.GetQuotes(ctx, symbols)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make(map[string]models.Quote, len(symbols))
	for _, qualified := range symbols {
		if q, ok := p.quotes[qualified]; ok {
			result[qualified] = q
		}
	}
	return result, nil
}

// GetInstruments returns the seeded instrument dump.
func (p *PaperBroker) GetInstruments(ctx context.Context, exchange models.Exchange) ([]VenueInstrument, error) {
	if p.dataBroker != nil {
		return p.dataBroker.GetInstruments(ctx, exchange)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.instruments[exchange], nil
}

// PlaceOrder accepts the order and records an immediate open->fill event
// history, unless the symbol was marked for rejection.
func (p *PaperBroker) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	qualified := fmt.Sprintf("%s:%s", req.Exchange, req.Symbol)
	if msg, ok := p.rejectSymbols[qualified]; ok {
		return "", fmt.Errorf("%s", msg)
	}

	p.orderCounter++
	orderID := fmt.Sprintf("PAPER-%06d", p.orderCounter)
	p.orders[orderID] = req

	now := time.Now()
	p.events[orderID] = []models.OrderEvent{
		{Status: "OPEN", FilledQty: 0, PendingQty: req.Quantity, Timestamp: now},
		{Status: "COMPLETE", FilledQty: req.Quantity, PendingQty: 0, Timestamp: now.Add(time.Second)},
	}

	return orderID, nil
}

// GetOrderEvents returns the simulated lifecycle history.
func (p *PaperBroker) GetOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	events, ok := p.events[orderID]
	if !ok {
		return nil, fmt.Errorf("unknown order id: %s", orderID)
	}

	out := make([]models.OrderEvent, len(events))
	copy(out, events)
	return out, nil
}

// SetOrderEvents replaces the event history for an order id.
func (p *PaperBroker) SetOrderEvents(orderID string, events []models.OrderEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[orderID] = events
}

// GetAvailableMargin returns the simulated free margin.
func (p *PaperBroker) GetAvailableMargin(ctx context.Context) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.availableMargin, nil
}

// Orders returns a snapshot of placed orders, keyed by order id.
func (p *PaperBroker) Orders() map[string]OrderRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]OrderRequest, len(p.orders))
	for id, req := range p.orders {
		out[id] = req
	}
	return out
}

var _ Broker = (*PaperBroker)(nil)
