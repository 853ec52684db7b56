// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"
	"time"

	"spread-trader/internal/models"
)

// Broker is the already-authenticated gateway handle the engine works
// against. It bundles the three narrow external contracts: quote source,
// order gateway and portfolio store. Credential lifecycle lives outside
// the engine.
type Broker interface {
	IsAuthenticated() bool

	// GetQuotes fetches quotes for venue-qualified symbols ("NSE:RELIANCE")
	// in one batch. On partial failure it returns the symbols the source
	// did answer for; a missing key means "no opportunity for this symbol
	// this cycle", not an error.
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)

	// GetInstruments returns the venue's instrument dump for an exchange.
	GetInstruments(ctx context.Context, exchange models.Exchange) ([]VenueInstrument, error)

	// PlaceOrder submits a single order and returns the assigned order id.
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)

	// GetOrderEvents returns the full lifecycle history for an order id.
	// The gateway does not guarantee event ordering.
	GetOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error)

	// GetAvailableMargin returns the free cash margin for the equity
	// segment. Failures degrade to "unknown"; callers must not block
	// submission on them.
	GetAvailableMargin(ctx context.Context) (float64, error)
}

// VenueInstrument is one row of the venue's instrument dump, used by the
// resolver to find contracts and lot sizes.
type VenueInstrument struct {
	Token          uint32
	TradingSymbol  string
	Name           string
	Exchange       models.Exchange
	InstrumentType string // EQ, FUT, CE, PE
	Expiry         time.Time
	LotSize        int
	TickSize       float64
}

// OrderRequest carries the parameters for a single order submission.
// A nil Price means a market order.
type OrderRequest struct {
	Symbol    string
	Exchange  models.Exchange
	Side      models.OrderSide
	Quantity  int
	Price     *float64
	Product   models.ProductType
	OrderType models.OrderType
	Tag       string
}
