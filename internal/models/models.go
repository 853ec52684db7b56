// Package models provides domain models for the spread trading engine.
package models

import (
	"fmt"
	"time"
)

// Exchange represents a trading venue / segment.
type Exchange string

const (
	NSE Exchange = "NSE" // Primary cash venue
	BSE Exchange = "BSE" // Secondary cash venue
	NFO Exchange = "NFO" // Equity derivatives
	CDS Exchange = "CDS" // Currency derivatives
)

// InstrumentKind classifies what a resolved symbol trades as.
type InstrumentKind string

const (
	KindEquity         InstrumentKind = "EQUITY"
	KindFuture         InstrumentKind = "FUTURE"
	KindCurrencyFuture InstrumentKind = "CURRENCY_FUTURE"
)

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// ProductType represents the product type of an order.
type ProductType string

const (
	ProductMIS  ProductType = "MIS"  // Intraday
	ProductCNC  ProductType = "CNC"  // Delivery
	ProductNRML ProductType = "NRML" // Carry-forward (F&O)
)

// MarketSegment distinguishes the cash and derivative sides of a pair.
type MarketSegment string

const (
	MarketCash       MarketSegment = "CASH"
	MarketDerivative MarketSegment = "FUTURES"
)

// MarketStatus represents the current session of the Indian cash market.
type MarketStatus string

const (
	MarketClosed           MarketStatus = "CLOSED"
	MarketPreOpen          MarketStatus = "PRE_OPEN"
	MarketOpen             MarketStatus = "OPEN"
	MarketMISSquareOffWarn MarketStatus = "MIS_SQUAREOFF_WARN"
)

// Instrument represents a tradeable instrument after resolution.
// Derivative fields (LotSize, Expiry, OrderSymbol) are zero for equities.
type Instrument struct {
	Symbol      string
	Exchange    Exchange
	Kind        InstrumentKind
	LotSize     int
	Expiry      time.Time
	OrderSymbol string // venue routing symbol, e.g. RELIANCE25NOV
}

// IsDerivative reports whether the instrument trades on a derivative segment.
func (i Instrument) IsDerivative() bool {
	return i.Kind == KindFuture || i.Kind == KindCurrencyFuture
}

// QualifiedSymbol returns the venue-qualified symbol, e.g. "NSE:RELIANCE".
func (i Instrument) QualifiedSymbol() string {
	return fmt.Sprintf("%s:%s", i.Exchange, i.Symbol)
}

// Quote represents a market quote for a venue-qualified symbol.
// Quotes are fetched fresh per evaluation cycle and never cached.
type Quote struct {
	Symbol        string
	Exchange      Exchange
	LastPrice     float64
	BestBid       float64
	BestAsk       float64
	Volume        int64
	PreviousClose float64
	Timestamp     time.Time
}

// ChangePercent returns the change from the previous close, or 0 when no
// previous close is known.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose <= 0 {
		return 0
	}
	return (q.LastPrice - q.PreviousClose) / q.PreviousClose * 100
}

// SidePrice returns the price a directional limit order should be pegged
// to: best bid when buying, best ask when selling. This intentionally
// prices orders to be immediately marketable against current depth.
func (q Quote) SidePrice(side OrderSide) float64 {
	if side == OrderSideBuy {
		if q.BestBid > 0 {
			return q.BestBid
		}
	} else if q.BestAsk > 0 {
		return q.BestAsk
	}
	return q.LastPrice
}

// FutureContract describes the near-month futures contract resolved for an
// underlying symbol.
type FutureContract struct {
	Underlying    string
	TradingSymbol string // symbol as the venue quotes it
	OrderSymbol   string // symbol used for order routing
	Exchange      Exchange
	Expiry        time.Time
	DaysToExpiry  int
	LotSize       int
}
