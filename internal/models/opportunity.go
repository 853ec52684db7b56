package models

import "time"

// ProfitabilityThresholdPct is the fixed gross price-difference threshold
// above which a cross-venue spread covers brokerage and taxes. It is an
// invariant of the strategy, not a tunable parameter: caller-supplied
// minimums only filter which rows are returned, never this flag.
const ProfitabilityThresholdPct = 0.05

// OpportunityKind identifies the variant of a detected opportunity.
type OpportunityKind string

const (
	OpportunityCrossVenue  OpportunityKind = "CROSS_VENUE"
	OpportunityCashFutures OpportunityKind = "CASH_FUTURES"
)

// CrossVenueSpread is a pricing divergence for one symbol between the two
// cash venues. Immutable snapshot; a new scan cycle produces a new set.
type CrossVenueSpread struct {
	Symbol         string
	NSEPrice       float64
	BSEPrice       float64
	PriceDiff      float64
	PriceDiffPct   float64
	ProfitPerShare float64
	HigherExchange Exchange
	LowerExchange  Exchange
	HigherPrice    float64
	LowerPrice     float64
	// Limit prices pegged to the venue books via SidePrice: buy at the
	// lower venue's best bid, sell at the higher venue's best ask.
	BuyLimitPrice  float64
	SellLimitPrice float64
	NSEVolume      int64
	BSEVolume      int64
	AvgVolume      float64
	NSEChangePct   float64
	BSEChangePct   float64
	Score          float64
	IsProfitable   bool
	ObservedAt     time.Time
}

// CashFuturesPremium is a cash vs. near-month futures premium for one
// underlying: buy cash, sell futures, hold to expiry so the premium decays
// to zero. Immutable snapshot.
type CashFuturesPremium struct {
	Symbol            string
	CashPrice         float64
	FuturesPrice      float64
	Premium           float64
	PremiumPct        float64
	AnnualizedPremium float64
	DaysToExpiry      int
	ExpiryDate        time.Time
	FuturesSymbol     string // order routing symbol
	FuturesSymbolAPI  string // venue quoting symbol
	LotSize           int
	ProfitPerShare    float64
	CashVolume        int64
	FuturesVolume     int64
	CashChangePct     float64
	Score             float64
	ObservedAt        time.Time
}

// ProfitPerLot returns the expected premium capture for one lot.
func (p CashFuturesPremium) ProfitPerLot() float64 {
	return p.ProfitPerShare * float64(p.LotSize)
}
