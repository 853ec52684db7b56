// Package trading provides pair execution and margin logic.
package trading

import (
	"context"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/models"
)

// misMarginFraction approximates the intraday margin requirement as a flat
// fraction of notional. The venue's real requirement is risk-based and can
// differ; this number is a planning heuristic only and is never sent to
// the gateway.
const misMarginFraction = 0.30

// EstimateMargin approximates the capital required for one leg. Delivery
// and carry-forward products block full notional; intraday takes the flat
// heuristic fraction. Unknown products fall back to the intraday
// heuristic.
func EstimateMargin(price float64, quantity int, product models.ProductType) float64 {
	notional := price * float64(quantity)
	switch product {
	case models.ProductCNC, models.ProductNRML:
		return notional
	case models.ProductMIS:
		return notional * misMarginFraction
	default:
		return notional * misMarginFraction
	}
}

// Affordability is the result of checking a margin requirement against
// the account's free margin.
type Affordability struct {
	Required   float64
	Available  float64
	Known      bool // false when the portfolio store could not be read
	Sufficient bool
}

// CheckAffordability compares a required margin amount with the free
// margin reported by the portfolio store. Lookup failures degrade to
// "unknown, proceed with caution": submission is never blocked on a
// margin read.
func CheckAffordability(ctx context.Context, b broker.Broker, logger zerolog.Logger, required float64) Affordability {
	available, err := b.GetAvailableMargin(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Available margin not detected, orders will still be attempted")
		return Affordability{Required: required}
	}
	return Affordability{
		Required:   required,
		Available:  available,
		Known:      true,
		Sufficient: available >= required,
	}
}
