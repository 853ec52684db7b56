package trading

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/logging"
	"spread-trader/internal/models"
)

// Gateway rejection messages encode margin numbers in prose; these pull
// them out so the operator sees the shortfall without opening the venue UI.
var (
	requiredMarginRe  = regexp.MustCompile(`Required margin is ([\d.]+)`)
	availableMarginRe = regexp.MustCompile(`available margin is ([\d.]+)`)
)

// PairExecutor builds and submits matched order pairs. Legs are submitted
// strictly in order with no parallelism so Buy confirmation semantics stay
// legible; a leg's rejection never rolls back a sibling already accepted.
// The executor deliberately places no compensating trades: asymmetric
// fills are reported, not repaired, because no correct compensation policy
// is defined for this strategy.
type PairExecutor struct {
	broker broker.Broker
	logger zerolog.Logger
	tag    string
	now    func() time.Time
}

// NewPairExecutor creates a new pair executor.
func NewPairExecutor(b broker.Broker, logger zerolog.Logger, tag string) *PairExecutor {
	return &PairExecutor{broker: b, logger: logger, tag: tag, now: time.Now}
}

// SubmitCrossVenuePair places the two legs for a cross-venue spread: Buy
// at the lower-priced venue, then Sell at the higher-priced venue, both as
// intraday limit orders at the prices captured in the opportunity
// snapshot. Prices are not re-fetched.
func (p *PairExecutor) SubmitCrossVenuePair(ctx context.Context, opp models.CrossVenueSpread, quantity int) (*models.OrderBatch, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	// Peg to the venue books when the scan carried depth; snapshots built
	// without bid/ask fall back to the last traded prices.
	buyPrice := opp.BuyLimitPrice
	if buyPrice <= 0 {
		buyPrice = opp.LowerPrice
	}
	sellPrice := opp.SellLimitPrice
	if sellPrice <= 0 {
		sellPrice = opp.HigherPrice
	}

	batch := p.newBatch(models.OpportunityCrossVenue, opp.Symbol, []*models.OrderLeg{
		{
			Side:      models.OrderSideBuy,
			Market:    models.MarketCash,
			Symbol:    opp.Symbol,
			Exchange:  opp.LowerExchange,
			Quantity:  quantity,
			Price:     &buyPrice,
			Product:   models.ProductMIS,
			OrderType: models.OrderTypeLimit,
		},
		{
			Side:      models.OrderSideSell,
			Market:    models.MarketCash,
			Symbol:    opp.Symbol,
			Exchange:  opp.HigherExchange,
			Quantity:  quantity,
			Price:     &sellPrice,
			Product:   models.ProductMIS,
			OrderType: models.OrderTypeLimit,
		},
	})

	p.submitLegs(ctx, batch)
	return batch, nil
}

// SubmitCashFuturesPair places the two legs for a premium capture: Buy
// cash as delivery, then Sell the near-month future as carry-forward,
// both as market orders. Quantity is lots times the contract lot size;
// lots below 1 are clamped up.
func (p *PairExecutor) SubmitCashFuturesPair(ctx context.Context, opp models.CashFuturesPremium, lots int) (*models.OrderBatch, error) {
	if lots < 1 {
		lots = 1
	}
	lotSize := opp.LotSize
	if lotSize < 1 {
		lotSize = 1
	}
	quantity := lots * lotSize

	p.logger.Info().
		Str("symbol", opp.Symbol).
		Str("futures_symbol", opp.FuturesSymbolAPI).
		Int("lots", lots).
		Int("lot_size", lotSize).
		Int("quantity", quantity).
		Msg("Executing cash-futures pair")

	batch := p.newBatch(models.OpportunityCashFutures, opp.Symbol, []*models.OrderLeg{
		{
			Side:      models.OrderSideBuy,
			Market:    models.MarketCash,
			Symbol:    opp.Symbol,
			Exchange:  models.NSE,
			Quantity:  quantity,
			Product:   models.ProductCNC,
			OrderType: models.OrderTypeMarket,
		},
		{
			Side:      models.OrderSideSell,
			Market:    models.MarketDerivative,
			Symbol:    opp.FuturesSymbolAPI,
			Exchange:  models.NFO,
			Quantity:  quantity,
			Product:   models.ProductNRML,
			OrderType: models.OrderTypeMarket,
		},
	})

	p.submitLegs(ctx, batch)
	return batch, nil
}

func (p *PairExecutor) newBatch(kind models.OpportunityKind, symbol string, legs []*models.OrderLeg) *models.OrderBatch {
	now := p.now()
	batch := &models.OrderBatch{
		ID:        fmt.Sprintf("BATCH-%d", now.UnixNano()),
		Kind:      kind,
		Symbol:    symbol,
		Legs:      legs,
		CreatedAt: now,
	}
	for _, leg := range legs {
		leg.Tag = p.tag
		leg.SubmittedAt = now
		leg.UpdatedAt = now
	}
	return batch
}

// submitLegs runs the legs sequentially. Every leg is attempted even when
// an earlier one is rejected: the caller needs the complete per-leg
// picture to reconcile manually. A cancelled context stops further
// submissions but already accepted legs stay live at the gateway; the
// batch records whatever succeeded before the abort.
func (p *PairExecutor) submitLegs(ctx context.Context, batch *models.OrderBatch) {
	for _, leg := range batch.Legs {
		select {
		case <-ctx.Done():
			leg.Status = models.LegRejected
			leg.Accepted = false
			leg.Message = fmt.Sprintf("not submitted: %v", ctx.Err())
			leg.UpdatedAt = p.now()
			continue
		default:
		}

		orderID, err := p.broker.PlaceOrder(ctx, broker.OrderRequest{
			Symbol:    leg.Symbol,
			Exchange:  leg.Exchange,
			Side:      leg.Side,
			Quantity:  leg.Quantity,
			Price:     leg.Price,
			Product:   leg.Product,
			OrderType: leg.OrderType,
			Tag:       leg.Tag,
		})
		leg.UpdatedAt = p.now()

		if err != nil {
			leg.Accepted = false
			leg.Status = models.LegRejected
			leg.Message = err.Error()
			leg.RequiredMargin, leg.AvailableMargin = extractMarginInfo(err.Error())
			logging.LogLeg(p.logger, string(leg.Side), leg.Symbol, string(leg.Exchange), leg.Quantity, false, leg.Message)
			continue
		}

		leg.Accepted = true
		leg.OrderID = orderID
		leg.Status = models.LegSubmitted
		leg.Message = fmt.Sprintf("Order placed successfully: %s", orderID)
		logging.LogLeg(p.logger, string(leg.Side), leg.Symbol, string(leg.Exchange), leg.Quantity, true, leg.Message)
	}
}

// extractMarginInfo pulls required/available margin numbers out of a
// gateway rejection message when present. Both are zero otherwise.
func extractMarginInfo(message string) (required, available float64) {
	if m := requiredMarginRe.FindStringSubmatch(message); len(m) == 2 {
		required, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := availableMarginRe.FindStringSubmatch(message); len(m) == 2 {
		available, _ = strconv.ParseFloat(m[1], 64)
	}
	return required, available
}

// EstimatePairMargin sums the margin estimate for both legs of a
// cross-venue pair at a given quantity.
func EstimatePairMargin(opp models.CrossVenueSpread, quantity int) float64 {
	buy := EstimateMargin(opp.LowerPrice, quantity, models.ProductMIS)
	sell := EstimateMargin(opp.HigherPrice, quantity, models.ProductMIS)
	return buy + sell
}

// EstimatePremiumPairMargin sums the margin estimate for both legs of a
// cash-futures pair at a given lot count.
func EstimatePremiumPairMargin(opp models.CashFuturesPremium, lots int) float64 {
	if lots < 1 {
		lots = 1
	}
	lotSize := opp.LotSize
	if lotSize < 1 {
		lotSize = 1
	}
	quantity := lots * lotSize
	cash := EstimateMargin(opp.CashPrice, quantity, models.ProductCNC)
	fut := EstimateMargin(opp.FuturesPrice, quantity, models.ProductNRML)
	return cash + fut
}
