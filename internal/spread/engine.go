// Package spread computes cross-venue and cash-futures opportunities.
package spread

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/errors"
	"spread-trader/internal/logging"
	"spread-trader/internal/models"
	"spread-trader/pkg/utils"
)

// volumeNormalizer scales average traded volume into the score so a wide
// spread on an illiquid pair does not outrank a tradeable one.
const volumeNormalizer = 1000000.0

// Engine detects pricing divergences between venues. It holds no state
// between cycles: every evaluation works on fresh quotes and produces a
// new immutable opportunity set.
type Engine struct {
	broker  broker.Broker
	logger  zerolog.Logger
	backoff utils.Backoff
	now     func() time.Time
}

// NewEngine creates a new spread engine.
func NewEngine(b broker.Broker, logger zerolog.Logger) *Engine {
	return &Engine{broker: b, logger: logger, backoff: utils.NewBackoff(), now: time.Now}
}

// FetchQuotes batches the venue-qualified symbols into one quote request,
// retrying transient source failures. Symbols the source has no data for
// are absent from the returned map.
func (e *Engine) FetchQuotes(ctx context.Context, qualified []string) (map[string]models.Quote, error) {
	quotes, err := utils.DoWithResult(ctx, e.backoff, func() (map[string]models.Quote, error) {
		return e.broker.GetQuotes(ctx, qualified)
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetching quotes")
	}
	return quotes, nil
}

// EvaluateCrossVenue computes NSE-BSE spreads for every symbol quoted at
// both venues. minProfitPct filters which rows are returned; it has no
// bearing on the profitability flag, which is pinned to the fixed gross
// threshold. Results are sorted by score, highest first, with symbol name
// breaking ties deterministically.
func (e *Engine) EvaluateCrossVenue(quotes map[string]models.Quote, minProfitPct float64) []models.CrossVenueSpread {
	bySymbol := make(map[string]map[models.Exchange]models.Quote)
	for _, quote := range quotes {
		symbol := quote.Symbol
		if symbol == "" {
			continue
		}
		if bySymbol[symbol] == nil {
			bySymbol[symbol] = make(map[models.Exchange]models.Quote, 2)
		}
		bySymbol[symbol][quote.Exchange] = quote
	}

	observedAt := e.now()
	spreads := make([]models.CrossVenueSpread, 0, len(bySymbol))

	for symbol, venues := range bySymbol {
		nse, hasNSE := venues[models.NSE]
		bse, hasBSE := venues[models.BSE]
		if !hasNSE || !hasBSE {
			continue
		}
		if nse.LastPrice <= 0 || bse.LastPrice <= 0 {
			continue
		}

		diff := math.Abs(nse.LastPrice - bse.LastPrice)
		diffPct := diff / math.Min(nse.LastPrice, bse.LastPrice) * 100

		// Below the caller's floor the row is dropped entirely.
		if diffPct < minProfitPct {
			continue
		}

		spread := models.CrossVenueSpread{
			Symbol:         symbol,
			NSEPrice:       nse.LastPrice,
			BSEPrice:       bse.LastPrice,
			PriceDiff:      diff,
			PriceDiffPct:   diffPct,
			ProfitPerShare: diff,
			NSEVolume:      nse.Volume,
			BSEVolume:      bse.Volume,
			AvgVolume:      float64(nse.Volume+bse.Volume) / 2,
			NSEChangePct:   nse.ChangePercent(),
			BSEChangePct:   bse.ChangePercent(),
			IsProfitable:   diffPct > models.ProfitabilityThresholdPct,
			ObservedAt:     observedAt,
		}

		if nse.LastPrice > bse.LastPrice {
			spread.HigherExchange, spread.LowerExchange = models.NSE, models.BSE
			spread.HigherPrice, spread.LowerPrice = nse.LastPrice, bse.LastPrice
			spread.BuyLimitPrice = bse.SidePrice(models.OrderSideBuy)
			spread.SellLimitPrice = nse.SidePrice(models.OrderSideSell)
		} else {
			spread.HigherExchange, spread.LowerExchange = models.BSE, models.NSE
			spread.HigherPrice, spread.LowerPrice = bse.LastPrice, nse.LastPrice
			spread.BuyLimitPrice = nse.SidePrice(models.OrderSideBuy)
			spread.SellLimitPrice = bse.SidePrice(models.OrderSideSell)
		}

		spread.Score = diffPct * (spread.AvgVolume / volumeNormalizer)
		spreads = append(spreads, spread)
	}

	sort.Slice(spreads, func(i, j int) bool {
		if spreads[i].Score != spreads[j].Score {
			return spreads[i].Score > spreads[j].Score
		}
		return spreads[i].Symbol < spreads[j].Symbol
	})

	for _, s := range spreads {
		logging.LogOpportunity(e.logger, string(models.OpportunityCrossVenue), s.Symbol, s.Score, s.IsProfitable)
	}

	return spreads
}

// EvaluateCashFutures computes the cash-futures premium for every
// underlying that has both a cash quote and a resolved near-month
// contract. Contracts without positive days-to-expiry never reach this
// point; the resolver excludes them. Results are sorted by score, highest
// first, ties broken by symbol.
func (e *Engine) EvaluateCashFutures(
	cashQuotes map[string]models.Quote,
	futuresQuotes map[string]models.Quote,
	contracts map[string]models.FutureContract,
) []models.CashFuturesPremium {
	observedAt := e.now()
	opportunities := make([]models.CashFuturesPremium, 0, len(contracts))

	for underlying, contract := range contracts {
		cashKey := fmt.Sprintf("%s:%s", models.NSE, underlying)
		futKey := fmt.Sprintf("%s:%s", contract.Exchange, contract.TradingSymbol)

		cash, hasCash := cashQuotes[cashKey]
		fut, hasFut := futuresQuotes[futKey]
		if !hasCash || !hasFut {
			continue
		}
		if cash.LastPrice <= 0 || fut.LastPrice <= 0 {
			continue
		}
		if contract.DaysToExpiry <= 0 {
			continue
		}

		premium := fut.LastPrice - cash.LastPrice
		premiumPct := premium / cash.LastPrice * 100

		opportunities = append(opportunities, models.CashFuturesPremium{
			Symbol:            underlying,
			CashPrice:         cash.LastPrice,
			FuturesPrice:      fut.LastPrice,
			Premium:           premium,
			PremiumPct:        premiumPct,
			AnnualizedPremium: annualize(premiumPct, contract.DaysToExpiry),
			DaysToExpiry:      contract.DaysToExpiry,
			ExpiryDate:        contract.Expiry,
			FuturesSymbol:     contract.OrderSymbol,
			FuturesSymbolAPI:  contract.TradingSymbol,
			LotSize:           contract.LotSize,
			ProfitPerShare:    premium,
			CashVolume:        cash.Volume,
			FuturesVolume:     fut.Volume,
			CashChangePct:     cash.ChangePercent(),
			Score:             premiumPct * float64(contract.DaysToExpiry) / 30,
			ObservedAt:        observedAt,
		})
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		return opportunities[i].Symbol < opportunities[j].Symbol
	})

	for _, o := range opportunities {
		logging.LogOpportunity(e.logger, string(models.OpportunityCashFutures), o.Symbol, o.Score, o.PremiumPct > 0)
	}

	return opportunities
}

// annualize converts a premium over the remaining days to a yearly rate.
// Zero when no time remains; the premium cannot decay in the past.
func annualize(premiumPct float64, daysToExpiry int) float64 {
	if daysToExpiry <= 0 {
		return 0
	}
	return premiumPct / float64(daysToExpiry) * 365
}
