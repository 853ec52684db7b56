// Package resolver maps bare symbols to venue-qualified instruments.
package resolver

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/errors"
	"spread-trader/internal/logging"
	"spread-trader/internal/models"
)

// currencyTokens are the currency-pair markers that route a derivative
// symbol to the currency segment.
var currencyTokens = []string{"USDINR", "EURINR", "GBPINR", "JPYINR", "INR"}

// expiryFormats are the accepted expiry date renderings, tried in order.
var expiryFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
}

// Resolver classifies symbols onto venues and resolves derivative
// contracts. Instruments are re-resolved per request since derivative
// expiries roll over.
type Resolver struct {
	broker broker.Broker
	logger zerolog.Logger
	// lotOverrides takes precedence over venue-reported lot sizes.
	lotOverrides map[string]int
	now          func() time.Time
}

// New creates a new Resolver.
func New(b broker.Broker, logger zerolog.Logger, lotOverrides map[string]int) *Resolver {
	overrides := make(map[string]int, len(lotOverrides))
	for symbol, lot := range lotOverrides {
		overrides[strings.ToUpper(symbol)] = lot
	}
	return &Resolver{
		broker:       b,
		logger:       logger,
		lotOverrides: overrides,
		now:          time.Now,
	}
}

// Classify determines the venue and instrument kind for a bare symbol.
// Symbols carrying two or more digits trade on a derivative segment;
// among those, a currency-pair token routes to CDS. Everything else is
// cash equity on the primary venue.
func Classify(symbol string) (models.Exchange, models.InstrumentKind) {
	digits := 0
	for _, r := range symbol {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits >= 2 {
		upper := strings.ToUpper(symbol)
		for _, token := range currencyTokens {
			if strings.Contains(upper, token) {
				return models.CDS, models.KindCurrencyFuture
			}
		}
		return models.NFO, models.KindFuture
	}
	return models.NSE, models.KindEquity
}

// Resolve maps a bare symbol to an Instrument.
func (r *Resolver) Resolve(symbol string) (models.Instrument, error) {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return models.Instrument{}, errors.NewResolutionError(symbol, "empty symbol", nil)
	}

	exchange, kind := Classify(trimmed)
	inst := models.Instrument{
		Symbol:   strings.ToUpper(trimmed),
		Exchange: exchange,
		Kind:     kind,
	}
	if inst.IsDerivative() {
		inst.LotSize = r.LotSize(inst.Symbol, 0)
	}
	return inst, nil
}

// ResolveAll resolves a batch of symbols. Unresolvable symbols are
// skipped and logged; a single bad symbol never aborts the batch.
func (r *Resolver) ResolveAll(symbols []string) []models.Instrument {
	instruments := make([]models.Instrument, 0, len(symbols))
	for _, symbol := range symbols {
		inst, err := r.Resolve(symbol)
		if err != nil {
			logger := logging.WithSymbol(r.logger, symbol)
			logger.Warn().Err(err).Msg("Skipping unresolvable symbol")
			continue
		}
		instruments = append(instruments, inst)
	}
	return instruments
}

// LotSize resolves the lot size for a derivative symbol: the override
// table wins, then the venue-reported size, then 1. The result is never
// below 1.
func (r *Resolver) LotSize(symbol string, venueReported int) int {
	lot, ok := r.lotOverrides[strings.ToUpper(symbol)]
	if !ok {
		lot = venueReported
	}
	if lot < 1 {
		return 1
	}
	return lot
}

// FormatOrderSymbol composes the venue routing symbol for a futures
// contract: alphanumeric symbol + 2-digit year + 3-letter month, upper
// case (RELIANCE25NOV). When the expiry cannot be parsed under any
// accepted format, the cleaned bare symbol is returned instead of
// failing the resolution.
func FormatOrderSymbol(symbol, expiry string) string {
	cleaned := cleanSymbol(symbol)
	if cleaned == "" {
		return ""
	}

	expiry = strings.TrimSpace(expiry)
	for _, format := range expiryFormats {
		if t, err := time.Parse(format, expiry); err == nil {
			return cleaned + strings.ToUpper(t.Format("06Jan"))
		}
	}
	return cleaned
}

func cleanSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(symbol) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NearMonthFutures resolves the near-month futures contract (smallest
// positive days-to-expiry) for each underlying. Contracts at or past
// expiry are not rolled forward: an underlying with no live contract is
// simply absent from the result this cycle.
func (r *Resolver) NearMonthFutures(ctx context.Context, symbols []string) (map[string]models.FutureContract, error) {
	instruments, err := r.broker.GetInstruments(ctx, models.NFO)
	if err != nil {
		return nil, errors.Wrap(err, "fetching derivative instruments")
	}

	now := r.now()
	contracts := make(map[string]models.FutureContract)

	for _, symbol := range symbols {
		upper := strings.ToUpper(strings.TrimSpace(symbol))
		if upper == "" {
			continue
		}

		candidates := make([]broker.VenueInstrument, 0, 4)
		for _, inst := range instruments {
			if inst.InstrumentType != "FUT" {
				continue
			}
			if inst.Name != upper && !strings.HasPrefix(inst.TradingSymbol, upper) {
				continue
			}
			candidates = append(candidates, inst)
		}
		if len(candidates) == 0 {
			continue
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Expiry.Before(candidates[j].Expiry)
		})

		for _, inst := range candidates {
			days := daysUntil(now, inst.Expiry)
			if days <= 0 {
				continue
			}
			contracts[upper] = models.FutureContract{
				Underlying:    upper,
				TradingSymbol: inst.TradingSymbol,
				OrderSymbol:   FormatOrderSymbol(upper, inst.Expiry.Format("2006-01-02")),
				Exchange:      models.NFO,
				Expiry:        inst.Expiry,
				DaysToExpiry:  days,
				LotSize:       r.LotSize(upper, inst.LotSize),
			}
			break
		}
	}

	return contracts, nil
}

func daysUntil(now, expiry time.Time) int {
	return int(expiry.Sub(now).Hours() / 24)
}
