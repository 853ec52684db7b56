package spread

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"spread-trader/internal/models"
)

// Property: the profitability flag agrees with the fixed gross threshold
// for any pair of positive venue prices, and never depends on the
// caller-supplied floor.
func TestProperty_ProfitabilityFlag(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	e := NewEngine(nil, zerolog.Nop())

	properties.Property("flag follows the fixed threshold", prop.ForAll(
		func(nsePrice, bsePrice float64, volume int64) bool {
			quotes := map[string]models.Quote{
				"NSE:SYM": {Symbol: "SYM", Exchange: models.NSE, LastPrice: nsePrice, Volume: volume},
				"BSE:SYM": {Symbol: "SYM", Exchange: models.BSE, LastPrice: bsePrice, Volume: volume},
			}
			spreads := e.EvaluateCrossVenue(quotes, 0)
			if len(spreads) != 1 {
				return false
			}
			s := spreads[0]
			return s.IsProfitable == (s.PriceDiffPct > models.ProfitabilityThresholdPct)
		},
		gen.Float64Range(1, 100000),
		gen.Float64Range(1, 100000),
		gen.Int64Range(0, 10000000),
	))

	properties.TestingRun(t)
}

// Property: results come back sorted by score, highest first, whatever
// the input universe; the diff percentage is never negative; and the
// higher venue price is never below the lower one.
func TestProperty_SpreadResultShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	e := NewEngine(nil, zerolog.Nop())

	symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE"}

	properties.Property("sorted, non-negative, oriented", prop.ForAll(
		func(prices []float64) bool {
			quotes := make(map[string]models.Quote)
			for i, symbol := range symbols {
				if 2*i+1 >= len(prices) {
					break
				}
				quotes["NSE:"+symbol] = models.Quote{
					Symbol: symbol, Exchange: models.NSE, LastPrice: prices[2*i], Volume: 100000,
				}
				quotes["BSE:"+symbol] = models.Quote{
					Symbol: symbol, Exchange: models.BSE, LastPrice: prices[2*i+1], Volume: 100000,
				}
			}

			spreads := e.EvaluateCrossVenue(quotes, 0)
			for i, s := range spreads {
				if s.PriceDiffPct < 0 {
					return false
				}
				if s.HigherPrice < s.LowerPrice {
					return false
				}
				if i > 0 && spreads[i-1].Score < s.Score {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.Float64Range(1, 50000)),
	))

	properties.TestingRun(t)
}
