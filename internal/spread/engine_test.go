package spread

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spread-trader/internal/models"
)

const tolerance = 1e-9

func quote(symbol string, exchange models.Exchange, price float64, volume int64) models.Quote {
	return models.Quote{
		Symbol:    symbol,
		Exchange:  exchange,
		LastPrice: price,
		Volume:    volume,
		Timestamp: time.Now(),
	}
}

func TestEvaluateCrossVenue(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	quotes := map[string]models.Quote{
		"NSE:RELIANCE": quote("RELIANCE", models.NSE, 1001, 2000000),
		"BSE:RELIANCE": quote("RELIANCE", models.BSE, 1000, 1000000),
	}

	spreads := e.EvaluateCrossVenue(quotes, 0)
	if len(spreads) != 1 {
		t.Fatalf("expected 1 spread, got %d", len(spreads))
	}

	s := spreads[0]
	if s.Symbol != "RELIANCE" {
		t.Errorf("symbol = %s", s.Symbol)
	}
	if math.Abs(s.PriceDiff-1) > tolerance {
		t.Errorf("price diff = %v, want 1", s.PriceDiff)
	}
	// diff / min price * 100 = 1/1000*100 = 0.1%
	if math.Abs(s.PriceDiffPct-0.1) > tolerance {
		t.Errorf("diff pct = %v, want 0.1", s.PriceDiffPct)
	}
	if !s.IsProfitable {
		t.Error("0.1% gross must be flagged profitable")
	}
	if s.HigherExchange != models.NSE || s.LowerExchange != models.BSE {
		t.Errorf("venue direction wrong: higher=%s lower=%s", s.HigherExchange, s.LowerExchange)
	}
	if s.HigherPrice != 1001 || s.LowerPrice != 1000 {
		t.Errorf("prices wrong: higher=%v lower=%v", s.HigherPrice, s.LowerPrice)
	}
	if math.Abs(s.AvgVolume-1500000) > tolerance {
		t.Errorf("avg volume = %v, want 1500000", s.AvgVolume)
	}
	// score = diffPct * avgVolume / 1,000,000
	if math.Abs(s.Score-0.1*1.5) > tolerance {
		t.Errorf("score = %v, want 0.15", s.Score)
	}
}

func TestEvaluateCrossVenueProfitabilityFlag(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	tests := []struct {
		name       string
		nse, bse   float64
		profitable bool
	}{
		{"well above threshold", 1010, 1000, true},
		{"just above threshold", 1000.8, 1000, true}, // 0.08%
		// 0.5/1000*100 evaluates to exactly 0.05 in float64; the flag
		// requires strictly more than the threshold.
		{"exactly at threshold", 1000.5, 1000, false},
		{"below threshold", 1000.3, 1000, false}, // 0.03%
		{"equal prices", 1000, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := map[string]models.Quote{
				"NSE:X": quote("X", models.NSE, tt.nse, 100000),
				"BSE:X": quote("X", models.BSE, tt.bse, 100000),
			}
			spreads := e.EvaluateCrossVenue(quotes, 0)
			if len(spreads) != 1 {
				t.Fatalf("expected 1 spread, got %d", len(spreads))
			}
			if spreads[0].IsProfitable != tt.profitable {
				t.Errorf("IsProfitable = %v (diff %.4f%%), want %v",
					spreads[0].IsProfitable, spreads[0].PriceDiffPct, tt.profitable)
			}
		})
	}
}

func TestEvaluateCrossVenueMinProfitFiltersRowsOnly(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	quotes := map[string]models.Quote{
		"NSE:X": quote("X", models.NSE, 1001, 100000), // 0.1%
		"BSE:X": quote("X", models.BSE, 1000, 100000),
		"NSE:Y": quote("Y", models.NSE, 1005, 100000), // 0.5%
		"BSE:Y": quote("Y", models.BSE, 1000, 100000),
	}

	// A higher floor drops rows but never changes the flag on returned rows.
	filtered := e.EvaluateCrossVenue(quotes, 0.3)
	if len(filtered) != 1 || filtered[0].Symbol != "Y" {
		t.Fatalf("expected only Y above 0.3%%, got %v", filtered)
	}
	if !filtered[0].IsProfitable {
		t.Error("flag must stay pinned to the fixed threshold")
	}

	all := e.EvaluateCrossVenue(quotes, 0)
	if len(all) != 2 {
		t.Fatalf("expected both spreads with zero floor, got %d", len(all))
	}
}

func TestEvaluateCrossVenueRequiresBothVenues(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	quotes := map[string]models.Quote{
		"NSE:ONLYNSE": quote("ONLYNSE", models.NSE, 500, 100000),
		"NSE:ZEROED":  quote("ZEROED", models.NSE, 0, 100000),
		"BSE:ZEROED":  quote("ZEROED", models.BSE, 500, 100000),
	}

	if spreads := e.EvaluateCrossVenue(quotes, 0); len(spreads) != 0 {
		t.Errorf("expected no spreads, got %d", len(spreads))
	}
}

func TestEvaluateCrossVenuePegsLimitPrices(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	nse := quote("X", models.NSE, 1001, 100000)
	nse.BestBid, nse.BestAsk = 1000.8, 1001.2
	bse := quote("X", models.BSE, 1000, 100000)
	bse.BestBid, bse.BestAsk = 999.8, 1000.2

	spreads := e.EvaluateCrossVenue(map[string]models.Quote{
		"NSE:X": nse, "BSE:X": bse,
	}, 0)
	if len(spreads) != 1 {
		t.Fatalf("expected 1 spread, got %d", len(spreads))
	}

	// Buy at the lower venue's best bid, sell at the higher venue's
	// best ask.
	if spreads[0].BuyLimitPrice != 999.8 {
		t.Errorf("BuyLimitPrice = %v, want BSE best bid 999.8", spreads[0].BuyLimitPrice)
	}
	if spreads[0].SellLimitPrice != 1001.2 {
		t.Errorf("SellLimitPrice = %v, want NSE best ask 1001.2", spreads[0].SellLimitPrice)
	}
}

func TestEvaluateCrossVenueLimitPricesFallBackToLastTraded(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	// No depth on either quote; pegging falls back to last traded.
	spreads := e.EvaluateCrossVenue(map[string]models.Quote{
		"NSE:X": quote("X", models.NSE, 1001, 100000),
		"BSE:X": quote("X", models.BSE, 1000, 100000),
	}, 0)
	if len(spreads) != 1 {
		t.Fatalf("expected 1 spread, got %d", len(spreads))
	}
	if spreads[0].BuyLimitPrice != 1000 || spreads[0].SellLimitPrice != 1001 {
		t.Errorf("limit prices = %v/%v, want 1000/1001",
			spreads[0].BuyLimitPrice, spreads[0].SellLimitPrice)
	}
}

func TestEvaluateCrossVenueOrdering(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	quotes := map[string]models.Quote{
		"NSE:LOW":  quote("LOW", models.NSE, 1001, 100000),
		"BSE:LOW":  quote("LOW", models.BSE, 1000, 100000),
		"NSE:HIGH": quote("HIGH", models.NSE, 1010, 5000000),
		"BSE:HIGH": quote("HIGH", models.BSE, 1000, 5000000),
		"NSE:MID":  quote("MID", models.NSE, 1005, 1000000),
		"BSE:MID":  quote("MID", models.BSE, 1000, 1000000),
	}

	spreads := e.EvaluateCrossVenue(quotes, 0)
	if len(spreads) != 3 {
		t.Fatalf("expected 3 spreads, got %d", len(spreads))
	}
	for i := 1; i < len(spreads); i++ {
		if spreads[i-1].Score < spreads[i].Score {
			t.Errorf("scores not descending: %v then %v", spreads[i-1].Score, spreads[i].Score)
		}
	}
	if spreads[0].Symbol != "HIGH" {
		t.Errorf("highest score first, got %s", spreads[0].Symbol)
	}
}

func TestEvaluateCashFutures(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	contracts := map[string]models.FutureContract{
		"RELIANCE": {
			Underlying:    "RELIANCE",
			TradingSymbol: "RELIANCE25DECFUT",
			OrderSymbol:   "RELIANCE25DEC",
			Exchange:      models.NFO,
			Expiry:        time.Now().AddDate(0, 0, 10),
			DaysToExpiry:  10,
			LotSize:       250,
		},
	}
	cash := map[string]models.Quote{
		"NSE:RELIANCE": quote("RELIANCE", models.NSE, 100, 1000000),
	}
	futures := map[string]models.Quote{
		"NFO:RELIANCE25DECFUT": quote("RELIANCE25DECFUT", models.NFO, 101, 50000),
	}

	premiums := e.EvaluateCashFutures(cash, futures, contracts)
	if len(premiums) != 1 {
		t.Fatalf("expected 1 premium, got %d", len(premiums))
	}

	p := premiums[0]
	if math.Abs(p.Premium-1) > tolerance {
		t.Errorf("premium = %v, want 1", p.Premium)
	}
	if math.Abs(p.PremiumPct-1) > tolerance {
		t.Errorf("premium pct = %v, want 1", p.PremiumPct)
	}
	// 1% over 10 days -> 36.5% annualized
	if math.Abs(p.AnnualizedPremium-36.5) > 1e-6 {
		t.Errorf("annualized = %v, want 36.5", p.AnnualizedPremium)
	}
	// score = premiumPct * days / 30
	if math.Abs(p.Score-1.0*10/30) > tolerance {
		t.Errorf("score = %v, want %v", p.Score, 1.0*10/30)
	}
	if p.FuturesSymbol != "RELIANCE25DEC" || p.FuturesSymbolAPI != "RELIANCE25DECFUT" {
		t.Errorf("symbols: order=%s api=%s", p.FuturesSymbol, p.FuturesSymbolAPI)
	}
	if math.Abs(p.ProfitPerLot()-250) > tolerance {
		t.Errorf("profit per lot = %v, want 250", p.ProfitPerLot())
	}
}

func TestEvaluateCashFuturesSkipsDeadContracts(t *testing.T) {
	e := NewEngine(nil, zerolog.Nop())

	contracts := map[string]models.FutureContract{
		"EXPIRED": {
			Underlying:    "EXPIRED",
			TradingSymbol: "EXPIREDFUT",
			Exchange:      models.NFO,
			DaysToExpiry:  0,
		},
		"NOQUOTE": {
			Underlying:    "NOQUOTE",
			TradingSymbol: "NOQUOTEFUT",
			Exchange:      models.NFO,
			DaysToExpiry:  15,
		},
	}
	cash := map[string]models.Quote{
		"NSE:EXPIRED": quote("EXPIRED", models.NSE, 100, 1000),
		"NSE:NOQUOTE": quote("NOQUOTE", models.NSE, 100, 1000),
	}
	futures := map[string]models.Quote{
		"NFO:EXPIREDFUT": quote("EXPIREDFUT", models.NFO, 101, 1000),
	}

	if premiums := e.EvaluateCashFutures(cash, futures, contracts); len(premiums) != 0 {
		t.Errorf("expected no premiums, got %d", len(premiums))
	}
}

func TestAnnualize(t *testing.T) {
	if got := annualize(1, 0); got != 0 {
		t.Errorf("annualize at zero days = %v, want 0", got)
	}
	if got := annualize(1, -5); got != 0 {
		t.Errorf("annualize at negative days = %v, want 0", got)
	}
	if got := annualize(2, 365); math.Abs(got-2) > tolerance {
		t.Errorf("annualize(2, 365) = %v, want 2", got)
	}
}
