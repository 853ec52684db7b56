package trading

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/models"
)

func TestEstimateMargin(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		qty     int
		product models.ProductType
		want    float64
	}{
		{"delivery blocks full notional", 100, 10, models.ProductCNC, 1000},
		{"carry-forward blocks full notional", 100, 10, models.ProductNRML, 1000},
		{"intraday takes the heuristic fraction", 100, 10, models.ProductMIS, 300},
		{"unknown product falls back to intraday", 100, 10, models.ProductType("BO"), 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateMargin(tt.price, tt.qty, tt.product); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EstimateMargin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimatePairMargin(t *testing.T) {
	opp := crossVenueOpp() // 1000 / 1001, MIS both legs
	want := (1000.0*10 + 1001.0*10) * 0.30
	if got := EstimatePairMargin(opp, 10); math.Abs(got-want) > 1e-6 {
		t.Errorf("EstimatePairMargin = %v, want %v", got, want)
	}
}

func TestEstimatePremiumPairMargin(t *testing.T) {
	opp := premiumOpp() // cash 100 CNC + futures 101 NRML, lot 250
	want := 100.0*500 + 101.0*500
	if got := EstimatePremiumPairMargin(opp, 2); math.Abs(got-want) > 1e-6 {
		t.Errorf("EstimatePremiumPairMargin = %v, want %v", got, want)
	}

	// Lots below 1 clamp up to one lot.
	wantOne := 100.0*250 + 101.0*250
	if got := EstimatePremiumPairMargin(opp, 0); math.Abs(got-wantOne) > 1e-6 {
		t.Errorf("EstimatePremiumPairMargin(0 lots) = %v, want %v", got, wantOne)
	}
}

func TestCheckAffordability(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{AvailableMargin: 50000})

	afford := CheckAffordability(context.Background(), pb, zerolog.Nop(), 20000)
	if !afford.Known || !afford.Sufficient {
		t.Errorf("expected known and sufficient, got %+v", afford)
	}

	afford = CheckAffordability(context.Background(), pb, zerolog.Nop(), 80000)
	if !afford.Known || afford.Sufficient {
		t.Errorf("expected known and insufficient, got %+v", afford)
	}
	if afford.Required != 80000 || afford.Available != 50000 {
		t.Errorf("amounts wrong: %+v", afford)
	}
}
