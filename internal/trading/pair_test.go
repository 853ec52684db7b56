package trading

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/models"
)

func crossVenueOpp() models.CrossVenueSpread {
	return models.CrossVenueSpread{
		Symbol:         "RELIANCE",
		NSEPrice:       1001,
		BSEPrice:       1000,
		PriceDiff:      1,
		PriceDiffPct:   0.1,
		HigherExchange: models.NSE,
		LowerExchange:  models.BSE,
		HigherPrice:    1001,
		LowerPrice:     1000,
		IsProfitable:   true,
	}
}

func premiumOpp() models.CashFuturesPremium {
	return models.CashFuturesPremium{
		Symbol:           "RELIANCE",
		CashPrice:        100,
		FuturesPrice:     101,
		Premium:          1,
		PremiumPct:       1,
		DaysToExpiry:     10,
		FuturesSymbol:    "RELIANCE25DEC",
		FuturesSymbolAPI: "RELIANCE25DECFUT",
		LotSize:          250,
		ProfitPerShare:   1,
	}
}

func TestSubmitCrossVenuePair(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	exec := NewPairExecutor(pb, zerolog.Nop(), "spread")

	batch, err := exec.SubmitCrossVenuePair(context.Background(), crossVenueOpp(), 10)
	if err != nil {
		t.Fatalf("SubmitCrossVenuePair: %v", err)
	}
	if len(batch.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(batch.Legs))
	}
	if !batch.AllAccepted() {
		t.Fatal("both legs should be accepted by the paper gateway")
	}

	buy, sell := batch.Legs[0], batch.Legs[1]
	if buy.Side != models.OrderSideBuy || buy.Exchange != models.BSE {
		t.Errorf("buy leg must target the lower venue, got %s %s", buy.Side, buy.Exchange)
	}
	if sell.Side != models.OrderSideSell || sell.Exchange != models.NSE {
		t.Errorf("sell leg must target the higher venue, got %s %s", sell.Side, sell.Exchange)
	}
	if buy.Price == nil || *buy.Price != 1000 {
		t.Error("buy leg must be a limit at the snapshot lower price")
	}
	if sell.Price == nil || *sell.Price != 1001 {
		t.Error("sell leg must be a limit at the snapshot higher price")
	}
	for _, leg := range batch.Legs {
		if leg.Product != models.ProductMIS || leg.OrderType != models.OrderTypeLimit {
			t.Errorf("leg must be MIS LIMIT, got %s %s", leg.Product, leg.OrderType)
		}
		if leg.Quantity != 10 {
			t.Errorf("quantity = %d, want 10", leg.Quantity)
		}
		if leg.Tag != "spread" {
			t.Errorf("tag = %q", leg.Tag)
		}
		if leg.Status != models.LegSubmitted {
			t.Errorf("accepted leg status = %s, want SUBMITTED", leg.Status)
		}
	}
}

func TestSubmitCrossVenuePairUsesPeggedLimitPrices(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	exec := NewPairExecutor(pb, zerolog.Nop(), "spread")

	opp := crossVenueOpp()
	opp.BuyLimitPrice = 999.8   // lower venue best bid
	opp.SellLimitPrice = 1001.2 // higher venue best ask

	batch, err := exec.SubmitCrossVenuePair(context.Background(), opp, 10)
	if err != nil {
		t.Fatalf("SubmitCrossVenuePair: %v", err)
	}

	buy, sell := batch.Legs[0], batch.Legs[1]
	if buy.Price == nil || *buy.Price != 999.8 {
		t.Errorf("buy leg must peg to the book's bid, got %v", buy.Price)
	}
	if sell.Price == nil || *sell.Price != 1001.2 {
		t.Errorf("sell leg must peg to the book's ask, got %v", sell.Price)
	}
}

func TestSubmitCrossVenuePairRejectsBadQuantity(t *testing.T) {
	exec := NewPairExecutor(broker.NewPaperBroker(broker.PaperBrokerConfig{}), zerolog.Nop(), "")
	if _, err := exec.SubmitCrossVenuePair(context.Background(), crossVenueOpp(), 0); err == nil {
		t.Fatal("expected an error for zero quantity")
	}
}

func TestSubmitCrossVenuePairMixedOutcome(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	pb.RejectNext("NSE:RELIANCE",
		"Insufficient funds. Required margin is 301500.00 but available margin is 50000.00.")
	exec := NewPairExecutor(pb, zerolog.Nop(), "spread")

	batch, err := exec.SubmitCrossVenuePair(context.Background(), crossVenueOpp(), 10)
	if err != nil {
		t.Fatalf("SubmitCrossVenuePair: %v", err)
	}

	buy, sell := batch.Legs[0], batch.Legs[1]
	if !buy.Accepted {
		t.Fatal("buy leg should be accepted")
	}
	if sell.Accepted || sell.Status != models.LegRejected {
		t.Fatal("sell leg should be rejected")
	}
	if !batch.Mixed() {
		t.Error("batch must report a mixed outcome")
	}

	// The rejection message carries margin numbers; they must be parsed out.
	if math.Abs(sell.RequiredMargin-301500) > 1e-9 {
		t.Errorf("required margin = %v, want 301500", sell.RequiredMargin)
	}
	if math.Abs(sell.AvailableMargin-50000) > 1e-9 {
		t.Errorf("available margin = %v, want 50000", sell.AvailableMargin)
	}

	// The accepted buy stays live: no compensating cancel is ever placed.
	if got := len(pb.Orders()); got != 1 {
		t.Errorf("gateway holds %d orders, want exactly the accepted buy", got)
	}
}

func TestSubmitCashFuturesPair(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	exec := NewPairExecutor(pb, zerolog.Nop(), "premium")

	batch, err := exec.SubmitCashFuturesPair(context.Background(), premiumOpp(), 2)
	if err != nil {
		t.Fatalf("SubmitCashFuturesPair: %v", err)
	}
	if !batch.AllAccepted() {
		t.Fatal("both legs should be accepted")
	}

	buy, sell := batch.Legs[0], batch.Legs[1]
	if buy.Exchange != models.NSE || buy.Product != models.ProductCNC || buy.Side != models.OrderSideBuy {
		t.Errorf("cash leg wrong: %s %s %s", buy.Side, buy.Exchange, buy.Product)
	}
	if sell.Exchange != models.NFO || sell.Product != models.ProductNRML || sell.Side != models.OrderSideSell {
		t.Errorf("futures leg wrong: %s %s %s", sell.Side, sell.Exchange, sell.Product)
	}
	if sell.Symbol != "RELIANCE25DECFUT" {
		t.Errorf("futures leg routes on the venue trading symbol, got %s", sell.Symbol)
	}
	for _, leg := range batch.Legs {
		if leg.OrderType != models.OrderTypeMarket {
			t.Errorf("premium legs are market orders, got %s", leg.OrderType)
		}
		if leg.Price != nil {
			t.Error("market legs carry no price")
		}
		if leg.Quantity != 500 { // 2 lots x 250
			t.Errorf("quantity = %d, want 500", leg.Quantity)
		}
	}
}

func TestSubmitCashFuturesPairClampsLots(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	exec := NewPairExecutor(pb, zerolog.Nop(), "")

	batch, err := exec.SubmitCashFuturesPair(context.Background(), premiumOpp(), 0)
	if err != nil {
		t.Fatalf("SubmitCashFuturesPair: %v", err)
	}
	if batch.Legs[0].Quantity != 250 {
		t.Errorf("zero lots clamps to one lot: quantity = %d, want 250", batch.Legs[0].Quantity)
	}
}

func TestSubmitLegsStopsOnCancelledContext(t *testing.T) {
	pb := broker.NewPaperBroker(broker.PaperBrokerConfig{})
	exec := NewPairExecutor(pb, zerolog.Nop(), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := exec.SubmitCrossVenuePair(ctx, crossVenueOpp(), 5)
	if err != nil {
		t.Fatalf("SubmitCrossVenuePair: %v", err)
	}
	for _, leg := range batch.Legs {
		if leg.Accepted || leg.Status != models.LegRejected {
			t.Errorf("leg %s should be marked rejected after cancellation", leg.Side)
		}
	}
	if len(pb.Orders()) != 0 {
		t.Error("no orders should reach the gateway after cancellation")
	}
}

func TestExtractMarginInfo(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		required  float64
		available float64
	}{
		{
			"both present",
			"Insufficient funds. Required margin is 5000.50 but available margin is 1200.25.",
			5000.50, 1200.25,
		},
		{"required only", "Required margin is 999", 999, 0},
		{"neither", "Order rejected by RMS", 0, 0},
		{"empty", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			required, available := extractMarginInfo(tt.message)
			if required != tt.required || available != tt.available {
				t.Errorf("extractMarginInfo(%q) = %v, %v; want %v, %v",
					tt.message, required, available, tt.required, tt.available)
			}
		})
	}
}
