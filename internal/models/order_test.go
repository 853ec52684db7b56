package models

import "testing"

func TestLegStatusTransitions(t *testing.T) {
	tests := []struct {
		from    LegStatus
		to      LegStatus
		allowed bool
	}{
		{LegSubmitted, LegOpen, true},
		{LegSubmitted, LegRejected, true},
		{LegSubmitted, LegFilled, false},
		{LegSubmitted, LegCancelled, false},
		{LegOpen, LegPartiallyFilled, true},
		{LegOpen, LegFilled, true},
		{LegOpen, LegCancelled, true},
		{LegOpen, LegRejected, false},
		{LegOpen, LegSubmitted, false},
		{LegPartiallyFilled, LegPartiallyFilled, true},
		{LegPartiallyFilled, LegFilled, true},
		{LegPartiallyFilled, LegCancelled, true},
		{LegPartiallyFilled, LegOpen, false},
		// Terminal states never transition anywhere.
		{LegFilled, LegOpen, false},
		{LegFilled, LegCancelled, false},
		{LegCancelled, LegOpen, false},
		{LegRejected, LegOpen, false},
		{LegRejected, LegSubmitted, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestLegStatusIsTerminal(t *testing.T) {
	terminal := []LegStatus{LegFilled, LegCancelled, LegRejected}
	open := []LegStatus{LegSubmitted, LegOpen, LegPartiallyFilled}

	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestDisplayStatus(t *testing.T) {
	tests := []struct {
		name string
		leg  OrderLeg
		want string
	}{
		{"filled", OrderLeg{Status: LegFilled, FilledQty: 100}, "COMPLETE (100 filled)"},
		{"open with pending", OrderLeg{Status: LegOpen, PendingQty: 40}, "OPEN PENDING (40 pending)"},
		{"open no pending", OrderLeg{Status: LegOpen}, "OPEN"},
		{"partial with pending", OrderLeg{Status: LegPartiallyFilled, FilledQty: 60, PendingQty: 40}, "OPEN PENDING (40 pending)"},
		{"rejected", OrderLeg{Status: LegRejected}, "REJECTED"},
		{"cancelled", OrderLeg{Status: LegCancelled}, "CANCELLED"},
		{"submitted", OrderLeg{Status: LegSubmitted}, "SUBMITTED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.leg.DisplayStatus(); got != tt.want {
				t.Errorf("DisplayStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatchOutcomes(t *testing.T) {
	accepted := &OrderLeg{Accepted: true, Status: LegSubmitted, OrderID: "A1"}
	rejected := &OrderLeg{Accepted: false, Status: LegRejected}

	both := &OrderBatch{Legs: []*OrderLeg{accepted, {Accepted: true, Status: LegSubmitted, OrderID: "A2"}}}
	if !both.AllAccepted() || both.Mixed() {
		t.Errorf("fully accepted batch: AllAccepted=%v Mixed=%v", both.AllAccepted(), both.Mixed())
	}

	mixed := &OrderBatch{Legs: []*OrderLeg{accepted, rejected}}
	if mixed.AllAccepted() || !mixed.Mixed() {
		t.Errorf("mixed batch: AllAccepted=%v Mixed=%v", mixed.AllAccepted(), mixed.Mixed())
	}

	none := &OrderBatch{Legs: []*OrderLeg{rejected, {Accepted: false, Status: LegRejected}}}
	if none.AllAccepted() || none.Mixed() {
		t.Errorf("fully rejected batch: AllAccepted=%v Mixed=%v", none.AllAccepted(), none.Mixed())
	}

	empty := &OrderBatch{}
	if empty.AllAccepted() {
		t.Error("empty batch must not count as accepted")
	}
}

func TestQuoteSidePrice(t *testing.T) {
	q := Quote{LastPrice: 100, BestBid: 99.5, BestAsk: 100.5}

	if got := q.SidePrice(OrderSideBuy); got != 99.5 {
		t.Errorf("buy side price = %v, want best bid 99.5", got)
	}
	if got := q.SidePrice(OrderSideSell); got != 100.5 {
		t.Errorf("sell side price = %v, want best ask 100.5", got)
	}

	// Missing depth falls back to last traded price.
	flat := Quote{LastPrice: 100}
	if got := flat.SidePrice(OrderSideBuy); got != 100 {
		t.Errorf("buy side price without depth = %v, want 100", got)
	}
	if got := flat.SidePrice(OrderSideSell); got != 100 {
		t.Errorf("sell side price without depth = %v, want 100", got)
	}
}
