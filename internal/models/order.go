package models

import (
	"fmt"
	"time"
)

// LegStatus is the normalized lifecycle status of an order leg.
//
// Transitions:
//
//	Submitted       -> Open | Rejected
//	Open            -> PartiallyFilled | Filled | Cancelled
//	PartiallyFilled -> PartiallyFilled | Filled | Cancelled
//
// Filled, Cancelled and Rejected are terminal; a terminal leg is persisted
// and never reopened.
type LegStatus string

const (
	LegSubmitted       LegStatus = "SUBMITTED"
	LegOpen            LegStatus = "OPEN"
	LegPartiallyFilled LegStatus = "PARTIALLY_FILLED"
	LegFilled          LegStatus = "FILLED"
	LegCancelled       LegStatus = "CANCELLED"
	LegRejected        LegStatus = "REJECTED"
)

// IsTerminal reports whether the status ends the leg's lifecycle.
func (s LegStatus) IsTerminal() bool {
	return s == LegFilled || s == LegCancelled || s == LegRejected
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next.
func (s LegStatus) CanTransitionTo(next LegStatus) bool {
	switch s {
	case LegSubmitted:
		return next == LegOpen || next == LegRejected
	case LegOpen:
		return next == LegPartiallyFilled || next == LegFilled || next == LegCancelled
	case LegPartiallyFilled:
		return next == LegPartiallyFilled || next == LegFilled || next == LegCancelled
	default:
		return false
	}
}

// OrderLeg is one side of a matched pair. Legs are created by the pair
// executor at submission time and mutated in place by the reconciler as
// lifecycle updates arrive.
type OrderLeg struct {
	Side       OrderSide
	Market     MarketSegment
	Symbol     string
	Exchange   Exchange
	Quantity   int
	Price      *float64 // nil means market order
	Product    ProductType
	OrderType  OrderType
	Tag        string
	OrderID    string // empty until accepted by the gateway
	Accepted   bool
	Status     LegStatus
	Message    string // last exchange / gateway message
	FilledQty  int
	PendingQty int
	// Margin numbers parsed out of a gateway rejection message, when the
	// message encodes them. Zero when absent.
	RequiredMargin  float64
	AvailableMargin float64
	SubmittedAt     time.Time
	UpdatedAt       time.Time
}

// DisplayStatus renders the operator-facing status. Open legs with pending
// quantity are reported as OPEN PENDING to distinguish partial progress
// from a fully unfilled order.
func (l *OrderLeg) DisplayStatus() string {
	switch l.Status {
	case LegFilled:
		return fmt.Sprintf("COMPLETE (%d filled)", l.FilledQty)
	case LegOpen, LegPartiallyFilled:
		if l.PendingQty > 0 {
			return fmt.Sprintf("OPEN PENDING (%d pending)", l.PendingQty)
		}
		return "OPEN"
	default:
		return string(l.Status)
	}
}

// OrderBatch is an ordered, fixed-size set of legs that forms a single
// trading decision. The venue has no atomic multi-leg primitive, so legs
// are submitted as independent orders; the batch exists to make sure they
// are tracked and reported together, including mixed outcomes.
type OrderBatch struct {
	ID        string
	Kind      OpportunityKind
	Symbol    string
	Legs      []*OrderLeg
	CreatedAt time.Time
}

// AllAccepted reports whether every leg was accepted by the gateway.
func (b *OrderBatch) AllAccepted() bool {
	for _, leg := range b.Legs {
		if !leg.Accepted {
			return false
		}
	}
	return len(b.Legs) > 0
}

// Mixed reports whether the batch ended in an asymmetric state: at least
// one leg accepted and at least one rejected. Mixed batches are surfaced
// to the operator for manual reconciliation; the engine never places
// compensating orders automatically.
func (b *OrderBatch) Mixed() bool {
	var accepted, rejected bool
	for _, leg := range b.Legs {
		if leg.Accepted {
			accepted = true
		} else {
			rejected = true
		}
	}
	return accepted && rejected
}

// OpenLegs returns the legs that still need reconciliation.
func (b *OrderBatch) OpenLegs() []*OrderLeg {
	var open []*OrderLeg
	for _, leg := range b.Legs {
		if leg.Accepted && !leg.Status.IsTerminal() {
			open = append(open, leg)
		}
	}
	return open
}

// OrderEvent is one lifecycle entry from the gateway's order history. The
// gateway returns the full history per order id and does not guarantee
// ordering.
type OrderEvent struct {
	Status     string
	FilledQty  int
	PendingQty int
	Timestamp  time.Time
	Message    string
}
