// Package reconcile tracks order legs against the gateway's eventually
// consistent order book.
package reconcile

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	"spread-trader/internal/errors"
	"spread-trader/internal/logging"
	"spread-trader/internal/models"
)

// StatusSink receives normalized status updates for durable recording.
type StatusSink interface {
	UpdateOrderStatus(ctx context.Context, orderID string, status models.LegStatus, filledQty, pendingQty int, message string) error
}

// Reconciler polls the gateway for outstanding legs and applies
// normalized lifecycle updates. A failed query leaves the leg untouched
// for the next poll; it never implies success or failure of the order.
type Reconciler struct {
	broker broker.Broker
	sink   StatusSink
	logger zerolog.Logger
	// queryDelay is the fixed pause between consecutive order queries, a
	// backpressure measure for gateway throughput limits.
	queryDelay time.Duration

	legs chan *models.OrderLeg
}

// New creates a new Reconciler.
func New(b broker.Broker, sink StatusSink, logger zerolog.Logger, queryDelay time.Duration) *Reconciler {
	if queryDelay <= 0 {
		queryDelay = 500 * time.Millisecond
	}
	return &Reconciler{
		broker:     b,
		sink:       sink,
		logger:     logger,
		queryDelay: queryDelay,
		legs:       make(chan *models.OrderLeg, 64),
	}
}

// Track enqueues an accepted leg for background polling. Legs without an
// order id or already terminal are ignored.
func (r *Reconciler) Track(leg *models.OrderLeg) {
	if leg == nil || leg.OrderID == "" || leg.Status.IsTerminal() {
		return
	}
	select {
	case r.legs <- leg:
	default:
		r.logger.Warn().Str("order_id", leg.OrderID).Msg("Reconcile queue full, leg will be picked up next cycle")
	}
}

// TrackBatch enqueues every open leg of a batch.
func (r *Reconciler) TrackBatch(batch *models.OrderBatch) {
	for _, leg := range batch.OpenLegs() {
		r.Track(leg)
	}
}

// Run owns the polling loop until the context is cancelled. It lives on
// its own goroutine so status polling never blocks opportunity
// computation.
func (r *Reconciler) Run(ctx context.Context, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}

	pending := make(map[string]*models.OrderLeg)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case leg := <-r.legs:
			pending[leg.OrderID] = leg
		case <-ticker.C:
			for orderID, leg := range pending {
				if err := r.Poll(ctx, leg); err != nil {
					logger := logging.WithOrderID(r.logger, orderID)
					logger.Warn().Err(err).Msg("Status query failed, will retry next poll")
				}
				if leg.Status.IsTerminal() {
					delete(pending, orderID)
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(r.queryDelay):
				}
			}
		}
	}
}

// Poll queries the gateway once for a leg and applies the authoritative
// event. The leg is left unchanged when the query fails.
func (r *Reconciler) Poll(ctx context.Context, leg *models.OrderLeg) error {
	if leg.OrderID == "" || leg.Status.IsTerminal() {
		return nil
	}

	events, err := r.broker.GetOrderEvents(ctx, leg.OrderID)
	if err != nil {
		return errors.NewReconciliationError(leg.OrderID, err)
	}

	r.Apply(ctx, leg, events)
	return nil
}

// Apply selects the authoritative event and advances the leg's state
// machine. Terminal legs are never reopened.
func (r *Reconciler) Apply(ctx context.Context, leg *models.OrderLeg, events []models.OrderEvent) {
	if leg.Status.IsTerminal() {
		return
	}

	event, ok := LatestEvent(events)
	if !ok {
		return
	}

	next := NormalizeStatus(event)
	if next == leg.Status {
		// Still refresh fill progress on a PartiallyFilled self-loop.
		leg.FilledQty = event.FilledQty
		leg.PendingQty = event.PendingQty
		leg.UpdatedAt = time.Now()
		return
	}

	logger := logging.WithOrderID(r.logger, leg.OrderID)

	from := leg.Status
	if !advance(leg, next) {
		logger.Debug().
			Str("from", string(from)).
			Str("to", string(next)).
			Msg("Ignoring lifecycle transition not permitted by state machine")
		return
	}

	leg.FilledQty = event.FilledQty
	leg.PendingQty = event.PendingQty
	if event.Message != "" {
		leg.Message = event.Message
	}
	leg.UpdatedAt = time.Now()

	logging.LogStatusUpdate(r.logger, leg.OrderID, string(from), string(leg.Status), leg.FilledQty, leg.PendingQty)

	if r.sink != nil {
		if err := r.sink.UpdateOrderStatus(ctx, leg.OrderID, leg.Status, leg.FilledQty, leg.PendingQty, leg.Message); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist status update")
		}
	}
}

// advance moves the leg to next, inserting the implied Open step when the
// gateway's history jumps straight from submission to a fill state.
func advance(leg *models.OrderLeg, next models.LegStatus) bool {
	if leg.Status.CanTransitionTo(next) {
		leg.Status = next
		return true
	}
	if leg.Status == models.LegSubmitted && models.LegOpen.CanTransitionTo(next) {
		leg.Status = next
		return true
	}
	return false
}

// LatestEvent returns the chronologically last event. The gateway does
// not guarantee return order, so events are sorted ascending by timestamp
// and the last one wins. Events with a zero (unparseable) timestamp sort
// first, never last, so they can only be authoritative when nothing
// better exists.
func LatestEvent(events []models.OrderEvent) (models.OrderEvent, bool) {
	if len(events) == 0 {
		return models.OrderEvent{}, false
	}

	sorted := make([]models.OrderEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return sorted[len(sorted)-1], true
}

// NormalizeStatus maps a raw gateway event to the normalized lifecycle
// status. An open order with partial fill progress is PartiallyFilled.
func NormalizeStatus(event models.OrderEvent) models.LegStatus {
	switch strings.ToUpper(strings.TrimSpace(event.Status)) {
	case "COMPLETE":
		return models.LegFilled
	case "CANCELLED":
		return models.LegCancelled
	case "REJECTED":
		return models.LegRejected
	case "OPEN":
		if event.FilledQty > 0 {
			return models.LegPartiallyFilled
		}
		return models.LegOpen
	default:
		// Interim gateway states (VALIDATION PENDING, PUT ORDER REQ
		// RECEIVED, ...) keep the leg in its submitted shape.
		return models.LegSubmitted
	}
}
