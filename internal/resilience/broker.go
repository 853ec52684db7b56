package resilience

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"spread-trader/internal/broker"
	domainerrors "spread-trader/internal/errors"
	"spread-trader/internal/logging"
	"spread-trader/internal/models"
)

// ResilientBroker wraps a broker with circuit breakers on its read
// paths. Quote and instrument fetches share one breaker; order status
// and margin queries share another, so a dead quote feed does not block
// reconciliation and vice versa.
//
// PlaceOrder is deliberately not guarded: a rejection is a valid
// gateway answer, and the executor must see it rather than a breaker
// error.
type ResilientBroker struct {
	inner   broker.Broker
	quotes  *CircuitBreaker
	gateway *CircuitBreaker
	logger  zerolog.Logger
}

// NewResilientBroker wraps an authenticated broker.
func NewResilientBroker(inner broker.Broker, config CircuitBreakerConfig, logger zerolog.Logger) *ResilientBroker {
	return &ResilientBroker{
		inner:   inner,
		quotes:  NewCircuitBreaker("quote-source", config),
		gateway: NewCircuitBreaker("order-gateway", config),
		logger:  logger.With().Str("component", "resilience").Logger(),
	}
}

// IsAuthenticated reports the wrapped broker's session state.
func (rb *ResilientBroker) IsAuthenticated() bool {
	return rb.inner.IsAuthenticated()
}

// GetQuotes fetches quotes through the quote-source breaker.
func (rb *ResilientBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	start := time.Now()
	result, err := ExecuteWithResult(rb.quotes, ctx, func() (map[string]models.Quote, error) {
		return rb.inner.GetQuotes(ctx, symbols)
	})
	logging.LogAPICall(rb.logger, "GET", "quotes", time.Since(start), err)
	return result, rb.mapErr(rb.quotes, err, domainerrors.ErrQuoteSourceDown)
}

// GetInstruments fetches the instrument dump through the quote-source
// breaker.
func (rb *ResilientBroker) GetInstruments(ctx context.Context, exchange models.Exchange) ([]broker.VenueInstrument, error) {
	start := time.Now()
	result, err := ExecuteWithResult(rb.quotes, ctx, func() ([]broker.VenueInstrument, error) {
		return rb.inner.GetInstruments(ctx, exchange)
	})
	logging.LogAPICall(rb.logger, "GET", "instruments/"+string(exchange), time.Since(start), err)
	return result, rb.mapErr(rb.quotes, err, domainerrors.ErrQuoteSourceDown)
}

// PlaceOrder passes straight through to the gateway.
func (rb *ResilientBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	start := time.Now()
	orderID, err := rb.inner.PlaceOrder(ctx, req)
	logging.LogAPICall(rb.logger, "POST", "orders", time.Since(start), err)
	return orderID, err
}

// GetOrderEvents queries order history through the gateway breaker.
func (rb *ResilientBroker) GetOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	start := time.Now()
	result, err := ExecuteWithResult(rb.gateway, ctx, func() ([]models.OrderEvent, error) {
		return rb.inner.GetOrderEvents(ctx, orderID)
	})
	logging.LogAPICall(rb.logger, "GET", "orders/"+orderID, time.Since(start), err)
	return result, rb.mapErr(rb.gateway, err, domainerrors.ErrGatewayDown)
}

// GetAvailableMargin queries margin through the gateway breaker.
func (rb *ResilientBroker) GetAvailableMargin(ctx context.Context) (float64, error) {
	start := time.Now()
	result, err := ExecuteWithResult(rb.gateway, ctx, func() (float64, error) {
		return rb.inner.GetAvailableMargin(ctx)
	})
	logging.LogAPICall(rb.logger, "GET", "margins", time.Since(start), err)
	return result, rb.mapErr(rb.gateway, err, domainerrors.ErrGatewayDown)
}

// Stats returns snapshots of both breakers for status display.
func (rb *ResilientBroker) Stats() []CircuitBreakerStats {
	return []CircuitBreakerStats{rb.quotes.Stats(), rb.gateway.Stats()}
}

func (rb *ResilientBroker) mapErr(cb *CircuitBreaker, err error, down error) error {
	if err == nil {
		return nil
	}
	if domainerrors.Is(err, ErrCircuitOpen) {
		rb.logger.Warn().
			Str("breaker", cb.Name()).
			Msg("circuit open, failing fast")
		return domainerrors.Wrapf(down, "%s circuit open", cb.Name())
	}
	return err
}

var _ broker.Broker = (*ResilientBroker)(nil)
