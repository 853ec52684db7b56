// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"spread-trader/internal/models"
)

// DataStore is the append-only durable log for opportunity snapshots and
// order records. Retention and cleanup are handled by an external job.
type DataStore interface {
	// Opportunities
	AppendCrossVenueSpreads(ctx context.Context, spreads []models.CrossVenueSpread) error
	AppendCashFuturesPremiums(ctx context.Context, premiums []models.CashFuturesPremium) error

	// Orders
	AppendOrderRecord(ctx context.Context, record *OrderRecord) error
	UpdateOrderStatus(ctx context.Context, orderID string, status models.LegStatus, filledQty, pendingQty int, message string) error
	GetOpenOrderIDs(ctx context.Context) ([]string, error)

	// History
	GetCrossVenueHistory(ctx context.Context, symbol string, sinceDays int) ([]CrossVenueRecord, error)
	GetCashFuturesHistory(ctx context.Context, symbol string, sinceDays int) ([]CashFuturesRecord, error)
	GetOrderHistory(ctx context.Context, symbol string, sinceDays int) ([]OrderRecord, error)

	// Lifecycle
	Close() error
}

// OrderRecord is the durable record of one submitted leg.
type OrderRecord struct {
	ID             int64            `csv:"-"`
	BatchID        string           `csv:"batch_id"`
	Kind           string           `csv:"kind"`
	Symbol         string           `csv:"symbol"`
	Exchange       string           `csv:"exchange"`
	Side           string           `csv:"side"`
	Market         string           `csv:"market"`
	Quantity       int              `csv:"quantity"`
	Price          float64          `csv:"price"`
	Product        string           `csv:"product"`
	OrderType      string           `csv:"order_type"`
	OrderID        string           `csv:"order_id"`
	Accepted       bool             `csv:"accepted"`
	Status         models.LegStatus `csv:"status"`
	Message        string           `csv:"message"`
	FilledQty      int              `csv:"filled_qty"`
	PendingQty     int              `csv:"pending_qty"`
	ProfitExpected float64          `csv:"profit_expected"`
	Timestamp      time.Time        `csv:"timestamp"`
}

// CrossVenueRecord is a persisted cross-venue spread snapshot.
type CrossVenueRecord struct {
	ID           int64     `csv:"-"`
	Symbol       string    `csv:"symbol"`
	Timestamp    time.Time `csv:"timestamp"`
	NSEPrice     float64   `csv:"nse_price"`
	BSEPrice     float64   `csv:"bse_price"`
	PriceDiff    float64   `csv:"price_difference"`
	PriceDiffPct float64   `csv:"price_difference_pct"`
	NSEVolume    int64     `csv:"nse_volume"`
	BSEVolume    int64     `csv:"bse_volume"`
	AvgVolume    float64   `csv:"avg_volume"`
	Score        float64   `csv:"score"`
	IsProfitable bool      `csv:"is_profitable"`
}

// CashFuturesRecord is a persisted cash-futures premium snapshot.
type CashFuturesRecord struct {
	ID                int64     `csv:"-"`
	Symbol            string    `csv:"symbol"`
	Timestamp         time.Time `csv:"timestamp"`
	CashPrice         float64   `csv:"cash_price"`
	FuturesPrice      float64   `csv:"futures_price"`
	Premium           float64   `csv:"premium"`
	PremiumPct        float64   `csv:"premium_pct"`
	AnnualizedPremium float64   `csv:"annualized_premium"`
	DaysToExpiry      int       `csv:"days_to_expiry"`
	ExpiryDate        string    `csv:"expiry_date"`
	Score             float64   `csv:"score"`
}
