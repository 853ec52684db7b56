// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"spread-trader/internal/errors"
	"spread-trader/internal/models"
)

// ZerodhaBroker implements the Broker interface for Zerodha Kite Connect.
type ZerodhaBroker struct {
	client        *kiteconnect.Client
	apiKey        string
	apiSecret     string
	userID        string
	accessToken   string
	tokenPath     string
	authenticated bool
	mu            sync.RWMutex
}

// ZerodhaConfig holds configuration for Zerodha broker.
type ZerodhaConfig struct {
	APIKey    string
	APISecret string
	UserID    string
	TokenPath string
	// Timeout bounds every outbound gateway call. A timed-out leg
	// submission is reported as a rejection, never left hanging.
	Timeout time.Duration
}

// NewZerodhaBroker creates a new Zerodha broker instance.
// It automatically loads any saved session from disk.
func NewZerodhaBroker(cfg ZerodhaConfig) *ZerodhaBroker {
	client := kiteconnect.New(cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		tokenPath = filepath.Join(homeDir, ".config", "spread-trader", "session.json")
	}

	zb := &ZerodhaBroker{
		client:    client,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		userID:    cfg.UserID,
		tokenPath: tokenPath,
	}

	_ = zb.loadSession()

	return zb
}

// sessionData represents persisted session data.
type sessionData struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginURL returns the Kite OAuth URL the user must visit to obtain a
// request token.
func (z *ZerodhaBroker) LoginURL() string {
	return z.client.GetLoginURL()
}

// CompleteLogin exchanges a request token for a session and persists it.
func (z *ZerodhaBroker) CompleteLogin(ctx context.Context, requestToken string) error {
	session, err := z.client.GenerateSession(requestToken, z.apiSecret)
	if err != nil {
		return fmt.Errorf("failed to generate session: %w", err)
	}

	z.mu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	if err := z.saveSession(session.AccessToken); err != nil {
		// Session is valid, persistence is best effort.
		fmt.Printf("warning: failed to persist session: %v\n", err)
	}

	return nil
}

// Logout invalidates the session and clears stored credentials.
func (z *ZerodhaBroker) Logout(ctx context.Context) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.authenticated {
		if _, err := z.client.InvalidateAccessToken(); err != nil {
			fmt.Printf("warning: failed to invalidate token: %v\n", err)
		}
	}

	z.accessToken = ""
	z.authenticated = false

	if err := os.Remove(z.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	return nil
}

// IsAuthenticated returns whether the broker is authenticated.
func (z *ZerodhaBroker) IsAuthenticated() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.authenticated
}

func (z *ZerodhaBroker) loadSession() error {
	data, err := os.ReadFile(z.tokenPath)
	if err != nil {
		return err
	}

	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}

	// Zerodha tokens expire at 6 AM IST the next day.
	if time.Now().After(session.ExpiresAt) {
		return errors.ErrSessionExpired
	}

	z.mu.Lock()
	z.accessToken = session.AccessToken
	z.authenticated = true
	z.client.SetAccessToken(session.AccessToken)
	z.mu.Unlock()

	return nil
}

func (z *ZerodhaBroker) saveSession(accessToken string) error {
	dir := filepath.Dir(z.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	loc, _ := time.LoadLocation("Asia/Kolkata")
	now := time.Now().In(loc)
	expiresAt := time.Date(now.Year(), now.Month(), now.Day()+1, 6, 0, 0, 0, loc)

	session := sessionData{
		AccessToken: accessToken,
		UserID:      z.userID,
		ExpiresAt:   expiresAt,
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return os.WriteFile(z.tokenPath, data, 0600)
}

// GetQuotes fetches quotes for venue-qualified symbols in a single batch
// request. Symbols the source has no data for are simply absent from the
// returned map.
func (z *ZerodhaBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	quotes, err := z.client.GetQuote(symbols...)
	if err != nil {
		return nil, errors.NewQuoteError(symbols, "quote request failed", err)
	}

	result := make(map[string]models.Quote, len(quotes))
	for qualified, q := range quotes {
		exchange, symbol := splitQualified(qualified)
		mq := models.Quote{
			Symbol:        symbol,
			Exchange:      exchange,
			LastPrice:     q.LastPrice,
			Volume:        int64(q.Volume),
			PreviousClose: q.OHLC.Close,
			Timestamp:     q.LastTradeTime.Time,
		}
		if q.Depth.Buy[0].Price > 0 {
			mq.BestBid = q.Depth.Buy[0].Price
		}
		if q.Depth.Sell[0].Price > 0 {
			mq.BestAsk = q.Depth.Sell[0].Price
		}
		result[qualified] = mq
	}

	return result, nil
}

// GetInstruments returns the venue instrument dump for an exchange.
func (z *ZerodhaBroker) GetInstruments(ctx context.Context, exchange models.Exchange) ([]VenueInstrument, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	instruments, err := z.client.GetInstrumentsByExchange(string(exchange))
	if err != nil {
		return nil, fmt.Errorf("failed to get instruments: %w", err)
	}

	result := make([]VenueInstrument, 0, len(instruments))
	for _, inst := range instruments {
		result = append(result, VenueInstrument{
			Token:          uint32(inst.InstrumentToken),
			TradingSymbol:  inst.Tradingsymbol,
			Name:           inst.Name,
			Exchange:       models.Exchange(inst.Exchange),
			InstrumentType: inst.InstrumentType,
			Expiry:         inst.Expiry.Time,
			LotSize:        int(inst.LotSize),
			TickSize:       inst.TickSize,
		})
	}

	return result, nil
}

// PlaceOrder submits a single order and returns the assigned order id.
func (z *ZerodhaBroker) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	if !z.IsAuthenticated() {
		return "", errors.ErrNotAuthenticated
	}

	params := kiteconnect.OrderParams{
		Exchange:        string(req.Exchange),
		Tradingsymbol:   req.Symbol,
		TransactionType: string(req.Side),
		OrderType:       string(req.OrderType),
		Product:         string(req.Product),
		Quantity:        req.Quantity,
		Validity:        "DAY",
		Tag:             req.Tag,
	}

	// The gateway expects no price on market orders.
	if req.OrderType == models.OrderTypeLimit && req.Price != nil {
		params.Price = *req.Price
	}

	resp, err := z.client.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return "", errors.NewSubmissionError(req.Symbol, string(req.Exchange), string(req.Side), "gateway rejected order", err)
	}

	return resp.OrderID, nil
}

// GetOrderEvents returns the full lifecycle history for an order id.
func (z *ZerodhaBroker) GetOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	if !z.IsAuthenticated() {
		return nil, errors.ErrNotAuthenticated
	}

	history, err := z.client.GetOrderHistory(orderID)
	if err != nil {
		return nil, errors.NewReconciliationError(orderID, err)
	}

	events := make([]models.OrderEvent, 0, len(history))
	for _, entry := range history {
		events = append(events, models.OrderEvent{
			Status:     entry.Status,
			FilledQty:  int(entry.FilledQuantity),
			PendingQty: int(entry.PendingQuantity),
			Timestamp:  entry.ExchangeTimestamp.Time,
			Message:    entry.StatusMessage,
		})
	}

	return events, nil
}

// GetAvailableMargin returns the free equity cash margin.
func (z *ZerodhaBroker) GetAvailableMargin(ctx context.Context) (float64, error) {
	if !z.IsAuthenticated() {
		return 0, errors.ErrNotAuthenticated
	}

	margins, err := z.client.GetUserMargins()
	if err != nil {
		return 0, fmt.Errorf("failed to get margins: %w", err)
	}

	if margins.Equity.Available.Cash > 0 {
		return margins.Equity.Available.Cash, nil
	}
	return margins.Equity.Net, nil
}

func splitQualified(qualified string) (models.Exchange, string) {
	if idx := strings.IndexByte(qualified, ':'); idx > 0 {
		return models.Exchange(qualified[:idx]), qualified[idx+1:]
	}
	return models.NSE, qualified
}
