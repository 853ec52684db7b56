// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"spread-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Cross-venue (NSE-BSE) spread snapshots
	CREATE TABLE IF NOT EXISTS cross_venue_spreads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		nse_price REAL NOT NULL,
		bse_price REAL NOT NULL,
		price_difference REAL NOT NULL,
		price_difference_pct REAL NOT NULL,
		nse_volume INTEGER,
		bse_volume INTEGER,
		avg_volume REAL,
		score REAL,
		is_profitable INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Cash-futures premium snapshots (theta capture)
	CREATE TABLE IF NOT EXISTS cash_futures_spreads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		cash_price REAL NOT NULL,
		futures_price REAL NOT NULL,
		premium REAL NOT NULL,
		premium_pct REAL NOT NULL,
		annualized_premium REAL,
		days_to_expiry INTEGER,
		expiry_date TEXT,
		score REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Order leg records
	CREATE TABLE IF NOT EXISTS order_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		side TEXT NOT NULL,
		market TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL,
		product TEXT,
		order_type TEXT,
		order_id TEXT,
		accepted INTEGER,
		status TEXT,
		message TEXT,
		filled_qty INTEGER DEFAULT 0,
		pending_qty INTEGER DEFAULT 0,
		profit_expected REAL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cross_venue_symbol_ts ON cross_venue_spreads(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_cash_futures_symbol_ts ON cash_futures_spreads(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_order_symbol_ts ON order_records(symbol, timestamp);
	CREATE INDEX IF NOT EXISTS idx_order_order_id ON order_records(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AppendCrossVenueSpreads stores a cycle's cross-venue snapshots in one
// transaction. The log is append-only; prior cycles are never touched.
func (s *SQLiteStore) AppendCrossVenueSpreads(ctx context.Context, spreads []models.CrossVenueSpread) error {
	if len(spreads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cross_venue_spreads
		(symbol, timestamp, nse_price, bse_price, price_difference, price_difference_pct,
		 nse_volume, bse_volume, avg_volume, score, is_profitable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, opp := range spreads {
		profitable := 0
		if opp.IsProfitable {
			profitable = 1
		}
		if _, err := stmt.ExecContext(ctx,
			opp.Symbol, opp.ObservedAt, opp.NSEPrice, opp.BSEPrice,
			opp.PriceDiff, opp.PriceDiffPct, opp.NSEVolume, opp.BSEVolume,
			opp.AvgVolume, opp.Score, profitable,
		); err != nil {
			return fmt.Errorf("insert cross-venue spread %s: %w", opp.Symbol, err)
		}
	}

	return tx.Commit()
}

// AppendCashFuturesPremiums stores a cycle's premium snapshots in one
// transaction.
func (s *SQLiteStore) AppendCashFuturesPremiums(ctx context.Context, premiums []models.CashFuturesPremium) error {
	if len(premiums) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cash_futures_spreads
		(symbol, timestamp, cash_price, futures_price, premium, premium_pct,
		 annualized_premium, days_to_expiry, expiry_date, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, opp := range premiums {
		if _, err := stmt.ExecContext(ctx,
			opp.Symbol, opp.ObservedAt, opp.CashPrice, opp.FuturesPrice,
			opp.Premium, opp.PremiumPct, opp.AnnualizedPremium,
			opp.DaysToExpiry, opp.ExpiryDate.Format("2006-01-02"), opp.Score,
		); err != nil {
			return fmt.Errorf("insert cash-futures premium %s: %w", opp.Symbol, err)
		}
	}

	return tx.Commit()
}

// AppendOrderRecord stores one leg record.
func (s *SQLiteStore) AppendOrderRecord(ctx context.Context, record *OrderRecord) error {
	accepted := 0
	if record.Accepted {
		accepted = 1
	}
	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO order_records
		(batch_id, kind, symbol, exchange, side, market, quantity, price,
		 product, order_type, order_id, accepted, status, message,
		 filled_qty, pending_qty, profit_expected, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.BatchID, record.Kind, record.Symbol, record.Exchange,
		record.Side, record.Market, record.Quantity, record.Price,
		record.Product, record.OrderType, record.OrderID, accepted,
		string(record.Status), record.Message, record.FilledQty,
		record.PendingQty, record.ProfitExpected, timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert order record: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// UpdateOrderStatus applies a reconciler status update to the record for
// an order id.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, orderID string, status models.LegStatus, filledQty, pendingQty int, message string) error {
	if orderID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE order_records
		SET status = ?, filled_qty = ?, pending_qty = ?, message = ?
		WHERE order_id = ?`,
		string(status), filledQty, pendingQty, message, orderID,
	)
	if err != nil {
		return fmt.Errorf("update order status %s: %w", orderID, err)
	}
	return nil
}

// GetOpenOrderIDs returns order ids whose records are not yet terminal,
// so the reconciler can resume after a restart.
func (s *SQLiteStore) GetOpenOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id FROM order_records
		WHERE order_id != '' AND status NOT IN (?, ?, ?)`,
		string(models.LegFilled), string(models.LegCancelled), string(models.LegRejected),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetCrossVenueHistory returns cross-venue snapshots since sinceDays ago,
// newest first. An empty symbol matches all symbols.
func (s *SQLiteStore) GetCrossVenueHistory(ctx context.Context, symbol string, sinceDays int) ([]CrossVenueRecord, error) {
	query := `
		SELECT id, symbol, timestamp, nse_price, bse_price, price_difference,
		       price_difference_pct, nse_volume, bse_volume, avg_volume, score, is_profitable
		FROM cross_venue_spreads
		WHERE timestamp >= ?`
	args := []interface{}{sinceTime(sinceDays)}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CrossVenueRecord
	for rows.Next() {
		var r CrossVenueRecord
		var profitable int
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Timestamp, &r.NSEPrice, &r.BSEPrice,
			&r.PriceDiff, &r.PriceDiffPct, &r.NSEVolume, &r.BSEVolume,
			&r.AvgVolume, &r.Score, &profitable); err != nil {
			return nil, err
		}
		r.IsProfitable = profitable == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetCashFuturesHistory returns premium snapshots since sinceDays ago,
// newest first.
func (s *SQLiteStore) GetCashFuturesHistory(ctx context.Context, symbol string, sinceDays int) ([]CashFuturesRecord, error) {
	query := `
		SELECT id, symbol, timestamp, cash_price, futures_price, premium,
		       premium_pct, annualized_premium, days_to_expiry, expiry_date, score
		FROM cash_futures_spreads
		WHERE timestamp >= ?`
	args := []interface{}{sinceTime(sinceDays)}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CashFuturesRecord
	for rows.Next() {
		var r CashFuturesRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Timestamp, &r.CashPrice, &r.FuturesPrice,
			&r.Premium, &r.PremiumPct, &r.AnnualizedPremium, &r.DaysToExpiry,
			&r.ExpiryDate, &r.Score); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetOrderHistory returns order records since sinceDays ago, newest first.
func (s *SQLiteStore) GetOrderHistory(ctx context.Context, symbol string, sinceDays int) ([]OrderRecord, error) {
	query := `
		SELECT id, batch_id, kind, symbol, exchange, side, market, quantity,
		       price, product, order_type, order_id, accepted, status, message,
		       filled_qty, pending_qty, profit_expected, timestamp
		FROM order_records
		WHERE timestamp >= ?`
	args := []interface{}{sinceTime(sinceDays)}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OrderRecord
	for rows.Next() {
		var r OrderRecord
		var accepted int
		var status string
		var price sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.BatchID, &r.Kind, &r.Symbol, &r.Exchange,
			&r.Side, &r.Market, &r.Quantity, &price, &r.Product, &r.OrderType,
			&r.OrderID, &accepted, &status, &r.Message, &r.FilledQty,
			&r.PendingQty, &r.ProfitExpected, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Accepted = accepted == 1
		r.Status = models.LegStatus(status)
		if price.Valid {
			r.Price = price.Float64
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sinceTime(sinceDays int) time.Time {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	return time.Now().AddDate(0, 0, -sinceDays)
}

var _ DataStore = (*SQLiteStore)(nil)
