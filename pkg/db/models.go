package db

import (
	"context"
	"time"
)

// Order is one submitted order leg as stored for the audit trail. Price and
// Size keep the exact wire strings sent to the venue.
type Order struct {
	ID          string
	Symbol      string
	Market      string
	Side        string
	Kind        string // LIMIT or TRIGGER
	Role        string // ENTRY, SL, TP, CLOSE
	Price       string
	Size        string
	ReduceOnly  bool
	Status      string // SUBMITTED, RESTING, FILLED, REJECTED, PENDING
	ExchangeOID int64
	CreatedAt   time.Time
}

// Trade is one realized fill with its PnL contribution.
type Trade struct {
	ID        string
	OrderID   string
	Symbol    string
	Side      string
	Price     float64
	Qty       float64
	PnL       float64
	CreatedAt time.Time
}

// Position tracks the net position per (symbol, market). Qty is signed:
// positive long, negative short.
type Position struct {
	Symbol    string
	Market    string
	Qty       float64
	AvgPrice  float64
	Leverage  int
	UpdatedAt time.Time
}

// CreateOrder inserts a new order row.
func (d *Database) CreateOrder(ctx context.Context, o Order) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (
			id, symbol, market, side, kind, role, price, size, reduce_only, status, exchange_oid, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		o.ID, o.Symbol, o.Market, o.Side, o.Kind, o.Role, o.Price, o.Size, boolToInt(o.ReduceOnly), o.Status, o.ExchangeOID, o.CreatedAt,
	)
	return err
}

// UpdateOrderStatus sets the status and exchange order id of an order.
func (d *Database) UpdateOrderStatus(ctx context.Context, id, status string, exchangeOID int64) error {
	_, err := d.DB.ExecContext(ctx, `
		UPDATE orders SET status = ?, exchange_oid = ? WHERE id = ?
	`, status, exchangeOID, id)
	return err
}

// ListRecentOrders returns the newest orders first.
func (d *Database) ListRecentOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, symbol, market, side, kind, role, price, size, reduce_only, status, exchange_oid, created_at
		FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Order
	for rows.Next() {
		var o Order
		var reduceOnly int
		if err := rows.Scan(&o.ID, &o.Symbol, &o.Market, &o.Side, &o.Kind, &o.Role, &o.Price, &o.Size, &reduceOnly, &o.Status, &o.ExchangeOID, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.ReduceOnly = reduceOnly == 1
		res = append(res, o)
	}
	return res, rows.Err()
}

// CreateTrade inserts a new trade row.
func (d *Database) CreateTrade(ctx context.Context, t Trade) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (
			id, order_id, symbol, side, price, qty, pnl, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		t.ID, t.OrderID, t.Symbol, t.Side, t.Price, t.Qty, t.PnL, t.CreatedAt,
	)
	return err
}

// ListRecentTrades returns the newest trades first.
func (d *Database) ListRecentTrades(ctx context.Context, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, order_id, symbol, side, price, qty, pnl, created_at
		FROM trades ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Trade
	for rows.Next() {
		var t Trade
		if err := rows.Scan(&t.ID, &t.OrderID, &t.Symbol, &t.Side, &t.Price, &t.Qty, &t.PnL, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// UpsertPosition stores the latest position for (symbol, market).
func (d *Database) UpsertPosition(ctx context.Context, p Position) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO positions (symbol, market, qty, avg_price, leverage, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(symbol, market) DO UPDATE SET
			qty = excluded.qty,
			avg_price = excluded.avg_price,
			leverage = excluded.leverage,
			updated_at = CURRENT_TIMESTAMP
	`, p.Symbol, p.Market, p.Qty, p.AvgPrice, p.Leverage)
	return err
}

// DeletePosition removes a flat position row.
func (d *Database) DeletePosition(ctx context.Context, symbol, market string) error {
	_, err := d.DB.ExecContext(ctx, `
		DELETE FROM positions WHERE symbol = ? AND market = ?
	`, symbol, market)
	return err
}

// ListPositions returns all current positions.
func (d *Database) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol, market, qty, avg_price, leverage, updated_at
		FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.Symbol, &p.Market, &p.Qty, &p.AvgPrice, &p.Leverage, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// RecordDailyRiskMetric folds a realized PnL into the per-day aggregate row.
func (d *Database) RecordDailyRiskMetric(ctx context.Context, date string, pnl float64) error {
	wins := 0
	losses := 0.0
	if pnl > 0 {
		wins = 1
	} else if pnl < 0 {
		losses = -pnl
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO risk_metrics (date, daily_pnl, daily_trades, daily_wins, daily_losses)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			daily_pnl = daily_pnl + ?,
			daily_trades = daily_trades + 1,
			daily_wins = daily_wins + ?,
			daily_losses = daily_losses + ?
	`, date, pnl, wins, losses, pnl, wins, losses)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
