package db

import (
	"context"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func TestOrderLifecycle(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	o := Order{
		ID:     "order-1",
		Symbol: "BTC",
		Market: "PERP",
		Side:   "BUY",
		Kind:   "LIMIT",
		Role:   "ENTRY",
		Price:  "30000",
		Size:   "0.01",
		Status: "SUBMITTED",
	}
	if err := database.CreateOrder(ctx, o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if err := database.UpdateOrderStatus(ctx, "order-1", "FILLED", 4242); err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}

	orders, err := database.ListRecentOrders(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].Status != "FILLED" || orders[0].ExchangeOID != 4242 {
		t.Fatalf("order not updated: %+v", orders[0])
	}
	if orders[0].Price != "30000" || orders[0].Size != "0.01" {
		t.Fatalf("wire strings not preserved: %+v", orders[0])
	}
}

func TestTimestampsPersisted(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	first := Order{ID: "ord-a", Symbol: "BTC", Market: "PERP", Side: "BUY",
		Kind: "LIMIT", Role: "ENTRY", Price: "100", Size: "1",
		Status: "SUBMITTED", CreatedAt: time.Now().Add(-time.Minute)}
	second := first
	second.ID = "ord-b"
	second.CreatedAt = time.Now()

	for _, o := range []Order{first, second} {
		if err := database.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	orders, err := database.ListRecentOrders(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != "ord-b" {
		t.Fatalf("expected newest first, got %s", orders[0].ID)
	}
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			t.Fatalf("order %s stored zero created_at", o.ID)
		}
		if time.Since(o.CreatedAt) > 2*time.Minute {
			t.Fatalf("order %s created_at stale: %v", o.ID, o.CreatedAt)
		}
	}

	trade := Trade{ID: "trade-a", OrderID: "ord-b", Symbol: "BTC", Side: "BUY",
		Price: 100, Qty: 1, PnL: 0, CreatedAt: time.Now()}
	if err := database.CreateTrade(ctx, trade); err != nil {
		t.Fatalf("CreateTrade: %v", err)
	}
	trades, err := database.ListRecentTrades(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentTrades: %v", err)
	}
	if len(trades) != 1 || trades[0].CreatedAt.IsZero() {
		t.Fatalf("trade timestamp not persisted: %+v", trades)
	}
}

func TestPositionUpsertAndDelete(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	p := Position{Symbol: "ETH", Market: "PERP", Qty: 2.5, AvgPrice: 3000, Leverage: 5}
	if err := database.UpsertPosition(ctx, p); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}

	// Second upsert replaces, not duplicates.
	p.Qty = 1.5
	if err := database.UpsertPosition(ctx, p); err != nil {
		t.Fatalf("UpsertPosition: %v", err)
	}

	positions, err := database.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if positions[0].Qty != 1.5 || positions[0].Leverage != 5 {
		t.Fatalf("unexpected position: %+v", positions[0])
	}

	if err := database.DeletePosition(ctx, "ETH", "PERP"); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	positions, err = database.ListPositions(ctx)
	if err != nil {
		t.Fatalf("ListPositions: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected flat book, got %d positions", len(positions))
	}
}

func TestRecordDailyRiskMetricAggregates(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for _, pnl := range []float64{100, -40, 25} {
		if err := database.RecordDailyRiskMetric(ctx, "2025-06-01", pnl); err != nil {
			t.Fatalf("RecordDailyRiskMetric: %v", err)
		}
	}

	var (
		dailyPnL    float64
		dailyTrades int
		dailyWins   int
		dailyLosses float64
	)
	err := database.DB.QueryRowContext(ctx, `
		SELECT daily_pnl, daily_trades, daily_wins, daily_losses
		FROM risk_metrics WHERE date = ?`, "2025-06-01").
		Scan(&dailyPnL, &dailyTrades, &dailyWins, &dailyLosses)
	if err != nil {
		t.Fatalf("query risk_metrics: %v", err)
	}

	if dailyPnL != 85 {
		t.Fatalf("daily_pnl=%v, expected 85", dailyPnL)
	}
	if dailyTrades != 3 || dailyWins != 2 {
		t.Fatalf("trades=%d wins=%d, expected 3/2", dailyTrades, dailyWins)
	}
	if dailyLosses != 40 {
		t.Fatalf("daily_losses=%v, expected 40", dailyLosses)
	}
}
