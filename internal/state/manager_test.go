package state

import (
	"context"
	"math"
	"testing"
)

func TestApplyFillAccounting(t *testing.T) {
	ctx := context.Background()

	t.Run("open and add averages entry", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "BTC", "PERP", true, 1, 100, 3); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		p, realized, err := m.ApplyFill(ctx, "BTC", "PERP", true, 1, 110, 3)
		if err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		if realized != 0 {
			t.Fatalf("realized=%v on add, expected 0", realized)
		}
		if p.Qty != 2 || p.AvgPrice != 105 {
			t.Fatalf("position=%+v, expected qty=2 avg=105", p)
		}
	})

	t.Run("partial close realizes pnl on closed portion", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "BTC", "PERP", true, 2, 100, 1); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		p, realized, err := m.ApplyFill(ctx, "BTC", "PERP", false, 1, 120, 1)
		if err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		if realized != 20 {
			t.Fatalf("realized=%v, expected 20", realized)
		}
		if p.Qty != 1 || p.AvgPrice != 100 {
			t.Fatalf("position=%+v, expected qty=1 avg=100", p)
		}
	})

	t.Run("full close flattens and realizes", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "ETH", "PERP", false, 3, 3000, 2); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		p, realized, err := m.ApplyFill(ctx, "ETH", "PERP", true, 3, 2900, 2)
		if err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		// Short 3 @ 3000 bought back at 2900: +100 each.
		if realized != 300 {
			t.Fatalf("realized=%v, expected 300", realized)
		}
		if p.Qty != 0 {
			t.Fatalf("qty=%v, expected flat", p.Qty)
		}
		if _, ok := m.Position("ETH", "PERP"); ok {
			t.Fatal("flat position still tracked")
		}
	})

	t.Run("flip realizes closed portion and re-enters at fill price", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "SOL", "PERP", true, 1, 100, 1); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		p, realized, err := m.ApplyFill(ctx, "SOL", "PERP", false, 3, 90, 1)
		if err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		if realized != -10 {
			t.Fatalf("realized=%v, expected -10", realized)
		}
		if p.Qty != -2 || p.AvgPrice != 90 {
			t.Fatalf("position=%+v, expected qty=-2 avg=90", p)
		}
	})

	t.Run("spot and perp tracked independently", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "PURR/USDC", "SPOT", true, 10, 1, 1); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		if _, _, err := m.ApplyFill(ctx, "PURR/USDC", "PERP", true, 5, 1, 1); err != nil {
			t.Fatalf("ApplyFill: %v", err)
		}
		if got := len(m.Positions()); got != 2 {
			t.Fatalf("positions=%d, expected 2", got)
		}
	})

	t.Run("rejects non-positive fills", func(t *testing.T) {
		m := NewManager(nil)
		if _, _, err := m.ApplyFill(ctx, "BTC", "PERP", true, 0, 100, 1); err == nil {
			t.Fatal("expected error for zero qty")
		}
		if _, _, err := m.ApplyFill(ctx, "BTC", "PERP", true, 1, math.NaN(), 1); err == nil {
			t.Fatal("expected error for NaN price")
		}
	})
}
