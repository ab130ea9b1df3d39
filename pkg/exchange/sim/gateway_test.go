package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"execution-core/pkg/exchange"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.yaml")
	data := `
balance: 5000
perp:
  - name: BTC
    szDecimals: 5
spot:
  - name: PURR/USDC
    base: PURR
    szDecimals: 0
books:
  BTC: {bid: 100, ask: 101}
  PURR/USDC: {bid: 0.18, ask: 0.19}
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.Balance != 5000 || len(f.Perp) != 1 || len(f.Spot) != 1 {
		t.Fatalf("fixture = %+v", f)
	}
	if f.Books["BTC"].Ask != 101 {
		t.Errorf("BTC ask = %v, want 101", f.Books["BTC"].Ask)
	}
}

func TestLoadFixtureRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venue.yaml")
	data := `
perp:
  - name: BTC
  - name: BTC
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected duplicate instrument error")
	}
}

func TestUniverseIndices(t *testing.T) {
	g := New(DefaultFixture())
	ctx := context.Background()

	perp, err := g.UniverseMetadata(ctx, exchange.MarketPerp)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range perp.Assets {
		if a.Index != i {
			t.Errorf("perp %s index = %d, want list order %d", a.Symbol, a.Index, i)
		}
	}

	spot, err := g.UniverseMetadata(ctx, exchange.MarketSpot)
	if err != nil {
		t.Fatal(err)
	}
	if spot.PairByBase["PURR"] != "PURR/USDC" {
		t.Errorf("base mapping = %v", spot.PairByBase)
	}
}

func TestTopOfBookBaseAlias(t *testing.T) {
	g := New(DefaultFixture())
	ctx := context.Background()

	pair, err := g.TopOfBook(ctx, "PURR/USDC", exchange.MarketSpot)
	if err != nil {
		t.Fatal(err)
	}
	base, err := g.TopOfBook(ctx, "PURR", exchange.MarketSpot)
	if err != nil {
		t.Fatal(err)
	}
	if pair != base {
		t.Errorf("pair book %+v != base book %+v", pair, base)
	}

	if _, err := g.TopOfBook(ctx, "DOGE", exchange.MarketPerp); err == nil {
		t.Error("expected error for unknown book")
	}
}

func TestSubmitOrderFillAndRest(t *testing.T) {
	g := New(DefaultFixture())
	ctx := context.Background()

	ioc := exchange.OrderRequest{
		AssetIndex: 0, IsBuy: true, Price: "65010", Size: "0.5",
		Spec: exchange.OrderSpec{Kind: exchange.KindLimit, TimeInForce: exchange.TIFIOC},
	}
	resp, err := g.SubmitOrder(ctx, ioc)
	if err != nil {
		t.Fatal(err)
	}
	st := resp.Statuses[0]
	if st.Filled == nil || st.Filled.AvgPrice != "65010" || st.Filled.TotalSize != "0.5" {
		t.Fatalf("IOC status = %+v, want immediate fill", st)
	}

	gtc := ioc
	gtc.Spec.TimeInForce = exchange.TIFGTC
	resp, err = g.SubmitOrder(ctx, gtc)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Statuses[0].Resting == nil {
		t.Fatalf("GTC status = %+v, want resting", resp.Statuses[0])
	}
	oid := resp.Statuses[0].Resting.OrderID

	open, err := g.OpenOrders(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].OrderID != oid {
		t.Fatalf("open orders = %+v", open)
	}
	if open[0].Coin != "BTC" {
		t.Errorf("resting coin = %q, want BTC", open[0].Coin)
	}

	if err := g.CancelOrders(ctx, []exchange.CancelRequest{{OrderID: oid}}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if open, _ = g.OpenOrders(ctx, ""); len(open) != 0 {
		t.Errorf("open orders after cancel = %+v", open)
	}
	if err := g.CancelOrders(ctx, []exchange.CancelRequest{{OrderID: oid}}); err == nil {
		t.Error("expected error cancelling an unknown order")
	}
}

func TestTriggerOrdersRest(t *testing.T) {
	g := New(DefaultFixture())
	resp, err := g.SubmitOrder(context.Background(), exchange.OrderRequest{
		AssetIndex: 0, Price: "60000", Size: "0.5", ReduceOnly: true,
		Spec: exchange.OrderSpec{
			Kind:         exchange.KindTrigger,
			TriggerPrice: "60000",
			IsMarket:     true,
			Role:         exchange.RoleStopLoss,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Statuses[0].Resting == nil {
		t.Fatalf("trigger status = %+v, want resting", resp.Statuses[0])
	}
}

func TestOpenOrdersSpotCoin(t *testing.T) {
	g := New(DefaultFixture())
	ctx := context.Background()

	resp, err := g.SubmitOrder(ctx, exchange.OrderRequest{
		AssetIndex: exchange.SpotIndexOffset + 1, IsBuy: true, Price: "25", Size: "4",
		Spec: exchange.OrderSpec{Kind: exchange.KindLimit, TimeInForce: exchange.TIFGTC},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Statuses[0].Resting == nil {
		t.Fatalf("status = %+v, want resting", resp.Statuses[0])
	}
	open, err := g.OpenOrders(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].Coin != "HYPE/USDC" {
		t.Fatalf("open orders = %+v, want HYPE/USDC resting", open)
	}
}

func TestLeverageAndBalance(t *testing.T) {
	g := New(DefaultFixture())
	ctx := context.Background()

	if err := g.SetLeverage(ctx, 0, 10, true); err != nil {
		t.Fatal(err)
	}
	if g.Leverage(0) != 10 {
		t.Errorf("leverage = %d, want 10", g.Leverage(0))
	}
	if err := g.SetLeverage(ctx, 0, 0, true); err == nil {
		t.Error("expected error for non-positive leverage")
	}

	start := g.Available()
	g.AdjustBalance(-125.5)
	if got := g.Available(); got != start-125.5 {
		t.Errorf("balance = %v, want %v", got, start-125.5)
	}
}
