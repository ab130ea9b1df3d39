package sim

import (
	"context"
	"fmt"
	"log"
	"sync"

	"execution-core/pkg/exchange"
)

// Gateway is a deterministic in-memory venue for dry-run mode and tests.
// Marketable (IOC) orders fill immediately at their own limit price, GTC
// orders rest on the book, trigger orders rest until cancelled. No partial
// fills, no rejections unless the instrument is unknown.
type Gateway struct {
	mu        sync.Mutex
	universes map[exchange.Market]exchange.Universe
	books     map[string]exchange.Book
	leverage  map[int]int
	resting   map[int64]exchange.OpenOrder
	balance   float64
	nextOID   int64
}

// New builds a simulated venue from a fixture.
func New(f Fixture) *Gateway {
	g := &Gateway{
		universes: make(map[exchange.Market]exchange.Universe),
		books:     make(map[string]exchange.Book),
		leverage:  make(map[int]int),
		resting:   make(map[int64]exchange.OpenOrder),
		balance:   f.Balance,
	}

	perp := exchange.Universe{}
	for i, a := range f.Perp {
		perp.Assets = append(perp.Assets, exchange.AssetMeta{
			Symbol:       a.Name,
			Index:        i,
			SizeDecimals: a.SizeDecimals,
		})
	}
	g.universes[exchange.MarketPerp] = perp

	spot := exchange.Universe{PairByBase: make(map[string]string)}
	for i, p := range f.Spot {
		spot.Assets = append(spot.Assets, exchange.AssetMeta{
			Symbol:       p.Name,
			Index:        i,
			SizeDecimals: p.SizeDecimals,
		})
		spot.PairByBase[p.Base] = p.Name
	}
	g.universes[exchange.MarketSpot] = spot

	for sym, q := range f.Books {
		g.books[sym] = exchange.Book{BestBid: q.Bid, BestAsk: q.Ask}
	}
	// Spot books answer under the base token alias too.
	for _, p := range f.Spot {
		if b, ok := g.books[p.Name]; ok {
			if _, taken := g.books[p.Base]; !taken {
				g.books[p.Base] = b
			}
		}
	}

	log.Printf("sim: venue ready, %d perp / %d spot instruments, balance %.2f",
		len(f.Perp), len(f.Spot), f.Balance)
	return g
}

// SetBook replaces the top-of-book for a symbol.
func (g *Gateway) SetBook(symbol string, bid, ask float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.books[symbol] = exchange.Book{BestBid: bid, BestAsk: ask}
}

// Available returns the paper balance.
func (g *Gateway) Available() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance
}

// AdjustBalance applies a realized PnL delta to the paper balance.
func (g *Gateway) AdjustBalance(delta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balance += delta
}

func (g *Gateway) TopOfBook(ctx context.Context, symbol string, market exchange.Market) (exchange.Book, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	book, ok := g.books[symbol]
	if !ok {
		return exchange.Book{}, fmt.Errorf("sim: no book for %s", symbol)
	}
	return book, nil
}

func (g *Gateway) UniverseMetadata(ctx context.Context, market exchange.Market) (exchange.Universe, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	uni, ok := g.universes[market]
	if !ok {
		return exchange.Universe{}, fmt.Errorf("sim: no universe for market %s", market)
	}
	return uni, nil
}

func (g *Gateway) SetLeverage(ctx context.Context, assetIndex, leverage int, crossMargin bool) error {
	if leverage <= 0 {
		return fmt.Errorf("sim: leverage must be positive, got %d", leverage)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leverage[assetIndex] = leverage
	return nil
}

// Leverage returns the last leverage set for an asset, 0 if never set.
func (g *Gateway) Leverage(assetIndex int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leverage[assetIndex]
}

func (g *Gateway) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if req.Size == "" || req.Price == "" {
		return exchange.OrderResponse{Statuses: []exchange.OrderStatus{
			{Error: "sim: order missing price or size"},
		}}, nil
	}

	g.nextOID++
	oid := g.nextOID

	fills := req.Spec.Kind == exchange.KindLimit && req.Spec.TimeInForce == exchange.TIFIOC
	if fills {
		return exchange.OrderResponse{Statuses: []exchange.OrderStatus{
			{Filled: &exchange.FilledStatus{
				OrderID:   oid,
				TotalSize: req.Size,
				AvgPrice:  req.Price,
			}},
		}}, nil
	}

	g.resting[oid] = exchange.OpenOrder{Coin: g.symbolForIndex(req.AssetIndex), OrderID: oid}
	return exchange.OrderResponse{Statuses: []exchange.OrderStatus{
		{Resting: &exchange.RestingStatus{OrderID: oid}},
	}}, nil
}

// symbolForIndex reverses the universe index mapping. Caller holds g.mu.
func (g *Gateway) symbolForIndex(index int) string {
	market := exchange.MarketPerp
	if index >= exchange.SpotIndexOffset {
		market = exchange.MarketSpot
		index -= exchange.SpotIndexOffset
	}
	for _, a := range g.universes[market].Assets {
		if a.Index == index {
			return a.Symbol
		}
	}
	return ""
}

func (g *Gateway) CancelOrders(ctx context.Context, reqs []exchange.CancelRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range reqs {
		if _, ok := g.resting[r.OrderID]; !ok {
			return fmt.Errorf("sim: unknown order %d", r.OrderID)
		}
		delete(g.resting, r.OrderID)
	}
	return nil
}

func (g *Gateway) OpenOrders(ctx context.Context, user string) ([]exchange.OpenOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]exchange.OpenOrder, 0, len(g.resting))
	for _, o := range g.resting {
		out = append(out, o)
	}
	return out, nil
}
