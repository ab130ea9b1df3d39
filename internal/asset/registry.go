package asset

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"execution-core/pkg/exchange"
)

// ErrUnknownInstrument is returned when a symbol is absent from the fetched universe.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Info is the resolved venue metadata for one instrument.
type Info struct {
	Index        int
	SizeDecimals int
	PairName     string
}

// Registry resolves instrument symbols to venue asset indices and size
// precision. Universe metadata is fetched at most once per market type per
// registry lifetime; concurrent first resolutions for the same market share a
// single fetch.
type Registry struct {
	gw exchange.Gateway

	mu      sync.Mutex
	markets map[exchange.Market]*marketCache
}

type marketCache struct {
	mu         sync.Mutex // serializes the first fetch per market
	loaded     bool
	bySymbol   map[string]Info
	pairByBase map[string]string
}

// NewRegistry creates a registry backed by the given gateway.
func NewRegistry(gw exchange.Gateway) *Registry {
	return &Registry{
		gw:      gw,
		markets: make(map[exchange.Market]*marketCache),
	}
}

// Resolve returns venue metadata for (symbol, market).
// Spot lookup tries the exact pair name first, then the base-token mapping;
// the first-seen pair wins on base-token collisions.
func (r *Registry) Resolve(ctx context.Context, symbol string, market exchange.Market) (Info, error) {
	mc := r.marketCache(market)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if !mc.loaded {
		if err := r.fetch(ctx, market, mc); err != nil {
			return Info{}, err
		}
	}

	if info, ok := mc.bySymbol[symbol]; ok {
		return info, nil
	}
	if market == exchange.MarketSpot {
		if pair, ok := mc.pairByBase[symbol]; ok {
			if info, ok := mc.bySymbol[pair]; ok {
				return info, nil
			}
		}
	}
	return Info{}, fmt.Errorf("%w: %s (%s)", ErrUnknownInstrument, symbol, market)
}

// Reset drops all cached universes; the next Resolve refetches.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets = make(map[exchange.Market]*marketCache)
}

func (r *Registry) marketCache(market exchange.Market) *marketCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	mc, ok := r.markets[market]
	if !ok {
		mc = &marketCache{}
		r.markets[market] = mc
	}
	return mc
}

// fetch loads the universe for a market. Caller holds mc.mu. A failed fetch
// leaves the cache unloaded so the next Resolve retries.
func (r *Registry) fetch(ctx context.Context, market exchange.Market, mc *marketCache) error {
	uni, err := r.gw.UniverseMetadata(ctx, market)
	if err != nil {
		return fmt.Errorf("fetch %s universe: %w", market, err)
	}

	bySymbol := make(map[string]Info, len(uni.Assets))
	for _, a := range uni.Assets {
		index := a.Index
		if market == exchange.MarketSpot {
			index = exchange.SpotIndexOffset + a.Index
		}
		if _, exists := bySymbol[a.Symbol]; exists {
			continue // first-seen wins
		}
		bySymbol[a.Symbol] = Info{
			Index:        index,
			SizeDecimals: a.SizeDecimals,
			PairName:     a.Symbol,
		}
	}

	pairByBase := make(map[string]string, len(uni.PairByBase))
	for base, pair := range uni.PairByBase {
		pairByBase[base] = pair
	}

	mc.bySymbol = bySymbol
	mc.pairByBase = pairByBase
	mc.loaded = true
	log.Printf("asset: loaded %s universe, %d instruments", market, len(bySymbol))
	return nil
}
