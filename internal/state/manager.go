package state

import (
	"context"
	"fmt"
	"math"
	"sync"

	"execution-core/pkg/db"
)

// Manager keeps an in-memory view of net positions while persisting to the DB
// for durability. Qty is signed: positive long, negative short.
type Manager struct {
	mu        sync.RWMutex
	positions map[posKey]db.Position
	marks     map[posKey]float64
	db        *db.Database
}

type posKey struct {
	symbol string
	market string
}

func NewManager(database *db.Database) *Manager {
	return &Manager{
		db:        database,
		positions: make(map[posKey]db.Position),
		marks:     make(map[posKey]float64),
	}
}

// Load seeds in-memory state from the DB on startup.
func (m *Manager) Load(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	pos, err := m.db.ListPositions(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pos {
		m.positions[posKey{p.Symbol, p.Market}] = p
	}
	return nil
}

// Position returns the latest snapshot for (symbol, market); ok is false when flat.
func (m *Manager) Position(symbol, market string) (db.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[posKey{symbol, market}]
	return p, ok
}

// Positions returns a snapshot of all open positions.
func (m *Manager) Positions() []db.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]db.Position, 0, len(m.positions))
	for _, p := range m.positions {
		res = append(res, p)
	}
	return res
}

// SetMark records the last observed price for an instrument. Marks feed
// unrealized PnL estimates; they are in-memory only.
func (m *Manager) SetMark(symbol, market string, price float64) {
	if !(price > 0) || math.IsInf(price, 0) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[posKey{symbol, market}] = price
}

// UnrealizedPnL estimates the open PnL for (symbol, market) against the last
// known mark. Returns 0 when flat or no mark has been seen yet.
func (m *Manager) UnrealizedPnL(symbol, market string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := posKey{symbol, market}
	p, ok := m.positions[k]
	if !ok {
		return 0
	}
	mark, ok := m.marks[k]
	if !ok {
		return 0
	}
	return p.Qty * (mark - p.AvgPrice)
}

// ApplyFill folds a fill into the net position and persists the result.
// The returned realized PnL is nonzero only when the fill reduces or flips an
// existing position.
func (m *Manager) ApplyFill(ctx context.Context, symbol, market string, isBuy bool, qty, price float64, leverage int) (db.Position, float64, error) {
	if !(qty > 0) || !(price > 0) || math.IsInf(qty, 0) || math.IsInf(price, 0) {
		return db.Position{}, 0, fmt.Errorf("invalid fill %s qty=%v price=%v", symbol, qty, price)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := posKey{symbol, market}
	p := m.positions[k]
	p.Symbol, p.Market = symbol, market
	if leverage > 0 {
		p.Leverage = leverage
	}
	if p.Leverage == 0 {
		p.Leverage = 1
	}

	delta := qty
	if !isBuy {
		delta = -qty
	}

	old := p.Qty
	var realized float64

	switch {
	case old == 0 || sameSign(old, delta):
		// Opening or adding: weighted average entry.
		total := math.Abs(old) + qty
		p.AvgPrice = (math.Abs(old)*p.AvgPrice + qty*price) / total
		p.Qty = old + delta
	default:
		// Reducing or flipping.
		closed := math.Min(math.Abs(old), qty)
		if old > 0 {
			realized = closed * (price - p.AvgPrice)
		} else {
			realized = closed * (p.AvgPrice - price)
		}
		p.Qty = old + delta
		if !sameSign(old, p.Qty) && p.Qty != 0 {
			// Flip: the remainder opens a fresh position at the fill price.
			p.AvgPrice = price
		}
	}

	if p.Qty == 0 {
		delete(m.positions, k)
		if m.db != nil {
			if err := m.db.DeletePosition(ctx, symbol, market); err != nil {
				return p, realized, fmt.Errorf("delete position: %w", err)
			}
		}
		return p, realized, nil
	}

	m.positions[k] = p
	if m.db != nil {
		if err := m.db.UpsertPosition(ctx, p); err != nil {
			return p, realized, fmt.Errorf("persist position: %w", err)
		}
	}
	return p, realized, nil
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
