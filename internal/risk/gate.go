package risk

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"execution-core/pkg/db"
)

// historyLimit bounds the realized trade history; the oldest entry is evicted
// on overflow.
const historyLimit = 1000

// dailyWindow is the rolling window length for the daily PnL counter.
const dailyWindow = 24 * time.Hour

// Gate is the stateful pre-trade approval layer. All checks run locally; a
// denial means no network call is made for the trade.
type Gate struct {
	mu          sync.Mutex
	cfg         Config
	dailyPnL    float64
	windowStart time.Time
	history     []TradeRecord

	db  *db.Database // optional daily metric persistence
	now func() time.Time
}

// New creates a gate with daily metrics persisted through database.
// The config is validated up front; an invalid config is fatal.
func New(cfg Config, database *db.Database) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk config: %w", err)
	}
	g := &Gate{
		cfg: cfg,
		db:  database,
		now: time.Now,
	}
	g.windowStart = g.now()
	log.Printf("risk: gate initialized max_leverage=%d max_position=%.0f max_open=%d",
		cfg.MaxLeverage, cfg.MaxPositionSizeUSD, cfg.MaxOpenPositions)
	return g, nil
}

// NewInMemory creates a gate without persistence.
func NewInMemory(cfg Config) (*Gate, error) {
	return New(cfg, nil)
}

// Config returns a copy of the active config.
func (g *Gate) Config() Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg
}

// UpdateConfig replaces the active config after re-validating it. The prior
// config is kept on failure.
func (g *Gate) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("risk config rejected: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg = cfg
	log.Printf("risk: config updated max_leverage=%d max_position=%.0f", cfg.MaxLeverage, cfg.MaxPositionSizeUSD)
	return nil
}

// CheckOpen evaluates an open request. Checks run in fixed precedence order
// and the first failing check wins; warnings from earlier checks that passed
// with caveats are carried on the decision either way.
func (g *Gate) CheckOpen(req CheckRequest) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	cfg := g.cfg
	var warnings []string

	deny := func(reason string) Decision {
		log.Printf("risk: denied %s: %s", req.Symbol, reason)
		return Decision{Allowed: false, Reason: reason, Warnings: warnings}
	}

	// 1. Leverage.
	if req.Leverage > cfg.MaxLeverage {
		return deny(fmt.Sprintf("leverage %d exceeds maximum %d", req.Leverage, cfg.MaxLeverage))
	}

	// 2. Notional.
	if req.NotionalUSD > cfg.MaxPositionSizeUSD {
		return deny(fmt.Sprintf("position size %.2f USD exceeds maximum %.2f", req.NotionalUSD, cfg.MaxPositionSizeUSD))
	}

	// 3. Open-position count. Adding to an instrument already held does not
	// increase the count.
	if cfg.MaxOpenPositions > 0 {
		held := false
		for _, p := range req.OpenPositions {
			if p.Symbol == req.Symbol {
				held = true
				break
			}
		}
		count := len(req.OpenPositions)
		if !held {
			count++
		}
		if count > cfg.MaxOpenPositions {
			return deny(fmt.Sprintf("open position limit reached: %d/%d", count, cfg.MaxOpenPositions))
		}
	}

	// 4. Daily loss.
	if cfg.MaxDailyLoss > 0 {
		g.rolloverLocked()
		used := math.Abs(g.dailyPnL)
		if used >= cfg.MaxDailyLoss {
			return deny(fmt.Sprintf("daily loss limit reached: %.2f/%.2f", used, cfg.MaxDailyLoss))
		}
		if projected := used + req.NotionalUSD*cfg.LossProjectionFactor; projected > cfg.MaxDailyLoss {
			warnings = append(warnings, fmt.Sprintf("projected risk %.2f would exceed daily loss limit %.2f", projected, cfg.MaxDailyLoss))
		}
	}

	// 5. Drawdown across open positions.
	if cfg.MaxDrawdownPct > 0 && req.AccountBalance > 0 {
		var unrealized float64
		for _, p := range req.OpenPositions {
			unrealized += p.UnrealizedPnL
		}
		ddPct := math.Abs(unrealized) / req.AccountBalance * 100
		if ddPct > cfg.MaxDrawdownPct {
			return deny(fmt.Sprintf("drawdown %.2f%% exceeds maximum %.2f%%", ddPct, cfg.MaxDrawdownPct))
		}
		if ddPct > 0.8*cfg.MaxDrawdownPct {
			warnings = append(warnings, fmt.Sprintf("drawdown %.2f%% approaching limit %.2f%%", ddPct, cfg.MaxDrawdownPct))
		}
	}

	// 6. Stop-loss mandate.
	if cfg.RequireStopLoss && !req.HasStopLoss {
		return deny("stop loss required by risk config")
	}

	// 7. Margin utilization.
	if req.AccountBalance > 0 {
		lev := req.Leverage
		if lev < 1 {
			lev = 1
		}
		required := req.NotionalUSD / float64(lev)
		if required > 0.9*req.AccountBalance {
			return deny(fmt.Sprintf("required margin %.2f exceeds 90%% of balance %.2f", required, req.AccountBalance))
		}
		if required > 0.7*req.AccountBalance {
			warnings = append(warnings, fmt.Sprintf("required margin %.2f above 70%% of balance %.2f", required, req.AccountBalance))
		}
	}

	return Decision{Allowed: true, Warnings: warnings}
}

// RecordTrade folds a realized PnL into the daily window and the bounded
// trade history, then persists the daily aggregate when a DB is configured.
func (g *Gate) RecordTrade(pnl float64) error {
	g.mu.Lock()
	g.rolloverLocked()
	g.dailyPnL += pnl
	g.history = append(g.history, TradeRecord{Time: g.now(), PnL: pnl})
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}
	database := g.db
	day := g.now().Format("2006-01-02")
	g.mu.Unlock()

	if database == nil {
		return nil
	}
	return database.RecordDailyRiskMetric(context.Background(), day, pnl)
}

// DailyPnL returns the cumulative realized PnL of the current 24h window.
func (g *Gate) DailyPnL() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.dailyPnL
}

// Stats summarizes the bounded trade history.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Stats{TotalTrades: len(g.history)}
	if s.TotalTrades == 0 {
		return s
	}
	wins := 0
	for _, tr := range g.history {
		s.TotalPnL += tr.PnL
		if tr.PnL > 0 {
			wins++
		}
	}
	s.WinRate = float64(wins) / float64(s.TotalTrades)
	s.AvgPnL = s.TotalPnL / float64(s.TotalTrades)
	return s
}

// rolloverLocked resets the daily window once 24h have elapsed since its
// start. Lazy: staleness is bounded by call frequency, not a timer.
func (g *Gate) rolloverLocked() {
	now := g.now()
	if now.Sub(g.windowStart) >= dailyWindow {
		if g.dailyPnL != 0 {
			log.Printf("risk: daily window rolled over, previous pnl=%.2f", g.dailyPnL)
		}
		g.dailyPnL = 0
		g.windowStart = now
	}
}
