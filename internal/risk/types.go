package risk

import (
	"fmt"
	"time"
)

// Config defines the guard rails enforced before any order is sent.
// Zero-valued optional limits (MaxDailyLoss, MaxDrawdownPct, MaxOpenPositions)
// disable the corresponding check.
type Config struct {
	MaxLeverage        int     `json:"max_leverage"`          // (0, 50]
	MaxPositionSizeUSD float64 `json:"max_position_size_usd"` // > 0
	MaxDailyLoss       float64 `json:"max_daily_loss"`        // optional, > 0 when set
	MaxDrawdownPct     float64 `json:"max_drawdown_pct"`      // optional, (0, 100]
	MaxOpenPositions   int     `json:"max_open_positions"`    // optional, > 0 when set
	RequireStopLoss    bool    `json:"require_stop_loss"`

	// LossProjectionFactor is the fraction of a new order's notional assumed
	// at risk when projecting against the daily loss limit.
	LossProjectionFactor float64 `json:"loss_projection_factor"`
}

// Validate rejects configurations the gate cannot enforce sanely.
func (c Config) Validate() error {
	if c.MaxLeverage <= 0 || c.MaxLeverage > 50 {
		return fmt.Errorf("max_leverage must be in (0, 50], got %d", c.MaxLeverage)
	}
	if c.MaxPositionSizeUSD <= 0 {
		return fmt.Errorf("max_position_size_usd must be positive, got %v", c.MaxPositionSizeUSD)
	}
	if c.MaxDailyLoss < 0 {
		return fmt.Errorf("max_daily_loss must be positive when set, got %v", c.MaxDailyLoss)
	}
	if c.MaxDrawdownPct < 0 || c.MaxDrawdownPct > 100 {
		return fmt.Errorf("max_drawdown_pct must be in (0, 100], got %v", c.MaxDrawdownPct)
	}
	if c.MaxOpenPositions < 0 {
		return fmt.Errorf("max_open_positions must be positive when set, got %d", c.MaxOpenPositions)
	}
	if c.LossProjectionFactor < 0 || c.LossProjectionFactor > 1 {
		return fmt.Errorf("loss_projection_factor must be in [0, 1], got %v", c.LossProjectionFactor)
	}
	return nil
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		MaxLeverage:          10,
		MaxPositionSizeUSD:   10000,
		MaxDailyLoss:         1000,
		MaxDrawdownPct:       20,
		MaxOpenPositions:     5,
		RequireStopLoss:      false,
		LossProjectionFactor: 0.10,
	}
}

// Position is an open-position snapshot supplied by the caller for a check.
type Position struct {
	Symbol        string
	UnrealizedPnL float64
}

// CheckRequest aggregates the inputs for one pre-trade approval.
type CheckRequest struct {
	Symbol         string
	Leverage       int
	NotionalUSD    float64
	HasStopLoss    bool
	OpenPositions  []Position
	AccountBalance float64
}

// Decision is the gate's verdict. A denial carries exactly one reason (the
// first failing check); warnings accumulate independently from checks that
// passed with caveats.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// TradeRecord is one realized-PnL entry in the bounded history.
type TradeRecord struct {
	Time time.Time `json:"time"`
	PnL  float64   `json:"pnl"`
}

// Stats summarizes the realized trade history.
type Stats struct {
	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
	AvgPnL      float64 `json:"avg_pnl"`
	TotalPnL    float64 `json:"total_pnl"`
}
