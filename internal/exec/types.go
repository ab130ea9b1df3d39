package exec

import (
	"fmt"
	"math"

	"execution-core/pkg/exchange"
)

// Side is the caller-facing direction of a trade intent.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// IsBuy maps the intent side to the venue's buy/sell flag.
func (s Side) IsBuy() bool { return s == SideLong }

// OrderType selects marketable vs resting execution for the entry leg.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// OpenRequest is a caller-supplied trade intent. Exactly one of NotionalUSD
// (quote currency) or Quantity (base units) must be positive. Stop-loss and
// take-profit may each be given as an absolute price or a percent distance
// from entry; perp only.
type OpenRequest struct {
	Symbol   string          `json:"symbol"`
	Market   exchange.Market `json:"market"`
	Side     Side            `json:"side"`
	Type     OrderType       `json:"type"`
	Leverage int             `json:"leverage,omitempty"` // perp only, defaults to 1

	NotionalUSD float64 `json:"notional_usd,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`

	LimitPrice float64 `json:"limit_price,omitempty"` // required for LIMIT
	Slippage   float64 `json:"slippage,omitempty"`    // fraction, e.g. 0.01; 0 = configured default

	StopLossPrice   float64 `json:"stop_loss_price,omitempty"`
	StopLossPct     float64 `json:"stop_loss_pct,omitempty"` // percent from entry
	TakeProfitPrice float64 `json:"take_profit_price,omitempty"`
	TakeProfitPct   float64 `json:"take_profit_pct,omitempty"`
}

// HasStopLoss reports whether any stop-loss was supplied.
func (r OpenRequest) HasStopLoss() bool {
	return r.StopLossPrice > 0 || r.StopLossPct > 0
}

func (r OpenRequest) hasTakeProfit() bool {
	return r.TakeProfitPrice > 0 || r.TakeProfitPct > 0
}

// Validate rejects intents the sequencer cannot execute.
func (r OpenRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Market != exchange.MarketPerp && r.Market != exchange.MarketSpot {
		return fmt.Errorf("unknown market %q", r.Market)
	}
	if r.Side != SideLong && r.Side != SideShort {
		return fmt.Errorf("side must be LONG or SHORT, got %q", r.Side)
	}
	if r.Type != OrderMarket && r.Type != OrderLimit {
		return fmt.Errorf("type must be MARKET or LIMIT, got %q", r.Type)
	}
	hasNotional := validAmount(r.NotionalUSD)
	hasQuantity := validAmount(r.Quantity)
	if hasNotional == hasQuantity {
		return fmt.Errorf("exactly one of notional_usd or quantity must be positive")
	}
	if r.Type == OrderLimit && !validAmount(r.LimitPrice) {
		return fmt.Errorf("limit orders require a positive limit_price")
	}
	if r.Leverage < 0 {
		return fmt.Errorf("leverage must not be negative, got %d", r.Leverage)
	}
	return nil
}

// CloseRequest reduces or flattens an open position. Percent defaults to 100.
type CloseRequest struct {
	Symbol     string          `json:"symbol"`
	Market     exchange.Market `json:"market"`
	Percent    float64         `json:"percent,omitempty"`
	LimitPrice float64         `json:"limit_price,omitempty"` // 0 = market close
	Slippage   float64         `json:"slippage,omitempty"`
}

// Validate rejects malformed close requests.
func (r CloseRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if r.Market != exchange.MarketPerp && r.Market != exchange.MarketSpot {
		return fmt.Errorf("unknown market %q", r.Market)
	}
	if r.Percent < 0 || r.Percent > 100 {
		return fmt.Errorf("percent must be in (0, 100], got %v", r.Percent)
	}
	return nil
}

// Outcome is the uniform terminal result of one sequencer run. On partial
// multi-leg failures Success stays true and Warnings carries the failed legs.
type Outcome struct {
	Success     bool     `json:"success"`
	OrderID     int64    `json:"order_id,omitempty"` // 0 when the venue returned no id yet
	Filled      bool     `json:"filled"`
	FillPrice   float64  `json:"fill_price,omitempty"`
	RealizedPnL float64  `json:"realized_pnl,omitempty"` // close runs only
	Reason      string   `json:"reason,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

func failure(format string, args ...any) Outcome {
	return Outcome{Reason: fmt.Sprintf(format, args...)}
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
