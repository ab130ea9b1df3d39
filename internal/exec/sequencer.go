package exec

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"execution-core/internal/asset"
	"execution-core/internal/events"
	"execution-core/internal/monitor"
	"execution-core/internal/pricing"
	"execution-core/internal/risk"
	"execution-core/internal/state"
	"execution-core/pkg/db"
	"execution-core/pkg/exchange"
)

// BalanceSource supplies the account balance used for margin and drawdown
// checks. A nil source disables those checks.
type BalanceSource interface {
	Available() float64
}

// Deps wires the sequencer's collaborators. DB, Bus, Balance and Metrics are
// optional; the rest are required.
type Deps struct {
	Gateway   exchange.Gateway
	Assets    *asset.Registry
	Pricer    *pricing.Engine
	Gate      *risk.Gate
	Positions *state.Manager
	DB        *db.Database
	Bus       *events.Bus
	Balance   BalanceSource
	Metrics   *monitor.Metrics
}

// Sequencer runs multi-leg order flows against the venue. For each instrument
// it serializes runs with an advisory lock; different instruments proceed
// concurrently. Legs are never rolled back: once the entry is accepted the
// outcome is success, and failed child legs surface as warnings.
type Sequencer struct {
	deps Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSequencer creates a sequencer from its dependencies.
func NewSequencer(d Deps) *Sequencer {
	return &Sequencer{
		deps:  d,
		locks: make(map[string]*sync.Mutex),
	}
}

// OpenPosition validates, risk-checks, prices, sizes and submits an entry
// order plus optional stop-loss and take-profit triggers. Risk denials return
// before any order is sent. A failed trigger leg aborts the remaining legs
// but leaves the accepted entry standing.
func (s *Sequencer) OpenPosition(ctx context.Context, req OpenRequest) Outcome {
	if s.deps.Metrics != nil {
		defer monitor.NewTimer(s.deps.Metrics.SequencerLatency).Stop()
	}
	if err := req.Validate(); err != nil {
		return failure("invalid request: %v", err)
	}
	leverage := req.Leverage
	if req.Market == exchange.MarketSpot {
		leverage = 1
	} else if leverage == 0 {
		leverage = 1
	}

	unlock := s.lockInstrument(req.Symbol, req.Market)
	defer unlock()

	// Notional for the risk check. Base-quantity intents need a reference
	// price first; that is a market-data read, not an order submission.
	notional := req.NotionalUSD
	refPrice := 0.0
	if req.Type == OrderLimit {
		refPrice = req.LimitPrice
	}
	if notional <= 0 {
		if refPrice <= 0 {
			mid, err := s.deps.Pricer.Mid(ctx, req.Symbol, req.Market)
			if err != nil {
				return failure("price %s: %v", req.Symbol, err)
			}
			refPrice = mid
			s.deps.Positions.SetMark(req.Symbol, string(req.Market), mid)
		}
		notional = req.Quantity * refPrice
	}

	decision := s.deps.Gate.CheckOpen(risk.CheckRequest{
		Symbol:         req.Symbol,
		Leverage:       leverage,
		NotionalUSD:    notional,
		HasStopLoss:    req.HasStopLoss(),
		OpenPositions:  s.riskPositions(),
		AccountBalance: s.balance(),
	})
	if !decision.Allowed {
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrementRiskDenials()
		}
		s.publish(events.EventRiskDenied, map[string]any{"symbol": req.Symbol, "reason": decision.Reason})
		return Outcome{Success: false, Reason: "risk denied: " + decision.Reason, Warnings: decision.Warnings}
	}
	warnings := decision.Warnings
	for _, w := range warnings {
		log.Printf("sequencer: risk warning %s: %s", req.Symbol, w)
		s.publish(events.EventRiskWarning, map[string]any{"symbol": req.Symbol, "warning": w})
	}

	info, err := s.deps.Assets.Resolve(ctx, req.Symbol, req.Market)
	if err != nil {
		return failure("resolve %s: %v", req.Symbol, err)
	}

	isBuy := req.Side.IsBuy()
	entryPx, err := s.deps.Pricer.Quote(ctx, req.Symbol, req.Market, isBuy, exchange.KindLimit, req.LimitPrice, req.Slippage)
	if err != nil {
		return failure("price %s: %v", req.Symbol, err)
	}
	s.deps.Positions.SetMark(req.Symbol, string(req.Market), entryPx)

	var sizeStr string
	if req.NotionalUSD > 0 {
		if refPrice <= 0 {
			// Market notional orders are sized against the mid, not the
			// slippage-padded execution price.
			mid, merr := s.deps.Pricer.Mid(ctx, req.Symbol, req.Market)
			if merr != nil {
				return failure("price %s: %v", req.Symbol, merr)
			}
			refPrice = mid
		}
		sizeStr, err = pricing.Size(req.NotionalUSD, info.SizeDecimals, pricing.BasisNotional, refPrice, pricing.RoundUp)
	} else {
		sizeStr, err = pricing.Size(req.Quantity, info.SizeDecimals, pricing.BasisBase, 0, pricing.RoundDown)
	}
	if err != nil {
		return failure("size %s: %v", req.Symbol, err)
	}

	if req.Market == exchange.MarketPerp {
		if err := s.deps.Gateway.SetLeverage(ctx, info.Index, leverage, true); err != nil {
			return failure("set leverage %s: %v", req.Symbol, err)
		}
	}

	tif := exchange.TIFIOC
	if req.Type == OrderLimit {
		tif = exchange.TIFGTC
	}
	entry := exchange.OrderRequest{
		AssetIndex: info.Index,
		IsBuy:      isBuy,
		Price:      pricing.FormatPrice(entryPx),
		Size:       sizeStr,
		Spec:       exchange.OrderSpec{Kind: exchange.KindLimit, TimeInForce: tif},
		Grouping:   exchange.GroupingNone,
		ClientID:   uuid.NewString(),
	}
	leg, err := s.submit(ctx, req.Symbol, req.Market, "ENTRY", entry)
	if err != nil {
		out := failure("entry %s: %v", req.Symbol, err)
		out.Warnings = warnings
		return out
	}
	if !leg.Succeeded() {
		return Outcome{Success: false, Reason: "entry rejected: " + leg.Err, Warnings: warnings}
	}

	out := Outcome{Success: true, OrderID: leg.OrderID, Warnings: warnings}
	anchor := entryPx
	if leg.Kind == StatusFilled {
		fillPx := leg.AvgPrice
		if fillPx <= 0 {
			fillPx = entryPx
		}
		fillQty := leg.FillSize
		if fillQty <= 0 {
			fillQty = parseFloat(sizeStr)
		}
		s.applyFill(ctx, req.Symbol, req.Market, entry.ClientID, isBuy, fillQty, fillPx, leverage)
		out.Filled = true
		out.FillPrice = fillPx
		anchor = fillPx
	}

	if req.Market != exchange.MarketPerp {
		return out
	}

	if req.HasStopLoss() {
		trigPx := req.StopLossPrice
		if trigPx <= 0 {
			if isBuy {
				trigPx = anchor * (1 - req.StopLossPct/100)
			} else {
				trigPx = anchor * (1 + req.StopLossPct/100)
			}
		}
		if werr := s.placeTrigger(ctx, req, info, !isBuy, sizeStr, trigPx, exchange.RoleStopLoss); werr != nil {
			out.Warnings = append(out.Warnings, "stop-loss not placed: "+werr.Error())
			// Remaining legs are aborted; the accepted entry stands.
			return out
		}
	}
	if req.hasTakeProfit() {
		trigPx := req.TakeProfitPrice
		if trigPx <= 0 {
			if isBuy {
				trigPx = anchor * (1 + req.TakeProfitPct/100)
			} else {
				trigPx = anchor * (1 - req.TakeProfitPct/100)
			}
		}
		if werr := s.placeTrigger(ctx, req, info, !isBuy, sizeStr, trigPx, exchange.RoleTakeProfit); werr != nil {
			out.Warnings = append(out.Warnings, "take-profit not placed: "+werr.Error())
		}
	}
	return out
}

// ClosePosition reduces or flattens an open position with a reduce-only
// order. Percent defaults to 100; a full close feeds realized PnL into the
// risk gate's trade history.
func (s *Sequencer) ClosePosition(ctx context.Context, req CloseRequest) Outcome {
	if s.deps.Metrics != nil {
		defer monitor.NewTimer(s.deps.Metrics.SequencerLatency).Stop()
	}
	if err := req.Validate(); err != nil {
		return failure("invalid request: %v", err)
	}
	pct := req.Percent
	if pct == 0 {
		pct = 100
	}

	unlock := s.lockInstrument(req.Symbol, req.Market)
	defer unlock()

	pos, ok := s.deps.Positions.Position(req.Symbol, string(req.Market))
	if !ok {
		return failure("no open position for %s (%s)", req.Symbol, req.Market)
	}

	info, err := s.deps.Assets.Resolve(ctx, req.Symbol, req.Market)
	if err != nil {
		return failure("resolve %s: %v", req.Symbol, err)
	}

	isBuy := pos.Qty < 0 // closing a short buys back
	closeQty := pos.Qty * pct / 100
	if closeQty < 0 {
		closeQty = -closeQty
	}
	sizeStr, err := pricing.Size(closeQty, info.SizeDecimals, pricing.BasisBase, 0, pricing.RoundDown)
	if err != nil {
		return failure("close size %s: %v", req.Symbol, err)
	}

	px, err := s.deps.Pricer.Quote(ctx, req.Symbol, req.Market, isBuy, exchange.KindLimit, req.LimitPrice, req.Slippage)
	if err != nil {
		return failure("price %s: %v", req.Symbol, err)
	}
	s.deps.Positions.SetMark(req.Symbol, string(req.Market), px)

	tif := exchange.TIFIOC
	if req.LimitPrice > 0 {
		tif = exchange.TIFGTC
	}
	order := exchange.OrderRequest{
		AssetIndex: info.Index,
		IsBuy:      isBuy,
		Price:      pricing.FormatPrice(px),
		Size:       sizeStr,
		ReduceOnly: true,
		Spec:       exchange.OrderSpec{Kind: exchange.KindLimit, TimeInForce: tif},
		Grouping:   exchange.GroupingNone,
		ClientID:   uuid.NewString(),
	}
	leg, err := s.submit(ctx, req.Symbol, req.Market, "CLOSE", order)
	if err != nil {
		return failure("close %s: %v", req.Symbol, err)
	}
	if !leg.Succeeded() {
		return Outcome{Success: false, Reason: "close rejected: " + leg.Err}
	}

	out := Outcome{Success: true, OrderID: leg.OrderID}
	if leg.Kind != StatusFilled {
		return out
	}

	fillPx := leg.AvgPrice
	if fillPx <= 0 {
		fillPx = px
	}
	fillQty := leg.FillSize
	if fillQty <= 0 {
		fillQty = parseFloat(sizeStr)
	}
	realized := s.applyFill(ctx, req.Symbol, req.Market, order.ClientID, isBuy, fillQty, fillPx, 0)
	out.Filled = true
	out.FillPrice = fillPx
	out.RealizedPnL = realized

	if _, open := s.deps.Positions.Position(req.Symbol, string(req.Market)); !open {
		if err := s.deps.Gate.RecordTrade(realized); err != nil {
			log.Printf("sequencer: record trade %s: %v", req.Symbol, err)
		}
		s.publish(events.EventTradeClosed, map[string]any{"symbol": req.Symbol, "pnl": realized})
	}
	return out
}

// placeTrigger submits one reduce-only trigger leg linked to the position.
func (s *Sequencer) placeTrigger(ctx context.Context, req OpenRequest, info asset.Info, isBuy bool, size string, trigPx float64, role exchange.TriggerRole) error {
	trigPx = pricing.TruncateSigFigs(trigPx, pricing.PriceSigFigs)
	if trigPx <= 0 {
		return fmt.Errorf("trigger price %v out of range", trigPx)
	}
	priceStr := pricing.FormatPrice(trigPx)
	order := exchange.OrderRequest{
		AssetIndex: info.Index,
		IsBuy:      isBuy,
		Price:      priceStr,
		Size:       size,
		ReduceOnly: true,
		Spec: exchange.OrderSpec{
			Kind:         exchange.KindTrigger,
			TriggerPrice: priceStr,
			IsMarket:     true,
			Role:         role,
		},
		Grouping: exchange.GroupingPositionLinked,
		ClientID: uuid.NewString(),
	}
	leg, err := s.submit(ctx, req.Symbol, req.Market, string(role), order)
	if err != nil {
		return err
	}
	if !leg.Succeeded() {
		return fmt.Errorf("venue rejected: %s", leg.Err)
	}
	return nil
}

// submit persists the order row, sends it, normalizes the reply and keeps the
// audit trail in sync. The returned error covers transport and decode
// failures; a venue-side rejection comes back as a LegResult with Kind
// StatusError.
func (s *Sequencer) submit(ctx context.Context, symbol string, market exchange.Market, role string, req exchange.OrderRequest) (LegResult, error) {
	row := db.Order{
		ID:         req.ClientID,
		Symbol:     symbol,
		Market:     string(market),
		Side:       sideString(req.IsBuy),
		Kind:       string(req.Spec.Kind),
		Role:       role,
		Price:      req.Price,
		Size:       req.Size,
		ReduceOnly: req.ReduceOnly,
		Status:     "SUBMITTED",
		CreatedAt:  time.Now(),
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.CreateOrder(ctx, row); err != nil {
			log.Printf("sequencer: persist order %s: %v", req.ClientID, err)
		}
	}
	s.publish(events.EventOrderSubmitted, row)
	log.Printf("sequencer: submit %s %s %s px=%s sz=%s", role, row.Side, symbol, req.Price, req.Size)

	var timer *monitor.Timer
	if s.deps.Metrics != nil {
		s.deps.Metrics.IncrementSubmitted()
		timer = monitor.NewTimer(s.deps.Metrics.GatewayLatency)
	}
	resp, err := s.deps.Gateway.SubmitOrder(ctx, req)
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrementErrors()
		}
		s.updateOrder(ctx, req.ClientID, "REJECTED", 0)
		return LegResult{}, fmt.Errorf("submit order: %w", err)
	}
	leg, err := Normalize(resp)
	if err != nil {
		s.updateOrder(ctx, req.ClientID, "REJECTED", 0)
		return LegResult{}, err
	}

	switch leg.Kind {
	case StatusError:
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrementRejected()
		}
		s.updateOrder(ctx, req.ClientID, "REJECTED", 0)
		s.publish(events.EventOrderRejected, map[string]any{"symbol": symbol, "role": role, "error": leg.Err})
		log.Printf("sequencer: %s %s rejected: %s", role, symbol, leg.Err)
	case StatusResting:
		s.updateOrder(ctx, req.ClientID, "RESTING", leg.OrderID)
		s.publish(events.EventOrderResting, map[string]any{"symbol": symbol, "role": role, "oid": leg.OrderID})
	case StatusFilled:
		if s.deps.Metrics != nil {
			s.deps.Metrics.IncrementFilled()
		}
		s.updateOrder(ctx, req.ClientID, "FILLED", leg.OrderID)
		s.publish(events.EventOrderFilled, map[string]any{"symbol": symbol, "role": role, "oid": leg.OrderID, "avg_px": leg.AvgPrice})
	default:
		s.updateOrder(ctx, req.ClientID, "PENDING", 0)
	}
	return leg, nil
}

// applyFill folds a fill into position state, records the trade row and
// publishes the position change. Returns realized PnL.
func (s *Sequencer) applyFill(ctx context.Context, symbol string, market exchange.Market, orderID string, isBuy bool, qty, price float64, leverage int) float64 {
	pos, realized, err := s.deps.Positions.ApplyFill(ctx, symbol, string(market), isBuy, qty, price, leverage)
	if err != nil {
		log.Printf("sequencer: apply fill %s: %v", symbol, err)
		return 0
	}
	if s.deps.DB != nil {
		trade := db.Trade{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			Symbol:    symbol,
			Side:      sideString(isBuy),
			Price:     price,
			Qty:       qty,
			PnL:       realized,
			CreatedAt: time.Now(),
		}
		if err := s.deps.DB.CreateTrade(ctx, trade); err != nil {
			log.Printf("sequencer: persist trade %s: %v", symbol, err)
		}
	}
	s.publish(events.EventPositionChange, pos)
	return realized
}

func (s *Sequencer) updateOrder(ctx context.Context, id, status string, oid int64) {
	if s.deps.DB == nil {
		return
	}
	if err := s.deps.DB.UpdateOrderStatus(ctx, id, status, oid); err != nil {
		log.Printf("sequencer: update order %s: %v", id, err)
	}
}

func (s *Sequencer) riskPositions() []risk.Position {
	var out []risk.Position
	for _, p := range s.deps.Positions.Positions() {
		out = append(out, risk.Position{
			Symbol:        p.Symbol,
			UnrealizedPnL: s.deps.Positions.UnrealizedPnL(p.Symbol, p.Market),
		})
	}
	return out
}

func (s *Sequencer) balance() float64 {
	if s.deps.Balance == nil {
		return 0
	}
	return s.deps.Balance.Available()
}

func (s *Sequencer) publish(e events.Event, payload any) {
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(e, payload)
	}
}

// lockInstrument serializes sequencer runs per (symbol, market).
func (s *Sequencer) lockInstrument(symbol string, market exchange.Market) func() {
	key := symbol + "/" + string(market)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func sideString(isBuy bool) string {
	if isBuy {
		return "BUY"
	}
	return "SELL"
}
