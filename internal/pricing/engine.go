package pricing

import (
	"context"
	"fmt"

	"execution-core/pkg/exchange"
)

// Engine derives execution prices from top-of-book quotes. Limit prices pass
// through verbatim; marketable orders cross the spread plus a slippage buffer.
type Engine struct {
	gw              exchange.Gateway
	defaultSlippage float64 // fraction, e.g. 0.01 = 1%
}

// NewEngine creates a pricing engine. defaultSlippage is applied to market
// orders when the caller supplies none.
func NewEngine(gw exchange.Gateway, defaultSlippage float64) *Engine {
	return &Engine{gw: gw, defaultSlippage: defaultSlippage}
}

// Quote returns the execution price for an order. kind KindLimit returns
// limitPrice unchanged; KindTrigger/market pricing crosses the book with
// slippage (pass slippage <= 0 for the configured default) and truncates to
// the venue's significant-figure convention.
func (e *Engine) Quote(ctx context.Context, symbol string, market exchange.Market, isBuy bool, kind exchange.OrderKind, limitPrice, slippage float64) (float64, error) {
	if kind == exchange.KindLimit && limitPrice > 0 {
		return limitPrice, nil
	}

	book, err := e.book(ctx, symbol, market)
	if err != nil {
		return 0, err
	}

	if slippage <= 0 {
		slippage = e.defaultSlippage
	}
	var raw float64
	if isBuy {
		raw = book.BestAsk * (1 + slippage)
	} else {
		raw = book.BestBid * (1 - slippage)
	}
	return TruncateSigFigs(raw, PriceSigFigs), nil
}

// Mid returns the book midpoint, used only to size notional market orders
// against current liquidity, never as an execution price.
func (e *Engine) Mid(ctx context.Context, symbol string, market exchange.Market) (float64, error) {
	book, err := e.book(ctx, symbol, market)
	if err != nil {
		return 0, err
	}
	return book.Mid(), nil
}

func (e *Engine) book(ctx context.Context, symbol string, market exchange.Market) (exchange.Book, error) {
	book, err := e.gw.TopOfBook(ctx, symbol, market)
	if err != nil {
		return exchange.Book{}, fmt.Errorf("top of book %s: %w", symbol, err)
	}
	if book.BestBid <= 0 || book.BestAsk <= 0 {
		return exchange.Book{}, fmt.Errorf("%s: %w", symbol, exchange.ErrNoLiquidity)
	}
	return book, nil
}
