package pricing

import (
	"context"
	"errors"
	"testing"

	"execution-core/pkg/exchange"
)

// bookGateway serves a fixed top-of-book.
type bookGateway struct {
	exchange.Gateway
	book exchange.Book
	err  error
}

func (g *bookGateway) TopOfBook(ctx context.Context, symbol string, market exchange.Market) (exchange.Book, error) {
	if g.err != nil {
		return exchange.Book{}, g.err
	}
	return g.book, nil
}

func TestQuoteMarketSlippage(t *testing.T) {
	gw := &bookGateway{book: exchange.Book{BestBid: 100, BestAsk: 101}}
	eng := NewEngine(gw, 0.01)

	tests := []struct {
		name     string
		isBuy    bool
		slippage float64
		want     float64
	}{
		{name: "buy crosses ask plus default slippage", isBuy: true, want: 102.01},
		{name: "sell crosses bid minus default slippage", isBuy: false, want: 99},
		{name: "explicit slippage overrides default", isBuy: true, slippage: 0.05, want: 106.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.Quote(context.Background(), "BTC", exchange.MarketPerp, tt.isBuy, exchange.KindTrigger, 0, tt.slippage)
			if err != nil {
				t.Fatalf("Quote returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Quote=%v, expected %v", got, tt.want)
			}
		})
	}
}

func TestQuoteLimitPassthrough(t *testing.T) {
	// No book needed for limit orders.
	eng := NewEngine(&bookGateway{err: errors.New("should not be called")}, 0.01)
	got, err := eng.Quote(context.Background(), "ETH", exchange.MarketPerp, true, exchange.KindLimit, 1234.56789, 0)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if got != 1234.56789 {
		t.Fatalf("limit price not passed through verbatim: %v", got)
	}
}

func TestQuoteNoLiquidity(t *testing.T) {
	tests := []struct {
		name string
		book exchange.Book
	}{
		{name: "empty bid", book: exchange.Book{BestBid: 0, BestAsk: 101}},
		{name: "empty ask", book: exchange.Book{BestBid: 100, BestAsk: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine(&bookGateway{book: tt.book}, 0.01)
			_, err := eng.Quote(context.Background(), "BTC", exchange.MarketPerp, true, exchange.KindTrigger, 0, 0)
			if !errors.Is(err, exchange.ErrNoLiquidity) {
				t.Fatalf("expected ErrNoLiquidity, got %v", err)
			}
		})
	}
}

func TestMid(t *testing.T) {
	eng := NewEngine(&bookGateway{book: exchange.Book{BestBid: 100, BestAsk: 101}}, 0.01)
	got, err := eng.Mid(context.Background(), "BTC", exchange.MarketPerp)
	if err != nil {
		t.Fatalf("Mid returned error: %v", err)
	}
	if got != 100.5 {
		t.Fatalf("Mid=%v, expected 100.5", got)
	}
}
