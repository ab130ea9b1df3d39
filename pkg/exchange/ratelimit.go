package exchange

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled wraps a Gateway with a shared request budget so one engine cannot
// burn through the venue rate limit. Every call blocks until a token is
// available or the context is done.
type Throttled struct {
	inner Gateway
	lim   *rate.Limiter
}

// NewThrottled creates a throttled gateway allowing rps requests per second
// with the given burst.
func NewThrottled(inner Gateway, rps float64, burst int) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{inner: inner, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) TopOfBook(ctx context.Context, symbol string, market Market) (Book, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return Book{}, err
	}
	return t.inner.TopOfBook(ctx, symbol, market)
}

func (t *Throttled) UniverseMetadata(ctx context.Context, market Market) (Universe, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return Universe{}, err
	}
	return t.inner.UniverseMetadata(ctx, market)
}

func (t *Throttled) SetLeverage(ctx context.Context, assetIndex, leverage int, crossMargin bool) error {
	if err := t.lim.Wait(ctx); err != nil {
		return err
	}
	return t.inner.SetLeverage(ctx, assetIndex, leverage, crossMargin)
}

func (t *Throttled) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return OrderResponse{}, err
	}
	return t.inner.SubmitOrder(ctx, req)
}

func (t *Throttled) CancelOrders(ctx context.Context, cancels []CancelRequest) error {
	if err := t.lim.Wait(ctx); err != nil {
		return err
	}
	return t.inner.CancelOrders(ctx, cancels)
}

func (t *Throttled) OpenOrders(ctx context.Context, user string) ([]OpenOrder, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.OpenOrders(ctx, user)
}
