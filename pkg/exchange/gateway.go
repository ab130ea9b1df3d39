package exchange

import (
	"context"
	"errors"
)

// ErrNoLiquidity is returned when either side of a book is empty or zero.
var ErrNoLiquidity = errors.New("no liquidity on book")

// Gateway abstracts the venue client. Implementations own transport, signing
// and retries; callers treat every method as a single fallible network call.
type Gateway interface {
	// TopOfBook returns best bid/ask for an instrument, ErrNoLiquidity when
	// either side is absent.
	TopOfBook(ctx context.Context, symbol string, market Market) (Book, error)

	// UniverseMetadata fetches the instrument universe for a market type.
	UniverseMetadata(ctx context.Context, market Market) (Universe, error)

	// SetLeverage updates leverage for a perp asset.
	SetLeverage(ctx context.Context, assetIndex, leverage int, crossMargin bool) error

	// SubmitOrder sends one order and returns the raw per-order statuses.
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)

	// CancelOrders cancels the given orders.
	CancelOrders(ctx context.Context, cancels []CancelRequest) error

	// OpenOrders lists resting orders for a user address.
	OpenOrders(ctx context.Context, user string) ([]OpenOrder, error)
}
