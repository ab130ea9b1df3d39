package pricing

import (
	"errors"
	"math"
)

var (
	// ErrInvalidAmount is returned for NaN, infinite, zero or negative inputs.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSizeTooSmall is returned when an amount rounds to zero at the
	// instrument's size precision.
	ErrSizeTooSmall = errors.New("size below minimum unit")
)

// Basis says whether an amount is quote-currency notional or base quantity.
type Basis int

const (
	BasisNotional Basis = iota
	BasisBase
)

// Rounding is the directional rounding policy at size precision.
// RoundUp guarantees a USD notional is not under-filled; RoundDown avoids
// over-selling when closing from a base quantity.
type Rounding int

const (
	RoundUp Rounding = iota
	RoundDown
)

// roundEps absorbs float representation noise so e.g. 1.001*1000 does not
// ceil to 1002 units.
const roundEps = 1e-9

// Size converts an amount into a wire-formatted base quantity. For
// BasisNotional the amount is divided by refPrice (mid-price for market
// orders, the caller's limit price for limit orders) before rounding;
// refPrice is ignored for BasisBase.
func Size(amount float64, decimals int, basis Basis, refPrice float64, rounding Rounding) (string, error) {
	if !validPositive(amount) {
		return "", ErrInvalidAmount
	}

	qty := amount
	if basis == BasisNotional {
		if !validPositive(refPrice) {
			return "", ErrInvalidAmount
		}
		qty = amount / refPrice
	}

	scale := math.Pow10(decimals)
	var units float64
	switch rounding {
	case RoundUp:
		units = math.Ceil(qty*scale - roundEps)
	default:
		units = math.Floor(qty*scale + roundEps)
	}

	if units <= 0 {
		return "", ErrSizeTooSmall
	}
	return FormatSize(units/scale, decimals), nil
}

func validPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
