package exec

import (
	"errors"
	"strconv"

	"execution-core/pkg/exchange"
)

// ErrMalformedResponse marks a venue reply the normalizer could not decode.
var ErrMalformedResponse = errors.New("malformed order response")

// StatusKind tags the decoded per-order status variant.
type StatusKind int

const (
	StatusError StatusKind = iota
	StatusResting
	StatusFilled
	// StatusUnknown covers venue statuses with no recognized shape. They are
	// treated as accepted with no order id rather than failed.
	StatusUnknown
)

func (k StatusKind) String() string {
	switch k {
	case StatusError:
		return "error"
	case StatusResting:
		return "resting"
	case StatusFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// LegResult is one submitted order's normalized outcome.
type LegResult struct {
	Kind     StatusKind
	OrderID  int64
	AvgPrice float64 // filled only
	FillSize float64 // filled only
	Err      string  // error kind only
}

// Succeeded reports whether the venue accepted the order.
func (l LegResult) Succeeded() bool { return l.Kind != StatusError }

// Normalize decodes the first per-order status of a raw submission response.
// An empty status list is malformed; a shape with none of the known variants
// set decodes to StatusUnknown.
func Normalize(resp exchange.OrderResponse) (LegResult, error) {
	if len(resp.Statuses) == 0 {
		return LegResult{}, ErrMalformedResponse
	}
	st := resp.Statuses[0]
	switch {
	case st.Error != "":
		return LegResult{Kind: StatusError, Err: st.Error}, nil
	case st.Resting != nil:
		return LegResult{Kind: StatusResting, OrderID: st.Resting.OrderID}, nil
	case st.Filled != nil:
		return LegResult{
			Kind:     StatusFilled,
			OrderID:  st.Filled.OrderID,
			AvgPrice: parseFloat(st.Filled.AvgPrice),
			FillSize: parseFloat(st.Filled.TotalSize),
		}, nil
	default:
		return LegResult{Kind: StatusUnknown}, nil
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
