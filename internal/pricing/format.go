package pricing

import (
	"math"
	"strconv"
	"strings"
)

// PriceSigFigs is the venue significant-figure convention for prices.
const PriceSigFigs = 5

// sigFigEps nudges values sitting a float artifact below an integer boundary
// (e.g. 100*0.95 = 94.9999...) over it before truncating. Relative, so it can
// never move a genuinely lower price across a boundary.
const sigFigEps = 1e-12

// TruncateSigFigs truncates v to the given number of significant figures.
// Truncation, not rounding: the venue rejects prices with excess precision and
// rounding could cross the intended side of the book.
func TruncateSigFigs(v float64, figs int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	mag := math.Floor(math.Log10(math.Abs(v)))
	scale := math.Pow(10, float64(figs-1)-mag)
	scaled := v * scale
	return math.Trunc(scaled+math.Abs(scaled)*sigFigEps) / scale
}

// FormatPrice renders a price for the wire, truncated to PriceSigFigs.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(TruncateSigFigs(v, PriceSigFigs), 'f', -1, 64)
}

// FormatSize renders a base quantity at the instrument's declared precision
// with trailing zeros stripped.
func FormatSize(qty float64, decimals int) string {
	s := strconv.FormatFloat(qty, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}
