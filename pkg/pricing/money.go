package pricing

import "math"

// roundCents rounds v to two decimals and clamps it at zero.
func roundCents(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return math.Round(v*100) / 100
}

// roundSigned rounds v to two decimals keeping its sign.
func roundSigned(v float64) float64 {
	return math.Round(v*100) / 100
}

// marginPercent is the share of price kept after cost, in percent.
// ok is false when either side is unknown.
func marginPercent(price, cost float64) (float64, bool) {
	if price <= 0 || cost <= 0 {
		return 0, false
	}
	return (price - cost) / price * 100, true
}

// priceForMargin returns the selling price that yields margin percent over cost.
func priceForMargin(cost, margin float64) float64 {
	return cost / (1 - margin/100)
}
