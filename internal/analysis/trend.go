package analysis

// TrendDirection is the classified direction of the market.
type TrendDirection string

const (
	TrendUp      TrendDirection = "uptrend"
	TrendDown    TrendDirection = "downtrend"
	TrendRanging TrendDirection = "ranging"
	TrendUnknown TrendDirection = "unknown"
)

// TrendResult is the outcome of classifying a swing sequence.
type TrendResult struct {
	Direction TrendDirection
	// Strength is the fraction of swing comparisons confirming the
	// direction, in [0, 1]. Zero when direction is unknown.
	Strength float64
}

// ClassifyTrend derives the trend from a swing sequence: higher highs
// and higher lows make an uptrend, lower highs and lower lows a
// downtrend, anything mixed is ranging. Fewer than two highs and two
// lows is unknown.
func ClassifyTrend(swings []Swing) TrendResult {
	var highs, lows []float64
	for _, sw := range swings {
		switch sw.Kind {
		case SwingHigh:
			highs = append(highs, sw.Price)
		case SwingLow:
			lows = append(lows, sw.Price)
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return TrendResult{Direction: TrendUnknown}
	}

	up, down, total := 0, 0, 0
	for i := 1; i < len(highs); i++ {
		total++
		if highs[i] > highs[i-1] {
			up++
		} else if highs[i] < highs[i-1] {
			down++
		}
	}
	for i := 1; i < len(lows); i++ {
		total++
		if lows[i] > lows[i-1] {
			up++
		} else if lows[i] < lows[i-1] {
			down++
		}
	}

	switch {
	case up == total:
		return TrendResult{Direction: TrendUp, Strength: 1}
	case down == total:
		return TrendResult{Direction: TrendDown, Strength: 1}
	case up > down:
		return TrendResult{Direction: TrendUp, Strength: float64(up) / float64(total)}
	case down > up:
		return TrendResult{Direction: TrendDown, Strength: float64(down) / float64(total)}
	default:
		return TrendResult{Direction: TrendRanging}
	}
}

// Momentum returns the rate of change over the last n samples as a
// percentage of the older price. Returns 0 when the series is too
// short or the base price is zero.
func Momentum(prices []float64, n int) float64 {
	if n <= 0 || len(prices) <= n {
		return 0
	}
	base := prices[len(prices)-1-n]
	if base == 0 {
		return 0
	}
	return (prices[len(prices)-1] - base) / base * 100
}
