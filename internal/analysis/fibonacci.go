package analysis

// Level is a single Fibonacci price level.
type Level struct {
	Ratio float64
	Price float64
}

// Standard retracement and extension ratios.
var (
	retracementRatios = []float64{0.236, 0.382, 0.500, 0.618, 0.786}
	extensionRatios   = []float64{1.000, 1.272, 1.618, 2.000}
)

// Retracements returns the retracement levels of the move from low to
// high. For an up-move the levels lie below the high; pass the same
// arguments for a down-move and read the levels relative to the low.
func Retracements(high, low float64) []Level {
	span := high - low
	levels := make([]Level, 0, len(retracementRatios))
	for _, r := range retracementRatios {
		levels = append(levels, Level{Ratio: r, Price: high - span*r})
	}
	return levels
}

// Extensions returns the extension targets beyond the high of the move
// from low to high.
func Extensions(high, low float64) []Level {
	span := high - low
	levels := make([]Level, 0, len(extensionRatios))
	for _, r := range extensionRatios {
		levels = append(levels, Level{Ratio: r, Price: high + span*(r-1)})
	}
	return levels
}

// Zone is a price band. Lower <= Upper always holds.
type Zone struct {
	Lower float64
	Upper float64
}

// Contains reports whether price falls inside the zone, inclusive.
func (z Zone) Contains(price float64) bool {
	return price >= z.Lower && price <= z.Upper
}

// PullbackZone returns the 38.2%–61.8% retracement band of the move
// from low to high, the classic entry area for a pullback in an
// established trend.
func PullbackZone(high, low float64) Zone {
	span := high - low
	upper := high - span*0.382
	lower := high - span*0.618
	return Zone{Lower: lower, Upper: upper}
}
