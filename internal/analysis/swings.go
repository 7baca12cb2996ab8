// Package analysis contains the pure price-action functions consumed
// by the workflow steps: swing-point detection, trend classification
// and Fibonacci level calculation.
package analysis

// SwingKind marks a swing point as a high or a low.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// Swing is a confirmed swing point in a price series.
type Swing struct {
	Index int
	Price float64
	Kind  SwingKind
}

// Series is a bounded rolling price series. Steps sample the gateway
// price once per cycle and append it here; older samples fall off the
// front once capacity is reached.
type Series struct {
	prices []float64
	cap    int
}

// NewSeries creates a series holding at most capacity samples.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 200
	}
	return &Series{prices: make([]float64, 0, capacity), cap: capacity}
}

// Append adds a sample, evicting the oldest when full.
func (s *Series) Append(price float64) {
	if len(s.prices) == s.cap {
		copy(s.prices, s.prices[1:])
		s.prices = s.prices[:len(s.prices)-1]
	}
	s.prices = append(s.prices, price)
}

// Len returns the number of samples held.
func (s *Series) Len() int { return len(s.prices) }

// Last returns the most recent sample, or zero if empty.
func (s *Series) Last() float64 {
	if len(s.prices) == 0 {
		return 0
	}
	return s.prices[len(s.prices)-1]
}

// Prices returns a copy of the held samples, oldest first.
func (s *Series) Prices() []float64 {
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}

// DetectSwings finds swing highs and lows in a price series. A point
// is a swing high when it strictly exceeds every price within lookback
// samples on both sides; swing lows are symmetric. Points closer than
// lookback to either edge are unconfirmed and never reported.
func DetectSwings(prices []float64, lookback int) []Swing {
	if lookback <= 0 {
		lookback = 2
	}
	var swings []Swing
	for i := lookback; i < len(prices)-lookback; i++ {
		if isSwingHigh(prices, i, lookback) {
			swings = append(swings, Swing{Index: i, Price: prices[i], Kind: SwingHigh})
		} else if isSwingLow(prices, i, lookback) {
			swings = append(swings, Swing{Index: i, Price: prices[i], Kind: SwingLow})
		}
	}
	return swings
}

func isSwingHigh(prices []float64, i, lookback int) bool {
	for j := i - lookback; j <= i+lookback; j++ {
		if j == i {
			continue
		}
		if prices[j] >= prices[i] {
			return false
		}
	}
	return true
}

func isSwingLow(prices []float64, i, lookback int) bool {
	for j := i - lookback; j <= i+lookback; j++ {
		if j == i {
			continue
		}
		if prices[j] <= prices[i] {
			return false
		}
	}
	return true
}

// LastSwingPair returns the most recent swing high and low, in either
// order of occurrence. ok is false until one of each exists.
func LastSwingPair(swings []Swing) (high, low Swing, ok bool) {
	var haveHigh, haveLow bool
	for _, sw := range swings {
		switch sw.Kind {
		case SwingHigh:
			high = sw
			haveHigh = true
		case SwingLow:
			low = sw
			haveLow = true
		}
	}
	return high, low, haveHigh && haveLow
}
