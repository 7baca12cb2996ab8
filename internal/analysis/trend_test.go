package analysis

import "testing"

func TestClassifyTrend_Uptrend(t *testing.T) {
	swings := []Swing{
		{Price: 10, Kind: SwingLow},
		{Price: 14, Kind: SwingHigh},
		{Price: 12, Kind: SwingLow},
		{Price: 16, Kind: SwingHigh},
	}
	res := ClassifyTrend(swings)
	if res.Direction != TrendUp {
		t.Fatalf("expected uptrend, got %s", res.Direction)
	}
	if res.Strength != 1 {
		t.Fatalf("expected full strength, got %f", res.Strength)
	}
}

func TestClassifyTrend_Downtrend(t *testing.T) {
	swings := []Swing{
		{Price: 16, Kind: SwingHigh},
		{Price: 12, Kind: SwingLow},
		{Price: 14, Kind: SwingHigh},
		{Price: 10, Kind: SwingLow},
	}
	res := ClassifyTrend(swings)
	if res.Direction != TrendDown {
		t.Fatalf("expected downtrend, got %s", res.Direction)
	}
}

func TestClassifyTrend_Mixed(t *testing.T) {
	swings := []Swing{
		{Price: 14, Kind: SwingHigh},
		{Price: 10, Kind: SwingLow},
		{Price: 16, Kind: SwingHigh},
		{Price: 9, Kind: SwingLow},
	}
	res := ClassifyTrend(swings)
	if res.Direction != TrendRanging {
		t.Fatalf("expected ranging for mixed swings, got %s", res.Direction)
	}
}

func TestClassifyTrend_InsufficientSwings(t *testing.T) {
	res := ClassifyTrend([]Swing{{Price: 10, Kind: SwingLow}, {Price: 14, Kind: SwingHigh}})
	if res.Direction != TrendUnknown {
		t.Fatalf("expected unknown with single high/low, got %s", res.Direction)
	}
}

func TestMomentum(t *testing.T) {
	prices := []float64{100, 101, 102, 110}
	if got := Momentum(prices, 3); got != 10 {
		t.Fatalf("expected momentum 10%%, got %f", got)
	}
	if got := Momentum(prices, 10); got != 0 {
		t.Fatalf("expected 0 for short series, got %f", got)
	}
	if got := Momentum([]float64{0, 5}, 1); got != 0 {
		t.Fatalf("expected 0 for zero base price, got %f", got)
	}
}
