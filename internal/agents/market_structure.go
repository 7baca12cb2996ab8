package agents

import (
	"context"

	"tradedesk/internal/analysis"
	"tradedesk/internal/core"
)

// swingLookback is the confirmation window for swing detection: a
// point needs this many lower/higher samples on each side.
const swingLookback = 2

// MarketStructure samples the gateway price and maintains the swing
// map of the session. It owns the MarketStructure field.
type MarketStructure struct {
	deps Deps
}

// NewMarketStructure creates the market-structure step.
func NewMarketStructure(deps Deps) *MarketStructure {
	return &MarketStructure{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *MarketStructure) ID() core.StepID { return core.StepMarketStructure }

// Execute implements core.Step.
func (a *MarketStructure) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	cctx, cancel := a.deps.callCtx(ctx)
	defer cancel()

	md, err := a.deps.Gateway.GetMarketData(cctx, a.deps.Connector, state.Instrument)
	if err != nil {
		// Price feed unavailable: analyze the last-known series.
		last := a.deps.Prices.Last()
		swings := analysis.DetectSwings(a.deps.Prices.Prices(), swingLookback)
		a.writeStructure(state, last, swings, true)
		return degraded(map[string]any{
			"last_price": last,
			"samples":    a.deps.Prices.Len(),
		}, "price feed unavailable"), nil
	}

	a.deps.Prices.Append(md.Price)
	swings := analysis.DetectSwings(a.deps.Prices.Prices(), swingLookback)
	a.writeStructure(state, md.Price, swings, false)

	return core.StepResult{Payload: map[string]any{
		"last_price":  md.Price,
		"samples":     a.deps.Prices.Len(),
		"swing_count": len(swings),
	}}, nil
}

func (a *MarketStructure) writeStructure(state *core.SessionState, lastPrice float64, swings []analysis.Swing, degradedData bool) {
	highs := make([]float64, 0)
	lows := make([]float64, 0)
	for _, sw := range swings {
		switch sw.Kind {
		case analysis.SwingHigh:
			highs = append(highs, sw.Price)
		case analysis.SwingLow:
			lows = append(lows, sw.Price)
		}
	}
	structure := map[string]any{
		"last_price":  lastPrice,
		"swing_highs": highs,
		"swing_lows":  lows,
	}
	if degradedData {
		structure["mode"] = "degraded"
	}
	state.MarketStructure = structure
}
