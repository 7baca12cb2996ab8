package agents

import (
	"context"

	"tradedesk/internal/analysis"
	"tradedesk/internal/core"
)

// SetupScanner looks for pullback entries in the direction of the
// established trend: price retracing into the 38.2–61.8% band of the
// latest swing leg. Its output feeds the entry-execution step.
type SetupScanner struct {
	deps Deps
}

// NewSetupScanner creates the setup-scanner step.
func NewSetupScanner(deps Deps) *SetupScanner {
	return &SetupScanner{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *SetupScanner) ID() core.StepID { return core.StepSetupScanner }

// Execute implements core.Step.
func (a *SetupScanner) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	payload := map[string]any{"setups": []map[string]any{}}

	if restricted, reason := newsRestricted(state, a.deps.Clock.Now()); restricted {
		payload["reason"] = "news restriction window"
		payload["restriction_reason"] = reason
		return core.StepResult{Payload: payload}, nil
	}

	direction, _ := state.Trend["direction"].(string)
	if direction != string(analysis.TrendUp) && direction != string(analysis.TrendDown) {
		payload["reason"] = "no established trend"
		return core.StepResult{Payload: payload}, nil
	}

	swings := analysis.DetectSwings(a.deps.Prices.Prices(), swingLookback)
	high, low, ok := analysis.LastSwingPair(swings)
	if !ok {
		payload["reason"] = "insufficient swing structure"
		return core.StepResult{Payload: payload}, nil
	}

	price := a.deps.Prices.Last()
	zone := analysis.PullbackZone(high.Price, low.Price)
	if !zone.Contains(price) {
		payload["reason"] = "price outside pullback zone"
		payload["zone"] = map[string]any{"lower": zone.Lower, "upper": zone.Upper}
		return core.StepResult{Payload: payload}, nil
	}

	var setup map[string]any
	if direction == string(analysis.TrendUp) {
		target := analysis.Extensions(high.Price, low.Price)[2] // 161.8%
		setup = map[string]any{
			"type":   "pullback_long",
			"side":   "buy",
			"entry":  price,
			"stop":   low.Price,
			"target": target.Price,
		}
	} else {
		// Mirror of the long case: stop above the swing high,
		// target extended below the low.
		span := high.Price - low.Price
		setup = map[string]any{
			"type":   "pullback_short",
			"side":   "sell",
			"entry":  price,
			"stop":   high.Price,
			"target": low.Price - span*0.618,
		}
	}

	payload["setups"] = []map[string]any{setup}
	return core.StepResult{Payload: payload}, nil
}
