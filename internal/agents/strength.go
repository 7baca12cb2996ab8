package agents

import (
	"context"

	"tradedesk/internal/analysis"
	"tradedesk/internal/core"
)

// momentumWindow is the sample distance for the rate-of-change read.
const momentumWindow = 10

// StrengthWeakness measures momentum over the price series and labels
// the bias. It owns the StrengthWeakness field.
type StrengthWeakness struct {
	deps Deps
}

// NewStrengthWeakness creates the strength/weakness step.
func NewStrengthWeakness(deps Deps) *StrengthWeakness {
	return &StrengthWeakness{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *StrengthWeakness) ID() core.StepID { return core.StepStrengthWeakness }

// Execute implements core.Step.
func (a *StrengthWeakness) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	momentum := analysis.Momentum(a.deps.Prices.Prices(), momentumWindow)

	bias := "neutral"
	switch {
	case momentum > 0.1:
		bias = "strength"
	case momentum < -0.1:
		bias = "weakness"
	}

	state.StrengthWeakness = map[string]any{
		"momentum_pct": momentum,
		"bias":         bias,
	}

	return core.StepResult{Payload: map[string]any{
		"momentum_pct": momentum,
		"bias":         bias,
	}}, nil
}
