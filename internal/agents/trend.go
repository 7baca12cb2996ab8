package agents

import (
	"context"

	"tradedesk/internal/analysis"
	"tradedesk/internal/core"
)

// TrendDefinition classifies the market direction from the swing
// sequence built by the market-structure step. It owns the Trend
// field.
type TrendDefinition struct {
	deps Deps
}

// NewTrendDefinition creates the trend-definition step.
func NewTrendDefinition(deps Deps) *TrendDefinition {
	return &TrendDefinition{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *TrendDefinition) ID() core.StepID { return core.StepTrendDefinition }

// Execute implements core.Step.
func (a *TrendDefinition) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	swings := analysis.DetectSwings(a.deps.Prices.Prices(), swingLookback)
	res := analysis.ClassifyTrend(swings)

	state.Trend = map[string]any{
		"direction":   string(res.Direction),
		"strength":    res.Strength,
		"swing_count": len(swings),
	}

	return core.StepResult{Payload: map[string]any{
		"direction": string(res.Direction),
		"strength":  res.Strength,
	}}, nil
}
