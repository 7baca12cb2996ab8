package agents

import (
	"context"
	"fmt"
	"math"

	"tradedesk/internal/core"
)

// RiskManagement computes the session's position-sizing parameters and
// tracks risk utilization. It owns RiskParams and RiskUtilization.
type RiskManagement struct {
	deps               Deps
	maxOpenPositions   int
	utilizationWarnPct float64
}

// NewRiskManagement creates the risk-management step.
func NewRiskManagement(deps Deps, maxOpenPositions int, utilizationWarnPct float64) *RiskManagement {
	if maxOpenPositions <= 0 {
		maxOpenPositions = 3
	}
	if utilizationWarnPct <= 0 {
		utilizationWarnPct = 70
	}
	return &RiskManagement{
		deps:               deps.normalized(),
		maxOpenPositions:   maxOpenPositions,
		utilizationWarnPct: utilizationWarnPct,
	}
}

// ID implements core.Step.
func (a *RiskManagement) ID() core.StepID { return core.StepRiskMgmt }

// Execute implements core.Step.
func (a *RiskManagement) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	riskPerTrade := state.AccountBalance * state.RiskPerTradePct / 100
	sessionRiskBudget := state.AccountBalance * state.MaxSessionRiskPct / 100

	openRisk := 0.0
	for _, p := range state.Positions {
		if p.StopPrice > 0 {
			openRisk += math.Abs(p.EntryPrice-p.StopPrice) * p.Amount
		} else {
			// No stop recorded: assume a full unit of per-trade risk.
			openRisk += riskPerTrade
		}
	}

	utilization := 0.0
	if sessionRiskBudget > 0 {
		utilization = math.Min(openRisk/sessionRiskBudget*100, 100)
	}
	state.RiskUtilization = utilization

	state.RiskParams = map[string]any{
		"risk_per_trade":      riskPerTrade,
		"session_risk_budget": sessionRiskBudget,
		"open_risk":           openRisk,
		"max_open_positions":  a.maxOpenPositions,
	}

	if utilization > a.utilizationWarnPct {
		state.AddAlert(core.SeverityWarning,
			fmt.Sprintf("Risk utilization high: %.1f%%", utilization),
			a.ID(), a.deps.Clock.Now())
	}

	return core.StepResult{Payload: map[string]any{
		"risk_per_trade":     riskPerTrade,
		"risk_utilization":   utilization,
		"open_risk":          openRisk,
		"max_open_positions": a.maxOpenPositions,
	}}, nil
}

// MaxOpenPositions exposes the limit for the entry step.
func (a *RiskManagement) MaxOpenPositions() int { return a.maxOpenPositions }
