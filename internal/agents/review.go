package agents

import (
	"context"

	"tradedesk/internal/core"
)

// SessionReview closes out the post-market phase with a human-readable
// session digest. Its output is the signal the phase-transition step
// waits for before moving to shutdown.
type SessionReview struct {
	deps Deps
}

// NewSessionReview creates the session-review step.
func NewSessionReview(deps Deps) *SessionReview {
	return &SessionReview{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *SessionReview) ID() core.StepID { return core.StepSessionReview }

// Execute implements core.Step.
func (a *SessionReview) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	critical := 0
	warnings := 0
	for _, alert := range state.Alerts {
		switch alert.Severity {
		case core.SeverityCritical:
			critical++
		case core.SeverityWarning:
			warnings++
		}
	}

	payload := map[string]any{
		"review_complete": true,
		"duration":        state.Elapsed().String(),
		"trades":          len(state.TradesToday),
		"session_pnl":     state.SessionPnL,
		"session_pnl_pct": state.SessionPnLPct,
		"alerts_critical": critical,
		"alerts_warning":  warnings,
	}

	if analytics, ok := state.Output(core.StepPerformanceAnalytics); ok && analytics.Status != core.StatusError {
		payload["win_rate"] = analytics.Result["win_rate"]
		payload["expectancy"] = analytics.Result["expectancy"]
	}

	a.deps.Logger.WithSession(state.SessionID).Info("session review",
		"trades", len(state.TradesToday),
		"pnl", state.SessionPnL,
		"critical_alerts", critical)

	return core.StepResult{Payload: payload}, nil
}
