package agents

import (
	"context"
	"time"

	"tradedesk/internal/core"
)

// NextSessionPrep assembles the plan for the following session: date,
// goals, focus areas carried over from the learning pass, and a
// readiness checklist. Last operative step of the post-market chain.
type NextSessionPrep struct {
	deps Deps
}

// NewNextSessionPrep creates the next-session-prep step.
func NewNextSessionPrep(deps Deps) *NextSessionPrep {
	return &NextSessionPrep{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *NextSessionPrep) ID() core.StepID { return core.StepNextSessionPrep }

// Execute implements core.Step.
func (a *NextSessionPrep) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	now := a.deps.Clock.Now()

	goals := []string{
		"Execute only setups that pass the full scanner criteria",
		"Respect the per-trade risk limit on every entry",
		"Close all positions before session end",
	}

	focus := focusAreas(state)

	cctx, cancel := a.deps.callCtx(ctx)
	gw, gwErr := a.deps.Gateway.CheckGatewayStatus(cctx)
	cancel()
	connectivity := gwErr == nil && gw.Healthy

	reviewed := false
	if out, ok := state.Output(core.StepSessionReview); ok && out.Status != core.StatusError {
		reviewed = true
	}

	checklist := []map[string]any{
		{"item": "Review session performance", "completed": reviewed},
		{"item": "Verify platform connectivity", "completed": connectivity},
		{"item": "Confirm no positions left open", "completed": state.OpenPositionsCount == 0},
		{"item": "Update risk parameters", "completed": len(state.RiskParams) > 0},
	}

	payload := map[string]any{
		"next_session_date": now.Add(24 * time.Hour).UTC().Format(time.RFC3339),
		"goals":             goals,
		"focus_areas":       focus,
		"checklist":         checklist,
		"prep_complete":     allCompleted(checklist),
	}

	if !connectivity {
		return degraded(payload, "gateway unreachable during session prep"), nil
	}
	return core.StepResult{Payload: payload}, nil
}

// focusAreas carries the learning pass's recommendations forward as
// the next session's focus. Falls back to a review reminder when the
// learning output is missing or errored.
func focusAreas(state *core.SessionState) []string {
	if out, ok := state.Output(core.StepLearningOptimization); ok && out.Status != core.StatusError {
		if recs, ok := out.Result["recommendations"].([]string); ok && len(recs) > 0 {
			focus := make([]string, len(recs))
			copy(focus, recs)
			return focus
		}
	}
	return []string{"review previous session notes before trading"}
}

func allCompleted(checklist []map[string]any) bool {
	for _, item := range checklist {
		if done, _ := item["completed"].(bool); !done {
			return false
		}
	}
	return true
}
