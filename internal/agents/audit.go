package agents

import (
	"context"
	"fmt"
	"time"

	"tradedesk/internal/core"
)

// Audit persists the cycle's agent outputs to the decision log. It is
// fire-and-forget: a store failure raises a warning alert and the
// workflow moves on with nothing reversed.
type Audit struct {
	deps    Deps
	ensured bool
	// lastSeen tracks the newest output timestamp persisted per step,
	// so re-runs in later cycles append fresh records only.
	lastSeen map[core.StepID]time.Time
}

// NewAudit creates the audit step.
func NewAudit(deps Deps) *Audit {
	return &Audit{
		deps:     deps.normalized(),
		lastSeen: make(map[core.StepID]time.Time),
	}
}

// ID implements core.Step.
func (a *Audit) ID() core.StepID { return core.StepAudit }

// Execute implements core.Step.
func (a *Audit) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	if a.deps.Store == nil {
		return degraded(map[string]any{"persisted": 0}, "no audit store configured"), nil
	}

	cctx, cancel := a.deps.callCtx(ctx)
	defer cancel()

	if !a.ensured {
		err := a.deps.Store.EnsureSession(cctx, state.SessionID, core.SessionMeta{
			Market:         state.Market,
			Instrument:     state.Instrument,
			InitialBalance: state.InitialBalance,
			StartTime:      state.StartTime,
		})
		if err != nil {
			state.AddAlert(core.SeverityWarning,
				fmt.Sprintf("Audit session record failed: %v", err),
				a.ID(), a.deps.Clock.Now())
			return degraded(map[string]any{"persisted": 0}, "session record failed"), nil
		}
		a.ensured = true
	}

	persisted := 0
	failed := 0
	for _, id := range core.AllSteps() {
		if id == a.ID() {
			continue
		}
		out, ok := state.Output(id)
		if !ok || !out.Timestamp.After(a.lastSeen[id]) {
			continue
		}

		rec := core.DecisionRecord{
			SessionID:    state.SessionID,
			StepID:       id,
			Phase:        state.Phase,
			InputSummary: fmt.Sprintf("phase=%s balance=%.2f positions=%d", state.Phase, state.AccountBalance, state.OpenPositionsCount),
			Output:       out.Result,
			Status:       out.Status,
			Timestamp:    out.Timestamp,
		}
		if out.Error != nil {
			rec.Output = map[string]any{"error": out.Error.Message, "kind": out.Error.Kind}
		}

		if err := a.deps.Store.AppendDecision(cctx, rec); err != nil {
			failed++
			continue
		}
		a.lastSeen[id] = out.Timestamp
		persisted++
	}

	payload := map[string]any{"persisted": persisted}
	if failed > 0 {
		state.AddAlert(core.SeverityWarning,
			fmt.Sprintf("Audit write failed for %d decision(s)", failed),
			a.ID(), a.deps.Clock.Now())
		payload["failed"] = failed
		return degraded(payload, "decision writes failed"), nil
	}
	return core.StepResult{Payload: payload}, nil
}
