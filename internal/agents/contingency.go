package agents

import (
	"context"
	"fmt"

	"tradedesk/internal/core"
)

// StopRequested reports an external stop demand (operator signal,
// supervisor kill switch). Checked once per cycle by the contingency
// step.
type StopRequested func() bool

// Contingency is the emergency-detection step. It is the only step
// that trips the latch from inside the graph; the emergency router
// afterwards only reads it.
type Contingency struct {
	deps          Deps
	stopRequested StopRequested
}

// NewContingency creates the contingency step.
func NewContingency(deps Deps, stopRequested StopRequested) *Contingency {
	if stopRequested == nil {
		stopRequested = func() bool { return false }
	}
	return &Contingency{deps: deps.normalized(), stopRequested: stopRequested}
}

// ID implements core.Step.
func (a *Contingency) ID() core.StepID { return core.StepContingency }

// Execute implements core.Step.
func (a *Contingency) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	switch {
	case state.MaxSessionRiskPct > 0 && state.SessionPnLPct <= -state.MaxSessionRiskPct:
		state.TriggerEmergencyStop(fmt.Sprintf("Session loss limit reached: %.2f%%", state.SessionPnLPct))
	case a.stopRequested():
		state.TriggerEmergencyStop("External stop requested")
	case state.SystemHealth == core.HealthCritical:
		state.TriggerEmergencyStop("System health critical")
	}

	return core.StepResult{Payload: map[string]any{
		"emergency_stop": state.EmergencyStop,
		"stop_reason":    state.StopReason,
	}}, nil
}
