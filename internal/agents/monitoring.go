package agents

import (
	"context"

	"tradedesk/internal/core"
)

// Monitoring refreshes the account balance and gateway health each
// cycle. It owns SystemHealth during the trading phases.
type Monitoring struct {
	deps Deps
	// misses counts consecutive failed gateway health checks, so a
	// degraded mark left by another step never escalates straight to
	// critical on monitoring's first own miss.
	misses int
}

// NewMonitoring creates the monitoring step.
func NewMonitoring(deps Deps) *Monitoring {
	return &Monitoring{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *Monitoring) ID() core.StepID { return core.StepMonitoring }

// Execute implements core.Step.
func (a *Monitoring) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	cctx, cancel := a.deps.callCtx(ctx)
	defer cancel()

	payload := map[string]any{}

	gw, gwErr := a.deps.Gateway.CheckGatewayStatus(cctx)
	switch {
	case gwErr != nil, !gw.Healthy:
		// Repeated failures escalate: degraded on the first miss,
		// critical on the second consecutive one.
		a.misses++
		if a.misses >= 2 {
			state.SystemHealth = core.HealthCritical
		} else {
			state.SystemHealth = core.HealthDegraded
		}
		payload["gateway_healthy"] = false
	default:
		a.misses = 0
		state.SystemHealth = core.HealthHealthy
		payload["gateway_healthy"] = true
	}
	payload["system_health"] = state.SystemHealth

	bal, balErr := a.deps.Gateway.GetBalance(cctx, a.deps.Connector)
	if balErr != nil {
		payload["balance"] = state.AccountBalance
		return degraded(payload, "balance refresh failed"), nil
	}
	state.UpdateBalance(bal.Balance)
	payload["balance"] = bal.Balance
	payload["session_pnl_pct"] = state.SessionPnLPct

	if gwErr != nil {
		return degraded(payload, "gateway status check failed"), nil
	}
	return core.StepResult{Payload: payload}, nil
}
