package agents

import (
	"context"

	"tradedesk/internal/core"
)

// SystemInit verifies gateway and connector health before the session
// opens and syncs the account balance. It owns the SystemHealth field
// during pre-market.
type SystemInit struct {
	deps Deps
}

// NewSystemInit creates the system-init step.
func NewSystemInit(deps Deps) *SystemInit {
	return &SystemInit{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *SystemInit) ID() core.StepID { return core.StepSystemInit }

// Execute implements core.Step.
func (a *SystemInit) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	cctx, cancel := a.deps.callCtx(ctx)
	defer cancel()

	payload := map[string]any{
		"connector": a.deps.Connector,
	}

	gw, gwErr := a.deps.Gateway.CheckGatewayStatus(cctx)
	if gwErr != nil {
		state.SystemHealth = core.HealthDegraded
		a.deps.Logger.WithStep(a.ID().String()).Warn("gateway status check failed", "error", gwErr)
		payload["gateway_healthy"] = false
		return degraded(payload, "gateway status check failed"), nil
	}
	payload["gateway_healthy"] = gw.Healthy

	conn, connErr := a.deps.Gateway.CheckConnectorStatus(cctx, a.deps.Connector)
	if connErr != nil {
		state.SystemHealth = core.HealthDegraded
		payload["connector_available"] = false
		return degraded(payload, "connector status check failed"), nil
	}
	payload["connector_available"] = conn.Available

	if !gw.Healthy || !conn.Available {
		state.SystemHealth = core.HealthDegraded
	} else {
		state.SystemHealth = core.HealthHealthy
	}

	bal, balErr := a.deps.Gateway.GetBalance(cctx, a.deps.Connector)
	if balErr != nil {
		// Keep the configured balance as last-known.
		payload["balance"] = state.AccountBalance
		return degraded(payload, "balance fetch failed"), nil
	}

	// The gateway balance is authoritative; the first successful sync
	// also pins the session's initial balance for P&L math.
	if _, ran := state.Output(a.ID()); !ran {
		state.InitialBalance = bal.Balance
	}
	state.UpdateBalance(bal.Balance)
	payload["balance"] = bal.Balance
	payload["currency"] = bal.Currency

	return core.StepResult{Payload: payload}, nil
}
