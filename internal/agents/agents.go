// Package agents implements the workflow steps of a trading session.
// Each agent owns a small slice of the session state and records its
// contribution through the engine's agent-output channel; collaborator
// failures degrade to tagged fallback values instead of aborting the
// chain.
package agents

import (
	"context"
	"time"

	"tradedesk/internal/analysis"
	"tradedesk/internal/core"
	"tradedesk/internal/logging"
)

// DefaultCallTimeout bounds a single collaborator call.
const DefaultCallTimeout = 30 * time.Second

// Deps carries the collaborators shared by the step implementations.
// Construct once in the orchestrator and hand to the agents that need
// them; no agent reaches for a global.
type Deps struct {
	Gateway   core.Gateway
	Store     core.AuditStore
	Clock     core.Clock
	Logger    *logging.Logger
	Prices    *analysis.Series
	Connector string
	Timeout   time.Duration
}

func (d Deps) normalized() Deps {
	if d.Clock == nil {
		d.Clock = core.RealClock{}
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultCallTimeout
	}
	if d.Prices == nil {
		d.Prices = analysis.NewSeries(0)
	}
	return d
}

// callCtx derives a bounded context for one collaborator call.
func (d Deps) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.Timeout)
}

// degraded tags a payload as fallback data so downstream steps and
// audits can tell it apart from real collaborator output.
func degraded(payload map[string]any, reason string) core.StepResult {
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["mode"] = "degraded"
	payload["degraded_reason"] = reason
	return core.StepResult{Status: core.StatusDegraded, Payload: payload}
}
