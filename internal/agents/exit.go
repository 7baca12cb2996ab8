package agents

import (
	"context"
	"fmt"

	"tradedesk/internal/core"
)

// ExitExecution closes positions whose stop or target has been hit and
// books the resulting trades. It is the only step that removes from
// Positions and appends to TradesToday.
type ExitExecution struct {
	deps Deps
}

// NewExitExecution creates the exit-execution step.
func NewExitExecution(deps Deps) *ExitExecution {
	return &ExitExecution{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *ExitExecution) ID() core.StepID { return core.StepExitExecution }

// Execute implements core.Step.
func (a *ExitExecution) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	price := a.deps.Prices.Last()
	payload := map[string]any{"closed": 0}
	if price <= 0 || len(state.Positions) == 0 {
		return core.StepResult{Payload: payload}, nil
	}

	closed := 0
	failures := 0

	// Walk backwards so RemovePosition never shifts an index still to
	// be visited.
	for i := len(state.Positions) - 1; i >= 0; i-- {
		p := state.Positions[i]
		reason, hit := exitReason(p, price)
		if !hit {
			continue
		}

		cctx, cancel := a.deps.callCtx(ctx)
		res, err := a.deps.Gateway.ClosePosition(cctx, a.deps.Connector, p.Pair, p.Amount)
		cancel()
		if err != nil || !res.Success {
			// Keep the position; a later cycle retries the close.
			failures++
			state.AddAlert(core.SeverityWarning,
				fmt.Sprintf("Failed to close %s position on %s", p.Side, p.Pair),
				a.ID(), a.deps.Clock.Now())
			continue
		}

		pnl := positionPnL(p, price)
		state.TradesToday = append(state.TradesToday, core.Trade{
			Pair:       p.Pair,
			Side:       p.Side,
			Amount:     p.Amount,
			EntryPrice: p.EntryPrice,
			ExitPrice:  price,
			PnL:        pnl,
			ClosedAt:   a.deps.Clock.Now(),
		})
		state.UpdateBalance(state.AccountBalance + pnl)
		state.RemovePosition(i)
		closed++
		payload["last_exit_reason"] = reason
	}

	payload["closed"] = closed

	if failures > 0 {
		payload["close_failures"] = failures
		return degraded(payload, "one or more position closes failed"), nil
	}
	return core.StepResult{Payload: payload}, nil
}

// exitReason decides whether a position should be closed at the given
// price, and why.
func exitReason(p core.Position, price float64) (string, bool) {
	if p.Side == "sell" {
		if p.StopPrice > 0 && price >= p.StopPrice {
			return "stop", true
		}
		if p.TargetPrice > 0 && price <= p.TargetPrice {
			return "target", true
		}
		return "", false
	}
	if p.StopPrice > 0 && price <= p.StopPrice {
		return "stop", true
	}
	if p.TargetPrice > 0 && price >= p.TargetPrice {
		return "target", true
	}
	return "", false
}
