package agents

import (
	"context"

	"tradedesk/internal/core"
)

// TradeManagement maintains open positions: tracks unrealized P&L and
// trails the stop to breakeven once a trade has moved one full risk
// unit in favor.
type TradeManagement struct {
	deps Deps
}

// NewTradeManagement creates the trade-management step.
func NewTradeManagement(deps Deps) *TradeManagement {
	return &TradeManagement{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *TradeManagement) ID() core.StepID { return core.StepTradeManagement }

// Execute implements core.Step.
func (a *TradeManagement) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	price := a.deps.Prices.Last()
	if price <= 0 || len(state.Positions) == 0 {
		return core.StepResult{Payload: map[string]any{"positions": len(state.Positions)}}, nil
	}

	unrealized := 0.0
	stopsMoved := 0
	updated := make([]core.Position, len(state.Positions))
	copy(updated, state.Positions)

	for i, p := range updated {
		pnl := positionPnL(p, price)
		unrealized += pnl

		risk := riskPerUnit(p)
		if risk > 0 && pnl >= risk*p.Amount && p.StopPrice != p.EntryPrice {
			updated[i].StopPrice = p.EntryPrice
			stopsMoved++
		}
	}
	state.SetPositions(updated)

	return core.StepResult{Payload: map[string]any{
		"positions":      len(updated),
		"unrealized_pnl": unrealized,
		"stops_moved":    stopsMoved,
		"last_price":     price,
	}}, nil
}

func positionPnL(p core.Position, price float64) float64 {
	if p.Side == "sell" {
		return (p.EntryPrice - price) * p.Amount
	}
	return (price - p.EntryPrice) * p.Amount
}

func riskPerUnit(p core.Position) float64 {
	if p.StopPrice <= 0 {
		return 0
	}
	if p.Side == "sell" {
		return p.StopPrice - p.EntryPrice
	}
	return p.EntryPrice - p.StopPrice
}
