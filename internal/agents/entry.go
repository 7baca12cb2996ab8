package agents

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"tradedesk/internal/core"
)

// amountPrecision is the decimal precision orders are quantized to
// before hitting the gateway.
const amountPrecision = 6

// EntryExecution turns scanner setups into gateway orders, sized from
// the per-trade risk budget. It appends to Positions on fill.
type EntryExecution struct {
	deps             Deps
	maxOpenPositions int
}

// NewEntryExecution creates the entry-execution step.
func NewEntryExecution(deps Deps, maxOpenPositions int) *EntryExecution {
	if maxOpenPositions <= 0 {
		maxOpenPositions = 3
	}
	return &EntryExecution{deps: deps.normalized(), maxOpenPositions: maxOpenPositions}
}

// ID implements core.Step.
func (a *EntryExecution) ID() core.StepID { return core.StepEntryExecution }

// Execute implements core.Step.
func (a *EntryExecution) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	payload := map[string]any{"orders_placed": 0}

	setup, ok := pendingSetup(state)
	if !ok {
		payload["reason"] = "no setup"
		return core.StepResult{Payload: payload}, nil
	}
	if state.OpenPositionsCount >= a.maxOpenPositions {
		payload["reason"] = "max open positions reached"
		return core.StepResult{Payload: payload}, nil
	}

	entry, _ := setup["entry"].(float64)
	stop, _ := setup["stop"].(float64)
	target, _ := setup["target"].(float64)
	side, _ := setup["side"].(string)
	if entry <= 0 || stop <= 0 || entry == stop {
		payload["reason"] = "setup prices invalid"
		return core.StepResult{Payload: payload}, nil
	}

	riskAmount := state.AccountBalance * state.RiskPerTradePct / 100
	size := quantize(riskAmount / math.Abs(entry-stop))
	if size <= 0 {
		payload["reason"] = "position size rounds to zero"
		return core.StepResult{Payload: payload}, nil
	}

	cctx, cancel := a.deps.callCtx(ctx)
	defer cancel()

	res, err := a.deps.Gateway.PlaceOrder(cctx, core.OrderRequest{
		Connector: a.deps.Connector,
		Pair:      state.Instrument,
		Side:      side,
		Amount:    size,
		OrderType: "market",
	})
	if err != nil {
		payload["setup"] = setup
		return degraded(payload, fmt.Sprintf("order placement failed: %v", err)), nil
	}
	if !res.Success {
		payload["setup"] = setup
		return degraded(payload, "order rejected by gateway"), nil
	}

	state.AddPosition(core.Position{
		Pair:        state.Instrument,
		Side:        side,
		Amount:      size,
		EntryPrice:  entry,
		StopPrice:   stop,
		TargetPrice: target,
		OpenedAt:    a.deps.Clock.Now(),
	})

	payload["orders_placed"] = 1
	payload["order_id"] = res.OrderID
	payload["size"] = size
	payload["side"] = side
	return core.StepResult{Payload: payload}, nil
}

// pendingSetup pulls the first setup from the scanner's latest output.
func pendingSetup(state *core.SessionState) (map[string]any, bool) {
	out, ok := state.Output(core.StepSetupScanner)
	if !ok || out.Status == core.StatusError {
		return nil, false
	}
	setups, ok := out.Result["setups"].([]map[string]any)
	if !ok || len(setups) == 0 {
		return nil, false
	}
	return setups[0], true
}

// quantize rounds an order amount down to the gateway precision. Never
// rounds up: an oversized order could exceed the risk budget.
func quantize(amount float64) float64 {
	d := decimal.NewFromFloat(amount).RoundDown(amountPrecision)
	f, _ := d.Float64()
	return f
}
