package agents

import (
	"context"
	"time"

	"tradedesk/internal/core"
)

// MarketOpenFunc reports whether the market-open predicate holds. The
// pre-market phase self-loops until it does.
type MarketOpenFunc func(now time.Time) bool

// PhaseTransition advances the session phase per the fixed rules:
//
//	pre_market     -> session_open    when the market-open check passes
//	session_open   -> active_trading  when trend analysis has produced output
//	active_trading -> post_market     when the trading window has elapsed
//	post_market    -> shutdown        when the session review is complete
//
// It is the only step that writes state.Phase.
type PhaseTransition struct {
	deps          Deps
	marketOpen    MarketOpenFunc
	tradingWindow time.Duration
}

// NewPhaseTransition creates the phase-transition step.
func NewPhaseTransition(deps Deps, marketOpen MarketOpenFunc, tradingWindow time.Duration) *PhaseTransition {
	if marketOpen == nil {
		marketOpen = func(time.Time) bool { return true }
	}
	if tradingWindow <= 0 {
		tradingWindow = 6 * time.Hour
	}
	return &PhaseTransition{
		deps:          deps.normalized(),
		marketOpen:    marketOpen,
		tradingWindow: tradingWindow,
	}
}

// ID implements core.Step.
func (a *PhaseTransition) ID() core.StepID { return core.StepPhaseTransition }

// Execute implements core.Step.
func (a *PhaseTransition) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	from := state.Phase

	switch state.Phase {
	case core.PhasePreMarket:
		if a.marketOpen(a.deps.Clock.Now()) {
			state.Phase = core.PhaseSessionOpen
		}
	case core.PhaseSessionOpen:
		if out, ok := state.Output(core.StepTrendDefinition); ok && out.Status != core.StatusError {
			state.Phase = core.PhaseActiveTrading
		}
	case core.PhaseActiveTrading:
		if state.Elapsed() >= a.tradingWindow {
			state.Phase = core.PhasePostMarket
		}
	case core.PhasePostMarket:
		if out, ok := state.Output(core.StepSessionReview); ok && out.Status != core.StatusError {
			state.Phase = core.PhaseShutdown
		}
	case core.PhaseShutdown:
		// Terminal; nothing to decide.
	}

	return core.StepResult{Payload: map[string]any{
		"from": from.String(),
		"to":   state.Phase.String(),
	}}, nil
}
