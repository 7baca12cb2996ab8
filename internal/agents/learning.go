package agents

import (
	"context"
	"fmt"

	"tradedesk/internal/core"
)

// LearningOptimization mines the finished session for recurring
// patterns and edge cases and turns them into recommendations for the
// next session. Runs in post-market after the analytics step.
type LearningOptimization struct {
	deps Deps
}

// NewLearningOptimization creates the learning-optimization step.
func NewLearningOptimization(deps Deps) *LearningOptimization {
	return &LearningOptimization{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *LearningOptimization) ID() core.StepID { return core.StepLearningOptimization }

// Execute implements core.Step.
func (a *LearningOptimization) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	patterns := tradePatterns(state.TradesToday)
	edges := sessionEdgeCases(state)
	recs := recommendations(state, patterns)

	payload := map[string]any{
		"patterns_identified": patterns,
		"edge_cases_found":    edges,
		"recommendations":     recs,
		"trades_analyzed":     len(state.TradesToday),
	}

	a.deps.Logger.WithSession(state.SessionID).Info("learning pass complete",
		"patterns", len(patterns),
		"edge_cases", len(edges),
		"recommendations", len(recs))

	return core.StepResult{Payload: payload}, nil
}

// tradePatterns groups the day's trades by side and outcome. Each
// pattern carries enough context to be actionable on review.
func tradePatterns(trades []core.Trade) []map[string]any {
	if len(trades) == 0 {
		return []map[string]any{}
	}

	type bucket struct {
		count int
		pnl   float64
	}
	buckets := map[string]*bucket{}
	for _, tr := range trades {
		outcome := "win"
		if tr.PnL < 0 {
			outcome = "loss"
		}
		key := tr.Side + "_" + outcome
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.pnl += tr.PnL
	}

	patterns := make([]map[string]any, 0, len(buckets))
	for _, key := range []string{"buy_win", "buy_loss", "sell_win", "sell_loss"} {
		b, ok := buckets[key]
		if !ok {
			continue
		}
		patterns = append(patterns, map[string]any{
			"pattern":   key,
			"count":     b.count,
			"total_pnl": b.pnl,
		})
	}
	return patterns
}

// sessionEdgeCases flags trades and step outcomes that fall outside
// normal operation: oversized losers, gateway degradation, errored
// steps.
func sessionEdgeCases(state *core.SessionState) []string {
	edges := []string{}

	avgLoss := 0.0
	losses := 0
	for _, tr := range state.TradesToday {
		if tr.PnL < 0 {
			avgLoss += -tr.PnL
			losses++
		}
	}
	if losses > 0 {
		avgLoss /= float64(losses)
		for _, tr := range state.TradesToday {
			if tr.PnL < 0 && -tr.PnL > 2*avgLoss && losses > 1 {
				edges = append(edges, fmt.Sprintf(
					"outsized loss on %s %s: %.2f vs avg %.2f", tr.Pair, tr.Side, tr.PnL, -avgLoss))
			}
		}
	}

	for _, id := range core.AllSteps() {
		out, ok := state.Output(id)
		if !ok {
			continue
		}
		switch out.Status {
		case core.StatusError:
			edges = append(edges, fmt.Sprintf("step %s errored during session", id))
		case core.StatusDegraded:
			edges = append(edges, fmt.Sprintf("step %s ran degraded during session", id))
		}
	}
	return edges
}

// recommendations derives next-session guidance from the analytics
// output and the alert log.
func recommendations(state *core.SessionState, patterns []map[string]any) []string {
	recs := []string{}

	if analytics, ok := state.Output(core.StepPerformanceAnalytics); ok && analytics.Status != core.StatusError {
		if winRate, ok := analytics.Result["win_rate"].(float64); ok && len(state.TradesToday) >= 3 {
			if winRate < 0.4 {
				recs = append(recs, "win rate below 40%: tighten setup criteria before next session")
			}
		}
		if expectancy, ok := analytics.Result["expectancy"].(float64); ok && len(state.TradesToday) >= 3 {
			if expectancy < 0 {
				recs = append(recs, "negative expectancy: review stop and target placement")
			}
		}
	}

	critical := 0
	for _, alert := range state.Alerts {
		if alert.Severity == core.SeverityCritical {
			critical++
		}
	}
	if critical > 0 {
		recs = append(recs, fmt.Sprintf("%d critical alerts raised: review system stability before next session", critical))
	}

	if state.MaxSessionRiskPct > 0 && state.SessionPnLPct <= -state.MaxSessionRiskPct {
		recs = append(recs, "session loss limit was reached: reduce position sizing next session")
	}

	for _, p := range patterns {
		if p["pattern"] == "sell_loss" || p["pattern"] == "buy_loss" {
			if count, _ := p["count"].(int); count >= 3 {
				recs = append(recs, fmt.Sprintf("%v repeated %d times: review entries on that side", p["pattern"], count))
			}
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "no adjustments required: keep current plan")
	}
	return recs
}
