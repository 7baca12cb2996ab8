package agents

import (
	"context"
	"math"

	"tradedesk/internal/core"
)

// PerformanceAnalytics computes the session's trade statistics during
// post-market.
type PerformanceAnalytics struct {
	deps Deps
}

// NewPerformanceAnalytics creates the performance-analytics step.
func NewPerformanceAnalytics(deps Deps) *PerformanceAnalytics {
	return &PerformanceAnalytics{deps: deps.normalized()}
}

// ID implements core.Step.
func (a *PerformanceAnalytics) ID() core.StepID { return core.StepPerformanceAnalytics }

// Execute implements core.Step.
func (a *PerformanceAnalytics) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	stats := computeStats(state.TradesToday)
	stats["session_pnl"] = state.SessionPnL
	stats["session_pnl_pct"] = state.SessionPnLPct
	return core.StepResult{Payload: stats}, nil
}

func computeStats(trades []core.Trade) map[string]any {
	stats := map[string]any{
		"trades":       len(trades),
		"wins":         0,
		"losses":       0,
		"win_rate":     0.0,
		"total_pnl":    0.0,
		"expectancy":   0.0,
		"max_drawdown": 0.0,
	}
	if len(trades) == 0 {
		return stats
	}

	wins, losses := 0, 0
	totalPnL, winSum, lossSum := 0.0, 0.0, 0.0
	peak, maxDD, equity := 0.0, 0.0, 0.0

	for _, tr := range trades {
		totalPnL += tr.PnL
		if tr.PnL >= 0 {
			wins++
			winSum += tr.PnL
		} else {
			losses++
			lossSum += -tr.PnL
		}

		equity += tr.PnL
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}

	winRate := float64(wins) / float64(len(trades))
	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}
	expectancy := winRate*avgWin - (1-winRate)*avgLoss

	stats["wins"] = wins
	stats["losses"] = losses
	stats["win_rate"] = math.Round(winRate*10000) / 10000
	stats["total_pnl"] = totalPnL
	stats["avg_win"] = avgWin
	stats["avg_loss"] = avgLoss
	stats["expectancy"] = expectancy
	stats["max_drawdown"] = maxDD
	return stats
}
