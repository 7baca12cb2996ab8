package agents

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradedesk/internal/core"
)

// Default restriction window around a high-impact release.
const (
	calendarStopBefore  = 5 * time.Minute
	calendarResumeAfter = 5 * time.Minute
)

// NewsEvent is one scheduled economic release.
type NewsEvent struct {
	Time     time.Time
	Currency string
	Name     string
	Impact   string // high, medium, low
}

// CalendarFeed returns the releases scheduled within the horizon after
// now that are relevant to the instrument. A nil feed means no
// calendar source is configured and trading is never restricted.
type CalendarFeed func(now time.Time, instrument string, horizon time.Duration) []NewsEvent

// EconomicCalendar checks upcoming news releases and flags a trading
// restriction window around high-impact ones. The scanner reads its
// output and stands down while the window is open.
type EconomicCalendar struct {
	deps        Deps
	feed        CalendarFeed
	stopBefore  time.Duration
	resumeAfter time.Duration
}

// NewEconomicCalendar creates the economic-calendar step.
func NewEconomicCalendar(deps Deps, feed CalendarFeed) *EconomicCalendar {
	return &EconomicCalendar{
		deps:        deps.normalized(),
		feed:        feed,
		stopBefore:  calendarStopBefore,
		resumeAfter: calendarResumeAfter,
	}
}

// ID implements core.Step.
func (a *EconomicCalendar) ID() core.StepID { return core.StepEconomicCalendar }

// Execute implements core.Step.
func (a *EconomicCalendar) Execute(_ context.Context, state *core.SessionState) (core.StepResult, error) {
	now := a.deps.Clock.Now()
	payload := map[string]any{
		"trading_restricted": false,
		"high_impact_count":  0,
	}

	if a.feed == nil {
		payload["reason"] = "no calendar feed configured"
		return core.StepResult{Payload: payload}, nil
	}

	events := a.feed(now, state.Instrument, 24*time.Hour)

	highImpact := make([]NewsEvent, 0, len(events))
	for _, ev := range events {
		if ev.Impact == "high" {
			highImpact = append(highImpact, ev)
		}
	}
	sort.Slice(highImpact, func(i, j int) bool { return highImpact[i].Time.Before(highImpact[j].Time) })

	upcoming := make([]map[string]any, 0, len(highImpact))
	for _, ev := range highImpact {
		upcoming = append(upcoming, map[string]any{
			"time":     ev.Time.UTC().Format(time.RFC3339),
			"currency": ev.Currency,
			"event":    ev.Name,
			"impact":   ev.Impact,
		})
	}
	payload["upcoming_events"] = upcoming
	payload["high_impact_count"] = len(highImpact)
	payload["total_events"] = len(events)

	for _, ev := range highImpact {
		windowStart := ev.Time.Add(-a.stopBefore)
		windowEnd := ev.Time.Add(a.resumeAfter)
		if now.Before(windowStart) || now.After(windowEnd) {
			continue
		}

		reason := fmt.Sprintf("High-impact event: %s", ev.Name)
		payload["trading_restricted"] = true
		payload["restriction_reason"] = reason
		payload["restriction_until"] = windowEnd.UTC().Format(time.RFC3339)
		state.AddAlert(core.SeverityWarning,
			fmt.Sprintf("Trading restricted: %s", reason), a.ID(), now)
		break
	}

	if next, ok := nextCriticalEvent(highImpact, now); ok {
		payload["next_critical_event"] = map[string]any{
			"time":          next.Time.UTC().Format(time.RFC3339),
			"event":         next.Name,
			"minutes_until": int(next.Time.Sub(now).Minutes()),
		}
	}

	return core.StepResult{Payload: payload}, nil
}

func nextCriticalEvent(events []NewsEvent, now time.Time) (NewsEvent, bool) {
	for _, ev := range events {
		if ev.Time.After(now) {
			return ev, true
		}
	}
	return NewsEvent{}, false
}

// newsRestricted reports whether the calendar's latest output holds an
// open restriction window at the given instant. A missing or errored
// calendar output never blocks trading.
func newsRestricted(state *core.SessionState, now time.Time) (bool, string) {
	out, ok := state.Output(core.StepEconomicCalendar)
	if !ok || out.Status == core.StatusError {
		return false, ""
	}
	restricted, _ := out.Result["trading_restricted"].(bool)
	if !restricted {
		return false, ""
	}

	// The calendar runs in the pre-market chain; the until timestamp
	// keeps a stale flag from gating the whole session.
	if raw, _ := out.Result["restriction_until"].(string); raw != "" {
		until, err := time.Parse(time.RFC3339, raw)
		if err == nil && now.After(until) {
			return false, ""
		}
	}

	reason, _ := out.Result["restriction_reason"].(string)
	return true, reason
}
