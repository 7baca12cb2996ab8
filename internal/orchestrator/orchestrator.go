// Package orchestrator wires the concrete session graph, owns the
// canonical session state and drives the long-running process loop.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tradedesk/internal/agents"
	"tradedesk/internal/analysis"
	"tradedesk/internal/config"
	"tradedesk/internal/core"
	"tradedesk/internal/engine"
	"tradedesk/internal/events"
	"tradedesk/internal/logging"
)

// priceSeriesCapacity bounds the rolling price history shared by the
// analysis steps.
const priceSeriesCapacity = 512

// Summary is the read-only projection of the session state exposed to
// operators. Pure arithmetic over the state, no business logic.
type Summary struct {
	SessionID     string        `json:"session_id"`
	Phase         string        `json:"phase"`
	Duration      time.Duration `json:"duration"`
	Balance       float64       `json:"balance"`
	PnL           float64       `json:"pnl"`
	PnLPct        float64       `json:"pnl_pct"`
	Trades        int           `json:"trades"`
	OpenPositions int           `json:"open_positions"`
	Alerts        int           `json:"alerts"`
	EmergencyStop bool          `json:"emergency_stop"`
	StopReason    string        `json:"stop_reason,omitempty"`
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithBus sets the event bus.
func WithBus(bus *events.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithClock sets the clock, for deterministic tests.
func WithClock(clock core.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithMarketOpen sets the market-open predicate the pre-market phase
// loops on. Defaults to always-open (24/7 markets).
func WithMarketOpen(fn agents.MarketOpenFunc) Option {
	return func(o *Orchestrator) { o.marketOpen = fn }
}

// WithCalendarFeed sets the economic-calendar source. Without one the
// calendar step reports no restrictions.
func WithCalendarFeed(feed agents.CalendarFeed) Option {
	return func(o *Orchestrator) { o.calendarFeed = feed }
}

// Orchestrator owns the session lifecycle: start, per-cycle ticking,
// summary and shutdown.
type Orchestrator struct {
	cfg   *config.Config
	log   *logging.Logger
	bus   *events.Bus
	clock core.Clock

	gateway      core.Gateway
	store        core.AuditStore
	marketOpen   agents.MarketOpenFunc
	calendarFeed agents.CalendarFeed

	eng *engine.Engine

	// mu guards state: the engine mutates it during a cycle while the
	// status API reads projections concurrently.
	mu    sync.Mutex
	state *core.SessionState

	stopFlag atomic.Bool
}

// New builds the orchestrator and the full step graph.
func New(cfg *config.Config, gw core.Gateway, store core.AuditStore, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "config is required")
	}
	if gw == nil {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "gateway is required")
	}

	o := &Orchestrator{
		cfg:        cfg,
		log:        logging.NewNop(),
		clock:      core.RealClock{},
		gateway:    gw,
		store:      store,
		marketOpen: func(time.Time) bool { return true },
	}
	for _, opt := range opts {
		opt(o)
	}

	deps := agents.Deps{
		Gateway:   gw,
		Store:     store,
		Clock:     o.clock,
		Logger:    o.log,
		Prices:    analysis.NewSeries(priceSeriesCapacity),
		Connector: cfg.Session.Connector,
		Timeout:   cfg.Gateway.Timeout,
	}

	steps := []core.Step{
		agents.NewSystemInit(deps),
		agents.NewRiskManagement(deps, cfg.Risk.MaxOpenPositions, cfg.Risk.UtilizationWarnPct),
		agents.NewEconomicCalendar(deps, o.calendarFeed),
		agents.NewMarketStructure(deps),
		agents.NewTrendDefinition(deps),
		agents.NewStrengthWeakness(deps),
		agents.NewSetupScanner(deps),
		agents.NewEntryExecution(deps, cfg.Risk.MaxOpenPositions),
		agents.NewTradeManagement(deps),
		agents.NewExitExecution(deps),
		agents.NewMonitoring(deps),
		agents.NewPerformanceAnalytics(deps),
		agents.NewSessionReview(deps),
		agents.NewLearningOptimization(deps),
		agents.NewNextSessionPrep(deps),
		agents.NewAudit(deps),
		agents.NewContingency(deps, o.stopFlag.Load),
		agents.NewPhaseTransition(deps, func(now time.Time) bool { return o.marketOpen(now) }, cfg.Session.TradingWindow),
	}

	eng, err := engine.New(engine.Config{
		Steps:     steps,
		MaxCycles: cfg.Session.CycleLimit,
		Clock:     o.clock,
		Logger:    o.log,
		Bus:       o.bus,
	})
	if err != nil {
		return nil, err
	}
	o.eng = eng
	return o, nil
}

// StartSession initializes a fresh session state, performs one full
// graph traversal and returns the new session id.
func (o *Orchestrator) StartSession(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state != nil {
		o.mu.Unlock()
		return "", core.ErrState(core.CodeSessionActive, "session already started")
	}

	id := uuid.NewString()
	o.state = core.NewSessionState(
		id,
		o.cfg.Session.Market,
		o.cfg.Session.Instrument,
		o.cfg.Session.InitialBalance,
		o.cfg.Risk.MaxSessionRiskPct,
		o.cfg.Risk.RiskPerTradePct,
		o.clock.Now(),
	)
	o.mu.Unlock()

	o.log.WithSession(id).Info("session started",
		"instrument", o.cfg.Session.Instrument,
		"connector", o.cfg.Session.Connector)
	o.publish(events.Event{
		Type:      events.TypeSessionStarted,
		SessionID: id,
		Phase:     core.PhasePreMarket.String(),
		Time:      o.clock.Now(),
	})

	if err := o.ProcessCycle(ctx); err != nil {
		return id, err
	}
	return id, nil
}

// ProcessCycle performs exactly one graph traversal over the current
// state.
func (o *Orchestrator) ProcessCycle(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return core.ErrState(core.CodeSessionNotStarted, "no active session")
	}

	if err := o.eng.RunCycle(ctx, o.state); err != nil {
		return err
	}

	o.publish(events.Event{
		Type:      events.TypeCycleCompleted,
		SessionID: o.state.SessionID,
		Phase:     o.state.Phase.String(),
		Time:      o.clock.Now(),
	})
	return nil
}

// Run drives the session to completion: it starts a session if none is
// active, then loops ProcessCycle with the configured inter-cycle
// delay until IsActive turns false or the context is cancelled. An
// engine fault triggers an emergency shutdown and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	started := o.state != nil
	o.mu.Unlock()

	if !started {
		if _, err := o.StartSession(ctx); err != nil {
			o.EmergencyShutdown(fmt.Sprintf("engine fault: %v", err))
			o.logFinalSummary()
			return err
		}
	}

	for o.IsActive() {
		select {
		case <-ctx.Done():
			o.log.Info("run loop cancelled, shutting down")
			o.EmergencyShutdown("process shutdown requested")
			o.logFinalSummary()
			return nil
		case <-time.After(o.cfg.Session.CycleDelay):
		}

		if !o.IsActive() {
			break
		}
		if err := o.ProcessCycle(ctx); err != nil {
			o.EmergencyShutdown(fmt.Sprintf("engine fault: %v", err))
			o.logFinalSummary()
			return err
		}
	}

	o.publishEnd()
	o.logFinalSummary()
	return nil
}

// IsActive reports whether the session should keep cycling: false once
// the latch is set, the maximum session duration has elapsed, or the
// phase is terminal.
func (o *Orchestrator) IsActive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return false
	}
	if o.state.EmergencyStop {
		return false
	}
	if o.clock.Now().Sub(o.state.StartTime) > o.cfg.Session.MaxDuration {
		return false
	}
	return o.state.Phase != core.PhaseShutdown
}

// RequestStop flags an external stop. The contingency step picks it up
// on the next cycle and trips the latch through the normal graph path.
func (o *Orchestrator) RequestStop() {
	o.stopFlag.Store(true)
}

// EmergencyShutdown force-sets the latch, stop reason and terminal
// phase outside the normal graph. Used for fatal faults in the host
// process itself; step-level errors never need it.
func (o *Orchestrator) EmergencyShutdown(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return
	}
	o.state.TriggerEmergencyStop(reason)
	o.state.Phase = core.PhaseShutdown

	o.log.WithSession(o.state.SessionID).Error("emergency shutdown", "reason", o.state.StopReason)
	if o.bus != nil {
		o.bus.PublishPriority(events.Event{
			Type:      events.TypeEmergencyStop,
			SessionID: o.state.SessionID,
			Phase:     core.PhaseShutdown.String(),
			Message:   o.state.StopReason,
			Time:      o.clock.Now(),
		})
	}
}

// SessionSummary returns the operator-facing projection of the current
// state. ok is false before StartSession.
func (o *Orchestrator) SessionSummary() (Summary, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return Summary{}, false
	}

	duration := o.clock.Now().Sub(o.state.StartTime)
	if duration < 0 {
		duration = 0
	}
	return Summary{
		SessionID:     o.state.SessionID,
		Phase:         o.state.Phase.String(),
		Duration:      duration,
		Balance:       o.state.AccountBalance,
		PnL:           o.state.SessionPnL,
		PnLPct:        o.state.SessionPnLPct,
		Trades:        len(o.state.TradesToday),
		OpenPositions: o.state.OpenPositionsCount,
		Alerts:        len(o.state.Alerts),
		EmergencyStop: o.state.EmergencyStop,
		StopReason:    o.state.StopReason,
	}, true
}

// Alerts returns a copy of the session's alert list.
func (o *Orchestrator) Alerts() []core.Alert {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return nil
	}
	out := make([]core.Alert, len(o.state.Alerts))
	copy(out, o.state.Alerts)
	return out
}

// Outputs returns a copy of the agent-output map.
func (o *Orchestrator) Outputs() map[core.StepID]core.AgentOutput {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == nil {
		return nil
	}
	out := make(map[core.StepID]core.AgentOutput, len(o.state.AgentOutputs))
	for k, v := range o.state.AgentOutputs {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) publishEnd() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == nil || o.bus == nil {
		return
	}
	o.bus.PublishPriority(events.Event{
		Type:      events.TypeSessionEnded,
		SessionID: o.state.SessionID,
		Phase:     o.state.Phase.String(),
		Time:      o.clock.Now(),
	})
}

// logFinalSummary is best-effort: it runs even on the failure paths so
// the operator always gets a closing line.
func (o *Orchestrator) logFinalSummary() {
	summary, ok := o.SessionSummary()
	if !ok {
		return
	}
	o.log.WithSession(summary.SessionID).Info("session summary",
		"phase", summary.Phase,
		"duration", summary.Duration.String(),
		"pnl", summary.PnL,
		"pnl_pct", summary.PnLPct,
		"trades", summary.Trades,
		"open_positions", summary.OpenPositions,
		"alerts", summary.Alerts,
		"emergency_stop", summary.EmergencyStop,
	)
}
