package engine

import (
	"context"
	"fmt"

	"tradedesk/internal/core"
	"tradedesk/internal/events"
	"tradedesk/internal/logging"
)

// DefaultMaxCycles bounds the internal loop-backs of one traversal.
const DefaultMaxCycles = 25

// Chains returns the fixed step chain of each executable phase. The
// audit step is always last; shutdown has no chain.
func Chains() map[core.Phase][]core.StepID {
	return map[core.Phase][]core.StepID{
		core.PhasePreMarket: {
			core.StepSystemInit,
			core.StepRiskMgmt,
			core.StepEconomicCalendar,
			core.StepAudit,
		},
		core.PhaseSessionOpen: {
			core.StepMarketStructure,
			core.StepTrendDefinition,
			core.StepStrengthWeakness,
			core.StepRiskMgmt,
			core.StepAudit,
		},
		core.PhaseActiveTrading: {
			core.StepSetupScanner,
			core.StepEntryExecution,
			core.StepTradeManagement,
			core.StepExitExecution,
			core.StepMonitoring,
			core.StepAudit,
		},
		core.PhasePostMarket: {
			core.StepPerformanceAnalytics,
			core.StepSessionReview,
			core.StepLearningOptimization,
			core.StepNextSessionPrep,
			core.StepAudit,
		},
	}
}

// Config wires an Engine.
type Config struct {
	Steps     []core.Step
	MaxCycles int
	Clock     core.Clock
	Logger    *logging.Logger
	Bus       *events.Bus
}

// Engine executes the workflow graph. Steps run strictly one at a
// time; the session state has exactly one mutator at any moment.
type Engine struct {
	steps     map[core.StepID]core.Step
	chains    map[core.Phase][]core.StepID
	maxCycles int
	clock     core.Clock
	log       *logging.Logger
	bus       *events.Bus
}

// New builds the engine and validates the graph: every chain entry,
// plus the contingency and phase-transition steps, must resolve to a
// registered step. A misconfigured graph is a startup error, never a
// runtime lookup failure.
func New(cfg Config) (*Engine, error) {
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = DefaultMaxCycles
	}
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	table := make(map[core.StepID]core.Step, len(cfg.Steps))
	for _, step := range cfg.Steps {
		if step == nil {
			return nil, core.ErrState(core.CodeInvalidState, "nil step in registry")
		}
		if _, dup := table[step.ID()]; dup {
			return nil, core.ErrState(core.CodeInvalidState, fmt.Sprintf("duplicate step: %s", step.ID()))
		}
		table[step.ID()] = step
	}

	chains := Chains()
	for phase, chain := range chains {
		for _, id := range chain {
			if _, ok := table[id]; !ok {
				return nil, core.ErrState(core.CodeStepNotRegistered,
					fmt.Sprintf("chain for %s references unregistered step %s", phase, id))
			}
		}
	}
	for _, id := range []core.StepID{core.StepContingency, core.StepPhaseTransition} {
		if _, ok := table[id]; !ok {
			return nil, core.ErrState(core.CodeStepNotRegistered, fmt.Sprintf("required step not registered: %s", id))
		}
	}

	return &Engine{
		steps:     table,
		chains:    chains,
		maxCycles: cfg.MaxCycles,
		clock:     cfg.Clock,
		log:       cfg.Logger,
		bus:       cfg.Bus,
	}, nil
}

// MaxCycles returns the configured loop-back bound.
func (e *Engine) MaxCycles() int { return e.maxCycles }

// RunCycle performs one full graph traversal: it dispatches into the
// current phase's chain, runs the contingency and phase-transition
// steps, and loops back until shutdown, an emergency stop, or the
// cycle limit. The returned error is reserved for graph faults; step
// failures are contained and recorded in the state.
func (e *Engine) RunCycle(ctx context.Context, state *core.SessionState) error {
	cycles := 0
	for {
		route, ok := RoutePhase(state)
		if !ok {
			return core.ErrState(core.CodeUnroutablePhase, fmt.Sprintf("no route for phase %q", state.Phase))
		}

		var chain []core.StepID
		switch route {
		case RoutePreMarket:
			chain = e.chains[core.PhasePreMarket]
		case RouteSessionOpen:
			chain = e.chains[core.PhaseSessionOpen]
		case RouteActiveTrading:
			chain = e.chains[core.PhaseActiveTrading]
		case RoutePostMarket:
			chain = e.chains[core.PhasePostMarket]
		case RouteEnd:
			return nil
		}

		for _, id := range chain {
			e.runStep(ctx, e.steps[id], state)
		}

		e.runStep(ctx, e.steps[core.StepContingency], state)

		switch RouteEmergency(state) {
		case EmergencyStop:
			e.log.WithSession(state.SessionID).Warn("emergency stop, short-circuiting to shutdown",
				"reason", state.StopReason)
			state.Phase = core.PhaseShutdown
			e.publishPriority(events.Event{
				Type:      events.TypeEmergencyStop,
				SessionID: state.SessionID,
				Phase:     state.Phase.String(),
				Message:   state.StopReason,
				Time:      e.clock.Now(),
			})
			return nil
		case EmergencyContinue:
		}

		before := state.Phase
		e.runStep(ctx, e.steps[core.StepPhaseTransition], state)
		if state.Phase != before {
			if !core.ValidTransition(before, state.Phase) {
				return core.ErrState(core.CodeInvalidTransition,
					fmt.Sprintf("illegal phase transition %s -> %s", before, state.Phase))
			}
			e.log.WithSession(state.SessionID).Info("phase transition",
				"from", before.String(), "to", state.Phase.String())
			e.publish(events.Event{
				Type:      events.TypePhaseChanged,
				SessionID: state.SessionID,
				Phase:     state.Phase.String(),
				Time:      e.clock.Now(),
				Fields:    map[string]any{"from": before.String()},
			})
		}

		cycles++
		switch RouteLoop(state, cycles, e.maxCycles) {
		case LoopEnd:
			if state.Phase != core.PhaseShutdown {
				// Safety valve, not an error.
				e.log.WithSession(state.SessionID).Info("cycle limit reached, ending traversal",
					"cycles", cycles, "limit", e.maxCycles)
			}
			return nil
		case LoopContinue:
		}
	}
}

// runStep executes one step under the uniform catch-and-record rule: a
// fault (error return or panic) is recorded as a status=error output
// plus a critical alert, and the traversal continues.
func (e *Engine) runStep(ctx context.Context, step core.Step, state *core.SessionState) {
	defer func() {
		if r := recover(); r != nil {
			now := e.clock.Now()
			state.Touch(now)
			err := core.ErrExecution(core.CodeStepPanic, fmt.Sprintf("panic: %v", r))
			e.recordFailure(step.ID(), err, state)
		}
	}()

	result, err := step.Execute(ctx, state)
	now := e.clock.Now()
	state.Touch(now)

	if err != nil {
		e.recordFailure(step.ID(), err, state)
		return
	}

	status := result.Status
	if status == "" {
		status = core.StatusSuccess
	}
	state.RecordOutput(step.ID(), core.AgentOutput{
		Timestamp: state.CurrentTime,
		Status:    status,
		Result:    result.Payload,
	})
	e.publish(events.Event{
		Type:      events.TypeStepCompleted,
		SessionID: state.SessionID,
		Phase:     state.Phase.String(),
		Step:      step.ID().String(),
		Time:      state.CurrentTime,
		Fields:    map[string]any{"status": status},
	})
}

func (e *Engine) recordFailure(id core.StepID, err error, state *core.SessionState) {
	now := state.CurrentTime
	state.RecordOutput(id, core.AgentOutput{
		Timestamp: now,
		Status:    core.StatusError,
		Error: &core.OutputError{
			Message: err.Error(),
			Kind:    string(core.GetCategory(err)),
		},
	})
	msg := fmt.Sprintf("Step %s failed: %s", id, err.Error())
	state.AddAlert(core.SeverityCritical, msg, id, now)
	e.log.WithSession(state.SessionID).WithStep(id.String()).Error("step failed", "error", err)
	e.publish(events.Event{
		Type:      events.TypeAlertRaised,
		SessionID: state.SessionID,
		Phase:     state.Phase.String(),
		Step:      id.String(),
		Message:   msg,
		Time:      now,
	})
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) publishPriority(ev events.Event) {
	if e.bus != nil {
		e.bus.PublishPriority(ev)
	}
}
