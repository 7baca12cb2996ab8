package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tradedesk/internal/core"
	"tradedesk/internal/events"
)

type stubStep struct {
	id core.StepID
	fn func(ctx context.Context, state *core.SessionState) (core.StepResult, error)
}

func (s *stubStep) ID() core.StepID { return s.id }

func (s *stubStep) Execute(ctx context.Context, state *core.SessionState) (core.StepResult, error) {
	if s.fn == nil {
		return core.StepResult{}, nil
	}
	return s.fn(ctx, state)
}

// stubSteps builds a full no-op registry with selected steps overridden.
func stubSteps(overrides map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error)) []core.Step {
	steps := make([]core.Step, 0, len(core.AllSteps()))
	for _, id := range core.AllSteps() {
		steps = append(steps, &stubStep{id: id, fn: overrides[id]})
	}
	return steps
}

func newState() *core.SessionState {
	return core.NewSessionState("sess-1", "crypto", "BTC-USDT", 10000, 3.0, 1.0, time.Now())
}

func TestNew_ValidatesRegistry(t *testing.T) {
	// Missing the contingency step.
	var steps []core.Step
	for _, id := range core.AllSteps() {
		if id == core.StepContingency {
			continue
		}
		steps = append(steps, &stubStep{id: id})
	}
	if _, err := New(Config{Steps: steps}); err == nil {
		t.Fatalf("expected error for missing contingency step")
	} else if !core.IsCategory(err, core.ErrCatState) {
		t.Fatalf("expected state category, got %v", err)
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	steps := stubSteps(nil)
	steps = append(steps, &stubStep{id: core.StepAudit})
	if _, err := New(Config{Steps: steps}); err == nil {
		t.Fatalf("expected error for duplicate step")
	}
}

func TestRunCycle_FailingStepIsContained(t *testing.T) {
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepSystemInit: func(context.Context, *core.SessionState) (core.StepResult, error) {
			return core.StepResult{}, core.ErrGateway(core.CodeGatewayUnreachable, "connection refused")
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("step failure must not surface from RunCycle: %v", err)
	}

	out, ok := state.Output(core.StepSystemInit)
	if !ok {
		t.Fatalf("expected output recorded for failing step")
	}
	if out.Status != core.StatusError || out.Error == nil {
		t.Fatalf("expected error status with details, got %+v", out)
	}
	if out.Error.Kind != string(core.ErrCatGateway) {
		t.Fatalf("expected gateway error kind, got %s", out.Error.Kind)
	}

	found := false
	for _, a := range state.Alerts {
		if a.Severity == core.SeverityCritical && strings.HasPrefix(a.Message, "Step system_init failed:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected critical alert for failing step, alerts: %+v", state.Alerts)
	}
}

func TestRunCycle_PanickingStepIsContained(t *testing.T) {
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepRiskMgmt: func(context.Context, *core.SessionState) (core.StepResult, error) {
			panic("boom")
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("panic must not surface from RunCycle: %v", err)
	}

	out, ok := state.Output(core.StepRiskMgmt)
	if !ok || out.Status != core.StatusError {
		t.Fatalf("expected error output for panicking step, got %+v", out)
	}
	if !strings.Contains(out.Error.Message, "boom") {
		t.Fatalf("expected panic value in message, got %q", out.Error.Message)
	}
}

func TestRunCycle_CycleLimitForcesEnd(t *testing.T) {
	// The transition step never advances, so pre_market loops forever
	// without the limit.
	passes := 0
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepSystemInit: func(context.Context, *core.SessionState) (core.StepResult, error) {
			passes++
			return core.StepResult{}, nil
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("cycle limit must not surface as an error: %v", err)
	}
	if passes != 5 {
		t.Fatalf("expected exactly 5 loop-backs, got %d", passes)
	}
	if state.Phase != core.PhasePreMarket {
		t.Fatalf("expected state left in pre_market, got %s", state.Phase)
	}
}

func TestRunCycle_EmergencyShortCircuit(t *testing.T) {
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepContingency: func(_ context.Context, state *core.SessionState) (core.StepResult, error) {
			state.TriggerEmergencyStop("Session loss limit reached: -3.00%")
			return core.StepResult{}, nil
		},
	})
	bus := events.New(10)
	defer bus.Close()
	prio := bus.SubscribePriority()

	eng, err := New(Config{Steps: steps, MaxCycles: 25, Bus: bus})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("emergency stop must not surface as an error: %v", err)
	}
	if state.Phase != core.PhaseShutdown {
		t.Fatalf("expected short-circuit to shutdown, got %s", state.Phase)
	}
	if !state.EmergencyStop || state.StopReason == "" {
		t.Fatalf("expected latch and reason set")
	}

	select {
	case ev := <-prio:
		if ev.Type != events.TypeEmergencyStop {
			t.Fatalf("expected emergency event, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected priority emergency event")
	}
}

func TestRunCycle_PhasesOnlyMoveForward(t *testing.T) {
	var observed []core.Phase
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepContingency: func(_ context.Context, state *core.SessionState) (core.StepResult, error) {
			observed = append(observed, state.Phase)
			return core.StepResult{}, nil
		},
		core.StepPhaseTransition: func(_ context.Context, state *core.SessionState) (core.StepResult, error) {
			if next := core.NextPhase(state.Phase); next != "" {
				state.Phase = next
			}
			return core.StepResult{}, nil
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 25})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []core.Phase{core.PhasePreMarket, core.PhaseSessionOpen, core.PhaseActiveTrading, core.PhasePostMarket}
	if len(observed) != len(want) {
		t.Fatalf("expected %d phase passes, got %d: %v", len(want), len(observed), observed)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("expected phase order %v, got %v", want, observed)
		}
	}
	if state.Phase != core.PhaseShutdown {
		t.Fatalf("expected terminal shutdown, got %s", state.Phase)
	}
}

func TestRunCycle_IllegalTransitionIsGraphFault(t *testing.T) {
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepPhaseTransition: func(_ context.Context, state *core.SessionState) (core.StepResult, error) {
			state.Phase = core.PhasePreMarket // backwards from session_open
			return core.StepResult{}, nil
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	state.Phase = core.PhaseSessionOpen
	err = eng.RunCycle(context.Background(), state)
	if err == nil {
		t.Fatalf("expected graph fault for backwards transition")
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr.Code != core.CodeInvalidTransition {
		t.Fatalf("expected invalid transition code, got %v", err)
	}
}

func TestRunCycle_UnroutablePhase(t *testing.T) {
	eng, err := New(Config{Steps: stubSteps(nil), MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	state.Phase = "bogus"
	if err := eng.RunCycle(context.Background(), state); err == nil {
		t.Fatalf("expected graph fault for unroutable phase")
	}
}

func TestRunCycle_ShutdownIsTerminal(t *testing.T) {
	ran := false
	steps := stubSteps(map[core.StepID]func(context.Context, *core.SessionState) (core.StepResult, error){
		core.StepContingency: func(context.Context, *core.SessionState) (core.StepResult, error) {
			ran = true
			return core.StepResult{}, nil
		},
	})
	eng, err := New(Config{Steps: steps, MaxCycles: 5})
	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}

	state := newState()
	state.Phase = core.PhaseShutdown
	if err := eng.RunCycle(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Fatalf("expected no steps executed in shutdown")
	}
}

func TestChains_EveryOperativeStepHasAPhase(t *testing.T) {
	inChain := map[core.StepID]bool{}
	for phase, chain := range Chains() {
		if chain[len(chain)-1] != core.StepAudit {
			t.Fatalf("audit must close the %s chain, got %v", phase, chain)
		}
		for _, id := range chain {
			inChain[id] = true
		}
	}

	// Contingency and phase transition run after every chain; every
	// other registered step must belong to exactly one phase chain.
	for _, id := range core.AllSteps() {
		if id == core.StepContingency || id == core.StepPhaseTransition {
			continue
		}
		if !inChain[id] {
			t.Fatalf("step %s is registered but unreachable from any chain", id)
		}
	}
}

func TestChains_PrePostMarketOrder(t *testing.T) {
	chains := Chains()
	wantPre := []core.StepID{
		core.StepSystemInit, core.StepRiskMgmt, core.StepEconomicCalendar, core.StepAudit,
	}
	wantPost := []core.StepID{
		core.StepPerformanceAnalytics, core.StepSessionReview,
		core.StepLearningOptimization, core.StepNextSessionPrep, core.StepAudit,
	}

	for i, id := range wantPre {
		if chains[core.PhasePreMarket][i] != id {
			t.Fatalf("pre-market chain mismatch: want %v, got %v", wantPre, chains[core.PhasePreMarket])
		}
	}
	for i, id := range wantPost {
		if chains[core.PhasePostMarket][i] != id {
			t.Fatalf("post-market chain mismatch: want %v, got %v", wantPost, chains[core.PhasePostMarket])
		}
	}
}
