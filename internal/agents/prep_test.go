package agents

import (
	"context"
	"testing"
	"time"

	"tradedesk/internal/core"
)

func TestNextSessionPrep_PlanForNextDay(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	state := testState(clock.t)
	state.RiskParams = map[string]any{"risk_per_trade": 100.0}
	state.RecordOutput(core.StepSessionReview, core.AgentOutput{Status: core.StatusSuccess})
	state.RecordOutput(core.StepLearningOptimization, core.AgentOutput{
		Status: core.StatusSuccess,
		Result: map[string]any{"recommendations": []string{"negative expectancy: review stop and target placement"}},
	})

	step := NewNextSessionPrep(testDeps(&fakeGateway{gatewayHealthy: true}, clock))
	res, err := step.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := clock.t.Add(24 * time.Hour).UTC().Format(time.RFC3339)
	if res.Payload["next_session_date"] != want {
		t.Fatalf("expected next session at %s, got %v", want, res.Payload["next_session_date"])
	}
	focus, _ := res.Payload["focus_areas"].([]string)
	if len(focus) != 1 || focus[0] != "negative expectancy: review stop and target placement" {
		t.Fatalf("expected learning recommendations as focus, got %+v", focus)
	}
	if res.Payload["prep_complete"] != true {
		t.Fatalf("expected prep complete, payload: %+v", res.Payload)
	}
}

func TestNextSessionPrep_OpenPositionFailsChecklist(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	state := testState(clock.t)
	state.RiskParams = map[string]any{"risk_per_trade": 100.0}
	state.RecordOutput(core.StepSessionReview, core.AgentOutput{Status: core.StatusSuccess})
	state.AddPosition(core.Position{Pair: "BTC-USDT", Side: "buy", Amount: 1, EntryPrice: 100})

	step := NewNextSessionPrep(testDeps(&fakeGateway{gatewayHealthy: true}, clock))
	res, err := step.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Payload["prep_complete"] != false {
		t.Fatalf("open position must fail the checklist: %+v", res.Payload)
	}
	checklist, _ := res.Payload["checklist"].([]map[string]any)
	found := false
	for _, item := range checklist {
		if item["item"] == "Confirm no positions left open" {
			found = true
			if item["completed"] != false {
				t.Fatalf("expected open-positions item incomplete: %+v", item)
			}
		}
	}
	if !found {
		t.Fatalf("missing open-positions checklist item: %+v", checklist)
	}
}

func TestNextSessionPrep_GatewayDownDegrades(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	state := testState(clock.t)

	step := NewNextSessionPrep(testDeps(&fakeGateway{gatewayHealthy: false}, clock))
	res, err := step.Execute(context.Background(), state)
	if err != nil {
		t.Fatalf("gateway failure must not propagate: %v", err)
	}
	if res.Status != core.StatusDegraded {
		t.Fatalf("expected degraded status, got %q", res.Status)
	}
	if res.Payload["prep_complete"] != false {
		t.Fatalf("connectivity item must fail the checklist: %+v", res.Payload)
	}
	focus, _ := res.Payload["focus_areas"].([]string)
	if len(focus) != 1 || focus[0] != "review previous session notes before trading" {
		t.Fatalf("expected fallback focus, got %+v", focus)
	}
}

var _ core.Step = (*NextSessionPrep)(nil)
