package core

import (
	"testing"
	"time"
)

func newTestState(now time.Time) *SessionState {
	return NewSessionState("sess-1", "crypto", "BTC-USDT", 10000, 3.0, 1.0, now)
}

func TestSessionState_New(t *testing.T) {
	now := time.Now()
	s := newTestState(now)

	if s.Phase != PhasePreMarket {
		t.Fatalf("expected initial phase pre_market, got %s", s.Phase)
	}
	if s.AccountBalance != 10000 || s.InitialBalance != 10000 {
		t.Fatalf("expected balances initialized to 10000")
	}
	if len(s.Positions) != 0 || s.OpenPositionsCount != 0 {
		t.Fatalf("expected empty positions")
	}
	if len(s.Alerts) != 0 {
		t.Fatalf("expected empty alerts")
	}
	if s.EmergencyStop {
		t.Fatalf("expected emergency latch unset")
	}
	if s.SystemHealth != HealthHealthy {
		t.Fatalf("expected initial health healthy, got %s", s.SystemHealth)
	}
}

func TestSessionState_TouchMonotonic(t *testing.T) {
	now := time.Now()
	s := newTestState(now)

	later := now.Add(5 * time.Second)
	s.Touch(later)
	if !s.CurrentTime.Equal(later) {
		t.Fatalf("expected current time to advance")
	}

	// Earlier timestamps must not rewind the clock.
	s.Touch(now)
	if !s.CurrentTime.Equal(later) {
		t.Fatalf("expected current time to stay at later timestamp")
	}

	if s.Elapsed() != 5*time.Second {
		t.Fatalf("expected elapsed 5s, got %v", s.Elapsed())
	}
}

func TestSessionState_PositionsCountInvariant(t *testing.T) {
	s := newTestState(time.Now())

	s.AddPosition(Position{Pair: "BTC-USDT", Side: "buy", Amount: 0.1})
	s.AddPosition(Position{Pair: "ETH-USDT", Side: "buy", Amount: 1})
	if s.OpenPositionsCount != len(s.Positions) || s.OpenPositionsCount != 2 {
		t.Fatalf("count out of sync after add: %d vs %d", s.OpenPositionsCount, len(s.Positions))
	}

	s.RemovePosition(0)
	if s.OpenPositionsCount != len(s.Positions) || s.OpenPositionsCount != 1 {
		t.Fatalf("count out of sync after remove: %d vs %d", s.OpenPositionsCount, len(s.Positions))
	}
	if s.Positions[0].Pair != "ETH-USDT" {
		t.Fatalf("removed wrong position")
	}

	// Out-of-range removals are ignored.
	s.RemovePosition(5)
	s.RemovePosition(-1)
	if s.OpenPositionsCount != 1 {
		t.Fatalf("expected count unchanged after invalid remove")
	}

	s.SetPositions(nil)
	if s.OpenPositionsCount != 0 || s.Positions == nil {
		t.Fatalf("expected empty non-nil positions after SetPositions(nil)")
	}
}

func TestSessionState_EmergencyLatchMonotonic(t *testing.T) {
	s := newTestState(time.Now())

	s.TriggerEmergencyStop("loss limit breached")
	if !s.EmergencyStop || s.StopReason != "loss limit breached" {
		t.Fatalf("expected latch set with reason")
	}

	// The first trigger wins; later calls must not overwrite the reason.
	s.TriggerEmergencyStop("second reason")
	if s.StopReason != "loss limit breached" {
		t.Fatalf("expected original stop reason preserved, got %q", s.StopReason)
	}
}

func TestSessionState_RecordOutputOverwrites(t *testing.T) {
	s := newTestState(time.Now())
	t0 := time.Now()

	s.RecordOutput(StepRiskMgmt, AgentOutput{Timestamp: t0, Status: StatusSuccess})
	s.RecordOutput(StepRiskMgmt, AgentOutput{Timestamp: t0.Add(time.Second), Status: StatusError})

	out, ok := s.Output(StepRiskMgmt)
	if !ok {
		t.Fatalf("expected output recorded")
	}
	if out.Status != StatusError {
		t.Fatalf("expected latest write to win, got %s", out.Status)
	}
	if len(s.AgentOutputs) != 1 {
		t.Fatalf("expected single entry per step, got %d", len(s.AgentOutputs))
	}

	if _, ok := s.Output(StepMonitoring); ok {
		t.Fatalf("expected no output for step that never ran")
	}
}

func TestSessionState_UpdateBalance(t *testing.T) {
	s := newTestState(time.Now())

	s.UpdateBalance(9700)
	if s.SessionPnL != -300 {
		t.Fatalf("expected pnl -300, got %f", s.SessionPnL)
	}
	if s.SessionPnLPct != -3.0 {
		t.Fatalf("expected pnl pct -3.0, got %f", s.SessionPnLPct)
	}
}

func TestSessionState_AlertsAppendOnly(t *testing.T) {
	s := newTestState(time.Now())
	now := time.Now()

	s.AddAlert(SeverityWarning, "risk utilization high", StepRiskMgmt, now)
	s.AddAlert(SeverityCritical, "Step monitoring failed: gateway down", StepMonitoring, now.Add(time.Second))

	if len(s.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(s.Alerts))
	}
	if s.Alerts[0].Severity != SeverityWarning || s.Alerts[1].Severity != SeverityCritical {
		t.Fatalf("expected alerts in append order")
	}
	if s.Alerts[1].AgentID != StepMonitoring {
		t.Fatalf("expected agent id recorded on alert")
	}
}
