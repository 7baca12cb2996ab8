package core

import "time"

// Severity classifies alerts raised during a session.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is an operator-visible problem report. The alerts list is
// append-only for the lifetime of a session.
type Alert struct {
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   StepID    `json:"agent_id"`
}

// Position is an open position held during the session.
type Position struct {
	Pair        string    `json:"pair"`
	Side        string    `json:"side"`
	Amount      float64   `json:"amount"`
	EntryPrice  float64   `json:"entry_price"`
	StopPrice   float64   `json:"stop_price"`
	TargetPrice float64   `json:"target_price"`
	OpenedAt    time.Time `json:"opened_at"`
}

// Trade is a closed trade recorded for the session.
type Trade struct {
	Pair       string    `json:"pair"`
	Side       string    `json:"side"`
	Amount     float64   `json:"amount"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	ClosedAt   time.Time `json:"closed_at"`
}

// Order is a pending order not yet confirmed filled.
type Order struct {
	ID     string  `json:"id"`
	Pair   string  `json:"pair"`
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
	Price  float64 `json:"price"`
	Type   string  `json:"type"`
}

// OutputError describes a step failure inside an agent output entry.
type OutputError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// AgentOutput is one step's recorded contribution for the most recent
// execution of that step. Overwritten if the step runs again in a
// later cycle.
type AgentOutput struct {
	Timestamp time.Time      `json:"timestamp"`
	Status    string         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	Error     *OutputError   `json:"error,omitempty"`
}

// SystemHealth values written by the init and monitoring steps.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

// SessionState is the single mutable record threaded through every
// step of a trading session. One instance exists per session; the
// engine executes steps strictly sequentially, so there is exactly one
// mutator at a time.
type SessionState struct {
	// Identity. SessionID is immutable after construction.
	SessionID   string    `json:"session_id"`
	Phase       Phase     `json:"phase"`
	StartTime   time.Time `json:"start_time"`
	CurrentTime time.Time `json:"current_time"`

	// Account.
	AccountBalance float64 `json:"account_balance"`
	InitialBalance float64 `json:"initial_balance"`
	SessionPnL     float64 `json:"session_pnl"`
	SessionPnLPct  float64 `json:"session_pnl_pct"`

	// Risk configuration snapshot.
	RiskParams        map[string]any `json:"risk_params"`
	RiskUtilization   float64        `json:"risk_utilization"`
	MaxSessionRiskPct float64        `json:"max_session_risk_pct"`
	RiskPerTradePct   float64        `json:"risk_per_trade_pct"`

	// Market context. Each analysis field is written by exactly one
	// step and read by later steps.
	Market           string         `json:"market"`
	Instrument       string         `json:"instrument"`
	MarketStructure  map[string]any `json:"market_structure"`
	Trend            map[string]any `json:"trend"`
	StrengthWeakness map[string]any `json:"strength_weakness"`

	// Trading state.
	Positions          []Position `json:"positions"`
	OpenPositionsCount int        `json:"open_positions_count"`
	PendingOrders      []Order    `json:"pending_orders"`
	TradesToday        []Trade    `json:"trades_today"`

	// Step-to-step communication channel.
	AgentOutputs map[StepID]AgentOutput `json:"agent_outputs"`

	Alerts []Alert `json:"alerts"`

	// Emergency latch. One-way: false→true is the only legal
	// transition within a session.
	EmergencyStop bool   `json:"emergency_stop"`
	StopReason    string `json:"stop_reason"`

	SystemHealth string `json:"system_health"`
}

// NewSessionState constructs the state for a fresh session.
func NewSessionState(sessionID, market, instrument string, initialBalance, maxSessionRiskPct, riskPerTradePct float64, now time.Time) *SessionState {
	return &SessionState{
		SessionID:         sessionID,
		Phase:             PhasePreMarket,
		StartTime:         now,
		CurrentTime:       now,
		AccountBalance:    initialBalance,
		InitialBalance:    initialBalance,
		MaxSessionRiskPct: maxSessionRiskPct,
		RiskPerTradePct:   riskPerTradePct,
		Market:            market,
		Instrument:        instrument,
		RiskParams:        make(map[string]any),
		MarketStructure:   make(map[string]any),
		Trend:             make(map[string]any),
		StrengthWeakness:  make(map[string]any),
		Positions:         make([]Position, 0),
		PendingOrders:     make([]Order, 0),
		TradesToday:       make([]Trade, 0),
		AgentOutputs:      make(map[StepID]AgentOutput),
		Alerts:            make([]Alert, 0),
		SystemHealth:      HealthHealthy,
	}
}

// Touch advances CurrentTime. The clock is monotonically
// non-decreasing: an earlier timestamp is ignored.
func (s *SessionState) Touch(now time.Time) {
	if now.After(s.CurrentTime) {
		s.CurrentTime = now
	}
}

// Elapsed returns the wall-clock time since session start as observed
// through Touch.
func (s *SessionState) Elapsed() time.Duration {
	return s.CurrentTime.Sub(s.StartTime)
}

// RecordOutput writes the agent-output entry for a step. Called once
// per step execution; a later cycle's execution overwrites the entry.
func (s *SessionState) RecordOutput(id StepID, out AgentOutput) {
	if s.AgentOutputs == nil {
		s.AgentOutputs = make(map[StepID]AgentOutput)
	}
	s.AgentOutputs[id] = out
}

// Output returns a step's latest recorded output, if any.
func (s *SessionState) Output(id StepID) (AgentOutput, bool) {
	out, ok := s.AgentOutputs[id]
	return out, ok
}

// AddAlert appends an alert to the session's alert list.
func (s *SessionState) AddAlert(severity Severity, message string, agentID StepID, now time.Time) {
	s.Alerts = append(s.Alerts, Alert{
		Severity:  severity,
		Message:   message,
		Timestamp: now,
		AgentID:   agentID,
	})
}

// SetPositions replaces the open positions and recomputes the count.
// Every mutation of Positions must go through this method (or
// AddPosition/RemovePosition) so the count invariant holds.
func (s *SessionState) SetPositions(positions []Position) {
	if positions == nil {
		positions = make([]Position, 0)
	}
	s.Positions = positions
	s.OpenPositionsCount = len(positions)
}

// AddPosition appends an open position and recomputes the count.
func (s *SessionState) AddPosition(p Position) {
	s.Positions = append(s.Positions, p)
	s.OpenPositionsCount = len(s.Positions)
}

// RemovePosition removes the position at index i and recomputes the
// count. Out-of-range indexes are ignored.
func (s *SessionState) RemovePosition(i int) {
	if i < 0 || i >= len(s.Positions) {
		return
	}
	s.Positions = append(s.Positions[:i], s.Positions[i+1:]...)
	s.OpenPositionsCount = len(s.Positions)
}

// UpdateBalance sets the current balance and recomputes session P&L
// against the initial balance.
func (s *SessionState) UpdateBalance(balance float64) {
	s.AccountBalance = balance
	s.SessionPnL = balance - s.InitialBalance
	if s.InitialBalance != 0 {
		s.SessionPnLPct = s.SessionPnL / s.InitialBalance * 100
	}
}

// TriggerEmergencyStop flips the emergency latch. The first trigger
// wins: a latched state keeps its original reason and later calls are
// no-ops, preserving monotonicity.
func (s *SessionState) TriggerEmergencyStop(reason string) {
	if s.EmergencyStop {
		return
	}
	s.EmergencyStop = true
	s.StopReason = reason
}
