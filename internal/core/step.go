package core

import "context"

// StepID identifies a step in the workflow graph. The engine validates
// at construction time that every chain entry resolves to a registered
// step, so an unknown ID is a startup error, not a runtime surprise.
type StepID string

const (
	StepSystemInit           StepID = "system_init"
	StepRiskMgmt             StepID = "risk_mgmt"
	StepEconomicCalendar     StepID = "economic_calendar"
	StepMarketStructure      StepID = "market_structure"
	StepTrendDefinition      StepID = "trend_definition"
	StepStrengthWeakness     StepID = "strength_weakness"
	StepSetupScanner         StepID = "setup_scanner"
	StepEntryExecution       StepID = "entry_execution"
	StepTradeManagement      StepID = "trade_management"
	StepExitExecution        StepID = "exit_execution"
	StepMonitoring           StepID = "monitoring"
	StepPerformanceAnalytics StepID = "performance_analytics"
	StepSessionReview        StepID = "session_review"
	StepLearningOptimization StepID = "learning_optimization"
	StepNextSessionPrep      StepID = "next_session_prep"
	StepAudit                StepID = "audit"
	StepContingency          StepID = "contingency"
	StepPhaseTransition      StepID = "phase_transition"
)

// AllSteps returns every step identifier the graph can reference.
func AllSteps() []StepID {
	return []StepID{
		StepSystemInit,
		StepRiskMgmt,
		StepEconomicCalendar,
		StepMarketStructure,
		StepTrendDefinition,
		StepStrengthWeakness,
		StepSetupScanner,
		StepEntryExecution,
		StepTradeManagement,
		StepExitExecution,
		StepMonitoring,
		StepPerformanceAnalytics,
		StepSessionReview,
		StepLearningOptimization,
		StepNextSessionPrep,
		StepAudit,
		StepContingency,
		StepPhaseTransition,
	}
}

// String returns the string representation of the step ID.
func (id StepID) String() string {
	return string(id)
}

// Step status values recorded in SessionState.AgentOutputs.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// StepResult is what a step hands back to the engine on success. The
// engine stamps it with a timestamp and records it under the step's
// agent-output entry.
type StepResult struct {
	// Status defaults to StatusSuccess when empty. Steps that had to
	// substitute fallback data report StatusDegraded.
	Status string

	// Payload is the step's opaque result, readable by downstream
	// steps through SessionState.AgentOutputs.
	Payload map[string]any
}

// Step is a named unit of work executed against the session state.
//
// Execute may mutate the state fields the step owns (e.g. only the
// market-structure step writes MarketStructure) and call external
// collaborators. A returned error never aborts the cycle: the engine
// catches it, records a status=error output and appends a critical
// alert.
type Step interface {
	ID() StepID
	Execute(ctx context.Context, state *SessionState) (StepResult, error)
}
