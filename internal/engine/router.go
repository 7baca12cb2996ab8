// Package engine drives the phase-sequenced workflow graph: it owns
// the step table, the per-phase chains and the routing decisions
// between them.
package engine

import "tradedesk/internal/core"

// EmergencyRoute is the outcome of the emergency router.
type EmergencyRoute int

const (
	EmergencyContinue EmergencyRoute = iota
	EmergencyStop
)

// RouteEmergency reads the emergency latch. Detection is the
// contingency step's job; this router never mutates state.
func RouteEmergency(state *core.SessionState) EmergencyRoute {
	if state.EmergencyStop {
		return EmergencyStop
	}
	return EmergencyContinue
}

// PhaseRoute selects the step chain for the current phase, or End.
type PhaseRoute int

const (
	RoutePreMarket PhaseRoute = iota
	RouteSessionOpen
	RouteActiveTrading
	RoutePostMarket
	RouteEnd
)

// RoutePhase maps the current phase to its chain. Deterministic: the
// same phase always yields the same route. ok is false for a phase
// outside the closed set, which the engine treats as a graph fault.
func RoutePhase(state *core.SessionState) (PhaseRoute, bool) {
	switch state.Phase {
	case core.PhasePreMarket:
		return RoutePreMarket, true
	case core.PhaseSessionOpen:
		return RouteSessionOpen, true
	case core.PhaseActiveTrading:
		return RouteActiveTrading, true
	case core.PhasePostMarket:
		return RoutePostMarket, true
	case core.PhaseShutdown:
		return RouteEnd, true
	default:
		return RouteEnd, false
	}
}

// LoopRoute is the outcome of the continue/end router.
type LoopRoute int

const (
	LoopContinue LoopRoute = iota
	LoopEnd
)

// RouteLoop decides whether the traversal loops back for another pass.
// The cycle counter is engine-owned, not part of the session state;
// exceeding the limit forces End as a safety valve rather than raising
// an error.
func RouteLoop(state *core.SessionState, cycles, maxCycles int) LoopRoute {
	if state.Phase == core.PhaseShutdown {
		return LoopEnd
	}
	if cycles >= maxCycles {
		return LoopEnd
	}
	return LoopContinue
}
