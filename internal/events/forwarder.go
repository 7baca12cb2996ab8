package events

import (
	"tradedesk/internal/logging"
)

// LogForwarder mirrors every bus event onto the process log so the
// session timeline is visible without an API client attached. It
// returns a stop function that detaches the subscription and waits for
// the forwarding goroutine to drain.
func LogForwarder(bus *Bus, log *logging.Logger) func() {
	ch := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range ch {
			forward(log, ev)
		}
	}()

	return func() {
		bus.Unsubscribe(ch)
		<-done
	}
}

func forward(log *logging.Logger, ev Event) {
	l := log.WithSession(ev.SessionID)
	if ev.Phase != "" {
		l = l.WithPhase(ev.Phase)
	}
	if ev.Step != "" {
		l = l.WithStep(ev.Step)
	}

	switch ev.Type {
	case TypeEmergencyStop:
		l.Error("session event", "event", ev.Type, "message", ev.Message)
	case TypeAlertRaised:
		l.Warn("session event", "event", ev.Type, "message", ev.Message)
	case TypeStepCompleted, TypeCycleCompleted:
		// Per-step and per-cycle noise stays at debug.
		l.Debug("session event", "event", ev.Type, "message", ev.Message)
	default:
		l.Info("session event", "event", ev.Type, "message", ev.Message)
	}
}
