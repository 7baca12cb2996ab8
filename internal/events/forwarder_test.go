package events

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tradedesk/internal/logging"
)

func TestLogForwarder_MirrorsEventsToLog(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf})

	bus := New(16)
	defer bus.Close()

	stop := LogForwarder(bus, log)

	bus.Publish(Event{Type: TypeSessionStarted, SessionID: "sess-1", Phase: "pre_market", Time: time.Now()})
	bus.Publish(Event{Type: TypeAlertRaised, SessionID: "sess-1", Message: "Risk utilization high", Time: time.Now()})
	bus.PublishPriority(Event{Type: TypeEmergencyStop, SessionID: "sess-1", Message: "loss limit", Time: time.Now()})

	// Stop drains the subscription before returning, so everything
	// published above is in the buffer by now.
	stop()

	out := buf.String()
	for _, want := range []string{TypeSessionStarted, TypeAlertRaised, TypeEmergencyStop, "Risk utilization high", "sess-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
	if !strings.Contains(out, `"level":"ERROR"`) {
		t.Fatalf("expected emergency stop at error level, got:\n%s", out)
	}
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected alert at warn level, got:\n%s", out)
	}
}

func TestLogForwarder_StopDetaches(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "debug", Format: "json", Output: &buf})

	bus := New(16)
	defer bus.Close()

	stop := LogForwarder(bus, log)
	stop()

	before := buf.Len()
	bus.Publish(Event{Type: TypeSessionStarted, SessionID: "sess-2", Time: time.Now()})
	time.Sleep(10 * time.Millisecond)
	if buf.Len() != before {
		t.Fatalf("expected no forwarding after stop")
	}
}
