package memdiag

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRead(t *testing.T) {
	s := Read()
	if s.HeapAlloc == 0 || s.Sys == 0 {
		t.Errorf("expected non-zero stats, got %+v", s)
	}
}

func TestTrackerDisabled(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{}, zerolog.New(&buf))
	tr.Start()
	tr.SetPhase("load")
	tr.LogWithBudget("after", 1)
	tr.Stop()

	if buf.Len() != 0 {
		t.Errorf("disabled tracker logged: %s", buf.String())
	}
	if tr.PeakHeap() != 0 {
		t.Errorf("disabled tracker sampled heap")
	}
}

func TestTrackerPhases(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{Enabled: true}, zerolog.New(&buf).Level(zerolog.DebugLevel))

	tr.SetPhase("aggregate")
	tr.LogWithBudget("after_aggregate", 1)

	out := buf.String()
	for _, want := range []string{`"phase":"aggregate"`, "memory stats with budget", "heap usage exceeds memory budget"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
	if tr.PeakHeap() == 0 {
		t.Error("expected peak heap to be recorded")
	}
}

func TestTrackerPeriodic(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(Config{Enabled: true, LogInterval: time.Millisecond}, zerolog.New(&buf).Level(zerolog.DebugLevel))
	tr.Start()
	time.Sleep(10 * time.Millisecond)
	tr.Stop()

	if !strings.Contains(buf.String(), `"reason":"shutdown"`) {
		t.Errorf("expected shutdown snapshot:\n%s", buf.String())
	}
}
