package monitor

import (
	"sync"
	"testing"
	"time"
)

// probeStep is one scripted (stop, quota, text) tuple fed to applyProbe
// directly, bypassing the Prober interface so tests can drive the exact
// tuples spec.md's scenarios enumerate without a ticker in the loop.
type probeStep struct {
	stop  bool
	quota bool
	text  string
}

type recorder struct {
	mu         sync.Mutex
	progress   []string
	phases     []PhaseState
	processLog []string
	complete   []string
	completed  bool
	timeout    []string
	timedOut   bool
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnProgress: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, text)
		},
		OnPhaseChange: func(phase PhaseState, _ string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.phases = append(r.phases, phase)
		},
		OnProcessLog: func(joined string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.processLog = append(r.processLog, joined)
		},
		OnComplete: func(final string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.complete = append(r.complete, final)
			r.completed = true
		},
		OnTimeout: func(last string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.timeout = append(r.timeout, last)
			r.timedOut = true
		},
	}
}

func newTestMonitor(rec *recorder, cfg Config) *Monitor {
	m := New(nil, nil, rec.callbacks(), cfg, nil)
	m.cursor = newCursor(cfg.withDefaults().SeenLogKeyCapacity)
	m.phase = PhaseWaiting
	m.cfg = cfg.withDefaults()
	return m
}

func drive(m *Monitor, steps []probeStep) {
	for _, s := range steps {
		if m.applyProbe(s.stop, s.quota, s.text, nil) {
			return
		}
	}
}

// TestS1HappyPath matches spec scenario S1: baseline "prev", then a run of
// stop/text tuples ending in three consecutive stop=false polls.
func TestS1HappyPath(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{StopGoneConfirmCount: 3})

	// Priming poll establishes the baseline "prev" without emitting.
	m.applyProbe(false, false, "prev", nil)

	drive(m, []probeStep{
		{stop: true, text: "A"},
		{stop: true, text: "AB"},
		{stop: true, text: "AB"},
		{stop: false, text: "AB"},
		{stop: false, text: "AB"},
		{stop: false, text: "AB"},
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()

	wantPhases := []PhaseState{PhaseThinking, PhaseGenerating, PhaseComplete}
	if len(rec.phases) != len(wantPhases) {
		t.Fatalf("phases = %v, want %v", rec.phases, wantPhases)
	}
	for i, p := range wantPhases {
		if rec.phases[i] != p {
			t.Errorf("phase[%d] = %s, want %s", i, rec.phases[i], p)
		}
	}

	wantProgress := []string{"A", "AB"}
	if len(rec.progress) != len(wantProgress) {
		t.Fatalf("progress = %v, want %v", rec.progress, wantProgress)
	}
	for i, p := range wantProgress {
		if rec.progress[i] != p {
			t.Errorf("progress[%d] = %q, want %q", i, rec.progress[i], p)
		}
	}

	if len(rec.complete) != 1 || rec.complete[0] != "AB" {
		t.Fatalf("complete = %v, want [\"AB\"]", rec.complete)
	}
}

// TestS2QuotaEarly matches spec scenario S2: the very first poll reports
// quota exhaustion with no text. Expect immediate quotaReached and an
// empty-string onComplete.
func TestS2QuotaEarly(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{})

	terminal := m.applyProbe(false, true, "", nil)
	if !terminal {
		t.Fatal("expected applyProbe to report terminal on immediate quota")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.phases) != 1 || rec.phases[0] != PhaseQuotaReached {
		t.Fatalf("phases = %v, want [quotaReached]", rec.phases)
	}
	if len(rec.complete) != 1 || rec.complete[0] != "" {
		t.Fatalf("complete = %v, want [\"\"]", rec.complete)
	}
	if len(rec.progress) != 0 {
		t.Fatalf("progress = %v, want none", rec.progress)
	}
}

// TestS3DisconnectMidFlight matches spec scenario S3: after partial text,
// a disconnect pauses the monitor; reconnect restores the prior phase, and
// reconnectFailed produces onTimeout with the last text seen.
func TestS3DisconnectMidFlight(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{})

	m.applyProbe(false, false, "", nil)       // baseline
	m.applyProbe(true, false, "", nil)        // stop-button up -> thinking
	m.applyProbe(true, false, "partial", nil) // new text -> generating
	if m.Phase() != PhaseGenerating {
		t.Fatalf("phase = %s, want generating", m.Phase())
	}

	m.onDisconnected()
	if m.Phase() != PhaseDisconnected {
		t.Fatalf("phase = %s, want disconnected", m.Phase())
	}

	// Polling pauses: tick() must not issue probes while disconnected.
	if terminal := m.tick(nil); terminal {
		t.Fatal("tick should not reach a terminal phase while disconnected")
	}

	m.onReconnected()
	if m.Phase() != PhaseGenerating {
		t.Fatalf("phase after reconnect = %s, want restored generating", m.Phase())
	}

	m.onDisconnected()
	m.onReconnectFailed()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.timeout) == 0 || rec.timeout[len(rec.timeout)-1] != "partial" {
		t.Fatalf("timeout payload = %v, want last entry \"partial\"", rec.timeout)
	}
	if m.Phase() != PhaseTimeout {
		t.Fatalf("phase = %s, want timeout", m.Phase())
	}
}

// TestMonotonePhases verifies property 3: a monitor never leaves a
// terminal phase for anything but itself, and a disconnect after a terminal
// phase is ignored. Restoring the prior phase on reconnect is covered by
// TestS3DisconnectMidFlight.
func TestMonotonePhases(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{StopGoneConfirmCount: 1})

	m.applyProbe(false, false, "", nil)
	m.applyProbe(false, true, "", nil) // quota with no text -> terminal

	if m.Phase() != PhaseQuotaReached {
		t.Fatalf("phase = %s, want quotaReached", m.Phase())
	}

	// Further probes must not move the phase off its terminal state.
	m.applyProbe(true, false, "more text", nil)
	if m.Phase() != PhaseQuotaReached {
		t.Fatalf("phase moved off terminal state to %s", m.Phase())
	}

	// A disconnect notification must also be ignored once terminal.
	m.onDisconnected()
	if m.Phase() != PhaseQuotaReached {
		t.Fatalf("disconnected moved a terminal phase to %s", m.Phase())
	}
}

// TestStopGoneCounting verifies property 4: completion fires iff the stop
// probe returns false on stopGoneConfirmCount consecutive polls, and
// interleaved text changes do not reset the counter.
func TestStopGoneCounting(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{StopGoneConfirmCount: 3})

	m.applyProbe(false, false, "base", nil)
	m.applyProbe(true, false, "", nil)     // stop-button up -> thinking
	m.applyProbe(true, false, "gen1", nil) // new text -> generating

	if terminal := m.applyProbe(false, false, "gen2", nil); terminal {
		t.Fatal("completed after only one stop-gone poll")
	}
	if terminal := m.applyProbe(false, false, "gen2", nil); terminal {
		t.Fatal("completed after only two stop-gone polls")
	}
	// A text change on the third stop-gone poll must not reset the count.
	terminal := m.applyProbe(false, false, "gen3-changed", nil)
	if !terminal {
		t.Fatal("expected completion on the third consecutive stop-gone poll")
	}
	if m.Phase() != PhaseComplete {
		t.Fatalf("phase = %s, want complete", m.Phase())
	}
}

// TestBaselineSuppression verifies property 5: a first probe identical to
// baseline is not reported via onProgress, but completion can still fire
// with an empty final text when no new text ever arrives. This models a
// session rejoined already generating (Passive start) whose text never
// diverges from what was already on screen.
func TestBaselineSuppression(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{StopGoneConfirmCount: 3})
	m.phase = PhaseGenerating

	drive(m, []probeStep{
		{stop: true, text: "same"},  // captures baseline == "same"
		{stop: false, text: "same"}, // stop-gone 1, text unchanged
		{stop: false, text: "same"}, // stop-gone 2
		{stop: false, text: "same"}, // stop-gone 3 -> complete
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if len(rec.progress) != 0 {
		t.Fatalf("onProgress called %d times for baseline-identical text, want 0", len(rec.progress))
	}
	if len(rec.complete) != 1 || rec.complete[0] != "" {
		t.Fatalf("complete = %v, want [\"\"] (no text ever emitted)", rec.complete)
	}
}

// TestInactivityTimeout verifies property 6: a timeout fires only after
// MaxInactivity elapses with no observed text change, and any change
// resets the inactivity window.
func TestInactivityTimeout(t *testing.T) {
	rec := &recorder{}
	m := newTestMonitor(rec, Config{MaxInactivity: 30 * time.Millisecond})

	m.applyProbe(true, false, "base", nil)
	m.applyProbe(true, false, "changed", nil) // resets lastTextChangeAt

	if terminal := m.applyProbe(true, false, "changed", nil); terminal {
		t.Fatal("timed out immediately after a fresh text change")
	}

	time.Sleep(40 * time.Millisecond)

	terminal := m.applyProbe(true, false, "changed", nil)
	if !terminal {
		t.Fatal("expected timeout after inactivity window elapsed")
	}
	if m.Phase() != PhaseTimeout {
		t.Fatalf("phase = %s, want timeout", m.Phase())
	}
	if len(rec.timeout) != 1 || rec.timeout[0] != "changed" {
		t.Fatalf("timeout payload = %v, want [\"changed\"]", rec.timeout)
	}
}

func TestPhaseStateTerminal(t *testing.T) {
	cases := map[PhaseState]bool{
		PhaseWaiting:      false,
		PhaseThinking:     false,
		PhaseGenerating:   false,
		PhaseDisconnected: false,
		PhaseComplete:     true,
		PhaseTimeout:      true,
		PhaseQuotaReached: true,
	}
	for phase, want := range cases {
		if got := phase.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", phase, got, want)
		}
	}
}
