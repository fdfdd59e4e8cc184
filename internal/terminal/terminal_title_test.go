package terminal

import (
	"os"
	"testing"

	"github.com/kagebridge/gravitybridge/internal/monitor"
	"github.com/kagebridge/gravitybridge/internal/session"
)

func TestAgentStateConstants(t *testing.T) {
	tests := []struct {
		state    AgentState
		expected string
	}{
		{StateReady, "◇ Ready"},
		{StateWorking, "✦ Working…"},
		{StateActionRequired, "✋ Action Required"},
	}

	for _, tt := range tests {
		if string(tt.state) != tt.expected {
			t.Errorf("AgentState %v = %q, want %q", tt.state, string(tt.state), tt.expected)
		}
	}
}

func TestGetCurrentState(t *testing.T) {
	// Reset to known state
	currentState = StateReady

	got := GetCurrentState()
	if got != StateReady {
		t.Errorf("GetCurrentState() = %v, want %v", got, StateReady)
	}
}

func TestSetTerminalTitle_UpdatesState(t *testing.T) {
	// Reset state
	currentState = StateReady

	// SetTerminalTitle should update internal state even if not TTY
	SetTerminalTitle(StateWorking)

	if currentState != StateWorking {
		t.Errorf("currentState after SetTerminalTitle = %v, want %v", currentState, StateWorking)
	}
}

func TestFromPhase(t *testing.T) {
	tests := []struct {
		phase monitor.PhaseState
		want  AgentState
	}{
		{monitor.PhaseWaiting, StateReady},
		{monitor.PhaseThinking, StateWorking},
		{monitor.PhaseGenerating, StateWorking},
		{monitor.PhaseComplete, StateReady},
		{monitor.PhaseTimeout, StateReady},
		{monitor.PhaseQuotaReached, StateReady},
		{monitor.PhaseDisconnected, StateReady},
	}
	for _, tt := range tests {
		if got := FromPhase(tt.phase); got != tt.want {
			t.Errorf("FromPhase(%v) = %v, want %v", tt.phase, got, tt.want)
		}
	}
}

func TestFromUiEvent(t *testing.T) {
	if got, ok := FromUiEvent(session.UiEventApproval); !ok || got != StateActionRequired {
		t.Errorf("FromUiEvent(approval) = (%v, %v), want (%v, true)", got, ok, StateActionRequired)
	}
	if got, ok := FromUiEvent(session.UiEventPlanning); !ok || got != StateActionRequired {
		t.Errorf("FromUiEvent(planning) = (%v, %v), want (%v, true)", got, ok, StateActionRequired)
	}
	if _, ok := FromUiEvent(session.UiEventError); ok {
		t.Error("FromUiEvent(error) = ok true, want false")
	}
}

func TestIsTTY(t *testing.T) {
	// When running in test environment, typically not a TTY
	// Just ensure it doesn't panic
	result := isTTY()
	_ = result // We can't assert the value as it depends on environment
}

func TestSetTerminalTitle_NonTTY(t *testing.T) {
	// Save original stdout
	oldStdout := os.Stdout

	// Create a pipe (not a TTY)
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Should not panic even when not TTY
	SetTerminalTitle(StateActionRequired)

	// Restore
	os.Stdout = oldStdout
	w.Close()
	r.Close()

	// State should still be updated internally
	if currentState != StateActionRequired {
		t.Errorf("currentState = %v, want %v", currentState, StateActionRequired)
	}
}
