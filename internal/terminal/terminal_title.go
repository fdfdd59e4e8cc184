// Package terminal reflects a workspace's live assistant phase into the
// host terminal's title bar, so a user running gravitybridge in a visible
// pane can tell its state at a glance.
package terminal

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/kagebridge/gravitybridge/internal/monitor"
	"github.com/kagebridge/gravitybridge/internal/session"
)

// AgentState is the closed set of terminal-title states.
type AgentState string

const (
	StateReady          AgentState = "◇ Ready"
	StateWorking        AgentState = "✦ Working…"
	StateActionRequired AgentState = "✋ Action Required"
)

// currentState tracks the current terminal title state
var currentState AgentState = StateReady

// FromPhase maps a ResponseMonitor phase to a terminal title state.
func FromPhase(phase monitor.PhaseState) AgentState {
	switch phase {
	case monitor.PhaseThinking, monitor.PhaseGenerating:
		return StateWorking
	case monitor.PhaseWaiting, monitor.PhaseComplete, monitor.PhaseTimeout,
		monitor.PhaseQuotaReached, monitor.PhaseDisconnected:
		return StateReady
	default:
		return StateReady
	}
}

// FromUiEvent maps a SessionBridge UI event to a terminal title state.
// Approval and planning prompts both require the user's attention; errors do
// not change the title on their own (the chat transport already surfaces
// them).
func FromUiEvent(kind session.UiEventKind) (AgentState, bool) {
	switch kind {
	case session.UiEventApproval, session.UiEventPlanning:
		return StateActionRequired, true
	default:
		return "", false
	}
}

// SetTerminalTitle updates the terminal title with the agent state
// Uses ANSI escape sequence: \033]0;TITLE\007
func SetTerminalTitle(state AgentState) {
	currentState = state
	// Skip if not a TTY (e.g., piped output, CI environment)
	if !isTTY() {
		return
	}

	// OSC (Operating System Command) sequence for setting terminal title
	fmt.Fprintf(os.Stdout, "\033]0;gravitybridge %s\007", state)
}

// GetCurrentState returns the current terminal title state
func GetCurrentState() AgentState {
	return currentState
}

// ResetTerminalTitle resets the terminal title to default
func ResetTerminalTitle() {
	if !isTTY() {
		return
	}
	fmt.Fprintf(os.Stdout, "\033]0;gravitybridge\007")
}

// isTTY checks if stdout is a terminal
func isTTY() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
