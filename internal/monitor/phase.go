package monitor

// PhaseState is the closed set of states a ResponseMonitor can be in.
// Transitions are monotonic toward a terminal phase except Disconnected,
// which is re-entrant and always restores the phase that was active before
// the connection dropped.
type PhaseState string

const (
	PhaseWaiting      PhaseState = "waiting"
	PhaseThinking     PhaseState = "thinking"
	PhaseGenerating   PhaseState = "generating"
	PhaseComplete     PhaseState = "complete"
	PhaseTimeout      PhaseState = "timeout"
	PhaseQuotaReached PhaseState = "quotaReached"
	PhaseDisconnected PhaseState = "disconnected"
)

// Terminal reports whether phase is one of the three states a monitor never
// leaves once entered.
func (p PhaseState) Terminal() bool {
	switch p {
	case PhaseComplete, PhaseTimeout, PhaseQuotaReached:
		return true
	default:
		return false
	}
}
