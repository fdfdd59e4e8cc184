// Package monitor drives one in-progress assistant reply through DOM probes
// until it terminates, exposing phase transitions and streamed text to an
// owner (a SessionBridge) via callbacks.
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/format"
)

// StartMode controls how Start seeds the monitor's cursor.
type StartMode int

const (
	// Active begins from a clean state: the first probe's text becomes the
	// suppressed baseline.
	Active StartMode = iota
	// Passive assumes generation may already be in flight — used when
	// rejoining a session whose prompt was submitted before this process
	// attached (e.g. after a reconnect).
	Passive
)

// Prober is the DOM-probing surface a monitor polls each cycle. It exists
// as an interface so the phase-transition logic can be driven by scripted
// fakes in tests instead of a live CDP round trip.
type Prober interface {
	// StopButton reports whether the "stop generating" affordance is
	// currently visible.
	StopButton(ctx context.Context) (isGenerating bool, err error)
	// Quota reports whether a quota-exhaustion banner is visible.
	Quota(ctx context.Context) (exhausted bool, err error)
	// Text returns the current response text and any activity lines the
	// structured extractor bundled with it (nil if the legacy extractor
	// was used, in which case the monitor falls back to ProcessLog).
	Text(ctx context.Context) (text string, activityLines []string, structured bool, err error)
	// ProcessLog returns short activity strings when Text did not supply
	// any (legacy extraction mode).
	ProcessLog(ctx context.Context) ([]string, error)
	// ClickStop evaluates the stop-button click script.
	ClickStop(ctx context.Context) (ok bool, method string, err error)
}

// Events is the subset of *cdp.Client a monitor needs: subscribing to and
// unsubscribing from connection lifecycle notifications.
type Events interface {
	Subscribe(event string, handler func(json.RawMessage)) cdp.SubscriptionHandle
	Unsubscribe(handle cdp.SubscriptionHandle)
}

// Callbacks run synchronously (some while m.mu is held), on the monitor's
// poll goroutine or, for phase changes and timeouts caused by connection
// lifecycle events, on the goroutine delivering that event; implementations
// must not block and must not call back into the Monitor that invoked them.
type Callbacks struct {
	OnProgress    func(text string)
	OnPhaseChange func(phase PhaseState, text string)
	OnProcessLog  func(joinedNewLines string)
	OnComplete    func(finalText string)
	OnTimeout     func(lastText string)
}

// Config tunes the poll cycle. Zero values take the spec's defaults.
type Config struct {
	PollInterval         time.Duration
	StopGoneConfirmCount int
	MaxInactivity        time.Duration
	SeenLogKeyCapacity   int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 2000 * time.Millisecond
	}
	if c.StopGoneConfirmCount <= 0 {
		c.StopGoneConfirmCount = 3
	}
	if c.MaxInactivity <= 0 {
		c.MaxInactivity = 5 * time.Minute
	}
	if c.SeenLogKeyCapacity <= 0 {
		c.SeenLogKeyCapacity = 300
	}
	return c
}

// Monitor is one ResponseMonitor instance, scoped to a single prompt.
type Monitor struct {
	prober Prober
	events Events
	cb     Callbacks
	cfg    Config
	logger *log.Logger

	mu               sync.Mutex
	phase            PhaseState
	prePauseHasPhase bool
	prePausePhase    PhaseState
	cursor           *cursor
	running          bool

	cancel context.CancelFunc
	subs   []cdp.SubscriptionHandle
}

// New builds a monitor. prober and events are typically backed by a real
// *cdp.Client but accept fakes for testing.
func New(prober Prober, events Events, cb Callbacks, cfg Config, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		prober: prober,
		events: events,
		cb:     cb,
		cfg:    cfg.withDefaults(),
		logger: logger,
		phase:  PhaseWaiting,
	}
}

// Phase returns the current phase under lock.
func (m *Monitor) Phase() PhaseState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// LastText returns the last text observed, if any.
func (m *Monitor) LastText() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor == nil || !m.cursor.haveEmitted {
		return "", false
	}
	return m.cursor.lastEmittedText, true
}

// QuotaDetected reports whether a quota banner was seen during this run.
func (m *Monitor) QuotaDetected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor != nil && m.cursor.quotaDetected
}

// Start begins polling. Calling it again while the monitor is running does
// nothing and returns nil.
func (m *Monitor) Start(mode StartMode) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.cursor = newCursor(m.cfg.SeenLogKeyCapacity)
	if mode == Passive {
		m.phase = PhaseGenerating
	} else {
		m.phase = PhaseWaiting
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	if m.events != nil {
		m.subs = []cdp.SubscriptionHandle{
			m.events.Subscribe(cdp.EventDisconnected, func(json.RawMessage) { m.onDisconnected() }),
			m.events.Subscribe(cdp.EventReconnected, func(json.RawMessage) { m.onReconnected() }),
			m.events.Subscribe(cdp.EventReconnectFailed, func(json.RawMessage) { m.onReconnectFailed() }),
		}
	}

	go m.loop(ctx)
	return nil
}

// Stop idempotently halts polling. In-flight probe calls are allowed to
// settle (bounded by their own timeouts); their results are discarded.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if m.events != nil {
		for _, s := range m.subs {
			m.events.Unsubscribe(s)
		}
	}
}

// ClickStop evaluates the stop-button click script directly, independent of
// the poll cycle.
func (m *Monitor) ClickStop(ctx context.Context) (bool, string, error) {
	return m.prober.ClickStop(ctx)
}

func (m *Monitor) onDisconnected() {
	m.mu.Lock()
	if m.phase.Terminal() || m.phase == PhaseDisconnected {
		m.mu.Unlock()
		return
	}
	m.prePausePhase = m.phase
	m.prePauseHasPhase = true
	m.setPhaseLocked(PhaseDisconnected, "")
	m.mu.Unlock()
}

func (m *Monitor) onReconnected() {
	m.mu.Lock()
	if m.phase != PhaseDisconnected {
		m.mu.Unlock()
		return
	}
	restored := PhaseWaiting
	if m.prePauseHasPhase {
		restored = m.prePausePhase
	}
	m.setPhaseLocked(restored, "")
	m.mu.Unlock()
}

func (m *Monitor) onReconnectFailed() {
	m.mu.Lock()
	if m.phase.Terminal() {
		m.mu.Unlock()
		return
	}
	lastText := ""
	if m.cursor != nil {
		lastText = m.cursor.lastEmittedText
	}
	m.setPhaseLocked(PhaseTimeout, "")
	m.mu.Unlock()

	if m.cb.OnTimeout != nil {
		m.cb.OnTimeout(lastText)
	}
	m.Stop()
}

// setPhaseLocked updates the phase and fires OnPhaseChange. Caller must
// hold m.mu.
func (m *Monitor) setPhaseLocked(phase PhaseState, text string) {
	if m.phase == phase {
		return
	}
	m.phase = phase
	if m.cb.OnPhaseChange != nil {
		m.cb.OnPhaseChange(phase, text)
	}
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.tick(ctx) {
				return
			}
		}
	}
}

// tick runs one poll cycle and returns true if the monitor reached a
// terminal phase and the loop should stop.
func (m *Monitor) tick(ctx context.Context) bool {
	m.mu.Lock()
	phase := m.phase
	m.mu.Unlock()
	if phase.Terminal() || phase == PhaseDisconnected {
		return phase.Terminal()
	}

	isGenerating, err := m.prober.StopButton(ctx)
	if err != nil {
		m.logger.Printf("monitor: stop-button probe error: %v", err)
		return false // a failed probe is a no-op: no state change this cycle
	}

	quota, err := m.prober.Quota(ctx)
	if err != nil {
		m.logger.Printf("monitor: quota probe error: %v", err)
		quota = false
	}

	text, activity, structured, err := m.prober.Text(ctx)
	if err != nil {
		m.logger.Printf("monitor: text probe error: %v", err)
	}

	var logLines []string
	if structured {
		logLines = activity
	} else if lines, err := m.prober.ProcessLog(ctx); err == nil {
		// The legacy extractor scrapes a live DOM node that can still carry
		// spinner/progress-bar control characters; the structured extractor
		// never does, since it reads parsed segments instead.
		logLines = make([]string, len(lines))
		for i, line := range lines {
			logLines[i] = format.ProcessTerminalOutput(line)
		}
	}

	return m.applyProbe(isGenerating, quota, text, logLines)
}

// applyProbe is the pure state-transition core: given one cycle's probe
// results, update phase/cursor and fire callbacks. Split out from tick so
// tests can drive it directly with scripted probe tuples.
func (m *Monitor) applyProbe(isGenerating, quota bool, text string, logLines []string) (terminal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.cursor

	if !c.haveBaseline {
		c.baselineText = text
		c.haveBaseline = true
	}

	textChanged := text != "" && text != c.baselineText && (!c.haveEmitted || text != c.lastEmittedText)
	if textChanged {
		c.lastEmittedText = text
		c.haveEmitted = true
		c.lastTextChangeAt = time.Now()
		if m.cb.OnProgress != nil {
			m.cb.OnProgress(text)
		}
	}

	if len(logLines) > 0 {
		var fresh []string
		for _, line := range logLines {
			if c.seenLogKeys.addIfNew(logKey(line)) {
				fresh = append(fresh, line)
			}
		}
		if len(fresh) > 0 && m.cb.OnProcessLog != nil {
			joined := strings.Join(fresh, "\n\n")
			m.cb.OnProcessLog(joined)
		}
	}

	if quota {
		c.quotaDetected = true
		if !c.haveEmitted {
			m.setPhaseLocked(PhaseQuotaReached, "")
			if m.cb.OnComplete != nil {
				m.cb.OnComplete("")
			}
			return true
		}
	}

	switch m.phase {
	case PhaseWaiting:
		if isGenerating {
			m.setPhaseLocked(PhaseThinking, "")
		} else if textChanged {
			m.setPhaseLocked(PhaseGenerating, "")
		}
	case PhaseThinking:
		if textChanged {
			m.setPhaseLocked(PhaseGenerating, "")
		}
	case PhaseGenerating:
		// fallthrough to stop-gone counting below
	}

	if m.phase == PhaseGenerating {
		if !isGenerating {
			c.stopGoneCount++
		} else {
			c.stopGoneCount = 0
		}
		if c.stopGoneCount >= m.cfg.StopGoneConfirmCount {
			m.setPhaseLocked(PhaseComplete, "")
			final := c.lastEmittedText
			if m.cb.OnComplete != nil {
				m.cb.OnComplete(final)
			}
			return true
		}
	}

	if !c.lastTextChangeAt.IsZero() {
		if time.Since(c.lastTextChangeAt) >= m.cfg.MaxInactivity {
			m.setPhaseLocked(PhaseTimeout, "")
			if m.cb.OnTimeout != nil {
				m.cb.OnTimeout(c.lastEmittedText)
			}
			return true
		}
	} else if time.Since(c.createdAt) >= m.cfg.MaxInactivity {
		// no text change has ever been observed; inactivity is measured
		// from the monitor's start since lastTextChangeAt is still zero.
		m.setPhaseLocked(PhaseTimeout, "")
		if m.cb.OnTimeout != nil {
			m.cb.OnTimeout(c.lastEmittedText)
		}
		return true
	}

	return false
}
