// Package session implements SessionBridge, the unit of serialization
// binding one chat channel to one workspace's assistant chat session: it
// owns at most one active ResponseMonitor and one set of detectors, and
// routes events between the chat side and the CDP side.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/detector"
	"github.com/kagebridge/gravitybridge/internal/monitor"
)

// Attachment is an image file to upload alongside a prompt.
type Attachment struct {
	Path string
}

// Callbacks are the chat-facing hooks a SessionBridge drives. They run
// synchronously on whichever goroutine triggered them (monitor poll loop,
// detector poll loop); implementations must not block.
type Callbacks struct {
	OnProgress    func(text string)
	OnPhaseChange func(phase monitor.PhaseState)
	OnProcessLog  func(text string)
	OnComplete    func(finalText string)
	OnTimeout     func(lastText string)
	OnUserMessage func(text string)
	OnUiEvent     func(UiEventDescriptor)
}

// Config tunes one bridge's monitor, activation retries, and detector poll
// intervals.
type Config struct {
	// Title is the target assistant chat session's display title, used to
	// re-activate it before each prompt.
	Title            string
	Monitor          monitor.Config
	Activation       ActivationConfig
	DetectorInterval time.Duration
}

// SessionBridge is one channel's binding to one assistant chat session.
type SessionBridge struct {
	id     string
	client CdpClient
	cfg    Config
	cb     Callbacks
	echo   *EchoTable
	logger *log.Logger

	mu      sync.Mutex
	busy    bool
	running bool
	mon     *monitor.Monitor

	approvalDet *detector.ApprovalDetector
	planningDet *detector.PlanningDetector
	errorDet    *detector.ErrorPopupDetector
	userMsgDet  *detector.UserMessageDetector
}

// New builds a bridge bound to client. Detectors are constructed but not
// started; call Start to begin watching for UI events.
func New(client CdpClient, cfg Config, cb Callbacks, logger *log.Logger) *SessionBridge {
	if logger == nil {
		logger = log.Default()
	}
	cfg.Activation = cfg.Activation.withDefaults()

	id := uuid.NewString()
	b := &SessionBridge{
		id:     id,
		client: client,
		cfg:    cfg,
		cb:     cb,
		echo:   NewEchoTable(),
		logger: log.New(logger.Writer(), fmt.Sprintf("[session %s] ", id[:8]), logger.Flags()),
	}

	interval := cfg.DetectorInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	b.approvalDet = detector.NewApprovalDetector(client, interval, func(sig detector.Signal) {
		b.emitUiEvent(approvalDescriptor(sig))
	})
	b.planningDet = detector.NewPlanningDetector(client, interval, func(sig detector.Signal) {
		b.emitUiEvent(planningDescriptor(sig))
	})
	b.errorDet = detector.NewErrorPopupDetector(client, interval, func(sig detector.ErrorSignal) {
		b.emitUiEvent(errorDescriptor(sig))
	})
	b.userMsgDet = detector.NewUserMessageDetector(client, interval, b.echo, b.OnUserMessageFromUi)

	return b
}

// ID returns this bridge's unique identifier, for log correlation and
// dashboard display.
func (b *SessionBridge) ID() string {
	return b.id
}

// Start begins the bridge's always-on detectors (approval, planning, error
// popup, user message). Idempotent.
func (b *SessionBridge) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	b.approvalDet.Start()
	b.planningDet.Start()
	b.errorDet.Start()
	b.userMsgDet.Start()
}

// Shutdown stops detectors and any in-flight monitor. Use this for tearing
// the bridge down entirely; Stop (below) only halts the current reply.
func (b *SessionBridge) Shutdown() {
	b.mu.Lock()
	b.running = false
	mon := b.mon
	b.mu.Unlock()

	b.approvalDet.Stop()
	b.planningDet.Stop()
	b.errorDet.Stop()
	b.userMsgDet.Stop()
	if mon != nil {
		mon.Stop()
	}
}

// SubmitPrompt activates the target chat session, uploads any attachments,
// injects text, and starts a ResponseMonitor for the reply. Rejects with
// ErrBusy if a prompt is already in flight for this bridge.
func (b *SessionBridge) SubmitPrompt(ctx context.Context, text string, attachments []Attachment) error {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return ErrBusy
	}
	b.busy = true
	b.mu.Unlock()

	b.echo.Record(text)

	if err := b.activate(ctx, b.cfg.Title); err != nil {
		b.clearBusy()
		return err
	}

	for _, a := range attachments {
		if err := b.uploadFile(ctx, a); err != nil {
			b.clearBusy()
			return fmt.Errorf("session: upload %s: %w", a.Path, err)
		}
	}

	if err := b.injectMessage(ctx, text); err != nil {
		b.clearBusy()
		return fmt.Errorf("session: inject message: %w", err)
	}

	b.startMonitor()
	return nil
}

// Stop clicks the stop-generating affordance and returns to idle.
func (b *SessionBridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	mon := b.mon
	b.mu.Unlock()
	if mon == nil {
		return nil
	}
	_, _, err := mon.ClickStop(ctx)
	return err
}

func (b *SessionBridge) clearBusy() {
	b.mu.Lock()
	b.busy = false
	b.mu.Unlock()
}

func (b *SessionBridge) startMonitor() {
	cfg := b.cfg.Monitor
	mon := monitor.New(&cdpProber{client: b.client}, b.client, monitor.Callbacks{
		OnProgress: b.cb.OnProgress,
		OnPhaseChange: func(phase monitor.PhaseState, _ string) {
			if b.cb.OnPhaseChange != nil {
				b.cb.OnPhaseChange(phase)
			}
		},
		OnProcessLog: b.cb.OnProcessLog,
		OnComplete: func(finalText string) {
			b.clearBusy()
			if b.cb.OnComplete != nil {
				b.cb.OnComplete(finalText)
			}
		},
		OnTimeout: func(lastText string) {
			b.clearBusy()
			if b.cb.OnTimeout != nil {
				b.cb.OnTimeout(lastText)
			}
		},
	}, cfg, b.logger)

	b.mu.Lock()
	b.mon = mon
	b.mu.Unlock()

	_ = mon.Start(monitor.Active)
}

// OnUserMessageFromUi forwards a user message observed directly in the UI
// to the chat channel, unless it matches a recently bridge-submitted echo.
func (b *SessionBridge) OnUserMessageFromUi(text string) {
	if b.echo.IsEcho(text) {
		return
	}
	if b.cb.OnUserMessage != nil {
		b.cb.OnUserMessage(text)
	}
}

func (b *SessionBridge) emitUiEvent(ev UiEventDescriptor) {
	if b.cb.OnUiEvent != nil {
		b.cb.OnUiEvent(ev)
	}
}

// ApproveButton / DenyButton / plan and error-popup actions delegate to the
// owned detectors so a chat transport's button-click handler has a single
// bridge method to call regardless of which dialog fired.

func (b *SessionBridge) ApproveButton(ctx context.Context) (bool, error) {
	return b.approvalDet.ApproveButton(ctx)
}

func (b *SessionBridge) DenyButton(ctx context.Context) (bool, error) {
	return b.approvalDet.DenyButton(ctx)
}

func (b *SessionBridge) OpenPlan(ctx context.Context) (bool, error) {
	return b.planningDet.ClickOpenButton(ctx)
}

func (b *SessionBridge) ProceedPlan(ctx context.Context) (bool, error) {
	return b.planningDet.ClickProceedButton(ctx)
}

func (b *SessionBridge) DismissError(ctx context.Context) (bool, error) {
	return b.errorDet.ClickDismiss(ctx)
}

func (b *SessionBridge) RetryError(ctx context.Context) (bool, error) {
	return b.errorDet.ClickRetry(ctx)
}

func (b *SessionBridge) uploadFile(ctx context.Context, a Attachment) error {
	var doc struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}
	if err := b.callDecode(ctx, "DOM.getDocument", map[string]interface{}{"depth": 1}, &doc); err != nil {
		return err
	}

	var query struct {
		NodeID int `json:"nodeId"`
	}
	if err := b.callDecode(ctx, "DOM.querySelector", map[string]interface{}{
		"nodeId":   doc.Root.NodeID,
		"selector": "input[type=file]",
	}, &query); err != nil {
		return err
	}
	if query.NodeID == 0 {
		return fmt.Errorf("session: no file input found")
	}

	_, err := b.client.Call(ctx, "DOM.setFileInputFiles", map[string]interface{}{
		"files":  []string{a.Path},
		"nodeId": query.NodeID,
	}, cdp.CallOptions{})
	return err
}

// injectMessage types text via Input.insertText and submits with a
// synthetic Enter keypress. No DOM script dispatches synthetic
// input/change events itself; the upload primitive above fires those
// internally per spec.md §4.4.
func (b *SessionBridge) injectMessage(ctx context.Context, text string) error {
	if _, err := b.client.Call(ctx, "Input.insertText", map[string]interface{}{
		"text": text,
	}, cdp.CallOptions{}); err != nil {
		return err
	}
	for _, kind := range []string{"keyDown", "keyUp"} {
		params := map[string]interface{}{
			"type":                  kind,
			"key":                   "Enter",
			"code":                  "Enter",
			"windowsVirtualKeyCode": 13,
			"nativeVirtualKeyCode":  13,
		}
		if _, err := b.client.Call(ctx, "Input.dispatchKeyEvent", params, cdp.CallOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (b *SessionBridge) callDecode(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	raw, err := b.client.Call(ctx, method, params, cdp.CallOptions{})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
