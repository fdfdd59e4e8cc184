package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagebridge/gravitybridge/internal/chat"
	"github.com/kagebridge/gravitybridge/internal/config"
	"github.com/kagebridge/gravitybridge/internal/monitor"
	"github.com/kagebridge/gravitybridge/internal/pool"
	"github.com/kagebridge/gravitybridge/internal/progress"
	"github.com/kagebridge/gravitybridge/internal/repo"
	"github.com/kagebridge/gravitybridge/internal/session"
	"github.com/kagebridge/gravitybridge/internal/terminal"
	"github.com/kagebridge/gravitybridge/internal/tui"
)

// daemon wires the chat transports, the persistent repository, and the
// per-workspace CdpPool together. It is the runtime body of both `start` and
// `open` (open additionally attaches a tui dashboard).
type daemon struct {
	settings   config.Settings
	repo       repo.Repository
	transports []chat.ChatTransport
	logger     *log.Logger

	pool *pool.CdpPool

	mu      sync.Mutex
	pending map[string]pendingBind // workspace -> the channel/transport that triggered its first connect
	sinks   map[string]*progress.Sink

	statusCh chan tea.Msg // non-nil only when a dashboard is attached
}

type pendingBind struct {
	channel   string
	transport chat.ChatTransport
}

func newDaemon(settings config.Settings, r repo.Repository, logger *log.Logger) *daemon {
	if logger == nil {
		logger = log.Default()
	}
	d := &daemon{
		settings: settings,
		repo:     r,
		logger:   logger,
		pending:  make(map[string]pendingBind),
		sinks:    make(map[string]*progress.Sink),
	}

	if settings.Chat.DiscordToken != "" {
		if t, err := chat.NewDiscordTransport(settings.Chat.DiscordToken, ""); err != nil {
			logger.Printf("bridge: discord transport disabled: %v", err)
		} else {
			d.transports = append(d.transports, t)
		}
	}
	if settings.Chat.TelegramToken != "" {
		if t, err := chat.NewTelegramTransport(settings.Chat.TelegramToken, settings.Chat.AllowedUserIDs); err != nil {
			logger.Printf("bridge: telegram transport disabled: %v", err)
		} else {
			d.transports = append(d.transports, t)
		}
	}

	d.pool = pool.New(settings.Discovery.Ports, d.buildBridge, logger)
	return d
}

// attachDashboard gives the daemon a channel to push tui status updates to.
// Must be called before Run.
func (d *daemon) attachDashboard(ch chan tea.Msg) {
	d.statusCh = ch
}

// Run registers handlers and starts every configured transport. It blocks
// until ctx is canceled, then releases every connected workspace.
func (d *daemon) Run(ctx context.Context) error {
	if len(d.transports) == 0 {
		return fmt.Errorf("bridge: no chat transport configured; run 'gravitybridge setup' first")
	}

	for _, t := range d.transports {
		t := t
		t.OnIncomingMessage(func(msg chat.IncomingMessage) { d.handleIncoming(ctx, t, msg) })
		t.OnButtonClick(func(click chat.ButtonClick) { d.handleButtonClick(ctx, t, click) })
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("bridge: start transport: %w", err)
		}
		defer t.Stop()
	}

	<-ctx.Done()
	d.pool.ReleaseAll()
	return nil
}

// handleIncoming routes a plain chat message. "!bind <path>" is the only
// admin command this bridge understands directly — slash-command parsing
// proper belongs to the chat transport, per spec.md §6, and is out of this
// repo's scope.
func (d *daemon) handleIncoming(ctx context.Context, t chat.ChatTransport, msg chat.IncomingMessage) {
	if path, ok := strings.CutPrefix(msg.Text, "!bind "); ok {
		path = strings.TrimSpace(path)
		if err := d.repo.SetWorkspaceBinding(ctx, msg.Channel, repo.WorkspaceBinding{WorkspacePath: path}); err != nil {
			t.SendMessage(ctx, msg.Channel, "failed to bind workspace: "+err.Error())
			return
		}
		t.SendMessage(ctx, msg.Channel, "bound to "+path)
		return
	}

	binding, ok, err := d.repo.GetWorkspaceBinding(ctx, msg.Channel)
	if err != nil || !ok {
		t.SendMessage(ctx, msg.Channel, "no workspace bound to this channel yet; send \"!bind <path>\" first")
		return
	}

	d.mu.Lock()
	d.pending[pool.NormalizeWorkspace(binding.WorkspacePath)] = pendingBind{channel: msg.Channel, transport: t}
	d.mu.Unlock()

	bridge, err := d.pool.GetOrConnect(ctx, binding.WorkspacePath)
	if err != nil {
		t.SendMessage(ctx, msg.Channel, "could not reach the assistant: "+err.Error())
		return
	}

	if err := bridge.SubmitPrompt(ctx, msg.Text, nil); err != nil {
		t.SendMessage(ctx, msg.Channel, "could not submit prompt: "+err.Error())
	}
}

func (d *daemon) handleButtonClick(ctx context.Context, t chat.ChatTransport, click chat.ButtonClick) {
	binding, ok, err := d.repo.GetWorkspaceBinding(ctx, click.Channel)
	if err != nil || !ok {
		return
	}
	bridge, err := d.pool.GetOrConnect(ctx, binding.WorkspacePath)
	if err != nil {
		return
	}

	kind, idx, ok := parseButtonData(click.Data)
	if !ok {
		return
	}

	var acted bool
	var actErr error
	switch session.UiEventKind(kind) {
	case session.UiEventApproval:
		if idx == 0 {
			acted, actErr = bridge.ApproveButton(ctx)
		} else {
			acted, actErr = bridge.DenyButton(ctx)
		}
	case session.UiEventPlanning:
		if idx == 0 {
			acted, actErr = bridge.OpenPlan(ctx)
		} else {
			acted, actErr = bridge.ProceedPlan(ctx)
		}
	case session.UiEventError:
		switch idx {
		case 0:
			acted, actErr = bridge.DismissError(ctx)
		case 1:
			acted, actErr = bridge.RetryError(ctx)
		default:
			t.SendMessage(ctx, click.Channel, "debug info is attached to the original alert message")
			return
		}
	}

	if actErr != nil {
		t.SendMessage(ctx, click.Channel, "action failed: "+actErr.Error())
	} else if !acted {
		t.SendMessage(ctx, click.Channel, "nothing to act on anymore")
	}
}

func buttonData(kind session.UiEventKind, idx int) string {
	return string(kind) + "|" + strconv.Itoa(idx)
}

func parseButtonData(data string) (kind string, idx int, ok bool) {
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, false
	}
	return parts[0], n, true
}

// buildBridge is the pool.BridgeFactory: it consults the pendingBind left by
// whichever channel triggered this workspace's first connect, and wires the
// resulting SessionBridge's callbacks to that channel's transport.
func (d *daemon) buildBridge(workspace string) (session.Config, session.Callbacks, error) {
	d.mu.Lock()
	pb, ok := d.pending[workspace]
	delete(d.pending, workspace)
	d.mu.Unlock()
	if !ok {
		return session.Config{}, session.Callbacks{}, fmt.Errorf("bridge: no channel bound workspace %q before connect", workspace)
	}

	sink := progress.New(pb.transport, pb.channel, progress.Config{})
	d.mu.Lock()
	d.sinks[pb.channel] = sink
	d.mu.Unlock()

	cfg := session.Config{
		Title: workspace,
		Monitor: monitor.Config{
			PollInterval:  time.Duration(d.settings.Poll.MonitorIntervalMs) * time.Millisecond,
			MaxInactivity: time.Duration(d.settings.Poll.MaxInactivityMs) * time.Millisecond,
		},
		DetectorInterval: time.Duration(d.settings.Poll.DetectorIntervalMs) * time.Millisecond,
	}

	cb := session.Callbacks{
		OnProgress: func(text string) {
			_ = sink.Append(context.Background(), text)
		},
		OnPhaseChange: func(phase monitor.PhaseState) {
			terminal.SetTerminalTitle(terminal.FromPhase(phase))
			d.pushStatus(workspace, phase, "")
		},
		OnComplete: func(finalText string) {
			_ = sink.ForceEmit(context.Background())
			sink.Reset()
		},
		OnTimeout: func(lastText string) {
			sink.Reset()
			_, _ = pb.transport.SendMessage(context.Background(), pb.channel, "the assistant stopped responding; last seen: "+lastText)
		},
		OnUserMessage: func(text string) {
			_, _ = pb.transport.SendMessage(context.Background(), pb.channel, text)
		},
		OnUiEvent: func(ev session.UiEventDescriptor) {
			d.handleUiEvent(workspace, pb.channel, pb.transport, ev)
		},
	}

	return cfg, cb, nil
}

func (d *daemon) handleUiEvent(workspace, channel string, t chat.ChatTransport, ev session.UiEventDescriptor) {
	ctx := context.Background()
	if state, ok := terminal.FromUiEvent(ev.Kind); ok {
		terminal.SetTerminalTitle(state)
	}
	d.pushStatus(workspace, "", string(ev.Kind))

	buttons := make([]chat.Button, len(ev.ButtonLabels))
	for i, label := range ev.ButtonLabels {
		buttons[i] = chat.Button{Label: label, Data: buttonData(ev.Kind, i)}
	}
	_, _ = t.SendRich(ctx, channel, chat.Embed{Title: ev.Title, Description: ev.Body}, buttons)
}

// pushStatus is a no-op unless a dashboard is attached. phase may be the
// zero value when the update is event-driven rather than phase-driven.
func (d *daemon) pushStatus(workspace string, phase monitor.PhaseState, lastEvent string) {
	if d.statusCh == nil {
		return
	}
	select {
	case d.statusCh <- tui.StatusMsg{Workspace: workspace, Phase: phase, LastEvent: lastEvent}:
	default:
	}
}
