package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kagebridge/gravitybridge/internal/monitor"
)

func TestUpdateStatusMsgAddsRow(t *testing.T) {
	m := NewModel(make(chan tea.Msg, 1))

	now := time.Now()
	newM, _ := m.Update(StatusMsg{Workspace: "widget-api", Phase: monitor.PhaseGenerating, UpdatedAt: now})
	model := newM.(Model)

	if len(model.order) != 1 || model.order[0] != "widget-api" {
		t.Fatalf("order = %v, want [widget-api]", model.order)
	}
	row := model.rows["widget-api"]
	if row == nil || row.phase != monitor.PhaseGenerating {
		t.Fatalf("rows[widget-api] = %+v, want phase generating", row)
	}
}

func TestUpdateStatusMsgPreservesLastEventWhenEmpty(t *testing.T) {
	m := NewModel(make(chan tea.Msg, 1))

	newM, _ := m.Update(StatusMsg{Workspace: "widget-api", Phase: monitor.PhaseThinking, LastEvent: "approval requested"})
	model := newM.(Model)

	newM2, _ := model.Update(StatusMsg{Workspace: "widget-api", Phase: monitor.PhaseGenerating})
	model2 := newM2.(Model)

	if model2.rows["widget-api"].lastEvent != "approval requested" {
		t.Errorf("lastEvent = %q, want %q", model2.rows["widget-api"].lastEvent, "approval requested")
	}
}

func TestUpdateReconnectMsgMarksDisconnected(t *testing.T) {
	m := NewModel(make(chan tea.Msg, 1))
	m.upsertRow("widget-api")

	newM, _ := m.Update(ReconnectMsg{Workspace: "widget-api", Reconnected: false, Attempt: 2})
	model := newM.(Model)

	if model.rows["widget-api"].phase != monitor.PhaseDisconnected {
		t.Errorf("phase = %v, want disconnected", model.rows["widget-api"].phase)
	}
	if model.rows["widget-api"].reconnectAt == "" {
		t.Error("reconnectAt not set after a reconnect attempt")
	}
}

func TestUpdateReconnectMsgClearsOnSuccess(t *testing.T) {
	m := NewModel(make(chan tea.Msg, 1))
	m.upsertRow("widget-api").phase = monitor.PhaseDisconnected

	newM, _ := m.Update(ReconnectMsg{Workspace: "widget-api", Reconnected: true})
	model := newM.(Model)

	if model.rows["widget-api"].phase != monitor.PhaseWaiting {
		t.Errorf("phase = %v, want waiting after successful reconnect", model.rows["widget-api"].phase)
	}
}

func TestUpdateQuitOnKey(t *testing.T) {
	m := NewModel(make(chan tea.Msg, 1))

	newM, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	model := newM.(Model)

	if !model.quitting {
		t.Error("quitting = false, want true after ctrl+c")
	}
	if cmd == nil {
		t.Error("expected a tea.Quit command after ctrl+c")
	}
}
