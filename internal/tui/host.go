package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the dashboard program and blocks until the user quits. Callers
// feed it by sending StatusMsg/ReconnectMsg values onto msgChan. The
// gravitybridge daemon sends StatusMsg from SessionBridge callbacks only;
// nothing in this repository sends ReconnectMsg.
func Run(msgChan chan tea.Msg) error {
	p := tea.NewProgram(NewModel(msgChan))
	_, err := p.Run()
	return err
}
