package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kagebridge/gravitybridge/internal/tui"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Run the bridge daemon with a live status dashboard attached",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(true)
	},
}

// runWithDashboard runs the daemon and the tui dashboard side by side in one
// process: there is no separate always-on server this CLI attaches to, so
// `open` is `start` with the dashboard wired into the same SessionBridge
// callbacks instead of a second process observing the first over IPC.
func runWithDashboard(ctx context.Context, d *daemon) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgChan := make(chan tea.Msg, 64)
	d.attachDashboard(msgChan)

	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()

	// Quitting the dashboard (q/ctrl+c) stops the daemon too; an external
	// shutdown signal cancels ctx but does not itself unblock a dashboard
	// waiting on its message channel, so the user still presses q to exit.
	dashErr := tui.Run(msgChan)
	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	return dashErr
}
