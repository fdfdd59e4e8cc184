package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kagebridge/gravitybridge/internal/monitor"
	"github.com/kagebridge/gravitybridge/internal/tui/style"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := style.HeaderStyle.Render(
		style.HeaderLabelStyle.Render("gravitybridge") +
			fmt.Sprintf(" — %d workspace(s) connected", len(m.order)),
	)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(style.FooterStyle.Render("waiting for a workspace to connect…"))
		b.WriteString("\n")
	} else {
		workspaces := append([]string(nil), m.order...)
		sort.Strings(workspaces)
		for _, ws := range workspaces {
			b.WriteString(m.renderRow(ws, m.rows[ws]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(style.FooterStyle.Render("q to quit"))
	return b.String()
}

func (m Model) renderRow(workspace string, row *workspaceRow) string {
	bullet, phaseStyle := phaseBullet(row.phase)
	line := fmt.Sprintf("%s %-24s %-14s %s",
		phaseStyle.Render(bullet),
		workspace,
		phaseStyle.Render(string(row.phase)),
		style.MetaStyle.Render(formatAge(row.updatedAt)),
	)
	if row.lastEvent != "" {
		line += "  " + style.SystemStyle.Render(row.lastEvent)
	}
	if row.reconnectAt != "" {
		line += "  " + style.WarningStyle.Render(row.reconnectAt)
	}
	return line
}

func phaseBullet(phase monitor.PhaseState) (string, lipgloss.Style) {
	switch phase {
	case monitor.PhaseThinking, monitor.PhaseGenerating:
		return style.BulletAgent, style.AgentStyle
	case monitor.PhaseComplete:
		return style.BulletAgent, style.SystemStyle
	case monitor.PhaseTimeout, monitor.PhaseQuotaReached:
		return style.BulletError, style.ErrorStyle
	case monitor.PhaseDisconnected:
		return style.BulletError, style.WarningStyle
	default:
		return style.BulletSystem, style.SystemStyle
	}
}
