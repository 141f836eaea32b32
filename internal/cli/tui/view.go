package tui

import (
	"fmt"
	"strings"
)

// View renders the watch screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("unitd jobs"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("error: %v\n\n", m.err))
	}

	if len(m.jobs) == 0 {
		b.WriteString(m.styles.Waiting.Render("No jobs installed."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.Header.Render(fmt.Sprintf("%-6s %-24s %-12s %s",
			"JOB", "UNIT", "TYPE", "STATE")))
		b.WriteString("\n")

		for _, j := range m.jobs {
			icon := IconWaiting
			style := m.styles.Waiting
			if j.State == "running" {
				icon = IconRunning
				style = m.styles.Running
			}
			b.WriteString(fmt.Sprintf("%-6d %s %s %-12s %s\n",
				j.ID,
				style.Render(icon),
				m.styles.Unit.Render(fmt.Sprintf("%-22s", j.Unit)),
				j.Type,
				style.Render(j.State)))
		}
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.LogTitle.Render("events"))
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(m.styles.LogLine.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.styles.Footer.Render(
		m.styles.FooterKey.Render("q") + " quit"))
	b.WriteString("\n")

	return b.String()
}
