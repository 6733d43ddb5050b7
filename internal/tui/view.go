package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

// View renders the whole screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.backgroundLine())
	b.WriteString("\n\n")
	b.WriteString(m.card())
	b.WriteString("\n\n")
	if m.mode == modeAdd {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())

	out := b.String()
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, out)
	}
	return out
}

func (m Model) card() string {
	q, ok := m.deck.Current()
	if !ok {
		return cardStyle.Render(subStyle.Render("No quotes yet. Press a to add one."))
	}
	body := lipgloss.JoinVertical(lipgloss.Center,
		quoteStyle.Render(q.Main),
		"",
		subStyle.Render(q.Sub),
	)
	return cardStyle.Render(body)
}

// backgroundLine describes the companion. Anything but Running shows the
// static background.
func (m Model) backgroundLine() string {
	st := m.state
	switch st.Phase {
	case lib.CompanionRunning:
		return backgroundUpStyle.Render(fmt.Sprintf("%s animated background (pid %d)", m.spinner.View(), st.PID))
	case lib.CompanionStarting:
		return statusStyle.Render("starting background...")
	case lib.CompanionNotAttempted:
		return statusStyle.Render("background off")
	default:
		return backgroundDownStyle.Render("background unavailable: " + st.String())
	}
}

func (m Model) statusLine() string {
	paused := ""
	if m.deck.Paused() {
		paused = " | paused"
	}
	left := fmt.Sprintf("%d/%d | every %ds%s", m.deck.Index()+1, m.deck.Len(), m.deck.IntervalSecs(), paused)
	if m.deck.Len() == 0 {
		left = fmt.Sprintf("0/0 | every %ds%s", m.deck.IntervalSecs(), paused)
	}
	help := "←/→ rotate · space pause · +/- interval · a add · d delete · q quit"
	line := left + " | " + help
	if m.status != "" {
		line = m.status + " | " + line
	}
	return statusStyle.Render(line)
}
