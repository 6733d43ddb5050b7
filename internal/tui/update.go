package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

// Update applies incoming Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)
		return m, nil
	case tickMsg:
		m.rotate()
		return m, tick()
	case stateMsg:
		wasUp := m.state.Available()
		m.state = lib.CompanionState(msg)
		if m.state.Available() && !wasUp {
			return m, tea.Batch(waitState(m.states), m.spinner.Tick)
		}
		return m, waitState(m.states)
	case statesClosedMsg:
		m.states = nil
		return m, nil
	case spinner.TickMsg:
		// the spinner only animates while the background is up
		if !m.state.Available() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeAdd {
			return m.handleAddMode(msg)
		}
		return m.handleNormalMode(msg)
	}
	return m, nil
}

// rotate advances the deck once the interval has elapsed.
func (m *Model) rotate() {
	if m.deck.Paused() {
		return
	}
	now := m.now()
	if now.Sub(m.lastRotation) >= m.deck.Interval() {
		m.deck.Next()
		m.lastRotation = now
	}
}

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "right", "n", "l":
		m.deck.Next()
		m.lastRotation = m.now()
	case "left", "p", "h":
		m.deck.Prev()
		m.lastRotation = m.now()
	case " ":
		m.deck.SetPaused(!m.deck.Paused())
		m.persist()
	case "+", "=":
		m.deck.SetInterval(m.deck.IntervalSecs() + 1)
		m.persist()
	case "-":
		m.deck.SetInterval(m.deck.IntervalSecs() - 1)
		m.persist()
	case "d":
		if m.deck.Len() > 0 {
			if err := m.deck.Delete(m.deck.Index()); err != nil {
				m.status = err.Error()
			} else {
				m.status = "quote deleted"
				m.persist()
			}
		}
	case "a":
		m.mode = modeAdd
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) handleAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		main, sub, _ := strings.Cut(m.input.Value(), "|")
		if err := m.deck.Add(main, sub); err != nil {
			m.status = err.Error()
		} else {
			m.status = "quote added"
			m.lastRotation = m.now()
			m.persist()
		}
		m.mode = modeNormal
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) persist() {
	if m.save == nil {
		return
	}
	if err := m.save(m.deck.Settings()); err != nil {
		m.status = "save failed: " + err.Error()
	}
}
