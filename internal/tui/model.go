// Package tui renders the host window as a terminal UI: the rotating quote,
// the companion's background status and the quote editing keys.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SanjoDeundiak/daily-motivation/internal/quotes"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

const tickInterval = time.Second

// Options wires the model to the rest of the host.
type Options struct {
	Deck *quotes.Deck
	// States carries companion state changes; it may be nil.
	States <-chan lib.CompanionState
	// Initial is the companion state shown before the first change arrives.
	Initial lib.CompanionState
	// Save persists the deck after edits. It may be nil.
	Save func(quotes.Settings) error
	// Now is the clock, for tests.
	Now func() time.Time
}

// Run shows the UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Deck == nil {
		return fmt.Errorf("quote deck is required")
	}
	program := tea.NewProgram(
		NewModel(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeAdd
)

// Model implements tea.Model.
type Model struct {
	deck   *quotes.Deck
	states <-chan lib.CompanionState
	state  lib.CompanionState
	save   func(quotes.Settings) error
	now    func() time.Time

	input   textinput.Model
	spinner spinner.Model
	mode    inputMode

	lastRotation time.Time
	status       string

	width  int
	height int
}

type tickMsg time.Time

type stateMsg lib.CompanionState

type statesClosedMsg struct{}

func NewModel(opts Options) Model {
	input := textinput.New()
	input.Placeholder = "quote | sub line"
	input.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Moon

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return Model{
		deck:         opts.Deck,
		states:       opts.States,
		state:        opts.Initial,
		save:         opts.Save,
		now:          now,
		input:        input,
		spinner:      sp,
		lastRotation: now(),
	}
}

// Init starts the rotation clock, the spinner and the state listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick, waitState(m.states))
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitState(states <-chan lib.CompanionState) tea.Cmd {
	if states == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return statesClosedMsg{}
		}
		return stateMsg(st)
	}
}
