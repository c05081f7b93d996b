// Package tui renders a session with bubbletea and turns key presses into
// session commands.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/slmtnm/s4browse/internal/session"
)

const defaultTick = 50 * time.Millisecond

type tickMsg time.Time

// Model is the bubbletea model. All session state lives in the session;
// Model only holds widgets and the terminal size.
type Model struct {
	session  *session.Session
	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model
	tick     time.Duration
	showHelp bool
	width    int
	height   int
}

// New creates a model driving s. A zero tick uses 50ms.
func New(s *session.Session, tick time.Duration) Model {
	if tick <= 0 {
		tick = defaultTick
	}
	return Model{
		session:  s,
		keys:     defaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		tick:     tick,
	}
}

// Init starts the drain tick and the spinner
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scheduleTick(), m.spinner.Tick)
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if w := msg.Width/2 - 10; w > 10 {
			m.progress.Width = w
		}
		return m, nil

	case tickMsg:
		m.session.Drain()
		if m.session.Quit() {
			return m, tea.Quit
		}
		return m, m.scheduleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	overlay := m.session.Overlay()
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		case "ctrl+c":
			m.session.Handle(session.Do(session.Quit))
			return m, tea.Quit
		}
		return m, nil
	}
	if overlay == session.OverlayNone && msg.String() == "?" {
		m.showHelp = true
		return m, nil
	}

	for _, cmd := range m.keys.commands(overlay, msg) {
		m.session.Handle(cmd)
	}
	if m.session.Quit() {
		return m, tea.Quit
	}
	return m, nil
}
