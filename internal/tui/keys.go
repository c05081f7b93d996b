package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/slmtnm/s4browse/internal/session"
)

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	Back        key.Binding
	Refresh     key.Binding
	Search      key.Binding
	Delete      key.Binding
	Download    key.Binding
	Preview     key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	Toggle      key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	SwitchPane  key.Binding
	SaveHere    key.Binding
	Rename      key.Binding
	Erase       key.Binding
	InputAccept key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:      key.NewBinding(key.WithKeys("enter", "right", "l", "o"), key.WithHelp("→/l/enter", "open")),
		Back:        key.NewBinding(key.WithKeys("backspace", "left", "h"), key.WithHelp("←/h", "back")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Delete:      key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		Download:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Preview:     key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p/space", "preview")),
		ScrollUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll preview up")),
		ScrollDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "scroll preview down")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
		Toggle:      key.NewBinding(key.WithKeys("left", "right", "tab", "h", "l"), key.WithHelp("←/→", "yes/no")),
		Confirm:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:      key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "cancel")),
		SwitchPane:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		SaveHere:    key.NewBinding(key.WithKeys("d", "s"), key.WithHelp("d", "download here")),
		Rename:      key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "rename")),
		Erase:       key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "erase")),
		InputAccept: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
	}
}

// bindingHelp adapts a list of bindings to help.KeyMap.
type bindingHelp struct {
	short []key.Binding
	full  [][]key.Binding
}

func (b bindingHelp) ShortHelp() []key.Binding  { return b.short }
func (b bindingHelp) FullHelp() [][]key.Binding { return b.full }

// helpFor returns the bindings that apply while overlay o owns input.
func (k keyMap) helpFor(o session.Overlay) bindingHelp {
	switch o {
	case session.OverlayDeleteConfirm:
		return bindingHelp{short: []key.Binding{k.Toggle, k.Confirm, k.Cancel}}
	case session.OverlaySearch:
		return bindingHelp{short: []key.Binding{k.Up, k.Down, k.InputAccept, k.Erase, k.Dismiss}}
	case session.OverlayDownloadTarget:
		short := []key.Binding{k.SwitchPane, k.Select, k.Back, k.SaveHere, k.Rename, k.Dismiss}
		return bindingHelp{short: short}
	case session.OverlayRename:
		return bindingHelp{short: []key.Binding{k.InputAccept, k.Erase, k.Dismiss}}
	default:
		short := []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Search, k.Download, k.Delete, k.Help, k.Quit}
		full := [][]key.Binding{
			{k.Up, k.Down, k.Select, k.Back, k.Refresh},
			{k.Search, k.Download, k.Delete, k.Preview, k.SwitchPane},
			{k.ScrollUp, k.ScrollDown, k.Dismiss, k.Help, k.Quit},
		}
		return bindingHelp{short: short, full: full}
	}
}

// commands translates a key press into session commands for overlay o.
// Text overlays turn printable keys into Input so that letters bound
// elsewhere can still be typed.
func (k keyMap) commands(o session.Overlay, msg tea.KeyMsg) []session.Command {
	if key.Matches(msg, k.ForceQuit) {
		return []session.Command{session.Do(session.Quit)}
	}

	switch o {
	case session.OverlaySearch, session.OverlayRename:
		return k.inputCommands(o, msg)
	case session.OverlayDeleteConfirm:
		switch {
		case key.Matches(msg, k.Confirm):
			return do(session.Confirm)
		case key.Matches(msg, k.Toggle):
			return do(session.ToggleDelete)
		case key.Matches(msg, k.Cancel):
			return do(session.Cancel)
		}
	case session.OverlayDownloadTarget:
		switch {
		case key.Matches(msg, k.SwitchPane):
			return do(session.SwitchPane)
		case key.Matches(msg, k.Up):
			return do(session.MoveUp)
		case key.Matches(msg, k.Down):
			return do(session.MoveDown)
		case key.Matches(msg, k.Select):
			return do(session.Select)
		case key.Matches(msg, k.Back):
			return do(session.Back)
		case key.Matches(msg, k.SaveHere):
			return do(session.Confirm)
		case key.Matches(msg, k.Rename):
			return do(session.StartRename)
		case key.Matches(msg, k.Dismiss):
			return do(session.Cancel)
		case key.Matches(msg, k.Quit):
			return do(session.Quit)
		}
	case session.OverlayNone:
		switch {
		case key.Matches(msg, k.Up):
			return do(session.MoveUp)
		case key.Matches(msg, k.Down):
			return do(session.MoveDown)
		case key.Matches(msg, k.Select):
			return do(session.Select)
		case key.Matches(msg, k.Back):
			return do(session.Back)
		case key.Matches(msg, k.Refresh):
			return do(session.Refresh)
		case key.Matches(msg, k.SwitchPane):
			return do(session.SwitchPane)
		case key.Matches(msg, k.Search):
			return do(session.StartSearch)
		case key.Matches(msg, k.Delete):
			return do(session.RequestDelete)
		case key.Matches(msg, k.Download):
			return do(session.StartDownload)
		case key.Matches(msg, k.Preview):
			return do(session.Preview)
		case key.Matches(msg, k.ScrollUp):
			return do(session.ScrollUp)
		case key.Matches(msg, k.ScrollDown):
			return do(session.ScrollDown)
		case key.Matches(msg, k.Dismiss):
			return do(session.Dismiss)
		case key.Matches(msg, k.Quit):
			return do(session.Quit)
		}
	}
	return nil
}

func (k keyMap) inputCommands(o session.Overlay, msg tea.KeyMsg) []session.Command {
	switch msg.Type {
	case tea.KeyRunes:
		cmds := make([]session.Command, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			cmds = append(cmds, session.Type(r))
		}
		return cmds
	case tea.KeySpace:
		return []session.Command{session.Type(' ')}
	case tea.KeyBackspace:
		return do(session.Backspace)
	case tea.KeyEnter:
		return do(session.Confirm)
	case tea.KeyEsc:
		return do(session.Cancel)
	case tea.KeyUp:
		if o == session.OverlaySearch {
			return do(session.MoveUp)
		}
	case tea.KeyDown:
		if o == session.OverlaySearch {
			return do(session.MoveDown)
		}
	}
	return nil
}

func do(op session.Op) []session.Command {
	return []session.Command{session.Do(op)}
}
