package session

// Op is a discrete user action decoded by the UI.
type Op int

const (
	MoveUp Op = iota
	MoveDown
	Select
	Back
	Refresh
	SwitchPane
	StartSearch
	// Input carries a typed character in Command.Rune.
	Input
	Backspace
	Confirm
	Cancel
	RequestDelete
	ToggleDelete
	StartDownload
	StartRename
	Preview
	ScrollUp
	ScrollDown
	Dismiss
	Quit
)

var opNames = [...]string{
	MoveUp:        "move-up",
	MoveDown:      "move-down",
	Select:        "select",
	Back:          "back",
	Refresh:       "refresh",
	SwitchPane:    "switch-pane",
	StartSearch:   "start-search",
	Input:         "input",
	Backspace:     "backspace",
	Confirm:       "confirm",
	Cancel:        "cancel",
	RequestDelete: "request-delete",
	ToggleDelete:  "toggle-delete",
	StartDownload: "start-download",
	StartRename:   "start-rename",
	Preview:       "preview",
	ScrollUp:      "scroll-up",
	ScrollDown:    "scroll-down",
	Dismiss:       "dismiss",
	Quit:          "quit",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

type Command struct {
	Op   Op
	Rune rune
}

// Do is shorthand for a command without a rune.
func Do(op Op) Command { return Command{Op: op} }

// Type is the command for typing r into the active input.
func Type(r rune) Command { return Command{Op: Input, Rune: r} }
