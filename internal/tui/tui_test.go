package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/config"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/session"
	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/store/storetest"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newModel(t *testing.T, st *storetest.Store) Model {
	t.Helper()
	cfg := &config.Config{
		Remotes: map[string]config.Remote{
			"local": {Alias: "local", URL: "http://localhost:9000", Backend: config.BackendS3},
		},
		Settings: config.DefaultSettings(),
	}
	s := session.New(session.Options{
		Config:   cfg,
		Factory:  func(config.Remote) (store.Store, error) { return st, nil },
		LocalDir: t.TempDir(),
		Launch:   func(string, ...string) error { return nil },
	})
	t.Cleanup(s.Close)
	return New(s, time.Millisecond)
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestCommandsByOverlay(t *testing.T) {
	k := defaultKeyMap()
	tests := []struct {
		name    string
		overlay session.Overlay
		msg     tea.KeyMsg
		want    []session.Command
	}{
		{"browse down", session.OverlayNone, runes("j"), []session.Command{session.Do(session.MoveDown)}},
		{"browse search", session.OverlayNone, runes("/"), []session.Command{session.Do(session.StartSearch)}},
		{"browse delete", session.OverlayNone, runes("x"), []session.Command{session.Do(session.RequestDelete)}},
		{"browse tab", session.OverlayNone, tea.KeyMsg{Type: tea.KeyTab}, []session.Command{session.Do(session.SwitchPane)}},
		{"browse esc", session.OverlayNone, tea.KeyMsg{Type: tea.KeyEsc}, []session.Command{session.Do(session.Dismiss)}},
		{"search types letters", session.OverlaySearch, runes("jq"), []session.Command{session.Type('j'), session.Type('q')}},
		{"search space", session.OverlaySearch, tea.KeyMsg{Type: tea.KeySpace}, []session.Command{session.Type(' ')}},
		{"search enter", session.OverlaySearch, tea.KeyMsg{Type: tea.KeyEnter}, []session.Command{session.Do(session.Confirm)}},
		{"rename up ignored", session.OverlayRename, tea.KeyMsg{Type: tea.KeyUp}, nil},
		{"confirm toggle", session.OverlayDeleteConfirm, tea.KeyMsg{Type: tea.KeyLeft}, []session.Command{session.Do(session.ToggleDelete)}},
		{"confirm n cancels", session.OverlayDeleteConfirm, runes("n"), []session.Command{session.Do(session.Cancel)}},
		{"download here", session.OverlayDownloadTarget, runes("d"), []session.Command{session.Do(session.Confirm)}},
		{"download tab", session.OverlayDownloadTarget, tea.KeyMsg{Type: tea.KeyTab}, []session.Command{session.Do(session.SwitchPane)}},
		{"download rename", session.OverlayDownloadTarget, runes("R"), []session.Command{session.Do(session.StartRename)}},
		{"ctrl+c anywhere", session.OverlayRename, tea.KeyMsg{Type: tea.KeyCtrlC}, []session.Command{session.Do(session.Quit)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, k.commands(tt.overlay, tt.msg))
		})
	}
}

func TestTypingSearchQuery(t *testing.T) {
	st := storetest.New()
	st.AddBucket("alpha")
	st.AddBucket("photos")
	m := newModel(t, st)
	m.session.Open(models.BucketList{Remote: "local"})
	require.Eventually(t, func() bool {
		m.session.Drain()
		return !m.session.Loading()
	}, 2*time.Second, 5*time.Millisecond)

	m = send(m, runes("/"), runes("qph"))

	query, ok := m.session.SearchQuery()
	require.True(t, ok)
	assert.Equal(t, "qph", query)
	assert.False(t, m.session.Quit())
	assert.Contains(t, m.View(), "/qph")

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, session.OverlayNone, m.session.Overlay())
}

func TestViewListsRemotes(t *testing.T) {
	m := newModel(t, storetest.New())
	m = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	view := m.View()
	assert.Contains(t, view, "s4browse | remotes")
	assert.Contains(t, view, "local")
	assert.Contains(t, view, "http://localhost:9000")
}

func TestTabShowsLocalPane(t *testing.T) {
	m := newModel(t, storetest.New())
	m = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.NotContains(t, m.View(), "Local: ")

	m = send(m, tea.KeyMsg{Type: tea.KeyTab})

	assert.Equal(t, models.PaneLocal, m.session.Pane())
	assert.Contains(t, m.View(), "Local: ")
}

func TestHelpToggle(t *testing.T) {
	m := newModel(t, storetest.New())

	m = send(m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Help")

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)
}

func TestQuitKey(t *testing.T) {
	m := newModel(t, storetest.New())

	_, cmd := m.Update(runes("q"))

	require.NotNil(t, cmd)
	assert.True(t, m.session.Quit())
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWindow(t *testing.T) {
	tests := []struct {
		selected, n, height int
		start, end          int
	}{
		{0, 5, 10, 0, 5},
		{0, 50, 10, 0, 10},
		{25, 50, 10, 20, 30},
		{49, 50, 10, 40, 50},
	}
	for _, tt := range tests {
		start, end := window(tt.selected, tt.n, tt.height)
		assert.Equal(t, tt.start, start)
		assert.Equal(t, tt.end, end)
	}
}
