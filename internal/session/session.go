// Package session is the browser's state machine. It owns navigation,
// overlays and every background task, and is driven from a single
// goroutine: Handle applies user commands, Drain applies task results.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/config"
	"github.com/slmtnm/s4browse/internal/index"
	"github.com/slmtnm/s4browse/internal/localfs"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/preview"
	"github.com/slmtnm/s4browse/internal/search"
	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/transfer"
)

// Overlay is the modal sub-mode that currently owns input.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDeleteConfirm
	OverlaySearch
	OverlayDownloadTarget
	// OverlayRename edits the target name of the pending download.
	OverlayRename
)

func (o Overlay) String() string {
	switch o {
	case OverlayNone:
		return "none"
	case OverlayDeleteConfirm:
		return "delete"
	case OverlaySearch:
		return "search"
	case OverlayDownloadTarget:
		return "download"
	case OverlayRename:
		return "rename"
	default:
		return fmt.Sprintf("Overlay(%d)", int(o))
	}
}

// DeleteConfirm is the pending delete shown in the confirmation popup.
type DeleteConfirm struct {
	DisplayName string
	Key         string
	IsDir       bool
	Yes         bool
}

// DownloadTarget is the object snapshotted when the download overlay opened.
type DownloadTarget struct {
	Remote      string
	Bucket      string
	DisplayName string
	Key         string
	IsDir       bool
	// Rename is the custom local name; empty keeps DisplayName.
	Rename string

	renameBefore string
}

// TargetName is the local name the download is written to.
func (d DownloadTarget) TargetName() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.DisplayName
}

// Options configures a Session.
type Options struct {
	Config *config.Config
	// Factory builds a Store for a remote on first use; store.New by default.
	Factory store.Factory
	// LocalDir is where the local pane starts; the working directory by default.
	LocalDir string
	// Launch starts the media viewer; used by tests.
	Launch preview.Launcher
}

var errUnknownRemote = errors.New("unknown remote")

type listResult struct {
	loc          models.Location
	entries      []models.Entry
	selectKey    string
	restartIndex bool
	err          error
}

type metaResult struct {
	key  string
	meta store.Metadata
	err  error
}

type deleteResult struct {
	remote  string
	bucket  string
	confirm DeleteConfirm
	count   int
	err     error
}

// Session is not safe for concurrent use.
type Session struct {
	cfg      *config.Config
	settings config.Settings
	factory  store.Factory
	stores   map[string]store.Store

	ctx    context.Context
	cancel context.CancelFunc

	location models.Location
	entries  []models.Entry
	selected int
	pane     models.Pane

	overlay  Overlay
	confirm  *DeleteConfirm
	search   *search.Session
	download *DownloadTarget

	index   *index.Streamer
	preview *preview.Fetcher
	local   *localfs.Browser

	listing  pending[listResult]
	meta     pending[metaResult]
	deleting pending[deleteResult]

	task     *transfer.Task
	lastJob  transfer.Job
	progress *transfer.Progress

	metadata *store.Metadata
	err      error
	status   string
	quit     bool
}

func New(opts Options) *Session {
	factory := opts.Factory
	if factory == nil {
		factory = store.New
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{Remotes: map[string]config.Remote{}, Settings: config.DefaultSettings()}
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		cfg:      cfg,
		settings: cfg.Settings,
		factory:  factory,
		stores:   make(map[string]store.Store),
		ctx:      ctx,
		cancel:   cancel,
		location: models.RemoteList{},
		index:    index.NewStreamer(),
		preview: preview.NewFetcher(preview.Options{
			MaxBytes:   cfg.Settings.PreviewBytes,
			PresignTTL: cfg.Settings.PresignTTL,
			Viewer:     cfg.Settings.Viewer,
			Launch:     opts.Launch,
		}),
		local: localfs.NewBrowser(opts.LocalDir),
	}
	s.showRemotes()
	return s
}

// Close cancels every background task.
func (s *Session) Close() {
	s.listing.stop()
	s.meta.stop()
	s.deleting.stop()
	s.index.Cancel()
	s.preview.Clear()
	if s.task != nil {
		s.task.Cancel()
	}
	s.cancel()
}

// storeFor returns the cached Store for alias, connecting on first use.
func (s *Session) storeFor(alias string) (store.Store, error) {
	if st, ok := s.stores[alias]; ok {
		return st, nil
	}
	remote, ok := s.cfg.Remote(alias)
	if !ok {
		return nil, &store.ConnectionError{Remote: alias, Err: errUnknownRemote}
	}
	st, err := s.factory(remote)
	if err != nil {
		return nil, &store.ConnectionError{Remote: alias, Err: err}
	}
	logrus.WithFields(logrus.Fields{"remote": alias, "backend": remote.Backend}).Info("session: connected")
	s.stores[alias] = st
	return st, nil
}

func (s *Session) Location() models.Location { return s.location }
func (s *Session) Entries() []models.Entry   { return s.entries }

// Selected is the cursor row in Entries, -1 when the listing is empty.
func (s *Session) Selected() int     { return s.selected }
func (s *Session) Pane() models.Pane { return s.pane }
func (s *Session) Overlay() Overlay  { return s.overlay }
func (s *Session) Err() error        { return s.err }
func (s *Session) Status() string    { return s.status }
func (s *Session) Quit() bool        { return s.quit }
func (s *Session) Loading() bool     { return s.listing.active() }
func (s *Session) Deleting() bool    { return s.deleting.active() }

func (s *Session) Settings() config.Settings { return s.settings }

// LocationDisplay renders the current location for the title bar.
func (s *Session) LocationDisplay() string { return models.Display(s.location) }

// SelectedEntry returns the entry under the cursor.
func (s *Session) SelectedEntry() (models.Entry, bool) {
	if s.selected < 0 || s.selected >= len(s.entries) {
		return nil, false
	}
	return s.entries[s.selected], true
}

// DeleteConfirm returns the pending delete, if the popup is open.
func (s *Session) DeleteConfirm() (DeleteConfirm, bool) {
	if s.confirm == nil {
		return DeleteConfirm{}, false
	}
	return *s.confirm, true
}

// DownloadTarget returns the download snapshot while the download or rename
// overlay is open.
func (s *Session) DownloadTarget() (DownloadTarget, bool) {
	if s.download == nil {
		return DownloadTarget{}, false
	}
	return *s.download, true
}

// SearchQuery returns the query and whether a search is active.
func (s *Session) SearchQuery() (string, bool) {
	if s.search == nil {
		return "", false
	}
	return s.search.Query, true
}

// SearchIndexed reports whether the active search filters the bucket index.
func (s *Session) SearchIndexed() bool {
	return s.search != nil && s.search.Source == search.SourceIndex
}

// IndexStatus returns the number of indexed objects and whether indexing
// has finished.
func (s *Session) IndexStatus() (int, bool) {
	return len(s.index.Pool()), s.index.Complete()
}

func (s *Session) Local() *localfs.Browser    { return s.local }
func (s *Session) Preview() *preview.Fetcher { return s.preview }

// Metadata returns the metadata of the last selected object.
func (s *Session) Metadata() (store.Metadata, bool) {
	if s.metadata == nil {
		return store.Metadata{}, false
	}
	return *s.metadata, true
}

// Progress returns the progress of the current or last download.
func (s *Session) Progress() (transfer.Progress, transfer.Job, bool) {
	if s.progress == nil {
		return transfer.Progress{}, transfer.Job{}, false
	}
	return *s.progress, s.lastJob, true
}

// Drain applies everything background tasks have posted since the last
// tick. It never blocks.
func (s *Session) Drain() {
	if res, ok := s.listing.poll(); ok {
		s.applyListing(res)
	}
	if res, ok := s.meta.poll(); ok {
		s.applyMetadata(res)
	}
	if res, ok := s.deleting.poll(); ok {
		s.applyDelete(res)
	}
	s.drainIndex()
	s.drainDownload()
	if s.preview.Drain() {
		if err := s.preview.Err(); err != nil {
			s.err = err
		} else if msg := s.preview.Message(); msg != "" {
			s.status = msg
		} else {
			s.status = ""
		}
	}
}

func (s *Session) drainIndex() {
	res := s.index.Drain()
	if res.Err != nil {
		if s.SearchIndexed() {
			s.err = fmt.Errorf("index error: %w", res.Err)
		} else {
			logrus.WithError(res.Err).Warn("session: indexing failed")
			s.status = fmt.Sprintf("Indexing stopped: %v", res.Err)
		}
	}
	if res.Added > 0 && s.SearchIndexed() {
		s.refilter()
	}
}

func (s *Session) drainDownload() {
	for s.task != nil {
		select {
		case p, ok := <-s.task.Progress:
			if !ok {
				// closed without a final message
				if s.progress != nil {
					s.progress.Complete = true
				}
				s.task = nil
				return
			}
			if s.progress != nil {
				*s.progress = p
			}
			if !p.Complete {
				continue
			}
			s.task = nil
			if p.Err != nil {
				s.err = fmt.Errorf("download failed: %w", p.Err)
			} else {
				s.status = fmt.Sprintf("Downloaded %s", s.lastJob.TargetName)
			}
		default:
			return
		}
	}
}

// Handle applies one user command. Open overlays see the command first.
func (s *Session) Handle(cmd Command) {
	if cmd.Op == Quit {
		s.quit = true
		return
	}
	switch s.overlay {
	case OverlayNone:
		s.handleBrowse(cmd)
	case OverlayDeleteConfirm:
		s.handleDeleteConfirm(cmd)
	case OverlaySearch:
		s.handleSearch(cmd)
	case OverlayDownloadTarget:
		s.handleDownloadTarget(cmd)
	case OverlayRename:
		s.handleRename(cmd)
	default:
		panic(fmt.Sprintf("session: unknown overlay %v", s.overlay))
	}
}

func (s *Session) handleBrowse(cmd Command) {
	if s.pane == models.PaneLocal && s.handleLocal(cmd) {
		return
	}
	switch cmd.Op {
	case SwitchPane:
		s.switchPane()
	case MoveUp:
		s.move(-1)
	case MoveDown:
		s.move(1)
	case Select, Confirm:
		s.selectEntry()
	case Back:
		s.back()
	case Refresh:
		s.refresh()
	case StartSearch:
		s.startSearch()
	case RequestDelete:
		s.requestDelete()
	case StartDownload:
		s.startDownloadMode()
	case Preview:
		s.requestPreview()
	case ScrollUp:
		s.preview.ScrollUp(scrollStep)
	case ScrollDown:
		s.preview.ScrollDown(scrollStep)
	case Dismiss, Cancel:
		s.dismiss()
	}
}

const scrollStep = 3

func (s *Session) switchPane() {
	if s.pane == models.PaneLocal {
		s.pane = models.PaneRemote
	} else {
		s.pane = models.PaneLocal
		s.local.Reload()
	}
}

// handleLocal applies cursor commands to the local pane and reports
// whether cmd was one of them.
func (s *Session) handleLocal(cmd Command) bool {
	switch cmd.Op {
	case MoveUp:
		s.local.Up()
	case MoveDown:
		s.local.Down()
	case Select, Confirm:
		s.local.Enter()
	case Back:
		s.local.Back()
	default:
		return false
	}
	return true
}

// dismiss clears messages and the detail views.
func (s *Session) dismiss() {
	s.err = nil
	s.status = ""
	s.metadata = nil
	s.preview.Clear()
	if s.progress != nil && s.progress.Complete {
		s.progress = nil
	}
}

// clearDetail drops whatever describes the previously selected row.
func (s *Session) clearDetail() {
	s.meta.stop()
	s.metadata = nil
	s.preview.Clear()
}

func (s *Session) move(delta int) {
	if len(s.entries) == 0 {
		return
	}
	next := s.selected + delta
	if next < 0 || next >= len(s.entries) {
		return
	}
	s.selected = next
	s.clearDetail()
}

// fixSelection clamps the cursor after entries were removed.
func (s *Session) fixSelection() {
	s.selected = search.ClampSelection(s.selected, len(s.entries))
}

func (s *Session) setEntries(entries []models.Entry) {
	s.entries = entries
	s.selected = search.ClampSelection(0, len(entries))
}
