package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/index"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/preview"
	"github.com/slmtnm/s4browse/internal/remove"
	"github.com/slmtnm/s4browse/internal/search"
	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/transfer"
)

// closeOverlay tears down every overlay's state.
func (s *Session) closeOverlay() {
	s.overlay = OverlayNone
	s.confirm = nil
	s.search = nil
	s.download = nil
	s.pane = models.PaneRemote
}

// ── search ──────────────────────────────────────────────────────────

func (s *Session) startSearch() {
	s.closeOverlay()
	s.err = nil
	s.status = ""
	s.clearDetail()

	s.search = search.Begin(s.entries, s.location, s.selected)
	s.overlay = OverlaySearch
	if s.search.Source == search.SourceIndex {
		s.selected = 0
	}
	s.refilter()
}

// refilter recomputes the visible entries from the active search, keeping
// the cursor on the same row number.
func (s *Session) refilter() {
	s.entries = s.search.Results(s.index.Pool())
	s.selected = search.ClampSelection(s.selected, len(s.entries))
}

func (s *Session) handleSearch(cmd Command) {
	switch cmd.Op {
	case MoveUp:
		s.move(-1)
	case MoveDown:
		s.move(1)
	case Input:
		s.search.Input(cmd.Rune)
		s.refilter()
	case Backspace:
		s.search.Backspace()
		s.refilter()
	case Confirm, Select:
		s.finishSearch()
	case Cancel, Back:
		s.cancelSearch()
	case Refresh:
		s.cancelSearch()
		s.refresh()
	}
}

// cancelSearch restores the listing, location and cursor saved when the
// search started.
func (s *Session) cancelSearch() {
	saved := s.search.Saved()
	s.closeOverlay()
	s.entries = saved.Entries
	s.location = saved.Location
	s.selected = saved.Selection
}

func (s *Session) finishSearch() {
	e, ok := s.SelectedEntry()
	if !ok {
		s.cancelSearch()
		return
	}
	source, ctx := s.search.Source, s.search.Context
	s.cancelSearch()

	if source == search.SourceIndex {
		key := e.Key()
		s.enterPrefix(ctx.Remote, ctx.Bucket, store.ParentPrefix(key), key)
		return
	}
	for i, cur := range s.entries {
		if cur.Name() == e.Name() {
			s.selected = i
			break
		}
	}
}

// ── delete ──────────────────────────────────────────────────────────

func (s *Session) requestDelete() {
	s.status = ""
	e, ok := s.SelectedEntry()
	if !ok {
		return
	}
	switch e := e.(type) {
	case models.ObjectEntry:
		if s.deleting.active() {
			s.err = errors.New("a delete is already running")
			return
		}
		s.closeOverlay()
		s.confirm = &DeleteConfirm{
			DisplayName: e.DisplayName,
			Key:         e.Object.Key,
			IsDir:       e.IsDir,
		}
		s.overlay = OverlayDeleteConfirm
	case models.BucketEntry:
		s.err = errors.New("bucket deletion is not supported")
	case models.RemoteEntry:
		s.err = errors.New("remotes cannot be deleted here")
	default:
		panic(fmt.Sprintf("session: unknown entry %T", e))
	}
}

func (s *Session) handleDeleteConfirm(cmd Command) {
	switch cmd.Op {
	case ToggleDelete, MoveUp, MoveDown:
		s.confirm.Yes = !s.confirm.Yes
	case Confirm, Select:
		confirm := *s.confirm
		s.closeOverlay()
		if confirm.Yes {
			s.startDelete(confirm)
		}
	case Cancel, Back:
		s.closeOverlay()
	}
}

func (s *Session) startDelete(confirm DeleteConfirm) {
	l, ok := s.location.(models.ObjectList)
	if !ok {
		return
	}
	st, err := s.storeFor(l.Remote)
	if err != nil {
		s.err = err
		return
	}
	if confirm.IsDir {
		s.status = fmt.Sprintf("Deleting %s...", confirm.DisplayName)
	}
	s.deleting = run(s.ctx, func(ctx context.Context) deleteResult {
		res := deleteResult{remote: l.Remote, bucket: l.Bucket, confirm: confirm}
		if confirm.IsDir {
			res.count, res.err = remove.Prefix(ctx, st, l.Bucket, confirm.Key)
		} else {
			res.err = remove.Object(ctx, st, l.Bucket, confirm.Key)
			if res.err == nil {
				res.count = 1
			}
		}
		return res
	})
}

// applyDelete drops deleted keys from the listing and the index. Failures
// leave both untouched.
func (s *Session) applyDelete(res deleteResult) {
	if res.err != nil {
		s.status = ""
		s.err = fmt.Errorf("delete failed: %w", res.err)
		return
	}

	c := res.confirm
	matches := func(key string) bool {
		if c.IsDir {
			return remove.MatchesPrefix(key, c.Key)
		}
		return key == c.Key
	}

	if l, ok := s.location.(models.ObjectList); ok && l.Remote == res.remote && l.Bucket == res.bucket {
		kept := s.entries[:0:0]
		for _, e := range s.entries {
			if !matches(e.Key()) {
				kept = append(kept, e)
			}
		}
		s.entries = kept
		s.fixSelection()
		if s.search != nil {
			s.search.Drop(matches)
		}
	}
	if k, ok := s.index.Key(); ok && k == (index.Key{Remote: res.remote, Bucket: res.bucket}) {
		s.index.RemoveFunc(func(o store.Object) bool { return matches(o.Key) })
	}

	s.metadata = nil
	if c.IsDir {
		s.status = fmt.Sprintf("Deleted %d objects from %s", res.count, c.DisplayName)
	} else {
		s.status = fmt.Sprintf("Deleted %s", c.DisplayName)
	}
}

// ── download ────────────────────────────────────────────────────────

func (s *Session) startDownloadMode() {
	e, ok := s.SelectedEntry()
	if !ok {
		return
	}
	l, ok := s.location.(models.ObjectList)
	if !ok {
		s.err = errors.New("navigate into a bucket first")
		return
	}
	obj, ok := e.(models.ObjectEntry)
	if !ok {
		s.err = errors.New("cannot download a bucket")
		return
	}
	if s.task != nil {
		s.err = errors.New("a download is already running")
		return
	}

	s.closeOverlay()
	s.download = &DownloadTarget{
		Remote:      l.Remote,
		Bucket:      l.Bucket,
		DisplayName: obj.DisplayName,
		Key:         obj.Object.Key,
		IsDir:       obj.IsDir,
	}
	s.overlay = OverlayDownloadTarget
	s.pane = models.PaneLocal
	s.local.Reload()
}

func (s *Session) handleDownloadTarget(cmd Command) {
	switch cmd.Op {
	case SwitchPane:
		s.switchPane()
	case MoveUp, MoveDown, Select, Back:
		if s.pane == models.PaneLocal {
			s.handleLocal(cmd)
		}
	case StartRename:
		s.download.renameBefore = s.download.Rename
		if s.download.Rename == "" {
			s.download.Rename = s.download.DisplayName
		}
		s.overlay = OverlayRename
	case Confirm:
		s.confirmDownload()
	case Cancel:
		s.closeOverlay()
	}
}

func (s *Session) handleRename(cmd Command) {
	d := s.download
	switch cmd.Op {
	case Input:
		d.Rename += string(cmd.Rune)
	case Backspace:
		if r := []rune(d.Rename); len(r) > 0 {
			d.Rename = string(r[:len(r)-1])
		}
	case Confirm, Select:
		if err := checkTargetName(d.TargetName()); err != nil {
			s.err = err
			return
		}
		s.err = nil
		s.overlay = OverlayDownloadTarget
	case Cancel:
		d.Rename = d.renameBefore
		s.overlay = OverlayDownloadTarget
	}
}

// checkTargetName rejects names that would leave the chosen directory.
func checkTargetName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid file name %q", name)
	}
	return nil
}

func (s *Session) confirmDownload() {
	d := *s.download
	if err := checkTargetName(d.TargetName()); err != nil {
		s.err = err
		return
	}
	s.closeOverlay()

	st, err := s.storeFor(d.Remote)
	if err != nil {
		s.err = err
		return
	}
	job := transfer.Job{
		DisplayName: d.DisplayName,
		Key:         d.Key,
		IsDir:       d.IsDir,
		DestDir:     s.local.Path,
		TargetName:  d.TargetName(),
	}

	concurrency := s.settings.Concurrency
	if concurrency < 1 {
		concurrency = transfer.DefaultConcurrency
	}
	logrus.WithFields(logrus.Fields{
		"bucket": d.Bucket,
		"key":    d.Key,
		"dest":   job.Destination(),
	}).Info("session: download started")

	s.task = transfer.Start(s.ctx, st, d.Bucket, job, concurrency)
	s.lastJob = job
	p := transfer.Progress{}
	if !job.IsDir {
		p.FilesTotal = 1
	}
	s.progress = &p
	s.status = fmt.Sprintf("Downloading %s to %s", d.DisplayName, s.local.Display())
}

// ── preview ─────────────────────────────────────────────────────────

func (s *Session) requestPreview() {
	e, ok := s.SelectedEntry()
	if !ok {
		return
	}
	obj, ok := e.(models.ObjectEntry)
	l, inBucket := s.location.(models.ObjectList)
	if !ok || !inBucket || obj.IsDir {
		s.status = "No file selected for preview"
		return
	}
	st, err := s.storeFor(l.Remote)
	if err != nil {
		s.err = err
		return
	}

	contentType := ""
	if s.metadata != nil && s.metadata.Key == obj.Object.Key {
		contentType = s.metadata.ContentType
	}
	kind, err := s.preview.Request(st, l.Bucket, obj.Object, contentType)
	if errors.Is(err, preview.ErrUnsupported) {
		s.status = "Unsupported file type for preview"
		return
	}
	switch kind {
	case preview.KindText:
		s.status = "Loading text preview..."
	case preview.KindImage, preview.KindVideo:
		s.status = fmt.Sprintf("Opening %s in %s...", kind, s.settings.Viewer)
	}
}

