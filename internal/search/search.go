// Package search implements the live filter overlay: snapshot of the
// listing at start, case-insensitive substring filtering, restore on cancel.
package search

import (
	"strings"

	"github.com/slmtnm/s4browse/internal/index"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/store"
)

// Source says what a search filters.
type Source int

const (
	// SourceListing filters the already-loaded remotes or buckets by name.
	SourceListing Source = iota
	// SourceIndex filters the bucket-wide index pool by full key.
	SourceIndex
)

// Snapshot is the listing state saved when a search starts.
type Snapshot struct {
	Entries   []models.Entry
	Location  models.Location
	Selection int
}

// Session is one active search. The snapshot is written once by Begin and
// only read afterwards; keys deleted meanwhile are recorded with Drop and
// filtered out by Saved.
type Session struct {
	Query  string
	Source Source
	// Context is the bucket searched when Source is SourceIndex.
	Context index.Key
	saved   Snapshot
	dropped []func(key string) bool
}

// Begin snapshots the current listing and picks the filter source from loc.
func Begin(entries []models.Entry, loc models.Location, selection int) *Session {
	saved := Snapshot{
		Entries:   append([]models.Entry(nil), entries...),
		Location:  loc,
		Selection: selection,
	}
	s := &Session{saved: saved, Source: SourceListing}
	switch l := loc.(type) {
	case models.ObjectList:
		s.Source = SourceIndex
		s.Context = index.Key{Remote: l.Remote, Bucket: l.Bucket}
	case models.BucketList, models.RemoteList:
	default:
		panic("search: unknown location")
	}
	return s
}

// Drop records that keys matching match no longer exist.
func (s *Session) Drop(match func(key string) bool) {
	s.dropped = append(s.dropped, match)
}

func (s *Session) isDropped(key string) bool {
	for _, match := range s.dropped {
		if match(key) {
			return true
		}
	}
	return false
}

// Saved returns the snapshot taken by Begin without any dropped entries.
// The selection follows its row when earlier rows were dropped.
func (s *Session) Saved() Snapshot {
	if len(s.dropped) == 0 {
		return s.saved
	}
	out := Snapshot{Location: s.saved.Location, Selection: s.saved.Selection}
	for i, e := range s.saved.Entries {
		if s.isDropped(e.Key()) {
			if i < s.saved.Selection {
				out.Selection--
			}
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	out.Selection = ClampSelection(out.Selection, len(out.Entries))
	return out
}

func (s *Session) Input(r rune) { s.Query += string(r) }

func (s *Session) Backspace() {
	if s.Query == "" {
		return
	}
	q := []rune(s.Query)
	s.Query = string(q[:len(q)-1])
}

// Results filters the session's source with the current query. pool is
// only used for index-backed searches.
func (s *Session) Results(pool []store.Object) []models.Entry {
	if s.Source == SourceIndex {
		matches := FilterObjects(pool, s.Query)
		out := make([]models.Entry, 0, len(matches))
		for _, o := range matches {
			// show the full key so matches from other directories are distinguishable
			o.DisplayName = o.Key
			out = append(out, models.ObjectEntry{Object: o})
		}
		return out
	}
	return FilterEntries(s.Saved().Entries, s.Query)
}

// FilterObjects keeps objects whose key contains query, ignoring case. An
// empty query returns objects unchanged.
func FilterObjects(objects []store.Object, query string) []store.Object {
	if query == "" {
		return objects
	}
	q := strings.ToLower(query)
	var out []store.Object
	for _, o := range objects {
		if strings.Contains(strings.ToLower(o.Key), q) {
			out = append(out, o)
		}
	}
	return out
}

// FilterEntries keeps entries whose name contains query, ignoring case.
func FilterEntries(entries []models.Entry, query string) []models.Entry {
	if query == "" {
		return entries
	}
	q := strings.ToLower(query)
	var out []models.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name()), q) {
			out = append(out, e)
		}
	}
	return out
}

// ClampSelection keeps prev as the selected row if it is still in range,
// otherwise the last row; -1 means nothing is selectable.
func ClampSelection(prev, n int) int {
	if n == 0 {
		return -1
	}
	if prev < 0 {
		return 0
	}
	if prev >= n {
		return n - 1
	}
	return prev
}
