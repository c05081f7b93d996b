// Package models holds the browser's closed sum types: listing entries,
// navigation locations and panes.
package models

import (
	"fmt"
	"strings"

	"github.com/slmtnm/s4browse/internal/store"
)

// Entry is one row of the remote listing: a BucketEntry or an ObjectEntry.
type Entry interface {
	// Name is what the listing shows.
	Name() string
	// Key identifies the entry within its parent: the bucket name or the object key.
	Key() string
	entry()
}

type BucketEntry struct {
	store.Bucket
}

func (e BucketEntry) Name() string { return e.Bucket.Name }
func (e BucketEntry) Key() string  { return e.Bucket.Name }
func (BucketEntry) entry()         {}

type ObjectEntry struct {
	store.Object
}

func (e ObjectEntry) Name() string { return e.DisplayName }
func (e ObjectEntry) Key() string  { return e.Object.Key }
func (ObjectEntry) entry()         {}

// RemoteEntry is a configured alias shown at the top level.
type RemoteEntry struct {
	Alias string
	URL   string
}

func (e RemoteEntry) Name() string { return e.Alias }
func (e RemoteEntry) Key() string  { return e.Alias }
func (RemoteEntry) entry()         {}

// BucketsToEntries wraps buckets in the order given.
func BucketsToEntries(buckets []store.Bucket) []Entry {
	out := make([]Entry, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketEntry{b})
	}
	return out
}

// ObjectsToEntries wraps objects in the order given.
func ObjectsToEntries(objects []store.Object) []Entry {
	out := make([]Entry, 0, len(objects))
	for _, o := range objects {
		out = append(out, ObjectEntry{o})
	}
	return out
}

// IsDir reports whether e is a synthetic directory entry.
func IsDir(e Entry) bool {
	o, ok := e.(ObjectEntry)
	return ok && o.IsDir
}

// Location is where the remote pane currently is.
type Location interface {
	location()
}

// RemoteList is the list of configured remotes.
type RemoteList struct{}

// BucketList is the buckets of one remote.
type BucketList struct {
	Remote string
}

// ObjectList is one prefix of one bucket.
type ObjectList struct {
	Remote string
	Bucket string
	Prefix string
}

func (RemoteList) location() {}
func (BucketList) location() {}
func (ObjectList) location() {}

// Display renders a location as "remote / bucket / prefix".
func Display(loc Location) string {
	switch l := loc.(type) {
	case RemoteList:
		return "remotes"
	case BucketList:
		return l.Remote
	case ObjectList:
		parts := []string{l.Remote, l.Bucket}
		if p := strings.TrimSuffix(l.Prefix, "/"); p != "" {
			parts = append(parts, p)
		}
		return strings.Join(parts, " / ")
	default:
		panic(fmt.Sprintf("unknown location %T", loc))
	}
}

// Pane identifies which side of the screen has focus.
type Pane int

const (
	PaneRemote Pane = iota
	PaneLocal
)

func (p Pane) String() string {
	switch p {
	case PaneRemote:
		return "remote"
	case PaneLocal:
		return "local"
	default:
		return fmt.Sprintf("Pane(%d)", int(p))
	}
}
