package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/index"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/store"
)

// showRemotes lists the configured aliases. It needs no network call.
func (s *Session) showRemotes() {
	entries := make([]models.Entry, 0, len(s.cfg.Remotes))
	for _, alias := range s.cfg.Aliases() {
		r, _ := s.cfg.Remote(alias)
		entries = append(entries, models.RemoteEntry{Alias: alias, URL: r.URL})
	}
	s.location = models.RemoteList{}
	s.setEntries(entries)
}

// Open navigates straight to loc, as given on the command line.
func (s *Session) Open(loc models.Location) {
	switch l := loc.(type) {
	case models.RemoteList:
		s.listing.stop()
		s.index.Cancel()
		s.showRemotes()
	case models.BucketList:
		s.enterRemote(l.Remote)
	case models.ObjectList:
		s.enterPrefix(l.Remote, l.Bucket, l.Prefix, "")
	default:
		panic(fmt.Sprintf("session: unknown location %T", loc))
	}
}

// list starts fetching the listing for loc, superseding any listing still
// in flight.
func (s *Session) list(loc models.Location, selectKey string) {
	s.fetchListing(loc, selectKey, false)
}

// fetchListing is list with the option to rebuild the bucket index once the
// listing lands.
func (s *Session) fetchListing(loc models.Location, selectKey string, restartIndex bool) {
	s.listing.stop()

	var (
		remote string
		fetch  func(ctx context.Context, st store.Store) ([]models.Entry, error)
	)
	switch l := loc.(type) {
	case models.RemoteList:
		panic("session: remote list is not fetched")
	case models.BucketList:
		remote = l.Remote
		fetch = func(ctx context.Context, st store.Store) ([]models.Entry, error) {
			buckets, err := st.ListBuckets(ctx)
			if err != nil {
				return nil, &store.ConnectionError{Remote: l.Remote, Err: err}
			}
			return models.BucketsToEntries(buckets), nil
		}
	case models.ObjectList:
		remote = l.Remote
		fetch = func(ctx context.Context, st store.Store) ([]models.Entry, error) {
			objects, err := st.ListObjects(ctx, l.Bucket, l.Prefix)
			if err != nil {
				return nil, &store.ListError{Bucket: l.Bucket, Prefix: l.Prefix, Err: err}
			}
			return models.ObjectsToEntries(objects), nil
		}
	default:
		panic(fmt.Sprintf("session: unknown location %T", loc))
	}

	st, err := s.storeFor(remote)
	if err != nil {
		s.err = err
		return
	}

	logrus.WithField("location", models.Display(loc)).Debug("session: listing")
	s.listing = run(s.ctx, func(ctx context.Context) listResult {
		entries, err := fetch(ctx, st)
		return listResult{loc: loc, entries: entries, selectKey: selectKey, restartIndex: restartIndex, err: err}
	})
}

// applyListing makes a finished listing current. Failures leave the
// previous listing and the index in place.
func (s *Session) applyListing(res listResult) {
	if res.err != nil {
		logrus.WithError(res.err).Warn("session: listing failed")
		s.err = res.err
		return
	}

	if s.search != nil {
		// the listing replaces whatever the search was filtering
		s.closeOverlay()
	}
	s.location = res.loc
	s.setEntries(res.entries)
	s.clearDetail()

	if res.selectKey != "" {
		for i, e := range s.entries {
			if e.Key() == res.selectKey {
				s.selected = i
				break
			}
		}
	}

	switch l := res.loc.(type) {
	case models.ObjectList:
		st, err := s.storeFor(l.Remote)
		if err != nil {
			s.err = err
			return
		}
		if res.restartIndex {
			s.index.Cancel()
		}
		s.index.Start(st, index.Key{Remote: l.Remote, Bucket: l.Bucket})
	case models.BucketList, models.RemoteList:
		s.index.Cancel()
	default:
		panic(fmt.Sprintf("session: unknown location %T", res.loc))
	}
}

func (s *Session) enterRemote(alias string) {
	s.list(models.BucketList{Remote: alias}, "")
}

func (s *Session) enterPrefix(remote, bucket, prefix, selectKey string) {
	s.list(models.ObjectList{Remote: remote, Bucket: bucket, Prefix: prefix}, selectKey)
}

func (s *Session) selectEntry() {
	s.err = nil
	s.status = ""
	e, ok := s.SelectedEntry()
	if !ok {
		return
	}

	switch e := e.(type) {
	case models.RemoteEntry:
		s.enterRemote(e.Alias)
	case models.BucketEntry:
		if l, ok := s.location.(models.BucketList); ok {
			s.enterPrefix(l.Remote, e.Bucket.Name, "", "")
		}
	case models.ObjectEntry:
		l, ok := s.location.(models.ObjectList)
		if !ok {
			return
		}
		if e.IsDir {
			s.enterPrefix(l.Remote, l.Bucket, e.Object.Key, "")
			return
		}
		s.fetchMetadata(l.Remote, l.Bucket, e.Object.Key)
	default:
		panic(fmt.Sprintf("session: unknown entry %T", e))
	}
}

func (s *Session) back() {
	s.err = nil
	s.status = ""
	s.clearDetail()

	switch l := s.location.(type) {
	case models.RemoteList:
	case models.BucketList:
		s.listing.stop()
		s.index.Cancel()
		s.showRemotes()
		for i, e := range s.entries {
			if e.Key() == l.Remote {
				s.selected = i
				break
			}
		}
	case models.ObjectList:
		if l.Prefix == "" {
			s.list(models.BucketList{Remote: l.Remote}, l.Bucket)
			return
		}
		s.enterPrefix(l.Remote, l.Bucket, store.ParentPrefix(l.Prefix), l.Prefix)
	default:
		panic(fmt.Sprintf("session: unknown location %T", s.location))
	}
}

func (s *Session) refresh() {
	s.err = nil
	switch l := s.location.(type) {
	case models.RemoteList:
		s.showRemotes()
	case models.BucketList:
		s.enterRemote(l.Remote)
	case models.ObjectList:
		s.fetchListing(l, selectedKey(s), true)
	default:
		panic(fmt.Sprintf("session: unknown location %T", s.location))
	}
}

func (s *Session) fetchMetadata(remote, bucket, key string) {
	st, err := s.storeFor(remote)
	if err != nil {
		s.err = err
		return
	}
	s.meta.stop()
	s.meta = run(s.ctx, func(ctx context.Context) metaResult {
		meta, err := st.HeadObject(ctx, bucket, key)
		return metaResult{key: key, meta: meta, err: err}
	})
}

func (s *Session) applyMetadata(res metaResult) {
	if res.err != nil {
		s.err = fmt.Errorf("failed to get metadata: %w", res.err)
		return
	}
	if e, ok := s.SelectedEntry(); !ok || e.Key() != res.key {
		return
	}
	meta := res.meta
	s.metadata = &meta
}

func selectedKey(s *Session) string {
	if e, ok := s.SelectedEntry(); ok {
		return e.Key()
	}
	return ""
}
