package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/index"
	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/store"
)

func objects(keys ...string) []store.Object {
	out := make([]store.Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, store.Object{Key: k, DisplayName: k})
	}
	return out
}

func keysOf(objs []store.Object) []string {
	var out []string
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

func TestFilterObjectsScenario(t *testing.T) {
	pool := objects("a/1.txt", "a/2.txt", "b/1.txt")
	assert.Equal(t, []string{"a/1.txt", "a/2.txt"}, keysOf(FilterObjects(pool, "a/")))
}

func TestFilterObjectsCaseInsensitive(t *testing.T) {
	pool := objects("Photos/IMG_1.JPG", "docs/readme.md")
	assert.Equal(t, []string{"Photos/IMG_1.JPG"}, keysOf(FilterObjects(pool, "img_1.jpg")))
}

func TestEmptyQueryReturnsSource(t *testing.T) {
	pool := objects("x", "y")
	assert.Equal(t, pool, FilterObjects(pool, ""))

	entries := []models.Entry{models.BucketEntry{Bucket: store.Bucket{Name: "logs"}}}
	assert.Equal(t, entries, FilterEntries(entries, ""))
}

func TestFilterIsIdempotent(t *testing.T) {
	pool := objects("a/1", "ab/2", "b/3", "xa")
	for _, q := range []string{"a", "b/", "zz", ""} {
		once := FilterObjects(pool, q)
		assert.Equal(t, once, FilterObjects(once, q), q)
	}

	entries := []models.Entry{
		models.BucketEntry{Bucket: store.Bucket{Name: "Logs"}},
		models.BucketEntry{Bucket: store.Bucket{Name: "backups"}},
	}
	once := FilterEntries(entries, "LOG")
	require.Len(t, once, 1)
	assert.Equal(t, once, FilterEntries(once, "LOG"))
}

func TestClampSelection(t *testing.T) {
	tests := []struct {
		prev, n, want int
	}{
		{0, 0, -1},
		{5, 0, -1},
		{2, 10, 2},
		{9, 3, 2},
		{-1, 3, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampSelection(tt.prev, tt.n))
	}
}

func TestBeginPicksSource(t *testing.T) {
	s := Begin(nil, models.ObjectList{Remote: "r", Bucket: "b", Prefix: "p/"}, 0)
	assert.Equal(t, SourceIndex, s.Source)
	assert.Equal(t, index.Key{Remote: "r", Bucket: "b"}, s.Context)

	s = Begin(nil, models.BucketList{Remote: "r"}, 0)
	assert.Equal(t, SourceListing, s.Source)
	assert.Equal(t, index.Key{}, s.Context)

	s = Begin(nil, models.RemoteList{}, 0)
	assert.Equal(t, SourceListing, s.Source)
}

func TestSnapshotIsACopy(t *testing.T) {
	entries := []models.Entry{
		models.BucketEntry{Bucket: store.Bucket{Name: "a"}},
		models.BucketEntry{Bucket: store.Bucket{Name: "b"}},
	}
	s := Begin(entries, models.BucketList{Remote: "r"}, 1)
	entries[0] = models.BucketEntry{Bucket: store.Bucket{Name: "changed"}}

	saved := s.Saved()
	assert.Equal(t, "a", saved.Entries[0].Name())
	assert.Equal(t, 1, saved.Selection)
	assert.Equal(t, models.BucketList{Remote: "r"}, saved.Location)
}

func TestResults(t *testing.T) {
	s := Begin(nil, models.ObjectList{Remote: "r", Bucket: "b"}, 0)
	s.Input('a')
	s.Input('/')
	res := s.Results(objects("a/1.txt", "b/1.txt"))
	require.Len(t, res, 1)
	assert.Equal(t, "a/1.txt", res[0].Name())
	assert.Equal(t, "a/1.txt", res[0].Key())

	s.Backspace()
	s.Backspace()
	s.Backspace()
	assert.Equal(t, "", s.Query)
	assert.Len(t, s.Results(objects("a/1.txt", "b/1.txt")), 2)

	ls := Begin([]models.Entry{
		models.RemoteEntry{Alias: "prod"},
		models.RemoteEntry{Alias: "dev"},
	}, models.RemoteList{}, 0)
	ls.Input('D')
	res = ls.Results(nil)
	require.Len(t, res, 2, "prod and dev both contain d")
	ls.Input('e')
	res = ls.Results(nil)
	require.Len(t, res, 1)
	assert.Equal(t, "dev", res[0].Name())
}

func TestDropFiltersSavedEntries(t *testing.T) {
	entries := []models.Entry{
		models.ObjectEntry{Object: store.Object{Key: "a.txt", DisplayName: "a.txt"}},
		models.ObjectEntry{Object: store.Object{Key: "docs/", DisplayName: "docs", IsDir: true}},
		models.ObjectEntry{Object: store.Object{Key: "z.txt", DisplayName: "z.txt"}},
	}
	s := Begin(entries, models.ObjectList{Remote: "r", Bucket: "b"}, 2)

	s.Drop(func(key string) bool { return key == "a.txt" })

	saved := s.Saved()
	require.Len(t, saved.Entries, 2)
	assert.Equal(t, "docs", saved.Entries[0].Name())
	assert.Equal(t, 1, saved.Selection, "selection stays on z.txt")

	s.Drop(func(key string) bool { return key == "z.txt" })
	saved = s.Saved()
	require.Len(t, saved.Entries, 1)
	assert.Equal(t, 0, saved.Selection)
}
