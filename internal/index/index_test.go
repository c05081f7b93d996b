package index

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/store/storetest"
)

func fill(st *storetest.Store, bucket string, n int) {
	for i := 0; i < n; i++ {
		st.PutSized(bucket, fmt.Sprintf("k/%04d", i), 1)
	}
}

func drainUntilComplete(t *testing.T, s *Streamer) DrainResult {
	t.Helper()
	var last DrainResult
	require.Eventually(t, func() bool {
		r := s.Drain()
		if r.Err != nil {
			last = r
		}
		return s.Complete()
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestStreamerIndexesWholeBucket(t *testing.T) {
	st := storetest.New()
	st.PageSize = 7
	fill(st, "b", 1203)
	st.Put("b", "dir/", nil)

	s := NewStreamer()
	require.True(t, s.Start(st, Key{Remote: "r", Bucket: "b"}))
	drainUntilComplete(t, s)

	assert.Len(t, s.Pool(), 1203, "directory markers are skipped")
	assert.Equal(t, "k/0000", s.Pool()[0].Key)
	assert.False(t, s.Running())
}

func TestStartSameKeyIsNoop(t *testing.T) {
	st := storetest.New()
	fill(st, "b", 10)

	s := NewStreamer()
	key := Key{Remote: "r", Bucket: "b"}
	require.True(t, s.Start(st, key))
	drainUntilComplete(t, s)

	gen := s.Generation()
	pool := s.Pool()

	assert.False(t, s.Start(st, key))
	assert.Equal(t, gen, s.Generation())
	assert.True(t, s.Complete())
	assert.Equal(t, pool, s.Pool())
}

func TestStartNewKeyClearsPool(t *testing.T) {
	st := storetest.New()
	fill(st, "a", 20)
	fill(st, "b", 5)

	s := NewStreamer()
	s.Start(st, Key{Remote: "r", Bucket: "a"})
	drainUntilComplete(t, s)
	require.Len(t, s.Pool(), 20)

	st.SetListDelay(20 * time.Millisecond)
	require.True(t, s.Start(st, Key{Remote: "r", Bucket: "b"}))
	assert.Empty(t, s.Pool())
	assert.False(t, s.Complete())
	k, ok := s.Key()
	assert.True(t, ok)
	assert.Equal(t, "b", k.Bucket)

	drainUntilComplete(t, s)
	require.Len(t, s.Pool(), 5)
	for _, o := range s.Pool() {
		assert.Contains(t, st.Keys("b"), o.Key)
	}
}

func TestCancelStopsOldGeneration(t *testing.T) {
	st := storetest.New()
	st.SetListDelay(10 * time.Millisecond)
	fill(st, "a", 3)

	s := NewStreamer()
	s.Start(st, Key{Remote: "r", Bucket: "a"})
	s.Cancel()

	_, ok := s.Key()
	assert.False(t, ok)
	assert.Empty(t, s.Pool())
	assert.False(t, s.Complete())

	time.Sleep(30 * time.Millisecond)
	s.Drain()
	assert.Empty(t, s.Pool())
}

func TestStreamerReportsListError(t *testing.T) {
	st := storetest.New()
	st.AddBucket("b")
	st.FailList(true)

	s := NewStreamer()
	s.Start(st, Key{Remote: "r", Bucket: "b"})
	res := drainUntilComplete(t, s)

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, storetest.ErrInjected)
	var le *store.ListError
	assert.ErrorAs(t, res.Err, &le)
}

func TestClosedChannelCountsAsComplete(t *testing.T) {
	ch := make(chan Msg, 1)
	ch <- Msg{Kind: MsgBatch, Objects: []store.Object{{Key: "x"}}}
	close(ch)

	s := NewStreamer()
	s.hasKey = true
	s.msgs = ch

	res := s.Drain()
	assert.Equal(t, 1, res.Added)
	assert.True(t, res.Finished)
	assert.True(t, s.Complete())
	assert.False(t, s.Running())
}

func TestRemoveFunc(t *testing.T) {
	s := NewStreamer()
	s.pool = []store.Object{{Key: "a/1"}, {Key: "b/1"}, {Key: "a/2"}}

	n := s.RemoveFunc(func(o store.Object) bool { return o.Key == "b/1" })
	assert.Equal(t, 1, n)
	assert.Equal(t, []store.Object{{Key: "a/1"}, {Key: "a/2"}}, s.Pool())
}

func TestSmallBatches(t *testing.T) {
	st := storetest.New()
	fill(st, "b", 9)

	s := NewStreamer()
	s.batchSize = 4
	s.Start(st, Key{Remote: "r", Bucket: "b"})

	batches := 0
	require.Eventually(t, func() bool {
		if r := s.Drain(); r.Added > 0 {
			batches++
		}
		return s.Complete()
	}, 2*time.Second, time.Millisecond)
	assert.Len(t, s.Pool(), 9)
	assert.GreaterOrEqual(t, batches, 1)
}
