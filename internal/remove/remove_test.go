package remove

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4browse/internal/store"
	"github.com/slmtnm/s4browse/internal/store/storetest"
)

func TestPrefixBatches(t *testing.T) {
	tests := []struct {
		name     string
		keys     int
		pageSize int
		calls    int
	}{
		{"single page", 10, 1000, 1},
		{"exact batch", 1000, 1000, 1},
		{"pages smaller than batch", 2500, 300, 3},
		{"pages larger than batch", 2001, 1000, 3},
		{"empty", 0, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storetest.New()
			st.PageSize = tt.pageSize
			st.AddBucket("b")
			for i := 0; i < tt.keys; i++ {
				st.PutSized("b", fmt.Sprintf("docs/%05d", i), 1)
			}
			st.PutSized("b", "keep.txt", 1)

			n, err := Prefix(context.Background(), st, "b", "docs/")
			require.NoError(t, err)
			assert.Equal(t, tt.keys, n)

			calls := st.DeleteCalls()
			assert.Len(t, calls, tt.calls)
			for _, c := range calls {
				assert.LessOrEqual(t, len(c), BatchLimit)
			}
			assert.Equal(t, []string{"keep.txt"}, st.Keys("b"))
		})
	}
}

func TestPrefixDoesNotTouchSiblings(t *testing.T) {
	st := storetest.New()
	st.PutSized("b", "docs/a", 1)
	st.PutSized("b", "docs/sub/b", 1)
	st.PutSized("b", "docs-old/file", 1)

	n, err := Prefix(context.Background(), st, "b", "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"docs-old/file"}, st.Keys("b"))
}

func TestPrefixBatchFailure(t *testing.T) {
	st := storetest.New()
	st.PutSized("b", "d/1", 1)
	st.PutSized("b", "d/2", 1)
	st.FailDelete("d/2")

	_, err := Prefix(context.Background(), st, "b", "d/")
	var be *store.BatchDeleteError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 2, be.Count)
	assert.ErrorIs(t, err, storetest.ErrInjected)
}

func TestPrefixListFailure(t *testing.T) {
	st := storetest.New()
	st.AddBucket("b")
	st.FailList(true)

	_, err := Prefix(context.Background(), st, "b", "d/")
	var le *store.ListError
	assert.ErrorAs(t, err, &le)
}

func TestPrefixRejectsEmpty(t *testing.T) {
	st := storetest.New()
	st.PutSized("b", "a", 1)
	_, err := Prefix(context.Background(), st, "b", "")
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, st.Keys("b"))
}

func TestObject(t *testing.T) {
	st := storetest.New()
	st.PutSized("b", "a", 1)
	st.PutSized("b", "bad", 1)
	st.FailDelete("bad")

	require.NoError(t, Object(context.Background(), st, "b", "a"))
	assert.Equal(t, []string{"a"}, st.Deleted())

	var te *store.TransferError
	assert.ErrorAs(t, Object(context.Background(), st, "b", "bad"), &te)
}

func TestMatchesPrefix(t *testing.T) {
	assert.True(t, MatchesPrefix("docs/file", "docs/"))
	assert.True(t, MatchesPrefix("docs/a/b", "docs"))
	assert.False(t, MatchesPrefix("docs-old/file", "docs/"))
	assert.False(t, MatchesPrefix("docs-old/file", "docs"))
}
