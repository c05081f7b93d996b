package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range []string{"zeta", "Alpha", ".git"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, d), 0o755))
	}
	for _, f := range []string{"b.txt", "A.txt", ".env"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("12345"), 0o644))
	}
	return root
}

func names(items []Item) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestList(t *testing.T) {
	root := mkTree(t)
	items, err := List(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "zeta", "A.txt", "b.txt"}, names(items))
	assert.True(t, items[0].IsDir)
	assert.Equal(t, int64(5), items[2].Size)
}

func TestListMissingDir(t *testing.T) {
	_, err := List(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestBrowserNavigation(t *testing.T) {
	root := mkTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "zeta", "inner.txt"), nil, 0o644))

	b := NewBrowser(root)
	assert.Equal(t, 0, b.Selected)

	b.Up()
	assert.Equal(t, 0, b.Selected)
	b.Down()
	assert.Equal(t, "zeta", b.Items[b.Selected].Name)

	b.Enter()
	assert.Equal(t, filepath.Join(root, "zeta"), b.Path)
	assert.Equal(t, []string{"inner.txt"}, names(b.Items))

	b.Enter()
	assert.Equal(t, filepath.Join(root, "zeta"), b.Path, "files are not entered")

	b.Back()
	assert.Equal(t, root, b.Path)
	assert.Equal(t, "zeta", b.Items[b.Selected].Name)

	for i := 0; i < 10; i++ {
		b.Down()
	}
	assert.Equal(t, len(b.Items)-1, b.Selected)
}

func TestBrowserEmptyDir(t *testing.T) {
	b := NewBrowser(t.TempDir())
	assert.Equal(t, -1, b.Selected)
	b.Enter()
	b.Down()
	assert.Equal(t, -1, b.Selected)
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "~", Abbreviate("/home/u", "/home/u"))
	assert.Equal(t, filepath.Join("~", "dl"), Abbreviate("/home/u/dl", "/home/u"))
	assert.Equal(t, "/home/user2", Abbreviate("/home/user2", "/home/u"))
	assert.Equal(t, "/tmp", Abbreviate("/tmp", ""))
}
