// Package localfs browses the local filesystem for the download target pane.
package localfs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item is a local file or directory.
type Item struct {
	Name  string
	IsDir bool
	Size  int64
}

// List reads dir, skipping hidden entries, directories first then by
// case-insensitive name.
func List(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{
			Name:  entry.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// Browser is the cursor state of the local pane.
type Browser struct {
	Path     string
	Items    []Item
	Selected int
	Err      error
}

// NewBrowser opens dir, falling back to the working directory when dir is
// empty.
func NewBrowser(dir string) *Browser {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "."
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	b := &Browser{Path: dir}
	b.Reload()
	return b
}

// Reload re-reads the current directory and resets the cursor.
func (b *Browser) Reload() {
	items, err := List(b.Path)
	b.Items = items
	b.Err = err
	b.Selected = 0
	if len(items) == 0 {
		b.Selected = -1
	}
}

func (b *Browser) Up() {
	if b.Selected > 0 {
		b.Selected--
	}
}

func (b *Browser) Down() {
	if b.Selected+1 < len(b.Items) {
		b.Selected++
	}
}

// Enter descends into the selected directory.
func (b *Browser) Enter() {
	if b.Selected < 0 || b.Selected >= len(b.Items) || !b.Items[b.Selected].IsDir {
		return
	}
	b.Path = filepath.Join(b.Path, b.Items[b.Selected].Name)
	b.Reload()
}

// Back goes to the parent directory, reselecting the directory we came from.
func (b *Browser) Back() {
	parent := filepath.Dir(b.Path)
	if parent == b.Path {
		return
	}
	child := filepath.Base(b.Path)
	b.Path = parent
	b.Reload()
	for i, it := range b.Items {
		if it.Name == child {
			b.Selected = i
			break
		}
	}
}

// Display abbreviates the home directory to ~.
func (b *Browser) Display() string {
	return Abbreviate(b.Path, os.Getenv("HOME"))
}

// Abbreviate replaces a leading home with ~.
func Abbreviate(path, home string) string {
	if home == "" || home == "/" {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return path
}
