// Package preview fetches the selected object for inline text display or
// hands a presigned URL to an external media viewer.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/store"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// ErrUnsupported is returned by Request for objects that cannot be previewed.
var ErrUnsupported = errors.New("unsupported file type for preview")

var textContentTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/x-yaml":     true,
	"application/toml":       true,
	"application/x-sh":       true,
}

var extKinds = map[string]Kind{}

func init() {
	for _, ext := range []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "ico", "tiff", "tif", "svg"} {
		extKinds[ext] = KindImage
	}
	for _, ext := range []string{"mp4", "mkv", "avi", "mov", "webm", "flv", "wmv", "m4v", "3gp"} {
		extKinds[ext] = KindVideo
	}
	for _, ext := range []string{
		"txt", "md", "markdown", "json", "yaml", "yml", "toml", "xml", "csv", "tsv", "log",
		"ini", "cfg", "conf", "env", "sh", "bash", "zsh", "fish", "py", "rs", "go", "js",
		"ts", "jsx", "tsx", "html", "htm", "css", "scss", "less", "sql", "rb", "lua", "c",
		"cpp", "h", "hpp", "java", "kt", "swift", "r", "pl", "pm", "php", "ex", "exs", "erl",
		"hs", "ml", "tf", "hcl", "dockerfile", "makefile", "cmake", "gitignore",
		"dockerignore", "editorconfig", "properties",
	} {
		extKinds[ext] = KindText
	}
}

// DetectKind decides how to preview an object, trusting the content type
// first and the key's extension second.
func DetectKind(contentType, key string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "video/"):
		return KindVideo
	case strings.HasPrefix(ct, "text/"), textContentTypes[ct]:
		return KindText
	}

	base := strings.ToLower(path.Base(key))
	ext := base
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		ext = base[i+1:]
	}
	return extKinds[ext]
}

// Launcher starts an external viewer without waiting for it to exit.
type Launcher func(name string, args ...string) error

func startProcess(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// ViewerArgs builds the ffplay-style argument list for a media preview.
func ViewerArgs(kind Kind, title, url string) []string {
	args := []string{"-v", "warning", "-autoexit", "-alwaysontop", "-window_title", title}
	switch kind {
	case KindImage:
		args = append(args, "-loop", "0")
	case KindVideo:
		args = append(args, "-showmode", "video")
	}
	return append(args, url)
}

// Options configures a Fetcher.
type Options struct {
	MaxBytes   int64
	PresignTTL time.Duration
	Viewer     string
	Launch     Launcher
}

type result struct {
	key     string
	text    string
	message string
	err     error
}

// Fetcher holds at most one preview. A new Request or Clear aborts the
// previous fetch and discards anything it still posts.
type Fetcher struct {
	opts Options

	key     string
	kind    Kind
	loading bool
	message string
	err     error
	lines   []string
	scroll  int

	msgs   <-chan result
	cancel context.CancelFunc
}

func NewFetcher(opts Options) *Fetcher {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 512 * 1024
	}
	if opts.Viewer == "" {
		opts.Viewer = "ffplay"
	}
	if opts.Launch == nil {
		opts.Launch = startProcess
	}
	return &Fetcher{opts: opts}
}

// Clear aborts any fetch and forgets the current preview.
func (f *Fetcher) Clear() {
	if f.cancel != nil {
		f.cancel()
	}
	*f = Fetcher{opts: f.opts}
}

// Request starts previewing obj. contentType may be empty when no metadata
// has been fetched.
func (f *Fetcher) Request(st store.Store, bucket string, obj store.Object, contentType string) (Kind, error) {
	if obj.IsDir {
		return KindUnsupported, ErrUnsupported
	}
	kind := DetectKind(contentType, obj.Key)
	if kind == KindUnsupported {
		return kind, ErrUnsupported
	}

	f.Clear()
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan result, 1)
	f.key = obj.Key
	f.kind = kind
	f.loading = true
	f.msgs = ch
	f.cancel = cancel

	if kind == KindText {
		n := obj.Size
		if n > f.opts.MaxBytes {
			n = f.opts.MaxBytes
		}
		go fetchText(ctx, st, bucket, obj.Key, n, ch)
	} else {
		go openMedia(ctx, f.opts, st, bucket, obj.Key, kind, ch)
	}
	return kind, nil
}

func fetchText(ctx context.Context, st store.Store, bucket, key string, n int64, ch chan<- result) {
	defer close(ch)
	data, err := st.GetObjectRange(ctx, bucket, key, 0, n)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		ch <- result{key: key, err: &store.TransferError{Op: "preview", Bucket: bucket, Key: key, Err: err}}
		return
	}
	ch <- result{key: key, text: RenderText(key, data)}
}

func openMedia(ctx context.Context, opts Options, st store.Store, bucket, key string, kind Kind, ch chan<- result) {
	defer close(ch)
	url, err := st.PresignGet(ctx, bucket, key, opts.PresignTTL)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		ch <- result{key: key, err: fmt.Errorf("presign failed: %w", err)}
		return
	}
	if err := opts.Launch(opts.Viewer, ViewerArgs(kind, key, url)...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%s not found, install it for media preview", opts.Viewer)
		}
		logrus.WithError(err).WithField("key", key).Warn("preview: viewer launch failed")
		ch <- result{key: key, err: err}
		return
	}
	ch <- result{key: key, message: fmt.Sprintf("Opened %s in %s", kind, opts.Viewer)}
}

// RenderText turns fetched bytes into displayable text: binary data is
// summarised, JSON is indented.
func RenderText(key string, data []byte) string {
	mtype := mimetype.Detect(data)
	if !isText(mtype) {
		return fmt.Sprintf("[binary %s, %s shown]", mtype.String(), humanize.Bytes(uint64(len(data))))
	}
	text := strings.ToValidUTF8(string(data), "�")
	if strings.EqualFold(path.Ext(key), ".json") || mtype.Is("application/json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err == nil {
			return buf.String()
		}
	}
	return text
}

func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Drain applies a finished fetch without blocking and reports whether
// anything changed.
func (f *Fetcher) Drain() bool {
	if f.msgs == nil {
		return false
	}
	select {
	case r, ok := <-f.msgs:
		f.msgs = nil
		f.cancel = nil
		f.loading = false
		if !ok || r.key != f.key {
			return true
		}
		f.err = r.err
		f.message = r.message
		if r.err == nil && r.message == "" {
			f.lines = strings.Split(strings.TrimRight(r.text, "\n"), "\n")
			f.scroll = 0
		}
		return true
	default:
		return false
	}
}

func (f *Fetcher) Key() string     { return f.key }
func (f *Fetcher) Kind() Kind      { return f.kind }
func (f *Fetcher) Loading() bool   { return f.loading }
func (f *Fetcher) Err() error      { return f.err }
func (f *Fetcher) Message() string { return f.message }
func (f *Fetcher) Lines() []string { return f.lines }
func (f *Fetcher) Scroll() int     { return f.scroll }

// Active reports whether a preview is loading or shown.
func (f *Fetcher) Active() bool { return f.key != "" }

func (f *Fetcher) ScrollUp(n int) {
	f.scroll -= n
	if f.scroll < 0 {
		f.scroll = 0
	}
}

func (f *Fetcher) ScrollDown(n int) {
	if len(f.lines) == 0 {
		return
	}
	f.scroll += n
	if last := len(f.lines) - 1; f.scroll > last {
		f.scroll = last
	}
}

// Visible returns up to height lines starting at the scroll offset.
func (f *Fetcher) Visible(height int) []string {
	if f.scroll >= len(f.lines) || height <= 0 {
		return nil
	}
	end := f.scroll + height
	if end > len(f.lines) {
		end = len(f.lines)
	}
	return f.lines[f.scroll:end]
}
