// Package transfer downloads single objects or whole prefixes to local disk
// and reports progress over a channel.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/slmtnm/s4browse/internal/store"
)

const (
	ChunkSize = 64 * 1024

	// ObjectInterval and PrefixInterval throttle progress messages.
	ObjectInterval = 100 * time.Millisecond
	PrefixInterval = 200 * time.Millisecond

	DefaultConcurrency = 4
	ChannelSize        = 64
)

// Progress is a snapshot of a running job. Byte and file counts never
// decrease within one job.
type Progress struct {
	BytesDownloaded int64
	TotalBytes      int64
	FilesDone       int
	FilesTotal      int
	// Speed is bytes per second since the job started.
	Speed    float64
	Complete bool
	Err      error
}

// Percent returns the completed fraction in [0, 1].
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		if p.Complete {
			return 1
		}
		return 0
	}
	f := float64(p.BytesDownloaded) / float64(p.TotalBytes)
	if f > 1 {
		return 1
	}
	return f
}

// Job describes one download.
type Job struct {
	DisplayName string
	Key         string
	IsDir       bool
	// DestDir is the local directory the target is created in.
	DestDir string
	// TargetName is the local file or directory name.
	TargetName string
}

// Destination is the local path the job writes to.
func (j Job) Destination() string {
	return filepath.Join(j.DestDir, j.TargetName)
}

// PartialTransferError reports that some files of a prefix download failed.
// Files that did succeed are left on disk.
type PartialTransferError struct {
	Failed int
	Total  int
	Cause  error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("%d of %d files failed, first error: %v", e.Failed, e.Total, e.Cause)
}

func (e *PartialTransferError) Unwrap() error { return e.Cause }

// send posts p unless ctx is done.
func send(ctx context.Context, out chan<- Progress, p Progress) {
	select {
	case out <- p:
	case <-ctx.Done():
	}
}

func speed(bytes int64, start time.Time) float64 {
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / elapsed
}

// DownloadObject streams one object into dest.
func DownloadObject(ctx context.Context, st store.Store, bucket, key, dest string, out chan<- Progress) error {
	start := time.Now()
	last := start
	total := int64(-1)

	written, err := copyObject(ctx, st, bucket, key, dest, func(n, size int64) {
		total = size
		if time.Since(last) < ObjectInterval {
			return
		}
		last = time.Now()
		send(ctx, out, Progress{
			BytesDownloaded: n,
			TotalBytes:      size,
			FilesTotal:      1,
			Speed:           speed(n, start),
		})
	})
	if err != nil {
		return err
	}
	if total < 0 {
		total = written
	}
	send(ctx, out, Progress{
		BytesDownloaded: written,
		TotalBytes:      total,
		FilesDone:       1,
		FilesTotal:      1,
		Speed:           speed(written, start),
	})
	return nil
}

// copyObject writes key to dest in ChunkSize pieces, calling onChunk after
// each write with the running total and the object size.
func copyObject(ctx context.Context, st store.Store, bucket, key, dest string, onChunk func(n, size int64)) (int64, error) {
	body, size, err := st.GetObjectStream(ctx, bucket, key)
	if err != nil {
		return 0, &store.TransferError{Op: "get", Bucket: bucket, Key: key, Err: err}
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, &store.TransferError{Op: "mkdir", Bucket: bucket, Key: key, Err: err}
	}
	f, err := os.Create(dest)
	if err != nil {
		return 0, &store.TransferError{Op: "create", Bucket: bucket, Key: key, Err: err}
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		r, rerr := body.Read(buf)
		if r > 0 {
			if _, werr := f.Write(buf[:r]); werr != nil {
				return n, &store.TransferError{Op: "write", Bucket: bucket, Key: key, Err: werr}
			}
			n += int64(r)
			onChunk(n, size)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return n, &store.TransferError{Op: "read", Bucket: bucket, Key: key, Err: rerr}
		}
	}
	if err := f.Close(); err != nil {
		return n, &store.TransferError{Op: "close", Bucket: bucket, Key: key, Err: err}
	}
	return n, nil
}

// localPath maps key below prefix onto root, rejecting keys that would
// escape root.
func localPath(root, prefix, key string) (string, error) {
	rel := strings.TrimPrefix(key, prefix)
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("key %q has no name below %q", key, prefix)
	}
	p := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes download directory", key)
	}
	return p, nil
}

// DownloadPrefix mirrors every object under prefix into root using at most
// concurrency parallel workers. Files that finished stay on disk when
// others fail; the error is then a *PartialTransferError.
func DownloadPrefix(ctx context.Context, st store.Store, bucket, prefix, root string, concurrency int, out chan<- Progress) error {
	if concurrency < 1 {
		concurrency = 1
	}
	start := time.Now()

	var (
		objects    []store.Object
		totalBytes int64
	)
	err := store.Walk(ctx, st, bucket, prefix, func(p store.Page) error {
		for _, o := range p.Objects {
			if store.IsDirMarker(o.Key) {
				continue
			}
			objects = append(objects, o)
			totalBytes += o.Size
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"bucket":      bucket,
		"prefix":      prefix,
		"files":       len(objects),
		"bytes":       totalBytes,
		"concurrency": concurrency,
	}).Info("transfer: prefix download started")

	send(ctx, out, Progress{TotalBytes: totalBytes, FilesTotal: len(objects)})
	if len(objects) == 0 {
		return nil
	}

	var (
		bytesDone atomic.Int64
		filesDone atomic.Int64
		failed    atomic.Int64
		firstErr  atomic.Pointer[error]
		wg        sync.WaitGroup
	)
	fail := func(err error) {
		failed.Add(1)
		firstErr.CompareAndSwap(nil, &err)
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, o := range objects {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(o store.Object) {
				defer wg.Done()
				defer sem.Release(1)

				dest, err := localPath(root, prefix, o.Key)
				if err != nil {
					fail(&store.TransferError{Op: "map", Bucket: bucket, Key: o.Key, Err: err})
					return
				}
				var prev int64
				_, err = copyObject(ctx, st, bucket, o.Key, dest, func(n, _ int64) {
					bytesDone.Add(n - prev)
					prev = n
				})
				if err != nil {
					fail(err)
					return
				}
				filesDone.Add(1)
			}(o)
		}
		wg.Wait()
	}()

	ticker := time.NewTicker(PrefixInterval)
	defer ticker.Stop()
	for running := true; running; {
		select {
		case <-done:
			running = false
		case <-ticker.C:
			b := bytesDone.Load()
			send(ctx, out, Progress{
				BytesDownloaded: b,
				TotalBytes:      totalBytes,
				FilesDone:       int(filesDone.Load()),
				FilesTotal:      len(objects),
				Speed:           speed(b, start),
			})
		}
	}

	b := bytesDone.Load()
	send(ctx, out, Progress{
		BytesDownloaded: b,
		TotalBytes:      totalBytes,
		FilesDone:       int(filesDone.Load()),
		FilesTotal:      len(objects),
		Speed:           speed(b, start),
	})

	if err := ctx.Err(); err != nil {
		return err
	}
	if n := failed.Load(); n > 0 {
		return &PartialTransferError{Failed: int(n), Total: len(objects), Cause: *firstErr.Load()}
	}
	return nil
}

// Task is a running job started with Start.
type Task struct {
	Job      Job
	Progress <-chan Progress
	cancel   context.CancelFunc
}

// Cancel aborts the job. Its channel still closes.
func (t *Task) Cancel() { t.cancel() }

// Start runs job in the background. The returned channel carries throttled
// progress and ends with one Complete message holding the result, after
// which it is closed.
func Start(ctx context.Context, st store.Store, bucket string, job Job, concurrency int) *Task {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Progress, ChannelSize)
	inner := make(chan Progress, ChannelSize)

	go func() {
		defer close(out)
		started := time.Now()

		var err error
		finished := make(chan struct{})
		last := Progress{}
		if !job.IsDir {
			last.FilesTotal = 1
		}

		go func() {
			defer close(finished)
			defer close(inner)
			if job.IsDir {
				err = DownloadPrefix(ctx, st, bucket, job.Key, job.Destination(), concurrency, inner)
			} else {
				err = DownloadObject(ctx, st, bucket, job.Key, job.Destination(), inner)
			}
		}()

		for p := range inner {
			last = p
			select {
			case out <- p:
			case <-ctx.Done():
			}
		}
		<-finished

		if err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).WithField("key", job.Key).Error("transfer: download failed")
		} else if err == nil {
			logrus.WithFields(logrus.Fields{
				"key":     job.Key,
				"dest":    job.Destination(),
				"bytes":   last.BytesDownloaded,
				"elapsed": time.Since(started).Round(time.Millisecond),
			}).Info("transfer: download finished")
		}

		last.Complete = true
		last.Err = err
		if ctx.Err() != nil {
			// consumer may be gone; a closed channel is completion too
			select {
			case out <- last:
			default:
			}
			return
		}
		out <- last
	}()

	return &Task{Job: job, Progress: out, cancel: cancel}
}
