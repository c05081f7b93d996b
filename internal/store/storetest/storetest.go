// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slmtnm/s4browse/internal/store"
)

// ErrInjected is returned for keys registered with FailGet, FailDelete or
// FailList.
var ErrInjected = errors.New("injected failure")

// Store is a thread-safe fake keyed by bucket then object key.
type Store struct {
	mu sync.Mutex

	// PageSize bounds ListPage results; zero means 1000.
	PageSize int

	buckets     map[string]map[string][]byte
	contentType map[string]string
	failGet     map[string]bool
	failDelete  map[string]bool
	failList    bool
	listDelay   time.Duration
	blockGet    chan struct{}

	listPageCalls int
	deleteCalls   [][]string
	deleted       []string
	presigned     []string
}

// New returns an empty fake store.
func New() *Store {
	return &Store{
		buckets:     make(map[string]map[string][]byte),
		contentType: make(map[string]string),
		failGet:     make(map[string]bool),
		failDelete:  make(map[string]bool),
	}
}

// Put stores an object, creating the bucket if needed.
func (s *Store) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	b[key] = data
}

// PutSized stores an object of n zero bytes.
func (s *Store) PutSized(bucket, key string, n int) {
	s.Put(bucket, key, make([]byte, n))
}

// AddBucket creates an empty bucket.
func (s *Store) AddBucket(bucket string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string][]byte)
	}
}

// SetContentType sets the content type HeadObject reports for key.
func (s *Store) SetContentType(bucket, key, ct string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentType[bucket+"/"+key] = ct
}

// FailGet makes every read of key fail.
func (s *Store) FailGet(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet[key] = true
}

// FailDelete makes deletes that include key fail.
func (s *Store) FailDelete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[key] = true
}

// FailList makes every listing call fail.
func (s *Store) FailList(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = fail
}

// SetListDelay makes listing calls wait d or until their context is done.
func (s *Store) SetListDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listDelay = d
}

// BlockGets makes object reads wait until the returned func is called.
func (s *Store) BlockGets() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.blockGet = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Keys returns the sorted keys of a bucket.
func (s *Store) Keys(bucket string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.buckets[bucket])
}

// DeleteCalls returns a snapshot of the bulk delete batches issued so far.
func (s *Store) DeleteCalls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.deleteCalls))
	copy(out, s.deleteCalls)
	return out
}

// ListPageCount returns how many ListPage calls were made.
func (s *Store) ListPageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPageCalls
}

// Deleted returns every key removed so far, in order.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// PresignedURLs returns the URLs handed out by PresignGet.
func (s *Store) PresignedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.presigned...)
}

func sortedKeys(b map[string][]byte) []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) waitList(ctx context.Context) error {
	s.mu.Lock()
	d, fail := s.listDelay, s.failList
	s.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrInjected
	}
	return nil
}

func (s *Store) bucket(name string) (map[string][]byte, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, fmt.Errorf("no such bucket %q", name)
	}
	return b, nil
}

func (s *Store) ListBuckets(ctx context.Context) ([]store.Bucket, error) {
	if err := s.waitList(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buckets))
	for n := range s.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]store.Bucket, 0, len(names))
	for _, n := range names {
		out = append(out, store.Bucket{Name: n})
	}
	return out, nil
}

func (s *Store) ListObjects(ctx context.Context, bucket, prefix string) ([]store.Object, error) {
	if err := s.waitList(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}

	var dirs, files []store.Object
	seen := make(map[string]bool)
	for _, k := range sortedKeys(b) {
		if !strings.HasPrefix(k, prefix) || k == prefix {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			dir := prefix + rest[:i+1]
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, store.Object{Key: dir, DisplayName: rest[:i], IsDir: true})
			}
			continue
		}
		files = append(files, store.Object{Key: k, DisplayName: rest, Size: int64(len(b[k]))})
	}
	return append(dirs, files...), nil
}

// ListPage uses the last key of the previous page as its continuation
// token, so deleting already listed keys does not shift later pages.
func (s *Store) ListPage(ctx context.Context, bucket, prefix, token string) (store.Page, error) {
	if err := s.waitList(ctx); err != nil {
		return store.Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listPageCalls++
	b, err := s.bucket(bucket)
	if err != nil {
		return store.Page{}, err
	}

	var keys []string
	for _, k := range sortedKeys(b) {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	size := s.PageSize
	if size <= 0 {
		size = store.MaxDeleteBatch
	}

	var page store.Page
	for i, k := range keys {
		if i == size {
			page.NextToken = page.Objects[len(page.Objects)-1].Key
			break
		}
		page.Objects = append(page.Objects, store.Object{Key: k, DisplayName: k, Size: int64(len(b[k]))})
	}
	return page, nil
}

func (s *Store) read(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	block := s.blockGet
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet[key] {
		return nil, ErrInjected
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	data, ok := b[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return data, nil
}

func (s *Store) GetObjectRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	data, err := s.read(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	if start >= end {
		return []byte{}, nil
	}
	return append([]byte(nil), data[start:end]...), nil
}

func (s *Store) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	data, err := s.read(ctx, bucket, key)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[key] {
		return ErrInjected
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *Store) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) > store.MaxDeleteBatch {
		return fmt.Errorf("too many keys for one delete request: %d", len(keys))
	}
	s.deleteCalls = append(s.deleteCalls, append([]string(nil), keys...))
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if s.failDelete[k] {
			return ErrInjected
		}
	}
	for _, k := range keys {
		delete(b, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

func (s *Store) HeadObject(ctx context.Context, bucket, key string) (store.Metadata, error) {
	data, err := s.read(ctx, bucket, key)
	if err != nil {
		return store.Metadata{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Metadata{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: s.contentType[bucket+"/"+key],
		ETag:        fmt.Sprintf("\"%x\"", len(data)),
	}, nil
}

func (s *Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if _, err := s.read(ctx, bucket, key); err != nil {
		return "", err
	}
	u := fmt.Sprintf("http://fake/%s/%s?ttl=%s", bucket, key, ttl)
	s.mu.Lock()
	s.presigned = append(s.presigned, u)
	s.mu.Unlock()
	return u, nil
}

func (s *Store) HeadBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.bucket(bucket)
	return err
}

var _ store.Store = (*Store)(nil)
