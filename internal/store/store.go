// Package store defines the object storage contract used by the browser and
// its S3 and MinIO backends.
package store

import (
	"context"
	"io"
	"strings"
	"time"
)

// MaxDeleteBatch is the largest number of keys a single bulk delete accepts.
const MaxDeleteBatch = 1000

// DefaultPresignTTL is used when a caller passes a zero TTL to PresignGet.
const DefaultPresignTTL = time.Hour

// Bucket is a top-level namespace within a remote.
type Bucket struct {
	Name         string
	CreationDate time.Time
}

// Object is a listed key. IsDir objects come from common prefixes and do
// not exist in storage.
type Object struct {
	Key          string
	DisplayName  string
	Size         int64
	LastModified time.Time
	IsDir        bool
}

// Metadata is the result of a HEAD request on an object.
type Metadata struct {
	Key             string
	Size            int64
	ContentType     string
	LastModified    time.Time
	ETag            string
	VersionID       string
	StorageClass    string
	UserMetadata    map[string]string
	ContentEncoding string
	CacheControl    string
}

// Page is one page of a flat (non-delimited) listing. An empty NextToken
// means the listing is exhausted.
type Page struct {
	Objects   []Object
	NextToken string
}

// Store performs individual storage operations. Implementations are safe for
// concurrent use and hold no per-call state.
type Store interface {
	ListBuckets(ctx context.Context) ([]Bucket, error)
	// ListObjects returns one delimiter-based page under prefix, directories first.
	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)
	// ListPage returns one flat page of every key under prefix.
	ListPage(ctx context.Context, bucket, prefix, token string) (Page, error)
	// GetObjectRange reads bytes [start, end) of an object.
	GetObjectRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error)
	GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	// DeleteObjects removes up to MaxDeleteBatch keys in one call.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
	HeadObject(ctx context.Context, bucket, key string) (Metadata, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	HeadBucket(ctx context.Context, bucket string) error
}

// Walk pages through every object under prefix, calling fn once per page
// until the listing is exhausted, fn fails or ctx is done.
func Walk(ctx context.Context, s Store, bucket, prefix string, fn func(Page) error) error {
	token := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.ListPage(ctx, bucket, prefix, token)
		if err != nil {
			return &ListError{Bucket: bucket, Prefix: prefix, Err: err}
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// IsDirMarker reports whether key is a zero-byte "folder" placeholder.
func IsDirMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}

// ParentPrefix returns the directory prefix that contains key, with a
// trailing slash, or "" for top-level keys.
func ParentPrefix(key string) string {
	trimmed := strings.TrimRight(key, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[:i+1]
	}
	return ""
}

// displayName strips prefix and any trailing slash from key.
func displayName(key, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
}
