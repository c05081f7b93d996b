package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/slmtnm/s4browse/internal/config"
)

// DefaultPageSize is the number of keys MinioClient returns per ListPage call.
const DefaultPageSize = 1000

// MinioClient implements Store on top of minio-go, for remotes configured
// with backend = minio.
type MinioClient struct {
	client   *minio.Client
	pageSize int
}

// NewMinioClient creates a minio-go client for a configured remote.
func NewMinioClient(remote config.Remote) (*MinioClient, error) {
	endpoint, secure, err := splitEndpoint(remote.URL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(remote.AccessKey, remote.SecretKey, ""),
		Secure: secure,
		Region: remote.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioClient{client: client, pageSize: DefaultPageSize}, nil
}

func (c *MinioClient) ListBuckets(ctx context.Context) ([]Bucket, error) {
	infos, err := c.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	buckets := make([]Bucket, 0, len(infos))
	for _, b := range infos {
		buckets = append(buckets, Bucket{Name: b.Name, CreationDate: b.CreationDate})
	}
	return buckets, nil
}

func (c *MinioClient) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var dirs, files []Object
	for obj := range c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false, // Non-recursive to get folders
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if obj.Key == prefix {
			continue
		}
		if IsDirMarker(obj.Key) {
			if name := displayName(obj.Key, prefix); name != "" {
				dirs = append(dirs, Object{Key: obj.Key, DisplayName: name, IsDir: true})
			}
			continue
		}
		files = append(files, Object{
			Key:          obj.Key,
			DisplayName:  strings.TrimPrefix(obj.Key, prefix),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return append(dirs, files...), nil
}

// ListPage emulates continuation tokens with StartAfter: the token is the
// last key of the previous page.
func (c *MinioClient) ListPage(ctx context.Context, bucket, prefix, token string) (Page, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // stops the listing goroutine when we break early

	opts := minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: token,
	}

	var page Page
	for obj := range c.client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return Page{}, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		page.Objects = append(page.Objects, Object{
			Key:          obj.Key,
			DisplayName:  obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		if len(page.Objects) >= c.pageSize {
			page.NextToken = obj.Key
			break
		}
	}
	return page, nil
}

func (c *MinioClient) GetObjectRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	if end <= start {
		return []byte{}, nil
	}
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end-1); err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}
	obj, err := c.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}
	return data, nil
}

func (c *MinioClient) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, info.Size, nil
}

func (c *MinioClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (c *MinioClient) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) > MaxDeleteBatch {
		return fmt.Errorf("too many keys for one delete request: %d > %d", len(keys), MaxDeleteBatch)
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var (
		failed int
		first  minio.RemoveObjectError
	)
	for rerr := range c.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if failed == 0 {
			first = rerr
		}
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d objects, first %s: %w",
			failed, len(keys), first.ObjectName, first.Err)
	}
	return nil
}

func (c *MinioClient) HeadObject(ctx context.Context, bucket, key string) (Metadata, error) {
	info, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to head object: %w", err)
	}
	return Metadata{
		Key:             key,
		Size:            info.Size,
		ContentType:     info.ContentType,
		LastModified:    info.LastModified,
		ETag:            info.ETag,
		VersionID:       info.VersionID,
		StorageClass:    info.StorageClass,
		UserMetadata:    info.UserMetadata,
		ContentEncoding: info.Metadata.Get("Content-Encoding"),
		CacheControl:    info.Metadata.Get("Cache-Control"),
	}, nil
}

func (c *MinioClient) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	u, err := c.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

func (c *MinioClient) HeadBucket(ctx context.Context, bucket string) error {
	ok, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to access bucket '%s': %w", bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket '%s' does not exist", bucket)
	}
	return nil
}

// splitEndpoint turns a remote URL into the host[:port] form minio-go wants.
// Scheme-less endpoints fall back to shouldUseSSL.
func splitEndpoint(raw string) (string, bool, error) {
	if raw == "" {
		return "", false, fmt.Errorf("remote has no endpoint url")
	}
	if !strings.Contains(raw, "://") {
		return raw, shouldUseSSL(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint url %q: missing host", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

// shouldUseSSL determines if SSL should be used based on the endpoint.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	host := strings.Split(endpoint, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return false
	}
	// Docker service names (minio:9000, minio1:9000, ...) but not domain names
	if strings.HasPrefix(host, "minio") && !strings.Contains(host, ".") {
		return false
	}
	return true
}
