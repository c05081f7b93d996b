package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/slmtnm/s4browse/internal/config"
)

// S3Client wraps the AWS S3 client with a remote's configuration
type S3Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	remote  config.Remote
}

// NewS3Client creates a new S3 client for a configured remote
func NewS3Client(remote config.Remote) (*S3Client, error) {
	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			remote.AccessKey,
			remote.SecretKey,
			"",
		)),
		awsconfig.WithRegion(remote.RegionOrDefault()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if remote.URL != "" {
			o.BaseEndpoint = aws.String(remote.URL)
		}
		o.UsePathStyle = true // Required for MinIO and some S3-compatible services
	})

	return &S3Client{
		client:  client,
		presign: s3.NewPresignClient(client),
		remote:  remote,
	}, nil
}

// ListBuckets lists every bucket visible to the credentials
func (c *S3Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	out, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	buckets := make([]Bucket, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name == nil {
			continue
		}
		buckets = append(buckets, Bucket{
			Name:         *b.Name,
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// ListObjects lists one page of objects in a bucket under a prefix
func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Delimiter: aws.String("/"),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	result, err := c.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	var objects []Object

	// Add directories (common prefixes)
	for _, cp := range result.CommonPrefixes {
		p := aws.ToString(cp.Prefix)
		name := displayName(p, prefix)
		if name == "" {
			continue
		}
		objects = append(objects, Object{
			Key:         p,
			DisplayName: name,
			IsDir:       true,
		})
	}

	// Add files
	for _, obj := range result.Contents {
		key := aws.ToString(obj.Key)
		if key == prefix || IsDirMarker(key) { // Skip directory markers
			continue
		}
		objects = append(objects, Object{
			Key:          key,
			DisplayName:  strings.TrimPrefix(key, prefix),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	return objects, nil
}

// ListPage lists one flat page of every key under a prefix
func (c *S3Client) ListPage(ctx context.Context, bucket, prefix, token string) (Page, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	result, err := c.client.ListObjectsV2(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list objects: %w", err)
	}

	page := Page{Objects: make([]Object, 0, len(result.Contents))}
	for _, obj := range result.Contents {
		key := aws.ToString(obj.Key)
		page.Objects = append(page.Objects, Object{
			Key:          key,
			DisplayName:  key,
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}
	if aws.ToBool(result.IsTruncated) {
		page.NextToken = aws.ToString(result.NextContinuationToken)
	}
	return page, nil
}

// GetObjectRange downloads bytes [start, end) of an object
func (c *S3Client) GetObjectRange(ctx context.Context, bucket, key string, start, end int64) ([]byte, error) {
	if end <= start {
		return []byte{}, nil
	}

	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(byteRange(start, end)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}

	return data, nil
}

// GetObjectStream opens an object body for streaming
func (c *S3Client) GetObjectStream(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object: %w", err)
	}
	return result.Body, aws.ToInt64(result.ContentLength), nil
}

// DeleteObject deletes an object from S3
func (c *S3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	_, err := c.client.DeleteObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// DeleteObjects deletes up to MaxDeleteBatch objects in one request
func (c *S3Client) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > MaxDeleteBatch {
		return fmt.Errorf("too many keys for one delete request: %d > %d", len(keys), MaxDeleteBatch)
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("failed to delete %d of %d objects, first %s: %s",
			len(out.Errors), len(keys), aws.ToString(first.Key), aws.ToString(first.Message))
	}

	return nil
}

// HeadObject fetches an object's metadata
func (c *S3Client) HeadObject(ctx context.Context, bucket, key string) (Metadata, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to head object: %w", err)
	}

	return Metadata{
		Key:             key,
		Size:            aws.ToInt64(out.ContentLength),
		ContentType:     aws.ToString(out.ContentType),
		LastModified:    aws.ToTime(out.LastModified),
		ETag:            aws.ToString(out.ETag),
		VersionID:       aws.ToString(out.VersionId),
		StorageClass:    string(out.StorageClass),
		UserMetadata:    out.Metadata,
		ContentEncoding: aws.ToString(out.ContentEncoding),
		CacheControl:    aws.ToString(out.CacheControl),
	}, nil
}

// PresignGet returns a time-limited GET URL for an object
func (c *S3Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return req.URL, nil
}

// HeadBucket checks if a bucket exists and is accessible
func (c *S3Client) HeadBucket(ctx context.Context, bucket string) error {
	input := &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}

	_, err := c.client.HeadBucket(ctx, input)
	if err != nil {
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchBucket") {
			return fmt.Errorf("bucket '%s' does not exist", bucket)
		}
		return fmt.Errorf("failed to access bucket '%s': %w", bucket, err)
	}

	return nil
}

// byteRange formats an HTTP Range header for [start, end).
func byteRange(start, end int64) string {
	return fmt.Sprintf("bytes=%d-%d", start, end-1)
}
