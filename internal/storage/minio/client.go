package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"docshare/internal/config"
	"docshare/internal/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	errFailedInitClientFmt   = "failed to initialize MinIO client: %w"
	errFailedPutObjectFmt    = "failed to put object: %w"
	errFailedGetObjectFmt    = "failed to get object: %w"
	errFailedStatObjectFmt   = "failed to stat object: %w"
	errFailedRemoveObjectFmt = "failed to remove object: %w"
	errFailedCheckBucketFmt  = "failed to check bucket: %w"
	errFailedMakeBucketFmt   = "failed to create bucket: %w"
)

// Client stores blobs in a MinIO bucket.
type Client struct {
	client *minio.Client
	bucket string
	region string
}

var _ storage.BlobStore = (*Client)(nil)

func NewClient(cfg *config.BlobConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf(errFailedInitClientFmt, err)
	}

	return &Client{client: client, bucket: cfg.Bucket, region: cfg.Region}, nil
}

// Put streams r into the bucket. A negative size makes minio-go use a
// multipart upload of unknown length.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf(errFailedPutObjectFmt, err)
	}
	return nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := c.Size(ctx, key); err != nil {
		return nil, err
	}

	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf(errFailedGetObjectFmt, err)
	}
	return obj, nil
}

func (c *Client) Size(ctx context.Context, key string) (int64, error) {
	info, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return 0, storage.ErrObjectNotFound
		}
		return 0, fmt.Errorf(errFailedStatObjectFmt, err)
	}
	return info.Size, nil
}

// Delete succeeds when the object is already gone.
func (c *Client) Delete(ctx context.Context, key string) error {
	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf(errFailedRemoveObjectFmt, err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf(errFailedCheckBucketFmt, err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf(errFailedMakeBucketFmt, err)
	}
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}
