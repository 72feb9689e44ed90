package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"docshare/internal/config"
	"docshare/internal/storage"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const (
	emptyAWSSessionToken         = ""
	defaultS3Region              = "us-east-1"
	uploadPartSize               = 16 * 1024 * 1024
	uploadConcurrency            = 4
	errFailedCreateAWSSessionFmt = "failed to create AWS session: %w"
	errFailedPutObjectFmt        = "failed to put object: %w"
	errFailedGetObjectFmt        = "failed to get object: %w"
	errFailedHeadObjectFmt       = "failed to stat object: %w"
	errFailedDeleteObjectFmt     = "failed to delete object: %w"
	errFailedCreateBucketFmt     = "failed to create bucket: %w"
	errFailedWaitBucketExistsFmt = "failed to wait for bucket to exist: %w"
	errMissingContentLengthFmt   = "object %s has no content length"
)

// Client stores blobs in a single S3 (or S3-compatible) bucket.
type Client struct {
	svc      *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
}

var _ storage.BlobStore = (*Client)(nil)

func NewClient(cfg *config.BlobConfig) (*Client, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		)
	}

	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.DisableSSL = aws.Bool(!cfg.UseSSL)
	}
	awsCfg.S3ForcePathStyle = aws.Bool(cfg.PathStyle)

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	svc := s3.New(sess)
	uploader := s3manager.NewUploaderWithClient(svc, func(u *s3manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})

	return &Client{
		svc:      svc,
		uploader: uploader,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
	}, nil
}

func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf(errFailedPutObjectFmt, err)
	}
	return nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf(errFailedGetObjectFmt, err)
	}
	return out.Body, nil
}

// Size reads the stored length from a HEAD request.
func (c *Client) Size(ctx context.Context, key string) (int64, error) {
	out, err := c.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, storage.ErrObjectNotFound
		}
		return 0, fmt.Errorf(errFailedHeadObjectFmt, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf(errMissingContentLengthFmt, key)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// Delete succeeds when the object is already gone.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf(errFailedDeleteObjectFmt, err)
	}
	return nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *Client) EnsureBucket(ctx context.Context) error {
	_, err := c.svc.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	}

	if c.region != "" && c.region != defaultS3Region {
		input.CreateBucketConfiguration = &s3.CreateBucketConfiguration{
			LocationConstraint: aws.String(c.region),
		}
	}

	if _, err := c.svc.CreateBucketWithContext(ctx, input); err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeBucketAlreadyOwnedByYou {
			return nil
		}
		return fmt.Errorf(errFailedCreateBucketFmt, err)
	}

	if err := c.svc.WaitUntilBucketExistsWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	}); err != nil {
		return fmt.Errorf(errFailedWaitBucketExistsFmt, err)
	}

	return nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
