// Package s3 stores media originals and renditions in an S3-compatible bucket
// and hands out presigned URLs for them.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

// Config describes the bucket and how to reach it. Endpoint and UsePathStyle
// are for S3-compatible services such as MinIO.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	// PresignDuration is the URL lifetime in seconds; 0 means one hour.
	PresignDuration int

	// EnableSSE applies SSEAlgorithm ("AES256" or "aws:kms") to uploads.
	EnableSSE    bool
	SSEAlgorithm string
	SSEKMSKeyID  string

	CreateBucketIfNotExist bool
}

// Backend implements simplepublish.MediaStore on S3.
type Backend struct {
	client  *s3.Client
	signer  *s3.PresignClient
	bucket  *string
	region  string
	expires time.Duration

	sse      types.ServerSideEncryption
	kmsKeyID *string
}

// New connects to the bucket described by cfg.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignDuration <= 0 {
		cfg.PresignDuration = 3600
	}

	b := &Backend{
		bucket:  aws.String(cfg.Bucket),
		region:  cfg.Region,
		expires: time.Duration(cfg.PresignDuration) * time.Second,
	}
	if cfg.EnableSSE {
		switch cfg.SSEAlgorithm {
		case "", "AES256":
			b.sse = types.ServerSideEncryptionAes256
		case "aws:kms":
			b.sse = types.ServerSideEncryptionAwsKms
			if cfg.SSEKMSKeyID != "" {
				b.kmsKeyID = aws.String(cfg.SSEKMSKeyID)
			}
		default:
			return nil, fmt.Errorf("invalid SSE algorithm: %s", cfg.SSEAlgorithm)
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	b.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	b.signer = s3.NewPresignClient(b.client)

	if cfg.CreateBucketIfNotExist {
		if err := b.ensureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
		}
	}
	return b, nil
}

func (b *Backend) ensureBucket(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: b.bucket})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	input := &s3.CreateBucketInput{Bucket: b.bucket}
	// us-east-1 rejects an explicit location constraint.
	if b.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}
	_, err = b.client.CreateBucket(ctx, input)
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return nil
	}
	return err
}

func (b *Backend) putInput(key, contentType string, body io.Reader) *s3.PutObjectInput {
	input := &s3.PutObjectInput{Bucket: b.bucket, Key: aws.String(key), Body: body}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if b.sse != "" {
		input.ServerSideEncryption = b.sse
		input.SSEKMSKeyId = b.kmsKeyID
	}
	return input
}

func (b *Backend) withExpiry(opts *s3.PresignOptions) {
	opts.Expires = b.expires
}

// UploadURL presigns a PUT of key. The uploader must send the same
// Content-Type.
func (b *Backend) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	req, err := b.signer.PresignPutObject(ctx, b.putInput(key, contentType, nil), b.withExpiry)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// DownloadURL presigns a GET of key.
func (b *Backend) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := b.signer.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: b.bucket, Key: aws.String(key)}, b.withExpiry)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// Stat returns object metadata, or simplepublish.ErrObjectMissing.
func (b *Backend) Stat(ctx context.Context, key string) (*simplepublish.ObjectMeta, error) {
	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: b.bucket, Key: aws.String(key)})
	if isNotFound(err) {
		return nil, simplepublish.ErrObjectMissing
	}
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", key, err)
	}

	contentType := aws.ToString(head.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &simplepublish.ObjectMeta{
		Key:         key,
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: contentType,
		UpdatedAt:   aws.ToTime(head.LastModified),
		ETag:        strings.Trim(aws.ToString(head.ETag), `"`),
	}, nil
}

// Put streams reader to key, switching to multipart for large bodies.
func (b *Backend) Put(ctx context.Context, key, contentType string, reader io.Reader) error {
	if _, err := manager.NewUploader(b.client).Upload(ctx, b.putInput(key, contentType, reader)); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// isNotFound also matches bare API codes, which some S3-compatible services
// return for HEAD requests instead of the typed errors.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
