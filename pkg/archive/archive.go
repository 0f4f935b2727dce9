// Package archive uploads database backups to S3-compatible object storage.
// The Archive is a lifecycle component: Initialize builds the client and
// checks the bucket is reachable, Destroy drops the client.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.opentelemetry.io/otel/codes"

	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/internal/telemetry"
	dberrors "github.com/marmos91/fieldstore/pkg/database/errors"
)

// Client is the subset of the S3 API the archive uses. *s3.Client satisfies it.
type Client interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Metrics receives archive instrumentation. A nil Metrics disables collection.
type Metrics interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	RecordBytes(operation string, bytes int64)
}

// Object describes one archived backup.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Archive is the backup uploader component.
type Archive struct {
	cfg Config

	mu          sync.RWMutex
	client      Client
	initialized bool

	// preset is a client supplied through WithClient; Initialize uses it
	// instead of building one from the AWS configuration.
	preset Client

	now     func() time.Time
	log     logger.Logger
	metrics Metrics
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logging collaborator.
func WithLogger(l logger.Logger) Option {
	return func(a *Archive) { a.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(a *Archive) { a.metrics = m }
}

// WithClient makes Initialize use c instead of building an S3 client.
func WithClient(c Client) Option {
	return func(a *Archive) { a.preset = c }
}

// WithClock overrides the time source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// New creates an archive. It does not touch the network until Initialize.
func New(cfg Config, opts ...Option) *Archive {
	a := &Archive{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrDefault(a.log)
	a.cfg.ApplyDefaults()
	return a
}

// Bucket returns the target bucket.
func (a *Archive) Bucket() string {
	return a.cfg.Bucket
}

// Initialize builds the S3 client and verifies the bucket exists.
func (a *Archive) Initialize(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}
	if err := a.cfg.Validate(); err != nil {
		return dberrors.NewInitializationError(err, "archive configuration")
	}
	if a.cfg.Bucket == "" {
		return dberrors.NewInitializationError(nil, "archive bucket is not configured")
	}

	ctx, span := telemetry.StartArchiveSpan(ctx, "initialize", a.cfg.Bucket)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	client := a.preset
	if client == nil {
		client, err = newS3Client(ctx, a.cfg)
		if err != nil {
			return dberrors.NewInitializationError(err, "build S3 client")
		}
	}

	start := time.Now()
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.cfg.Bucket)})
	a.observe("head_bucket", start, err)
	if err != nil {
		return dberrors.NewInitializationError(classify(err, "bucket", a.cfg.Bucket), "archive bucket check")
	}

	a.client = client
	a.initialized = true
	a.log.Info("Archive ready", logger.KeyBucket, a.cfg.Bucket, "region", a.cfg.Region)
	return nil
}

// Destroy releases the client.
func (a *Archive) Destroy(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
	a.initialized = false
	return nil
}

// IsInitialized reports whether the bucket check succeeded.
func (a *Archive) IsInitialized() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized
}

// Healthcheck repeats the bucket check.
func (a *Archive) Healthcheck(ctx context.Context) error {
	client, err := a.ready("healthcheck")
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.cfg.Bucket)})
	a.observe("head_bucket", start, err)
	if err != nil {
		return classify(err, "bucket", a.cfg.Bucket)
	}
	return nil
}

// ObjectKey builds the key for a file uploaded at t:
// <prefix><yyyy>/<mm>/<dd>/<hhmmss>-<name>.
func (a *Archive) ObjectKey(name string, t time.Time) string {
	t = t.UTC()
	return a.cfg.Prefix + path.Join(t.Format("2006/01/02"), t.Format("150405")+"-"+filepath.Base(name))
}

// Upload stores the file at localPath under a timestamped key.
func (a *Archive) Upload(ctx context.Context, localPath string) (obj *Object, err error) {
	client, err := a.ready("upload")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, dberrors.NewInvalidArgumentError("open %s: %v", localPath, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		return nil, dberrors.NewInvalidArgumentError("%s is a directory", localPath)
	}

	uploadedAt := a.now()
	key := a.ObjectKey(localPath, uploadedAt)

	ctx, span := telemetry.StartArchiveSpan(ctx, "upload", a.cfg.Bucket,
		telemetry.ObjectKey(key), telemetry.ObjectSize(info.Size()))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	a.observe("put_object", start, err)
	if err != nil {
		return nil, classify(err, "object", key)
	}
	if a.metrics != nil {
		a.metrics.RecordBytes("put_object", info.Size())
	}

	a.log.Info("Backup uploaded",
		logger.KeyBucket, a.cfg.Bucket,
		logger.KeyKey, key,
		logger.KeySize, info.Size(),
		logger.KeyDurationMs, logger.Duration(start))

	return &Object{Key: key, Size: info.Size(), LastModified: uploadedAt.UTC()}, nil
}

// List returns the archived objects under the configured prefix, newest first.
func (a *Archive) List(ctx context.Context) (objects []Object, err error) {
	client, err := a.ready("list")
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartArchiveSpan(ctx, "list", a.cfg.Bucket)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	defer func() { a.observe("list_objects", start, err) }()

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.cfg.Bucket),
		Prefix: aws.String(a.cfg.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "bucket", a.cfg.Bucket)
		}
		for _, o := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}

	sort.Slice(objects, func(i, j int) bool {
		if objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].Key > objects[j].Key
		}
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

func (a *Archive) ready(op string) (Client, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.initialized {
		return nil, dberrors.NewNotReadyError("archive " + op)
	}
	return a.client, nil
}

func (a *Archive) observe(op string, start time.Time, err error) {
	if a.metrics != nil {
		a.metrics.ObserveOperation(op, time.Since(start), err)
	}
}

// newS3Client builds a client from the default AWS chain, with static
// credentials and a custom endpoint when configured.
func newS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // localstack and MinIO
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// classify maps S3 API errors onto the shared error kinds.
func classify(err error, resourceType, name string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "NoSuchKey":
			return dberrors.Wrap(dberrors.NotFound, err, fmt.Sprintf("%s %q not found", resourceType, name))
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return dberrors.Wrap(dberrors.InvalidArgument, err, fmt.Sprintf("access to %s %q denied", resourceType, name))
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return dberrors.NewInternalError(err, fmt.Sprintf("s3 %s %q", resourceType, name))
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".tar":
		return "application/x-tar"
	case ".db", ".sqlite", ".sqlite3":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
