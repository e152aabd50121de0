// Package artifact moves gate inputs and outputs through S3-compatible
// storage: results files referenced as s3:// URLs are fetched before
// parsing, and summaries are published after evaluation.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/avtr-nvivas/check-jtl/internal/config"
	"github.com/avtr-nvivas/check-jtl/internal/jtl"
)

// s3API is the slice of the S3 client the store needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store fetches results from and publishes summaries to S3.
type Store struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewStore creates an S3-backed artifact store. Static credentials are used
// when configured, otherwise the default provider chain applies.
func NewStore(ctx context.Context, cfg config.ArtifactConfig, logger *zap.Logger) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, cfg, logger), nil
}

func newStore(client s3API, cfg config.ArtifactConfig, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}
}

// IsURL reports whether p refers to an S3 object.
func IsURL(p string) bool {
	return strings.HasPrefix(p, "s3://")
}

// ParseURL splits an s3://bucket/key URL.
func ParseURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 url %s: %w", rawURL, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("not an s3 url: %s", rawURL)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 url missing bucket or key: %s", rawURL)
	}
	return bucket, key, nil
}

// Fetch downloads an s3:// results URL to a temporary file and returns its
// path with a cleanup func. The temp file keeps the .gz suffix so the
// reader decompresses it. A missing object yields jtl.ErrSourceNotFound.
func (s *Store) Fetch(ctx context.Context, rawURL string) (string, func(), error) {
	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		return "", nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return "", nil, fmt.Errorf("%s: %w", rawURL, jtl.ErrSourceNotFound)
		}
		return "", nil, fmt.Errorf("get object %s: %w", rawURL, err)
	}
	defer func() { _ = out.Body.Close() }()

	pattern := "check-jtl-*.jtl"
	if strings.HasSuffix(key, ".gz") {
		pattern = "check-jtl-*.jtl.gz"
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	s.logger.Info("fetched results from S3",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.String("local", tmp.Name()))
	return tmp.Name(), cleanup, nil
}

// SummaryKey builds the object key a run's summary is published under.
func (s *Store) SummaryKey(testName, runID string) string {
	return path.Join(s.prefix, testName, runID, "summary.json")
}

// PublishSummary uploads an encoded summary to the configured bucket.
func (s *Store) PublishSummary(ctx context.Context, key string, data []byte) error {
	if s.bucket == "" {
		return fmt.Errorf("no artifact bucket configured")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("published summary to S3",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return nil
}
