package storage

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible
	// services); UsePathStyle forces path-style addressing for MinIO
	// and LocalStack.
	Endpoint     string
	UsePathStyle bool

	// Credentials (optional, uses the default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	DownloadTimeout time.Duration
}

// s3Settings is applied to S3Sources created by Open. The zero value
// uses the default credential chain.
var (
	s3Settings S3Config
	s3SetMu    sync.RWMutex
)

// ConfigureS3 sets the configuration used for subsequent s3:// opens.
func ConfigureS3(cfg S3Config) {
	s3SetMu.Lock()
	defer s3SetMu.Unlock()
	s3Settings = cfg
}

// S3Source reads objects from one bucket.
type S3Source struct {
	bucket string

	mu     sync.Mutex
	client *s3.Client
}

func (s *S3Source) Scheme() string { return "s3" }

// Reader fetches an object. The returned reader cancels its download
// deadline on Close.
func (s *S3Source) Reader(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	s3SetMu.RLock()
	cfg := s3Settings
	s3SetMu.RUnlock()
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = 5 * time.Minute
	}

	client, err := s.getClient(ctx, cfg)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DownloadTimeout)
	output, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		cancel()
		return nil, 0, perrors.ExternalCall("s3", err).
			WithContext("bucket", s.bucket).
			WithContext("key", key)
	}

	return &cancelOnCloseReader{
		ReadCloser: output.Body,
		cancel:     cancel,
	}, aws.ToInt64(output.ContentLength), nil
}

func (s *S3Source) getClient(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, perrors.ExternalCall("s3", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.client, nil
}

type cancelOnCloseReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnCloseReader) Close() error {
	r.cancel()
	return r.ReadCloser.Close()
}
