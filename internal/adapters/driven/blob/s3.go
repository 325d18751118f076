package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Downloader is the part of manager.Downloader the S3 fetcher uses.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, params *s3.GetObjectInput, optFns ...func(*manager.Downloader)) (int64, error)
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Region string

	// Endpoint points at an S3-compatible service (MinIO, LocalStack)
	// and switches to path-style addressing.
	Endpoint string

	Concurrency int
	MaxBytes    int64
}

// S3Fetcher downloads s3://bucket/key URLs with the transfer manager.
type S3Fetcher struct {
	downloader Downloader
	maxBytes   int64
}

// NewS3Fetcher loads the default AWS credential chain and builds a downloader.
func NewS3Fetcher(ctx context.Context, cfg S3Config) (*S3Fetcher, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	downloader := manager.NewDownloader(client, func(d *manager.Downloader) {
		if cfg.Concurrency > 0 {
			d.Concurrency = cfg.Concurrency
		}
	})
	return NewS3FetcherWithDownloader(downloader, cfg.MaxBytes), nil
}

// NewS3FetcherWithDownloader wraps an existing downloader.
func NewS3FetcherWithDownloader(d Downloader, maxBytes int64) *S3Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &S3Fetcher{downloader: d, maxBytes: maxBytes}
}

// Fetch downloads the object. The MIME type is left to content detection.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, "", err
	}

	buf := manager.NewWriteAtBuffer([]byte{})
	n, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("downloading s3://%s/%s: %w", bucket, key, err)
	}
	if n > f.maxBytes {
		return nil, "", fmt.Errorf("s3://%s/%s is larger than %d bytes", bucket, key, f.maxBytes)
	}
	return buf.Bytes(), "", nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL %q needs a bucket and a key", rawURL)
	}
	return u.Host, key, nil
}
