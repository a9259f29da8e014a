// Package objectstore reads transaction files from S3-compatible object
// storage (Cloudflare R2, MinIO, AWS S3) and publishes chart images there.
// It satisfies dataset.Source so deployments can ship data files without
// baking them into the image.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
)

// Config holds object storage configuration.
type Config struct {
	Endpoint    string // e.g. https://<account>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
	Prefix      string        // optional key prefix such as "sales/"
	ChartURLTTL time.Duration // presigned chart URL lifetime, default 24h
}

// Client provides access to one bucket.
type Client struct {
	s3       *s3.Client
	presign  *s3.PresignClient
	bucket   string
	prefix   string
	chartTTL time.Duration
	now      func() time.Time
}

// New creates a new client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("objectstore: endpoint, credentials and bucket are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	if cfg.ChartURLTTL <= 0 {
		cfg.ChartURLTTL = 24 * time.Hour
	}

	return &Client{
		s3:       client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.BucketName,
		prefix:   cfg.Prefix,
		chartTTL: cfg.ChartURLTTL,
		now:      time.Now,
	}, nil
}

// Key returns the object key for a file name.
func (c *Client) Key(name string) string {
	if c.prefix == "" {
		return name
	}
	return path.Join(c.prefix, name)
}

// Download returns the body of key. The caller must close it.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", apperrors.ErrNotFound, c.bucket, key)
		}
		return nil, fmt.Errorf("objectstore: download %q: %w", key, err)
	}
	return out.Body, nil
}

// Open implements dataset.Source. When name is missing, a zstd-compressed
// name.zst object is tried.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := c.Key(name)
	body, err := c.Download(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) && !strings.HasSuffix(key, ".zst") {
		key += ".zst"
		body, err = c.Download(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(key, ".zst") {
		return dataset.NewZstdReadCloser(body)
	}
	return body, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
