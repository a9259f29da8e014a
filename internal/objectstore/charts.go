package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// chartDir holds published chart images, below the configured prefix.
const chartDir = "charts"

// Upload stores body under key.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return fmt.Errorf("objectstore: upload %q: %w", key, err)
	}
	return nil
}

// PublishChart uploads a chart image and returns a presigned HTTPS URL
// that stays valid for the configured chart URL lifetime.
func (c *Client) PublishChart(ctx context.Context, data []byte, contentType string) (string, error) {
	key := c.chartKey(contentType)
	if err := c.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.chartTTL))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %q: %w", key, err)
	}
	return req.URL, nil
}

// chartKey names a new chart object, grouped by UTC day so bucket
// lifecycle rules can expire old charts.
func (c *Client) chartKey(contentType string) string {
	ext := ".bin"
	switch strings.ToLower(contentType) {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	}
	day := c.now().UTC().Format("2006/01/02")
	return c.Key(path.Join(chartDir, day, uuid.NewString()+ext))
}
