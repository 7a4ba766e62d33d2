// Package storage archives raw crawled HTML to S3-compatible object
// storage (e.g., MinIO, RustFS).
package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveConfig holds configuration for the page archive.
type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// Archive stores raw page bodies in an S3 bucket, keyed by a hash of
// the page URL so re-crawls overwrite the previous capture.
type Archive struct {
	client *s3.Client
	bucket string
}

// NewArchive creates an Archive backed by the configured bucket.
func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Archive{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// PageKey returns the object key for a page URL.
func PageKey(pageURL string) string {
	sum := sha1.Sum([]byte(pageURL))
	return "pages/" + hex.EncodeToString(sum[:]) + ".html"
}

// ArchivePage uploads the raw HTML body for a page. The object carries
// the original URL and capture time as metadata.
func (a *Archive) ArchivePage(ctx context.Context, pageURL string, body []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(PageKey(pageURL)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/html; charset=utf-8"),
		Metadata: map[string]string{
			"source-url":   pageURL,
			"retrieved-at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to archive page: %w", err)
	}

	return nil
}

// ReadPage fetches a previously archived page body.
func (a *Archive) ReadPage(ctx context.Context, pageURL string) ([]byte, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(PageKey(pageURL)),
	}

	output, err := a.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived page: %w", err)
	}
	defer output.Body.Close()

	body, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived page body: %w", err)
	}
	return body, nil
}

// DeletePage removes an archived page.
func (a *Archive) DeletePage(ctx context.Context, pageURL string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(PageKey(pageURL)),
	}

	if _, err := a.client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("failed to delete archived page: %w", err)
	}

	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
