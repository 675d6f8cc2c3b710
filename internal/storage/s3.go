package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config describes how the gateway reaches its S3-compatible backend.
// Endpoint and path-style addressing support MinIO-style deployments; when
// AccessKey and SecretKey are empty the default AWS credential chain applies.
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type s3Gateway struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Gateway builds a Gateway backed by the configured bucket.
func NewS3Gateway(ctx context.Context, cfg S3Config) (Gateway, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object storage bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(strings.TrimSpace(cfg.Region)),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &s3Gateway{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (g *s3Gateway) GetMetadata(ctx context.Context, key string) (ObjectMetadata, error) {
	head, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectMetadata{}, fmt.Errorf("head %s: %w", key, ErrObjectNotFound)
		}
		return ObjectMetadata{}, fmt.Errorf("head %s: %w", key, err)
	}
	meta := ObjectMetadata{ContentType: aws.ToString(head.ContentType)}
	if head.ContentLength != nil {
		meta.Size = *head.ContentLength
	}
	return meta, nil
}

func (g *s3Gateway) GetRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	object, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.objectKey(key)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("get %s: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if object.Body == nil {
		return nil, fmt.Errorf("get %s: %w", key, ErrObjectNotFound)
	}
	return object.Body, nil
}

func (g *s3Gateway) objectKey(key string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	if g.prefix == "" {
		return trimmed
	}
	if trimmed == "" {
		return g.prefix
	}
	return g.prefix + "/" + trimmed
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
