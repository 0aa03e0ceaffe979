package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket string
	Prefix string
	// Endpoint overrides the AWS endpoint, e.g. for MinIO. Path-style
	// addressing is always used.
	Endpoint string
}

type S3Storage struct {
	client *s3.Client
	config S3Config
}

func NewS3Storage(ctx context.Context, s S3Config) (*S3Storage, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	c, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(c, func(o *s3.Options) {
		o.UsePathStyle = true
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	})

	return &S3Storage{
		client: client,
		config: s,
	}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	key = path.Join(s.config.Prefix, key)

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	}); err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}

func (s *S3Storage) Get(ctx context.Context, url string) ([]byte, error) {
	prefix := fmt.Sprintf("s3://%s/", s.config.Bucket)
	if !strings.HasPrefix(url, prefix) {
		return nil, fmt.Errorf("%s is not in bucket %s", url, s.config.Bucket)
	}
	key := strings.TrimPrefix(url, prefix)

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	return data, nil
}
