// Package oss stores certificate objects in an Alibaba Cloud OSS bucket.
package oss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	aliyun "github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

// Config contains the bucket coordinates and credentials.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	Prefix          string
}

// Service implements storage.ObjectStorage on OSS.
type Service struct {
	bucket *aliyun.Bucket
	prefix string
	logger zerolog.Logger
}

// New connects to the configured bucket.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("oss endpoint, credentials and bucket must be provided")
	}

	client, err := aliyun.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize oss: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to open oss bucket: %w", err)
	}

	return &Service{
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger.With().Str("component", "oss").Logger(),
	}, nil
}

func (s *Service) Put(ctx context.Context, key, contentType string, data []byte) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := s.objectKey(key)
	err := s.bucket.PutObject(objectKey, bytes.NewReader(data),
		aliyun.WithContext(ctx),
		aliyun.ContentType(contentType),
	)
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Info().Str("key", objectKey).Msg("object uploaded to oss")
	return nil
}

func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := s.bucket.GetObject(s.objectKey(key), aliyun.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(s.objectKey(key), aliyun.WithContext(ctx)); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *Service) objectKey(key string) string {
	key = strings.Trim(key, "/")
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func isNotFound(err error) bool {
	var serviceErr aliyun.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode == http.StatusNotFound
	}
	return false
}
