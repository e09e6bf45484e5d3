// Package cloudinary stores certificate objects as raw Cloudinary assets.
package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

const (
	resourceType    = "raw"
	deliveryBaseURL = "https://res.cloudinary.com"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements storage.ObjectStorage using Cloudinary uploads and CDN delivery.
type Service struct {
	client    *cloudinary.Cloudinary
	http      *resty.Client
	cloudName string
	folder    string
	baseURL   string
	logger    zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client:    cld,
		http:      resty.New().SetTimeout(30 * time.Second),
		cloudName: cfg.CloudName,
		folder:    strings.Trim(cfg.Folder, "/"),
		baseURL:   deliveryBaseURL,
		logger:    logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads data under a public id derived from key, replacing any previous version.
func (s *Service) Put(ctx context.Context, key, _ string, data []byte) error {
	params := uploader.UploadParams{
		PublicID:       s.publicID(key),
		ResourceType:   resourceType,
		Overwrite:      api.Bool(true),
		Invalidate:     api.Bool(true),
		UniqueFilename: api.Bool(false),
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")
	return nil
}

// Get downloads the asset through the delivery CDN.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.http.R().SetContext(ctx).Get(s.deliveryURL(key))
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, storage.ErrNotFound
	case resp.IsError():
		return nil, fmt.Errorf("failed to download asset: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.publicID(key),
		ResourceType: resourceType,
		Invalidate:   api.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("failed to delete asset: %s", result.Error.Message)
	}
	return nil
}

func (s *Service) publicID(key string) string {
	key = strings.Trim(key, "/")
	if s.folder == "" {
		return key
	}
	return s.folder + "/" + key
}

func (s *Service) deliveryURL(key string) string {
	segments := strings.Split(s.publicID(key), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/%s/%s/upload/%s", s.baseURL, s.cloudName, resourceType, strings.Join(segments, "/"))
}
