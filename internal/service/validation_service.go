package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/observability"
	"github.com/noah-isme/sigea-go-api/internal/repository"
)

const validationCachePrefix = "certificate:validate:"

// ErrValidationNotFound is the single answer for every code that does not identify a certificate.
var ErrValidationNotFound = errors.New("certificate not found")

// ValidationService answers public certificate authenticity lookups.
type ValidationService interface {
	Validate(ctx context.Context, rawCode string) (dto.ValidationResponse, error)
}

type validationService struct {
	certificates repository.CertificateRepository
	cache        *redis.Client
	ttl          time.Duration
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewValidationService constructs the lookup. cache may be nil.
func NewValidationService(certificates repository.CertificateRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ValidationService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &validationService{
		certificates: certificates,
		cache:        cache,
		ttl:          ttl,
		logger:       logger.With().Str("component", "validation_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/sigea-go-api/internal/service/validation"),
	}
}

func (s *validationService) Validate(ctx context.Context, rawCode string) (dto.ValidationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "certificates.validate")
	defer span.End()

	code := normalizeCode(rawCode)
	if !isWellFormedCode(code) {
		observability.CertificateValidations().WithLabelValues("malformed").Inc()
		return dto.ValidationResponse{}, ErrValidationNotFound
	}
	span.SetAttributes(attribute.String("certificate.code", code))

	cacheKey := validationCachePrefix + code
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var response dto.ValidationResponse
			if err := json.Unmarshal(cached, &response); err == nil {
				observability.CertificateValidations().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read validation cache")
		}
	}

	certificate, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrValidationNotFound) {
			observability.CertificateValidations().WithLabelValues("not_found").Inc()
		} else {
			span.RecordError(err)
			observability.CertificateValidations().WithLabelValues("error").Inc()
		}
		return dto.ValidationResponse{}, err
	}

	response := dto.NewValidationResponse(certificate)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache validation result")
			}
		}
	}

	observability.CertificateValidations().WithLabelValues("valid").Inc()
	return response, nil
}

// lookup matches the certificate code first, then the short validation code.
func (s *validationService) lookup(ctx context.Context, code string) (models.Certificate, error) {
	certificate, err := s.certificates.GetByCode(ctx, code)
	if err == nil {
		return certificate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Certificate{}, fmt.Errorf("failed to look up certificate: %w", err)
	}

	certificate, err = s.certificates.GetByValidationCode(ctx, code)
	if err == nil {
		return certificate, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Certificate{}, ErrValidationNotFound
	}
	return models.Certificate{}, fmt.Errorf("failed to look up certificate: %w", err)
}
