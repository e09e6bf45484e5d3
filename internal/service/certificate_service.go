package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/observability"
	"github.com/noah-isme/sigea-go-api/internal/repository"
)

var (
	// ErrCertificateAlreadyIssued indicates the participant already holds a certificate for the event.
	ErrCertificateAlreadyIssued = errors.New("certificate already issued")
	// ErrCertificateNotFound indicates no certificate matched the lookup.
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrEventNotFound indicates the event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrCodeSpaceExhausted indicates no free certificate code was found within the retry budget.
	ErrCodeSpaceExhausted = errors.New("unable to allocate a unique certificate code")
)

// CertificateIssuedPublisher announces committed issuances, e.g. to trigger rendering.
type CertificateIssuedPublisher interface {
	PublishIssued(ctx context.Context, event dto.CertificateIssuedEvent) error
}

// CertificateService issues certificates and exposes them to their owners.
type CertificateService interface {
	Issue(ctx context.Context, eventID, participantID string) (dto.CertificateResponse, error)
	Eligibility(ctx context.Context, eventID, participantID string) (dto.EligibilityResponse, error)
	ListMine(ctx context.Context, participantID string) ([]dto.CertificateResponse, error)
}

type certificateService struct {
	gate         EligibilityGate
	certificates repository.CertificateRepository
	events       repository.EventRepository
	publisher    CertificateIssuedPublisher
	codes        codeGenerator
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewCertificateService constructs the issuer. publisher may be nil.
func NewCertificateService(gate EligibilityGate, certificates repository.CertificateRepository, events repository.EventRepository, publisher CertificateIssuedPublisher, logger zerolog.Logger) CertificateService {
	return &certificateService{
		gate:         gate,
		certificates: certificates,
		events:       events,
		publisher:    publisher,
		codes:        newCodeGenerator(),
		logger:       logger.With().Str("component", "certificate_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/sigea-go-api/internal/service/certificate"),
		now:          time.Now,
	}
}

func (s *certificateService) Issue(ctx context.Context, eventID, participantID string) (dto.CertificateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "certificates.issue", trace.WithAttributes(
		attribute.String("certificate.event_id", eventID),
		attribute.String("certificate.participant_id", participantID),
	))
	defer span.End()

	certificate, err := s.issue(ctx, eventID, participantID)
	outcome := issueOutcome(err)
	observability.CertificatesIssued().WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return dto.CertificateResponse{}, err
	}

	s.logger.Info().
		Str("certificate_id", certificate.ID).
		Str("event_id", eventID).
		Str("participant_id", participantID).
		Str("code", certificate.Code).
		Msg("certificate issued")

	s.announce(ctx, certificate)

	return dto.NewCertificateResponse(certificate), nil
}

func (s *certificateService) issue(ctx context.Context, eventID, participantID string) (models.Certificate, error) {
	if _, err := s.gate.Check(ctx, eventID, participantID); err != nil {
		return models.Certificate{}, err
	}

	if issued, err := s.alreadyIssued(ctx, eventID, participantID); err != nil {
		return models.Certificate{}, err
	} else if issued {
		return models.Certificate{}, ErrCertificateAlreadyIssued
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Certificate{}, ErrEventNotFound
		}
		return models.Certificate{}, fmt.Errorf("failed to load event: %w", err)
	}

	issuedAt := s.now().UTC().Truncate(time.Second)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.certificateCode(event.ID, issuedAt, attempt)
		if err != nil {
			return models.Certificate{}, err
		}

		taken, err := s.certificates.CodeExists(ctx, code)
		if err != nil {
			return models.Certificate{}, fmt.Errorf("failed to check certificate code: %w", err)
		}
		if taken {
			continue
		}

		validationCode, err := s.codes.validationCode()
		if err != nil {
			return models.Certificate{}, err
		}

		certificate := models.Certificate{
			EventID:        event.ID,
			ParticipantID:  participantID,
			Code:           code,
			ValidationCode: validationCode,
			IssuedAt:       issuedAt,
			WorkloadHours:  event.WorkloadHours,
			Event:          event,
		}

		err = s.certificates.Create(ctx, &certificate)
		if err == nil {
			return certificate, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return models.Certificate{}, fmt.Errorf("failed to store certificate: %w", err)
		}

		// The pair index wins over code collisions: a concurrent request may have issued first.
		if issued, lookupErr := s.alreadyIssued(ctx, eventID, participantID); lookupErr != nil {
			return models.Certificate{}, lookupErr
		} else if issued {
			return models.Certificate{}, ErrCertificateAlreadyIssued
		}

		s.logger.Debug().Str("code", code).Int("attempt", attempt).Msg("certificate code collision, retrying")
	}

	return models.Certificate{}, ErrCodeSpaceExhausted
}

func (s *certificateService) alreadyIssued(ctx context.Context, eventID, participantID string) (bool, error) {
	_, err := s.certificates.GetByEventAndParticipant(ctx, eventID, participantID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check existing certificate: %w", err)
	}
}

func (s *certificateService) announce(ctx context.Context, certificate models.Certificate) {
	if s.publisher == nil {
		return
	}

	event := dto.CertificateIssuedEvent{
		CertificateID: certificate.ID,
		EventID:       certificate.EventID,
		ParticipantID: certificate.ParticipantID,
		Code:          certificate.Code,
		IssuedAt:      certificate.IssuedAt,
	}
	if err := s.publisher.PublishIssued(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("certificate_id", certificate.ID).Msg("failed to publish certificate issued event")
	}
}

func (s *certificateService) Eligibility(ctx context.Context, eventID, participantID string) (dto.EligibilityResponse, error) {
	response := dto.EligibilityResponse{EventID: eventID}

	registration, err := s.gate.Check(ctx, eventID, participantID)
	var tooEarly *TooEarlyError
	switch {
	case err == nil:
		response.Eligible = true
		response.RegisteredAt = registration.RegisteredAt
	case errors.As(err, &tooEarly):
		response.Reason = "too_early"
		response.RegisteredAt = tooEarly.RegisteredAt
		response.RemainingMinutes = tooEarly.RemainingMinutes()
	case errors.Is(err, ErrNotRegistered):
		response.Reason = "not_registered"
		return response, nil
	default:
		return dto.EligibilityResponse{}, err
	}

	issued, err := s.alreadyIssued(ctx, eventID, participantID)
	if err != nil {
		return dto.EligibilityResponse{}, err
	}
	if issued {
		response.Eligible = false
		response.AlreadyIssued = true
		response.Reason = "already_issued"
		response.RemainingMinutes = 0
	}

	return response, nil
}

func (s *certificateService) ListMine(ctx context.Context, participantID string) ([]dto.CertificateResponse, error) {
	certificates, err := s.certificates.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	responses := make([]dto.CertificateResponse, 0, len(certificates))
	for _, certificate := range certificates {
		responses = append(responses, dto.NewCertificateResponse(certificate))
	}
	return responses, nil
}

func issueOutcome(err error) string {
	switch {
	case err == nil:
		return "issued"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrTooEarly):
		return "too_early"
	case errors.Is(err, ErrCertificateAlreadyIssued):
		return "already_issued"
	case errors.Is(err, ErrEventNotFound):
		return "event_not_found"
	default:
		return "error"
	}
}
