package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/repository"
)

var (
	// ErrAlreadyRegistered indicates a confirmed registration already exists.
	ErrAlreadyRegistered = errors.New("participant already registered for this event")
	// ErrRegistrationNotFound indicates there is no confirmed registration to cancel.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrEventNotOpen indicates the event does not accept registrations.
	ErrEventNotOpen = errors.New("event is not open for registration")
)

// RegistrationService handles participant registration state changes.
type RegistrationService interface {
	Register(ctx context.Context, eventID, participantID string) (dto.RegistrationResponse, error)
	Cancel(ctx context.Context, eventID, participantID string) (dto.RegistrationResponse, error)
}

type registrationService struct {
	registrations repository.RegistrationRepository
	events        repository.EventRepository
	participants  repository.ParticipantRepository
	certificates  repository.CertificateRepository
	logger        zerolog.Logger
	now           func() time.Time
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(registrations repository.RegistrationRepository, events repository.EventRepository, participants repository.ParticipantRepository, certificates repository.CertificateRepository, logger zerolog.Logger) RegistrationService {
	return &registrationService{
		registrations: registrations,
		events:        events,
		participants:  participants,
		certificates:  certificates,
		logger:        logger.With().Str("component", "registration_service").Logger(),
		now:           time.Now,
	}
}

func (s *registrationService) Register(ctx context.Context, eventID, participantID string) (dto.RegistrationResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrEventNotFound
		}
		return dto.RegistrationResponse{}, fmt.Errorf("failed to load event: %w", err)
	}
	if event.Status != models.EventStatusPublished {
		return dto.RegistrationResponse{}, ErrEventNotOpen
	}

	if _, err := s.participants.GetByID(ctx, participantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrParticipantNotFound
		}
		return dto.RegistrationResponse{}, fmt.Errorf("failed to load participant: %w", err)
	}

	registration := models.Registration{
		EventID:       eventID,
		ParticipantID: participantID,
		Status:        models.RegistrationStatusConfirmed,
		RegisteredAt:  s.now().UTC(),
	}
	if err := s.registrations.Create(ctx, &registration); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return dto.RegistrationResponse{}, ErrAlreadyRegistered
		}
		return dto.RegistrationResponse{}, fmt.Errorf("failed to create registration: %w", err)
	}

	s.logger.Info().Str("event_id", eventID).Str("participant_id", participantID).Msg("participant registered")
	return dto.NewRegistrationResponse(registration), nil
}

// Cancel is refused once a certificate was issued for the registration.
func (s *registrationService) Cancel(ctx context.Context, eventID, participantID string) (dto.RegistrationResponse, error) {
	registration, err := s.registrations.GetActive(ctx, eventID, participantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		}
		return dto.RegistrationResponse{}, fmt.Errorf("failed to load registration: %w", err)
	}

	if _, err := s.certificates.GetByEventAndParticipant(ctx, eventID, participantID); err == nil {
		return dto.RegistrationResponse{}, ErrCertificateAlreadyIssued
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RegistrationResponse{}, fmt.Errorf("failed to check certificate: %w", err)
	}

	cancelledAt := s.now().UTC()
	if err := s.registrations.Cancel(ctx, registration.ID, cancelledAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RegistrationResponse{}, ErrRegistrationNotFound
		}
		return dto.RegistrationResponse{}, fmt.Errorf("failed to cancel registration: %w", err)
	}

	registration.Status = models.RegistrationStatusCancelled
	registration.CancelledAt = &cancelledAt

	s.logger.Info().Str("event_id", eventID).Str("participant_id", participantID).Msg("registration cancelled")
	return dto.NewRegistrationResponse(registration), nil
}
