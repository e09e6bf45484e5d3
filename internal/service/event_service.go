package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/repository"
)

var (
	// ErrEventLocked indicates certificate-relevant event data can no longer change.
	ErrEventLocked = errors.New("event already has issued certificates")
	// ErrNotEventOrganizer indicates the caller does not manage the event.
	ErrNotEventOrganizer = errors.New("only the event organizer can perform this action")
)

// EventActor identifies the caller of an organizer operation.
type EventActor struct {
	ID   string
	Role string
}

func (a EventActor) canManage(event models.Event) bool {
	return a.Role == models.RoleAdmin || event.IsOrganizedBy(a.ID)
}

// EventService owns the event attributes that feed certificate content.
type EventService interface {
	UpdateWorkload(ctx context.Context, eventID string, payload dto.EventWorkloadRequest, actor EventActor) (dto.EventResponse, error)
}

type eventService struct {
	events       repository.EventRepository
	certificates repository.CertificateRepository
	validator    *validator.Validate
	logger       zerolog.Logger
}

// NewEventService constructs the event service.
func NewEventService(events repository.EventRepository, certificates repository.CertificateRepository, validate *validator.Validate, logger zerolog.Logger) EventService {
	return &eventService{
		events:       events,
		certificates: certificates,
		validator:    validate,
		logger:       logger.With().Str("component", "event_service").Logger(),
	}
}

// UpdateWorkload is rejected once any certificate exists for the event.
func (s *eventService) UpdateWorkload(ctx context.Context, eventID string, payload dto.EventWorkloadRequest, actor EventActor) (dto.EventResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EventResponse{}, err
	}

	event, err := loadManagedEvent(ctx, s.events, eventID, actor)
	if err != nil {
		return dto.EventResponse{}, err
	}

	issued, err := s.certificates.CountByEvent(ctx, eventID)
	if err != nil {
		return dto.EventResponse{}, fmt.Errorf("failed to count certificates: %w", err)
	}
	if issued > 0 {
		return dto.EventResponse{}, ErrEventLocked
	}

	if err := s.events.UpdateWorkload(ctx, eventID, payload.WorkloadHours); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EventResponse{}, ErrEventNotFound
		}
		return dto.EventResponse{}, fmt.Errorf("failed to update workload: %w", err)
	}

	s.logger.Info().
		Str("event_id", eventID).
		Str("actor_id", actor.ID).
		Int("workload_hours", payload.WorkloadHours).
		Msg("event workload updated")

	event.WorkloadHours = payload.WorkloadHours
	return dto.NewEventResponse(event), nil
}

func loadManagedEvent(ctx context.Context, events repository.EventRepository, eventID string, actor EventActor) (models.Event, error) {
	event, err := events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, fmt.Errorf("failed to load event: %w", err)
	}
	if !actor.canManage(event) {
		return models.Event{}, ErrNotEventOrganizer
	}
	return event, nil
}
