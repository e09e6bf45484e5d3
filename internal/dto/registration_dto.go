package dto

import (
	"time"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// RegistrationResponse describes a participant's registration row.
type RegistrationResponse struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	ParticipantID string     `json:"participant_id"`
	Status        string     `json:"status"`
	RegisteredAt  time.Time  `json:"registered_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
}

// NewRegistrationResponse converts a Registration model into a DTO.
func NewRegistrationResponse(model models.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:            model.ID,
		EventID:       model.EventID,
		ParticipantID: model.ParticipantID,
		Status:        model.Status,
		RegisteredAt:  model.RegisteredAt,
		CancelledAt:   model.CancelledAt,
	}
}

// EventWorkloadRequest changes the workload printed on future certificates.
type EventWorkloadRequest struct {
	WorkloadHours int `json:"workload_hours" validate:"required,gt=0,lte=1000"`
}

// EventResponse is the subset of event data the certificate flow exposes.
type EventResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	WorkloadHours int    `json:"workload_hours"`
	Status        string `json:"status"`
}

// NewEventResponse converts an Event model into a DTO.
func NewEventResponse(model models.Event) EventResponse {
	return EventResponse{
		ID:            model.ID,
		Title:         model.Title,
		WorkloadHours: model.WorkloadHours,
		Status:        model.Status,
	}
}
