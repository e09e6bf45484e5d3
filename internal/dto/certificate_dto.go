package dto

import (
	"time"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// CertificateResponse is returned to the certificate owner.
type CertificateResponse struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	ParticipantID  string     `json:"participant_id"`
	Code           string     `json:"code"`
	ValidationCode string     `json:"validation_code"`
	IssuedAt       time.Time  `json:"issued_at"`
	WorkloadHours  int        `json:"workload_hours"`
	Rendered       bool       `json:"rendered"`
	RenderedAt     *time.Time `json:"rendered_at"`
	EventTitle     string     `json:"event_title,omitempty"`
}

// NewCertificateResponse converts a Certificate model into a DTO.
func NewCertificateResponse(model models.Certificate) CertificateResponse {
	return CertificateResponse{
		ID:             model.ID,
		EventID:        model.EventID,
		ParticipantID:  model.ParticipantID,
		Code:           model.Code,
		ValidationCode: model.ValidationCode,
		IssuedAt:       model.IssuedAt,
		WorkloadHours:  model.WorkloadHours,
		Rendered:       model.IsRendered(),
		RenderedAt:     model.RenderedAt,
		EventTitle:     model.Event.Title,
	}
}

// CertificateIssuedEvent is published on the broker after an issuance commits.
type CertificateIssuedEvent struct {
	CertificateID string    `json:"certificate_id"`
	EventID       string    `json:"event_id"`
	ParticipantID string    `json:"participant_id"`
	Code          string    `json:"code"`
	IssuedAt      time.Time `json:"issued_at"`
}

// RenderResponse describes a stored certificate artifact.
type RenderResponse struct {
	CertificateID string    `json:"certificate_id"`
	Code          string    `json:"code"`
	ArtifactPath  string    `json:"artifact_path"`
	RenderedAt    time.Time `json:"rendered_at"`
	Bytes         int       `json:"bytes"`
}

// CertificateDownload carries a rendered PDF back to its owner.
type CertificateDownload struct {
	FileName string
	Content  []byte
}

// EligibilityResponse previews whether the caller may request a certificate now.
type EligibilityResponse struct {
	EventID          string    `json:"event_id"`
	Eligible         bool      `json:"eligible"`
	Reason           string    `json:"reason,omitempty"`
	RegisteredAt     time.Time `json:"registered_at,omitempty"`
	RemainingMinutes int       `json:"remaining_minutes"`
	AlreadyIssued    bool      `json:"already_issued"`
}

// ValidationResponse is the public verification summary of a certificate.
type ValidationResponse struct {
	Valid       bool                  `json:"valid"`
	Certificate ValidationCertificate `json:"certificate"`
	Event       ValidationEvent       `json:"event"`
}

// ValidationCertificate exposes only what a verifier needs.
type ValidationCertificate struct {
	Code            string    `json:"code"`
	IssuedAt        time.Time `json:"issued_at"`
	WorkloadHours   int       `json:"workload_hours"`
	ParticipantName string    `json:"participant_name"`
}

// ValidationEvent summarises the event that issued the certificate.
type ValidationEvent struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	StartsAt time.Time  `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Location string     `json:"location"`
	Campus   string     `json:"campus"`
}

// NewValidationResponse converts a certificate with preloaded relations.
func NewValidationResponse(model models.Certificate) ValidationResponse {
	return ValidationResponse{
		Valid: true,
		Certificate: ValidationCertificate{
			Code:            model.Code,
			IssuedAt:        model.IssuedAt,
			WorkloadHours:   model.WorkloadHours,
			ParticipantName: model.Participant.FullName,
		},
		Event: ValidationEvent{
			ID:       model.Event.ID,
			Title:    model.Event.Title,
			StartsAt: model.Event.StartsAt,
			EndsAt:   model.Event.EndsAt,
			Location: model.Event.Location,
			Campus:   model.Event.Campus,
		},
	}
}
