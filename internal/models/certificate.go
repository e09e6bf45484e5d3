package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Certificate is the permanent issuance record for a participant of an event.
// Only ArtifactPath and RenderedAt change after creation.
type Certificate struct {
	ID             string      `gorm:"size:36;primaryKey" json:"id"`
	EventID        string      `gorm:"size:36;not null;uniqueIndex:idx_certificates_event_participant" json:"event_id"`
	ParticipantID  string      `gorm:"size:64;not null;uniqueIndex:idx_certificates_event_participant;index" json:"participant_id"`
	Code           string      `gorm:"size:32;not null;uniqueIndex" json:"code"`
	ValidationCode string      `gorm:"size:16;not null;uniqueIndex" json:"validation_code"`
	IssuedAt       time.Time   `gorm:"not null" json:"issued_at"`
	WorkloadHours  int         `gorm:"not null" json:"workload_hours"`
	ArtifactPath   *string     `gorm:"size:512" json:"artifact_path"`
	RenderedAt     *time.Time  `json:"rendered_at"`
	CreatedAt      time.Time   `json:"created_at"`
	Event          Event       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Participant    Participant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (c *Certificate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsRendered reports whether a PDF artifact has been attached.
func (c Certificate) IsRendered() bool {
	return c.ArtifactPath != nil && *c.ArtifactPath != ""
}
