package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// EventStatusDraft marks an event that is not yet visible to participants.
	EventStatusDraft = "draft"
	// EventStatusPublished marks an event open for registration.
	EventStatusPublished = "published"
	// EventStatusClosed marks an event that no longer accepts registrations.
	EventStatusClosed = "closed"
)

const (
	EventModalityInPerson = "presencial"
	EventModalityOnline   = "online"
	EventModalityHybrid   = "hibrido"
)

// Event is an academic event participants register for and receive certificates from.
type Event struct {
	ID            string     `gorm:"size:36;primaryKey" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	StartsAt      time.Time  `gorm:"not null" json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"`
	Location      string     `gorm:"size:255" json:"location"`
	Campus        string     `gorm:"size:128" json:"campus"`
	WorkloadHours int        `gorm:"not null;default:0" json:"workload_hours"`
	Modality      string     `gorm:"size:32;not null;default:presencial" json:"modality"`
	Status        string     `gorm:"size:32;not null;default:draft" json:"status"`
	OrganizerID   string     `gorm:"size:64;index" json:"organizer_id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// IsOrganizedBy reports whether the principal owns the event.
func (e Event) IsOrganizedBy(principalID string) bool {
	return principalID != "" && e.OrganizerID == principalID
}
