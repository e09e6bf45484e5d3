package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// RegistrationStatusConfirmed is the only status that makes a participant eligible.
	RegistrationStatusConfirmed = "confirmed"
	// RegistrationStatusCancelled is terminal for the row; re-registering creates a new one.
	RegistrationStatusCancelled = "cancelled"
)

// Registration ties a participant to an event. At most one confirmed row exists
// per (event, participant), enforced by a partial unique index.
type Registration struct {
	ID            string     `gorm:"size:36;primaryKey" json:"id"`
	EventID       string     `gorm:"size:36;not null;uniqueIndex:idx_registrations_active,where:status = 'confirmed';index" json:"event_id"`
	ParticipantID string     `gorm:"size:64;not null;uniqueIndex:idx_registrations_active,where:status = 'confirmed';index" json:"participant_id"`
	Status        string     `gorm:"size:32;not null" json:"status"`
	RegisteredAt  time.Time  `gorm:"not null" json:"registered_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Event         Event      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the registration is confirmed.
func (r Registration) IsActive() bool {
	return r.Status == RegistrationStatusConfirmed
}
