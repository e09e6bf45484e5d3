package models

import "time"

// Participant mirrors the profile of an authenticated principal. The ID is the
// subject issued by the identity provider.
type Participant struct {
	ID         string    `gorm:"size:64;primaryKey" json:"id"`
	FullName   string    `gorm:"size:255;not null" json:"full_name"`
	DocumentID string    `gorm:"size:32" json:"document_id"`
	Email      string    `gorm:"size:255;index" json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
