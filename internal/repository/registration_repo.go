package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// RegistrationRepository persists event registrations.
type RegistrationRepository interface {
	GetActive(ctx context.Context, eventID, participantID string) (models.Registration, error)
	Create(ctx context.Context, registration *models.Registration) error
	Cancel(ctx context.Context, id string, at time.Time) error
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository instantiates the repository.
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) GetActive(ctx context.Context, eventID, participantID string) (models.Registration, error) {
	var registration models.Registration
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("participant_id = ?", participantID).
		Where("status = ?", models.RegistrationStatusConfirmed).
		Order("registered_at DESC").
		First(&registration).Error; err != nil {
		return models.Registration{}, err
	}

	return registration, nil
}

func (r *registrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	return translateWriteError(r.db.WithContext(ctx).Omit("Event").Create(registration).Error)
}

func (r *registrationRepository) Cancel(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("id = ?", id).
		Where("status = ?", models.RegistrationStatusConfirmed).
		Updates(map[string]interface{}{
			"status":       models.RegistrationStatusCancelled,
			"cancelled_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
