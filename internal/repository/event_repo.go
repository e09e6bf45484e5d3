package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// EventRepository reads events and applies the few mutations the certificate flow owns.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (models.Event, error)
	UpdateWorkload(ctx context.Context, id string, hours int) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository instantiates the repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return models.Event{}, err
	}

	return event, nil
}

func (r *eventRepository) UpdateWorkload(ctx context.Context, id string, hours int) error {
	result := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("workload_hours", hours)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
