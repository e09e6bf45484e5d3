package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// ParticipantRepository reads participant profiles.
type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (models.Participant, error)
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository instantiates the repository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (models.Participant, error) {
	var participant models.Participant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&participant).Error; err != nil {
		return models.Participant{}, err
	}

	return participant, nil
}
