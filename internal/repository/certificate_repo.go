package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// CertificateRepository defines data operations for issued certificates.
type CertificateRepository interface {
	GetByID(ctx context.Context, id string) (models.Certificate, error)
	GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (models.Certificate, error)
	GetByCode(ctx context.Context, code string) (models.Certificate, error)
	GetByValidationCode(ctx context.Context, code string) (models.Certificate, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByParticipant(ctx context.Context, participantID string) ([]models.Certificate, error)
	ListUnrendered(ctx context.Context, limit int) ([]models.Certificate, error)
	CountByEvent(ctx context.Context, eventID string) (int64, error)
	CountRenderedByEvent(ctx context.Context, eventID string) (int64, error)
	Create(ctx context.Context, certificate *models.Certificate) error
	AttachArtifact(ctx context.Context, id, path string, renderedAt time.Time) error
}

type certificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository instantiates the repository.
func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

func (r *certificateRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Certificate{}).
		Preload("Event").
		Preload("Participant")
}

func (r *certificateRepository) GetByID(ctx context.Context, id string) (models.Certificate, error) {
	return r.first(r.baseQuery(ctx).Where("id = ?", id))
}

func (r *certificateRepository) GetByEventAndParticipant(ctx context.Context, eventID, participantID string) (models.Certificate, error) {
	return r.first(r.baseQuery(ctx).
		Where("event_id = ?", eventID).
		Where("participant_id = ?", participantID))
}

func (r *certificateRepository) GetByCode(ctx context.Context, code string) (models.Certificate, error) {
	return r.first(r.baseQuery(ctx).Where("code = ?", code))
}

func (r *certificateRepository) GetByValidationCode(ctx context.Context, code string) (models.Certificate, error) {
	return r.first(r.baseQuery(ctx).Where("validation_code = ?", code))
}

func (r *certificateRepository) first(query *gorm.DB) (models.Certificate, error) {
	var certificate models.Certificate
	if err := query.First(&certificate).Error; err != nil {
		return models.Certificate{}, err
	}

	return certificate, nil
}

func (r *certificateRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Certificate{}).Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *certificateRepository) ListByParticipant(ctx context.Context, participantID string) ([]models.Certificate, error) {
	var certificates []models.Certificate
	if err := r.baseQuery(ctx).
		Where("participant_id = ?", participantID).
		Order("issued_at DESC").
		Find(&certificates).Error; err != nil {
		return nil, err
	}

	return certificates, nil
}

func (r *certificateRepository) ListUnrendered(ctx context.Context, limit int) ([]models.Certificate, error) {
	query := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("artifact_path IS NULL OR artifact_path = ''").
		Order("issued_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var certificates []models.Certificate
	if err := query.Find(&certificates).Error; err != nil {
		return nil, err
	}

	return certificates, nil
}

func (r *certificateRepository) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

func (r *certificateRepository) CountRenderedByEvent(ctx context.Context, eventID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("event_id = ?", eventID).
		Where("artifact_path IS NOT NULL AND artifact_path <> ''").
		Count(&count).Error
	return count, err
}

func (r *certificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	return translateWriteError(r.db.WithContext(ctx).Omit("Event", "Participant").Create(certificate).Error)
}

// AttachArtifact only touches the artifact columns; the rest of the record is write-once.
func (r *certificateRepository) AttachArtifact(ctx context.Context, id, path string, renderedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Certificate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"artifact_path": path,
			"rendered_at":   renderedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
