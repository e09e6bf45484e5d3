package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// CertificateTemplateRepository persists the single template of each event.
type CertificateTemplateRepository interface {
	GetByEvent(ctx context.Context, eventID string) (models.CertificateTemplate, error)
	Upsert(ctx context.Context, template *models.CertificateTemplate) error
	UpdateMapping(ctx context.Context, eventID string, mapping models.FieldMapping) error
}

type certificateTemplateRepository struct {
	db *gorm.DB
}

// NewCertificateTemplateRepository instantiates the repository.
func NewCertificateTemplateRepository(db *gorm.DB) CertificateTemplateRepository {
	return &certificateTemplateRepository{db: db}
}

func (r *certificateTemplateRepository) GetByEvent(ctx context.Context, eventID string) (models.CertificateTemplate, error) {
	var template models.CertificateTemplate
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&template).Error; err != nil {
		return models.CertificateTemplate{}, err
	}

	return template, nil
}

// Upsert replaces the asset reference of the event's template and keeps its mapping.
func (r *certificateTemplateRepository) Upsert(ctx context.Context, template *models.CertificateTemplate) error {
	if template.Mapping.Data().Fields == nil {
		template.SetFieldMapping(models.NewFieldMapping())
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "template_type", "content_type", "created_by", "updated_at"}),
	}).Create(template)
	if tx.Error != nil {
		return tx.Error
	}

	stored, err := r.GetByEvent(ctx, template.EventID)
	if err != nil {
		return err
	}
	*template = stored
	return nil
}

// UpdateMapping overwrites the whole mapping document.
func (r *certificateTemplateRepository) UpdateMapping(ctx context.Context, eventID string, mapping models.FieldMapping) error {
	template := models.CertificateTemplate{}
	template.SetFieldMapping(mapping)

	result := r.db.WithContext(ctx).Model(&models.CertificateTemplate{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"mapping":    template.Mapping,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
