package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// TemplateTypeImage is a PNG or JPEG background.
	TemplateTypeImage = "image"
	// TemplateTypePDF is a single page PDF background.
	TemplateTypePDF = "pdf"
)

// CertificateTemplate stores the background asset and field layout of an event's certificate.
type CertificateTemplate struct {
	ID           string                           `gorm:"size:36;primaryKey" json:"id"`
	EventID      string                           `gorm:"size:36;not null;uniqueIndex" json:"event_id"`
	FilePath     string                           `gorm:"size:512;not null" json:"file_path"`
	TemplateType string                           `gorm:"size:16;not null" json:"template_type"`
	ContentType  string                           `gorm:"size:64" json:"content_type"`
	Mapping      datatypes.JSONType[FieldMapping] `gorm:"type:json" json:"mapping"`
	CreatedBy    string                           `gorm:"size:64" json:"created_by"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (t *CertificateTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// FieldMapping returns the stored layout, never with a nil field map.
func (t CertificateTemplate) FieldMapping() FieldMapping {
	mapping := t.Mapping.Data()
	if mapping.Fields == nil {
		mapping.Fields = map[FieldKind]Placement{}
	}
	return mapping
}

// SetFieldMapping replaces the stored layout.
func (t *CertificateTemplate) SetFieldMapping(mapping FieldMapping) {
	t.Mapping = datatypes.NewJSONType(mapping)
}
