package dto

import (
	"time"

	"github.com/noah-isme/sigea-go-api/internal/models"
)

// PlaceFieldRequest positions a field either by percentages or by a click inside
// the rendered preview box.
type PlaceFieldRequest struct {
	X        *float64    `json:"x" validate:"omitempty,gte=0,lte=100"`
	Y        *float64    `json:"y" validate:"omitempty,gte=0,lte=100"`
	Click    *ClickPoint `json:"click" validate:"omitempty"`
	FontSize *float64    `json:"font_size" validate:"omitempty,gt=0,lte=200"`
	Size     *float64    `json:"size" validate:"omitempty,gt=0,lte=1000"`
}

// ClickPoint is a pointer position and the bounding box of the preview it landed on.
type ClickPoint struct {
	ClientX   float64 `json:"client_x"`
	ClientY   float64 `json:"client_y"`
	BoxLeft   float64 `json:"box_left"`
	BoxTop    float64 `json:"box_top"`
	BoxWidth  float64 `json:"box_width" validate:"gt=0"`
	BoxHeight float64 `json:"box_height" validate:"gt=0"`
}

// TemplateResponse describes an event template and its layout.
type TemplateResponse struct {
	ID           string                                `json:"id"`
	EventID      string                                `json:"event_id"`
	FilePath     string                                `json:"file_path"`
	TemplateType string                                `json:"template_type"`
	ContentType  string                                `json:"content_type"`
	Fields       map[models.FieldKind]models.Placement `json:"fields"`
	Locked       bool                                  `json:"locked"`
	UpdatedAt    time.Time                             `json:"updated_at"`
}

// NewTemplateResponse converts a CertificateTemplate model into a DTO.
func NewTemplateResponse(model models.CertificateTemplate, locked bool) TemplateResponse {
	return TemplateResponse{
		ID:           model.ID,
		EventID:      model.EventID,
		FilePath:     model.FilePath,
		TemplateType: model.TemplateType,
		ContentType:  model.ContentType,
		Fields:       model.FieldMapping().Fields,
		Locked:       locked,
		UpdatedAt:    model.UpdatedAt,
	}
}
