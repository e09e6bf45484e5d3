package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldKind identifies a dynamic value that can be placed on a certificate template.
type FieldKind string

const (
	FieldParticipantName FieldKind = "participant_name"
	FieldDocumentID      FieldKind = "document_id"
	FieldEventTitle      FieldKind = "event_title"
	FieldWorkloadHours   FieldKind = "workload_hours"
	FieldIssueDate       FieldKind = "issue_date"
	FieldCertificateCode FieldKind = "certificate_code"
	FieldQRCode          FieldKind = "qr_code"
)

const (
	// DefaultFontSize is used for text fields without an explicit font size.
	DefaultFontSize = 14.0
	// DefaultQRSize is the side length of the QR code square in points.
	DefaultQRSize = 80.0
)

var (
	// ErrUnknownField indicates a field identifier outside the supported set.
	ErrUnknownField = errors.New("unknown certificate field")
	// ErrPlacementOutOfRange indicates coordinates outside [0,100].
	ErrPlacementOutOfRange = errors.New("placement coordinates must be within 0 and 100")
	// ErrInvalidPlacementBox indicates a zero or negative reference box.
	ErrInvalidPlacementBox = errors.New("placement box must have a positive size")
)

// FieldKinds lists every supported field in rendering order.
var FieldKinds = []FieldKind{
	FieldParticipantName,
	FieldDocumentID,
	FieldEventTitle,
	FieldWorkloadHours,
	FieldIssueDate,
	FieldCertificateCode,
	FieldQRCode,
}

// legacy identifiers still found in stored mappings
var fieldAliases = map[string]FieldKind{
	"cpf": FieldDocumentID,
}

// ParseFieldKind converts a raw identifier into a FieldKind.
func ParseFieldKind(raw string) (FieldKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := fieldAliases[normalized]; ok {
		return alias, nil
	}
	for _, kind := range FieldKinds {
		if string(kind) == normalized {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
}

// IsText reports whether the field is drawn as text.
func (k FieldKind) IsText() bool {
	return k != FieldQRCode
}

// Placement positions a field relative to the template, in percent of its width and height
// measured from the top-left corner.
type Placement struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	FontSize *float64 `json:"fontSize,omitempty"`
	Size     *float64 `json:"size,omitempty"`
}

// FontSizeOrDefault returns the configured font size or DefaultFontSize.
func (p Placement) FontSizeOrDefault() float64 {
	if p.FontSize == nil || *p.FontSize <= 0 {
		return DefaultFontSize
	}
	return *p.FontSize
}

// SizeOrDefault returns the configured QR size or DefaultQRSize.
func (p Placement) SizeOrDefault() float64 {
	if p.Size == nil || *p.Size <= 0 {
		return DefaultQRSize
	}
	return *p.Size
}

// Validate checks the coordinate range.
func (p Placement) Validate() error {
	if p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100 {
		return ErrPlacementOutOfRange
	}
	return nil
}

// FieldMapping holds at most one placement per field.
type FieldMapping struct {
	Fields map[FieldKind]Placement `json:"fields"`
}

// NewFieldMapping returns an empty mapping.
func NewFieldMapping() FieldMapping {
	return FieldMapping{Fields: map[FieldKind]Placement{}}
}

// PlaceField records or overwrites the position of a field. Font and QR sizes already
// configured for the field are preserved.
func (m *FieldMapping) PlaceField(kind FieldKind, xPercent, yPercent float64) error {
	placement := Placement{X: xPercent, Y: yPercent}
	if err := placement.Validate(); err != nil {
		return err
	}
	if m.Fields == nil {
		m.Fields = map[FieldKind]Placement{}
	}
	if existing, ok := m.Fields[kind]; ok {
		placement.FontSize = existing.FontSize
		placement.Size = existing.Size
	}
	if kind.IsText() && placement.FontSize == nil {
		size := DefaultFontSize
		placement.FontSize = &size
	}
	m.Fields[kind] = placement
	return nil
}

// RemoveField deletes the placement of a field. Removing an absent field is a no-op.
func (m *FieldMapping) RemoveField(kind FieldKind) {
	delete(m.Fields, kind)
}

// SetFontSize changes the font size of a placed text field.
func (m *FieldMapping) SetFontSize(kind FieldKind, points float64) error {
	placement, ok := m.Fields[kind]
	if !ok || !kind.IsText() || points <= 0 {
		return fmt.Errorf("cannot set font size for %s", kind)
	}
	placement.FontSize = &points
	m.Fields[kind] = placement
	return nil
}

// SetQRSize changes the rendered side length of a placed QR code.
func (m *FieldMapping) SetQRSize(points float64) error {
	placement, ok := m.Fields[FieldQRCode]
	if !ok || points <= 0 {
		return fmt.Errorf("cannot set size for %s", FieldQRCode)
	}
	placement.Size = &points
	m.Fields[FieldQRCode] = placement
	return nil
}

// Placement returns the placement of a field, if any.
func (m FieldMapping) Placement(kind FieldKind) (Placement, bool) {
	placement, ok := m.Fields[kind]
	return placement, ok
}

// Validate checks every placement.
func (m FieldMapping) Validate() error {
	for kind, placement := range m.Fields {
		if err := placement.Validate(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// UnmarshalJSON resolves aliases and rejects unknown field identifiers.
func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	var raw struct {
		Fields map[string]Placement `json:"fields"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := make(map[FieldKind]Placement, len(raw.Fields))
	for key, placement := range raw.Fields {
		kind, err := ParseFieldKind(key)
		if err != nil {
			return err
		}
		if _, dup := fields[kind]; dup {
			return fmt.Errorf("field %s placed more than once", kind)
		}
		fields[kind] = placement
	}
	m.Fields = fields
	return nil
}

// ClickToPercent converts a click on the rendered template preview into normalized
// coordinates, clamped to [0,100].
func ClickToPercent(clickX, clickY, boxLeft, boxTop, boxWidth, boxHeight float64) (float64, float64, error) {
	if boxWidth <= 0 || boxHeight <= 0 {
		return 0, 0, ErrInvalidPlacementBox
	}
	x := clampPercent((clickX - boxLeft) / boxWidth * 100)
	y := clampPercent((clickY - boxTop) / boxHeight * 100)
	return x, y, nil
}

func clampPercent(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
