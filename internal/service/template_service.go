package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/observability"
	"github.com/noah-isme/sigea-go-api/internal/repository"
	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

const maxTemplateEdge = 4000

var (
	// ErrTemplateNotFound indicates the event has no certificate template.
	ErrTemplateNotFound = errors.New("certificate template not found")
	// ErrTemplateLocked indicates certificates were already rendered from the template.
	ErrTemplateLocked = errors.New("certificate template is locked")
	// ErrTemplateTypeNotAllowed indicates the upload is not a PNG, JPEG or PDF.
	ErrTemplateTypeNotAllowed = errors.New("template must be a PNG, JPEG or PDF file")
	// ErrTemplateTooLarge indicates the upload exceeded the configured limit.
	ErrTemplateTooLarge = errors.New("template exceeds maximum allowed size")
	// ErrInvalidMapping indicates a mapping document or placement was rejected.
	ErrInvalidMapping = errors.New("invalid field mapping")
)

const mappingSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["fields"],
  "additionalProperties": false,
  "properties": {
    "fields": {
      "type": "object",
      "propertyNames": {
        "enum": ["participant_name", "document_id", "cpf", "event_title", "workload_hours", "issue_date", "certificate_code", "qr_code"]
      },
      "additionalProperties": {
        "type": "object",
        "required": ["x", "y"],
        "additionalProperties": false,
        "properties": {
          "x": {"type": "number", "minimum": 0, "maximum": 100},
          "y": {"type": "number", "minimum": 0, "maximum": 100},
          "fontSize": {"type": "number", "exclusiveMinimum": 0, "maximum": 200},
          "size": {"type": "number", "exclusiveMinimum": 0, "maximum": 1000}
        }
      }
    }
  }
}`

// TemplateService manages the certificate template and field layout of events.
type TemplateService interface {
	Upload(ctx context.Context, eventID string, file *multipart.FileHeader, actor EventActor) (dto.TemplateResponse, error)
	Get(ctx context.Context, eventID string, actor EventActor) (dto.TemplateResponse, error)
	SaveMapping(ctx context.Context, eventID string, document []byte, actor EventActor) (dto.TemplateResponse, error)
	PlaceField(ctx context.Context, eventID, field string, payload dto.PlaceFieldRequest, actor EventActor) (dto.TemplateResponse, error)
	RemoveField(ctx context.Context, eventID, field string, actor EventActor) (dto.TemplateResponse, error)
}

type templateService struct {
	templates    repository.CertificateTemplateRepository
	events       repository.EventRepository
	certificates repository.CertificateRepository
	storage      storage.ObjectStorage
	validator    *validator.Validate
	schema       *jsonschema.Schema
	maxSize      int64
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewTemplateService constructs the template service.
func NewTemplateService(templates repository.CertificateTemplateRepository, events repository.EventRepository, certificates repository.CertificateRepository, store storage.ObjectStorage, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) (TemplateService, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("certificate_mapping.json", strings.NewReader(mappingSchema)); err != nil {
		return nil, fmt.Errorf("failed to load mapping schema: %w", err)
	}
	schema, err := compiler.Compile("certificate_mapping.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile mapping schema: %w", err)
	}

	return &templateService{
		templates:    templates,
		events:       events,
		certificates: certificates,
		storage:      store,
		validator:    validate,
		schema:       schema,
		maxSize:      int64(maxSizeMB) * 1024 * 1024,
		logger:       logger.With().Str("component", "template_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/sigea-go-api/internal/service/template"),
	}, nil
}

func (s *templateService) Upload(ctx context.Context, eventID string, file *multipart.FileHeader, actor EventActor) (dto.TemplateResponse, error) {
	ctx, span := s.tracer.Start(ctx, "templates.upload", trace.WithAttributes(
		attribute.String("template.event_id", eventID),
		attribute.Int64("template.max_bytes", s.maxSize),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.TemplateUploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.TemplateResponse{}, err
	}
	if file.Size > s.maxSize {
		span.SetStatus(codes.Error, "payload too large")
		return dto.TemplateResponse{}, ErrTemplateTooLarge
	}

	if _, err := loadManagedEvent(ctx, s.events, eventID, actor); err != nil {
		span.RecordError(err)
		return dto.TemplateResponse{}, err
	}
	if err := s.ensureUnlocked(ctx, eventID); err != nil {
		span.RecordError(err)
		return dto.TemplateResponse{}, err
	}

	content, err := s.readUpload(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.TemplateResponse{}, err
	}

	mime := mimetype.Detect(content)
	span.SetAttributes(attribute.String("template.detected_mime", mime.String()))

	templateType, extension := classifyTemplate(mime)
	if templateType == "" {
		span.SetStatus(codes.Error, "type not allowed")
		return dto.TemplateResponse{}, ErrTemplateTypeNotAllowed
	}
	if templateType == models.TemplateTypeImage {
		if content, err = normalizeTemplateImage(content, extension); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "image rejected")
			return dto.TemplateResponse{}, err
		}
	}

	previous, err := s.templates.GetByEvent(ctx, eventID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TemplateResponse{}, fmt.Errorf("failed to load template: %w", err)
	}

	key := fmt.Sprintf("templates/%s/template%s", eventID, extension)
	contentType := mime.String()
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	if err := s.storage.Put(ctx, key, contentType, content); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	template := models.CertificateTemplate{
		EventID:      eventID,
		FilePath:     key,
		TemplateType: templateType,
		ContentType:  contentType,
		CreatedBy:    actor.ID,
	}
	if err := s.templates.Upsert(ctx, &template); err != nil {
		span.RecordError(err)
		return dto.TemplateResponse{}, fmt.Errorf("failed to save template: %w", err)
	}

	if previous.FilePath != "" && previous.FilePath != key {
		if err := s.storage.Delete(ctx, previous.FilePath); err != nil {
			s.logger.Warn().Err(err).Str("key", previous.FilePath).Msg("failed to delete replaced template asset")
		}
	}

	s.logger.Info().
		Str("event_id", eventID).
		Str("actor_id", actor.ID).
		Str("template_type", templateType).
		Int("bytes", len(content)).
		Msg("certificate template stored")

	return dto.NewTemplateResponse(template, false), nil
}

func (s *templateService) Get(ctx context.Context, eventID string, actor EventActor) (dto.TemplateResponse, error) {
	if _, err := loadManagedEvent(ctx, s.events, eventID, actor); err != nil {
		return dto.TemplateResponse{}, err
	}

	template, err := s.loadTemplate(ctx, eventID)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	locked, err := s.isLocked(ctx, eventID)
	if err != nil {
		return dto.TemplateResponse{}, err
	}
	return dto.NewTemplateResponse(template, locked), nil
}

// SaveMapping replaces the whole mapping document. Fields absent from the document are removed.
func (s *templateService) SaveMapping(ctx context.Context, eventID string, document []byte, actor EventActor) (dto.TemplateResponse, error) {
	var raw interface{}
	if err := json.Unmarshal(document, &raw); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	var mapping models.FieldMapping
	if err := json.Unmarshal(document, &mapping); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if err := mapping.Validate(); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	return s.mutate(ctx, eventID, actor, func(current *models.FieldMapping) error {
		*current = mapping
		return nil
	})
}

func (s *templateService) PlaceField(ctx context.Context, eventID, field string, payload dto.PlaceFieldRequest, actor EventActor) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}

	kind, err := models.ParseFieldKind(field)
	if err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	x, y, err := placementTarget(payload)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	return s.mutate(ctx, eventID, actor, func(mapping *models.FieldMapping) error {
		if err := mapping.PlaceField(kind, x, y); err != nil {
			return err
		}
		if payload.FontSize != nil && kind.IsText() {
			if err := mapping.SetFontSize(kind, *payload.FontSize); err != nil {
				return err
			}
		}
		if payload.Size != nil && kind == models.FieldQRCode {
			if err := mapping.SetQRSize(*payload.Size); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *templateService) RemoveField(ctx context.Context, eventID, field string, actor EventActor) (dto.TemplateResponse, error) {
	kind, err := models.ParseFieldKind(field)
	if err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	return s.mutate(ctx, eventID, actor, func(mapping *models.FieldMapping) error {
		mapping.RemoveField(kind)
		return nil
	})
}

func (s *templateService) mutate(ctx context.Context, eventID string, actor EventActor, apply func(*models.FieldMapping) error) (dto.TemplateResponse, error) {
	if _, err := loadManagedEvent(ctx, s.events, eventID, actor); err != nil {
		return dto.TemplateResponse{}, err
	}

	template, err := s.loadTemplate(ctx, eventID)
	if err != nil {
		return dto.TemplateResponse{}, err
	}
	if err := s.ensureUnlocked(ctx, eventID); err != nil {
		return dto.TemplateResponse{}, err
	}

	mapping := template.FieldMapping()
	if err := apply(&mapping); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}

	if err := s.templates.UpdateMapping(ctx, eventID, mapping); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, fmt.Errorf("failed to save mapping: %w", err)
	}

	template.SetFieldMapping(mapping)
	s.logger.Debug().Str("event_id", eventID).Int("fields", len(mapping.Fields)).Msg("certificate mapping saved")

	return dto.NewTemplateResponse(template, false), nil
}

func (s *templateService) loadTemplate(ctx context.Context, eventID string) (models.CertificateTemplate, error) {
	template, err := s.templates.GetByEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CertificateTemplate{}, ErrTemplateNotFound
		}
		return models.CertificateTemplate{}, fmt.Errorf("failed to load template: %w", err)
	}
	return template, nil
}

func (s *templateService) isLocked(ctx context.Context, eventID string) (bool, error) {
	rendered, err := s.certificates.CountRenderedByEvent(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to count rendered certificates: %w", err)
	}
	return rendered > 0, nil
}

func (s *templateService) ensureUnlocked(ctx context.Context, eventID string) error {
	locked, err := s.isLocked(ctx, eventID)
	if err != nil {
		return err
	}
	if locked {
		return ErrTemplateLocked
	}
	return nil
}

func (s *templateService) readUpload(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxSize {
		return nil, ErrTemplateTooLarge
	}
	if buf.Len() == 0 {
		return nil, ErrTemplateTypeNotAllowed
	}
	return buf.Bytes(), nil
}

func placementTarget(payload dto.PlaceFieldRequest) (float64, float64, error) {
	if payload.Click != nil {
		click := payload.Click
		x, y, err := models.ClickToPercent(click.ClientX, click.ClientY, click.BoxLeft, click.BoxTop, click.BoxWidth, click.BoxHeight)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
		}
		return x, y, nil
	}
	if payload.X == nil || payload.Y == nil {
		return 0, 0, fmt.Errorf("%w: x and y or click are required", ErrInvalidMapping)
	}
	return *payload.X, *payload.Y, nil
}

func classifyTemplate(mime *mimetype.MIME) (string, string) {
	switch {
	case mime.Is("application/pdf"):
		return models.TemplateTypePDF, ".pdf"
	case mime.Is("image/png"):
		return models.TemplateTypeImage, ".png"
	case mime.Is("image/jpeg"):
		return models.TemplateTypeImage, ".jpg"
	default:
		return "", ""
	}
}

// normalizeTemplateImage applies EXIF orientation and bounds the pixel size.
func normalizeTemplateImage(content []byte, extension string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateTypeNotAllowed, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxTemplateEdge || bounds.Dy() > maxTemplateEdge {
		img = imaging.Fit(img, maxTemplateEdge, maxTemplateEdge, imaging.Lanczos)
	}

	return encodeTemplateImage(img, extension)
}

func encodeTemplateImage(img image.Image, extension string) ([]byte, error) {
	format := imaging.PNG
	options := []imaging.EncodeOption{}
	if extension == ".jpg" {
		format = imaging.JPEG
		options = append(options, imaging.JPEGQuality(95))
	}

	out := &bytes.Buffer{}
	if err := imaging.Encode(out, img, format, options...); err != nil {
		return nil, fmt.Errorf("failed to encode template image: %w", err)
	}
	return out.Bytes(), nil
}
