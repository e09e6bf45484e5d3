package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/observability"
	"github.com/noah-isme/sigea-go-api/internal/repository"
	"github.com/noah-isme/sigea-go-api/pkg/pdf"
	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

const (
	issueDateLayout     = "02/01/2006"
	missingDocumentText = "---"
	qrPixelsPerPoint    = 4
)

var (
	// ErrStorageFailure indicates the object store could not read or write an asset.
	ErrStorageFailure = errors.New("certificate storage failure")
	// ErrParticipantNotFound indicates the participant profile is missing.
	ErrParticipantNotFound = errors.New("participant not found")
)

// QRCodeEncoder renders content as a square PNG QR code of roughly size pixels.
type QRCodeEncoder interface {
	Encode(content string, size int) ([]byte, error)
}

// certificateCanvas is a single page drawing surface in points, origin at the bottom-left.
type certificateCanvas interface {
	Size() (float64, float64)
	TextWidth(text string, size float64) float64
	DrawText(text string, x, y, size float64)
	DrawImage(png []byte, x, y, width, height float64) error
	Bytes(stamp time.Time) ([]byte, error)
}

type canvasOpener func(templateType string, template []byte) (certificateCanvas, error)

func openPDFCanvas(templateType string, template []byte) (certificateCanvas, error) {
	source := pdf.SourceImage
	if templateType == models.TemplateTypePDF {
		source = pdf.SourcePDF
	}

	canvas, err := pdf.NewCanvas(source, template)
	if err != nil {
		return nil, err
	}
	return canvas, nil
}

// RenderConfig controls certificate content that depends on deployment.
type RenderConfig struct {
	PublicBaseURL string
	Location      *time.Location
}

// RenderService composes certificate PDFs and manages their artifacts.
type RenderService interface {
	Render(ctx context.Context, certificateID string) (dto.RenderResponse, error)
	RenderOwned(ctx context.Context, certificateID, participantID string) (dto.RenderResponse, error)
	Download(ctx context.Context, certificateID, participantID string) (dto.CertificateDownload, error)
	RenderPending(ctx context.Context, limit int) (int, error)
}

type renderService struct {
	certificates repository.CertificateRepository
	templates    repository.CertificateTemplateRepository
	storage      storage.ObjectStorage
	qr           QRCodeEncoder
	openCanvas   canvasOpener
	sanitizer    *bluemonday.Policy
	baseURL      string
	location     *time.Location
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewRenderService constructs the certificate renderer.
func NewRenderService(certificates repository.CertificateRepository, templates repository.CertificateTemplateRepository, store storage.ObjectStorage, qr QRCodeEncoder, cfg RenderConfig, logger zerolog.Logger) RenderService {
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	return &renderService{
		certificates: certificates,
		templates:    templates,
		storage:      store,
		qr:           qr,
		openCanvas:   openPDFCanvas,
		sanitizer:    bluemonday.StrictPolicy(),
		baseURL:      strings.TrimRight(cfg.PublicBaseURL, "/"),
		location:     location,
		logger:       logger.With().Str("component", "render_service").Logger(),
		tracer:       otel.Tracer("github.com/noah-isme/sigea-go-api/internal/service/render"),
		now:          time.Now,
	}
}

func (s *renderService) Render(ctx context.Context, certificateID string) (dto.RenderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "certificates.render", trace.WithAttributes(
		attribute.String("certificate.id", certificateID),
	))
	defer span.End()

	certificate, err := s.loadCertificate(ctx, certificateID)
	if err != nil {
		span.RecordError(err)
		return dto.RenderResponse{}, err
	}

	response, err := s.render(ctx, certificate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return dto.RenderResponse{}, err
	}
	return response, nil
}

func (s *renderService) RenderOwned(ctx context.Context, certificateID, participantID string) (dto.RenderResponse, error) {
	certificate, err := s.loadOwnedCertificate(ctx, certificateID, participantID)
	if err != nil {
		return dto.RenderResponse{}, err
	}
	return s.render(ctx, certificate)
}

func (s *renderService) Download(ctx context.Context, certificateID, participantID string) (dto.CertificateDownload, error) {
	certificate, err := s.loadOwnedCertificate(ctx, certificateID, participantID)
	if err != nil {
		return dto.CertificateDownload{}, err
	}

	download := dto.CertificateDownload{FileName: certificate.Code + ".pdf"}

	if certificate.IsRendered() {
		content, err := s.storage.Get(ctx, *certificate.ArtifactPath)
		switch {
		case err == nil:
			download.Content = content
			return download, nil
		case errors.Is(err, storage.ErrNotFound):
			s.logger.Warn().Str("certificate_id", certificate.ID).Msg("certificate artifact missing, rendering again")
		default:
			return dto.CertificateDownload{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
	}

	if _, err := s.render(ctx, certificate); err != nil {
		return dto.CertificateDownload{}, err
	}

	content, err := s.storage.Get(ctx, artifactKey(certificate))
	if err != nil {
		return dto.CertificateDownload{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	download.Content = content
	return download, nil
}

// RenderPending renders up to limit certificates that have no artifact yet.
func (s *renderService) RenderPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.certificates.ListUnrendered(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unrendered certificates: %w", err)
	}

	rendered := 0
	var failures []error
	for _, certificate := range pending {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}
		if _, err := s.Render(ctx, certificate.ID); err != nil {
			s.logger.Warn().Err(err).Str("certificate_id", certificate.ID).Msg("failed to render pending certificate")
			failures = append(failures, err)
			continue
		}
		rendered++
	}

	return rendered, errors.Join(failures...)
}

func (s *renderService) render(ctx context.Context, certificate models.Certificate) (dto.RenderResponse, error) {
	start := time.Now()
	templateType := "unknown"
	outcome := "error"
	defer func() {
		observability.CertificateRenderDuration().WithLabelValues(templateType, outcome).Observe(time.Since(start).Seconds())
	}()

	if certificate.Participant.ID == "" {
		return dto.RenderResponse{}, ErrParticipantNotFound
	}

	template, err := s.templates.GetByEvent(ctx, certificate.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RenderResponse{}, ErrTemplateNotFound
		}
		return dto.RenderResponse{}, fmt.Errorf("failed to load template: %w", err)
	}
	templateType = template.TemplateType

	background, err := s.storage.Get(ctx, template.FilePath)
	if err != nil {
		return dto.RenderResponse{}, fmt.Errorf("%w: template asset: %v", ErrStorageFailure, err)
	}

	content, err := s.compose(certificate, template, background)
	if err != nil {
		return dto.RenderResponse{}, err
	}

	key := artifactKey(certificate)
	if err := s.storage.Put(ctx, key, "application/pdf", content); err != nil {
		return dto.RenderResponse{}, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	renderedAt := s.now().UTC()
	if err := s.certificates.AttachArtifact(ctx, certificate.ID, key, renderedAt); err != nil {
		// a previously attached artifact lives at the same key and must survive
		if !certificate.IsRendered() {
			if cleanupErr := s.storage.Delete(ctx, key); cleanupErr != nil {
				s.logger.Error().Err(cleanupErr).Str("key", key).Msg("failed to remove orphaned certificate artifact")
			}
		}
		return dto.RenderResponse{}, fmt.Errorf("failed to attach certificate artifact: %w", err)
	}

	outcome = "rendered"
	s.logger.Info().
		Str("certificate_id", certificate.ID).
		Str("key", key).
		Int("bytes", len(content)).
		Msg("certificate rendered")

	return dto.RenderResponse{
		CertificateID: certificate.ID,
		Code:          certificate.Code,
		ArtifactPath:  key,
		RenderedAt:    renderedAt,
		Bytes:         len(content),
	}, nil
}

func (s *renderService) compose(certificate models.Certificate, template models.CertificateTemplate, background []byte) ([]byte, error) {
	canvas, err := s.openCanvas(template.TemplateType, background)
	if err != nil {
		return nil, fmt.Errorf("failed to open certificate template: %w", err)
	}

	width, height := canvas.Size()
	mapping := template.FieldMapping()
	values := s.fieldValues(certificate)

	for _, kind := range models.FieldKinds {
		placement, ok := mapping.Placement(kind)
		if !ok {
			continue
		}

		if kind == models.FieldQRCode {
			if err := s.drawQRCode(canvas, certificate, placement, width, height); err != nil {
				return nil, err
			}
			continue
		}

		text := values[kind]
		if text == "" {
			continue
		}
		size := placement.FontSizeOrDefault()
		box := textBox(placement, width, height, canvas.TextWidth(text, size))
		canvas.DrawText(text, box.Left, box.Bottom, size)
	}

	return canvas.Bytes(certificate.IssuedAt)
}

func (s *renderService) drawQRCode(canvas certificateCanvas, certificate models.Certificate, placement models.Placement, width, height float64) error {
	box := qrBox(placement, width, height)
	pixels := int(math.Ceil(box.Width)) * qrPixelsPerPoint

	png, err := s.qr.Encode(s.validationURL(certificate.Code), pixels)
	if err != nil {
		return fmt.Errorf("failed to encode validation qr code: %w", err)
	}
	return canvas.DrawImage(png, box.Left, box.Bottom, box.Width, box.Height)
}

func (s *renderService) validationURL(code string) string {
	return s.baseURL + "/validate?code=" + url.QueryEscape(code)
}

// fieldValues resolves the printed text of every text field.
func (s *renderService) fieldValues(certificate models.Certificate) map[models.FieldKind]string {
	documentID := s.clean(certificate.Participant.DocumentID)
	if documentID == "" {
		documentID = missingDocumentText
	}

	return map[models.FieldKind]string{
		models.FieldParticipantName: s.clean(certificate.Participant.FullName),
		models.FieldDocumentID:      documentID,
		models.FieldEventTitle:      s.clean(certificate.Event.Title),
		models.FieldWorkloadHours:   fmt.Sprintf("%d horas", certificate.WorkloadHours),
		models.FieldIssueDate:       certificate.IssuedAt.In(s.location).Format(issueDateLayout),
		models.FieldCertificateCode: certificate.Code,
	}
}

func (s *renderService) clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *renderService) loadCertificate(ctx context.Context, certificateID string) (models.Certificate, error) {
	certificate, err := s.certificates.GetByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Certificate{}, ErrCertificateNotFound
		}
		return models.Certificate{}, fmt.Errorf("failed to load certificate: %w", err)
	}
	return certificate, nil
}

// loadOwnedCertificate hides certificates of other participants behind ErrCertificateNotFound.
func (s *renderService) loadOwnedCertificate(ctx context.Context, certificateID, participantID string) (models.Certificate, error) {
	certificate, err := s.loadCertificate(ctx, certificateID)
	if err != nil {
		return models.Certificate{}, err
	}
	if certificate.ParticipantID != participantID {
		return models.Certificate{}, ErrCertificateNotFound
	}
	return certificate, nil
}

func artifactKey(certificate models.Certificate) string {
	return fmt.Sprintf("issued/%s/%s/%s.pdf", certificate.EventID, certificate.ParticipantID, certificate.Code)
}

// box is an axis aligned rectangle in page points, origin bottom-left.
type box struct {
	Left   float64
	Bottom float64
	Width  float64
	Height float64
}

func (b box) Center() (float64, float64) {
	return b.Left + b.Width/2, b.Bottom + b.Height/2
}

// anchor converts a top-left relative percentage placement into page points.
func anchor(placement models.Placement, width, height float64) (float64, float64) {
	return placement.X / 100 * width, height - placement.Y/100*height
}

// textBox centers a line of text of the given width on the placement. The box height is
// the font size, so its bottom edge is the baseline.
func textBox(placement models.Placement, width, height, textWidth float64) box {
	x, y := anchor(placement, width, height)
	size := placement.FontSizeOrDefault()
	return box{Left: x - textWidth/2, Bottom: y - size/2, Width: textWidth, Height: size}
}

func qrBox(placement models.Placement, width, height float64) box {
	x, y := anchor(placement, width, height)
	side := placement.SizeOrDefault()
	return box{Left: x - side/2, Bottom: y - side/2, Width: side, Height: side}
}
