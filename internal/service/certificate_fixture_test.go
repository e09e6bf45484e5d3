package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/repository"
	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

type certificateFixture struct {
	db            *gorm.DB
	events        repository.EventRepository
	participants  repository.ParticipantRepository
	registrations repository.RegistrationRepository
	certificates  repository.CertificateRepository
	templates     repository.CertificateTemplateRepository
	store         *storage.Filesystem
	validate      *validator.Validate
	event         models.Event
	participant   models.Participant
	organizer     EventActor
}

func newCertificateFixture(t *testing.T) *certificateFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:certificates_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Event{},
		&models.Participant{},
		&models.Registration{},
		&models.CertificateTemplate{},
		&models.Certificate{},
	))

	event := models.Event{
		ID:            "e1xx0000-0000-4000-8000-000000000001",
		Title:         "Semana Acadêmica de Computação",
		WorkloadHours: 20,
		Status:        models.EventStatusPublished,
		Modality:      models.EventModalityInPerson,
		OrganizerID:   "organizer-1",
	}
	require.NoError(t, db.Create(&event).Error)

	participant := models.Participant{ID: "p1", FullName: "Maria Souza", DocumentID: "123.456.789-00", Email: "maria@example.com"}
	require.NoError(t, db.Create(&participant).Error)

	return &certificateFixture{
		db:            db,
		events:        repository.NewEventRepository(db),
		participants:  repository.NewParticipantRepository(db),
		registrations: repository.NewRegistrationRepository(db),
		certificates:  repository.NewCertificateRepository(db),
		templates:     repository.NewCertificateTemplateRepository(db),
		store:         storage.NewFilesystemFromFs(afero.NewMemMapFs(), zerolog.Nop()),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		event:         event,
		participant:   participant,
		organizer:     EventActor{ID: "organizer-1", Role: models.RoleOrganizer},
	}
}

func (f *certificateFixture) addParticipant(t *testing.T, id, name string) models.Participant {
	t.Helper()
	participant := models.Participant{ID: id, FullName: name}
	require.NoError(t, f.db.Create(&participant).Error)
	return participant
}

func (f *certificateFixture) register(t *testing.T, participantID string, at time.Time) models.Registration {
	t.Helper()
	registration := models.Registration{
		EventID:       f.event.ID,
		ParticipantID: participantID,
		Status:        models.RegistrationStatusConfirmed,
		RegisteredAt:  at,
	}
	require.NoError(t, f.registrations.Create(context.Background(), &registration))
	return registration
}

func (f *certificateFixture) gate(now func() time.Time) EligibilityGate {
	gate := NewEligibilityGate(f.registrations, DefaultCertificateCooldown)
	gate.(*eligibilityGate).now = now
	return gate
}

func (f *certificateFixture) issuer(now func() time.Time, publisher CertificateIssuedPublisher) CertificateService {
	svc := NewCertificateService(f.gate(now), f.certificates, f.events, publisher, zerolog.Nop())
	svc.(*certificateService).now = now
	return svc
}

func (f *certificateFixture) templateService(t *testing.T) TemplateService {
	t.Helper()
	svc, err := NewTemplateService(f.templates, f.events, f.certificates, f.store, f.validate, 5, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func (f *certificateFixture) renderer(qr QRCodeEncoder, now func() time.Time) RenderService {
	svc := NewRenderService(f.certificates, f.templates, f.store, qr, RenderConfig{
		PublicBaseURL: "https://sigea.example.com/",
		Location:      time.FixedZone("BRT", -3*60*60),
	}, zerolog.Nop())
	svc.(*renderService).now = now
	return svc
}

// storeImageTemplate uploads a plain PNG background with the given mapping.
func (f *certificateFixture) storeImageTemplate(t *testing.T, width, height int, mapping models.FieldMapping) models.CertificateTemplate {
	t.Helper()
	return f.storeTemplate(t, models.TemplateTypeImage, "image/png", "template.png", pngBytes(t, width, height), mapping)
}

func (f *certificateFixture) storePDFTemplate(t *testing.T, mapping models.FieldMapping) models.CertificateTemplate {
	t.Helper()
	doc := fpdf.New("L", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 24)
	doc.Text(100, 100, "Certificado de Participacao")

	buf := &bytes.Buffer{}
	require.NoError(t, doc.Output(buf))
	return f.storeTemplate(t, models.TemplateTypePDF, "application/pdf", "template.pdf", buf.Bytes(), mapping)
}

func (f *certificateFixture) storeTemplate(t *testing.T, templateType, contentType, name string, content []byte, mapping models.FieldMapping) models.CertificateTemplate {
	t.Helper()
	ctx := context.Background()
	key := "templates/" + f.event.ID + "/" + name
	require.NoError(t, f.store.Put(ctx, key, contentType, content))

	template := models.CertificateTemplate{
		EventID:      f.event.ID,
		FilePath:     key,
		TemplateType: templateType,
		ContentType:  contentType,
		CreatedBy:    f.organizer.ID,
	}
	require.NoError(t, f.templates.Upsert(ctx, &template))
	require.NoError(t, f.templates.UpdateMapping(ctx, f.event.ID, mapping))

	stored, err := f.templates.GetByEvent(ctx, f.event.ID)
	require.NoError(t, err)
	return stored
}

func (f *certificateFixture) insertCertificate(t *testing.T, participantID, code, validationCode string, issuedAt time.Time) models.Certificate {
	t.Helper()
	certificate := models.Certificate{
		EventID:        f.event.ID,
		ParticipantID:  participantID,
		Code:           code,
		ValidationCode: validationCode,
		IssuedAt:       issuedAt,
		WorkloadHours:  f.event.WorkloadHours,
	}
	require.NoError(t, f.certificates.Create(context.Background(), &certificate))
	return certificate
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 250, G: 248, B: 240, A: 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func multipartFile(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type recordingPublisher struct {
	events []dto.CertificateIssuedEvent
	err    error
}

func (p *recordingPublisher) PublishIssued(_ context.Context, event dto.CertificateIssuedEvent) error {
	p.events = append(p.events, event)
	return p.err
}
