package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/models"
)

func float(v float64) *float64 { return &v }

func TestTemplateServiceUploadImage(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)

	file := multipartFile(t, "modelo.png", "image/png", pngBytes(t, 120, 80))
	response, err := svc.Upload(context.Background(), f.event.ID, file, f.organizer)
	require.NoError(t, err)
	require.Equal(t, models.TemplateTypeImage, response.TemplateType)
	require.Equal(t, "image/png", response.ContentType)
	require.Equal(t, "templates/"+f.event.ID+"/template.png", response.FilePath)
	require.False(t, response.Locked)

	stored, err := f.store.Get(context.Background(), response.FilePath)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
}

func TestTemplateServiceUploadRejectsUnsupportedAndForeignCallers(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)

	text := multipartFile(t, "notes.txt", "text/plain", []byte("not a template"))
	_, err := svc.Upload(context.Background(), f.event.ID, text, f.organizer)
	require.ErrorIs(t, err, ErrTemplateTypeNotAllowed)

	image := multipartFile(t, "modelo.png", "image/png", pngBytes(t, 20, 20))
	_, err = svc.Upload(context.Background(), f.event.ID, image, EventActor{ID: "intruder", Role: models.RoleOrganizer})
	require.ErrorIs(t, err, ErrNotEventOrganizer)

	_, err = svc.Upload(context.Background(), "missing-event", image, f.organizer)
	require.ErrorIs(t, err, ErrEventNotFound)

	admin := EventActor{ID: "root", Role: models.RoleAdmin}
	_, err = svc.Upload(context.Background(), f.event.ID, image, admin)
	require.NoError(t, err)
}

func TestTemplateServicePlaceAndRemoveFields(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)
	f.storeImageTemplate(t, 10, 10, models.NewFieldMapping())
	ctx := context.Background()

	response, err := svc.PlaceField(ctx, f.event.ID, "cpf", dto.PlaceFieldRequest{X: float(30), Y: float(60), FontSize: float(11)}, f.organizer)
	require.NoError(t, err)
	placement := response.Fields[models.FieldDocumentID]
	require.Equal(t, 30.0, placement.X)
	require.Equal(t, 11.0, placement.FontSizeOrDefault())

	click := &dto.ClickPoint{ClientX: 300, ClientY: 150, BoxLeft: 100, BoxTop: 50, BoxWidth: 400, BoxHeight: 200}
	response, err = svc.PlaceField(ctx, f.event.ID, "document_id", dto.PlaceFieldRequest{Click: click}, f.organizer)
	require.NoError(t, err)
	placement = response.Fields[models.FieldDocumentID]
	require.Equal(t, 50.0, placement.X)
	require.Equal(t, 50.0, placement.Y)
	require.Equal(t, 11.0, placement.FontSizeOrDefault())
	require.Len(t, response.Fields, 1)

	_, err = svc.PlaceField(ctx, f.event.ID, "signature", dto.PlaceFieldRequest{X: float(1), Y: float(1)}, f.organizer)
	require.ErrorIs(t, err, ErrInvalidMapping)

	_, err = svc.PlaceField(ctx, f.event.ID, "event_title", dto.PlaceFieldRequest{X: float(1)}, f.organizer)
	require.ErrorIs(t, err, ErrInvalidMapping)

	_, err = svc.PlaceField(ctx, f.event.ID, "event_title", dto.PlaceFieldRequest{X: float(120), Y: float(1)}, f.organizer)
	require.Error(t, err)

	response, err = svc.RemoveField(ctx, f.event.ID, "cpf", f.organizer)
	require.NoError(t, err)
	require.Empty(t, response.Fields)

	stored, err := f.templates.GetByEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Empty(t, stored.FieldMapping().Fields)
}

func TestTemplateServiceSaveMappingReplacesDocument(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)
	initial := models.NewFieldMapping()
	require.NoError(t, initial.PlaceField(models.FieldEventTitle, 50, 20))
	f.storeImageTemplate(t, 10, 10, initial)
	ctx := context.Background()

	document := []byte(`{"fields":{"participant_name":{"x":50,"y":45,"fontSize":28},"qr_code":{"x":90,"y":85,"size":96}}}`)
	response, err := svc.SaveMapping(ctx, f.event.ID, document, f.organizer)
	require.NoError(t, err)
	require.Len(t, response.Fields, 2)
	require.NotContains(t, response.Fields, models.FieldEventTitle)
	require.Equal(t, 96.0, response.Fields[models.FieldQRCode].SizeOrDefault())

	invalid := [][]byte{
		[]byte(`{"fields":{"signature":{"x":1,"y":1}}}`),
		[]byte(`{"fields":{"participant_name":{"x":101,"y":1}}}`),
		[]byte(`{"fields":{"participant_name":{"x":1}}}`),
		[]byte(`{"layout":{}}`),
		[]byte(`not json`),
	}
	for _, doc := range invalid {
		_, err := svc.SaveMapping(ctx, f.event.ID, doc, f.organizer)
		require.ErrorIs(t, err, ErrInvalidMapping, string(doc))
	}

	stored, err := f.templates.GetByEvent(ctx, f.event.ID)
	require.NoError(t, err)
	require.Len(t, stored.FieldMapping().Fields, 2)
}

func TestTemplateServiceRequiresTemplate(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)

	_, err := svc.PlaceField(context.Background(), f.event.ID, "qr_code", dto.PlaceFieldRequest{X: float(1), Y: float(1)}, f.organizer)
	require.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = svc.Get(context.Background(), f.event.ID, f.organizer)
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestTemplateServiceLockedAfterRendering(t *testing.T) {
	f := newCertificateFixture(t)
	svc := f.templateService(t)
	f.storeImageTemplate(t, 10, 10, models.NewFieldMapping())
	ctx := context.Background()

	issuedAt := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	certificate := f.insertCertificate(t, f.participant.ID, "SIGEA-E1XX-26", "K7Q2M9XZ", issuedAt)

	_, err := svc.PlaceField(ctx, f.event.ID, "qr_code", dto.PlaceFieldRequest{X: float(90), Y: float(90)}, f.organizer)
	require.NoError(t, err)

	require.NoError(t, f.certificates.AttachArtifact(ctx, certificate.ID, artifactKey(certificate), issuedAt))

	_, err = svc.PlaceField(ctx, f.event.ID, "qr_code", dto.PlaceFieldRequest{X: float(10), Y: float(10)}, f.organizer)
	require.ErrorIs(t, err, ErrTemplateLocked)

	upload := multipartFile(t, "modelo.png", "image/png", pngBytes(t, 20, 20))
	_, err = svc.Upload(ctx, f.event.ID, upload, f.organizer)
	require.ErrorIs(t, err, ErrTemplateLocked)

	response, err := svc.Get(ctx, f.event.ID, f.organizer)
	require.NoError(t, err)
	require.True(t, response.Locked)
	require.Equal(t, 90.0, response.Fields[models.FieldQRCode].X)
}
