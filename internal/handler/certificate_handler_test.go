package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/handler"
	"github.com/noah-isme/sigea-go-api/internal/service"
)

type mockCertificateService struct {
	lastEventID       string
	lastParticipantID string
	issued            dto.CertificateResponse
	eligibility       dto.EligibilityResponse
	mine              []dto.CertificateResponse
	err               error
}

func (m *mockCertificateService) Issue(_ context.Context, eventID, participantID string) (dto.CertificateResponse, error) {
	m.lastEventID, m.lastParticipantID = eventID, participantID
	return m.issued, m.err
}

func (m *mockCertificateService) Eligibility(_ context.Context, eventID, participantID string) (dto.EligibilityResponse, error) {
	m.lastEventID, m.lastParticipantID = eventID, participantID
	return m.eligibility, m.err
}

func (m *mockCertificateService) ListMine(_ context.Context, participantID string) ([]dto.CertificateResponse, error) {
	m.lastParticipantID = participantID
	return m.mine, m.err
}

type mockRenderService struct {
	lastCertificateID string
	lastParticipantID string
	rendered          dto.RenderResponse
	download          dto.CertificateDownload
	err               error
}

func (m *mockRenderService) Render(_ context.Context, certificateID string) (dto.RenderResponse, error) {
	m.lastCertificateID = certificateID
	return m.rendered, m.err
}

func (m *mockRenderService) RenderOwned(_ context.Context, certificateID, participantID string) (dto.RenderResponse, error) {
	m.lastCertificateID, m.lastParticipantID = certificateID, participantID
	return m.rendered, m.err
}

func (m *mockRenderService) Download(_ context.Context, certificateID, participantID string) (dto.CertificateDownload, error) {
	m.lastCertificateID, m.lastParticipantID = certificateID, participantID
	return m.download, m.err
}

func (m *mockRenderService) RenderPending(context.Context, int) (int, error) {
	return 0, m.err
}

func newCertificateApp(certificates service.CertificateService, renderer service.RenderService, userID string) *fiber.App {
	app := fiber.New()
	h := handler.NewCertificateHandler(certificates, renderer, zerolog.New(io.Discard))
	h.RegisterEventRoutes(app.Group("/api/v2/events", asPrincipal(userID, "participant")))
	h.Register(app.Group("/api/v2/certificates", asPrincipal(userID, "participant")))
	return app
}

func TestCertificateHandler_IssueSuccess(t *testing.T) {
	svc := &mockCertificateService{issued: dto.CertificateResponse{ID: "c1", Code: "SIGEA-E1XX-26", ValidationCode: "AB12CD34"}}
	app := newCertificateApp(svc, &mockRenderService{}, "p1")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/events/e1/certificate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                    `json:"success"`
		Data    dto.CertificateResponse `json:"data"`
		Message string                  `json:"message"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "certificate issued", response.Message)
	require.Equal(t, "SIGEA-E1XX-26", response.Data.Code)
	require.Equal(t, "e1", svc.lastEventID)
	require.Equal(t, "p1", svc.lastParticipantID)
}

func TestCertificateHandler_IssueTooEarly(t *testing.T) {
	tooEarly := &service.TooEarlyError{RegisteredAt: time.Now(), Remaining: 4*time.Minute + time.Second}
	svc := &mockCertificateService{err: fmt.Errorf("eligibility: %w", tooEarly)}
	app := newCertificateApp(svc, &mockRenderService{}, "p1")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/events/e1/certificate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooEarly, resp.StatusCode)

	payload := decodeEnvelope(t, resp)
	require.False(t, payload.Success)

	var data map[string]int
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	require.Equal(t, 5, data["remaining_minutes"])
}

func TestCertificateHandler_IssueErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not registered", service.ErrNotRegistered, fiber.StatusForbidden},
		{"already issued", service.ErrCertificateAlreadyIssued, fiber.StatusConflict},
		{"event missing", fmt.Errorf("load event: %w", service.ErrEventNotFound), fiber.StatusNotFound},
		{"code space", service.ErrCodeSpaceExhausted, fiber.StatusServiceUnavailable},
		{"unexpected", errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newCertificateApp(&mockCertificateService{err: tc.err}, &mockRenderService{}, "p1")

			req := httptest.NewRequest(http.MethodPost, "/api/v2/events/e1/certificate", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			payload := decodeEnvelope(t, resp)
			require.False(t, payload.Success)
			require.NotContains(t, payload.Message, "connection reset")
		})
	}
}

func TestCertificateHandler_RequiresPrincipal(t *testing.T) {
	svc := &mockCertificateService{}
	app := newCertificateApp(svc, &mockRenderService{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/events/e1/certificate", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, svc.lastEventID)
}

func TestCertificateHandler_Eligibility(t *testing.T) {
	svc := &mockCertificateService{eligibility: dto.EligibilityResponse{EventID: "e1", Eligible: false, Reason: "too_early", RemainingMinutes: 3}}
	app := newCertificateApp(svc, &mockRenderService{}, "p1")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/events/e1/eligibility", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.EligibilityResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Data.Eligible)
	require.Equal(t, 3, response.Data.RemainingMinutes)
}

func TestCertificateHandler_ListMine(t *testing.T) {
	svc := &mockCertificateService{mine: []dto.CertificateResponse{{ID: "c1"}, {ID: "c2"}}}
	app := newCertificateApp(svc, &mockRenderService{}, "p1")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/certificates", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.CertificateResponse `json:"data"`
		Meta map[string]int            `json:"meta"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 2)
	require.Equal(t, 2, response.Meta["total"])
	require.Equal(t, "p1", svc.lastParticipantID)
}

func TestCertificateHandler_Render(t *testing.T) {
	renderer := &mockRenderService{rendered: dto.RenderResponse{CertificateID: "c1", ArtifactPath: "issued/e1/p1/SIGEA-E1XX-26.pdf"}}
	app := newCertificateApp(&mockCertificateService{}, renderer, "p1")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/certificates/c1/render", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "c1", renderer.lastCertificateID)
	require.Equal(t, "p1", renderer.lastParticipantID)
}

func TestCertificateHandler_RenderTemplateMissing(t *testing.T) {
	renderer := &mockRenderService{err: service.ErrTemplateNotFound}
	app := newCertificateApp(&mockCertificateService{}, renderer, "p1")

	req := httptest.NewRequest(http.MethodPost, "/api/v2/certificates/c1/render", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCertificateHandler_Download(t *testing.T) {
	renderer := &mockRenderService{download: dto.CertificateDownload{FileName: "SIGEA-E1XX-26.pdf", Content: []byte("%PDF-1.3 test")}}
	app := newCertificateApp(&mockCertificateService{}, renderer, "p1")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/certificates/c1/download", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Equal(t, `attachment; filename="SIGEA-E1XX-26.pdf"`, resp.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.3 test", string(body))
}

func TestCertificateHandler_DownloadForeignCertificate(t *testing.T) {
	renderer := &mockRenderService{err: service.ErrCertificateNotFound}
	app := newCertificateApp(&mockCertificateService{}, renderer, "p2")

	req := httptest.NewRequest(http.MethodGet, "/api/v2/certificates/c1/download", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
