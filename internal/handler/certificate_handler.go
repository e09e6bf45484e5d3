package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// CertificateHandler exposes certificate issuance and retrieval to participants.
type CertificateHandler struct {
	certificates service.CertificateService
	renderer     service.RenderService
	logger       zerolog.Logger
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(certificates service.CertificateService, renderer service.RenderService, logger zerolog.Logger) *CertificateHandler {
	return &CertificateHandler{
		certificates: certificates,
		renderer:     renderer,
		logger:       logger.With().Str("component", "certificate_handler").Logger(),
	}
}

// RegisterEventRoutes attaches the per-event certificate endpoints.
func (h *CertificateHandler) RegisterEventRoutes(router fiber.Router) {
	router.Post("/:eventID/certificate", h.issue)
	router.Get("/:eventID/eligibility", h.eligibility)
}

// Register attaches the caller's certificate endpoints.
func (h *CertificateHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/render", h.render)
	router.Get("/:id/download", h.download)
}

func (h *CertificateHandler) issue(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	certificate, err := h.certificates.Issue(c.UserContext(), c.Params("eventID"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to issue certificate")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "certificate issued", certificate)
}

func (h *CertificateHandler) eligibility(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.certificates.Eligibility(c.UserContext(), c.Params("eventID"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to check eligibility")
	}

	return utils.SendSuccess(c, "eligibility evaluated", result)
}

func (h *CertificateHandler) list(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	certificates, err := h.certificates.ListMine(c.UserContext(), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to list certificates")
	}

	return utils.OK(c, certificates, "certificates retrieved", fiber.Map{"total": len(certificates)})
}

func (h *CertificateHandler) render(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.renderer.RenderOwned(c.UserContext(), c.Params("id"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to render certificate")
	}

	return utils.SendSuccess(c, "certificate rendered", result)
}

func (h *CertificateHandler) download(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	file, err := h.renderer.Download(c.UserContext(), c.Params("id"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to download certificate")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Status(fiber.StatusOK).Send(file.Content)
}
