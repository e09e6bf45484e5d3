package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// TemplateHandler lets organizers upload certificate templates and place fields on them.
type TemplateHandler struct {
	service service.TemplateService
	logger  zerolog.Logger
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service service.TemplateService, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		logger:  logger.With().Str("component", "template_handler").Logger(),
	}
}

// Register attaches template routes to a group mounted at /events/:eventID/template.
func (h *TemplateHandler) Register(router fiber.Router) {
	router.Put("", h.upload)
	router.Get("", h.get)
	router.Put("/mapping", h.saveMapping)
	router.Put("/mapping/fields/:field", h.placeField)
	router.Delete("/mapping/fields/:field", h.removeField)
}

func (h *TemplateHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	template, err := h.service.Upload(c.UserContext(), c.Params("eventID"), file, eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to upload template")
	}

	return utils.SendSuccess(c, "template uploaded", template)
}

func (h *TemplateHandler) get(c *fiber.Ctx) error {
	template, err := h.service.Get(c.UserContext(), c.Params("eventID"), eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to load template")
	}

	return utils.SendSuccess(c, "template retrieved", template)
}

func (h *TemplateHandler) saveMapping(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "mapping document is required")
	}

	template, err := h.service.SaveMapping(c.UserContext(), c.Params("eventID"), body, eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to save mapping")
	}

	return utils.SendSuccess(c, "mapping saved", template)
}

func (h *TemplateHandler) placeField(c *fiber.Ctx) error {
	var payload dto.PlaceFieldRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	template, err := h.service.PlaceField(c.UserContext(), c.Params("eventID"), c.Params("field"), payload, eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to place field")
	}

	return utils.SendSuccess(c, "field placed", template)
}

func (h *TemplateHandler) removeField(c *fiber.Ctx) error {
	template, err := h.service.RemoveField(c.UserContext(), c.Params("eventID"), c.Params("field"), eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to remove field")
	}

	return utils.SendSuccess(c, "field removed", template)
}
