package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// ValidationHandler serves the public certificate authenticity check.
type ValidationHandler struct {
	service service.ValidationService
	logger  zerolog.Logger
}

// NewValidationHandler constructs the handler.
func NewValidationHandler(service service.ValidationService, logger zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{
		service: service,
		logger:  logger.With().Str("component", "validation_handler").Logger(),
	}
}

// Register attaches the public validation route.
func (h *ValidationHandler) Register(router fiber.Router) {
	router.Get("/validate", h.validate)
}

func (h *ValidationHandler) validate(c *fiber.Ctx) error {
	result, err := h.service.Validate(c.UserContext(), c.Query("code"))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to validate certificate")
	}

	return utils.SendSuccess(c, "certificate is valid", result)
}
