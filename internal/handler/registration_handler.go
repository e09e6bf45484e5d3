package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// RegistrationHandler lets participants join and leave events.
type RegistrationHandler struct {
	service service.RegistrationService
	logger  zerolog.Logger
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(service service.RegistrationService, logger zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		logger:  logger.With().Str("component", "registration_handler").Logger(),
	}
}

// Register attaches registration routes below /events.
func (h *RegistrationHandler) Register(router fiber.Router) {
	router.Post("/:eventID/registration", h.register)
	router.Delete("/:eventID/registration", h.cancel)
}

func (h *RegistrationHandler) register(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	registration, err := h.service.Register(c.UserContext(), c.Params("eventID"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to register")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration confirmed", registration)
}

func (h *RegistrationHandler) cancel(c *fiber.Ctx) error {
	participantID := userIDFromContext(c)
	if participantID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	registration, err := h.service.Cancel(c.UserContext(), c.Params("eventID"), participantID)
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to cancel registration")
	}

	return utils.SendSuccess(c, "registration cancelled", registration)
}
