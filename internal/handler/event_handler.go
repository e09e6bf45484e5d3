package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/dto"
	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

// EventHandler exposes organizer event settings that feed certificates.
type EventHandler struct {
	service service.EventService
	logger  zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(service service.EventService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the workload route to a group mounted at /events/:eventID/workload.
func (h *EventHandler) Register(router fiber.Router) {
	router.Patch("", h.updateWorkload)
}

func (h *EventHandler) updateWorkload(c *fiber.Ctx) error {
	var payload dto.EventWorkloadRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	event, err := h.service.UpdateWorkload(c.UserContext(), c.Params("eventID"), payload, eventActorFromContext(c))
	if err != nil {
		return writeServiceError(c, *requestLogger(h.logger, c), err, "failed to update workload")
	}

	return utils.SendSuccess(c, "workload updated", event)
}
