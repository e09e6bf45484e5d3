package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/middleware"
	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/utils"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func userIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case string:
			return strings.TrimSpace(id)
		case uint:
			return strconv.FormatUint(uint64(id), 10)
		case int:
			if id < 0 {
				return ""
			}
			return strconv.Itoa(id)
		case fmt.Stringer:
			return strings.TrimSpace(id.String())
		}
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func eventActorFromContext(c *fiber.Ctx) service.EventActor {
	return service.EventActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []fieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]fieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return details
}

// writeServiceError maps certificate domain errors onto HTTP responses.
func writeServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var tooEarly *service.TooEarlyError
	switch {
	case errors.As(err, &tooEarly):
		return utils.SendErrorWithData(c, fiber.StatusTooEarly, "certificate not yet available", fiber.Map{
			"remaining_minutes": tooEarly.RemainingMinutes(),
		})
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusUnprocessableEntity, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrValidationNotFound),
		errors.Is(err, service.ErrCertificateNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrRegistrationNotFound),
		errors.Is(err, service.ErrParticipantNotFound):
		return utils.SendError(c, fiber.StatusNotFound, rootMessage(err))
	case errors.Is(err, service.ErrNotRegistered), errors.Is(err, service.ErrNotEventOrganizer):
		return utils.SendError(c, fiber.StatusForbidden, rootMessage(err))
	case errors.Is(err, service.ErrCertificateAlreadyIssued),
		errors.Is(err, service.ErrAlreadyRegistered),
		errors.Is(err, service.ErrTemplateLocked),
		errors.Is(err, service.ErrEventLocked),
		errors.Is(err, service.ErrEventNotOpen):
		return utils.SendError(c, fiber.StatusConflict, rootMessage(err))
	case errors.Is(err, service.ErrTemplateTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, rootMessage(err))
	case errors.Is(err, service.ErrInvalidMapping), errors.Is(err, service.ErrTemplateTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		logger.Error().Err(err).Msg("certificate code allocation exhausted")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "unable to issue certificate right now")
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

// rootMessage keeps internal context out of client-facing messages.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
