package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ai-project-hub/internal/middleware"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	return userIDFromLocal(c.Locals("user_id"))
}

func userIDFromLocal(v interface{}) uint {
	switch id := v.(type) {
	case uint:
		return id
	case int:
		if id < 0 {
			return 0
		}
		return uint(id)
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

// requestContext carries the correlation id of the request into service calls.
func requestContext(c *fiber.Ctx) context.Context {
	return middleware.ContextWithCorrelation(c.UserContext(), middleware.GetCorrelationID(c))
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

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

// writeServiceError maps service failures onto the response envelope.
func writeServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var (
		evalErr    *evaluator.Error
		partialErr *service.PartialWriteError
	)

	switch {
	case errors.Is(err, service.ErrNotFound):
		return utils.Fail(c, fiber.StatusNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrPermissionDenied):
		return utils.Fail(c, fiber.StatusForbidden, err.Error(), nil)
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrValidation):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		return utils.Fail(c, fiber.StatusConflict, err.Error(), nil)
	case errors.As(err, &evalErr):
		status := fiber.StatusBadGateway
		if evalErr.Kind == evaluator.KindTimeout {
			status = fiber.StatusGatewayTimeout
		}
		requestLogger(logger, c).Warn().Err(err).Str("kind", string(evalErr.Kind)).Msg("evaluation backend failed")
		return utils.Fail(c, status, "evaluation failed: "+string(evalErr.Kind), nil)
	case errors.Is(err, service.ErrSubmissionFileUnavailable):
		requestLogger(logger, c).Warn().Err(err).Msg("submission file unavailable")
		return utils.Fail(c, fiber.StatusBadGateway, err.Error(), nil)
	case errors.As(err, &partialErr):
		requestLogger(logger, c).Error().Err(err).Str("failed_store", partialErr.Failed).Msg("partial grading write")
		return utils.Fail(c, fiber.StatusInternalServerError, partialErr.Error(), map[string]string{
			"succeeded": partialErr.Succeeded,
			"failed":    partialErr.Failed,
		})
	case errors.Is(err, context.Canceled):
		return utils.Fail(c, fiber.StatusRequestTimeout, "request canceled", nil)
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
	}
}
