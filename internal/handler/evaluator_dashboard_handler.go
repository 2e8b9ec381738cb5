package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// EvaluatorDashboardHandler serves the course and submission listings of the evaluator.
type EvaluatorDashboardHandler struct {
	service   service.EvaluatorDashboardService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluatorDashboardHandler constructs the handler.
func NewEvaluatorDashboardHandler(service service.EvaluatorDashboardService, validator *validator.Validate, logger zerolog.Logger) *EvaluatorDashboardHandler {
	return &EvaluatorDashboardHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "evaluator_dashboard_handler").Logger(),
	}
}

// Register attaches the dashboard routes.
func (h *EvaluatorDashboardHandler) Register(router fiber.Router) {
	router.Get("/courses", h.overview)
	router.Get("/courses/:id/activities", h.courseActivities)
	router.Get("/activities/:id/submissions", h.activitySubmissions)
}

func (h *EvaluatorDashboardHandler) overview(c *fiber.Ctx) error {
	response, err := h.service.Overview(requestContext(c), actorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "courses retrieved", response)
}

func (h *EvaluatorDashboardHandler) courseActivities(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.CourseActivities(requestContext(c), actorFromContext(c), courseID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "activities retrieved", response)
}

func (h *EvaluatorDashboardHandler) activitySubmissions(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter := dto.SubmissionListFilter{Status: strings.ToLower(strings.TrimSpace(c.Query("status")))}
	if err := h.validator.Struct(filter); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	response, err := h.service.ActivitySubmissions(requestContext(c), actorFromContext(c), activityID, filter)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", response)
}
