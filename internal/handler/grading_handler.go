package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// GradingHandler serves the single submission grading view.
type GradingHandler struct {
	service   service.SubmissionGradeService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradingHandler constructs the grading handler.
func NewGradingHandler(service service.SubmissionGradeService, validator *validator.Validate, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the grading routes. suggestionGuards run in front of the
// suggestion endpoint only.
func (h *GradingHandler) Register(router fiber.Router, suggestionGuards ...fiber.Handler) {
	router.Get("/submissions/:id", h.show)
	suggestion := append(append([]fiber.Handler{}, suggestionGuards...), h.suggest)
	router.Post("/submissions/:id/suggestion", suggestion...)
	router.Put("/submissions/:id/grade", h.save)
	router.Post("/activities/:id/students/:studentId/publish", h.publish)
}

func (h *GradingHandler) show(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var query dto.SubmissionContextQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := h.validator.Struct(query); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	sc, err := h.service.LoadSubmissionContext(requestContext(c), submissionID, query.ActivityID, query.StudentID, actorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", dto.SubmissionDetailResponse{
		Course:          dto.NewCourseRef(sc.Course),
		Activity:        dto.NewActivityRef(sc.Activity),
		Student:         dto.NewStudentRef(sc.Student),
		Submission:      dto.NewSubmissionResponse(sc.Submission),
		GithubURL:       sc.GithubURL,
		GradingState:    sc.GradingState,
		CurrentGrade:    sc.CurrentGrade(),
		CurrentFeedback: sc.CurrentFeedback,
		History:         dto.NewAuditEntryResponses(sc.History),
	})
}

func (h *GradingHandler) suggest(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SuggestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	ctx := requestContext(c)
	sc, err := h.service.LoadSubmissionContext(ctx, submissionID, payload.ActivityID, payload.StudentID, actorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	suggestion, err := h.service.RequestSuggestion(ctx, sc)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grade suggestion ready", dto.SuggestionResponse{
		Path:              suggestion.Path,
		SuggestedGrade:    suggestion.SuggestedGrade,
		SuggestedFeedback: suggestion.SuggestedFeedback,
		Evaluation:        suggestion.Result,
	})
}

func (h *GradingHandler) save(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SaveGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	actor := actorFromContext(c)
	record, err := h.service.SaveGrade(requestContext(c), service.SaveGradeInput{
		ActivityID:   payload.ActivityID,
		StudentID:    payload.StudentID,
		SubmissionID: submissionID,
		Grade:        *payload.Grade,
		Feedback:     payload.Feedback,
	}, actor)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("submission_id", submissionID).
		Uint("grader_id", actor.ID).
		Float64("grade", record.Grade).
		Msg("grade saved")

	return utils.SendSuccess(c, "grade saved", dto.NewGradeRecordResponse(record))
}

func (h *GradingHandler) publish(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PublishGradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return writeServiceError(c, h.logger, err)
	}

	published, err := h.service.PublishGrade(requestContext(c), service.PublishGradeInput{
		ActivityID: activityID,
		StudentID:  studentID,
		Grade:      *payload.Grade,
		Feedback:   payload.Feedback,
	}, actorFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grade published", dto.PublishedGradeResponse{
		Grade:     dto.NewGradeRecordResponse(published.Record),
		Gradebook: dto.NewGradebookEntryResponse(published.Entry),
	})
}
