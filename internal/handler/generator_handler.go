package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

// DocumentsField is the multipart field carrying reference documents.
const DocumentsField = "documents"

// GeneratorHandler drafts projects and turns them into activities.
type GeneratorHandler struct {
	service service.ProjectGeneratorService
	logger  zerolog.Logger
}

// NewGeneratorHandler constructs the generator handler.
func NewGeneratorHandler(service service.ProjectGeneratorService, logger zerolog.Logger) *GeneratorHandler {
	return &GeneratorHandler{
		service: service,
		logger:  logger.With().Str("component", "generator_handler").Logger(),
	}
}

// Register attaches the generator routes.
func (h *GeneratorHandler) Register(router fiber.Router) {
	router.Post("/projects", h.generate)
	router.Post("/activities", h.createActivity)
}

func (h *GeneratorHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateProjectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form body")
	}

	documents, err := readDocuments(c)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	response, err := h.service.Generate(requestContext(c), actorFromContext(c), payload, documents)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "project generated", response)
}

func (h *GeneratorHandler) createActivity(c *fiber.Ctx) error {
	var payload dto.CreateActivityRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	activity, err := h.service.CreateActivity(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "activity created", activity)
}

// readDocuments loads the uploaded reference documents. Requests without a
// multipart body carry no documents.
func readDocuments(c *fiber.Ctx) ([]service.UploadedDocument, error) {
	if !strings.HasPrefix(strings.ToLower(string(c.Request().Header.ContentType())), fiber.MIMEMultipartForm) {
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable multipart body", service.ErrValidation)
	}

	headers := form.File[DocumentsField]
	if len(headers) > service.MaxReferenceDocuments {
		return nil, service.ErrTooManyDocuments
	}

	documents := make([]service.UploadedDocument, 0, len(headers))
	for _, header := range headers {
		data, err := readFormFile(header)
		if err != nil {
			return nil, err
		}
		documents = append(documents, service.UploadedDocument{FileName: header.Filename, Data: data})
	}
	return documents, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return data, nil
}
