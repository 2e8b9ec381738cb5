package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/observability"
	"github.com/noah-isme/ai-project-hub/internal/repository"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

const (
	// MaxReferenceDocuments caps the files attached to a generation request.
	MaxReferenceDocuments  = 5
	defaultMaxDocumentSize = 10 << 20
)

// ProjectDrafter drafts project descriptions on the AI backend.
type ProjectDrafter interface {
	GenerateProject(ctx context.Context, req evaluator.ProjectRequest) (string, error)
}

// UploadedDocument is a reference file received with a generation request.
type UploadedDocument struct {
	FileName string
	Data     []byte
}

// ProjectGeneratorService drafts projects and turns them into course activities.
type ProjectGeneratorService interface {
	Generate(ctx context.Context, actor Actor, req dto.GenerateProjectRequest, documents []UploadedDocument) (dto.GenerateProjectResponse, error)
	CreateActivity(ctx context.Context, actor Actor, req dto.CreateActivityRequest) (dto.ActivityResponse, error)
}

type projectGeneratorService struct {
	courses     repository.CourseRepository
	activities  repository.ActivityRepository
	drafter     ProjectDrafter
	audit       AuditRecorder
	cache       *dashboardCache
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	maxDocBytes int64
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// GeneratorDependencies bundles the collaborators of the project generator.
type GeneratorDependencies struct {
	Courses          repository.CourseRepository
	Activities       repository.ActivityRepository
	Drafter          ProjectDrafter
	Audit            AuditRecorder
	Redis            *redis.Client
	Validator        *validator.Validate
	MaxDocumentBytes int64
	Logger           zerolog.Logger
}

// NewProjectGeneratorService constructs the project generator.
func NewProjectGeneratorService(deps GeneratorDependencies) ProjectGeneratorService {
	maxBytes := deps.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDocumentSize
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &projectGeneratorService{
		courses:     deps.Courses,
		activities:  deps.Activities,
		drafter:     deps.Drafter,
		audit:       deps.Audit,
		cache:       newDashboardCache(deps.Redis, 0, deps.Logger),
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		maxDocBytes: maxBytes,
		tracer:      otel.Tracer("github.com/noah-isme/ai-project-hub/internal/service/generator"),
		logger:      deps.Logger.With().Str("component", "project_generator_service").Logger(),
	}
}

func (s *projectGeneratorService) Generate(ctx context.Context, actor Actor, req dto.GenerateProjectRequest, documents []UploadedDocument) (dto.GenerateProjectResponse, error) {
	ctx, span := s.tracer.Start(ctx, "generator.generate", trace.WithAttributes(
		attribute.Int64("generator.course_id", int64(req.CourseID)),
		attribute.String("generator.complexity", req.Complexity),
		attribute.Int("generator.documents", len(documents)),
	))
	defer span.End()

	req.Topics = strings.TrimSpace(req.Topics)
	if err := s.validator.Struct(req); err != nil {
		recordSpanError(span, err)
		return dto.GenerateProjectResponse{}, err
	}
	if len(documents) > MaxReferenceDocuments {
		recordSpanError(span, ErrTooManyDocuments)
		return dto.GenerateProjectResponse{}, ErrTooManyDocuments
	}

	if err := s.authorizeCourse(ctx, actor, req.CourseID); err != nil {
		recordSpanError(span, err)
		return dto.GenerateProjectResponse{}, err
	}

	payload := make([]evaluator.Document, 0, len(documents))
	names := make([]string, 0, len(documents))
	for _, doc := range documents {
		if int64(len(doc.Data)) > s.maxDocBytes {
			err := fmt.Errorf("%w: %s", ErrDocumentTooLarge, doc.FileName)
			recordSpanError(span, err)
			return dto.GenerateProjectResponse{}, err
		}
		if len(doc.Data) == 0 {
			continue
		}

		classified, err := classifyDocument(doc)
		if err != nil {
			recordSpanError(span, err)
			return dto.GenerateProjectResponse{}, err
		}
		payload = append(payload, classified)
		names = append(names, classified.FileName)
	}

	description, err := s.drafter.GenerateProject(ctx, evaluator.ProjectRequest{
		Topics:     req.Topics,
		Complexity: req.Complexity,
		Documents:  payload,
	})
	if err != nil {
		observability.ProjectsGenerated().WithLabelValues("error").Inc()
		recordSpanError(span, err)
		s.logger.Warn().Err(err).Uint("course_id", req.CourseID).Msg("project generation failed")
		return dto.GenerateProjectResponse{}, err
	}
	observability.ProjectsGenerated().WithLabelValues("success").Inc()

	courseID := req.CourseID
	s.recordAudit(ctx, AuditEntry{
		Actor:      actor,
		Action:     "project.generated",
		EntityType: "course",
		EntityID:   &courseID,
		Metadata: map[string]interface{}{
			"complexity": req.Complexity,
			"documents":  len(payload),
		},
	})

	return dto.GenerateProjectResponse{
		CourseID:           req.CourseID,
		Topics:             req.Topics,
		Complexity:         req.Complexity,
		Documents:          names,
		ProjectDescription: description,
	}, nil
}

func (s *projectGeneratorService) CreateActivity(ctx context.Context, actor Actor, req dto.CreateActivityRequest) (dto.ActivityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "generator.create_activity", trace.WithAttributes(
		attribute.Int64("generator.course_id", int64(req.CourseID)),
	))
	defer span.End()

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		recordSpanError(span, err)
		return dto.ActivityResponse{}, err
	}

	if err := s.authorizeCourse(ctx, actor, req.CourseID); err != nil {
		recordSpanError(span, err)
		return dto.ActivityResponse{}, err
	}

	exists, err := s.activities.ExistsByName(ctx, req.CourseID, req.Title)
	if err != nil {
		recordSpanError(span, err)
		return dto.ActivityResponse{}, err
	}
	if exists {
		recordSpanError(span, ErrActivityNameTaken)
		return dto.ActivityResponse{}, ErrActivityNameTaken
	}

	activity := models.Activity{
		CourseID: req.CourseID,
		Section:  req.Section,
		Name:     req.Title,
		Intro:    s.sanitizer.Sanitize(descriptionHTML(req.Description)),
		DueDate:  normalizeDueDate(req.DueDate),
		MaxGrade: models.DefaultMaxGrade,
		Visible:  true,
	}

	if err := s.activities.Create(ctx, &activity); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = ErrActivityNameTaken
		}
		recordSpanError(span, err)
		return dto.ActivityResponse{}, err
	}

	s.cache.invalidateCourse(ctx, activity.CourseID)

	activityID := activity.ID
	s.recordAudit(ctx, AuditEntry{
		Actor:      actor,
		Action:     "activity.created",
		EntityType: "activity",
		EntityID:   &activityID,
		Metadata: map[string]interface{}{
			"course_id": activity.CourseID,
			"name":      activity.Name,
		},
	})

	s.logger.Info().Uint("activity_id", activity.ID).Uint("course_id", activity.CourseID).Msg("activity created from generated project")

	return dto.NewActivityResponse(activity), nil
}

func (s *projectGeneratorService) authorizeCourse(ctx context.Context, actor Actor, courseID uint) error {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		return err
	}
	return authorizeGrading(ctx, s.courses, actor, courseID)
}

func (s *projectGeneratorService) recordAudit(ctx context.Context, entry AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record generator audit entry")
	}
}

// classifyDocument sniffs the content and encodes it the way the backend expects:
// plain text as-is, pdf and word documents as base64.
func classifyDocument(doc UploadedDocument) (evaluator.Document, error) {
	name := filepath.Base(strings.TrimSpace(doc.FileName))
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	detected := mimetype.Detect(doc.Data)

	var docType string
	switch {
	case detected.Is("application/pdf"):
		docType = "pdf"
	case detected.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		docType = "docx"
	case detected.Is("application/msword"):
		docType = "doc"
	case detected.Is("text/plain"):
		return evaluator.Document{FileName: name, Content: string(doc.Data), Type: "txt"}, nil
	case ext == "docx" && detected.Is("application/zip"):
		docType = "docx"
	case ext == "doc" && (detected.Is("application/x-ole-storage") || detected.Is("application/octet-stream")):
		docType = "doc"
	default:
		return evaluator.Document{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedDocument, name, detected.String())
	}

	return evaluator.Document{
		FileName: name,
		Content:  base64.StdEncoding.EncodeToString(doc.Data),
		Type:     docType,
	}, nil
}

// descriptionHTML wraps plain text paragraphs in markup. Input that already
// contains markup is returned unchanged for the sanitizer.
func descriptionHTML(description string) string {
	if strings.Contains(description, "<") && strings.Contains(description, ">") {
		return description
	}

	normalized := strings.ReplaceAll(description, "\r\n", "\n")
	paragraphs := strings.Split(normalized, "\n\n")
	var b strings.Builder
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		lines := strings.Split(paragraph, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

func normalizeDueDate(due *time.Time) *time.Time {
	if due == nil || due.IsZero() {
		return nil
	}
	utc := due.UTC()
	return &utc
}
