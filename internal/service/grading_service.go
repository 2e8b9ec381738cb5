package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/observability"
	"github.com/noah-isme/ai-project-hub/internal/repository"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

// Grading states reported for an (activity, student) pair.
const (
	GradingStateUngraded  = "ungraded"
	GradingStateDrafted   = models.GradeStatusDrafted
	GradingStatePublished = models.GradeStatusPublished
)

const historyLimit = 10

var markupPattern = regexp.MustCompile(`</?[a-zA-Z][^<>]*>`)

// ProjectEvaluator evaluates file and repository based submissions.
type ProjectEvaluator interface {
	EvaluateProjectArchive(ctx context.Context, archive []byte, criteria string) (evaluator.Result, error)
	EvaluateGithubRepo(ctx context.Context, req evaluator.GithubRepoRequest) (evaluator.Result, error)
}

// SubmissionContext is everything a grader needs to look at one submission.
type SubmissionContext struct {
	Course          models.Course
	Activity        models.Activity
	Student         models.Student
	Submission      models.Submission
	GradeRecord     *models.GradeRecord
	GradingState    string
	CurrentFeedback string
	GithubURL       string
	History         []models.ActivityLog
}

// CurrentGrade returns the stored grade, if any.
func (c SubmissionContext) CurrentGrade() *float64 {
	if c.GradeRecord == nil {
		return nil
	}
	grade := c.GradeRecord.Grade
	return &grade
}

// Suggestion is an evaluator result translated into a proposed grade. It is never stored.
type Suggestion struct {
	Path              string
	Result            evaluator.Result
	SuggestedGrade    float64
	SuggestedFeedback string
}

// SaveGradeInput identifies the draft grade to store.
type SaveGradeInput struct {
	ActivityID   uint
	StudentID    uint
	SubmissionID uint
	Grade        float64
	Feedback     string
}

// PublishGradeInput identifies the grade to publish to the gradebook.
type PublishGradeInput struct {
	ActivityID uint
	StudentID  uint
	Grade      float64
	Feedback   string
}

// PublishedGrade reports the stored record and the gradebook entry it produced.
type PublishedGrade struct {
	SubmissionID uint
	Record       models.GradeRecord
	Entry        models.GradebookEntry
}

// SubmissionGradeService runs the read, evaluate and persist cycle for a submission.
type SubmissionGradeService interface {
	LoadSubmissionContext(ctx context.Context, submissionID, activityID, studentID uint, actor Actor) (SubmissionContext, error)
	RequestSuggestion(ctx context.Context, sc SubmissionContext) (Suggestion, error)
	SaveGrade(ctx context.Context, input SaveGradeInput, actor Actor) (models.GradeRecord, error)
	PublishGrade(ctx context.Context, input PublishGradeInput, actor Actor) (PublishedGrade, error)
}

// GradingDependencies bundles the collaborators of the grading service.
type GradingDependencies struct {
	Courses       repository.CourseRepository
	Activities    repository.ActivityRepository
	Submissions   repository.SubmissionRepository
	Students      repository.StudentRepository
	Grades        repository.GradeRepository
	Evaluator     ProjectEvaluator
	TextEvaluator evaluator.TextEvaluator
	Files         FileSource
	Gradebook     GradebookPublisher
	Audit         AuditRecorder
	Logger        zerolog.Logger
}

type submissionGradeService struct {
	courses       repository.CourseRepository
	activities    repository.ActivityRepository
	submissions   repository.SubmissionRepository
	students      repository.StudentRepository
	grades        repository.GradeRepository
	evaluator     ProjectEvaluator
	textEvaluator evaluator.TextEvaluator
	files         FileSource
	gradebook     GradebookPublisher
	audit         AuditRecorder
	sanitizer     *bluemonday.Policy
	tracer        trace.Tracer
	logger        zerolog.Logger
	now           func() time.Time
}

// NewSubmissionGradeService constructs the grading service.
func NewSubmissionGradeService(deps GradingDependencies) SubmissionGradeService {
	return &submissionGradeService{
		courses:       deps.Courses,
		activities:    deps.Activities,
		submissions:   deps.Submissions,
		students:      deps.Students,
		grades:        deps.Grades,
		evaluator:     deps.Evaluator,
		textEvaluator: deps.TextEvaluator,
		files:         deps.Files,
		gradebook:     deps.Gradebook,
		audit:         deps.Audit,
		sanitizer:     bluemonday.UGCPolicy(),
		tracer:        otel.Tracer("github.com/noah-isme/ai-project-hub/internal/service/grading"),
		logger:        deps.Logger.With().Str("component", "submission_grade_service").Logger(),
		now:           time.Now,
	}
}

func (s *submissionGradeService) LoadSubmissionContext(ctx context.Context, submissionID, activityID, studentID uint, actor Actor) (SubmissionContext, error) {
	ctx, span := s.tracer.Start(ctx, "grading.load_context", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.activity_id", int64(activityID)),
		attribute.Int64("grading.student_id", int64(studentID)),
	))
	defer span.End()

	sc, err := s.resolveTarget(ctx, submissionID, activityID, studentID, actor)
	if err != nil {
		recordSpanError(span, err)
		return SubmissionContext{}, err
	}

	record, err := s.grades.GetGradeRecord(ctx, activityID, studentID)
	switch {
	case err == nil:
		sc.GradeRecord = &record
		sc.GradingState = record.Status
		sc.CurrentFeedback = record.Feedback
	case errors.Is(err, gorm.ErrRecordNotFound):
		sc.GradingState = GradingStateUngraded
	default:
		recordSpanError(span, err)
		return SubmissionContext{}, fmt.Errorf("load grade record: %w", err)
	}

	comment, err := s.grades.GetFeedbackComment(ctx, submissionID)
	switch {
	case err == nil:
		sc.CurrentFeedback = comment.CommentText
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		recordSpanError(span, err)
		return SubmissionContext{}, fmt.Errorf("load feedback comment: %w", err)
	}

	sc.GithubURL = detectGithubURL(sc.Submission.OnlineText)

	if s.audit != nil {
		history, err := s.audit.History(ctx, "submission", submissionID, historyLimit)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to load grading history")
		}
		sc.History = history
	}

	span.SetAttributes(attribute.String("grading.state", sc.GradingState))
	return sc, nil
}

func (s *submissionGradeService) RequestSuggestion(ctx context.Context, sc SubmissionContext) (Suggestion, error) {
	path := choosePath(sc.Submission, sc.GithubURL)
	if path == PathText && s.textEvaluator == nil {
		path = PathArchive
	}

	ctx, span := s.tracer.Start(ctx, "grading.suggest", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(sc.Submission.ID)),
		attribute.String("grading.path", path),
	))
	defer span.End()

	var (
		result evaluator.Result
		err    error
	)
	switch path {
	case PathGithub:
		result, err = s.evaluator.EvaluateGithubRepo(ctx, evaluator.GithubRepoRequest{
			RepoURL:      sc.GithubURL,
			Criteria:     buildCriteria(sc.Activity, sc.Course, true),
			AssignmentID: sc.Activity.ID,
			UserID:       sc.Student.ID,
		})
	case PathText:
		result, err = s.textEvaluator.EvaluateSubmissionText(ctx, sc.Submission.OnlineText, sc.Activity.EffectiveMaxGrade())
	default:
		var archive []byte
		archive, err = buildSubmissionArchive(ctx, sc.Submission, s.files)
		if err == nil {
			result, err = s.evaluator.EvaluateProjectArchive(ctx, archive, buildCriteria(sc.Activity, sc.Course, false))
		}
	}

	if err != nil {
		observability.Suggestions().WithLabelValues(path, "error").Inc()
		recordSpanError(span, err)
		s.logger.Warn().Err(err).Str("path", path).Uint("submission_id", sc.Submission.ID).Msg("grade suggestion failed")
		return Suggestion{}, err
	}

	observability.Suggestions().WithLabelValues(path, "success").Inc()
	suggestion := Suggestion{
		Path:              path,
		Result:            result,
		SuggestedGrade:    clampGrade(result.OverallScore),
		SuggestedFeedback: suggestedFeedback(result.Report),
	}
	span.SetAttributes(attribute.Float64("grading.suggested_grade", suggestion.SuggestedGrade))

	return suggestion, nil
}

func (s *submissionGradeService) SaveGrade(ctx context.Context, input SaveGradeInput, actor Actor) (models.GradeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "grading.save", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(input.SubmissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
		attribute.Float64("grading.grade", input.Grade),
	))
	defer span.End()

	if err := validateGrade(input.Grade); err != nil {
		recordSpanError(span, err)
		observability.GradeWrites().WithLabelValues("save", "invalid").Inc()
		return models.GradeRecord{}, err
	}

	sc, err := s.resolveTarget(ctx, input.SubmissionID, input.ActivityID, input.StudentID, actor)
	if err != nil {
		recordSpanError(span, err)
		return models.GradeRecord{}, err
	}

	feedback := s.sanitizeFeedback(input.Feedback)
	record, err := s.dualUpsert(ctx, sc.Submission, input.Grade, feedback, actor)
	if err != nil {
		recordSpanError(span, err)
		observability.GradeWrites().WithLabelValues("save", "error").Inc()
		return record, err
	}

	observability.GradeWrites().WithLabelValues("save", "success").Inc()
	s.recordAudit(ctx, actor, "grade.saved", sc.Submission, record)

	return record, nil
}

func (s *submissionGradeService) PublishGrade(ctx context.Context, input PublishGradeInput, actor Actor) (PublishedGrade, error) {
	ctx, span := s.tracer.Start(ctx, "grading.publish", trace.WithAttributes(
		attribute.Int64("grading.activity_id", int64(input.ActivityID)),
		attribute.Int64("grading.student_id", int64(input.StudentID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := validateGrade(input.Grade); err != nil {
		recordSpanError(span, err)
		observability.GradeWrites().WithLabelValues("publish", "invalid").Inc()
		return PublishedGrade{}, err
	}

	activity, course, err := s.loadActivity(ctx, input.ActivityID)
	if err != nil {
		recordSpanError(span, err)
		return PublishedGrade{}, err
	}

	if _, err := s.loadStudent(ctx, course.ID, input.StudentID); err != nil {
		recordSpanError(span, err)
		return PublishedGrade{}, err
	}

	if err := s.authorize(ctx, actor, course.ID); err != nil {
		recordSpanError(span, err)
		return PublishedGrade{}, err
	}

	submission, err := s.submissions.LatestForStudent(ctx, input.ActivityID, input.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrSubmissionNotFound
		} else {
			err = fmt.Errorf("load latest submission: %w", err)
		}
		recordSpanError(span, err)
		return PublishedGrade{}, err
	}

	feedback := s.sanitizeFeedback(input.Feedback)
	record, err := s.dualUpsert(ctx, submission, input.Grade, feedback, actor)
	if err != nil {
		recordSpanError(span, err)
		observability.GradeWrites().WithLabelValues("publish", "error").Inc()
		return PublishedGrade{}, err
	}

	entry, err := s.gradebook.PublishToGradebook(ctx, GradebookPublication{
		CourseID:   course.ID,
		ActivityID: activity.ID,
		StudentID:  input.StudentID,
		Grade:      input.Grade,
		GradeMax:   activity.EffectiveMaxGrade(),
		Feedback:   feedback,
		GraderID:   actor.ID,
	})
	if err != nil {
		partial := &PartialWriteError{
			Succeeded: StoreGradeRecord + " and " + StoreFeedbackComment,
			Failed:    StoreGradebook,
			Err:       err,
		}
		recordSpanError(span, partial)
		observability.GradeWrites().WithLabelValues("publish", "error").Inc()
		return PublishedGrade{}, partial
	}

	publishedAt := s.now()
	if err := s.grades.MarkPublished(ctx, input.ActivityID, input.StudentID, publishedAt); err != nil {
		partial := &PartialWriteError{Succeeded: StoreGradebook, Failed: StoreGradeRecord, Err: err}
		recordSpanError(span, partial)
		observability.GradeWrites().WithLabelValues("publish", "error").Inc()
		return PublishedGrade{}, partial
	}
	record.Status = models.GradeStatusPublished
	record.PublishedAt = &publishedAt

	observability.GradeWrites().WithLabelValues("publish", "success").Inc()
	s.recordAudit(ctx, actor, "grade.published", submission, record)

	return PublishedGrade{SubmissionID: submission.ID, Record: record, Entry: entry}, nil
}

// dualUpsert writes the grade record first and the feedback comment second.
func (s *submissionGradeService) dualUpsert(ctx context.Context, submission models.Submission, grade float64, feedback string, actor Actor) (models.GradeRecord, error) {
	record, err := s.grades.UpsertGradeRecord(ctx, repository.GradeWrite{
		ActivityID: submission.ActivityID,
		StudentID:  submission.StudentID,
		Grade:      grade,
		Feedback:   feedback,
		GraderID:   actor.ID,
	})
	if err != nil {
		return models.GradeRecord{}, persistenceError(StoreGradeRecord, err)
	}

	if _, err := s.grades.UpsertFeedbackComment(ctx, repository.FeedbackWrite{
		SubmissionID: submission.ID,
		ActivityID:   submission.ActivityID,
		StudentID:    submission.StudentID,
		Feedback:     feedback,
		GraderID:     actor.ID,
	}); err != nil {
		s.logger.Error().Err(err).
			Uint("submission_id", submission.ID).
			Uint("activity_id", submission.ActivityID).
			Uint("student_id", submission.StudentID).
			Msg("feedback comment write failed after grade record write")
		return record, &PartialWriteError{Succeeded: StoreGradeRecord, Failed: StoreFeedbackComment, Err: err}
	}

	return record, nil
}

// resolveTarget loads the submission and checks it belongs to the activity and
// student, that every related record exists and that the actor may grade.
func (s *submissionGradeService) resolveTarget(ctx context.Context, submissionID, activityID, studentID uint, actor Actor) (SubmissionContext, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmissionContext{}, ErrSubmissionNotFound
		}
		return SubmissionContext{}, fmt.Errorf("load submission: %w", err)
	}

	if submission.ActivityID != activityID || submission.StudentID != studentID {
		return SubmissionContext{}, ErrSubmissionNotFound
	}

	activity, course, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return SubmissionContext{}, err
	}

	student, err := s.loadStudent(ctx, course.ID, studentID)
	if err != nil {
		return SubmissionContext{}, err
	}

	if err := s.authorize(ctx, actor, course.ID); err != nil {
		return SubmissionContext{}, err
	}

	return SubmissionContext{
		Course:     course,
		Activity:   activity,
		Student:    student,
		Submission: submission,
	}, nil
}

func (s *submissionGradeService) loadActivity(ctx context.Context, activityID uint) (models.Activity, models.Course, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, models.Course{}, ErrActivityNotFound
		}
		return models.Activity{}, models.Course{}, fmt.Errorf("load activity: %w", err)
	}

	course, err := s.courses.GetByID(ctx, activity.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Activity{}, models.Course{}, ErrCourseNotFound
		}
		return models.Activity{}, models.Course{}, fmt.Errorf("load course: %w", err)
	}

	return activity, course, nil
}

func (s *submissionGradeService) loadStudent(ctx context.Context, courseID, studentID uint) (models.Student, error) {
	student, err := s.students.GetEnrolled(ctx, courseID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, fmt.Errorf("load student: %w", err)
	}
	return student, nil
}

func (s *submissionGradeService) authorize(ctx context.Context, actor Actor, courseID uint) error {
	return authorizeGrading(ctx, s.courses, actor, courseID)
}

// sanitizeFeedback trims plain text and stores it as written. Only feedback
// carrying HTML tags goes through the sanitizer, which escapes text nodes.
func (s *submissionGradeService) sanitizeFeedback(feedback string) string {
	feedback = strings.TrimSpace(feedback)
	if !markupPattern.MatchString(feedback) {
		return feedback
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(feedback))
}

func (s *submissionGradeService) recordAudit(ctx context.Context, actor Actor, action string, submission models.Submission, record models.GradeRecord) {
	if s.audit == nil {
		return
	}

	submissionID := submission.ID
	if err := s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "submission",
		EntityID:   &submissionID,
		Metadata: map[string]interface{}{
			"activity_id": record.ActivityID,
			"student_id":  record.StudentID,
			"grade":       record.Grade,
			"status":      record.Status,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record grading audit entry")
	}
}

func validateGrade(grade float64) error {
	if math.IsNaN(grade) || math.IsInf(grade, 0) || grade < 0 || grade > 100 {
		return ErrGradeOutOfRange
	}
	return nil
}

// authorizeGrading lets administrators through and otherwise requires an
// active grading enrolment on the course.
func authorizeGrading(ctx context.Context, courses repository.CourseRepository, actor Actor, courseID uint) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID == 0 {
		return ErrPermissionDenied
	}

	ok, err := courses.HasGradingCapability(ctx, actor.ID, courseID)
	if err != nil {
		return fmt.Errorf("check grading capability: %w", err)
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
