package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/repository"
)

// EvaluatorDashboardService serves the course, activity and submission browser.
type EvaluatorDashboardService interface {
	Overview(ctx context.Context, actor Actor) (dto.EvaluatorDashboardResponse, error)
	CourseActivities(ctx context.Context, actor Actor, courseID uint) (dto.CourseActivitiesResponse, error)
	ActivitySubmissions(ctx context.Context, actor Actor, activityID uint, filter dto.SubmissionListFilter) (dto.ActivitySubmissionsResponse, error)
}

type evaluatorDashboardService struct {
	courses     repository.CourseRepository
	activities  repository.ActivityRepository
	submissions repository.SubmissionRepository
	grades      repository.GradeRepository
	cache       *dashboardCache
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEvaluatorDashboardService builds the dashboard aggregator.
func NewEvaluatorDashboardService(courses repository.CourseRepository, activities repository.ActivityRepository, submissions repository.SubmissionRepository, grades repository.GradeRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) EvaluatorDashboardService {
	log := logger.With().Str("component", "evaluator_dashboard_service").Logger()
	return &evaluatorDashboardService{
		courses:     courses,
		activities:  activities,
		submissions: submissions,
		grades:      grades,
		cache:       newDashboardCache(cache, ttl, log),
		logger:      log,
		now:         time.Now,
	}
}

func (s *evaluatorDashboardService) Overview(ctx context.Context, actor Actor) (dto.EvaluatorDashboardResponse, error) {
	var cached dto.EvaluatorDashboardResponse
	if s.cache.get(ctx, actor.ID, &cached) {
		s.logger.Debug().Uint("teacher_id", actor.ID).Msg("dashboard cache hit")
		return cached, nil
	}

	courses, err := s.courses.ListForTeacher(ctx, actor.ID)
	if err != nil {
		return dto.EvaluatorDashboardResponse{}, err
	}

	response := dto.EvaluatorDashboardResponse{
		Courses:     make([]dto.CourseOverviewResponse, 0, len(courses)),
		GeneratedAt: s.now().UTC(),
	}
	courseIDs := make([]uint, 0, len(courses))

	for _, course := range courses {
		stats, err := s.courses.Stats(ctx, course.ID)
		if err != nil {
			return dto.EvaluatorDashboardResponse{}, fmt.Errorf("course %d stats: %w", course.ID, err)
		}

		response.Courses = append(response.Courses, dto.CourseOverviewResponse{
			ID:              course.ID,
			FullName:        course.FullName,
			ShortName:       course.ShortName,
			ActivityCount:   stats.ActivityCount,
			SubmissionCount: stats.SubmissionCount,
			StudentCount:    stats.StudentCount,
		})
		response.Summary.TotalActivities += stats.ActivityCount
		response.Summary.TotalSubmissions += stats.SubmissionCount
		response.Summary.TotalStudents += stats.StudentCount
		courseIDs = append(courseIDs, course.ID)
	}
	response.Summary.TotalCourses = len(response.Courses)

	s.cache.set(ctx, actor.ID, courseIDs, response)

	return response, nil
}

func (s *evaluatorDashboardService) CourseActivities(ctx context.Context, actor Actor, courseID uint) (dto.CourseActivitiesResponse, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CourseActivitiesResponse{}, ErrCourseNotFound
		}
		return dto.CourseActivitiesResponse{}, err
	}

	if err := authorizeGrading(ctx, s.courses, actor, course.ID); err != nil {
		return dto.CourseActivitiesResponse{}, err
	}

	summaries, err := s.activities.ListByCourse(ctx, course.ID)
	if err != nil {
		return dto.CourseActivitiesResponse{}, err
	}

	enrolled, err := s.courses.CountEnrolledStudents(ctx, course.ID)
	if err != nil {
		return dto.CourseActivitiesResponse{}, err
	}

	now := s.now()
	activities := make([]dto.ActivityOverviewResponse, 0, len(summaries))
	for _, summary := range summaries {
		activity := summary.Activity
		activities = append(activities, dto.ActivityOverviewResponse{
			ID:                 activity.ID,
			Name:               activity.Name,
			Section:            activity.Section,
			DueDate:            activity.DueDate,
			MaxGrade:           activity.EffectiveMaxGrade(),
			Overdue:            activity.IsPastDue(now),
			SubmittedCount:     summary.SubmittedCount,
			LatestSubmissionAt: summary.LatestSubmissionAt,
		})
	}

	return dto.CourseActivitiesResponse{
		Course:           dto.NewCourseRef(course),
		EnrolledStudents: enrolled,
		Activities:       activities,
	}, nil
}

func (s *evaluatorDashboardService) ActivitySubmissions(ctx context.Context, actor Actor, activityID uint, filter dto.SubmissionListFilter) (dto.ActivitySubmissionsResponse, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ActivitySubmissionsResponse{}, ErrActivityNotFound
		}
		return dto.ActivitySubmissionsResponse{}, err
	}

	if err := authorizeGrading(ctx, s.courses, actor, activity.CourseID); err != nil {
		return dto.ActivitySubmissionsResponse{}, err
	}

	repoFilter := repository.SubmissionFilter{ActivityID: &activity.ID}
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	switch status {
	case "":
		status = models.SubmissionStatusSubmitted
		repoFilter.Status = &status
	case "all":
	default:
		repoFilter.Status = &status
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return dto.ActivitySubmissionsResponse{}, err
	}

	studentIDs := make([]uint, 0, len(submissions))
	for _, submission := range submissions {
		studentIDs = append(studentIDs, submission.StudentID)
	}

	records, err := s.grades.ListGradeRecords(ctx, activity.ID, studentIDs)
	if err != nil {
		return dto.ActivitySubmissionsResponse{}, err
	}
	recordByStudent := make(map[uint]models.GradeRecord, len(records))
	for _, record := range records {
		recordByStudent[record.StudentID] = record
	}

	stats, err := s.submissions.Stats(ctx, activity.ID)
	if err != nil {
		return dto.ActivitySubmissionsResponse{}, err
	}

	items := make([]dto.SubmissionListItem, 0, len(submissions))
	for _, submission := range submissions {
		item := dto.SubmissionListItem{
			ID:            submission.ID,
			Student:       dto.NewStudentRef(submission.Student),
			Status:        submission.Status,
			AttemptNumber: submission.AttemptNumber,
			FileCount:     len(submission.Files),
			HasText:       submission.HasText(),
			GradingState:  GradingStateUngraded,
			UpdatedAt:     submission.UpdatedAt,
		}
		if record, ok := recordByStudent[submission.StudentID]; ok {
			grade := record.Grade
			item.Grade = &grade
			item.GradingState = record.Status
		}
		items = append(items, item)
	}

	return dto.ActivitySubmissionsResponse{
		Course:   dto.NewCourseRef(activity.Course),
		Activity: dto.NewActivityRef(activity),
		Stats: dto.SubmissionStatsResponse{
			Submitted:    stats.Submitted,
			Graded:       stats.Graded,
			AverageGrade: stats.AverageGrade,
		},
		Submissions: items,
	}, nil
}
