package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	ActivityID *uint
	StudentID  *uint
	Status     *string
}

// SubmissionStats summarises grading progress for an activity.
type SubmissionStats struct {
	Submitted    int64
	Graded       int64
	AverageGrade float64
}

// SubmissionRepository defines read operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	LatestForStudent(ctx context.Context, activityID, studentID uint) (models.Submission, error)
	Stats(ctx context.Context, activityID uint) (SubmissionStats, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Student").
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("updated_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Preload("Activity").
		Preload("Activity.Course").
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// LatestForStudent prefers the newest submitted attempt and falls back to the
// newest attempt of any status when the student never submitted.
func (r *submissionRepository) LatestForStudent(ctx context.Context, activityID, studentID uint) (models.Submission, error) {
	latest := func(status string) (models.Submission, error) {
		var submission models.Submission
		query := r.baseQuery(ctx).
			Where("activity_id = ?", activityID).
			Where("student_id = ?", studentID)
		if status != "" {
			query = query.Where("status = ?", status)
		}
		err := query.
			Order("attempt_number DESC").
			Order("updated_at DESC").
			Order("id DESC").
			First(&submission).Error
		return submission, err
	}

	submission, err := latest(models.SubmissionStatusSubmitted)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		submission, err = latest("")
	}
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Stats(ctx context.Context, activityID uint) (SubmissionStats, error) {
	var stats SubmissionStats

	submitted := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("activity_id = ?", activityID).
		Where("status = ?", models.SubmissionStatusSubmitted)

	if err := submitted.Session(&gorm.Session{}).Distinct("student_id").Count(&stats.Submitted).Error; err != nil {
		return SubmissionStats{}, err
	}

	var graded struct {
		Graded  int64
		Average float64
	}
	if err := r.db.WithContext(ctx).Model(&models.GradeRecord{}).
		Select("COUNT(*) AS graded, COALESCE(AVG(grade), 0) AS average").
		Where("activity_id = ?", activityID).
		Where("student_id IN (?)", submitted.Session(&gorm.Session{}).Select("student_id")).
		Scan(&graded).Error; err != nil {
		return SubmissionStats{}, err
	}

	stats.Graded = graded.Graded
	stats.AverageGrade = graded.Average

	return stats, nil
}
