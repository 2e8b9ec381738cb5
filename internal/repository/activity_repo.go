package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// ActivitySummary pairs an activity with its submission activity.
type ActivitySummary struct {
	Activity           models.Activity
	SubmittedCount     int64
	LatestSubmissionAt *time.Time
}

// ActivityRepository provides persistence helpers for activities.
type ActivityRepository interface {
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	ListByCourse(ctx context.Context, courseID uint) ([]ActivitySummary, error)
	ExistsByName(ctx context.Context, courseID uint, name string) (bool, error)
	Create(ctx context.Context, activity *models.Activity) error
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs the activity repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).Preload("Course").First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) ListByCourse(ctx context.Context, courseID uint) ([]ActivitySummary, error) {
	var activities []models.Activity
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("due_date DESC").
		Order("name ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}

	if len(activities) == 0 {
		return []ActivitySummary{}, nil
	}

	ids := make([]uint, 0, len(activities))
	for _, activity := range activities {
		ids = append(ids, activity.ID)
	}

	var rows []struct {
		ActivityID uint
		UpdatedAt  time.Time
	}
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("activity_id", "updated_at").
		Where("activity_id IN ?", ids).
		Where("status = ?", models.SubmissionStatusSubmitted).
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(activities))
	latest := make(map[uint]time.Time, len(activities))
	for _, row := range rows {
		counts[row.ActivityID]++
		if _, ok := latest[row.ActivityID]; !ok {
			latest[row.ActivityID] = row.UpdatedAt
		}
	}

	summaries := make([]ActivitySummary, 0, len(activities))
	for _, activity := range activities {
		summary := ActivitySummary{Activity: activity, SubmittedCount: counts[activity.ID]}
		if ts, ok := latest[activity.ID]; ok {
			at := ts
			summary.LatestSubmissionAt = &at
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (r *activityRepository) ExistsByName(ctx context.Context, courseID uint, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Activity{}).
		Where("course_id = ?", courseID).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Omit("Course").Create(activity).Error
}
