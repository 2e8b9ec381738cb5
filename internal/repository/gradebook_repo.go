package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// GradebookRepository stores the student-visible grade report.
type GradebookRepository interface {
	Upsert(ctx context.Context, entry models.GradebookEntry) (models.GradebookEntry, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.GradebookEntry, error)
}

type gradebookRepository struct {
	db *gorm.DB
}

// NewGradebookRepository constructs the gradebook repository.
func NewGradebookRepository(db *gorm.DB) GradebookRepository {
	return &gradebookRepository{db: db}
}

func (r *gradebookRepository) Upsert(ctx context.Context, entry models.GradebookEntry) (models.GradebookEntry, error) {
	err := r.db.WithContext(ctx).Omit("Activity").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "course_id"}, {Name: "activity_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "grade_max", "feedback", "graded_by", "graded_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return models.GradebookEntry{}, err
	}

	var stored models.GradebookEntry
	if err := r.db.WithContext(ctx).
		Where("course_id = ? AND activity_id = ? AND student_id = ?", entry.CourseID, entry.ActivityID, entry.StudentID).
		First(&stored).Error; err != nil {
		return models.GradebookEntry{}, err
	}

	return stored, nil
}

func (r *gradebookRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.GradebookEntry, error) {
	var entries []models.GradebookEntry
	if err := r.db.WithContext(ctx).
		Preload("Activity").
		Preload("Activity.Course").
		Where("student_id = ?", studentID).
		Order("graded_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
