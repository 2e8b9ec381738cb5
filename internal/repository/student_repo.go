package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// StudentRepository resolves learners within the courses they are enrolled in.
type StudentRepository interface {
	// GetEnrolled returns the student when they hold a student enrolment in the
	// course, suspended or not. Otherwise it returns gorm.ErrRecordNotFound.
	GetEnrolled(ctx context.Context, courseID, studentID uint) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetEnrolled(ctx context.Context, courseID, studentID uint) (models.Student, error) {
	enrolment := r.db.WithContext(ctx).Model(&models.CourseMember{}).
		Select("user_id").
		Where("course_id = ?", courseID).
		Where("role = ?", models.CourseRoleStudent)

	var student models.Student
	err := r.db.WithContext(ctx).
		Where("id = ?", studentID).
		Where("id IN (?)", enrolment).
		First(&student).Error
	return student, err
}
