package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// CourseStats aggregates activity, submission and enrolment counts for a course.
type CourseStats struct {
	ActivityCount   int64
	SubmissionCount int64
	StudentCount    int64
}

// CourseRepository exposes read access to courses and enrolments.
type CourseRepository interface {
	GetByID(ctx context.Context, id uint) (models.Course, error)
	ListForTeacher(ctx context.Context, userID uint) ([]models.Course, error)
	CountEnrolledStudents(ctx context.Context, courseID uint) (int64, error)
	HasGradingCapability(ctx context.Context, userID, courseID uint) (bool, error)
	Stats(ctx context.Context, courseID uint) (CourseStats, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) gradingMemberships(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.CourseMember{}).
		Where("user_id = ?", userID).
		Where("status = ?", models.MemberStatusActive).
		Where("role IN ?", models.GradingRoles)
}

func (r *courseRepository) ListForTeacher(ctx context.Context, userID uint) ([]models.Course, error) {
	courseIDs := r.gradingMemberships(ctx, userID).Select("course_id")

	var courses []models.Course
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", courseIDs).
		Where("visible = ?", true).
		Order("full_name ASC").
		Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *courseRepository) CountEnrolledStudents(ctx context.Context, courseID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CourseMember{}).
		Where("course_id = ?", courseID).
		Where("role = ?", models.CourseRoleStudent).
		Where("status = ?", models.MemberStatusActive).
		Distinct("user_id").
		Count(&count).Error

	return count, err
}

func (r *courseRepository) HasGradingCapability(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	if err := r.gradingMemberships(ctx, userID).
		Where("course_id = ?", courseID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *courseRepository) Stats(ctx context.Context, courseID uint) (CourseStats, error) {
	var stats CourseStats

	if err := r.db.WithContext(ctx).Model(&models.Activity{}).
		Where("course_id = ?", courseID).
		Count(&stats.ActivityCount).Error; err != nil {
		return CourseStats{}, err
	}

	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Joins("JOIN activities ON activities.id = submissions.activity_id").
		Where("activities.course_id = ?", courseID).
		Where("submissions.status = ?", models.SubmissionStatusSubmitted).
		Count(&stats.SubmissionCount).Error; err != nil {
		return CourseStats{}, err
	}

	students, err := r.CountEnrolledStudents(ctx, courseID)
	if err != nil {
		return CourseStats{}, err
	}
	stats.StudentCount = students

	return stats, nil
}
