package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

func TestCourseRepositoryGradingCapability(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	ok, err := repo.HasGradingCapability(ctx, fx.Teacher, fx.Course.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.HasGradingCapability(ctx, fx.Student.ID, fx.Course.ID)
	require.NoError(t, err)
	require.False(t, ok, "students cannot grade")

	suspended := models.CourseMember{CourseID: fx.Course.ID, UserID: 901, Role: models.CourseRoleTeacher, Status: models.MemberStatusSuspended}
	require.NoError(t, db.Create(&suspended).Error)

	ok, err = repo.HasGradingCapability(ctx, 901, fx.Course.ID)
	require.NoError(t, err)
	require.False(t, ok, "suspended enrolments do not grant capability")
}

func TestCourseRepositoryListForTeacherAndStats(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	other := models.Course{FullName: "Algorithms", ShortName: "ALG", Visible: true}
	require.NoError(t, db.Create(&other).Error)

	courses, err := repo.ListForTeacher(ctx, fx.Teacher)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, fx.Course.ID, courses[0].ID)

	extra := models.Student{FirstName: "Budi", Email: "budi@example.com"}
	require.NoError(t, db.Create(&extra).Error)
	require.NoError(t, db.Create(&models.CourseMember{CourseID: fx.Course.ID, UserID: extra.ID, Role: models.CourseRoleStudent, Status: models.MemberStatusActive}).Error)

	count, err := repo.CountEnrolledStudents(ctx, fx.Course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	stats, err := repo.Stats(ctx, fx.Course.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.ActivityCount)
	require.Equal(t, int64(1), stats.SubmissionCount)
	require.Equal(t, int64(2), stats.StudentCount)
}
