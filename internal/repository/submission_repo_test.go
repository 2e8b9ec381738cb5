package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

func TestSubmissionRepositoryListOrdersByUpdateTime(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	other := models.Student{FirstName: "Andi", Email: "andi@example.com"}
	require.NoError(t, db.Create(&other).Error)

	newer := models.Submission{ActivityID: fx.Activity.ID, StudentID: other.ID, Status: models.SubmissionStatusSubmitted}
	require.NoError(t, db.Omit("Activity", "Student").Create(&newer).Error)
	require.NoError(t, db.Model(&newer).UpdateColumn("updated_at", time.Now().Add(time.Hour)).Error)

	draft := models.Submission{ActivityID: fx.Activity.ID, StudentID: other.ID, Status: models.SubmissionStatusDraft, AttemptNumber: 1}
	require.NoError(t, db.Omit("Activity", "Student").Create(&draft).Error)

	status := models.SubmissionStatusSubmitted
	submissions, err := repo.List(ctx, SubmissionFilter{ActivityID: &fx.Activity.ID, Status: &status})
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	require.Equal(t, newer.ID, submissions[0].ID, "most recently modified first")
	require.Equal(t, "Andi", submissions[0].Student.FirstName)
	require.Len(t, submissions[1].Files, 1)

	all, err := repo.List(ctx, SubmissionFilter{ActivityID: &fx.Activity.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)

	latest, err := repo.LatestForStudent(ctx, fx.Activity.ID, other.ID)
	require.NoError(t, err)
	require.Equal(t, newer.ID, latest.ID, "submitted attempt wins over a newer draft")
}

func TestSubmissionRepositoryLatestFallsBackToDraft(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewSubmissionRepository(db)
	ctx := context.Background()

	drafter := models.Student{FirstName: "Budi", Email: "budi@example.com"}
	require.NoError(t, db.Create(&drafter).Error)

	for attempt := 0; attempt < 2; attempt++ {
		draft := models.Submission{ActivityID: fx.Activity.ID, StudentID: drafter.ID, Status: models.SubmissionStatusDraft, AttemptNumber: attempt}
		require.NoError(t, db.Omit("Activity", "Student").Create(&draft).Error)
	}

	latest, err := repo.LatestForStudent(ctx, fx.Activity.ID, drafter.ID)
	require.NoError(t, err)
	require.Equal(t, 1, latest.AttemptNumber)
	require.Equal(t, models.SubmissionStatusDraft, latest.Status)

	_, err = repo.LatestForStudent(ctx, fx.Activity.ID, drafter.ID+100)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryGetByIDPreloadsRelations(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewSubmissionRepository(db)

	submission, err := repo.GetByID(context.Background(), fx.Submission.ID)
	require.NoError(t, err)
	require.Equal(t, fx.Activity.ID, submission.Activity.ID)
	require.Equal(t, fx.Course.ID, submission.Activity.Course.ID)
	require.Equal(t, fx.Student.Email, submission.Student.Email)
	require.Len(t, submission.Files, 1)
	require.Equal(t, "index.html", submission.Files[0].FileName)
}

func TestSubmissionRepositoryStats(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewSubmissionRepository(db)
	grades := NewGradeRepository(db)
	ctx := context.Background()

	stats, err := repo.Stats(ctx, fx.Activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Submitted)
	require.Equal(t, int64(0), stats.Graded)

	_, err = grades.UpsertGradeRecord(ctx, GradeWrite{ActivityID: fx.Activity.ID, StudentID: fx.Student.ID, Grade: 80, GraderID: fx.Teacher})
	require.NoError(t, err)

	stats, err = repo.Stats(ctx, fx.Activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Graded)
	require.InDelta(t, 80, stats.AverageGrade, 0.001)
}

func TestSubmissionRepositoryStatsCountsStudentsOnce(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db)
	repo := NewSubmissionRepository(db)
	grades := NewGradeRepository(db)
	ctx := context.Background()

	resubmit := models.Submission{ActivityID: fx.Activity.ID, StudentID: fx.Student.ID, Status: models.SubmissionStatusSubmitted, AttemptNumber: 1}
	require.NoError(t, db.Omit("Activity", "Student").Create(&resubmit).Error)

	_, err := grades.UpsertGradeRecord(ctx, GradeWrite{ActivityID: fx.Activity.ID, StudentID: fx.Student.ID, Grade: 64, GraderID: fx.Teacher})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx, fx.Activity.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Submitted)
	require.Equal(t, int64(1), stats.Graded)
}
