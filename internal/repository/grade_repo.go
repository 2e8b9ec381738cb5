package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// GradeWrite carries the values written by a grading action.
type GradeWrite struct {
	ActivityID uint
	StudentID  uint
	Grade      float64
	Feedback   string
	GraderID   uint
}

// FeedbackWrite carries the values written to the submission feedback comment.
type FeedbackWrite struct {
	SubmissionID uint
	ActivityID   uint
	StudentID    uint
	Feedback     string
	GraderID     uint
}

// GradeRepository persists grade records and their feedback comments.
type GradeRepository interface {
	GetGradeRecord(ctx context.Context, activityID, studentID uint) (models.GradeRecord, error)
	ListGradeRecords(ctx context.Context, activityID uint, studentIDs []uint) ([]models.GradeRecord, error)
	UpsertGradeRecord(ctx context.Context, input GradeWrite) (models.GradeRecord, error)
	MarkPublished(ctx context.Context, activityID, studentID uint, at time.Time) error
	GetFeedbackComment(ctx context.Context, submissionID uint) (models.FeedbackComment, error)
	UpsertFeedbackComment(ctx context.Context, input FeedbackWrite) (models.FeedbackComment, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository constructs the grade repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) GetGradeRecord(ctx context.Context, activityID, studentID uint) (models.GradeRecord, error) {
	var record models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("activity_id = ? AND student_id = ?", activityID, studentID).
		First(&record).Error; err != nil {
		return models.GradeRecord{}, err
	}

	return record, nil
}

func (r *gradeRepository) ListGradeRecords(ctx context.Context, activityID uint, studentIDs []uint) ([]models.GradeRecord, error) {
	if len(studentIDs) == 0 {
		return []models.GradeRecord{}, nil
	}

	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Where("student_id IN ?", studentIDs).
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// UpsertGradeRecord inserts or updates the record for the (activity, student)
// pair in a single statement. Any save resets the record to drafted.
func (r *gradeRepository) UpsertGradeRecord(ctx context.Context, input GradeWrite) (models.GradeRecord, error) {
	record := models.GradeRecord{
		ActivityID: input.ActivityID,
		StudentID:  input.StudentID,
		Grade:      input.Grade,
		Feedback:   input.Feedback,
		GraderID:   input.GraderID,
		Status:     models.GradeStatusDrafted,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "activity_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "feedback", "grader_id", "status", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return models.GradeRecord{}, err
	}

	return r.GetGradeRecord(ctx, input.ActivityID, input.StudentID)
}

func (r *gradeRepository) MarkPublished(ctx context.Context, activityID, studentID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.GradeRecord{}).
		Where("activity_id = ? AND student_id = ?", activityID, studentID).
		Updates(map[string]interface{}{
			"status":       models.GradeStatusPublished,
			"published_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *gradeRepository) GetFeedbackComment(ctx context.Context, submissionID uint) (models.FeedbackComment, error) {
	var comment models.FeedbackComment
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		First(&comment).Error; err != nil {
		return models.FeedbackComment{}, err
	}

	return comment, nil
}

func (r *gradeRepository) UpsertFeedbackComment(ctx context.Context, input FeedbackWrite) (models.FeedbackComment, error) {
	comment := models.FeedbackComment{
		SubmissionID:  input.SubmissionID,
		ActivityID:    input.ActivityID,
		StudentID:     input.StudentID,
		CommentText:   input.Feedback,
		CommentFormat: models.FeedbackFormatHTML,
		GraderID:      input.GraderID,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"activity_id", "student_id", "comment_text", "comment_format", "grader_id", "updated_at"}),
	}).Create(&comment).Error
	if err != nil {
		return models.FeedbackComment{}, err
	}

	return r.GetFeedbackComment(ctx, input.SubmissionID)
}
