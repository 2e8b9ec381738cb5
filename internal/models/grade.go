package models

import "time"

// Grading states of a GradeRecord.
const (
	GradeStatusDrafted   = "drafted"
	GradeStatusPublished = "published"
)

// GradeRecord is the canonical grade and feedback for an (activity, student) pair.
type GradeRecord struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ActivityID  uint       `gorm:"not null;uniqueIndex:idx_grade_activity_student" json:"activity_id"`
	StudentID   uint       `gorm:"not null;uniqueIndex:idx_grade_activity_student" json:"student_id"`
	Grade       float64    `gorm:"not null" json:"grade"`
	Feedback    string     `gorm:"type:text" json:"feedback"`
	GraderID    uint       `gorm:"not null" json:"grader_id"`
	Status      string     `gorm:"size:16;not null;default:drafted" json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublished reports whether the latest saved value reached the gradebook.
func (g GradeRecord) IsPublished() bool {
	return g.Status == GradeStatusPublished
}

// FeedbackFormatHTML is the format the grader UI renders comments with.
const FeedbackFormatHTML = "html"

// FeedbackComment mirrors GradeRecord.Feedback keyed by submission.
type FeedbackComment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubmissionID  uint      `gorm:"not null;uniqueIndex" json:"submission_id"`
	ActivityID    uint      `gorm:"not null;index" json:"activity_id"`
	StudentID     uint      `gorm:"not null" json:"student_id"`
	CommentText   string    `gorm:"type:text" json:"comment_text"`
	CommentFormat string    `gorm:"size:16;not null" json:"comment_format"`
	GraderID      uint      `gorm:"not null" json:"grader_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// GradebookEntry is the student-visible grade published for an activity.
type GradebookEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_gradebook_entry" json:"course_id"`
	ActivityID uint      `gorm:"not null;uniqueIndex:idx_gradebook_entry" json:"activity_id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_gradebook_entry;index" json:"student_id"`
	Grade      float64   `gorm:"not null" json:"grade"`
	GradeMax   float64   `gorm:"not null" json:"grade_max"`
	Feedback   string    `gorm:"type:text" json:"feedback"`
	GradedBy   uint      `gorm:"not null" json:"graded_by"`
	GradedAt   time.Time `gorm:"not null" json:"graded_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Activity   Activity  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
