package dto

import (
	"time"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// GradebookEntryResponse is a student-visible published grade.
type GradebookEntryResponse struct {
	CourseID     uint      `json:"course_id"`
	CourseName   string    `json:"course_name,omitempty"`
	ActivityID   uint      `json:"activity_id"`
	ActivityName string    `json:"activity_name,omitempty"`
	Grade        float64   `json:"grade"`
	GradeMax     float64   `json:"grade_max"`
	Feedback     string    `json:"feedback"`
	GradedAt     time.Time `json:"graded_at"`
}

// StudentGradesResponse lists the published grades of the calling student.
type StudentGradesResponse struct {
	Items []GradebookEntryResponse `json:"items"`
}

// NewGradebookEntryResponse maps a gradebook entry model.
func NewGradebookEntryResponse(entry models.GradebookEntry) GradebookEntryResponse {
	return GradebookEntryResponse{
		CourseID:     entry.CourseID,
		CourseName:   entry.Activity.Course.FullName,
		ActivityID:   entry.ActivityID,
		ActivityName: entry.Activity.Name,
		Grade:        entry.Grade,
		GradeMax:     entry.GradeMax,
		Feedback:     entry.Feedback,
		GradedAt:     entry.GradedAt,
	}
}

// GradeEventResponse is pushed to a student's grade stream when a grade is published.
type GradeEventResponse struct {
	Type       string    `json:"type"`
	CourseID   uint      `json:"course_id"`
	ActivityID uint      `json:"activity_id"`
	Grade      float64   `json:"grade"`
	GradeMax   float64   `json:"grade_max"`
	GradedAt   time.Time `json:"graded_at"`
}
