package dto

import (
	"time"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// GenerateProjectRequest holds the form fields of a project generation request.
type GenerateProjectRequest struct {
	CourseID   uint   `form:"course_id" validate:"required,gt=0"`
	Topics     string `form:"topics" validate:"required,max=2000"`
	Complexity string `form:"complexity" validate:"required,oneof=Easy Medium Hard"`
}

// GenerateProjectResponse returns the drafted project description.
type GenerateProjectResponse struct {
	CourseID           uint     `json:"course_id"`
	Topics             string   `json:"topics"`
	Complexity         string   `json:"complexity"`
	Documents          []string `json:"documents"`
	ProjectDescription string   `json:"project_description"`
}

// CreateActivityRequest creates an assignment from a generated description.
type CreateActivityRequest struct {
	CourseID    uint       `json:"course_id" validate:"required,gt=0"`
	Section     int        `json:"section" validate:"gte=0"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description" validate:"required"`
	DueDate     *time.Time `json:"due_date"`
}

// ActivityResponse describes a created activity.
type ActivityResponse struct {
	ID        uint       `json:"id"`
	CourseID  uint       `json:"course_id"`
	Section   int        `json:"section"`
	Name      string     `json:"name"`
	Intro     string     `json:"intro"`
	DueDate   *time.Time `json:"due_date"`
	MaxGrade  float64    `json:"max_grade"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewActivityResponse maps an activity model.
func NewActivityResponse(activity models.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        activity.ID,
		CourseID:  activity.CourseID,
		Section:   activity.Section,
		Name:      activity.Name,
		Intro:     activity.Intro,
		DueDate:   activity.DueDate,
		MaxGrade:  activity.EffectiveMaxGrade(),
		CreatedAt: activity.CreatedAt,
	}
}
