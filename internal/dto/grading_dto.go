package dto

import (
	"time"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

// SubmissionContextQuery identifies the grading target when viewing a submission.
type SubmissionContextQuery struct {
	ActivityID uint `query:"activity_id" validate:"required,gt=0"`
	StudentID  uint `query:"student_id" validate:"required,gt=0"`
}

// SuggestionRequest asks for an AI suggested grade for a submission.
type SuggestionRequest struct {
	ActivityID uint `json:"activity_id" validate:"required,gt=0"`
	StudentID  uint `json:"student_id" validate:"required,gt=0"`
}

// SaveGradeRequest stores a draft grade. Range checks happen in the grading service.
type SaveGradeRequest struct {
	ActivityID uint     `json:"activity_id" validate:"required,gt=0"`
	StudentID  uint     `json:"student_id" validate:"required,gt=0"`
	Grade      *float64 `json:"grade" validate:"required"`
	Feedback   string   `json:"feedback" validate:"max=20000"`
}

// PublishGradeRequest publishes a grade to the gradebook.
type PublishGradeRequest struct {
	Grade    *float64 `json:"grade" validate:"required"`
	Feedback string   `json:"feedback" validate:"max=20000"`
}

// SubmissionFileResponse describes a file attached to a submission.
type SubmissionFileResponse struct {
	ID        uint   `json:"id"`
	FileName  string `json:"file_name"`
	FileURL   string `json:"file_url"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

// SubmissionResponse describes a submission and its content.
type SubmissionResponse struct {
	ID            uint                     `json:"id"`
	ActivityID    uint                     `json:"activity_id"`
	StudentID     uint                     `json:"student_id"`
	OnlineText    string                   `json:"online_text"`
	Status        string                   `json:"status"`
	AttemptNumber int                      `json:"attempt_number"`
	Files         []SubmissionFileResponse `json:"files"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// GradeRecordResponse serializes the stored grade for an (activity, student) pair.
type GradeRecordResponse struct {
	ActivityID  uint       `json:"activity_id"`
	StudentID   uint       `json:"student_id"`
	Grade       float64    `json:"grade"`
	Feedback    string     `json:"feedback"`
	Status      string     `json:"status"`
	GraderID    uint       `json:"grader_id"`
	PublishedAt *time.Time `json:"published_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AuditEntryResponse serializes a grading audit entry.
type AuditEntryResponse struct {
	ActorID   uint                   `json:"actor_id"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// SubmissionDetailResponse is the grading view of a single submission.
type SubmissionDetailResponse struct {
	Course          CourseRef            `json:"course"`
	Activity        ActivityRef          `json:"activity"`
	Student         StudentRef           `json:"student"`
	Submission      SubmissionResponse   `json:"submission"`
	GithubURL       string               `json:"github_url,omitempty"`
	GradingState    string               `json:"grading_state"`
	CurrentGrade    *float64             `json:"current_grade"`
	CurrentFeedback string               `json:"current_feedback"`
	History         []AuditEntryResponse `json:"history"`
}

// SuggestionResponse carries the evaluator result and the pre-filled grade.
type SuggestionResponse struct {
	Path              string           `json:"path"`
	SuggestedGrade    float64          `json:"suggested_grade"`
	SuggestedFeedback string           `json:"suggested_feedback"`
	Evaluation        evaluator.Result `json:"evaluation"`
}

// PublishedGradeResponse reports a grade that reached the gradebook.
type PublishedGradeResponse struct {
	Grade     GradeRecordResponse    `json:"grade"`
	Gradebook GradebookEntryResponse `json:"gradebook"`
}

// NewSubmissionResponse maps a submission model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	files := make([]SubmissionFileResponse, 0, len(submission.Files))
	for _, file := range submission.Files {
		files = append(files, SubmissionFileResponse{
			ID:        file.ID,
			FileName:  file.FileName,
			FileURL:   file.FileURL,
			SizeBytes: file.SizeBytes,
			MimeType:  file.MimeType,
		})
	}

	return SubmissionResponse{
		ID:            submission.ID,
		ActivityID:    submission.ActivityID,
		StudentID:     submission.StudentID,
		OnlineText:    submission.OnlineText,
		Status:        submission.Status,
		AttemptNumber: submission.AttemptNumber,
		Files:         files,
		CreatedAt:     submission.CreatedAt,
		UpdatedAt:     submission.UpdatedAt,
	}
}

// NewGradeRecordResponse maps a grade record model.
func NewGradeRecordResponse(record models.GradeRecord) GradeRecordResponse {
	return GradeRecordResponse{
		ActivityID:  record.ActivityID,
		StudentID:   record.StudentID,
		Grade:       record.Grade,
		Feedback:    record.Feedback,
		Status:      record.Status,
		GraderID:    record.GraderID,
		PublishedAt: record.PublishedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

// NewAuditEntryResponses maps audit log entries.
func NewAuditEntryResponses(entries []models.ActivityLog) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		metadata := map[string]interface{}(entry.Metadata)
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		responses = append(responses, AuditEntryResponse{
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			Metadata:  metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	return responses
}
