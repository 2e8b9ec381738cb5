package models

import (
	"strings"
	"time"
)

// Submission is a student's attempt at an activity, as text, files, or both.
type Submission struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	ActivityID    uint             `gorm:"not null;index" json:"activity_id"`
	StudentID     uint             `gorm:"not null;index" json:"student_id"`
	OnlineText    string           `gorm:"type:text" json:"online_text"`
	Status        string           `gorm:"size:32;not null" json:"status"`
	AttemptNumber int              `gorm:"not null;default:0" json:"attempt_number"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Activity      Activity         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"activity"`
	Student       Student          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Files         []SubmissionFile `json:"files"`
}

const (
	// SubmissionStatusSubmitted indicates the student handed the work in.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusDraft indicates the work is still being edited by the student.
	SubmissionStatusDraft = "draft"
)

// HasText reports whether the submission carries online text.
func (s Submission) HasText() bool {
	return strings.TrimSpace(s.OnlineText) != ""
}

// SubmissionFile is a file attached to a submission.
type SubmissionFile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	FileURL      string    `gorm:"size:1024;not null" json:"file_url"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     string    `gorm:"size:128" json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}
