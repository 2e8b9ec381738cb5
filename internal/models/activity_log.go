package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable grading and generation events.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// All returns every model managed by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Course{},
		&CourseMember{},
		&Student{},
		&Activity{},
		&Submission{},
		&SubmissionFile{},
		&GradeRecord{},
		&FeedbackComment{},
		&GradebookEntry{},
		&ActivityLog{},
	}
}
