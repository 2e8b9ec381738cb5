package models

import "time"

// DefaultMaxGrade is the grade ceiling used when an activity does not define one.
const DefaultMaxGrade = 100.0

// Activity is an assignment within a course and the target of grading.
type Activity struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	CourseID                 uint       `gorm:"not null;uniqueIndex:idx_activity_course_name" json:"course_id"`
	Section                  int        `gorm:"not null;default:0" json:"section"`
	Name                     string     `gorm:"size:255;not null;uniqueIndex:idx_activity_course_name" json:"name"`
	Intro                    string     `gorm:"type:text" json:"intro"`
	DueDate                  *time.Time `json:"due_date"`
	AllowSubmissionsFromDate *time.Time `json:"allow_submissions_from_date"`
	MaxGrade                 float64    `gorm:"not null;default:100" json:"max_grade"`
	Visible                  bool       `gorm:"not null;default:true" json:"visible"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
	Course                   Course     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// EffectiveMaxGrade returns the grade ceiling, falling back to the default.
func (a Activity) EffectiveMaxGrade() float64 {
	if a.MaxGrade <= 0 {
		return DefaultMaxGrade
	}
	return a.MaxGrade
}

// IsPastDue returns true when the activity deadline has already passed.
func (a Activity) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}
