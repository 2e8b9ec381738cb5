package dto

import (
	"time"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

// CourseRef identifies a course in nested responses.
type CourseRef struct {
	ID        uint   `json:"id"`
	FullName  string `json:"full_name"`
	ShortName string `json:"short_name"`
}

// ActivityRef summarizes an activity in nested responses.
type ActivityRef struct {
	ID       uint       `json:"id"`
	CourseID uint       `json:"course_id"`
	Name     string     `json:"name"`
	DueDate  *time.Time `json:"due_date"`
	MaxGrade float64    `json:"max_grade"`
}

// StudentRef summarizes a student in nested responses.
type StudentRef struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// NewCourseRef maps a course model.
func NewCourseRef(course models.Course) CourseRef {
	return CourseRef{ID: course.ID, FullName: course.FullName, ShortName: course.ShortName}
}

// NewActivityRef maps an activity model.
func NewActivityRef(activity models.Activity) ActivityRef {
	return ActivityRef{
		ID:       activity.ID,
		CourseID: activity.CourseID,
		Name:     activity.Name,
		DueDate:  activity.DueDate,
		MaxGrade: activity.EffectiveMaxGrade(),
	}
}

// NewStudentRef maps a student model.
func NewStudentRef(student models.Student) StudentRef {
	return StudentRef{ID: student.ID, FullName: student.FullName(), Email: student.Email}
}
