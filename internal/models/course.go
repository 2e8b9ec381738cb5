package models

import "time"

// Course groups activities and the people enrolled in them.
type Course struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:255;not null" json:"full_name"`
	ShortName string         `gorm:"size:100;not null" json:"short_name"`
	Visible   bool           `gorm:"not null;default:true" json:"visible"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Members   []CourseMember `json:"-"`
}

// Course member roles.
const (
	CourseRoleManager        = "manager"
	CourseRoleEditingTeacher = "editingteacher"
	CourseRoleTeacher        = "teacher"
	CourseRoleStudent        = "student"
)

// Enrolment statuses.
const (
	MemberStatusActive    = "active"
	MemberStatusSuspended = "suspended"
)

// GradingRoles lists the course roles that may grade and create activities.
var GradingRoles = []string{CourseRoleManager, CourseRoleEditingTeacher, CourseRoleTeacher}

// CourseMember is an enrolment of a user in a course with a role.
type CourseMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_course_member_role" json:"course_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_course_member_role;index" json:"user_id"`
	Role      string    `gorm:"size:32;not null;uniqueIndex:idx_course_member_role" json:"role"`
	Status    string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanGrade reports whether the enrolment grants grading capability.
func (m CourseMember) CanGrade() bool {
	if m.Status != MemberStatusActive {
		return false
	}
	for _, role := range GradingRoles {
		if m.Role == role {
			return true
		}
	}
	return false
}
