package dto

import "time"

// CourseOverviewResponse summarises a gradable course on the evaluator dashboard.
type CourseOverviewResponse struct {
	ID              uint   `json:"id"`
	FullName        string `json:"full_name"`
	ShortName       string `json:"short_name"`
	ActivityCount   int64  `json:"activity_count"`
	SubmissionCount int64  `json:"submission_count"`
	StudentCount    int64  `json:"student_count"`
}

// DashboardSummary totals the dashboard counters across courses.
type DashboardSummary struct {
	TotalCourses     int   `json:"total_courses"`
	TotalActivities  int64 `json:"total_activities"`
	TotalSubmissions int64 `json:"total_submissions"`
	TotalStudents    int64 `json:"total_students"`
}

// EvaluatorDashboardResponse is the landing view of the evaluator.
type EvaluatorDashboardResponse struct {
	Courses     []CourseOverviewResponse `json:"courses"`
	Summary     DashboardSummary         `json:"summary"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// ActivityOverviewResponse describes an activity and its submissions.
type ActivityOverviewResponse struct {
	ID                 uint       `json:"id"`
	Name               string     `json:"name"`
	Section            int        `json:"section"`
	DueDate            *time.Time `json:"due_date"`
	MaxGrade           float64    `json:"max_grade"`
	Overdue            bool       `json:"overdue"`
	SubmittedCount     int64      `json:"submitted_count"`
	LatestSubmissionAt *time.Time `json:"latest_submission_at"`
}

// CourseActivitiesResponse lists the activities of a course.
type CourseActivitiesResponse struct {
	Course           CourseRef                  `json:"course"`
	EnrolledStudents int64                      `json:"enrolled_students"`
	Activities       []ActivityOverviewResponse `json:"activities"`
}

// SubmissionListFilter narrows the submissions listed for an activity.
type SubmissionListFilter struct {
	Status string `query:"status" validate:"omitempty,oneof=submitted draft all"`
}

// SubmissionListItem is one row of the activity submissions table.
type SubmissionListItem struct {
	ID            uint       `json:"id"`
	Student       StudentRef `json:"student"`
	Status        string     `json:"status"`
	AttemptNumber int        `json:"attempt_number"`
	FileCount     int        `json:"file_count"`
	HasText       bool       `json:"has_text"`
	GradingState  string     `json:"grading_state"`
	Grade         *float64   `json:"grade"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SubmissionStatsResponse summarises grading progress.
type SubmissionStatsResponse struct {
	Submitted    int64   `json:"submitted"`
	Graded       int64   `json:"graded"`
	AverageGrade float64 `json:"average_grade"`
}

// ActivitySubmissionsResponse lists the submissions of an activity.
type ActivitySubmissionsResponse struct {
	Course      CourseRef               `json:"course"`
	Activity    ActivityRef             `json:"activity"`
	Stats       SubmissionStatsResponse `json:"stats"`
	Submissions []SubmissionListItem    `json:"submissions"`
}
