package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type gradingFixture struct {
	Course     models.Course
	Teacher    uint
	Student    models.Student
	Activity   models.Activity
	Submission models.Submission
}

func seedGradingFixture(t *testing.T, db *gorm.DB) gradingFixture {
	t.Helper()

	course := models.Course{FullName: "Web Programming", ShortName: "WEB101", Visible: true}
	require.NoError(t, db.Create(&course).Error)

	student := models.Student{FirstName: "Sari", LastName: "Putri", Email: fmt.Sprintf("sari+%d@example.com", course.ID)}
	require.NoError(t, db.Create(&student).Error)

	const teacherID = 900
	members := []models.CourseMember{
		{CourseID: course.ID, UserID: teacherID, Role: models.CourseRoleEditingTeacher, Status: models.MemberStatusActive},
		{CourseID: course.ID, UserID: student.ID, Role: models.CourseRoleStudent, Status: models.MemberStatusActive},
	}
	require.NoError(t, db.Create(&members).Error)

	due := time.Now().Add(72 * time.Hour)
	activity := models.Activity{CourseID: course.ID, Name: "Portfolio Site", Intro: "<p>Build a site</p>", DueDate: &due, MaxGrade: 100, Visible: true}
	require.NoError(t, db.Create(&activity).Error)

	submission := models.Submission{
		ActivityID:    activity.ID,
		StudentID:     student.ID,
		OnlineText:    "My portfolio",
		Status:        models.SubmissionStatusSubmitted,
		AttemptNumber: 0,
		Files: []models.SubmissionFile{
			{FileName: "index.html", FileURL: "https://files.example.com/index.html", SizeBytes: 120, MimeType: "text/html"},
		},
	}
	require.NoError(t, db.Omit("Activity", "Student").Create(&submission).Error)

	return gradingFixture{Course: course, Teacher: teacherID, Student: student, Activity: activity, Submission: submission}
}
