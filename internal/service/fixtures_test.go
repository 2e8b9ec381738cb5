package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/repository"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

const (
	teacherID  uint = 900
	outsiderID uint = 901
)

type gradingFixture struct {
	Course     models.Course
	Student    models.Student
	Activity   models.Activity
	Submission models.Submission
}

func seedGradingFixture(t *testing.T, db *gorm.DB, onlineText string, files ...models.SubmissionFile) gradingFixture {
	t.Helper()

	course := models.Course{FullName: "Web Programming", ShortName: "WEB101", Visible: true}
	require.NoError(t, db.Create(&course).Error)

	student := models.Student{FirstName: "Sari", LastName: "Putri", Email: fmt.Sprintf("sari+%d@example.com", course.ID)}
	require.NoError(t, db.Create(&student).Error)

	members := []models.CourseMember{
		{CourseID: course.ID, UserID: teacherID, Role: models.CourseRoleEditingTeacher, Status: models.MemberStatusActive},
		{CourseID: course.ID, UserID: student.ID, Role: models.CourseRoleStudent, Status: models.MemberStatusActive},
	}
	require.NoError(t, db.Create(&members).Error)

	due := time.Now().Add(72 * time.Hour)
	activity := models.Activity{CourseID: course.ID, Name: "Portfolio Site", Intro: "<p>Build a <b>site</b></p>", DueDate: &due, MaxGrade: 100, Visible: true}
	require.NoError(t, db.Omit("Course").Create(&activity).Error)

	submission := models.Submission{
		ActivityID: activity.ID,
		StudentID:  student.ID,
		OnlineText: onlineText,
		Status:     models.SubmissionStatusSubmitted,
		Files:      files,
	}
	require.NoError(t, db.Omit("Activity", "Student").Create(&submission).Error)

	return gradingFixture{Course: course, Student: student, Activity: activity, Submission: submission}
}

func teacher() Actor {
	return Actor{ID: teacherID, Role: "teacher"}
}

type stubEvaluator struct {
	mu            sync.Mutex
	result        evaluator.Result
	err           error
	archiveCalls  int
	githubCalls   int
	lastArchive   []byte
	lastCriteria  string
	lastGithubReq evaluator.GithubRepoRequest
}

func (s *stubEvaluator) EvaluateProjectArchive(ctx context.Context, archive []byte, criteria string) (evaluator.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archiveCalls++
	s.lastArchive = archive
	s.lastCriteria = criteria
	return s.result, s.err
}

func (s *stubEvaluator) EvaluateGithubRepo(ctx context.Context, req evaluator.GithubRepoRequest) (evaluator.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.githubCalls++
	s.lastGithubReq = req
	s.lastCriteria = req.Criteria
	return s.result, s.err
}

type stubTextEvaluator struct {
	calls  int
	result evaluator.Result
	err    error
}

func (s *stubTextEvaluator) EvaluateSubmissionText(ctx context.Context, text string, maxGrade float64) (evaluator.Result, error) {
	s.calls++
	return s.result, s.err
}

type mapFileSource map[string][]byte

func (m mapFileSource) Fetch(ctx context.Context, file models.SubmissionFile) ([]byte, error) {
	data, ok := m[file.FileURL]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

type recordingGradebook struct {
	calls []GradebookPublication
	// gradesAtCall captures the grade record as stored when the hook ran.
	gradesAtCall []models.GradeRecord
	grades       repository.GradeRepository
	err          error
}

func (r *recordingGradebook) PublishToGradebook(ctx context.Context, publication GradebookPublication) (models.GradebookEntry, error) {
	r.calls = append(r.calls, publication)
	if r.grades != nil {
		if record, err := r.grades.GetGradeRecord(ctx, publication.ActivityID, publication.StudentID); err == nil {
			r.gradesAtCall = append(r.gradesAtCall, record)
		}
	}
	if r.err != nil {
		return models.GradebookEntry{}, r.err
	}
	return models.GradebookEntry{
		CourseID:   publication.CourseID,
		ActivityID: publication.ActivityID,
		StudentID:  publication.StudentID,
		Grade:      publication.Grade,
		GradeMax:   publication.GradeMax,
		Feedback:   publication.Feedback,
		GradedBy:   publication.GraderID,
		GradedAt:   time.Now().UTC(),
	}, nil
}

// failingFeedbackRepo stores grade records normally but rejects feedback comments.
type failingFeedbackRepo struct {
	repository.GradeRepository
}

func (f failingFeedbackRepo) UpsertFeedbackComment(ctx context.Context, input repository.FeedbackWrite) (models.FeedbackComment, error) {
	return models.FeedbackComment{}, errors.New("comments table locked")
}

type gradingHarness struct {
	db        *gorm.DB
	svc       SubmissionGradeService
	grades    repository.GradeRepository
	evaluator *stubEvaluator
	text      *stubTextEvaluator
	gradebook *recordingGradebook
}

type harnessOption func(*GradingDependencies)

func newGradingHarness(t *testing.T, db *gorm.DB, opts ...harnessOption) gradingHarness {
	t.Helper()

	grades := repository.NewGradeRepository(db)
	eval := &stubEvaluator{}
	gradebook := &recordingGradebook{grades: grades}

	deps := GradingDependencies{
		Courses:     repository.NewCourseRepository(db),
		Activities:  repository.NewActivityRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
		Students:    repository.NewStudentRepository(db),
		Grades:      grades,
		Evaluator:   eval,
		Files:       mapFileSource{},
		Gradebook:   gradebook,
		Audit:       NewAuditService(repository.NewActivityLogRepository(db), testLogger()),
		Logger:      testLogger(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	text, _ := deps.TextEvaluator.(*stubTextEvaluator)
	return gradingHarness{
		db:        db,
		svc:       NewSubmissionGradeService(deps),
		grades:    grades,
		evaluator: eval,
		text:      text,
		gradebook: gradebook,
	}
}

func (h gradingHarness) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(model).Count(&count).Error)
	return count
}
