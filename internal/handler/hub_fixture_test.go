package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/config"
	"github.com/noah-isme/ai-project-hub/internal/handler"
	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/navigation"
	"github.com/noah-isme/ai-project-hub/internal/repository"
	"github.com/noah-isme/ai-project-hub/internal/router"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/internal/utils"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

const (
	teacherID  uint = 900
	outsiderID uint = 901
)

// backendStub plays the AI evaluation backend.
type backendStub struct {
	server      *httptest.Server
	fail        atomic.Bool
	evaluations atomic.Int32
}

func newBackendStub(t *testing.T) *backendStub {
	t.Helper()
	stub := &backendStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if stub.fail.Load() {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/generate-project/":
			_, _ = w.Write([]byte(`{"project_description":"Build a realtime chat with websockets."}`))
		case "/evaluate-project/", "/evaluate-github-repo/":
			stub.evaluations.Add(1)
			_, _ = w.Write([]byte(`{"evaluation":{"overall_score":87.5,"scores":{"code_quality":85,"functionality_correctness":90,"documentation":80},"report":{"strengths":["Clear layout"],"areas_of_improvement":["Add tests"],"summary":"Good structure"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

type hubFixture struct {
	Course     models.Course
	Student    models.Student
	Activity   models.Activity
	Submission models.Submission
}

type hubHarness struct {
	app     *fiber.App
	db      *gorm.DB
	backend *backendStub
	fixture hubFixture
}

// testAuth stands in for JWT validation, reading the identity from test headers.
func testAuth(c *fiber.Ctx) error {
	raw := c.Get("X-Test-User")
	if raw == "" {
		return utils.Fail(c, fiber.StatusUnauthorized, "missing authorization header", nil)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return utils.Fail(c, fiber.StatusUnauthorized, "invalid token", nil)
	}
	c.Locals("user_id", uint(id))
	c.Locals("user_role", c.Get("X-Test-Role"))
	return c.Next()
}

func setupHubApp(t *testing.T) hubHarness {
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

	backend := newBackendStub(t)
	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	client, err := evaluator.New(evaluator.Config{BaseURL: backend.server.URL, Timeout: 5 * time.Second, Logger: logger})
	require.NoError(t, err)

	courses := repository.NewCourseRepository(db)
	activities := repository.NewActivityRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	grades := repository.NewGradeRepository(db)
	audit := service.NewAuditService(repository.NewActivityLogRepository(db), logger)
	gradebook := service.NewGradebookService(repository.NewGradebookRepository(db), nil, "hub", nil, logger)

	grading := service.NewSubmissionGradeService(service.GradingDependencies{
		Courses:     courses,
		Activities:  activities,
		Submissions: submissions,
		Students:    repository.NewStudentRepository(db),
		Grades:      grades,
		Evaluator:   client,
		Files:       service.NewHTTPFileSource(5*time.Second, 1<<20),
		Gradebook:   gradebook,
		Audit:       audit,
		Logger:      logger,
	})
	dashboard := service.NewEvaluatorDashboardService(courses, activities, submissions, grades, nil, time.Minute, logger)
	generator := service.NewProjectGeneratorService(service.GeneratorDependencies{
		Courses:          courses,
		Activities:       activities,
		Drafter:          client,
		Audit:            audit,
		Validator:        validate,
		MaxDocumentBytes: 1 << 20,
		Logger:           logger,
	})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Hub Test", AppEnv: "test", SuggestionRateLimit: 100}, router.Dependencies{
		GradingHandler:            handler.NewGradingHandler(grading, validate, logger),
		EvaluatorDashboardHandler: handler.NewEvaluatorDashboardHandler(dashboard, validate, logger),
		GeneratorHandler:          handler.NewGeneratorHandler(generator, logger),
		StudentGradesHandler:      handler.NewStudentGradesHandler(gradebook, logger),
		Navigation:                navigation.DefaultRegistry(),
		JWTMiddleware:             testAuth,
	})

	return hubHarness{app: app, db: db, backend: backend, fixture: seedHubFixture(t, db)}
}

func seedHubFixture(t *testing.T, db *gorm.DB) hubFixture {
	t.Helper()

	course := models.Course{FullName: "Web Programming", ShortName: "WEB101", Visible: true}
	require.NoError(t, db.Create(&course).Error)

	student := models.Student{FirstName: "Sari", LastName: "Putri", Email: "sari@example.com"}
	require.NoError(t, db.Create(&student).Error)

	members := []models.CourseMember{
		{CourseID: course.ID, UserID: teacherID, Role: models.CourseRoleEditingTeacher, Status: models.MemberStatusActive},
		{CourseID: course.ID, UserID: student.ID, Role: models.CourseRoleStudent, Status: models.MemberStatusActive},
	}
	require.NoError(t, db.Create(&members).Error)

	due := time.Now().Add(48 * time.Hour)
	activity := models.Activity{CourseID: course.ID, Name: "Portfolio Site", Intro: "<p>Build a site</p>", DueDate: &due, MaxGrade: 100, Visible: true}
	require.NoError(t, db.Omit("Course").Create(&activity).Error)

	submission := models.Submission{
		ActivityID: activity.ID,
		StudentID:  student.ID,
		OnlineText: "My portfolio is finished.",
		Status:     models.SubmissionStatusSubmitted,
	}
	require.NoError(t, db.Omit("Activity", "Student").Create(&submission).Error)

	return hubFixture{Course: course, Student: student, Activity: activity, Submission: submission}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func (h hubHarness) do(t *testing.T, method, path string, userID uint, role string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
		req.Header.Set("X-Test-Role", role)
	}

	return h.send(t, req)
}

func (h hubHarness) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}
