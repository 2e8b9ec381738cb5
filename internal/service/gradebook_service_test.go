package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/repository"
)

func TestGradebookPublishUpsertsAndInvalidatesDashboard(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db, "My portfolio")

	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	cache := newDashboardCache(redisClient, time.Minute, testLogger())
	cache.set(context.Background(), teacherID, []uint{fx.Course.ID}, map[string]string{"stale": "yes"})
	require.True(t, server.Exists(dashboardKey(teacherID)))

	svc := NewGradebookService(repository.NewGradebookRepository(db), nil, "hub", redisClient, testLogger())
	fixed := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.(*gradebookService).now = func() time.Time { return fixed }

	publication := GradebookPublication{
		CourseID:   fx.Course.ID,
		ActivityID: fx.Activity.ID,
		StudentID:  fx.Student.ID,
		Grade:      80,
		Feedback:   "Good",
		GraderID:   teacherID,
	}

	entry, err := svc.PublishToGradebook(context.Background(), publication)
	require.NoError(t, err)
	require.Equal(t, 80.0, entry.Grade)
	require.Equal(t, models.DefaultMaxGrade, entry.GradeMax)
	require.True(t, entry.GradedAt.Equal(fixed))

	require.False(t, server.Exists(dashboardKey(teacherID)))
	require.False(t, server.Exists(dashboardCourseIndexKey(fx.Course.ID)))

	publication.Grade = 95
	publication.Feedback = "Better"
	_, err = svc.PublishToGradebook(context.Background(), publication)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.GradebookEntry{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	grades, err := svc.ListForStudent(context.Background(), fx.Student.ID)
	require.NoError(t, err)
	require.Len(t, grades.Items, 1)
	require.Equal(t, 95.0, grades.Items[0].Grade)
	require.Equal(t, "Better", grades.Items[0].Feedback)
	require.Equal(t, "Portfolio Site", grades.Items[0].ActivityName)
	require.Equal(t, "Web Programming", grades.Items[0].CourseName)
}

func TestGradebookPublishWithoutOptionalBackends(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db, "My portfolio")

	svc := NewGradebookService(repository.NewGradebookRepository(db), nil, "", nil, testLogger())
	_, err := svc.PublishToGradebook(context.Background(), GradebookPublication{
		CourseID:   fx.Course.ID,
		ActivityID: fx.Activity.ID,
		StudentID:  fx.Student.ID,
		Grade:      40,
		GradeMax:   50,
	})
	require.NoError(t, err)

	grades, err := svc.ListForStudent(context.Background(), fx.Student.ID)
	require.NoError(t, err)
	require.Len(t, grades.Items, 1)
	require.Equal(t, 50.0, grades.Items[0].GradeMax)

	empty, err := svc.ListForStudent(context.Background(), fx.Student.ID+99)
	require.NoError(t, err)
	require.Empty(t, empty.Items)
}

func TestGradebookStreamsEventsToPublishedStudentOnly(t *testing.T) {
	db := setupTestDB(t)
	fx := seedGradingFixture(t, db, "My portfolio")

	svc := NewGradebookService(repository.NewGradebookRepository(db), nil, "", nil, testLogger())

	mine, cleanupMine := svc.Subscribe(fx.Student.ID)
	defer cleanupMine()
	other, cleanupOther := svc.Subscribe(fx.Student.ID + 1)
	defer cleanupOther()

	_, err := svc.PublishToGradebook(context.Background(), GradebookPublication{
		CourseID:   fx.Course.ID,
		ActivityID: fx.Activity.ID,
		StudentID:  fx.Student.ID,
		Grade:      88,
		GradeMax:   100,
		Feedback:   "Tidy",
		GraderID:   teacherID,
	})
	require.NoError(t, err)

	select {
	case event := <-mine:
		require.Equal(t, GradePublishedEvent, event.Type)
		require.Equal(t, fx.Activity.ID, event.ActivityID)
		require.Equal(t, 88.0, event.Grade)
	case <-time.After(time.Second):
		t.Fatal("expected grade event for the published student")
	}

	select {
	case event := <-other:
		t.Fatalf("unexpected event for another student: %+v", event)
	default:
	}
}

func TestGradebookRelaysRemoteEventsAndSkipsOwn(t *testing.T) {
	db := setupTestDB(t)
	svc := NewGradebookService(repository.NewGradebookRepository(db), nil, "hub", nil, testLogger()).(*gradebookService)

	events, cleanup := svc.Subscribe(7)

	remote, err := json.Marshal(gradePublishedMessage{Type: GradePublishedEvent, Source: "other-node", StudentID: 7, ActivityID: 3, Grade: 61})
	require.NoError(t, err)
	own, err := json.Marshal(gradePublishedMessage{Type: GradePublishedEvent, Source: svc.nodeID, StudentID: 7, ActivityID: 4, Grade: 99})
	require.NoError(t, err)

	svc.handleEvent(own)
	svc.handleEvent([]byte("not json"))
	svc.handleEvent(remote)

	event := <-events
	require.Equal(t, uint(3), event.ActivityID)
	require.Equal(t, 61.0, event.Grade)

	cleanup()
	cleanup()
	_, open := <-events
	require.False(t, open)
}
