package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/ai-project-hub/internal/dto"
	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/observability"
	"github.com/noah-isme/ai-project-hub/internal/repository"
)

const gradeStreamBufferSize = 16

// GradePublishedEvent is broadcast when a grade reaches the gradebook.
const GradePublishedEvent = "grade.published"

// GradebookPublication carries the values made visible to the student.
type GradebookPublication struct {
	CourseID   uint
	ActivityID uint
	StudentID  uint
	Grade      float64
	GradeMax   float64
	Feedback   string
	GraderID   uint
}

// GradebookPublisher makes a grade visible in the canonical grade report.
type GradebookPublisher interface {
	PublishToGradebook(ctx context.Context, publication GradebookPublication) (models.GradebookEntry, error)
}

// GradebookService publishes grades and serves them back to students.
type GradebookService interface {
	GradebookPublisher
	ListForStudent(ctx context.Context, studentID uint) (dto.StudentGradesResponse, error)
	// Subscribe streams grade events for one student until cleanup is called.
	Subscribe(studentID uint) (<-chan dto.GradeEventResponse, func())
	// Start relays grade events published by other nodes until ctx is done.
	Start(ctx context.Context)
}

type gradePublishedMessage struct {
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	CourseID   uint      `json:"course_id"`
	ActivityID uint      `json:"activity_id"`
	StudentID  uint      `json:"student_id"`
	Grade      float64   `json:"grade"`
	GradeMax   float64   `json:"grade_max"`
	GradedAt   time.Time `json:"graded_at"`
}

type gradebookService struct {
	repo        repository.GradebookRepository
	nats        *nats.Conn
	natsSubject string
	cache       *dashboardCache
	tracer      trace.Tracer
	logger      zerolog.Logger
	nodeID      string
	now         func() time.Time
	broker      *gradeBroker
}

type gradeBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.GradeEventResponse]struct{}
}

// NewGradebookService constructs the gradebook hook. The NATS connection and
// Redis client are optional.
func NewGradebookService(repo repository.GradebookRepository, natsConn *nats.Conn, channelBase string, redisClient *redis.Client, logger zerolog.Logger) GradebookService {
	subject := ""
	if channelBase != "" {
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grades"
	}

	log := logger.With().Str("component", "gradebook_service").Logger()
	return &gradebookService{
		repo:        repo,
		nats:        natsConn,
		natsSubject: subject,
		cache:       newDashboardCache(redisClient, 0, log),
		tracer:      otel.Tracer("github.com/noah-isme/ai-project-hub/internal/service/gradebook"),
		logger:      log,
		nodeID:      uuid.NewString(),
		now:         time.Now,
		broker: &gradeBroker{
			subscribers: make(map[uint]map[chan dto.GradeEventResponse]struct{}),
		},
	}
}

func (s *gradebookService) PublishToGradebook(ctx context.Context, publication GradebookPublication) (models.GradebookEntry, error) {
	ctx, span := s.tracer.Start(ctx, "gradebook.publish", trace.WithAttributes(
		attribute.Int64("gradebook.course_id", int64(publication.CourseID)),
		attribute.Int64("gradebook.activity_id", int64(publication.ActivityID)),
		attribute.Int64("gradebook.student_id", int64(publication.StudentID)),
	))
	defer span.End()

	gradeMax := publication.GradeMax
	if gradeMax <= 0 {
		gradeMax = models.DefaultMaxGrade
	}

	entry, err := s.repo.Upsert(ctx, models.GradebookEntry{
		CourseID:   publication.CourseID,
		ActivityID: publication.ActivityID,
		StudentID:  publication.StudentID,
		Grade:      publication.Grade,
		GradeMax:   gradeMax,
		Feedback:   publication.Feedback,
		GradedBy:   publication.GraderID,
		GradedAt:   s.now().UTC(),
	})
	if err != nil {
		recordSpanError(span, err)
		return models.GradebookEntry{}, err
	}

	s.broadcast(entry)
	s.cache.invalidateCourse(ctx, publication.CourseID)

	return entry, nil
}

func (s *gradebookService) ListForStudent(ctx context.Context, studentID uint) (dto.StudentGradesResponse, error) {
	entries, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return dto.StudentGradesResponse{}, err
	}

	items := make([]dto.GradebookEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewGradebookEntryResponse(entry))
	}

	return dto.StudentGradesResponse{Items: items}, nil
}

func (s *gradebookService) Subscribe(studentID uint) (<-chan dto.GradeEventResponse, func()) {
	channel := make(chan dto.GradeEventResponse, gradeStreamBufferSize)
	s.broker.subscribe(studentID, channel)
	observability.GradeStreamClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(studentID, channel)
			observability.GradeStreamClients().Dec()
		})
	}
	return channel, cleanup
}

func (s *gradebookService) Start(ctx context.Context) {
	if s.nats == nil || s.natsSubject == "" {
		return
	}

	// Every node serves its own stream clients, so no queue group here.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("subject", s.natsSubject).Msg("failed to subscribe to grade events")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn().Err(err).Msg("failed to drain grade event subscription")
		}
	}()
}

func (s *gradebookService) handleEvent(payload []byte) {
	var message gradePublishedMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		s.logger.Warn().Err(err).Msg("invalid grade event payload")
		return
	}

	if message.Source == s.nodeID || message.Type != GradePublishedEvent {
		return
	}

	s.broker.broadcast(message.StudentID, message.response())
}

func (s *gradebookService) broadcast(entry models.GradebookEntry) {
	message := gradePublishedMessage{
		Type:       GradePublishedEvent,
		Source:     s.nodeID,
		CourseID:   entry.CourseID,
		ActivityID: entry.ActivityID,
		StudentID:  entry.StudentID,
		Grade:      entry.Grade,
		GradeMax:   entry.GradeMax,
		GradedAt:   entry.GradedAt,
	}
	s.broker.broadcast(entry.StudentID, message.response())

	if s.nats == nil || s.natsSubject == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return
	}

	if err := s.nats.Publish(s.natsSubject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", s.natsSubject).Msg("failed to broadcast grade event")
	}
}

func (m gradePublishedMessage) response() dto.GradeEventResponse {
	return dto.GradeEventResponse{
		Type:       m.Type,
		CourseID:   m.CourseID,
		ActivityID: m.ActivityID,
		Grade:      m.Grade,
		GradeMax:   m.GradeMax,
		GradedAt:   m.GradedAt,
	}
}

func (b *gradeBroker) subscribe(studentID uint, ch chan dto.GradeEventResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[studentID]; !exists {
		b.subscribers[studentID] = make(map[chan dto.GradeEventResponse]struct{})
	}
	b.subscribers[studentID][ch] = struct{}{}
}

func (b *gradeBroker) unsubscribe(studentID uint, ch chan dto.GradeEventResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[studentID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, studentID)
		}
	}
}

// broadcast drops events for subscribers whose buffer is full.
func (b *gradeBroker) broadcast(studentID uint, event dto.GradeEventResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[studentID] {
		select {
		case ch <- event:
		default:
		}
	}
}
