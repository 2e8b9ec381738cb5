package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/repository"
)

// Actor is the authenticated user performing an action.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor holds the site administrator role.
func (a Actor) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(a.Role), "admin")
}

// AuditEntry captures the details required to persist an audit entry.
type AuditEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// AuditRecorder persists and reads the grading audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
	History(ctx context.Context, entityType string, entityID uint, limit int) ([]models.ActivityLog, error)
}

type auditService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit trail recorder.
func NewAuditService(repo repository.ActivityLogRepository, logger zerolog.Logger) AuditRecorder {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}

	model := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  normalizeRole(entry.Actor.Role),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist audit entry")
		return err
	}

	return nil
}

func (s *auditService) History(ctx context.Context, entityType string, entityID uint, limit int) ([]models.ActivityLog, error) {
	id := entityID
	return s.repo.List(ctx, repository.ActivityLogFilter{
		EntityType: strings.ToLower(entityType),
		EntityID:   &id,
		Limit:      limit,
	})
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
