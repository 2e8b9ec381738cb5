package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/ai-project-hub/internal/config"
	"github.com/noah-isme/ai-project-hub/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// DependencyCheck probes one backing service.
type DependencyCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck reports the service identity and the state of each dependency.
// Any failing probe turns the response into a 503 with status degraded.
func HealthCheck(cfg config.Config, checks ...DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:       "ok",
			Timestamp:    time.Now().UTC(),
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			Dependencies: make(map[string]string, len(checks)),
		}

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
			err := check.Probe(ctx)
			cancel()

			if err != nil {
				payload.Dependencies[check.Name] = "down"
				payload.Status = "degraded"
				continue
			}
			payload.Dependencies[check.Name] = "up"
		}

		if payload.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
