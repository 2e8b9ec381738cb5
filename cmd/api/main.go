package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ai-project-hub/internal/config"
	"github.com/noah-isme/ai-project-hub/internal/database"
	"github.com/noah-isme/ai-project-hub/internal/handler"
	"github.com/noah-isme/ai-project-hub/internal/middleware"
	"github.com/noah-isme/ai-project-hub/internal/models"
	"github.com/noah-isme/ai-project-hub/internal/navigation"
	"github.com/noah-isme/ai-project-hub/internal/repository"
	"github.com/noah-isme/ai-project-hub/internal/router"
	"github.com/noah-isme/ai-project-hub/internal/service"
	"github.com/noah-isme/ai-project-hub/pkg/ai"
	"github.com/noah-isme/ai-project-hub/pkg/evaluator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.AppEnv == "development")
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled, dashboard responses are not cached")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	evaluatorClient, err := evaluator.New(evaluator.Config{
		BaseURL:        cfg.EvaluatorBaseURL,
		ConnectTimeout: cfg.EvaluatorConnectTimeout,
		Timeout:        cfg.EvaluatorTimeout,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to create evaluator client: %v", err)
	}

	textEvaluator, err := buildTextEvaluator(cfg, evaluatorClient, logger)
	if err != nil {
		log.Fatalf("failed to create text evaluator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	auditService := service.NewAuditService(repository.NewActivityLogRepository(db), logger)
	gradebookService := service.NewGradebookService(repository.NewGradebookRepository(db), natsConn, cfg.EventChannel, redisClient, logger)

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	gradebookService.Start(eventsCtx)
	gradingService := service.NewSubmissionGradeService(service.GradingDependencies{
		Courses:       courseRepo,
		Activities:    activityRepo,
		Submissions:   submissionRepo,
		Students:      repository.NewStudentRepository(db),
		Grades:        gradeRepo,
		Evaluator:     evaluatorClient,
		TextEvaluator: textEvaluator,
		Files:         service.NewHTTPFileSource(cfg.EvaluatorTimeout, int64(cfg.MaxDocumentSizeMB)<<20),
		Gradebook:     gradebookService,
		Audit:         auditService,
		Logger:        logger,
	})
	dashboardService := service.NewEvaluatorDashboardService(courseRepo, activityRepo, submissionRepo, gradeRepo, redisClient, cfg.DashboardCacheTTL, logger)
	generatorService := service.NewProjectGeneratorService(service.GeneratorDependencies{
		Courses:          courseRepo,
		Activities:       activityRepo,
		Drafter:          evaluatorClient,
		Audit:            auditService,
		Redis:            redisClient,
		Validator:        validate,
		MaxDocumentBytes: int64(cfg.MaxDocumentSizeMB) << 20,
		Logger:           logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (service.MaxReferenceDocuments*cfg.MaxDocumentSizeMB + 1) << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.EvaluatorTimeout + 10*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler:            handler.NewGradingHandler(gradingService, validate, logger),
		EvaluatorDashboardHandler: handler.NewEvaluatorDashboardHandler(dashboardService, validate, logger),
		GeneratorHandler:          handler.NewGeneratorHandler(generatorService, logger),
		StudentGradesHandler:      handler.NewStudentGradesHandler(gradebookService, logger),
		Navigation:                navigation.DefaultRegistry(),
		HealthChecks:              healthChecks(db, redisClient),
		JWTMiddleware:             middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("evaluator", cfg.EvaluatorBaseURL).Msg("project hub started")
	waitForShutdown(app, logger)
}

// buildTextEvaluator picks the grader for text-only submissions.
func buildTextEvaluator(cfg config.Config, backend *evaluator.Client, logger zerolog.Logger) (evaluator.TextEvaluator, error) {
	switch cfg.TextEvaluatorProvider {
	case "openai":
		return ai.NewOpenAIEvaluator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
	case "none", "archive":
		return nil, nil
	default:
		return backend, nil
	}
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) []handler.DependencyCheck {
	checks := []handler.DependencyCheck{{
		Name: "database",
		Probe: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		checks = append(checks, handler.DependencyCheck{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
