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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/config"
	"github.com/noah-isme/gradia-go-api/internal/database"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/middleware"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/internal/router"
	"github.com/noah-isme/gradia-go-api/internal/service"
	"github.com/noah-isme/gradia-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Rubric{},
		&models.RubricCriterion{},
		&models.Assignment{},
		&models.Submission{},
		&models.FeedbackDraft{},
		&models.CriterionScore{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, batch runs are not serialised across replicas")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, graded events will not be published")
	}

	engine, err := buildEngine(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create grading engine: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	gradingRepo := repository.NewGradingRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditService := service.NewAuditService(auditRepo, validate, logger)
	events := service.NewNATSEventPublisher(natsConn, cfg.EventSubject, logger)

	gradingService := service.NewGradingService(service.GradingServiceDeps{
		Submissions: submissionRepo,
		Assignments: assignmentRepo,
		Rubrics:     rubricRepo,
		Grading:     gradingRepo,
		Engine:      engine,
		Audit:       auditService,
		Events:      events,
		Validator:   validate,
		Logger:      logger,
	})
	batchService := service.NewBatchGradingService(service.BatchGradingServiceDeps{
		Submissions: submissionRepo,
		Assignments: assignmentRepo,
		Rubrics:     rubricRepo,
		Persister:   gradingService,
		Engine:      engine,
		Audit:       auditService,
		Events:      events,
		Redis:       redisClient,
		Validator:   validate,
		Concurrency: cfg.BatchConcurrency,
		Logger:      logger,
	})

	gradingHandler := handler.NewGradingHandler(gradingService, batchService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradingHandler: gradingHandler,
		AuditHandler:   auditHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildEngine(cfg config.Config, logger zerolog.Logger) (ai.GradingEngine, error) {
	if cfg.AIProvider == "anthropic" {
		return ai.NewAnthropicEngine(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AIModel,
		})
	}

	return ai.NewOpenAIEngine(ai.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.AIModel,
		MaxTokens: cfg.AIMaxTokens,
		Logger:    logger,
	})
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
