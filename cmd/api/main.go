package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sigea-go-api/internal/config"
	"github.com/noah-isme/sigea-go-api/internal/database"
	"github.com/noah-isme/sigea-go-api/internal/handler"
	"github.com/noah-isme/sigea-go-api/internal/middleware"
	"github.com/noah-isme/sigea-go-api/internal/models"
	"github.com/noah-isme/sigea-go-api/internal/repository"
	"github.com/noah-isme/sigea-go-api/internal/router"
	"github.com/noah-isme/sigea-go-api/internal/service"
	"github.com/noah-isme/sigea-go-api/internal/worker"
	"github.com/noah-isme/sigea-go-api/pkg/qrcode"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "sigea-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.Event{}, &models.Participant{}, &models.Registration{}, &models.CertificateTemplate{}, &models.Certificate{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	store, err := newObjectStorage(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to configure object storage")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	eventRepo := repository.NewEventRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	templateRepo := repository.NewCertificateTemplateRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)

	publisher := worker.NewCertificateEventPublisher(natsConn, cfg.ChannelBase, logger)
	gate := service.NewEligibilityGate(registrationRepo, cfg.CertificateCooldown)

	certificateService := service.NewCertificateService(gate, certificateRepo, eventRepo, publisher, logger)
	registrationService := service.NewRegistrationService(registrationRepo, eventRepo, participantRepo, certificateRepo, logger)
	eventService := service.NewEventService(eventRepo, certificateRepo, validate, logger)
	validationService := service.NewValidationService(certificateRepo, redisClient, cfg.ValidationCacheTTL, logger)
	renderService := service.NewRenderService(certificateRepo, templateRepo, store, qrcode.NewEncoder(), service.RenderConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		Location:      cfg.CertificateLocation,
	}, logger)
	templateService, err := service.NewTemplateService(templateRepo, eventRepo, certificateRepo, store, validate, cfg.TemplateMaxSizeMB, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build template service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.NewRenderSubscriber(natsConn, cfg.ChannelBase, renderService, logger).Start(ctx); err != nil {
		logger.Error().Err(err).Msg("async certificate rendering disabled")
	}

	sweeper, err := worker.NewRenderSweeper(renderService, cfg.RenderSweepSchedule, cfg.RenderSweepBatch, cfg.CertificateLocation, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to schedule render sweep")
	}
	sweeper.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.TemplateMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CertificateHandler:  handler.NewCertificateHandler(certificateService, renderService, logger),
		TemplateHandler:     handler.NewTemplateHandler(templateService, logger),
		ValidationHandler:   handler.NewValidationHandler(validationService, logger),
		RegistrationHandler: handler.NewRegistrationHandler(registrationService, logger),
		EventHandler:        handler.NewEventHandler(eventService, logger),
		HealthProbes:        healthProbes(db, redisClient, natsConn),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
