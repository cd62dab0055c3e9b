package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/training-enrollment-api/api/swagger"
	"github.com/noah-isme/training-enrollment-api/internal/handler"
	"github.com/noah-isme/training-enrollment-api/internal/middleware"
	"github.com/noah-isme/training-enrollment-api/internal/repository"
	"github.com/noah-isme/training-enrollment-api/internal/scheduler"
	"github.com/noah-isme/training-enrollment-api/internal/service"
	"github.com/noah-isme/training-enrollment-api/pkg/cache"
	"github.com/noah-isme/training-enrollment-api/pkg/config"
	"github.com/noah-isme/training-enrollment-api/pkg/database"
	"github.com/noah-isme/training-enrollment-api/pkg/export"
	"github.com/noah-isme/training-enrollment-api/pkg/jobs"
	"github.com/noah-isme/training-enrollment-api/pkg/logger"
	"github.com/noah-isme/training-enrollment-api/pkg/mailer"
	"github.com/noah-isme/training-enrollment-api/pkg/messaging"
	corsmiddleware "github.com/noah-isme/training-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/training-enrollment-api/pkg/middleware/requestid"
)

// @title Training Enrollment API
// @version 1.0.0
// @description Enrollment lifecycle, seat accounting and student roll-up for the training back office.
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
		if err != nil {
			return fmt.Errorf("init migrator: %w", err)
		}
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		if version, dirty, err := migrator.Version(); err == nil {
			logr.Info("schema ready", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	}

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient redis.UniversalClient
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			redisClient = client
			defer client.Close()
			checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	trainingRepo := repository.NewTrainingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, redisClient != nil)
	trainingSvc := service.NewTrainingService(trainingRepo, cacheSvc, validate, logr)

	publisher, err := newPublisher(cfg.Events, logr)
	if err != nil {
		return err
	}
	defer publisher.Close()

	notifications := service.NewNotificationService(publisher, newMailer(cfg.Mail, logr), metricsSvc, logr)
	queue := jobs.NewQueue("notifications", notifications.Handle, jobs.QueueConfig{
		Workers:    cfg.Events.Workers,
		BufferSize: cfg.Events.BufferSize,
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
		Logger:     logr,
	})
	queue.Start(context.Background())
	defer queue.Stop()
	notifications.AttachQueue(queue)

	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, trainingRepo, repository.NewUnitOfWork(db), service.EnrollmentServiceDeps{
		Events:    notifications,
		Catalog:   trainingSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	studentSvc := service.NewStudentService(enrollmentRepo, trainingRepo, logr)
	exportSvc := service.NewExportService(enrollmentRepo, logr, export.NewCSVExporter(), export.NewPDFExporter())
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	if cfg.Digest.Enabled {
		digest := scheduler.New(enrollmentRepo, notifications, scheduler.Config{
			Schedule:   cfg.Digest.Schedule,
			PendingAge: cfg.Digest.PendingAge,
		}, logr)
		if err := digest.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer digest.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Routes{
		Auth:        handler.NewAuthHandler(authSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, studentSvc, exportSvc),
		Trainings:   handler.NewTrainingHandler(trainingSvc),
		Public:      handler.NewPublicHandler(enrollmentSvc, trainingSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc, checks),
		Tokens:      authSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPublisher(cfg config.EventsConfig, logr *zap.Logger) (messaging.Publisher, error) {
	if !cfg.Enabled {
		return messaging.NopPublisher{}, nil
	}
	publisher, err := messaging.NewRabbitMQPublisher(cfg.URL, cfg.Exchange, logr)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return publisher, nil
}

func newMailer(cfg config.MailConfig, logr *zap.Logger) mailer.Mailer {
	if !cfg.Enabled || cfg.APIKey == "" {
		return mailer.LogMailer{Logger: logr}
	}
	return mailer.NewSendGrid(cfg.APIKey, cfg.FromName, cfg.FromEmail)
}
