package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"vacations-api/internal/auth"
	"vacations-api/internal/config"
	apphttp "vacations-api/internal/http"
	"vacations-api/internal/repository/sqlite"
	"vacations-api/internal/service"
	"vacations-api/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		logger.Fatalf("migrate database: %v", err)
	}

	userRepo := sqlite.NewUserRepository(db)
	vacationRepo := sqlite.NewVacationRepository(db)
	followerRepo := sqlite.NewFollowerRepository(db)

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	userService := service.NewUserService(userRepo, hasher)
	vacationService := service.NewVacationService(service.VacationConfig{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		URLTTL:    cfg.Storage.URLTTL,
		Logger:    logger,
	}, vacationRepo, followerRepo, storageSvc)

	if cfg.HasAdmin() {
		admin, created, err := userService.EnsureAdmin(ctx, service.RegisterInput{
			FirstName: cfg.Admin.FirstName,
			LastName:  cfg.Admin.LastName,
			Email:     cfg.Admin.Email,
			Password:  cfg.Admin.Password,
		})
		if err != nil {
			logger.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			logger.Infof("created admin account %s", admin.Email)
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	handler := apphttp.NewHandler(
		userService,
		vacationService,
		tokens,
		auth.NewBearerAuthorizer(tokens),
		apphttp.Options{
			Logger:         logger,
			Metrics:        apphttp.NewMetrics(),
			MaxUploadBytes: cfg.Upload.MaxBytes,
			AuthPerMinute:  cfg.RateLimit.AuthPerMinute,
		},
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
