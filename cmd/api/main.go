package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-taskboard-api/internal/config"
	"github.com/go-taskboard-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-taskboard-api/internal/infrastructure/jwt"
	s3infra "github.com/go-taskboard-api/internal/infrastructure/s3"
	"github.com/go-taskboard-api/internal/infrastructure/smtp"
	"github.com/go-taskboard-api/internal/infrastructure/sns"
	"github.com/go-taskboard-api/internal/pkg/logx"
	transporthttp "github.com/go-taskboard-api/internal/transport/http"
	appmiddleware "github.com/go-taskboard-api/internal/transport/http/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logx.New(logx.Config{
		Service: "taskboard-api",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(cfg)
	if err != nil {
		return err
	}
	if cfg.DynamoBootstrap {
		if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
			return fmt.Errorf("bootstrap tables: %w", err)
		}
	}

	// Development falls back to throwaway keys; anywhere else missing keys are fatal.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		if !cfg.IsDevelopment() {
			return fmt.Errorf("jwt provider: %w", err)
		}
		logger.Warn("JWT keys not available, using ephemeral keys", "err", err)
		if jwtProvider, err = jwtinfra.NewEphemeralProvider(cfg.JWTExpiry); err != nil {
			return err
		}
	}

	s3Client, err := s3infra.NewClient(cfg)
	if err != nil {
		return err
	}

	authLimiter := appmiddleware.NewRateLimiter(rate.Limit(cfg.AuthRateLimit), cfg.AuthRateBurst)
	defer authLimiter.Stop()
	if err := authLimiter.TrustProxies(cfg.TrustedProxies); err != nil {
		return err
	}

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UserEmails),
		TaskRepo:       dynamo.NewTaskRepo(dynamoClient, cfg.DynamoTables.Tasks),
		DepartmentRepo: dynamo.NewDepartmentRepo(dynamoClient, cfg.DynamoTables.Departments),
		AttachmentRepo: dynamo.NewAttachmentRepo(dynamoClient, cfg.DynamoTables.Attachments),
		ObjectStore:    s3infra.NewStore(s3Client, cfg.S3BucketName),
		Mailer:         smtp.NewMailer(cfg),
		Tokens:         jwtProvider,
		AuthLimiter:    authLimiter,
	}

	if cfg.SNSEnabled {
		sender, err := sns.NewSender(cfg)
		if err != nil {
			logger.Warn("SNS sender not available, assignment SMS disabled", "err", err)
		} else {
			deps.SMSSender = sender
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.AppPort)
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

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
