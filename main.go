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
	"github.com/princinho/moviebackend/archive"
	"github.com/princinho/moviebackend/config"
	"github.com/princinho/moviebackend/database"
	"github.com/princinho/moviebackend/notify"
	"github.com/princinho/moviebackend/server"
	"github.com/princinho/moviebackend/services"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"github.com/princinho/moviebackend/worker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.WorkerPath); err != nil {
		return fmt.Errorf("WORKER_PATH: %w", err)
	}

	client, err := database.Connect(ctx, cfg.MongoURI, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(shutdownCtx)
	}()

	db := client.Database(cfg.DatabaseName)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	users := database.NewUserRepository(db)
	history := database.NewHistoryRepository(db)

	issuer, err := utils.NewTokenIssuer(cfg.JWTSecret, utils.TokenLifetime)
	if err != nil {
		return err
	}

	var archiver archive.Archiver = archive.Nop{}
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCSClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		archiver = archive.NewGCS(gcs, cfg.ArchiveBucket)
		logger.Info("history archive enabled", zap.String("bucket", cfg.ArchiveBucket))
	}

	process := worker.NewProcess(worker.Options{
		Path:        cfg.WorkerPath,
		Interpreter: cfg.WorkerInterpreter,
		Timeout:     cfg.WorkerTimeout,
	}, logger)
	pool := worker.NewPool(process, cfg.WorkerMaxConcurrent, cfg.WorkerMaxQueue)

	creds := services.NewCredentialStore(users, utils.NewBcryptHasher(), store.DefaultLockoutPolicy, nil)
	mailer := notify.NewLogMailer(logger, cfg.BaseURL, cfg.IsDevelopment())
	ledger := services.NewHistoryLedger(history, nil)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := creds.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		logger.Info("admin account checked", zap.Bool("created", created))
	}

	router, err := server.NewRouter(cfg, server.Deps{
		Auth:            services.NewAuthService(creds, users, issuer, mailer, logger),
		Users:           services.NewUserService(users, history, archiver, logger, nil),
		Recommendations: services.NewRecommendationBroker(pool, ledger, logger),
		History:         ledger,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
		)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.WorkerTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
