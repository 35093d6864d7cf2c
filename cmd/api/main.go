// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Marga-Ghale/ora-workspaces/internal/api"
	"github.com/Marga-Ghale/ora-workspaces/internal/config"
	"github.com/Marga-Ghale/ora-workspaces/internal/cron"
	"github.com/Marga-Ghale/ora-workspaces/internal/db"
	"github.com/Marga-Ghale/ora-workspaces/internal/email"
	"github.com/Marga-Ghale/ora-workspaces/internal/logger"
	"github.com/Marga-Ghale/ora-workspaces/internal/repository"
	"github.com/Marga-Ghale/ora-workspaces/internal/seed"
	"github.com/Marga-Ghale/ora-workspaces/internal/service"
	"github.com/Marga-Ghale/ora-workspaces/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables and configuration
	// ============================================
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.Setup(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDevelopment(),
	})
	defer log.Sync()

	if envErr != nil {
		log.Debug("no .env file found, using environment variables")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	if err := db.RunMigrations(cfg.DatabaseURL, log); err != nil {
		return err
	}

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	pg, err := db.NewPostgresDB(cfg.DatabaseURL, db.PoolConfig{
		MaxConns: int32(cfg.DBMaxConns),
		MinConns: int32(cfg.DBMinConns),
	}, log)
	if err != nil {
		return err
	}
	defer pg.Close()

	repos := repository.NewPgRepositories(pg.Pool)

	deps := &service.ServiceDeps{
		Config: cfg,
		Repos:  repos,
		Logger: log,
	}
	routerDeps := api.RouterDeps{
		Database:    repos,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	}

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	if cfg.RedisURL != "" {
		redisDB, err := db.NewRedisDB(cfg.RedisURL, log)
		if err != nil {
			log.Warn("failed to connect to Redis, continuing without token blocklist", zap.Error(err))
		} else {
			defer redisDB.Close()
			deps.Blocklist = redisDB
			routerDeps.Cache = redisDB
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	if cfg.SMTPHost != "" {
		deps.Notifier = email.NewService(&email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		}, log)
		log.Info("email service initialized", zap.String("host", cfg.SMTPHost))
	} else {
		log.Info("email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := socket.NewHub(log)
	go hub.Run(hubCtx)
	deps.Publisher = socket.NewBroadcaster(hub)

	services := service.NewServices(deps)

	routerDeps.Services = services
	routerDeps.Hub = hub
	routerDeps.WebSocket = socket.NewHandler(
		hub,
		func(ctx context.Context, token string) (string, error) {
			claims, err := services.Auth.Authenticate(ctx, token)
			if err != nil {
				return "", err
			}
			return claims.Subject, nil
		},
		func(ctx context.Context, userID, workspaceID string) error {
			_, _, err := services.Workspace.Get(ctx, userID, workspaceID)
			return err
		},
		cfg.CORSOrigins,
		log,
	)

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.SeedData && !cfg.IsProduction() {
		if err := seed.SeedData(ctx, repos, services, log); err != nil {
			log.Error("seeding failed", zap.Error(err))
		}
	}

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(repos.UserRepo, cfg.TokenCleanupCron, log)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	// ============================================
	// Start Server
	// ============================================
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(routerDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("server exited")
	return nil
}
