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

	"task_manager/internal/config"
	"task_manager/internal/handler"
	"task_manager/internal/logging"
	"task_manager/internal/middleware"
	"task_manager/internal/notify"
	"task_manager/internal/repository"
	"task_manager/internal/repository/memory"
	"task_manager/internal/service"
	"task_manager/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// run wires the server and blocks until it is signalled to stop
func run() error {
	// Load .env file
	envErr := godotenv.Load()

	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(logging.Config{
		Service: "task-manager",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if envErr != nil {
		logger.Info("no .env file found, relying on environment variables")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		userRepo    repository.UserRepository
		taskRepo    repository.TaskRepository
		healthCheck func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		dbPool, err := config.ConnectDB(ctx, cfg.DB, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbPool.Close()

		if err := config.AutoMigrate(dbPool); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database migrations applied")

		userRepo = repository.NewUserRepository(dbPool)
		taskRepo = repository.NewTaskRepository(dbPool)
		healthCheck = dbPool.Ping
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		users := memory.NewUserStore()
		userRepo = users
		taskRepo = memory.NewTaskStore(users)
	}

	accounts, err := userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if accounts == 0 {
		logger.Info("no accounts yet, the first registration becomes admin")
	}

	// --- Initialize Utilities ---
	utils.SetHashCost(cfg.BcryptCost)
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpirationHours)
	hub := notify.NewHub(cfg.ClientURLs, logger)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, jwtUtil)
	taskService := service.NewTaskService(taskRepo, userRepo, hub, cfg.StrictTaskOwnership)

	// --- Setup Gin Router ---
	router, err := handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		JWTUtil:     jwtUtil,
		Users:       userRepo,
		AuthService: authService,
		TaskService: taskService,
		Hub:         hub,
		Cookie: handler.CookieConfig{
			MaxAge: cfg.CookieMaxAge,
			Secure: cfg.CookieSecure,
		},
		ClientURLs: cfg.ClientURLs,
		AuthRateLimit: middleware.RateLimitConfig{
			RequestsPerWindow: cfg.AuthRateLimitRequests,
			Window:            cfg.AuthRateLimitWindow,
		},
		HealthCheck: healthCheck,
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	// --- Start Server ---
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	var listenErr error
	select {
	case <-ctx.Done():
	case listenErr = <-serveErr:
		logger.Error("listen failed", "err", listenErr)
	}
	logger.Info("shutting down server")

	// Hijacked websocket connections are not tracked by Shutdown
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "err", err)
	}

	logger.Info("server exiting")
	return listenErr
}
