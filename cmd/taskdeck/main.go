package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskdeck/taskdeck/internal/config"
	httpserver "github.com/taskdeck/taskdeck/internal/http"
	"github.com/taskdeck/taskdeck/pkg/agent"
	"github.com/taskdeck/taskdeck/pkg/auth"
	"github.com/taskdeck/taskdeck/pkg/repository"
	"github.com/taskdeck/taskdeck/pkg/tools"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	credsRepo := repository.NewCredentialsRepository(db)
	rateLimitsRepo := repository.NewRateLimitsRepository(db)
	tasksRepo := repository.NewTasksRepository(db)
	conversationsRepo := repository.NewConversationsRepository(db)
	messagesRepo := repository.NewMessagesRepository(db)

	// Initialize services
	lockout := auth.NewLockout(rateLimitsRepo, cfg.MaxFailedAttempts, cfg.LockoutDuration)
	passwordService := auth.NewPasswordService(db, usersRepo, credsRepo, lockout)
	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})

	invoker := tools.NewInvoker(tasksRepo)

	model := agent.NewClient(agent.ClientConfig{
		APIKey:  cfg.ModelAPIKey,
		BaseURL: cfg.ModelBaseURL,
		Model:   cfg.ModelName,
	})
	orchestrator := agent.NewOrchestrator(model, invoker, conversationsRepo, messagesRepo, logger, agent.Config{
		TurnTimeout:   cfg.TurnTimeout,
		HistoryBudget: cfg.HistoryBudget,
	})

	// Sweep stale login failure records. Lockout expiry never depends on
	// this; it only keeps the table small.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				n, err := rateLimitsRepo.DeleteExpired(sweepCtx, 24*time.Hour)
				if err != nil {
					logger.Warn("failed to sweep login failure records", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("swept stale login failure records", "removed", n)
				}
			}
		}
	}()

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		PasswordService: passwordService,
		TokenService:    tokenService,
		Invoker:         invoker,
		Orchestrator:    orchestrator,
		RateLimit:       cfg.RateLimit,
	})

	// Create HTTP server. The write timeout must outlast a full chat turn.
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.TurnTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
