package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sql-helper/internal/ai"
	"sql-helper/internal/api"
	"sql-helper/internal/config"
	"sql-helper/internal/database"
	"sql-helper/internal/logger"
	"sql-helper/internal/repository"
	"sql-helper/internal/services"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logger.Configure(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		logger.Logger.Fatalf("Failed to configure logger: %v", err)
	}
	defer logFile.Close()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logger.Logger.Fatalf("Failed to connect to database: %v", err)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := database.NewRedisClient(startCtx, cfg.Cache)
	cancel()
	if err != nil {
		logger.Logger.Fatalf("Failed to connect to Redis: %v", err)
	}

	executeDB, err := services.OpenExecuteDB(cfg.Execute)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "execute.disabled", logrus.Fields{"error": err.Error()})
	}

	loc, err := cfg.Quota.Location()
	if err != nil {
		logger.Logger.Fatalf("Invalid usage timezone: %v", err)
	}

	var completer services.Completer
	openaiClient, err := ai.NewOpenAIClient(cfg.AI)
	if err != nil {
		logger.LogEvent(logrus.WarnLevel, "assistant.disabled", logrus.Fields{"error": err.Error()})
		completer = ai.Unconfigured{}
	} else {
		completer = openaiClient
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	usageRepo := repository.NewTokenUsageRepository(db)
	logRepo := repository.NewRequestLogRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)

	// Initialize services
	ledger := services.NewUsageLedger(usageRepo, services.WithLocation(loc))
	quota := services.NewQuotaGate(ledger, userRepo, cfg.Quota.DefaultDailyLimit, cfg.Cache.StoreTimeout)
	gate := services.NewGate(quota, ledger)
	sessions := services.NewSessionRegistry(sessionRepo, cfg.Cache.SessionTTL, cfg.Cache.StoreTimeout)
	authService := services.NewAuthService(userRepo, sessions, cfg.Auth)

	router := api.SetupRoutes(api.Dependencies{
		DB:          db,
		Cache:       redisClient,
		Auth:        authService,
		Sessions:    sessions,
		Quota:       quota,
		Ledger:      ledger,
		Assistant:   services.NewAssistantService(completer, gate),
		SQL:         services.NewSQLService(executeDB, cfg.Execute),
		RequestLogs: services.NewRequestLogService(logRepo),
		AuthConfig:  cfg.Auth,
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.App.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"X-Quota-Limit",
			"X-Quota-Remaining",
			"X-Quota-Used",
			"X-Quota-Reset",
			"X-Result-Truncated",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	// AI calls can run for the full provider timeout.
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         ":" + cfg.App.Port,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		ReadTimeout:  15 * time.Second,
	}

	go func() {
		logger.LogEvent(logrus.InfoLevel, "server.starting", logrus.Fields{"port": cfg.App.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.LogEvent(logrus.InfoLevel, "server.shutting_down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "server.shutdown_failed", logrus.Fields{"error": err.Error()})
	}
	if err := database.Close(db); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "database.close_failed", logrus.Fields{"error": err.Error()})
	}
	if err := redisClient.Close(); err != nil {
		logger.LogEvent(logrus.ErrorLevel, "redis.close_failed", logrus.Fields{"error": err.Error()})
	}
	if executeDB != nil {
		executeDB.Close()
	}
	logger.LogEvent(logrus.InfoLevel, "server.stopped", nil)
}
