package api

import (
	"net/http"

	"sql-helper/internal/api/controllers"
	"sql-helper/internal/api/handlers"
	"sql-helper/internal/config"
	"sql-helper/internal/metrics"
	"sql-helper/internal/middleware"
	"sql-helper/internal/services"

	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies is everything the router hands to handlers.
type Dependencies struct {
	DB          *gorm.DB
	Cache       goredis.Cmdable
	Auth        services.AuthService
	Sessions    services.SessionRegistry
	Quota       services.QuotaGate
	Ledger      services.UsageLedger
	Assistant   services.AssistantService
	SQL         services.SQLService
	RequestLogs services.RequestLogService
	AuthConfig  config.AuthConfig
}

func SetupRoutes(deps Dependencies) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.AuthConfig.CookieName, deps.AuthConfig.CookieSecure)
	sqlHandler := handlers.NewSQLHandler(deps.SQL, deps.Assistant)
	sessionHandler := handlers.NewSessionHandler(deps.Auth, deps.Sessions, deps.AuthConfig.CookieName)
	usageHandler := handlers.NewUsageHandler(deps.Quota, deps.Ledger)
	logHandler := handlers.NewRequestLogHandler(deps.RequestLogs)

	requireAuth := middleware.AuthMiddleware(deps.Auth, deps.Sessions, deps.AuthConfig.CookieName)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Auth, deps.Sessions, deps.AuthConfig.CookieName)
	requestLogger := middleware.NewRequestLogger(deps.RequestLogs)
	quotaLimiter := middleware.NewQuotaLimiter(deps.Quota)

	router.HandleFunc("/health", controllers.HealthCheckHandler(deps.DB, deps.Cache)).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Public
	router.HandleFunc("/api/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/format/basic", sqlHandler.FormatBasic).Methods(http.MethodPost)
	router.HandleFunc("/api/session/status", sessionHandler.Status).Methods(http.MethodGet)

	// Static formatting is public; useAi needs a live session.
	router.Handle("/api/format", optionalAuth(requestLogger.LogRequest(http.HandlerFunc(sqlHandler.Format)))).
		Methods(http.MethodPost)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(requireAuth, requestLogger.LogRequest)
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/execute", sqlHandler.Execute).Methods(http.MethodPost)
	protected.HandleFunc("/usage", usageHandler.GetCurrentUsage).Methods(http.MethodGet)
	protected.HandleFunc("/logs", logHandler.GetUserLogs).Methods(http.MethodGet)

	assistant := router.PathPrefix("/api").Subrouter()
	assistant.Use(requireAuth, requestLogger.LogRequest, quotaLimiter.Limit)
	assistant.HandleFunc("/ai", sqlHandler.AIFormat).Methods(http.MethodPost)
	assistant.HandleFunc("/explain", sqlHandler.Explain).Methods(http.MethodPost)
	assistant.HandleFunc("/assist", sqlHandler.Assist).Methods(http.MethodPost)

	return router
}
