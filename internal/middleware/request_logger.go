package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"sql-helper/internal/logger"
	"sql-helper/internal/models"
	"sql-helper/internal/services"

	"github.com/sirupsen/logrus"
)

const requestLogTimeout = 2 * time.Second

type metadataKey struct{}

type requestMetadata struct {
	mu     sync.Mutex
	fields models.JSON
}

// Annotate attaches a key to the persisted log of the current request. It
// does nothing outside a RequestLogger.
func Annotate(ctx context.Context, key, value string) {
	md, ok := ctx.Value(metadataKey{}).(*requestMetadata)
	if !ok {
		return
	}
	md.mu.Lock()
	md.fields[key] = value
	md.mu.Unlock()
}

type RequestLogger struct {
	logService services.RequestLogService
}

func NewRequestLogger(logService services.RequestLogService) *RequestLogger {
	return &RequestLogger{
		logService: logService,
	}
}

// LogRequest persists one row per authenticated request. It must run inside
// AuthMiddleware.
func (rl *RequestLogger) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := services.IdentityFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		md := &requestMetadata{fields: models.JSON{}}
		ctx := context.WithValue(r.Context(), metadataKey{}, md)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r.WithContext(ctx))

		logCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), requestLogTimeout)
		defer cancel()

		md.mu.Lock()
		fields := md.fields
		md.mu.Unlock()

		err := rl.logService.LogRequest(logCtx, claims.Email, r.URL.Path, r.Method, rw.statusCode, createRequestSummary(r), fields)
		if err != nil {
			logger.Logger.WithFields(logrus.Fields{
				"error":    err,
				"identity": claims.Email,
				"path":     r.URL.Path,
			}).Error("Failed to log request")
		}
	})
}

func createRequestSummary(r *http.Request) string {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasPrefix(path, "/api/format"):
		return "SQL format request"
	case path == "/api/ai":
		return "AI format request"
	case path == "/api/explain":
		return "AI explain request"
	case path == "/api/assist":
		return "AI assist request"
	case path == "/api/execute":
		return "SQL execute request"
	case strings.HasPrefix(path, "/api/usage"):
		return "Usage lookup"
	case strings.HasPrefix(path, "/api/session"):
		return "Session status"
	case strings.HasPrefix(path, "/api/auth"):
		return "Auth request"
	}
	return "API request"
}
