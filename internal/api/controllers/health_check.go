package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type HealthCheckResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// HealthCheckHandler checks API health plus the database and cache
// connections. Any failed dependency answers 503.
func HealthCheckHandler(db *gorm.DB, cache goredis.Cmdable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		response := HealthCheckResponse{
			Status:   "API is running",
			Database: "Database connection is healthy",
			Cache:    "Cache connection is healthy",
		}
		code := http.StatusOK

		if err := pingDatabase(ctx, db); err != nil {
			response.Database = "Database connection failed"
			code = http.StatusServiceUnavailable
		}

		if err := cache.Ping(ctx).Err(); err != nil {
			response.Cache = "Cache connection failed"
			code = http.StatusServiceUnavailable
		}

		respondWithJSON(w, code, response)
	}
}

func pingDatabase(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
