package handlers

import (
	"net/http"
	"time"

	"sql-helper/internal/services"
)

type RequestLogHandler struct {
	logService services.RequestLogService
}

func NewRequestLogHandler(logService services.RequestLogService) *RequestLogHandler {
	return &RequestLogHandler{
		logService: logService,
	}
}

func (h *RequestLogHandler) GetUserLogs(w http.ResponseWriter, r *http.Request) {
	claims, ok := services.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	from, to := getTimeRange(r)

	logs, err := h.logService.GetUserLogs(r.Context(), claims.Email, from, to)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Error fetching logs")
		return
	}

	respondWithJSON(w, http.StatusOK, logs)
}

func getTimeRange(r *http.Request) (time.Time, time.Time) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		if parsedFrom, err := time.Parse(time.RFC3339, fromStr); err == nil {
			from = parsedFrom
		}
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		if parsedTo, err := time.Parse(time.RFC3339, toStr); err == nil {
			to = parsedTo
		}
	}

	return from, to
}
