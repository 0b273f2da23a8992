package handlers

import (
	"encoding/json"
	"net/http"

	"sql-helper/internal/logger"
	"sql-helper/internal/pkg/errors"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondWithServiceError maps service errors onto status codes. Messages of
// unexpected errors stay in the log.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var quotaErr *errors.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		respondWithError(w, http.StatusTooManyRequests, quotaErr.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, messageOf(err))
	case errors.Is(err, errors.ErrNotSelectQuery):
		respondWithError(w, http.StatusBadRequest, errors.ErrNotSelectQuery.Error())
	case errors.Is(err, errors.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, errors.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, errors.ErrAlreadyExists):
		respondWithError(w, http.StatusConflict, "Email is already registered")
	case errors.Is(err, errors.ErrStoreUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable, try again later")
	case errors.Is(err, errors.ErrAIUnavailable):
		respondWithError(w, http.StatusBadGateway, "The assistant could not answer, try again later")
	default:
		logger.LogEvent(logrus.ErrorLevel, "http.unhandled_error", logrus.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func messageOf(err error) string {
	var e *errors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
