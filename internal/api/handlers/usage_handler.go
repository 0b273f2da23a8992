package handlers

import (
	"net/http"
	"strconv"

	"sql-helper/internal/middleware"
	"sql-helper/internal/models"
	"sql-helper/internal/services"
)

const (
	defaultHistoryDays = 7
	maxHistoryDays     = 90
)

type UsageHandler struct {
	quota  services.QuotaGate
	ledger services.UsageLedger
}

func NewUsageHandler(quota services.QuotaGate, ledger services.UsageLedger) *UsageHandler {
	return &UsageHandler{
		quota:  quota,
		ledger: ledger,
	}
}

type usageResponse struct {
	Today   services.QuotaDecision `json:"today"`
	History []models.TokenUsage    `json:"history"`
}

// GetCurrentUsage returns today's allowance and up to ?days=N buckets of
// history.
func (h *UsageHandler) GetCurrentUsage(w http.ResponseWriter, r *http.Request) {
	claims, ok := services.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryDays {
			respondWithError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = n
	}

	decision := h.quota.Evaluate(r.Context(), claims.Email)
	middleware.SetQuotaHeaders(w, decision)
	if decision.FailedClosed {
		respondWithError(w, http.StatusServiceUnavailable, "usage check unavailable, try again later")
		return
	}

	history, err := h.ledger.History(r.Context(), claims.Email, days)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.TokenUsage{}
	}

	respondWithJSON(w, http.StatusOK, usageResponse{Today: decision, History: history})
}
