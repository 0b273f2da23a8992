package middleware

import (
	"net/http"
	"strconv"

	"sql-helper/internal/pkg/errors"
	"sql-helper/internal/services"
)

// QuotaLimiter turns away assistant calls once the identity's daily token
// allowance is spent, and reports the allowance in response headers.
type QuotaLimiter struct {
	quota services.QuotaGate
}

func NewQuotaLimiter(quota services.QuotaGate) *QuotaLimiter {
	return &QuotaLimiter{quota: quota}
}

func (ql *QuotaLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := services.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		decision := ql.quota.Evaluate(r.Context(), claims.Email)
		SetQuotaHeaders(w, decision)

		if decision.FailedClosed {
			writeError(w, http.StatusServiceUnavailable, "usage check unavailable, try again later")
			return
		}
		if !decision.CanUse {
			exceeded := &errors.QuotaExceededError{CurrentUsage: decision.CurrentUsage, DailyLimit: decision.DailyLimit}
			writeError(w, http.StatusTooManyRequests, exceeded.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SetQuotaHeaders writes the allowance as seen by decision.
func SetQuotaHeaders(w http.ResponseWriter, decision services.QuotaDecision) {
	w.Header().Set("X-Quota-Limit", strconv.FormatInt(decision.DailyLimit, 10))
	w.Header().Set("X-Quota-Remaining", strconv.FormatInt(decision.RemainingOrZero(), 10))
	w.Header().Set("X-Quota-Used", strconv.FormatInt(decision.CurrentUsage, 10))
	if !decision.ResetAt.IsZero() {
		w.Header().Set("X-Quota-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
}
