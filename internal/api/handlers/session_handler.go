package handlers

import (
	"net/http"

	"sql-helper/internal/middleware"
	"sql-helper/internal/services"
)

type SessionHandler struct {
	authService services.AuthService
	sessions    services.SessionRegistry
	cookieName  string
}

func NewSessionHandler(authService services.AuthService, sessions services.SessionRegistry, cookieName string) *SessionHandler {
	return &SessionHandler{
		authService: authService,
		sessions:    sessions,
		cookieName:  cookieName,
	}
}

type sessionStatusResponse struct {
	IsActive bool   `json:"isActive"`
	Message  string `json:"message"`
	Email    string `json:"email,omitempty"`
}

// Status reports whether the caller's user has any live session. It answers
// 200 for anonymous callers too.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, h.cookieName)
	if token == "" {
		respondWithJSON(w, http.StatusOK, sessionStatusResponse{Message: "Not logged in"})
		return
	}

	claims, err := h.authService.VerifyToken(token)
	if err != nil {
		respondWithJSON(w, http.StatusOK, sessionStatusResponse{Message: "Not logged in"})
		return
	}

	active := h.sessions.IsActive(r.Context(), claims.Email)
	message := "Session is active"
	if !active {
		message = "Session has expired"
	}
	respondWithJSON(w, http.StatusOK, sessionStatusResponse{
		IsActive: active,
		Message:  message,
		Email:    claims.Email,
	})
}
