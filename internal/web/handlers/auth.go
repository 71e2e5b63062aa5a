package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/faculty"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AuthHandler handles faculty authentication endpoints.
type AuthHandler struct {
	faculty        *faculty.Store
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(store *faculty.Store, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		faculty:        store,
		sessionManager: sm,
	}
}

// loginRequest represents a login request. Fields use unexported names
// with a custom unmarshaler so credentials never leak through reflection
// based logging.
type loginRequest struct {
	username string
	password string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.username = raw["username"]
	l.password = raw["password"]
	return nil
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Login handles faculty login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if err := h.faculty.VerifyUser(r.Context(), req.username, req.password); err != nil {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid username or password",
		})
		return
	}

	session, err := h.sessionManager.CreateSession(req.username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessionManager.SetSessionCookie(w, session)
	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ToJSON().ExpiresAt,
	})
}

// Logout handles faculty logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status reports whether the request carries a valid session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"session":       session,
	})
}

// resetRequest carries a password reset guarded by the reset key.
type resetRequest struct {
	username    string
	newPassword string
	resetKey    string
}

func (rr *resetRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal reset request: %w", err)
	}
	rr.username = raw["username"]
	rr.newPassword = raw["new_password"]
	rr.resetKey = raw["reset_key"]
	return nil
}

// ResetPassword resets a faculty password using the configured reset key.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	err := h.faculty.UpdatePassword(r.Context(), req.username, req.newPassword, req.resetKey)
	switch {
	case errors.Is(err, faculty.ErrInvalidResetKey):
		respondError(w, http.StatusForbidden, "invalid reset key")
	case errors.Is(err, faculty.ErrInvalidCredentials):
		respondError(w, http.StatusNotFound, "unknown user")
	case err != nil:
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
