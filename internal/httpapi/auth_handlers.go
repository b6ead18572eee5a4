package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"hal9001.dev/internal/audit"
	"hal9001.dev/internal/auth"
	"hal9001.dev/internal/obs"
	"hal9001.dev/internal/store"
)

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// handleAuthToken exchanges form-encoded credentials for a bearer token.
func (a *API) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form body")
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	token, expiresAt, err := a.gate.Authenticate(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			challenge(w, r)
		case errors.Is(err, auth.ErrMalformedHash):
			obs.LogRequest(map[string]any{
				"ts":         time.Now().UTC().Format(time.RFC3339Nano),
				"level":      "error",
				"msg":        "stored credential hash is malformed",
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeError(w, r, http.StatusInternalServerError, "authentication error")
		case errors.Is(err, store.ErrBackendUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "authentication error")
		}
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.token.issued", map[string]any{
		"username":   username,
		"expires_at": expiresAt.Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}
