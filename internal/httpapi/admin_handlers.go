package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"hal9001.dev/internal/access"
	"hal9001.dev/internal/audit"
	"hal9001.dev/internal/store"
)

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

type replacePermissionsRequest struct {
	UserID      string          `json:"user_id"`
	Permissions access.GrantSet `json:"permissions"`
}

type replacePermissionsResponse struct {
	Status           string   `json:"status"`
	UserID           string   `json:"user_id"`
	UpdatedResources []string `json:"updated_resources"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, userPayload{ID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, access.ManagedResources)
}

// handleGetPermissions serves GET /api/v1/admin/permissions/{user_id}.
// Resources without a stored grant are absent; the caller treats missing
// as all-false.
func (a *API) handleGetPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/permissions/"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	grants, err := a.store.Grants(r.Context(), userID)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, grants)
}

// handleReplacePermissions swaps a user's full grant set. The payload is
// rejected before storage is touched when it names a resource outside the
// managed catalog or carries non-boolean flags.
func (a *API) handleReplacePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req replacePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Permissions == nil {
		writeError(w, r, http.StatusBadRequest, "permissions object is required")
		return
	}
	if err := access.ValidateGrantSet(req.Permissions); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.ReplaceGrants(r.Context(), req.UserID, req.Permissions); err != nil {
		handleAccessError(w, r, err)
		return
	}

	updated := make([]string, 0, len(req.Permissions))
	for resource := range req.Permissions {
		updated = append(updated, resource)
	}
	sort.Strings(updated)

	_ = audit.LogEvent(r.Context(), "access.permissions.replaced", map[string]any{
		"user_id":   req.UserID,
		"resources": updated,
	})

	writeJSON(w, http.StatusOK, replacePermissionsResponse{
		Status:           "success",
		UserID:           req.UserID,
		UpdatedResources: updated,
	})
}

func handleAccessError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, access.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, access.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrBackendUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
