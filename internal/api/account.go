package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/identity"
)

const healthCheckTimeout = 5 * time.Second

// Health reports API and database status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
		"ai":     h.cfg.AI.Enabled,
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, status)
	return nil
}

// GetMe returns the authenticated identity and the stored profile, if any.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) error {
	user := identity.FromContext(r.Context())
	if user == nil {
		Error(w, aierr.KindUnauthorized, "Not authenticated")
		return nil
	}

	profile, err := h.repo.GetUser(r.Context(), user.UserID)
	if err != nil {
		return internal(w, "get user", err)
	}

	resp := map[string]interface{}{
		"user_id":    user.UserID,
		"session_id": user.SessionID,
		"profile":    profile,
	}
	if user.OrgID != "" {
		resp["org_id"] = user.OrgID
		resp["org_role"] = user.OrgRole
	}
	if profile != nil {
		resp["display_name"] = profile.DisplayName()
	}
	JSON(w, http.StatusOK, resp)
	return nil
}
