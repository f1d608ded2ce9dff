// Package api provides HTTP handlers for the Read Master API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/readmaster/read-master/internal/aiclient"
	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/config"
	"github.com/readmaster/read-master/internal/identity"
	"github.com/readmaster/read-master/internal/observability"
	"github.com/readmaster/read-master/internal/store"
	"github.com/readmaster/read-master/internal/validate"
	"github.com/readmaster/read-master/internal/voice"
	"github.com/readmaster/read-master/internal/webhook"
)

const maxBodySize = 1 << 20 // 1MB

// Handler serves every API route.
type Handler struct {
	repo     store.Repository
	state    *clientstate.Store
	ai       aiclient.Caller
	webhooks *webhook.Verifier
	reporter observability.Reporter
	sessions *voice.Manager
	voice    http.Handler
	cfg      *config.Config
	models   catalogCache
	now      func() time.Time
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(repo store.Repository, ai aiclient.Caller, webhooks *webhook.Verifier, reporter observability.Reporter, cfg *config.Config) *Handler {
	if reporter == nil {
		reporter = observability.NopReporter{}
	}
	h := &Handler{
		repo:     repo,
		state:    clientstate.New(repo),
		ai:       ai,
		webhooks: webhooks,
		reporter: reporter,
		sessions: voice.NewManager(),
		cfg:      cfg,
		now:      time.Now,
	}
	h.voice = voice.NewHandler(h, h.sessions, cfg.AllowedOrigins())
	return h
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response of the given kind.
func Error(w http.ResponseWriter, kind aierr.Kind, message string) {
	JSON(w, kind.HTTPStatus(), aierr.Newf(kind, "%s", message))
}

// wrap traces h and logs the errors it returns.
func (h *Handler) wrap(fn observability.HandlerFunc) http.HandlerFunc {
	return observability.Wrap(h.reporter, fn, func(r *http.Request, err error) {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", identity.UserIDFromContext(r.Context()),
			"error", err,
		)
	})
}

// fail writes err as an AI error body. Server-side failures are returned so
// they reach error tracking; client errors are not.
func fail(w http.ResponseWriter, err error) error {
	e := aierr.As(err)
	status := e.Kind.HTTPStatus()
	JSON(w, status, e)
	if status >= http.StatusInternalServerError {
		return err
	}
	return nil
}

// internal writes a generic 500 and returns err for tracking.
func internal(w http.ResponseWriter, op string, err error) error {
	Error(w, aierr.KindUnknown, "Something went wrong. Please try again.")
	return fmt.Errorf("%s: %w", op, err)
}

// invalid writes a 400 for a failed validation.
func invalid(w http.ResponseWriter, res validate.Result) error {
	Error(w, aierr.KindValidation, res.Error)
	return nil
}

// decode reads a JSON request body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, aierr.KindContentTooLong, "Request body too large")
			return false
		}
		Error(w, aierr.KindValidation, "Invalid request body")
		return false
	}
	return true
}

// call forwards a request to the AI service on behalf of the current user.
func (h *Handler) call(r *http.Request, path string, body any, msgs aierr.Messages, out any) error {
	return h.do(r.Context(), userIDFrom(r), path, body, msgs, out)
}

func (h *Handler) do(ctx context.Context, userID, path string, body any, msgs aierr.Messages, out any) error {
	usage, err := h.ai.Do(ctx, aiclient.Request{
		Method:   http.MethodPost,
		Path:     path,
		Body:     body,
		UserID:   userID,
		Messages: msgs,
	}, out)
	if err != nil {
		return err
	}
	if usage != nil {
		slog.Debug("AI usage",
			"path", path,
			"user_id", userID,
			"model", usage.Model,
			"total_tokens", usage.TotalTokens,
			"cost_usd", usage.CostUSD,
		)
	}
	return nil
}

func userIDFrom(r *http.Request) string {
	return identity.UserIDFromContext(r.Context())
}
