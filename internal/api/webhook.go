package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/webhook"
)

var errMalformedEvent = errors.New("malformed webhook event")

// ClerkWebhook receives identity provider events signed with svix.
func (h *Handler) ClerkWebhook(w http.ResponseWriter, r *http.Request) error {
	if h.webhooks == nil || !h.webhooks.Configured() {
		Error(w, aierr.KindUnknown, "Webhook secret not configured")
		return errors.New("webhook secret not configured")
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		Error(w, aierr.KindValidation, "Invalid request body")
		return nil
	}
	if !h.webhooks.Verify(body, r.Header) {
		Error(w, aierr.KindUnauthorized, "Invalid webhook signature")
		return nil
	}

	event, err := webhook.ParseEvent(body)
	if err != nil {
		Error(w, aierr.KindValidation, "Invalid webhook payload")
		return nil
	}

	msgID := r.Header.Get(webhook.HeaderID)
	first, err := h.repo.MarkWebhookProcessed(r.Context(), msgID, h.now())
	if err != nil {
		return internal(w, "mark webhook processed", err)
	}
	if !first {
		slog.Info("Duplicate webhook ignored", "message_id", msgID, "type", event.Type)
		JSON(w, http.StatusOK, map[string]bool{"received": true})
		return nil
	}

	if err := h.applyEvent(r.Context(), event); err != nil {
		if forgetErr := h.repo.ForgetWebhookEvent(r.Context(), msgID); forgetErr != nil {
			slog.Error("Failed to forget webhook event", "message_id", msgID, "error", forgetErr)
		}
		if errors.Is(err, errMalformedEvent) {
			Error(w, aierr.KindValidation, "Invalid webhook payload")
			return nil
		}
		return internal(w, "apply webhook event", err)
	}

	JSON(w, http.StatusOK, map[string]bool{"received": true})
	return nil
}

func (h *Handler) applyEvent(ctx context.Context, event *webhook.Event) error {
	switch event.Type {
	case webhook.EventUserCreated, webhook.EventUserUpdated:
		user, err := event.User(h.now())
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		if err := h.repo.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		slog.Info("User synced", "user_id", user.UserID, "type", event.Type)
	case webhook.EventUserDeleted:
		userID, err := event.DeletedUserID()
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedEvent, err)
		}
		if err := h.repo.DeleteUser(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		h.sessions.CloseUser(userID)
		slog.Info("User deleted", "user_id", userID)
	default:
		slog.Debug("Webhook event ignored", "type", event.Type)
	}
	return nil
}
