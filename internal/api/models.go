package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/readmaster/read-master/internal/aiclient"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/models"
)

const (
	catalogTTL = 5 * time.Minute
	// catalogRetry is how long a failed fetch is reported before trying again.
	catalogRetry = 15 * time.Second
	// catalogWait bounds how long chat, explain and voice wait for the catalog.
	catalogWait = 5 * time.Second
)

// catalogCache keeps the upstream model catalog for a short time. Concurrent
// misses share one upstream fetch.
type catalogCache struct {
	mu        sync.Mutex
	catalog   *models.Catalog
	fetchedAt time.Time
	err       error
	failedAt  time.Time

	fetches singleflight.Group
}

func (c *catalogCache) cached(now time.Time) (models.Catalog, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog != nil && now.Sub(c.fetchedAt) < catalogTTL {
		return *c.catalog, true, nil
	}
	if c.err != nil && now.Sub(c.failedAt) < catalogRetry {
		return models.Catalog{}, true, c.err
	}
	return models.Catalog{}, false, nil
}

func (c *catalogCache) store(cat *models.Catalog, err error, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.err, c.failedAt = err, now
		return
	}
	c.catalog, c.fetchedAt, c.err = cat, now, nil
}

func (h *Handler) catalog(ctx context.Context, userID string) (models.Catalog, error) {
	if c, ok, err := h.models.cached(h.now()); ok {
		return c, err
	}

	// The shared fetch ignores any one caller's cancellation. The AI client
	// timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := h.models.fetches.DoChan("catalog", func() (interface{}, error) {
		if c, ok, err := h.models.cached(h.now()); ok {
			return c, err
		}
		var c models.Catalog
		_, err := h.ai.Do(fetchCtx, aiclient.Request{
			Method: http.MethodGet,
			Path:   "/api/ai/models",
			UserID: userID,
		}, &c)
		if err != nil {
			h.models.store(nil, err, h.now())
			return nil, err
		}
		h.models.store(&c, nil, h.now())
		return c, nil
	})

	select {
	case <-ctx.Done():
		return models.Catalog{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.Catalog{}, res.Err
		}
		return res.Val.(models.Catalog), nil
	}
}

func (h *Handler) modelPreference(ctx context.Context, userID string) models.Preference {
	return clientstate.Load(ctx, h.state, userID, clientstate.KeyModelPreference, models.Preference{}, (*models.Preference).Valid)
}

// resolveModel picks the model id sent with chat, explain and voice calls.
// An empty id lets the AI service choose.
func (h *Handler) resolveModel(ctx context.Context, userID string) string {
	pref := h.modelPreference(ctx, userID)
	if pref.ModelID == "" && pref.Tier == "" {
		return ""
	}
	wctx, cancel := context.WithTimeout(ctx, catalogWait)
	defer cancel()
	c, err := h.catalog(wctx, userID)
	if err != nil {
		slog.Warn("Model catalog unavailable, using service default", "user_id", userID, "error", err)
		return ""
	}
	return models.Resolve(pref, c)
}

// ListModels returns the catalog grouped by tier.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	c, err := h.catalog(r.Context(), userID)
	if err != nil {
		return fail(w, err)
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"models":         c.Models,
		"defaultModelId": c.DefaultID,
		"tiers":          c.ByTier(),
		"selected":       models.Resolve(h.modelPreference(r.Context(), userID), c),
	})
	return nil
}

// GetModelPreference returns the stored preference.
func (h *Handler) GetModelPreference(w http.ResponseWriter, r *http.Request) error {
	JSON(w, http.StatusOK, h.modelPreference(r.Context(), userIDFrom(r)))
	return nil
}

// PutModelPreference validates a selection against the catalog and stores it.
func (h *Handler) PutModelPreference(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	var pref models.Preference
	if !decode(w, r, &pref) {
		return nil
	}

	c, err := h.catalog(r.Context(), userID)
	if err != nil {
		return fail(w, err)
	}
	if res := models.ValidateSelection(pref, c); !res.Valid {
		return invalid(w, res)
	}
	if err := h.state.Save(r.Context(), userID, clientstate.KeyModelPreference, pref, 0); err != nil {
		return internal(w, "save model preference", err)
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"preference": pref,
		"modelId":    models.Resolve(pref, c),
	})
	return nil
}
