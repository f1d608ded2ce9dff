package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/domain"
	"github.com/readmaster/read-master/internal/preread"
	"github.com/readmaster/read-master/internal/validate"
)

type guideOutput struct {
	Guide  preread.Guide `json:"guide"`
	View   preread.View  `json:"view"`
	Cached bool          `json:"cached"`
}

func (h *Handler) cachedGuide(ctx context.Context, bookID, chapterID string) (*preread.Guide, error) {
	rec, err := h.repo.GetReadingGuide(ctx, bookID, chapterID)
	if err != nil || rec == nil {
		return nil, err
	}
	var g preread.Guide
	if err := json.Unmarshal(rec.ContentJSON, &g); err != nil {
		// A corrupt cache entry is treated as a miss and regenerated.
		slog.Warn("Cached reading guide corrupt", "book_id", bookID, "chapter_id", chapterID, "error", err)
		return nil, nil
	}
	return &g, nil
}

// GetPreReadingGuide serves a cached guide.
func (h *Handler) GetPreReadingGuide(w http.ResponseWriter, r *http.Request) error {
	bookID := strings.TrimSpace(r.URL.Query().Get("bookId"))
	chapterID := strings.TrimSpace(r.URL.Query().Get("chapterId"))
	if bookID == "" {
		return invalid(w, validate.Fail("Book ID is required"))
	}

	g, err := h.cachedGuide(r.Context(), bookID, chapterID)
	if err != nil {
		return internal(w, "get reading guide", err)
	}
	if g == nil {
		Error(w, aierr.KindNotFound, "No pre-reading guide has been generated yet")
		return nil
	}
	JSON(w, http.StatusOK, guideOutput{Guide: *g, View: preread.DefaultView(*g), Cached: true})
	return nil
}

// GeneratePreReadingGuide returns the cached guide unless regeneration is
// requested, otherwise generates and caches a new one.
func (h *Handler) GeneratePreReadingGuide(w http.ResponseWriter, r *http.Request) error {
	var in preread.Input
	if !decode(w, r, &in) {
		return nil
	}
	if res := preread.ValidateInput(in); !res.Valid {
		return invalid(w, res)
	}
	in.BookID = strings.TrimSpace(in.BookID)
	in.ChapterID = strings.TrimSpace(in.ChapterID)

	if !in.Regenerate {
		g, err := h.cachedGuide(r.Context(), in.BookID, in.ChapterID)
		if err != nil {
			return internal(w, "get reading guide", err)
		}
		if g != nil {
			JSON(w, http.StatusOK, guideOutput{Guide: *g, View: preread.DefaultView(*g), Cached: true})
			return nil
		}
	}

	var g preread.Guide
	if err := h.call(r, "/api/ai/pre-reading-guide", in, preread.ErrorMessages, &g); err != nil {
		return fail(w, err)
	}
	g.BookID = in.BookID
	g.ChapterID = in.ChapterID
	g = g.Normalize()

	if err := h.cacheGuide(r.Context(), g); err != nil {
		slog.Warn("Failed to cache reading guide", "book_id", g.BookID, "chapter_id", g.ChapterID, "error", err)
	}
	JSON(w, http.StatusOK, guideOutput{Guide: g, View: preread.DefaultView(g)})
	return nil
}

func (h *Handler) cacheGuide(ctx context.Context, g preread.Guide) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode reading guide: %w", err)
	}
	return h.repo.PutReadingGuide(ctx, &domain.ReadingGuide{
		BookID:      g.BookID,
		ChapterID:   g.ChapterID,
		ContentJSON: data,
		CreatedAt:   h.now(),
	})
}
