package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/clientstate"
	"github.com/readmaster/read-master/internal/flashcards"
	"github.com/readmaster/read-master/internal/shared"
	"github.com/readmaster/read-master/internal/validate"
)

type flashcardsOutput struct {
	Cards []flashcards.Card `json:"cards"`
	Saved int               `json:"saved"`
}

func (h *Handler) flashcardPrefs(ctx context.Context, userID string) flashcards.Preferences {
	return clientstate.Load(ctx, h.state, userID, clientstate.KeyFlashcardPrefs, flashcards.DefaultPreferences(), nil)
}

// GetFlashcardPreferences returns the reader's generation preferences.
func (h *Handler) GetFlashcardPreferences(w http.ResponseWriter, r *http.Request) error {
	JSON(w, http.StatusOK, h.flashcardPrefs(r.Context(), userIDFrom(r)))
	return nil
}

// PutFlashcardPreferences validates and stores generation preferences.
func (h *Handler) PutFlashcardPreferences(w http.ResponseWriter, r *http.Request) error {
	// Decoded field by field so bad values are rejected rather than defaulted.
	var in struct {
		CardTypes []flashcards.CardType `json:"cardTypes"`
		CardCount int                   `json:"cardCount"`
		AutoSave  bool                  `json:"autoSave"`
	}
	if !decode(w, r, &in) {
		return nil
	}
	prefs := flashcards.Preferences{CardTypes: in.CardTypes, CardCount: in.CardCount, AutoSave: in.AutoSave}
	if res := flashcards.ValidatePreferences(prefs); !res.Valid {
		return invalid(w, res)
	}
	prefs = prefs.Sanitize()
	if err := h.state.Save(r.Context(), userIDFrom(r), clientstate.KeyFlashcardPrefs, prefs, 0); err != nil {
		return internal(w, "save flashcard preferences", err)
	}
	JSON(w, http.StatusOK, prefs)
	return nil
}

// ListFlashcards returns a book's saved cards.
func (h *Handler) ListFlashcards(w http.ResponseWriter, r *http.Request) error {
	cards, err := h.repo.ListFlashcards(r.Context(), userIDFrom(r), chi.URLParam(r, "bookID"))
	if err != nil {
		return internal(w, "list flashcards", err)
	}
	JSON(w, http.StatusOK, map[string]interface{}{"flashcards": cards})
	return nil
}

// GenerateFlashcards generates cards from passage content and, when the
// reader has auto-save on, stores them.
func (h *Handler) GenerateFlashcards(w http.ResponseWriter, r *http.Request) error {
	userID := userIDFrom(r)
	var in flashcards.Input
	if !decode(w, r, &in) {
		return nil
	}
	in.BookID = strings.TrimSpace(in.BookID)
	if in.BookID == "" {
		return invalid(w, validate.Fail("Book ID is required"))
	}
	if res := flashcards.ValidateContent(in.Content); !res.Valid {
		Error(w, contentKind(in.Content), res.Error)
		return nil
	}

	prefs := h.flashcardPrefs(r.Context(), userID)
	var resp flashcards.Response
	if err := h.call(r, "/api/ai/generate-flashcards", flashcards.BuildRequest(in, prefs), flashcards.ErrorMessages, &resp); err != nil {
		return fail(w, err)
	}

	out := flashcardsOutput{Cards: flashcards.SanitizeCards(resp.Cards)}
	if prefs.AutoSave && len(out.Cards) > 0 {
		records := flashcards.ToDomain(userID, in.BookID, out.Cards, h.now())
		err := shared.RetryOnConflict(r.Context(), "save flashcards", 3, 50*time.Millisecond, func(ctx context.Context) error {
			return h.repo.SaveFlashcards(ctx, records)
		})
		if err != nil {
			slog.Warn("Failed to auto-save flashcards", "user_id", userID, "book_id", in.BookID, "error", err)
		} else {
			out.Saved = len(records)
		}
	}
	JSON(w, http.StatusOK, out)
	return nil
}

func contentKind(content string) aierr.Kind {
	n := validate.Len(strings.TrimSpace(content))
	switch {
	case n > flashcards.MaxContentLength:
		return aierr.KindContentTooLong
	case n > 0 && n < flashcards.MinContentLength:
		return aierr.KindContentTooShort
	}
	return aierr.KindValidation
}
