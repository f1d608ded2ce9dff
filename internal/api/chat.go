package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/chat"
	"github.com/readmaster/read-master/internal/clientstate"
)

type askInput struct {
	BookID   string        `json:"bookId"`
	Question string        `json:"question"`
	Context  *chat.Context `json:"context,omitempty"`
}

type askOutput struct {
	Answer    string       `json:"answer"`
	Citations []string     `json:"citations,omitempty"`
	Session   chat.Session `json:"session"`
}

func (h *Handler) chatSession(ctx context.Context, userID, bookID string) chat.Session {
	def := chat.NewSession(chat.Context{BookID: bookID}, h.now())
	return clientstate.Load(ctx, h.state, userID, clientstate.ChatSessionKey(bookID), def, func(s *chat.Session) bool {
		return s.Valid(bookID)
	})
}

// updateChat applies fn to the stored session for bookID under the session's
// lock and returns the result.
func (h *Handler) updateChat(ctx context.Context, userID, bookID string, fn func(chat.Session) chat.Session) chat.Session {
	def := chat.NewSession(chat.Context{BookID: bookID}, h.now())
	// Chat history is best effort; a failed write must not fail the answer.
	s, _ := clientstate.Update(ctx, h.state, userID, clientstate.ChatSessionKey(bookID), def,
		func(s *chat.Session) bool { return s.Valid(bookID) }, 0,
		func(s chat.Session) (chat.Session, error) { return fn(s), nil })
	return s
}

// ask appends question to the book's chat session, asks the AI service and
// records the answer or the failure on the pending reply.
func (h *Handler) ask(ctx context.Context, userID, bookID, question string, c *chat.Context) (chat.AskResponse, chat.Session, error) {
	model := h.resolveModel(ctx, userID)
	asked := chat.NewMessage(chat.RoleUser, question, chat.StatusComplete, h.now())
	pending := chat.NewMessage(chat.RoleAssistant, "", chat.StatusPending, h.now())

	var req chat.AskRequest
	h.updateChat(ctx, userID, bookID, func(s chat.Session) chat.Session {
		if c != nil {
			s = s.WithContext(*c)
		}
		req = chat.BuildAskRequest(s, question, model)
		return s.AppendMessage(asked).AppendMessage(pending)
	})

	var resp chat.AskResponse
	if err := h.do(ctx, userID, "/api/ai/ask", req, chat.ErrorMessages, &resp); err != nil {
		e := aierr.As(err)
		session := h.updateChat(ctx, userID, bookID, func(s chat.Session) chat.Session {
			return s.UpdateMessage(pending.ID, e.Message, chat.StatusError, h.now())
		})
		return chat.AskResponse{}, session, err
	}

	session := h.updateChat(ctx, userID, bookID, func(s chat.Session) chat.Session {
		return s.UpdateMessage(pending.ID, resp.Answer, chat.StatusComplete, h.now())
	})
	return resp, session, nil
}

// Respond answers a voice transcript through the book's chat session.
func (h *Handler) Respond(ctx context.Context, userID, bookID, transcript string) (string, error) {
	resp, _, err := h.ask(ctx, userID, bookID, transcript, nil)
	if err != nil {
		return "", fmt.Errorf("voice ask: %w", err)
	}
	return resp.Answer, nil
}

// Ask answers a chat question about a book.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) error {
	var in askInput
	if !decode(w, r, &in) {
		return nil
	}
	in.BookID = strings.TrimSpace(in.BookID)
	if in.BookID == "" {
		Error(w, aierr.KindValidation, "Book ID is required")
		return nil
	}
	if res := chat.ValidateMessage(in.Question); !res.Valid {
		return invalid(w, res)
	}

	resp, session, err := h.ask(r.Context(), userIDFrom(r), in.BookID, strings.TrimSpace(in.Question), in.Context)
	if err != nil {
		slog.Warn("Ask failed", "user_id", userIDFrom(r), "book_id", in.BookID, "error", err)
		return fail(w, err)
	}
	JSON(w, http.StatusOK, askOutput{Answer: resp.Answer, Citations: resp.Citations, Session: session})
	return nil
}

// GetChat returns the stored chat session for a book.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) error {
	JSON(w, http.StatusOK, h.chatSession(r.Context(), userIDFrom(r), chi.URLParam(r, "bookID")))
	return nil
}

// ClearChat forgets a book's chat session.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) error {
	if err := h.state.Delete(r.Context(), userIDFrom(r), clientstate.ChatSessionKey(chi.URLParam(r, "bookID"))); err != nil {
		return internal(w, "clear chat", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
