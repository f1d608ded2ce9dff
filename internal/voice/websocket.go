package voice

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/identity"
)

const (
	maxMessageSize  = 16 << 10 // 16KB
	responseTimeout = 90 * time.Second
	writeTimeout    = 10 * time.Second
)

// Responder answers a transcribed question for a user's book.
type Responder interface {
	Respond(ctx context.Context, userID, bookID, transcript string) (string, error)
}

// clientMessage is sent by the browser.
type clientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// serverMessage is sent to the browser.
type serverMessage struct {
	Type      string `json:"type"`
	Mode      Mode   `json:"mode,omitempty"`
	Content   string `json:"content,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Handler upgrades voice chat requests to WebSocket sessions.
type Handler struct {
	responder      Responder
	sm             *Manager
	allowedOrigins []string
}

// NewHandler creates a voice handler. allowedOrigins may contain "*".
func NewHandler(responder Responder, sm *Manager, allowedOrigins []string) *Handler {
	return &Handler{responder: responder, sm: sm, allowedOrigins: allowedOrigins}
}

// ServeHTTP implements http.Handler for GET /api/voice/ws?bookId=.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	bookID := strings.TrimSpace(r.URL.Query().Get("bookId"))
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if bookID == "" {
		http.Error(w, "bookId is required", http.StatusBadRequest)
		return
	}
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		slog.Error("Failed to accept voice WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "voice session ended"); closeErr != nil {
			slog.Debug("Failed to close voice websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(maxMessageSize)

	h.sm.Register(userID, bookID, ws)
	defer h.sm.Unregister(userID, bookID, ws)

	s := &session{
		responder: h.responder,
		userID:    userID,
		bookID:    bookID,
		mode:      ModeIdle,
		send: func(ctx context.Context, m serverMessage) error {
			return writeJSON(ctx, ws, m)
		},
	}
	if err := s.send(r.Context(), serverMessage{Type: "mode", Mode: s.mode}); err != nil {
		return
	}

	for {
		_, data, err := ws.Read(r.Context())
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Voice WebSocket closed by client", "user_id", userID)
			} else {
				slog.Debug("Voice WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}
		if !s.handle(r.Context(), data) {
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	slog.Warn("Voice WebSocket origin rejected", "origin", origin)
	return false
}

// session is the per-connection mode machine.
type session struct {
	responder Responder
	userID    string
	bookID    string
	mode      Mode
	send      func(ctx context.Context, m serverMessage) error
}

// handle processes one client message. It returns false when the
// connection should end.
func (s *session) handle(ctx context.Context, data []byte) bool {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return s.sendError(ctx, aierr.Newf(aierr.KindValidation, "Malformed message"))
	}

	switch msg.Type {
	case "ping":
		return s.send(ctx, serverMessage{Type: "pong"}) == nil
	case "end":
		return false
	case "transcript":
		return s.answer(ctx, msg.Content)
	}

	next, err := Transition(s.mode, Event(msg.Type))
	if err != nil {
		return s.sendError(ctx, aierr.Newf(aierr.KindValidation, "Cannot %s while %s", msg.Type, s.mode))
	}
	return s.setMode(ctx, next)
}

func (s *session) answer(ctx context.Context, transcript string) bool {
	if r := ValidateTranscript(transcript); !r.Valid {
		return s.sendError(ctx, aierr.Newf(aierr.KindValidation, "%s", r.Error))
	}
	next, err := Transition(s.mode, EventTranscript)
	if err != nil {
		return s.sendError(ctx, aierr.Newf(aierr.KindValidation, "Not listening"))
	}
	if !s.setMode(ctx, next) {
		return false
	}

	rctx, cancel := context.WithTimeout(ctx, responseTimeout)
	reply, err := s.responder.Respond(rctx, s.userID, s.bookID, strings.TrimSpace(transcript))
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Warn("Voice response failed", "user_id", s.userID, "book_id", s.bookID, "error", err)
		s.mode, _ = Transition(s.mode, EventFail)
		if !s.setMode(ctx, s.mode) {
			return false
		}
		return s.send(ctx, errorMessage(aierr.As(err))) == nil
	}

	s.mode, _ = Transition(s.mode, EventAnswer)
	if err := s.send(ctx, serverMessage{Type: "answer", Content: reply}); err != nil {
		return false
	}
	return s.setMode(ctx, s.mode)
}

func (s *session) setMode(ctx context.Context, m Mode) bool {
	s.mode = m
	return s.send(ctx, serverMessage{Type: "mode", Mode: m}) == nil
}

func (s *session) sendError(ctx context.Context, e *aierr.Error) bool {
	return s.send(ctx, errorMessage(e)) == nil
}

func errorMessage(e *aierr.Error) serverMessage {
	return serverMessage{Type: "error", Code: string(e.Kind), Message: e.Message, Retryable: e.Retryable}
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}
