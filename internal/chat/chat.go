// Package chat models the per-book study-buddy conversation.
//
// Sessions are values: every transition returns a new Session and leaves the
// receiver untouched.
package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/validate"
)

// Limits.
const (
	MaxMessageLength  = 2000
	HistoryLimit      = 10
	MaxStoredMessages = 100
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the delivery state of a message.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Message is one chat turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Context is what the assistant knows about the reader's position.
type Context struct {
	BookID       string `json:"bookId"`
	BookTitle    string `json:"bookTitle,omitempty"`
	ChapterID    string `json:"chapterId,omitempty"`
	ChapterTitle string `json:"chapterTitle,omitempty"`
	ReadingLevel string `json:"readingLevel,omitempty"`
}

// Session is a book's chat history.
type Session struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	Messages  []Message `json:"messages"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Messages for chat failures.
var ErrorMessages = aierr.Messages{
	aierr.KindRateLimited:      "You're sending messages too quickly. Please wait a moment.",
	aierr.KindGenerationFailed: "The assistant couldn't answer that. Please try again.",
}

// NewSession starts an empty session for the book in c.
func NewSession(c Context, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		BookID:    c.BookID,
		Messages:  []Message{},
		Context:   c,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, content string, status Status, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Status:    status,
		Timestamp: now,
	}
}

// AppendMessage adds m, keeping at most MaxStoredMessages of the newest.
func (s Session) AppendMessage(m Message) Session {
	msgs := make([]Message, 0, len(s.Messages)+1)
	msgs = append(msgs, s.Messages...)
	msgs = append(msgs, m)
	if len(msgs) > MaxStoredMessages {
		msgs = msgs[len(msgs)-MaxStoredMessages:]
	}
	s.Messages = msgs
	s.UpdatedAt = m.Timestamp
	return s
}

// UpdateLastMessage replaces the content and status of the newest message.
// It is a no-op on an empty session.
func (s Session) UpdateLastMessage(content string, status Status, now time.Time) Session {
	if len(s.Messages) == 0 {
		return s
	}
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	last := &msgs[len(msgs)-1]
	last.Content = content
	last.Status = status
	s.Messages = msgs
	s.UpdatedAt = now
	return s
}

// UpdateMessage replaces the content and status of the message with id.
// It is a no-op when no message has that id.
func (s Session) UpdateMessage(id, content string, status Status, now time.Time) Session {
	for i := range s.Messages {
		if s.Messages[i].ID != id {
			continue
		}
		msgs := make([]Message, len(s.Messages))
		copy(msgs, s.Messages)
		msgs[i].Content = content
		msgs[i].Status = status
		s.Messages = msgs
		s.UpdatedAt = now
		return s
	}
	return s
}

// Clear drops all messages but keeps the session's identity and context.
func (s Session) Clear(now time.Time) Session {
	s.Messages = []Message{}
	s.UpdatedAt = now
	return s
}

// WithContext updates the reader's position, keeping the book.
func (s Session) WithContext(c Context) Session {
	c.BookID = s.BookID
	s.Context = c
	return s
}

// Valid reports whether a loaded session belongs to bookID and carries only
// known roles and statuses. It normalizes a nil message list.
func (s *Session) Valid(bookID string) bool {
	if s.ID == "" || s.BookID != bookID {
		return false
	}
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	for _, m := range s.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return false
		}
		switch m.Status {
		case StatusPending, StatusComplete, StatusError:
		default:
			return false
		}
	}
	return true
}

// ValidateMessage checks a user question.
func ValidateMessage(content string) validate.Result {
	return validate.Text(content, "Message", MaxMessageLength)
}

// HistoryItem is a prior turn sent for context.
type HistoryItem struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the body sent to the AI ask endpoint.
type AskRequest struct {
	BookID       string        `json:"bookId"`
	Question     string        `json:"question"`
	BookTitle    string        `json:"bookTitle,omitempty"`
	ChapterID    string        `json:"chapterId,omitempty"`
	ChapterTitle string        `json:"chapterTitle,omitempty"`
	ReadingLevel string        `json:"readingLevel,omitempty"`
	Model        string        `json:"model,omitempty"`
	History      []HistoryItem `json:"history"`
}

// AskResponse is the AI answer.
type AskResponse struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations,omitempty"`
}

// BuildAskRequest assembles a question with the last HistoryLimit completed
// turns of s.
func BuildAskRequest(s Session, question, model string) AskRequest {
	var done []HistoryItem
	for _, m := range s.Messages {
		if m.Status == StatusComplete && m.Content != "" {
			done = append(done, HistoryItem{Role: m.Role, Content: m.Content})
		}
	}
	if len(done) > HistoryLimit {
		done = done[len(done)-HistoryLimit:]
	}
	if done == nil {
		done = []HistoryItem{}
	}
	return AskRequest{
		BookID:       s.BookID,
		Question:     question,
		BookTitle:    s.Context.BookTitle,
		ChapterID:    s.Context.ChapterID,
		ChapterTitle: s.Context.ChapterTitle,
		ReadingLevel: s.Context.ReadingLevel,
		Model:        model,
		History:      done,
	}
}
