// Package explain builds explanation requests for selected passages and
// tracks the follow-up conversation that hangs off them.
package explain

import (
	"errors"
	"strings"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/validate"
)

// Limits.
const (
	MaxSelectionLength   = 5000
	MaxSurroundingLength = 1000
	MaxQuestionLength    = 500
	DefaultMaxFollowUps  = 5
)

// ErrFollowUpLimit is returned when a conversation has used all follow-ups.
var ErrFollowUpLimit = errors.New("follow-up limit reached")

// ErrorMessages overrides failure text for explanations.
var ErrorMessages = aierr.Messages{
	aierr.KindContentTooLong:   "That selection is too long to explain. Try a shorter passage.",
	aierr.KindGenerationFailed: "We couldn't explain that passage. Please try again.",
}

// FollowUp is one question asked about an explanation.
type FollowUp struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Input is what the client sends to explain a selection.
type Input struct {
	BookID          string     `json:"bookId"`
	ChapterID       string     `json:"chapterId,omitempty"`
	SelectedText    string     `json:"selectedText"`
	SurroundingText string     `json:"surroundingText,omitempty"`
	ReadingLevel    string     `json:"readingLevel,omitempty"`
	Language        string     `json:"language,omitempty"`
	Question        string     `json:"question,omitempty"`
	FollowUps       []FollowUp `json:"followUps,omitempty"`
}

// Request is the body sent to the AI explain endpoint.
type Request struct {
	BookID          string     `json:"bookId"`
	ChapterID       string     `json:"chapterId,omitempty"`
	SelectedText    string     `json:"selectedText"`
	SurroundingText string     `json:"surroundingText,omitempty"`
	ReadingLevel    string     `json:"readingLevel,omitempty"`
	Language        string     `json:"language,omitempty"`
	Model           string     `json:"model,omitempty"`
	Question        string     `json:"question,omitempty"`
	History         []FollowUp `json:"history,omitempty"`
}

// Response is the AI explanation.
type Response struct {
	Explanation string   `json:"explanation"`
	Examples    []string `json:"examples,omitempty"`
	Related     []string `json:"relatedConcepts,omitempty"`
}

// ValidateSelection checks the highlighted text.
func ValidateSelection(text string) validate.Result {
	return validate.Text(text, "Selection", MaxSelectionLength)
}

// ValidateInput checks a full explain call, including the follow-up cap.
func ValidateInput(in Input, maxFollowUps int) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	if r := ValidateSelection(in.SelectedText); !r.Valid {
		return r
	}
	if len(in.FollowUps) > capOf(maxFollowUps) {
		return validate.Failf("You can ask up to %d follow-up questions", capOf(maxFollowUps))
	}
	if in.Question != "" {
		if r := validate.Text(in.Question, "Question", MaxQuestionLength); !r.Valid {
			return r
		}
		if len(in.FollowUps) >= capOf(maxFollowUps) {
			return validate.Failf("You can ask up to %d follow-up questions", capOf(maxFollowUps))
		}
	}
	return validate.OK()
}

// BuildRequest shapes in for the AI service, trimming context to its limit.
func BuildRequest(in Input, model string) Request {
	return Request{
		BookID:          in.BookID,
		ChapterID:       in.ChapterID,
		SelectedText:    strings.TrimSpace(in.SelectedText),
		SurroundingText: validate.Truncate(strings.TrimSpace(in.SurroundingText), MaxSurroundingLength),
		ReadingLevel:    in.ReadingLevel,
		Language:        in.Language,
		Model:           model,
		Question:        strings.TrimSpace(in.Question),
		History:         in.FollowUps,
	}
}

// State is the in-memory follow-up conversation for one explanation.
type State struct {
	Explanation string     `json:"explanation"`
	FollowUps   []FollowUp `json:"followUps"`
	Max         int        `json:"maxFollowUps"`
}

// NewState starts a conversation capped at max follow-ups.
func NewState(explanation string, max int) State {
	return State{Explanation: explanation, FollowUps: []FollowUp{}, Max: capOf(max)}
}

// CanFollowUp reports whether another follow-up is allowed.
func (s State) CanFollowUp() bool { return len(s.FollowUps) < capOf(s.Max) }

// Remaining is the number of follow-ups left.
func (s State) Remaining() int {
	if n := capOf(s.Max) - len(s.FollowUps); n > 0 {
		return n
	}
	return 0
}

// AddFollowUp returns s with f appended, or ErrFollowUpLimit.
func (s State) AddFollowUp(f FollowUp) (State, error) {
	if !s.CanFollowUp() {
		return s, ErrFollowUpLimit
	}
	next := make([]FollowUp, 0, len(s.FollowUps)+1)
	next = append(next, s.FollowUps...)
	s.FollowUps = append(next, f)
	return s, nil
}

func capOf(max int) int {
	if max <= 0 {
		return DefaultMaxFollowUps
	}
	return max
}
