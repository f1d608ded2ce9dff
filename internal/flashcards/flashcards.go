// Package flashcards validates generation input and reader preferences for
// AI-generated flashcards.
package flashcards

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/domain"
	"github.com/readmaster/read-master/internal/validate"
)

// CardType is the kind of card to generate.
type CardType string

const (
	TypeVocabulary    CardType = "vocabulary"
	TypeConcept       CardType = "concept"
	TypeComprehension CardType = "comprehension"
	TypeQuote         CardType = "quote"
)

// AllTypes lists every card type in display order.
var AllTypes = []CardType{TypeVocabulary, TypeConcept, TypeComprehension, TypeQuote}

// Limits.
const (
	MinContentLength = 50
	MaxContentLength = 50000
	MinCardCount     = 1
	MaxCardCount     = 50
	DefaultCardCount = 10
)

// ErrorMessages overrides failure text for flashcard generation.
var ErrorMessages = aierr.Messages{
	aierr.KindContentTooShort:  "Select more text to generate flashcards.",
	aierr.KindContentTooLong:   "That selection is too long. Try a single chapter.",
	aierr.KindGenerationFailed: "We couldn't generate flashcards. Please try again.",
}

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool {
	for _, k := range AllTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Preferences are the reader's saved generation settings.
type Preferences struct {
	CardTypes []CardType `json:"cardTypes"`
	CardCount int        `json:"cardCount"`
	AutoSave  bool       `json:"autoSave"`
}

// DefaultPreferences is used when nothing valid is stored.
func DefaultPreferences() Preferences {
	return Preferences{
		CardTypes: []CardType{TypeVocabulary, TypeConcept},
		CardCount: DefaultCardCount,
		AutoSave:  true,
	}
}

// rawPreferences decodes loosely so one bad field does not discard the rest.
type rawPreferences struct {
	CardTypes []string `json:"cardTypes"`
	CardCount *float64 `json:"cardCount"`
	AutoSave  *bool    `json:"autoSave"`
}

// Sanitize returns p with each invalid field replaced by its default. Unknown
// and duplicate card types are dropped; an empty list falls back.
func (p Preferences) Sanitize() Preferences {
	def := DefaultPreferences()
	out := Preferences{CardCount: p.CardCount, AutoSave: p.AutoSave}

	seen := make(map[CardType]bool)
	for _, t := range p.CardTypes {
		if t.Valid() && !seen[t] {
			seen[t] = true
			out.CardTypes = append(out.CardTypes, t)
		}
	}
	if len(out.CardTypes) == 0 {
		out.CardTypes = def.CardTypes
	}
	if out.CardCount < MinCardCount || out.CardCount > MaxCardCount {
		out.CardCount = def.CardCount
	}
	return out
}

// toPreferences converts loosely decoded preferences, falling back per field.
func (r rawPreferences) toPreferences() Preferences {
	def := DefaultPreferences()
	p := Preferences{CardCount: def.CardCount, AutoSave: def.AutoSave}
	for _, t := range r.CardTypes {
		p.CardTypes = append(p.CardTypes, CardType(t))
	}
	if r.CardCount != nil && *r.CardCount == float64(int(*r.CardCount)) {
		p.CardCount = int(*r.CardCount)
	}
	if r.AutoSave != nil {
		p.AutoSave = *r.AutoSave
	}
	return p.Sanitize()
}

// ValidatePreferences checks preferences submitted by the client.
func ValidatePreferences(p Preferences) validate.Result {
	if len(p.CardTypes) == 0 {
		return validate.Fail("Select at least one card type")
	}
	for _, t := range p.CardTypes {
		if !t.Valid() {
			return validate.Failf("Unknown card type %q", t)
		}
	}
	return validate.IntRange(p.CardCount, MinCardCount, MaxCardCount, "Card count")
}

// ValidateContent checks the source text for generation.
func ValidateContent(content string) validate.Result {
	trimmed := strings.TrimSpace(content)
	n := validate.Len(trimmed)
	switch {
	case n == 0:
		return validate.Fail("Content is required")
	case n < MinContentLength:
		return validate.Failf("Content is too short. Provide at least %d characters", MinContentLength)
	case n > MaxContentLength:
		return validate.Failf("Content is too long. Maximum is %d characters", MaxContentLength)
	}
	return validate.OK()
}

// Input is what the client sends to generate cards.
type Input struct {
	BookID    string     `json:"bookId"`
	ChapterID string     `json:"chapterId,omitempty"`
	Content   string     `json:"content"`
	CardTypes []CardType `json:"cardTypes,omitempty"`
	CardCount int        `json:"cardCount,omitempty"`
}

// Request is the body sent to the AI flashcard endpoint.
type Request struct {
	BookID    string     `json:"bookId"`
	ChapterID string     `json:"chapterId,omitempty"`
	Content   string     `json:"content"`
	CardTypes []CardType `json:"cardTypes"`
	CardCount int        `json:"cardCount"`
}

// BuildRequest fills unset options from prefs.
func BuildRequest(in Input, prefs Preferences) Request {
	prefs = prefs.Sanitize()
	req := Request{
		BookID:    in.BookID,
		ChapterID: in.ChapterID,
		Content:   strings.TrimSpace(in.Content),
		CardTypes: Preferences{CardTypes: in.CardTypes, CardCount: in.CardCount}.Sanitize().CardTypes,
		CardCount: in.CardCount,
	}
	if len(in.CardTypes) == 0 {
		req.CardTypes = prefs.CardTypes
	}
	if req.CardCount < MinCardCount || req.CardCount > MaxCardCount {
		req.CardCount = prefs.CardCount
	}
	return req
}

// Card is one generated flashcard.
type Card struct {
	Type  CardType `json:"type"`
	Front string   `json:"front"`
	Back  string   `json:"back"`
	Tags  []string `json:"tags,omitempty"`
}

// Response is the AI result.
type Response struct {
	Cards []Card `json:"cards"`
}

// SanitizeCards drops cards with a blank side or unknown type and repeated
// fronts (case-insensitive), trimming whitespace.
func SanitizeCards(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		c.Front = strings.TrimSpace(c.Front)
		c.Back = strings.TrimSpace(c.Back)
		if c.Front == "" || c.Back == "" || !c.Type.Valid() {
			continue
		}
		key := strings.ToLower(c.Front)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// ToDomain converts cards into records ready to save.
func ToDomain(userID, bookID string, cards []Card, now time.Time) []*domain.Flashcard {
	out := make([]*domain.Flashcard, 0, len(cards))
	for _, c := range cards {
		out = append(out, &domain.Flashcard{
			ID:        uuid.NewString(),
			UserID:    userID,
			BookID:    bookID,
			Type:      string(c.Type),
			Front:     c.Front,
			Back:      c.Back,
			Tags:      c.Tags,
			CreatedAt: now,
		})
	}
	return out
}
