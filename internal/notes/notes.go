// Package notes validates and shapes note-summary requests.
package notes

import (
	"strings"

	"github.com/readmaster/read-master/internal/validate"
)

// Style of the generated summary.
type Style string

const (
	StyleBrief    Style = "brief"
	StyleDetailed Style = "detailed"
	StyleBullets  Style = "bullets"
)

// Valid reports whether s is known.
func (s Style) Valid() bool {
	switch s {
	case StyleBrief, StyleDetailed, StyleBullets:
		return true
	}
	return false
}

// Limits.
const (
	MinNotes         = 1
	MaxNotes         = 100
	MaxCombinedChars = 30000
)

// Note is one reader note or highlight.
type Note struct {
	ID           string `json:"id,omitempty"`
	Content      string `json:"content"`
	Highlight    string `json:"highlight,omitempty"`
	ChapterTitle string `json:"chapterTitle,omitempty"`
}

// Input is what the client sends.
type Input struct {
	BookID string `json:"bookId"`
	Notes  []Note `json:"notes"`
	Style  Style  `json:"style,omitempty"`
}

// Request is the body sent to the AI summary endpoint.
type Request struct {
	BookID string `json:"bookId"`
	Notes  []Note `json:"notes"`
	Style  Style  `json:"style"`
}

// Response is the AI summary.
type Response struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// ValidateInput checks note count, combined length and style. Blank notes
// do not count.
func ValidateInput(in Input) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	notes := nonBlank(in.Notes)
	if len(notes) < MinNotes {
		return validate.Fail("Add at least one note to summarize")
	}
	if len(notes) > MaxNotes {
		return validate.Failf("At most %d notes can be summarized at once", MaxNotes)
	}
	if combinedLength(notes) > MaxCombinedChars {
		return validate.Failf("Notes are too long to summarize. Maximum is %d characters", MaxCombinedChars)
	}
	if in.Style != "" && !in.Style.Valid() {
		return validate.Failf("Unknown summary style %q", in.Style)
	}
	return validate.OK()
}

// BuildRequest drops blank notes and defaults the style to brief.
func BuildRequest(in Input) Request {
	style := in.Style
	if style == "" {
		style = StyleBrief
	}
	return Request{BookID: in.BookID, Notes: nonBlank(in.Notes), Style: style}
}

func nonBlank(notes []Note) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		n.Content = strings.TrimSpace(n.Content)
		n.Highlight = strings.TrimSpace(n.Highlight)
		if n.Content == "" && n.Highlight == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

func combinedLength(notes []Note) int {
	total := 0
	for _, n := range notes {
		total += validate.Len(n.Content) + validate.Len(n.Highlight)
	}
	return total
}
