// Package discussion validates and shapes discussion-question requests.
package discussion

import (
	"strings"

	"github.com/readmaster/read-master/internal/validate"
)

// Audience the questions are written for.
type Audience string

const (
	AudienceIndividual Audience = "individual"
	AudienceBookClub   Audience = "book_club"
	AudienceClassroom  Audience = "classroom"
)

// Valid reports whether a is known.
func (a Audience) Valid() bool {
	switch a {
	case AudienceIndividual, AudienceBookClub, AudienceClassroom:
		return true
	}
	return false
}

// Limits.
const (
	MinCount     = 1
	MaxCount     = 10
	DefaultCount = 5
)

// Input is what the client sends.
type Input struct {
	BookID    string   `json:"bookId"`
	ChapterID string   `json:"chapterId,omitempty"`
	Count     int      `json:"count,omitempty"`
	Audience  Audience `json:"audience,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// Question is one generated discussion prompt.
type Question struct {
	Question  string   `json:"question"`
	Theme     string   `json:"theme,omitempty"`
	FollowUps []string `json:"followUps,omitempty"`
}

// Response is the AI result.
type Response struct {
	Questions []Question `json:"questions"`
}

// ValidateInput checks in. A zero count means the default.
func ValidateInput(in Input) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	if in.Count != 0 {
		if r := validate.IntRange(in.Count, MinCount, MaxCount, "Question count"); !r.Valid {
			return r
		}
	}
	if in.Audience != "" && !in.Audience.Valid() {
		return validate.Failf("Unknown audience %q", in.Audience)
	}
	return validate.OK()
}

// BuildRequest applies defaults.
func BuildRequest(in Input) Input {
	if in.Count == 0 {
		in.Count = DefaultCount
	}
	if in.Audience == "" {
		in.Audience = AudienceIndividual
	}
	return in
}
