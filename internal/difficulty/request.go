package difficulty

import (
	"strings"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/validate"
)

// Input is what the client sends.
type Input struct {
	BookID      string `json:"bookId,omitempty"`
	Text        string `json:"text"`
	ReaderLevel Level  `json:"readerLevel,omitempty"`
}

// ValidateInput checks in.
func ValidateInput(in Input) validate.Result {
	if r := ValidateSample(in.Text); !r.Valid {
		return r
	}
	if in.ReaderLevel != "" && !in.ReaderLevel.Valid() {
		return validate.Failf("Unknown reading level %q", in.ReaderLevel)
	}
	return validate.OK()
}

// Request is the body sent to the AI difficulty endpoint.
type Request struct {
	BookID      string `json:"bookId,omitempty"`
	Text        string `json:"text"`
	ReaderLevel Level  `json:"readerLevel,omitempty"`
}

// BuildRequest shapes in for the AI service.
func BuildRequest(in Input) Request {
	return Request{BookID: in.BookID, Text: strings.TrimSpace(in.Text), ReaderLevel: in.ReaderLevel}
}

// AIResult is the AI assessment.
type AIResult struct {
	Level       Level    `json:"level"`
	GradeLevel  float64  `json:"gradeLevel"`
	ReadingEase float64  `json:"readingEase"`
	Factors     []string `json:"factors,omitempty"`
}

// Assessment is the response to the client.
type Assessment struct {
	Estimate
	Fit     Fit      `json:"fit,omitempty"`
	Factors []string `json:"factors,omitempty"`
}

// FromAI merges an AI result over the local estimate.
func FromAI(local Estimate, ai AIResult) Estimate {
	e := local
	e.EstimatedBy = "ai"
	if ai.Level.Valid() {
		e.Level = ai.Level
	}
	if ai.GradeLevel > 0 {
		e.GradeLevel = round1(ai.GradeLevel)
	}
	if ai.ReadingEase != 0 {
		e.ReadingEase = round1(ai.ReadingEase)
	}
	return e
}

// ShouldFallBack reports whether err permits answering with the local
// estimate instead of failing.
func ShouldFallBack(err error) bool {
	if err == nil {
		return false
	}
	switch aierr.As(err).Kind {
	case aierr.KindAIDisabled, aierr.KindAIUnavailable, aierr.KindNetwork, aierr.KindGenerationFailed, aierr.KindRateLimited:
		return true
	}
	return false
}
