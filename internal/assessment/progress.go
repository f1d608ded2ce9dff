// Package assessment drives generated assessments: in-progress answers,
// grading requests and score trends over time.
package assessment

import (
	"strings"
	"time"
)

// DefaultProgressTTL is how long in-progress answers are kept.
const DefaultProgressTTL = 24 * time.Hour

// Progress is an assessment the reader has started but not submitted.
type Progress struct {
	AssessmentID   string            `json:"assessmentId"`
	CurrentIndex   int               `json:"currentIndex"`
	TotalQuestions int               `json:"totalQuestions"`
	Answers        map[string]string `json:"answers"`
	ElapsedSeconds int               `json:"elapsedSeconds"`
	SavedAt        time.Time         `json:"savedAt"`
}

// NewProgress starts progress for an assessment with total questions.
func NewProgress(assessmentID string, total int) Progress {
	return Progress{AssessmentID: assessmentID, TotalQuestions: total, Answers: map[string]string{}}
}

func (p Progress) withAnswers() map[string]string {
	out := make(map[string]string, len(p.Answers)+1)
	for k, v := range p.Answers {
		out[k] = v
	}
	return out
}

// SetAnswer records answer for questionID. A blank answer clears it.
func (p Progress) SetAnswer(questionID, answer string) Progress {
	answers := p.withAnswers()
	if strings.TrimSpace(answer) == "" {
		delete(answers, questionID)
	} else {
		answers[questionID] = answer
	}
	p.Answers = answers
	return p
}

// Next moves to the following question, stopping at the last one.
func (p Progress) Next() Progress {
	if p.CurrentIndex < p.TotalQuestions-1 {
		p.CurrentIndex++
	}
	return p
}

// Previous moves back one question, stopping at the first one.
func (p Progress) Previous() Progress {
	if p.CurrentIndex > 0 {
		p.CurrentIndex--
	}
	return p
}

// Tick adds elapsed seconds.
func (p Progress) Tick(seconds int) Progress {
	if seconds > 0 {
		p.ElapsedSeconds += seconds
	}
	return p
}

// Answered is the number of answered questions.
func (p Progress) Answered() int { return len(p.Answers) }

// Complete reports whether every question has an answer.
func (p Progress) Complete() bool {
	return p.TotalQuestions > 0 && len(p.Answers) >= p.TotalQuestions
}

// Valid reports whether loaded progress belongs to assessmentID and is
// internally consistent. A nil answer map is normalized.
func (p *Progress) Valid(assessmentID string) bool {
	if p.AssessmentID != assessmentID {
		return false
	}
	if p.TotalQuestions < 0 || p.CurrentIndex < 0 || p.ElapsedSeconds < 0 {
		return false
	}
	if p.TotalQuestions > 0 && p.CurrentIndex >= p.TotalQuestions {
		return false
	}
	if p.Answers == nil {
		p.Answers = map[string]string{}
	}
	return true
}
