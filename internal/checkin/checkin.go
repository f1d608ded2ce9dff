// Package checkin decides when comprehension check-ins fire as a reader
// progresses through a book.
package checkin

import (
	"sort"
	"strings"
	"time"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/validate"
)

// Frequency is how often check-ins are offered.
type Frequency string

const (
	FrequencyOff      Frequency = "off"
	FrequencyMinimal  Frequency = "minimal"
	FrequencyStandard Frequency = "standard"
	FrequencyFrequent Frequency = "frequent"
)

// DefaultFrequency is used when no valid preference is stored.
const DefaultFrequency = FrequencyStandard

var milestones = map[Frequency][]int{
	FrequencyOff:      nil,
	FrequencyMinimal:  {50, 100},
	FrequencyStandard: {25, 50, 75, 100},
	FrequencyFrequent: {10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
}

// Limits for question generation and answers.
const (
	MinPassageLength = 100
	MaxPassageLength = 20000
	MinQuestions     = 1
	MaxQuestions     = 5
	MaxAnswerLength  = 1000
)

// ErrorMessages overrides failure text for check-ins.
var ErrorMessages = aierr.Messages{
	aierr.KindContentTooShort: "There isn't enough text yet to check your understanding.",
	aierr.KindContentTooLong:  "This section is too long for a single check-in.",
}

// ParseFrequency validates s.
func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	_, ok := milestones[f]
	return f, ok
}

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	_, ok := milestones[f]
	return ok
}

// Milestones returns the percentages at which f triggers, ascending.
func Milestones(f Frequency) []int {
	m := milestones[f]
	out := make([]int, len(m))
	copy(out, m)
	return out
}

// CurrentMilestone is the highest milestone of f at or below percent.
func CurrentMilestone(percent float64, f Frequency) (int, bool) {
	current, found := 0, false
	for _, m := range milestones[f] {
		if float64(m) <= percent {
			current, found = m, true
		}
	}
	return current, found
}

// Progress records the milestones a reader has completed for one book.
type Progress struct {
	BookID              string     `json:"bookId"`
	CompletedMilestones []int      `json:"completedMilestones"`
	LastCheckinAt       *time.Time `json:"lastCheckinAt,omitempty"`
}

// ProgressMap is the stored value: book id to progress.
type ProgressMap map[string]Progress

// NewProgress is empty progress for bookID.
func NewProgress(bookID string) Progress {
	return Progress{BookID: bookID, CompletedMilestones: []int{}}
}

// IsCompleted reports whether milestone m was already completed.
func (p Progress) IsCompleted(m int) bool {
	i := sort.SearchInts(p.CompletedMilestones, m)
	return i < len(p.CompletedMilestones) && p.CompletedMilestones[i] == m
}

// MarkMilestoneComplete returns p with m added. Completion is monotonic and
// the list stays sorted and free of duplicates.
func (p Progress) MarkMilestoneComplete(m int, now time.Time) Progress {
	next := make([]int, 0, len(p.CompletedMilestones)+1)
	next = append(next, p.CompletedMilestones...)
	if !p.IsCompleted(m) {
		next = append(next, m)
		sort.Ints(next)
	}
	p.CompletedMilestones = next
	ts := now
	p.LastCheckinAt = &ts
	return p
}

// ShouldTrigger returns the milestone to check in at, if any. Completed
// milestones never trigger again.
func ShouldTrigger(percent float64, f Frequency, p Progress) (int, bool) {
	m, ok := CurrentMilestone(percent, f)
	if !ok || p.IsCompleted(m) {
		return 0, false
	}
	return m, true
}

// Normalize repairs a loaded map: entries are keyed by their own book id,
// milestones are kept only when in 1..100, sorted and deduplicated. It
// reports false when the map cannot be repaired.
func (pm *ProgressMap) Normalize() bool {
	if *pm == nil {
		*pm = ProgressMap{}
		return true
	}
	for key, p := range *pm {
		if key == "" {
			return false
		}
		if p.BookID == "" {
			p.BookID = key
		}
		if p.BookID != key {
			return false
		}
		clean := make([]int, 0, len(p.CompletedMilestones))
		seen := make(map[int]bool, len(p.CompletedMilestones))
		for _, m := range p.CompletedMilestones {
			if m < 1 || m > 100 || seen[m] {
				continue
			}
			seen[m] = true
			clean = append(clean, m)
		}
		sort.Ints(clean)
		p.CompletedMilestones = clean
		(*pm)[key] = p
	}
	return true
}

// For returns the progress for bookID, creating an empty record.
func (pm ProgressMap) For(bookID string) Progress {
	if p, ok := pm[bookID]; ok {
		return p
	}
	return NewProgress(bookID)
}

// With returns a copy of pm with p stored under its book id.
func (pm ProgressMap) With(p Progress) ProgressMap {
	out := make(ProgressMap, len(pm)+1)
	for k, v := range pm {
		out[k] = v
	}
	out[p.BookID] = p
	return out
}

// ValidatePassage checks text submitted for question generation.
func ValidatePassage(text string) validate.Result {
	n := validate.Len(strings.TrimSpace(text))
	switch {
	case n == 0:
		return validate.Fail("Passage text is required")
	case n < MinPassageLength:
		return validate.Failf("Passage must be at least %d characters", MinPassageLength)
	case n > MaxPassageLength:
		return validate.Failf("Passage must be %d characters or fewer", MaxPassageLength)
	}
	return validate.OK()
}

// ValidateQuestionCount checks the requested number of questions.
func ValidateQuestionCount(n int) validate.Result {
	return validate.IntRange(n, MinQuestions, MaxQuestions, "Question count")
}

// ValidateAnswer checks a reader's free-text answer.
func ValidateAnswer(text string) validate.Result {
	return validate.Text(text, "Answer", MaxAnswerLength)
}
