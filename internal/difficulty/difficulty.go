// Package difficulty estimates how hard a text is to read and how well it
// fits a reader.
package difficulty

import (
	"math"
	"strings"
	"unicode"

	"github.com/readmaster/read-master/internal/validate"
)

// Level is a reading level shared by texts and readers.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

var levelOrder = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

func (l Level) index() int {
	for i, x := range levelOrder {
		if x == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is known.
func (l Level) Valid() bool { return l.index() >= 0 }

// Fit is how a text matches a reader.
type Fit string

const (
	FitTooEasy     Fit = "too_easy"
	FitJustRight   Fit = "just_right"
	FitChallenging Fit = "challenging"
	FitTooHard     Fit = "too_hard"
)

// Sample limits.
const (
	MinSampleLength = 200
	MaxSampleLength = 10000
)

// Estimate is a local readability measurement.
type Estimate struct {
	Words        int     `json:"words"`
	Sentences    int     `json:"sentences"`
	Syllables    int     `json:"syllables"`
	ReadingEase  float64 `json:"readingEase"`
	GradeLevel   float64 `json:"gradeLevel"`
	Level        Level   `json:"level"`
	EstimatedBy  string  `json:"estimatedBy"`
	MinutesPer1K float64 `json:"minutesPer1kWords,omitempty"`
}

// ValidateSample checks text submitted for assessment.
func ValidateSample(text string) validate.Result {
	n := validate.Len(strings.TrimSpace(text))
	switch {
	case n == 0:
		return validate.Fail("Text sample is required")
	case n < MinSampleLength:
		return validate.Failf("Text sample must be at least %d characters", MinSampleLength)
	case n > MaxSampleLength:
		return validate.Failf("Text sample must be %d characters or fewer", MaxSampleLength)
	}
	return validate.OK()
}

// Analyze computes Flesch reading ease and Flesch-Kincaid grade for text.
func Analyze(text string) Estimate {
	words := splitWords(text)
	e := Estimate{Words: len(words), Sentences: countSentences(text), EstimatedBy: "local"}
	if e.Words == 0 {
		e.Level = LevelBeginner
		return e
	}
	for _, w := range words {
		e.Syllables += countSyllables(w)
	}

	wps := float64(e.Words) / float64(e.Sentences)
	spw := float64(e.Syllables) / float64(e.Words)
	e.ReadingEase = round1(206.835 - 1.015*wps - 84.6*spw)
	e.GradeLevel = round1(math.Max(0, 0.39*wps+11.8*spw-15.59))
	e.Level = LevelForGrade(e.GradeLevel)
	// Average adult silent reading speed, slowed for harder text.
	e.MinutesPer1K = round1(1000 / (250 - math.Min(150, e.GradeLevel*8)))
	return e
}

// LevelForGrade maps a US grade level to a reading level.
func LevelForGrade(grade float64) Level {
	switch {
	case grade <= 5:
		return LevelBeginner
	case grade <= 8:
		return LevelIntermediate
	case grade <= 12:
		return LevelAdvanced
	default:
		return LevelExpert
	}
}

// Match compares a text's level with the reader's.
func Match(text, reader Level) Fit {
	ti, ri := text.index(), reader.index()
	if ti < 0 || ri < 0 {
		return FitJustRight
	}
	switch d := ti - ri; {
	case d < 0:
		return FitTooEasy
	case d == 0:
		return FitJustRight
	case d == 1:
		return FitChallenging
	default:
		return FitTooHard
	}
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func countSentences(text string) int {
	n := 0
	inTerminator := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inTerminator {
				n++
			}
			inTerminator = true
			continue
		}
		inTerminator = false
	}
	if n == 0 {
		return 1
	}
	return n
}

func countSyllables(word string) int {
	w := strings.ToLower(strings.Trim(word, "'"))
	if w == "" {
		return 0
	}
	if len(w) <= 3 {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		return 1
	}
	return count
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
