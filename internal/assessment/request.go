package assessment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/readmaster/read-master/internal/aierr"
	"github.com/readmaster/read-master/internal/domain"
	"github.com/readmaster/read-master/internal/validate"
)

// Limits.
const (
	MinQuestions     = 5
	MaxQuestions     = 20
	DefaultQuestions = 10
	MaxAnswerLength  = 2000
)

// Difficulty of generated questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

// Valid reports whether d is known.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed:
		return true
	}
	return false
}

// ErrorMessages overrides failure text for assessments.
var ErrorMessages = aierr.Messages{
	aierr.KindContentTooShort:  "This book doesn't have enough content for an assessment yet.",
	aierr.KindGenerationFailed: "We couldn't build your assessment. Please try again.",
	aierr.KindNotFound:         "That assessment no longer exists.",
}

// GenerateInput is what the client sends to create an assessment.
type GenerateInput struct {
	BookID        string     `json:"bookId"`
	ChapterIDs    []string   `json:"chapterIds,omitempty"`
	QuestionCount int        `json:"questionCount,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	QuestionTypes []string   `json:"questionTypes,omitempty"`
}

// ValidateGenerate checks a generation request.
func ValidateGenerate(in GenerateInput) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	if in.QuestionCount != 0 {
		if r := validate.IntRange(in.QuestionCount, MinQuestions, MaxQuestions, "Question count"); !r.Valid {
			return r
		}
	}
	if in.Difficulty != "" && !in.Difficulty.Valid() {
		return validate.Failf("Unknown difficulty %q", in.Difficulty)
	}
	return validate.OK()
}

// BuildGenerateRequest fills defaults.
func BuildGenerateRequest(in GenerateInput) GenerateInput {
	if in.QuestionCount == 0 {
		in.QuestionCount = DefaultQuestions
	}
	if in.Difficulty == "" {
		in.Difficulty = DifficultyMixed
	}
	return in
}

// Question is one generated question.
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Points   int      `json:"points,omitempty"`
}

// Assessment is a generated assessment.
type Assessment struct {
	ID        string     `json:"id"`
	BookID    string     `json:"bookId"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// GradeInput is what the client submits for grading.
type GradeInput struct {
	BookID    string            `json:"bookId"`
	Questions []Question        `json:"questions"`
	Answers   map[string]string `json:"answers"`
}

// ValidateGrade checks a submission.
func ValidateGrade(in GradeInput) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	if len(in.Questions) == 0 {
		return validate.Fail("Questions are required")
	}
	if len(in.Answers) == 0 {
		return validate.Fail("Answer at least one question before submitting")
	}
	for _, a := range in.Answers {
		if validate.Len(a) > MaxAnswerLength {
			return validate.Failf("Answers must be %d characters or fewer", MaxAnswerLength)
		}
	}
	return validate.OK()
}

// QuestionFeedback is the grading of one answer.
type QuestionFeedback struct {
	QuestionID string  `json:"questionId"`
	Correct    bool    `json:"correct"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback,omitempty"`
}

// GradeResult is the AI grading response.
type GradeResult struct {
	Score          float64            `json:"score"`
	CorrectCount   int                `json:"correctCount"`
	TotalQuestions int                `json:"totalQuestions"`
	Feedback       []QuestionFeedback `json:"feedback,omitempty"`
}

// Record converts a grade into a stored result.
func (g GradeResult) Record(userID, bookID, assessmentID string, now time.Time) *domain.AssessmentResult {
	total := g.TotalQuestions
	if total == 0 {
		total = len(g.Feedback)
	}
	return &domain.AssessmentResult{
		ID:             uuid.NewString(),
		UserID:         userID,
		BookID:         bookID,
		AssessmentID:   assessmentID,
		Score:          g.Score,
		CorrectCount:   g.CorrectCount,
		TotalQuestions: total,
		CompletedAt:    now,
	}
}
