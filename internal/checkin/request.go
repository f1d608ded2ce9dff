package checkin

import (
	"strings"

	"github.com/readmaster/read-master/internal/validate"
)

// Question is a generated comprehension question.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// Answer is a reader's response to one question.
type Answer struct {
	QuestionID string `json:"questionId"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Input is what the client sends to the comprehension-check endpoint. With
// Answers set it asks for evaluation; otherwise it asks for questions.
type Input struct {
	BookID          string   `json:"bookId"`
	ChapterID       string   `json:"chapterId,omitempty"`
	Passage         string   `json:"passage"`
	QuestionCount   int      `json:"questionCount,omitempty"`
	ProgressPercent float64  `json:"progressPercent,omitempty"`
	ReadingLevel    string   `json:"readingLevel,omitempty"`
	Answers         []Answer `json:"answers,omitempty"`
}

// Request is the body sent to the AI comprehension-check endpoint.
type Request struct {
	Action          string   `json:"action"`
	BookID          string   `json:"bookId"`
	ChapterID       string   `json:"chapterId,omitempty"`
	Passage         string   `json:"passage"`
	QuestionCount   int      `json:"questionCount,omitempty"`
	ProgressPercent float64  `json:"progressPercent,omitempty"`
	ReadingLevel    string   `json:"readingLevel,omitempty"`
	Answers         []Answer `json:"answers,omitempty"`
}

// Feedback is the evaluation of one answer.
type Feedback struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Feedback   string `json:"feedback"`
}

// Response is what the AI returns for either action.
type Response struct {
	Questions []Question `json:"questions,omitempty"`
	Feedback  []Feedback `json:"feedback,omitempty"`
	Score     *float64   `json:"score,omitempty"`
}

// DefaultQuestionCount is used when the client does not ask for a number.
const DefaultQuestionCount = 3

// ValidateInput checks in for whichever action it requests.
func ValidateInput(in Input) validate.Result {
	if strings.TrimSpace(in.BookID) == "" {
		return validate.Fail("Book ID is required")
	}
	if r := ValidatePassage(in.Passage); !r.Valid {
		return r
	}
	if len(in.Answers) > 0 {
		if len(in.Answers) > MaxQuestions {
			return validate.Failf("At most %d answers can be evaluated", MaxQuestions)
		}
		for _, a := range in.Answers {
			if r := ValidateAnswer(a.Answer); !r.Valid {
				return r
			}
		}
		return validate.OK()
	}
	if in.QuestionCount != 0 {
		return ValidateQuestionCount(in.QuestionCount)
	}
	return validate.OK()
}

// BuildRequest shapes in for the AI service.
func BuildRequest(in Input) Request {
	req := Request{
		Action:          "generate",
		BookID:          in.BookID,
		ChapterID:       in.ChapterID,
		Passage:         strings.TrimSpace(in.Passage),
		QuestionCount:   in.QuestionCount,
		ProgressPercent: in.ProgressPercent,
		ReadingLevel:    in.ReadingLevel,
	}
	if len(in.Answers) > 0 {
		req.Action = "evaluate"
		req.QuestionCount = 0
		req.Answers = in.Answers
		return req
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = DefaultQuestionCount
	}
	return req
}
