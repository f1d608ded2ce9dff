package domain

import "time"

// AssessmentResult is a graded assessment kept for history and trend views.
type AssessmentResult struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	BookID         string    `json:"book_id"`
	AssessmentID   string    `json:"assessment_id"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Flashcard is a generated card saved to the reader's deck.
type Flashcard struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	BookID    string    `json:"book_id"`
	Type      string    `json:"type"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReadingGuide is a cached pre-reading guide for a book or one chapter.
// ChapterID is empty for whole-book guides.
type ReadingGuide struct {
	BookID      string
	ChapterID   string
	ContentJSON []byte
	CreatedAt   time.Time
}
