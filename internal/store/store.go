// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/readmaster/read-master/internal/domain"
)

// Repository defines the interface for persisting reader data.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// DeleteUser removes a user and everything stored on their behalf.
	DeleteUser(ctx context.Context, userID string) error

	// GetState returns a client state entry, or nil, nil when absent.
	GetState(ctx context.Context, userID, key string) (*domain.StateEntry, error)

	// PutState creates or replaces a client state entry.
	PutState(ctx context.Context, entry *domain.StateEntry) error

	// DeleteState removes a client state entry. Deleting a missing key is not an error.
	DeleteState(ctx context.Context, userID, key string) error

	// DeleteExpiredState removes entries whose expiry is at or before now.
	DeleteExpiredState(ctx context.Context, now time.Time) (int64, error)

	// AddAssessmentResult records a graded assessment.
	AddAssessmentResult(ctx context.Context, result *domain.AssessmentResult) error

	// ListAssessmentResults returns a reader's results for a book, oldest first.
	ListAssessmentResults(ctx context.Context, userID, bookID string) ([]*domain.AssessmentResult, error)

	// SaveFlashcards stores generated cards atomically.
	SaveFlashcards(ctx context.Context, cards []*domain.Flashcard) error

	// ListFlashcards returns a reader's saved cards for a book, oldest first.
	ListFlashcards(ctx context.Context, userID, bookID string) ([]*domain.Flashcard, error)

	// GetReadingGuide returns a cached guide, or nil, nil when absent.
	GetReadingGuide(ctx context.Context, bookID, chapterID string) (*domain.ReadingGuide, error)

	// PutReadingGuide caches a guide, replacing any previous one.
	PutReadingGuide(ctx context.Context, guide *domain.ReadingGuide) error

	// MarkWebhookProcessed records a webhook message id. It reports false
	// when the id was already recorded.
	MarkWebhookProcessed(ctx context.Context, messageID string, at time.Time) (bool, error)

	// ForgetWebhookEvent removes a recorded message id after failed processing.
	ForgetWebhookEvent(ctx context.Context, messageID string) error

	// DeleteWebhookEventsBefore forgets processed webhook ids older than cutoff.
	DeleteWebhookEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
