// Package clientstate persists per-user UI state as namespaced JSON values.
//
// Reads never fail: a missing entry, an unreadable row, a stale expiry, a JSON
// error or a failed shape check all yield the caller's default. Writes are
// soft failures that callers may log and ignore.
package clientstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/readmaster/read-master/internal/domain"
	"github.com/readmaster/read-master/internal/shared"
)

// Storage keys, shared with the browser client.
const (
	KeyCheckins          = "read-master-comprehension-checkins"
	KeyCheckinFrequency  = "read-master-checkin-frequency"
	KeyFlashcardPrefs    = "flashcard_generation_prefs"
	KeyModelPreference   = "ai_model_preference"
	assessmentKeyPrefix  = "assessment_"
	chatSessionKeyPrefix = "chat_session_"
)

// AssessmentKey is the key for one assessment's in-progress answers.
func AssessmentKey(assessmentID string) string { return assessmentKeyPrefix + assessmentID }

// ChatSessionKey is the key for a book's chat session.
func ChatSessionKey(bookID string) string { return chatSessionKeyPrefix + bookID }

// Backend is the persistence the state layer needs.
type Backend interface {
	GetState(ctx context.Context, userID, key string) (*domain.StateEntry, error)
	PutState(ctx context.Context, entry *domain.StateEntry) error
	DeleteState(ctx context.Context, userID, key string) error
}

// Store reads and writes client state for one backend. Writes to the same
// user and key are serialized within the process.
type Store struct {
	backend Backend
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now, locks: make(map[string]*keyLock)}
}

// lock holds the lock for userID and key until the returned func is called.
func (s *Store) lock(userID, key string) func() {
	id := userID + "\x00" + key

	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &keyLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Load decodes the value under key into a T. valid, when non-nil, may
// normalize the decoded value and reports whether it is usable.
func Load[T any](ctx context.Context, s *Store, userID, key string, def T, valid func(*T) bool) T {
	entry, err := s.backend.GetState(ctx, userID, key)
	if err != nil {
		slog.Warn("Client state read failed, using default", "user_id", userID, "key", key, "error", err)
		return def
	}
	if entry == nil || entry.Expired(s.now()) {
		return def
	}

	var v T
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		slog.Warn("Client state corrupt, using default", "user_id", userID, "key", key, "error", err)
		return def
	}
	if valid != nil && !valid(&v) {
		slog.Warn("Client state failed validation, using default", "user_id", userID, "key", key)
		return def
	}
	return v
}

// Update loads the value under key, applies fn and stores the result while
// holding the key's lock, so concurrent updates never overwrite each other.
// The new value is returned even when the write fails.
func Update[T any](ctx context.Context, s *Store, userID, key string, def T, valid func(*T) bool, ttl time.Duration, fn func(T) (T, error)) (T, error) {
	unlock := s.lock(userID, key)
	defer unlock()

	next, err := fn(Load(ctx, s, userID, key, def, valid))
	if err != nil {
		var zero T
		return zero, err
	}
	return next, s.save(ctx, userID, key, next, ttl)
}

// Save stores v under key. A positive ttl makes the entry expire.
func (s *Store) Save(ctx context.Context, userID, key string, v any, ttl time.Duration) error {
	unlock := s.lock(userID, key)
	defer unlock()
	return s.save(ctx, userID, key, v, ttl)
}

func (s *Store) save(ctx context.Context, userID, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode client state %s: %w", key, err)
	}

	now := s.now()
	entry := &domain.StateEntry{UserID: userID, Key: key, Value: data, UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		entry.ExpiresAt = &exp
	}

	err = shared.RetryOnConflict(ctx, "put state", 3, 50*time.Millisecond, func(ctx context.Context) error {
		return s.backend.PutState(ctx, entry)
	})
	if err != nil {
		slog.Warn("Client state write failed", "user_id", userID, "key", key, "error", err)
		return fmt.Errorf("save client state %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, userID, key string) error {
	unlock := s.lock(userID, key)
	defer unlock()
	if err := s.backend.DeleteState(ctx, userID, key); err != nil {
		slog.Warn("Client state delete failed", "user_id", userID, "key", key, "error", err)
		return fmt.Errorf("delete client state %s: %w", key, err)
	}
	return nil
}
