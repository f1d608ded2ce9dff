package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/readmaster/read-master/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS client_state (
		user_id TEXT NOT NULL,
		state_key TEXT NOT NULL,
		value_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER,
		PRIMARY KEY (user_id, state_key)
	);
	CREATE INDEX IF NOT EXISTS idx_client_state_expires ON client_state(expires_at) WHERE expires_at IS NOT NULL;

	CREATE TABLE IF NOT EXISTS assessment_results (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		score REAL NOT NULL,
		correct_count INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		completed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assessment_results_book ON assessment_results(user_id, book_id, completed_at);

	CREATE TABLE IF NOT EXISTS flashcards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL,
		card_type TEXT NOT NULL,
		front TEXT NOT NULL,
		back TEXT NOT NULL,
		tags_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flashcards_book ON flashcards(user_id, book_id, created_at);

	CREATE TABLE IF NOT EXISTS reading_guides (
		book_id TEXT NOT NULL,
		chapter_id TEXT NOT NULL DEFAULT '',
		content_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (book_id, chapter_id)
	);

	CREATE TABLE IF NOT EXISTS webhook_events (
		message_id TEXT PRIMARY KEY,
		received_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, email, first_name, last_name, image_url, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Email, &user.FirstName, &user.LastName,
		&user.ImageURL, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, email, first_name, last_name, image_url, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		email = excluded.email,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		image_url = excluded.image_url,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Email, user.FirstName, user.LastName, user.ImageURL,
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// DeleteUser removes a user together with their state, results and flashcards.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"client_state", "assessment_results", "flashcards", "users"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("delete user rows from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// GetState returns a client state entry, or nil when absent.
func (s *SQLiteStore) GetState(ctx context.Context, userID, key string) (*domain.StateEntry, error) {
	query := `
		SELECT value_json, updated_at, expires_at
		FROM client_state WHERE user_id = ? AND state_key = ?`

	var value string
	var updatedAt int64
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, userID, key).Scan(&value, &updatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan client state: %w", err)
	}

	entry := &domain.StateEntry{
		UserID:    userID,
		Key:       key,
		Value:     []byte(value),
		UpdatedAt: time.Unix(updatedAt, 0),
	}
	if expiresAt.Valid {
		ts := time.Unix(expiresAt.Int64, 0)
		entry.ExpiresAt = &ts
	}
	return entry, nil
}

// PutState creates or replaces a client state entry.
func (s *SQLiteStore) PutState(ctx context.Context, entry *domain.StateEntry) error {
	query := `
	INSERT INTO client_state (user_id, state_key, value_json, updated_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id, state_key) DO UPDATE SET
		value_json = excluded.value_json,
		updated_at = excluded.updated_at,
		expires_at = excluded.expires_at`

	var expiresAt interface{}
	if entry.ExpiresAt != nil {
		expiresAt = entry.ExpiresAt.Unix()
	}

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	if _, err := s.db.ExecContext(ctx, query,
		entry.UserID, entry.Key, string(entry.Value), updatedAt.Unix(), expiresAt,
	); err != nil {
		return fmt.Errorf("put client state: %w", err)
	}
	return nil
}

// DeleteState removes a client state entry.
func (s *SQLiteStore) DeleteState(ctx context.Context, userID, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE user_id = ? AND state_key = ?`, userID, key,
	); err != nil {
		return fmt.Errorf("delete client state: %w", err)
	}
	return nil
}

// DeleteExpiredState removes entries whose expiry is at or before now.
func (s *SQLiteStore) DeleteExpiredState(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired client state: %w", err)
	}
	return result.RowsAffected()
}

// AddAssessmentResult records a graded assessment.
func (s *SQLiteStore) AddAssessmentResult(ctx context.Context, r *domain.AssessmentResult) error {
	query := `
	INSERT INTO assessment_results (id, user_id, book_id, assessment_id, score, correct_count, total_questions, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.BookID, r.AssessmentID, r.Score,
		r.CorrectCount, r.TotalQuestions, r.CompletedAt.Unix(),
	); err != nil {
		return fmt.Errorf("insert assessment result: %w", err)
	}
	return nil
}

// ListAssessmentResults returns a reader's results for a book, oldest first.
func (s *SQLiteStore) ListAssessmentResults(ctx context.Context, userID, bookID string) ([]*domain.AssessmentResult, error) {
	query := `
		SELECT id, book_id, assessment_id, score, correct_count, total_questions, completed_at
		FROM assessment_results WHERE user_id = ? AND book_id = ?
		ORDER BY completed_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("query assessment results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close assessment result rows", "error", closeErr)
		}
	}()

	var results []*domain.AssessmentResult
	for rows.Next() {
		r := &domain.AssessmentResult{UserID: userID}
		var completedAt int64
		if err := rows.Scan(&r.ID, &r.BookID, &r.AssessmentID, &r.Score,
			&r.CorrectCount, &r.TotalQuestions, &completedAt); err != nil {
			return nil, fmt.Errorf("scan assessment result: %w", err)
		}
		r.CompletedAt = time.Unix(completedAt, 0)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessment results: %w", err)
	}
	return results, nil
}

// SaveFlashcards stores generated cards atomically.
func (s *SQLiteStore) SaveFlashcards(ctx context.Context, cards []*domain.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save flashcards: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flashcards (id, user_id, book_id, card_type, front, back, tags_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare flashcard insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range cards {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("marshal flashcard tags: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.UserID, c.BookID, c.Type,
			c.Front, c.Back, string(tagsJSON), c.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("insert flashcard: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flashcards: %w", err)
	}
	return nil
}

// ListFlashcards returns a reader's saved cards for a book, oldest first.
func (s *SQLiteStore) ListFlashcards(ctx context.Context, userID, bookID string) ([]*domain.Flashcard, error) {
	query := `
		SELECT id, book_id, card_type, front, back, tags_json, created_at
		FROM flashcards WHERE user_id = ? AND book_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("query flashcards: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close flashcard rows", "error", closeErr)
		}
	}()

	var cards []*domain.Flashcard
	for rows.Next() {
		c := &domain.Flashcard{UserID: userID}
		var tagsJSON string
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.BookID, &c.Type, &c.Front, &c.Back, &tagsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &c.Tags); err != nil {
			slog.Warn("discarding malformed flashcard tags", "id", c.ID, "error", err)
			c.Tags = nil
		}
		c.CreatedAt = time.Unix(createdAt, 0)
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flashcards: %w", err)
	}
	return cards, nil
}

// GetReadingGuide returns a cached guide, or nil when absent.
func (s *SQLiteStore) GetReadingGuide(ctx context.Context, bookID, chapterID string) (*domain.ReadingGuide, error) {
	var content string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT content_json, created_at FROM reading_guides WHERE book_id = ? AND chapter_id = ?`,
		bookID, chapterID,
	).Scan(&content, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan reading guide: %w", err)
	}
	return &domain.ReadingGuide{
		BookID:      bookID,
		ChapterID:   chapterID,
		ContentJSON: []byte(content),
		CreatedAt:   time.Unix(createdAt, 0),
	}, nil
}

// PutReadingGuide caches a guide, replacing any previous one.
func (s *SQLiteStore) PutReadingGuide(ctx context.Context, g *domain.ReadingGuide) error {
	query := `
	INSERT INTO reading_guides (book_id, chapter_id, content_json, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(book_id, chapter_id) DO UPDATE SET
		content_json = excluded.content_json,
		created_at = excluded.created_at`

	if _, err := s.db.ExecContext(ctx, query, g.BookID, g.ChapterID, string(g.ContentJSON), g.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("put reading guide: %w", err)
	}
	return nil
}

// MarkWebhookProcessed records a webhook message id, reporting false for repeats.
func (s *SQLiteStore) MarkWebhookProcessed(ctx context.Context, messageID string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO webhook_events (message_id, received_at) VALUES (?, ?)`,
		messageID, at.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("webhook event rows affected: %w", err)
	}
	return rows == 1, nil
}

// ForgetWebhookEvent removes a recorded message id so a redelivery is processed again.
func (s *SQLiteStore) ForgetWebhookEvent(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE message_id = ?`, messageID); err != nil {
		return fmt.Errorf("forget webhook event: %w", err)
	}
	return nil
}

// DeleteWebhookEventsBefore forgets processed webhook ids older than cutoff.
func (s *SQLiteStore) DeleteWebhookEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM webhook_events WHERE received_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete webhook events: %w", err)
	}
	return result.RowsAffected()
}

var _ Repository = (*SQLiteStore)(nil)
