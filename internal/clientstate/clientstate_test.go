package clientstate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/readmaster/read-master/internal/domain"
	"github.com/readmaster/read-master/internal/store"
)

type prefs struct {
	CardCount int  `json:"cardCount"`
	AutoSave  bool `json:"autoSave"`
}

func openStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := New(openStore(t))

	def := prefs{CardCount: 10}
	if got := Load(ctx, st, "user_1", KeyFlashcardPrefs, def, nil); got != def {
		t.Fatalf("expected default for missing key, got %+v", got)
	}

	if err := st.Save(ctx, "user_1", KeyFlashcardPrefs, prefs{CardCount: 20, AutoSave: true}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got := Load(ctx, st, "user_1", KeyFlashcardPrefs, def, nil)
	if got.CardCount != 20 || !got.AutoSave {
		t.Fatalf("unexpected value %+v", got)
	}

	if err := st.Delete(ctx, "user_1", KeyFlashcardPrefs); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := Load(ctx, st, "user_1", KeyFlashcardPrefs, def, nil); got != def {
		t.Fatalf("expected default after delete, got %+v", got)
	}
}

func TestLoadCorruptValueReturnsDefault(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t)
	st := New(repo)

	if err := repo.PutState(ctx, &domain.StateEntry{UserID: "user_1", Key: KeyFlashcardPrefs, Value: []byte(`{not json`)}); err != nil {
		t.Fatalf("PutState failed: %v", err)
	}
	def := prefs{CardCount: 10}
	if got := Load(ctx, st, "user_1", KeyFlashcardPrefs, def, nil); got != def {
		t.Fatalf("expected default for corrupt value, got %+v", got)
	}
}

func TestLoadValidationReturnsDefault(t *testing.T) {
	ctx := context.Background()
	st := New(openStore(t))
	_ = st.Save(ctx, "user_1", KeyFlashcardPrefs, prefs{CardCount: 500}, 0)

	def := prefs{CardCount: 10}
	got := Load(ctx, st, "user_1", KeyFlashcardPrefs, def, func(p *prefs) bool {
		return p.CardCount >= 1 && p.CardCount <= 50
	})
	if got != def {
		t.Fatalf("expected default for invalid shape, got %+v", got)
	}
}

func TestLoadDropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	st := New(openStore(t))
	now := time.Unix(1_700_000_000, 0)
	st.now = func() time.Time { return now }

	key := AssessmentKey("a1")
	if err := st.Save(ctx, "user_1", key, prefs{CardCount: 3}, 24*time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	now = now.Add(23 * time.Hour)
	if got := Load(ctx, st, "user_1", key, prefs{}, nil); got.CardCount != 3 {
		t.Fatalf("expected fresh entry, got %+v", got)
	}

	now = now.Add(2 * time.Hour)
	if got := Load(ctx, st, "user_1", key, prefs{}, nil); got.CardCount != 0 {
		t.Fatalf("expected stale entry to be dropped, got %+v", got)
	}
}

type failingBackend struct{ err error }

func (f failingBackend) GetState(context.Context, string, string) (*domain.StateEntry, error) {
	return nil, f.err
}
func (f failingBackend) PutState(context.Context, *domain.StateEntry) error { return f.err }
func (f failingBackend) DeleteState(context.Context, string, string) error  { return f.err }

func TestBackendFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	st := New(failingBackend{err: boom})

	if got := Load(ctx, st, "user_1", KeyModelPreference, "balanced", nil); got != "balanced" {
		t.Fatalf("expected default on read failure, got %q", got)
	}
	if err := st.Save(ctx, "user_1", KeyModelPreference, "fast", 0); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	st := New(openStore(t))

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Update(ctx, st, "user_1", KeyCheckins, map[string]int{}, nil, 0, func(m map[string]int) (map[string]int, error) {
				m["count"]++
				return m, nil
			})
		}()
	}
	wg.Wait()

	got := Load(ctx, st, "user_1", KeyCheckins, map[string]int{}, nil)
	if got["count"] != writers {
		t.Fatalf("expected %d updates, got %d", writers, got["count"])
	}
	if n := len(st.locks); n != 0 {
		t.Errorf("expected key locks to be released, %d remain", n)
	}
}

func TestUpdateErrorKeepsStoredValue(t *testing.T) {
	ctx := context.Background()
	st := New(openStore(t))
	if err := st.Save(ctx, "user_1", KeyFlashcardPrefs, prefs{CardCount: 20}, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	boom := errors.New("rejected")
	_, err := Update(ctx, st, "user_1", KeyFlashcardPrefs, prefs{CardCount: 10}, nil, 0, func(p prefs) (prefs, error) {
		return prefs{CardCount: 99}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if got := Load(ctx, st, "user_1", KeyFlashcardPrefs, prefs{}, nil); got.CardCount != 20 {
		t.Fatalf("expected stored value kept, got %+v", got)
	}
}

func TestKeys(t *testing.T) {
	if AssessmentKey("abc") != "assessment_abc" {
		t.Errorf("AssessmentKey = %q", AssessmentKey("abc"))
	}
	if ChatSessionKey("book-1") != "chat_session_book-1" {
		t.Errorf("ChatSessionKey = %q", ChatSessionKey("book-1"))
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t)
	now := time.Unix(1_700_000_000, 0)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	for _, e := range []*domain.StateEntry{
		{UserID: "u", Key: "stale", Value: []byte(`1`), ExpiresAt: &past},
		{UserID: "u", Key: "fresh", Value: []byte(`1`), ExpiresAt: &future},
		{UserID: "u", Key: "forever", Value: []byte(`1`)},
	} {
		if err := repo.PutState(ctx, e); err != nil {
			t.Fatalf("PutState failed: %v", err)
		}
	}
	if _, err := repo.MarkWebhookProcessed(ctx, "old", now.Add(-8*24*time.Hour)); err != nil {
		t.Fatalf("MarkWebhookProcessed failed: %v", err)
	}
	if _, err := repo.MarkWebhookProcessed(ctx, "recent", now.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkWebhookProcessed failed: %v", err)
	}

	Sweep(ctx, repo, now)

	for key, want := range map[string]bool{"stale": false, "fresh": true, "forever": true} {
		e, err := repo.GetState(ctx, "u", key)
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if (e != nil) != want {
			t.Errorf("%s present = %v, want %v", key, e != nil, want)
		}
	}
	if fresh, _ := repo.MarkWebhookProcessed(ctx, "old", now); !fresh {
		t.Error("old webhook id should have been pruned")
	}
	if fresh, _ := repo.MarkWebhookProcessed(ctx, "recent", now); fresh {
		t.Error("recent webhook id should be kept")
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RunSweeper(ctx, openStore(t), time.Hour); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
}
