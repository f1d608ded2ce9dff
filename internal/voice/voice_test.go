package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"

	"github.com/readmaster/read-master/internal/aierr"
)

func TestTransitions(t *testing.T) {
	path := []struct {
		ev   Event
		want Mode
	}{
		{EventStart, ModeListening},
		{EventTranscript, ModeProcessing},
		{EventAnswer, ModeSpeaking},
		{EventPlaybackDone, ModeIdle},
		{EventStart, ModeListening},
		{EventStop, ModeIdle},
	}
	m := ModeIdle
	for _, step := range path {
		next, err := Transition(m, step.ev)
		if err != nil {
			t.Fatalf("%s in %s: %v", step.ev, m, err)
		}
		if next != step.want {
			t.Fatalf("%s in %s = %s, want %s", step.ev, m, next, step.want)
		}
		m = next
	}
}

func TestIllegalTransitions(t *testing.T) {
	tests := []struct {
		m  Mode
		ev Event
	}{
		{ModeIdle, EventTranscript},
		{ModeIdle, EventAnswer},
		{ModeProcessing, EventStart},
		{ModeListening, EventAnswer},
		{ModeError, EventStart},
	}
	for _, tt := range tests {
		got, err := Transition(tt.m, tt.ev)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s in %s: expected ErrInvalidTransition, got %v", tt.ev, tt.m, err)
		}
		if got != tt.m {
			t.Errorf("%s in %s changed mode to %s", tt.ev, tt.m, got)
		}
	}
}

func TestFailAndResetFromAnyMode(t *testing.T) {
	for _, m := range []Mode{ModeIdle, ModeListening, ModeProcessing, ModeSpeaking, ModeError} {
		if got, _ := Transition(m, EventFail); got != ModeError {
			t.Errorf("fail in %s = %s", m, got)
		}
		if got, _ := Transition(m, EventReset); got != ModeIdle {
			t.Errorf("reset in %s = %s", m, got)
		}
	}
}

func TestValidateTranscript(t *testing.T) {
	if ValidateTranscript(" ").Valid {
		t.Error("blank transcript accepted")
	}
	if !ValidateTranscript(strings.Repeat("a", MaxTranscriptLength)).Valid {
		t.Error("boundary transcript rejected")
	}
	if ValidateTranscript(strings.Repeat("a", MaxTranscriptLength+1)).Valid {
		t.Error("long transcript accepted")
	}
}

type fakeConn struct {
	mu     sync.Mutex
	closed int
}

func (c *fakeConn) Close(websocket.StatusCode, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func TestManagerReplacesConnection(t *testing.T) {
	sm := NewManager()
	first, second := &fakeConn{}, &fakeConn{}

	sm.Register("user_1", "book_1", first)
	sm.Register("user_1", "book_1", second)
	if first.closed != 1 {
		t.Fatalf("replaced connection closed %d times", first.closed)
	}
	if sm.Active("user_1", "book_1") != second {
		t.Fatal("expected second connection active")
	}

	// A stale unregister must not remove the replacement.
	sm.Unregister("user_1", "book_1", first)
	if sm.Active("user_1", "book_1") != second {
		t.Fatal("stale unregister removed the live connection")
	}
	sm.Unregister("user_1", "book_1", second)
	if sm.Count() != 0 {
		t.Fatalf("expected no connections, got %d", sm.Count())
	}
}

func TestManagerCloseUser(t *testing.T) {
	sm := NewManager()
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	sm.Register("user_1", "book_1", a)
	sm.Register("user_1", "book_2", b)
	sm.Register("user_2", "book_1", other)

	sm.CloseUser("user_1")
	if a.closed != 1 || b.closed != 1 || other.closed != 0 {
		t.Fatalf("closed counts: %d %d %d", a.closed, b.closed, other.closed)
	}
	if sm.Count() != 1 {
		t.Fatalf("expected one connection left, got %d", sm.Count())
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	sm := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		book := strings.Repeat("b", i+1)
		go func() {
			defer wg.Done()
			sm.Register("user_1", book, &fakeConn{})
		}()
		go func() {
			defer wg.Done()
			sm.Active("user_1", book)
		}()
	}
	wg.Wait()
	if sm.Count() != 50 {
		t.Fatalf("expected 50 connections, got %d", sm.Count())
	}
}

type fakeResponder struct {
	reply string
	err   error
	got   string
}

func (f *fakeResponder) Respond(_ context.Context, _, _, transcript string) (string, error) {
	f.got = transcript
	return f.reply, f.err
}

func newTestSession(r Responder) (*session, *[]serverMessage) {
	var sent []serverMessage
	return &session{
		responder: r,
		userID:    "user_1",
		bookID:    "book_1",
		mode:      ModeIdle,
		send: func(_ context.Context, m serverMessage) error {
			sent = append(sent, m)
			return nil
		},
	}, &sent
}

func TestSessionConversation(t *testing.T) {
	r := &fakeResponder{reply: "Paul is the heir of House Atreides."}
	s, sent := newTestSession(r)
	ctx := context.Background()

	if !s.handle(ctx, []byte(`{"type":"start"}`)) {
		t.Fatal("start ended the session")
	}
	if !s.handle(ctx, []byte(`{"type":"transcript","content":"  who is paul  "}`)) {
		t.Fatal("transcript ended the session")
	}
	if r.got != "who is paul" {
		t.Errorf("responder got %q", r.got)
	}
	if s.mode != ModeSpeaking {
		t.Fatalf("mode = %s, want speaking", s.mode)
	}
	s.handle(ctx, []byte(`{"type":"playback_done"}`))
	if s.mode != ModeIdle {
		t.Fatalf("mode = %s, want idle", s.mode)
	}

	var types []string
	for _, m := range *sent {
		types = append(types, m.Type+":"+string(m.Mode))
	}
	want := "mode:listening,mode:processing,answer:,mode:speaking,mode:idle"
	if got := strings.Join(types, ","); got != want {
		t.Errorf("messages = %s, want %s", got, want)
	}
}

func TestSessionResponderFailure(t *testing.T) {
	r := &fakeResponder{err: aierr.New(aierr.KindAIUnavailable, nil)}
	s, sent := newTestSession(r)
	ctx := context.Background()

	s.handle(ctx, []byte(`{"type":"start"}`))
	s.handle(ctx, []byte(`{"type":"transcript","content":"hello"}`))
	if s.mode != ModeError {
		t.Fatalf("mode = %s, want error", s.mode)
	}
	last := (*sent)[len(*sent)-1]
	if last.Type != "error" || last.Code != "ai_unavailable" || !last.Retryable {
		t.Errorf("unexpected error message %+v", last)
	}

	s.handle(ctx, []byte(`{"type":"reset"}`))
	if s.mode != ModeIdle {
		t.Fatalf("reset left mode %s", s.mode)
	}
}

func TestSessionRejectsOutOfOrderEvents(t *testing.T) {
	r := &fakeResponder{reply: "x"}
	s, sent := newTestSession(r)
	ctx := context.Background()

	if !s.handle(ctx, []byte(`{"type":"transcript","content":"hello"}`)) {
		t.Fatal("an invalid event should not end the session")
	}
	if r.got != "" {
		t.Fatal("transcript while idle must not reach the responder")
	}
	if last := (*sent)[len(*sent)-1]; last.Type != "error" || last.Code != "validation_error" {
		t.Errorf("unexpected message %+v", last)
	}
	if s.handle(ctx, []byte(`{"type":"end"}`)) {
		t.Fatal("end should close the session")
	}
}
