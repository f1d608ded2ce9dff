package chat

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestSessionTransitionsDoNotMutate(t *testing.T) {
	s := NewSession(Context{BookID: "book_1", BookTitle: "Dune"}, t0)
	s1 := s.AppendMessage(NewMessage(RoleUser, "Who is Paul?", StatusComplete, t0))
	s2 := s1.AppendMessage(NewMessage(RoleAssistant, "", StatusPending, t0))
	s3 := s2.UpdateLastMessage("The protagonist.", StatusComplete, t0.Add(time.Second))

	if len(s.Messages) != 0 || len(s1.Messages) != 1 || len(s2.Messages) != 2 {
		t.Fatalf("append mutated earlier sessions: %d %d %d", len(s.Messages), len(s1.Messages), len(s2.Messages))
	}
	if s2.Messages[1].Status != StatusPending {
		t.Fatal("UpdateLastMessage mutated its receiver")
	}
	if s3.Messages[1].Content != "The protagonist." || s3.Messages[1].Status != StatusComplete {
		t.Fatalf("unexpected last message %+v", s3.Messages[1])
	}

	cleared := s3.Clear(t0)
	if len(cleared.Messages) != 0 || cleared.ID != s.ID || cleared.Context.BookTitle != "Dune" {
		t.Fatalf("unexpected cleared session %+v", cleared)
	}
}

func TestUpdateLastMessageOnEmptySession(t *testing.T) {
	s := NewSession(Context{BookID: "b"}, t0)
	if got := s.UpdateLastMessage("x", StatusComplete, t0); len(got.Messages) != 0 {
		t.Fatal("expected no-op")
	}
}

func TestUpdateMessageTargetsID(t *testing.T) {
	first := NewMessage(RoleAssistant, "", StatusPending, t0)
	second := NewMessage(RoleAssistant, "", StatusPending, t0)
	s := NewSession(Context{BookID: "b"}, t0).AppendMessage(first).AppendMessage(second)

	got := s.UpdateMessage(first.ID, "Earlier reply.", StatusComplete, t0.Add(time.Second))
	if got.Messages[0].Content != "Earlier reply." || got.Messages[0].Status != StatusComplete {
		t.Fatalf("unexpected first message %+v", got.Messages[0])
	}
	if got.Messages[1].Status != StatusPending {
		t.Fatalf("newest message changed: %+v", got.Messages[1])
	}
	if s.Messages[0].Status != StatusPending {
		t.Fatal("UpdateMessage mutated its receiver")
	}
	if same := s.UpdateMessage("missing", "x", StatusError, t0); !same.UpdatedAt.Equal(s.UpdatedAt) {
		t.Fatal("expected no-op for unknown id")
	}
}

func TestAppendCapsStoredMessages(t *testing.T) {
	s := NewSession(Context{BookID: "b"}, t0)
	for i := 0; i < MaxStoredMessages+5; i++ {
		s = s.AppendMessage(NewMessage(RoleUser, fmt.Sprint(i), StatusComplete, t0))
	}
	if len(s.Messages) != MaxStoredMessages {
		t.Fatalf("expected %d messages, got %d", MaxStoredMessages, len(s.Messages))
	}
	if s.Messages[0].Content != "5" {
		t.Errorf("expected oldest messages dropped, first is %q", s.Messages[0].Content)
	}
}

func TestValidateMessage(t *testing.T) {
	if r := ValidateMessage(""); r.Valid || !strings.Contains(r.Error, "required") {
		t.Errorf("empty message: %+v", r)
	}
	if r := ValidateMessage(strings.Repeat("a", MaxMessageLength)); !r.Valid {
		t.Errorf("boundary message: %+v", r)
	}
	if r := ValidateMessage(strings.Repeat("a", MaxMessageLength+1)); r.Valid {
		t.Error("over-long message should be invalid")
	}
}

func TestBuildAskRequestKeepsRecentCompletedHistory(t *testing.T) {
	s := NewSession(Context{BookID: "book_1", ChapterID: "ch3", ReadingLevel: "advanced"}, t0)
	for i := 0; i < 12; i++ {
		s = s.AppendMessage(NewMessage(RoleUser, fmt.Sprint("q", i), StatusComplete, t0))
	}
	s = s.AppendMessage(NewMessage(RoleAssistant, "partial", StatusError, t0))

	req := BuildAskRequest(s, "What now?", "fast-1")
	if len(req.History) != HistoryLimit {
		t.Fatalf("expected %d history items, got %d", HistoryLimit, len(req.History))
	}
	if req.History[0].Content != "q2" || req.History[9].Content != "q11" {
		t.Errorf("unexpected history window %v", req.History)
	}
	if req.BookID != "book_1" || req.ChapterID != "ch3" || req.Model != "fast-1" || req.Question != "What now?" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestBuildAskRequestEmptyHistoryIsNotNil(t *testing.T) {
	req := BuildAskRequest(NewSession(Context{BookID: "b"}, t0), "q", "")
	if req.History == nil {
		t.Fatal("history should encode as an empty array")
	}
}

func TestSessionValid(t *testing.T) {
	s := NewSession(Context{BookID: "book_1"}, t0).AppendMessage(NewMessage(RoleUser, "hi", StatusComplete, t0))
	if !s.Valid("book_1") {
		t.Fatal("expected valid session")
	}
	if s.Valid("book_2") {
		t.Fatal("session for another book must be rejected")
	}

	bad := s
	bad.Messages = []Message{{ID: "m", Role: "system", Status: StatusComplete}}
	if bad.Valid("book_1") {
		t.Fatal("unknown role must be rejected")
	}

	noMsgs := Session{ID: "x", BookID: "book_1"}
	if !noMsgs.Valid("book_1") || noMsgs.Messages == nil {
		t.Fatal("nil messages should be normalized")
	}
}
