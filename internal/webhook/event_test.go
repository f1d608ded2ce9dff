package webhook

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/readmaster/read-master/internal/domain"
)

func TestEventUser(t *testing.T) {
	body := []byte(`{
		"type": "user.created",
		"object": "event",
		"data": {
			"id": "user_2abc",
			"email_addresses": [
				{"id": "idn_1", "email_address": "old@example.com"},
				{"id": "idn_2", "email_address": "reader@example.com"}
			],
			"primary_email_address_id": "idn_2",
			"first_name": "Ada",
			"last_name": null,
			"image_url": "https://img.example.com/a.png",
			"created_at": 1700000000000,
			"updated_at": 1700000001000
		}
	}`)

	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if ev.Type != EventUserCreated {
		t.Fatalf("unexpected type %q", ev.Type)
	}

	got, err := ev.User(time.Unix(0, 0))
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	want := &domain.User{
		UserID:    "user_2abc",
		Email:     "reader@example.com",
		FirstName: "Ada",
		ImageURL:  "https://img.example.com/a.png",
		CreatedAt: time.UnixMilli(1700000000000),
		UpdatedAt: time.UnixMilli(1700000001000),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("user mismatch (-want +got):\n%s", diff)
	}
}

func TestEventUserFallsBackToNow(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"user.updated","data":{"id":"user_1"}}`))
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	u, err := ev.User(now)
	if err != nil {
		t.Fatalf("User failed: %v", err)
	}
	if !u.CreatedAt.Equal(now) || u.Email != "" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestParseEventErrors(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"data":{}}`} {
		if _, err := ParseEvent([]byte(body)); err == nil {
			t.Errorf("ParseEvent(%s) expected error", body)
		}
	}
}

func TestDeletedUserID(t *testing.T) {
	ev, _ := ParseEvent([]byte(`{"type":"user.deleted","data":{"id":"user_9","deleted":true}}`))
	id, err := ev.DeletedUserID()
	if err != nil || id != "user_9" {
		t.Fatalf("DeletedUserID = %q, %v", id, err)
	}

	ev, _ = ParseEvent([]byte(`{"type":"user.deleted","data":{}}`))
	if _, err := ev.DeletedUserID(); err == nil {
		t.Fatal("expected error for missing id")
	}
}
