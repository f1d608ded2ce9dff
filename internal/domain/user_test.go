package domain

import (
	"testing"
	"time"
)

func TestUserDisplayName(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{User{FirstName: "Ada"}, "Ada"},
		{User{Email: "reader@example.com"}, "reader"},
		{User{}, "Reader"},
	}
	for _, tt := range tests {
		if got := tt.user.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}

func TestStateEntryExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&StateEntry{}).Expired(now) {
		t.Error("entry without expiry should never expire")
	}
	if !(&StateEntry{ExpiresAt: &past}).Expired(now) {
		t.Error("expected past expiry to be expired")
	}
	if (&StateEntry{ExpiresAt: &future}).Expired(now) {
		t.Error("expected future expiry to be live")
	}
}
