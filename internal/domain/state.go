package domain

import "time"

// StateEntry is one namespaced JSON value persisted on behalf of the browser.
type StateEntry struct {
	UserID    string
	Key       string
	Value     []byte
	UpdatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the entry carries an expiry that has passed.
func (e *StateEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
