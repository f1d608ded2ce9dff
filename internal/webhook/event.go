package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/readmaster/read-master/internal/domain"
)

// Event types the service reacts to.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope of a Clerk webhook payload.
type Event struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type userData struct {
	ID                    string         `json:"id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	CreatedAt             int64          `json:"created_at"`
	UpdatedAt             int64          `json:"updated_at"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("decode webhook event: missing type")
	}
	return &ev, nil
}

// User converts a user.created or user.updated payload into a domain user.
// Timestamps in the payload are Unix milliseconds; now is used when absent.
func (e *Event) User(now time.Time) (*domain.User, error) {
	var d userData
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return nil, fmt.Errorf("decode user data: %w", err)
	}
	if d.ID == "" {
		return nil, fmt.Errorf("decode user data: missing id")
	}

	u := &domain.User{
		UserID:    d.ID,
		Email:     primaryEmail(d),
		ImageURL:  d.ImageURL,
		CreatedAt: millisOr(d.CreatedAt, now),
		UpdatedAt: millisOr(d.UpdatedAt, now),
	}
	if d.FirstName != nil {
		u.FirstName = *d.FirstName
	}
	if d.LastName != nil {
		u.LastName = *d.LastName
	}
	return u, nil
}

// DeletedUserID returns the id carried by a user.deleted payload.
func (e *Event) DeletedUserID() (string, error) {
	var d struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return "", fmt.Errorf("decode deleted user: %w", err)
	}
	if d.ID == "" {
		return "", fmt.Errorf("decode deleted user: missing id")
	}
	return d.ID, nil
}

func primaryEmail(d userData) string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

func millisOr(ms int64, fallback time.Time) time.Time {
	if ms <= 0 {
		return fallback
	}
	return time.UnixMilli(ms)
}
