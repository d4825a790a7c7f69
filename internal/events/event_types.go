package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventProfileUpdated  EventType = "profile_updated"
	EventPasswordChanged EventType = "password_changed"
	EventPasswordReset   EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ProfileUpdatedPayload payload.
type ProfileUpdatedPayload struct {
	OldEmail string `json:"old_email"`
	NewEmail string `json:"new_email"`
	Name     string `json:"name"`
}

// PasswordResetPayload payload.
type PasswordResetPayload struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
