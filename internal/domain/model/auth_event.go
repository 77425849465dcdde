package model

import "time"

type AuthEventType string

const (
	AuthEventRegistered     AuthEventType = "register"
	AuthEventLoginSucceeded AuthEventType = "login_succeeded"
	AuthEventLoginFailed    AuthEventType = "login_failed"
	AuthEventLoginThrottled AuthEventType = "login_throttled"
)

// AuthEvent is one entry of the authentication audit trail. It never
// carries credentials or tokens.
type AuthEvent struct {
	ID         string        `json:"id"`
	Type       AuthEventType `json:"type"`
	Username   string        `json:"username"`
	RemoteAddr string        `json:"remote_addr,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
