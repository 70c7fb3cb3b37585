// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into the audit log.
package queue

// Event types published to the auth.security queue.
const (
	EventLogin         = "login"
	EventLogoutAll     = "logout_all"
	EventAccountLocked = "account_locked"
)

// SecurityEvent is published on security-relevant auth activity.  It
// carries enough context for downstream consumers to audit or alert
// without querying the primary database.
type SecurityEvent struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id,omitempty"`
	Email      string `json:"email"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
