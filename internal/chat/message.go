// Package chat implements the conversational session core: the in-memory
// message ledger, session switching with exclusive feed subscriptions,
// optimistic submission against the assistant proxy, and interpretation of
// inbound events into chat content or view mutations.
package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status tracks a message's delivery state. Locally-originated messages
// start as StatusSending; the only legal transitions are to StatusSent or
// StatusError.
type Status string

const (
	StatusSending Status = "sending"
	StatusSent    Status = "sent"
	StatusError   Status = "error"
)

// Message is one entry in the ledger.
type Message struct {
	ID        string
	Content   string
	Timestamp time.Time
	Role      Role
	Status    Status
	SessionID string

	// RequestID links a locally-originated message to its authoritative
	// echo on the feed. Empty on inbound messages.
	RequestID string
}

// Session is one known conversation thread as reported by the server.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
