// Package feed defines the realtime event vocabulary shared by the server
// and the client core, and an in-process broker that fans row-insert
// notifications out to per-session subscribers.
package feed

import "time"

// Event is one row-insert notification delivered on a session's live feed.
// Events for a session are delivered in the order the store committed them.
// ID is the store's row id; consumers use it to deduplicate a history
// replay against concurrently delivered live events.
type Event struct {
	ID        uint      `json:"id,omitempty"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
}

// Message is the nested payload of an event.
type Message struct {
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Metadata carries the optional directive fields of a message. Plain chat
// messages omit it entirely; consumers must tolerate a nil Metadata.
type Metadata struct {
	Action    string         `json:"action,omitempty"`
	View      string         `json:"view,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Message type tags as stored and sent on the wire.
const (
	TypeHuman   = "human"
	TypeAI      = "ai"
	TypeSystem  = "system"
	TypeCommand = "command"
)

// Directive actions.
const (
	ActionSetView    = "setView"
	ActionUpdateView = "updateView"
)
