package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyMessage is returned when the submitted text is empty after
// trimming. Nothing is mutated and no network call is made.
var ErrEmptyMessage = errors.New("chat: message is empty")

// ErrInFlight is returned when a submission is already pending for the
// session. The second call issues no network request.
var ErrInFlight = errors.New("chat: a submission is already in flight")

// Submit sends a user query through the assistant proxy. The provisional
// message is appended to the ledger before the network call, so the sender
// sees it immediately; its authoritative echo arrives later on the feed and
// resolves it by request id. On transport failure the provisional message
// is marked StatusError and a system message describing the failure is
// appended; errors never escape to crash the rendering layer beyond the
// returned value.
func (c *Client) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	sessionID := c.sessionID
	if c.inFlight[sessionID] {
		c.mu.Unlock()
		return ErrInFlight
	}
	c.inFlight[sessionID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, sessionID)
		c.mu.Unlock()
		c.signal()
	}()

	requestID := uuid.NewString()
	provisional := Message{
		ID:        uuid.NewString(),
		Content:   text,
		Timestamp: time.Now(),
		Role:      RoleUser,
		Status:    StatusSending,
		SessionID: sessionID,
		RequestID: requestID,
	}
	c.ledger.Append(provisional)

	env, err := c.api.submit(ctx, submitRequest{
		Query:       text,
		UserID:      c.userID,
		RequestID:   requestID,
		SessionID:   sessionID,
		CurrentView: string(c.views.Current()),
	})

	// The session may have switched while the call was in flight. The
	// ledger and view state now belong to the new session; this outcome
	// must not leak into them. dispatch applies the same guard to feed
	// events.
	if !c.sessionCurrent(sessionID) {
		return err
	}

	if err != nil {
		c.ledger.MarkStatus(provisional.ID, StatusError)
		c.ledger.Append(Message{
			ID:        uuid.NewString(),
			Content:   "Error: " + err.Error(),
			Timestamp: time.Now(),
			Role:      RoleSystem,
			Status:    StatusSent,
			SessionID: sessionID,
		})
		return err
	}

	// The proxy answered with a view command instead of the agent's reply:
	// apply it locally. The agent's persisted reply, if any, still arrives
	// on the feed.
	if env != nil {
		c.views.SetView(View(env.View))
	}
	return nil
}
