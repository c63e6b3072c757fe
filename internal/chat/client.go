package chat

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/attyx/assistant/internal/feed"
	"github.com/google/uuid"
)

// defaultTimeout bounds one-shot calls against the server; the SSE stream
// is exempt.
const defaultTimeout = 30 * time.Second

// Options holds parameters for creating a Client.
type Options struct {
	ServerURL  string
	Token      string       // optional client bearer token
	UserID     string       // defaults to "NA"
	HTTPClient *http.Client // optional; tests inject their own
}

// Client owns the state of one logical chat session: the ledger, the view
// state, the single live feed subscription, and the in-flight submission
// guard. All mutation funnels through it.
type Client struct {
	api    api
	userID string

	ledger  *Ledger
	views   *ViewState
	updates chan struct{}

	// switchMu serializes session transitions so the old subscription is
	// always joined before the new one opens.
	switchMu sync.Mutex

	mu        sync.Mutex
	sessionID string
	sessions  []Session // last successfully fetched list
	inFlight  map[string]bool
	subCancel context.CancelFunc
	subDone   chan struct{}

	// History replay state for Switch: live events buffer while stored
	// history is applied, then flush deduplicated against it by row id.
	replaying   bool
	replay      []feed.Event
	replayedMax uint
}

// subscribeWait bounds how long Switch waits for the new feed subscription
// to open before replaying history. An unreachable server falls back to
// replay-then-resubscribe.
const subscribeWait = 3 * time.Second

// NewClient creates a Client with a fresh session and opens its feed
// subscription.
func NewClient(opts Options) (*Client, error) {
	if opts.ServerURL == "" {
		return nil, fmt.Errorf("chat: server URL is required")
	}
	userID := opts.UserID
	if userID == "" {
		userID = "NA"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	c := &Client{
		api: api{
			baseURL: opts.ServerURL,
			token:   opts.Token,
			http:    httpClient,
		},
		userID:   userID,
		updates:  make(chan struct{}, 1),
		inFlight: make(map[string]bool),
	}
	c.ledger = NewLedger(c.signal)
	c.views = NewViewState(c.signal)

	c.mu.Lock()
	c.sessionID = uuid.NewString()
	c.mu.Unlock()
	c.startSubscription(c.SessionID())

	return c, nil
}

// SessionID returns the current session identifier.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// sessionCurrent reports whether sessionID is still the active session.
func (c *Client) sessionCurrent(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID == sessionID
}

// Ledger returns the message ledger for the current session.
func (c *Client) Ledger() *Ledger {
	return c.ledger
}

// Views returns the view state store.
func (c *Client) Views() *ViewState {
	return c.views
}

// Updates delivers a (coalesced) signal whenever the ledger or view state
// changes. Rendering layers select on it.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// InFlight reports whether a submission is pending for the current session.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[c.sessionID]
}

// NewSession generates a fresh session id and switches to it.
func (c *Client) NewSession(ctx context.Context) string {
	id := uuid.NewString()
	c.Switch(ctx, id)
	return id
}

// Switch makes sessionID the current session: the old feed subscription is
// cancelled and joined, the ledger and view state are cleared, a new
// subscription opens, and stored history is replayed. Switching to the
// session that is already current is a no-op.
func (c *Client) Switch(ctx context.Context, sessionID string) {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	if sessionID == c.sessionID {
		c.mu.Unlock()
		return
	}
	oldCancel, oldDone := c.subCancel, c.subDone
	c.sessionID = sessionID
	c.subCancel, c.subDone = nil, nil
	c.replaying = true
	c.replay = nil
	c.replayedMax = 0
	c.mu.Unlock()

	// Join the old subscription before anything else touches the ledger:
	// there is never a window with two feeds delivering.
	if oldCancel != nil {
		oldCancel()
		<-oldDone
	}

	c.ledger.Clear()
	c.views.Reset()

	// Subscribe before reading history so no insert lands in the gap
	// between the two. Live events buffer until the replay is applied.
	ready := c.startSubscription(sessionID)
	select {
	case <-ready:
	case <-time.After(subscribeWait):
	case <-ctx.Done():
	}

	var maxID uint
	if events, err := c.api.history(ctx, sessionID); err != nil {
		log.Printf("chat: history for %s: %v", sessionID, err)
	} else {
		for _, evt := range events {
			if evt.ID > maxID {
				maxID = evt.ID
			}
			c.apply(evt)
		}
	}

	c.mu.Lock()
	c.replayedMax = maxID
	buffered := c.replay
	c.replay = nil
	c.replaying = false
	c.mu.Unlock()

	// Flush events that arrived during the replay, dropping rows the
	// replay already covered.
	for _, evt := range buffered {
		if evt.ID != 0 && evt.ID <= maxID {
			continue
		}
		c.apply(evt)
	}
}

// Sessions returns the known session list, most recent first. Fail-soft: on
// a remote error the previously known list is returned unchanged.
func (c *Client) Sessions(ctx context.Context) []Session {
	sessions, err := c.api.sessions(ctx)
	if err != nil {
		log.Printf("chat: load sessions: %v", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.sessions
	}
	c.mu.Lock()
	c.sessions = sessions
	c.mu.Unlock()
	return sessions
}

// Close cancels the live subscription and waits for it to stop.
func (c *Client) Close() {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.mu.Lock()
	cancel, done := c.subCancel, c.subDone
	c.subCancel, c.subDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// apply routes one interpreted event to the ledger or the view state. The
// caller has already checked the event belongs to the current session.
func (c *Client) apply(evt feed.Event) {
	switch in := Interpret(evt).(type) {
	case ViewDirective:
		switch in.Action {
		case feed.ActionSetView:
			c.views.SetView(in.View)
		case feed.ActionUpdateView:
			c.views.Merge(in.View, in.Data)
		}
	case ChatEvent:
		// The authoritative echo of our own optimistic append: resolve the
		// provisional message instead of duplicating it.
		if in.Role == RoleUser && c.ledger.ResolveRequest(in.RequestID) {
			return
		}
		c.ledger.Append(Message{
			ID:        uuid.NewString(),
			Content:   in.Content,
			Timestamp: in.Timestamp,
			Role:      in.Role,
			Status:    StatusSent,
			SessionID: evt.SessionID,
		})
	}
}

// signal coalesces change notifications onto the updates channel.
func (c *Client) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
