package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/attyx/assistant/internal/feed"
)

// Resubscribe backoff bounds after a transport drop.
const (
	resubscribeMin = time.Second
	resubscribeMax = 15 * time.Second
)

// maxEventBytes bounds one SSE data line. The scanner default would kill
// the stream on a large view-data payload.
const maxEventBytes = 1 << 20

// startSubscription opens the live feed for sessionID in a goroutine whose
// lifetime is bound to the session: Switch and Close cancel it and wait on
// subDone. There is at most one subscription per Client at any time. The
// returned channel closes once the stream is open (or the pump gives up).
func (c *Client) startSubscription(sessionID string) <-chan struct{} {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ready := make(chan struct{})

	c.mu.Lock()
	c.subCancel = cancel
	c.subDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.pump(ctx, sessionID, ready)
	}()
	return ready
}

// pump keeps one SSE stream open for the session, resubscribing with the
// same filter after transport drops, until ctx is cancelled.
func (c *Client) pump(ctx context.Context, sessionID string, ready chan<- struct{}) {
	var readyOnce sync.Once
	signalReady := func() { readyOnce.Do(func() { close(ready) }) }
	defer signalReady()

	backoff := resubscribeMin
	for {
		if ctx.Err() != nil {
			return
		}
		stream, err := c.api.openEvents(ctx, sessionID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("chat: subscribe %s: %v", sessionID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, resubscribeMax)
			continue
		}
		backoff = resubscribeMin
		// The server registers the broker subscription before it writes
		// the response headers, so the feed is live from here on.
		signalReady()

		c.readEvents(ctx, sessionID, stream)
		stream.Close()
		// Fall through: a dropped stream triggers automatic resubscription.
	}
}

// readEvents decodes SSE frames off the stream until it drops or ctx is
// cancelled. Malformed payloads are dropped and logged, never fatal.
func (c *Client) readEvents(ctx context.Context, sessionID string, stream io.ReadCloser) {
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			stream.Close() // unblocks the scanner
		case <-readDone:
		}
	}()

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)
	var eventName string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == "message" && data.Len() > 0 {
				var evt feed.Event
				if err := json.Unmarshal([]byte(data.String()), &evt); err != nil {
					log.Printf("chat: drop malformed event for %s: %v", sessionID, err)
				} else {
					c.dispatch(evt)
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}
}

// dispatch applies one decoded event unless it belongs to a session other
// than the current one, which happens when a stale handle delivers during
// a switch race. While Switch replays history, live events buffer; rows
// the replay already covered are dropped by id.
func (c *Client) dispatch(evt feed.Event) {
	c.mu.Lock()
	if evt.SessionID != c.sessionID {
		c.mu.Unlock()
		return
	}
	if c.replaying {
		c.replay = append(c.replay, evt)
		c.mu.Unlock()
		return
	}
	maxID := c.replayedMax
	c.mu.Unlock()

	if evt.ID != 0 && evt.ID <= maxID {
		return
	}
	c.apply(evt)
}
