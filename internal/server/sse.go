package server

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/attyx/assistant/internal/feed"
	"github.com/gin-gonic/gin"
)

// heartbeatInterval is how often an idle SSE connection emits a heartbeat
// so intermediaries don't reap it.
const heartbeatInterval = 15 * time.Second

// handleSSE streams one session's row-insert events as SSE. The connection
// subscribes to the broker for exactly that session and unsubscribes when
// the client goes away.
func handleSSE(broker *feed.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		events, cancel := broker.Subscribe(sessionID)
		defer cancel()

		writeSSE(c.Writer, "connected", map[string]string{"session_id": sessionID})
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case evt, ok := <-events:
				if !ok {
					return
				}
				writeSSE(c.Writer, "message", evt)
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
