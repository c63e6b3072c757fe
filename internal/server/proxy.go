package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/attyx/assistant/internal/config"
	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/store"
	"github.com/gin-gonic/gin"
)

// assistantRequest is the body of POST /api/assistant.
type assistantRequest struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id"`
	RequestID   string `json:"request_id"`
	SessionID   string `json:"session_id"`
	CurrentView string `json:"current_view,omitempty"`
}

// viewCommand is the envelope returned when the outbound keyword heuristic
// fires.
type viewCommand struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	View   string `json:"view"`
}

// viewKeywords maps query substrings to target views. First match wins.
var viewKeywords = []struct {
	keyword string
	view    string
}{
	{"pipeline", "pipeline"},
	{"task", "tasks"},
	{"todo", "tasks"},
	{"report", "reporting"},
	{"analytics", "reporting"},
}

// matchView returns the view a query refers to, or "" for plain chat.
func matchView(query string) string {
	q := strings.ToLower(query)
	for _, rule := range viewKeywords {
		if strings.Contains(q, rule.keyword) {
			return rule.view
		}
	}
	return ""
}

// handleAssistant proxies a user query to the backend agent. The agent
// credential is injected here and never reaches the caller. The user's
// message is persisted (with its request id) before the agent call, so the
// session feed echoes it regardless of the agent's fate.
//
// When the keyword heuristic matches, the response is the setView command
// envelope and the agent's own body is discarded. The agent's persisted
// reply still reaches the client through the feed.
func handleAssistant(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	client := &http.Client{
		Timeout: time.Duration(cfg.Agent.TimeoutSec) * time.Second,
	}
	return func(c *gin.Context) {
		var req assistantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
			return
		}
		if req.SessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}

		if _, err := st.Append(req.SessionID, feed.Message{
			Type:    feed.TypeHuman,
			Content: req.Query,
			Metadata: &feed.Metadata{
				RequestID: req.RequestID,
			},
		}); err != nil {
			log.Printf("server: persist user message for %s: %v", req.SessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist message"})
			return
		}

		body, err := json.Marshal(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode request"})
			return
		}

		agentReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, cfg.Agent.URL, bytes.NewReader(body))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		agentReq.Header.Set("Content-Type", "application/json")
		if cfg.Agent.BearerToken != "" {
			agentReq.Header.Set("Authorization", "Bearer "+cfg.Agent.BearerToken)
		}

		resp, err := client.Do(agentReq)
		if err != nil {
			log.Printf("server: agent call for %s: %v", req.SessionID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "agent request failed"})
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read agent response"})
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			log.Printf("server: agent returned %d for %s: %s", resp.StatusCode, req.SessionID, respBody)
			c.JSON(http.StatusBadGateway, gin.H{"error": "agent request failed: " + strings.TrimSpace(string(respBody))})
			return
		}

		if view := matchView(req.Query); view != "" {
			c.JSON(http.StatusOK, viewCommand{
				Type:   feed.TypeCommand,
				Action: feed.ActionSetView,
				View:   view,
			})
			return
		}

		c.Data(http.StatusOK, "application/json", respBody)
	}
}
