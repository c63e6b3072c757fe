package server

import (
	"net/http"
	"strings"

	"github.com/attyx/assistant/internal/config"
	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/store"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all routes on the Gin router.
func registerRoutes(router *gin.Engine, st *store.Store, broker *feed.Broker, cfg *config.Config) {
	api := router.Group("/api", requireToken(cfg.Server.ClientToken))

	api.POST("/assistant", handleAssistant(st, cfg))
	api.GET("/sessions", handleSessions(st))
	api.GET("/sessions/:id/messages", handleHistory(st))
	api.GET("/sessions/:id/events", handleSSE(broker))
	api.POST("/messages", handleAppend(st))
}

// requireToken enforces a bearer token on client-facing routes. An empty
// configured token disables the check.
func requireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid bearer token"})
			return
		}
		c.Next()
	}
}

// handleSessions returns the known sessions, most recent first.
func handleSessions(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := st.Sessions()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": sessions})
	}
}

// handleHistory returns a session's stored messages in insert order.
func handleHistory(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := st.BySession(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": events})
	}
}

// appendRequest is the body of POST /api/messages, used by the agent to
// deliver replies and view directives.
type appendRequest struct {
	SessionID string       `json:"session_id"`
	Message   feed.Message `json:"message"`
}

// handleAppend persists one message row; the insert is fanned out to the
// session's live feed by the store.
func handleAppend(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req appendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		row, err := st.Append(req.SessionID, req.Message)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": row.ID, "created_at": row.CreatedAt})
	}
}
