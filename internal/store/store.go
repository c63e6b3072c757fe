// Package store provides the append-only message store backing the
// assistant: outgoing user messages, agent replies and view directives all
// land here, and the realtime feed is driven off its inserts.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/attyx/assistant/internal/feed"
	"github.com/attyx/assistant/internal/models"
	"gorm.io/gorm"
)

// titleMaxLen bounds the session title derived from the first message.
const titleMaxLen = 40

// fallbackTitle is used when a session's first message has no usable content.
const fallbackTitle = "New Chat"

// Store wraps the messages table and publishes every insert to the broker.
type Store struct {
	db     *gorm.DB
	broker *feed.Broker
}

// Session is one known conversation thread, derived from stored rows.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a Store. The broker is optional; without one, inserts are
// persisted but not fanned out.
func New(db *gorm.DB, broker *feed.Broker) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Store{db: db, broker: broker}, nil
}

// DB exposes the underlying connection for read-only aggregate queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Append persists one message row for a session and publishes the insert to
// the session's live feed.
func (s *Store) Append(sessionID string, msg feed.Message) (*models.MessageRow, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("store: sessionID is required")
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("store: message type is required")
	}

	metadata := ""
	if msg.Metadata != nil {
		data, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, fmt.Errorf("store: marshal metadata: %w", err)
		}
		metadata = string(data)
	}

	row := models.MessageRow{
		SessionID: sessionID,
		Type:      msg.Type,
		Content:   msg.Content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("store: append to %s: %w", sessionID, err)
	}

	if s.broker != nil {
		s.broker.Publish(feed.Event{
			ID:        row.ID,
			SessionID: row.SessionID,
			CreatedAt: row.CreatedAt,
			Message:   msg,
		})
	}
	return &row, nil
}

// BySession returns a session's stored messages in insert order.
func (s *Store) BySession(sessionID string) ([]feed.Event, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("store: sessionID is required")
	}

	var rows []models.MessageRow
	if err := s.db.Where("session_id = ?", sessionID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: history for %s: %w", sessionID, err)
	}

	events := make([]feed.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, rowToEvent(row))
	}
	return events, nil
}

// Sessions returns all known sessions, most recently created first. Each
// title is derived from the session's earliest stored message.
func (s *Store) Sessions() ([]Session, error) {
	type head struct {
		SessionID string
		CreatedAt time.Time
	}
	var heads []head
	if err := s.db.Model(&models.MessageRow{}).
		Select("session_id, MIN(created_at) AS created_at").
		Group("session_id").
		Order("MIN(created_at) DESC").
		Scan(&heads).Error; err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}

	sessions := make([]Session, 0, len(heads))
	for _, h := range heads {
		var first models.MessageRow
		title := fallbackTitle
		if err := s.db.Where("session_id = ?", h.SessionID).
			Order("id ASC").Limit(1).First(&first).Error; err == nil {
			title = deriveTitle(first.Content)
		}
		sessions = append(sessions, Session{
			ID:        h.SessionID,
			Title:     title,
			CreatedAt: h.CreatedAt,
		})
	}
	return sessions, nil
}

// rowToEvent converts a stored row to its wire event. A metadata column
// that fails to parse is dropped, leaving a plain chat message.
func rowToEvent(row models.MessageRow) feed.Event {
	msg := feed.Message{
		Type:    row.Type,
		Content: row.Content,
	}
	if row.Metadata != "" {
		var meta feed.Metadata
		if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
			log.Printf("store: row %d: bad metadata: %v", row.ID, err)
		} else {
			msg.Metadata = &meta
		}
	}
	return feed.Event{
		ID:        row.ID,
		SessionID: row.SessionID,
		CreatedAt: row.CreatedAt,
		Message:   msg,
	}
}

// deriveTitle truncates the first message content to the title bound,
// backing off to a rune boundary so a multi-byte character is never split.
func deriveTitle(content string) string {
	title := strings.TrimSpace(content)
	if title == "" {
		return fallbackTitle
	}
	if len(title) > titleMaxLen {
		cut := titleMaxLen
		for cut > 0 && !utf8.RuneStart(title[cut]) {
			cut--
		}
		title = title[:cut]
	}
	return title
}
