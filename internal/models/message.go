package models

import "time"

// MessageRow is one persisted chat row. The messages table is append-only:
// rows are written by the assistant proxy (user echoes) and by the agent
// (replies and view directives), never updated or deleted.
type MessageRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"size:64;not null;index"`
	Type      string `gorm:"size:16;not null"`
	Content   string `gorm:"type:text"`
	Metadata  string `gorm:"type:text"`
	CreatedAt time.Time
}
