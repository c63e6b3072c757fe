package chat

import (
	"time"

	"github.com/attyx/assistant/internal/feed"
)

// Inbound is the tagged union over interpreted feed events: every event is
// exactly one of ChatEvent or ViewDirective.
type Inbound interface {
	inbound()
}

// ChatEvent is an inbound event carrying conversation content.
type ChatEvent struct {
	Role      Role
	Content   string
	RequestID string
	Timestamp time.Time
}

func (ChatEvent) inbound() {}

// ViewDirective is an inbound instruction to switch the active view or
// patch a view's data.
type ViewDirective struct {
	Action string // feed.ActionSetView or feed.ActionUpdateView
	View   View
	Data   map[string]any
}

func (ViewDirective) inbound() {}

// Interpret classifies one feed event. An event is a view directive only
// when its type is command or system AND it carries a recognized action and
// a known target view; everything else, including events with no metadata
// at all, is chat content.
func Interpret(evt feed.Event) Inbound {
	msg := evt.Message
	if isDirective(msg) {
		return ViewDirective{
			Action: msg.Metadata.Action,
			View:   View(msg.Metadata.View),
			Data:   msg.Metadata.Data,
		}
	}

	role := RoleAssistant
	if msg.Type == feed.TypeHuman {
		role = RoleUser
	}
	chat := ChatEvent{
		Role:      role,
		Content:   msg.Content,
		Timestamp: evt.CreatedAt,
	}
	if msg.Metadata != nil {
		chat.RequestID = msg.Metadata.RequestID
	}
	return chat
}

func isDirective(msg feed.Message) bool {
	if msg.Type != feed.TypeCommand && msg.Type != feed.TypeSystem {
		return false
	}
	if msg.Metadata == nil {
		return false
	}
	switch msg.Metadata.Action {
	case feed.ActionSetView, feed.ActionUpdateView:
	default:
		return false
	}
	return knownViews[View(msg.Metadata.View)]
}
