package chat

import "sync"

// Ledger is the ordered in-memory message log for the active session.
// It is append-only except for status transitions; messages are only ever
// removed in bulk by Clear on a session switch.
type Ledger struct {
	mu       sync.RWMutex
	messages []Message
	onChange func()
}

// NewLedger creates an empty Ledger. onChange, if non-nil, is invoked after
// every mutation.
func NewLedger(onChange func()) *Ledger {
	return &Ledger{onChange: onChange}
}

// Append adds a message at the end of the log.
func (l *Ledger) Append(msg Message) {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	l.changed()
}

// Messages returns a copy of the log in order.
func (l *Ledger) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Clear drops all messages. Used only on session switch.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()
	l.changed()
}

// MarkStatus transitions the message with the given id out of
// StatusSending. Returns false if no such pending message exists.
func (l *Ledger) MarkStatus(id string, status Status) bool {
	l.mu.Lock()
	ok := l.markLocked(func(m *Message) bool { return m.ID == id }, status)
	l.mu.Unlock()
	if ok {
		l.changed()
	}
	return ok
}

// ResolveRequest transitions the pending message carrying the given request
// id to StatusSent. Returns false if no pending message matches, in which
// case the caller should treat the inbound echo as a new message.
func (l *Ledger) ResolveRequest(requestID string) bool {
	if requestID == "" {
		return false
	}
	l.mu.Lock()
	ok := l.markLocked(func(m *Message) bool { return m.RequestID == requestID }, StatusSent)
	l.mu.Unlock()
	if ok {
		l.changed()
	}
	return ok
}

// markLocked finds the first pending message matching the predicate and
// applies the status transition. Callers hold l.mu.
func (l *Ledger) markLocked(match func(*Message) bool, status Status) bool {
	for i := range l.messages {
		m := &l.messages[i]
		if m.Status == StatusSending && match(m) {
			m.Status = status
			return true
		}
	}
	return false
}

func (l *Ledger) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
