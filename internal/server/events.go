package server

import (
	"sync"
	"time"

	"github.com/comigor/healthassist-go/internal/session"
)

const defaultEventCapacity = 64

// EventView is a background session outcome as shown to the view layer.
type EventView struct {
	Kind           session.EventKind `json:"kind"`
	ConversationID string            `json:"conversationId,omitempty"`
	Error          string            `json:"error,omitempty"`
	At             time.Time         `json:"at"`
}

// EventLog buffers session events until the view layer collects them.
// The oldest events are dropped once capacity is reached.
type EventLog struct {
	mu       sync.Mutex
	capacity int
	events   []EventView
}

// NewEventLog creates a log; capacity <= 0 selects the default.
func NewEventLog(capacity int) *EventLog {
	if capacity <= 0 {
		capacity = defaultEventCapacity
	}
	return &EventLog{capacity: capacity}
}

// Record is a session.Notifier.
func (l *EventLog) Record(ev session.Event) {
	v := EventView{Kind: ev.Kind, ConversationID: ev.ConversationID, At: time.Now()}
	if ev.Err != nil {
		v.Error = ev.Err.Error()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == l.capacity {
		l.events = l.events[1:]
	}
	l.events = append(l.events, v)
}

// Drain returns and clears the buffered events.
func (l *EventLog) Drain() []EventView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	if out == nil {
		out = []EventView{}
	}
	return out
}
