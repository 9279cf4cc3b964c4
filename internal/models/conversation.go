// Package models holds the conversation and directory types shared by the
// session manager, the backend client and the view server.
package models

import (
	"time"
	"unicode/utf8"
)

const (
	// DefaultTitle is the title of every conversation until its first user message arrives.
	DefaultTitle = "New Conversation"
	// DefaultConversationID identifies the single in-memory conversation of a fresh guest session.
	DefaultConversationID = "default"

	titleMaxRunes = 50
	titleEllipsis = "..."
)

// Conversation is one chat thread as seen by the client.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	// Persisted is true when the conversation is backed by the remote store.
	Persisted bool `json:"persisted"`
	// MessageCount is the server-reported total, meaningful only before hydration.
	MessageCount int `json:"messageCount,omitempty"`
}

// NewGuestConversation returns an empty, in-memory conversation.
func NewGuestConversation(id string, now time.Time) Conversation {
	return Conversation{
		ID:        id,
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
	}
}

// NeedsHydration reports whether the conversation's history still has to be fetched.
func (c Conversation) NeedsHydration() bool {
	return c.Persisted && len(c.Messages) == 0 && c.MessageCount > 0
}

// Clone returns a copy that shares no slices with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}

// DeriveTitle returns the title a conversation should carry after its messages
// became msgs. Only the default title is ever replaced, and only once a user
// message exists: the first user message truncated to 50 characters, with an
// ellipsis when it was longer.
func DeriveTitle(current string, msgs []Message) string {
	if current != DefaultTitle || len(msgs) == 0 {
		return current
	}
	for _, m := range msgs {
		if m.Role != RoleUser {
			continue
		}
		return truncateTitle(m.Content)
	}
	return current
}

func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= titleMaxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:titleMaxRunes]) + titleEllipsis
}
