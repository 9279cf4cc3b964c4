package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// PersistError reports messages that could not be appended to the store.
// They remain pending and are sent again by the next UpdateMessages or Flush.
type PersistError struct {
	ConversationID   string
	FailedMessageIDs []string
	Err              error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %d message(s) of conversation %s [%s]: %v",
		len(e.FailedMessageIDs), e.ConversationID, strings.Join(e.FailedMessageIDs, ", "), e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// UpdateMessages replaces the message list of a conversation with the
// complete list msgs. The local state changes immediately: messages are
// replaced and a default title is derived from the first user message.
//
// When signed in, every message the store has not acknowledged yet is then
// appended to it, one at a time and in list order; the call returns once
// they are all sent. A failed message does not stop the ones after it. The
// failures come back as a *PersistError.
//
// A stored conversation whose history has not been loaded, and is not
// loading, is refused with ErrNotHydrated.
func (m *Manager) UpdateMessages(ctx context.Context, conversationID string, msgs []models.Message) error {
	for _, msg := range msgs {
		if msg.ID == "" {
			return ErrMissingMessageID
		}
	}

	m.mu.Lock()
	if m.Mode() == ModeTornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	idx := m.indexLocked(conversationID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}

	conv := &m.conversations[idx]
	if _, inFlight := m.hydrating[conversationID]; conv.NeedsHydration() && !inFlight {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotHydrated, conversationID)
	}
	conv.Messages = append([]models.Message(nil), msgs...)
	conv.Title = models.DeriveTitle(conv.Title, conv.Messages)
	if len(conv.Messages) > conv.MessageCount {
		conv.MessageCount = len(conv.Messages)
	}

	persist := m.Mode() == ModeAuthenticated && conv.Persisted
	gen := m.generation
	lock := m.persistLockLocked(conversationID)
	m.mu.Unlock()

	if !persist {
		return nil
	}
	return m.persist(ctx, conversationID, gen, lock)
}

// Flush retries the pending messages of a conversation.
func (m *Manager) Flush(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	if m.Mode() == ModeTornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	idx := m.indexLocked(conversationID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}
	persist := m.Mode() == ModeAuthenticated && m.conversations[idx].Persisted
	gen := m.generation
	lock := m.persistLockLocked(conversationID)
	m.mu.Unlock()

	if !persist {
		return nil
	}
	return m.persist(ctx, conversationID, gen, lock)
}

// Pending returns the ids of messages not yet acknowledged by the store,
// in list order. Guest conversations never have pending messages.
func (m *Manager) Pending(conversationID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Mode() != ModeAuthenticated {
		return nil
	}
	var ids []string
	for _, msg := range m.pendingLocked(conversationID) {
		ids = append(ids, msg.ID)
	}
	return ids
}

// persist sends pending messages while holding the conversation's
// persistence lock, so concurrent updates never reorder or duplicate sends.
func (m *Manager) persist(ctx context.Context, conversationID string, gen uint64, lock *sync.Mutex) error {
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrSessionChanged
	}
	pending := m.pendingLocked(conversationID)
	m.mu.Unlock()

	var (
		failed []string
		errs   []error
	)
	for _, msg := range pending {
		if _, err := m.store.AddMessage(ctx, conversationID, backend.NewMessageFrom(msg)); err != nil {
			logger.L.Error("failed to persist message", "conversation_id", conversationID, "message_id", msg.ID, "error", err)
			failed = append(failed, msg.ID)
			errs = append(errs, fmt.Errorf("message %s: %w", msg.ID, err))
			continue
		}
		m.mu.Lock()
		if gen == m.generation {
			m.markSyncedLocked(conversationID, msg.ID)
		}
		m.mu.Unlock()
	}

	if len(errs) > 0 {
		return &PersistError{ConversationID: conversationID, FailedMessageIDs: failed, Err: errors.Join(errs...)}
	}
	return nil
}

func (m *Manager) pendingLocked(conversationID string) []models.Message {
	idx := m.indexLocked(conversationID)
	if idx < 0 {
		return nil
	}
	synced := m.synced[conversationID]
	var out []models.Message
	for _, msg := range m.conversations[idx].Messages {
		if _, ok := synced[msg.ID]; !ok {
			out = append(out, msg)
		}
	}
	return out
}

func (m *Manager) markSyncedLocked(conversationID, messageID string) {
	set, ok := m.synced[conversationID]
	if !ok {
		set = make(map[string]struct{})
		m.synced[conversationID] = set
	}
	set[messageID] = struct{}{}
}

func (m *Manager) persistLockLocked(conversationID string) *sync.Mutex {
	lock, ok := m.persistMu[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		m.persistMu[conversationID] = lock
	}
	return lock
}
