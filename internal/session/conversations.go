package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// NewConversation creates an empty conversation, puts it first in the list
// and makes it active. Signed in, the store creates it and nothing changes
// locally if that fails. As a guest it is created locally.
func (m *Manager) NewConversation(ctx context.Context) (models.Conversation, error) {
	m.mu.Lock()
	mode, gen := m.Mode(), m.generation
	if mode == ModeTornDown {
		m.mu.Unlock()
		return models.Conversation{}, ErrTornDown
	}
	if mode != ModeAuthenticated {
		conv := m.guestConversation()
		m.prependLocked(conv)
		m.mu.Unlock()
		return conv.Clone(), nil
	}
	m.mu.Unlock()

	created, err := m.store.CreateConversation(ctx, models.DefaultTitle)
	if err != nil {
		logger.L.Error("failed to create conversation", "error", err)
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	conv := fromSummary(*created, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return models.Conversation{}, ErrSessionChanged
	}
	m.prependLocked(conv)
	return conv.Clone(), nil
}

// Delete removes a conversation. Signed in, the store is asked to delete it
// first; a failure there is returned but the conversation is removed
// locally all the same.
//
// Deleting the last conversation never leaves the list empty for long: a
// guest gets a fresh local conversation straight away, while a signed-in
// user gets a new stored one created in the background (reported through
// the Notifier). Deleting the active conversation activates the first one
// remaining.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	mode, gen := m.Mode(), m.generation
	if mode == ModeTornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	remote := mode == ModeAuthenticated && m.conversations[idx].Persisted
	m.mu.Unlock()

	var remoteErr error
	if remote {
		if err := m.store.DeleteConversation(ctx, id); err != nil {
			logger.L.Error("failed to delete conversation", "conversation_id", id, "error", err)
			remoteErr = fmt.Errorf("delete conversation %s: %w", id, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return errors.Join(remoteErr, ErrSessionChanged)
	}
	idx = m.indexLocked(id)
	if idx < 0 {
		return remoteErr
	}
	m.conversations = append(m.conversations[:idx], m.conversations[idx+1:]...)
	delete(m.synced, id)
	delete(m.hydrating, id)

	switch {
	case len(m.conversations) == 0 && mode == ModeAuthenticated:
		m.activeID = ""
		m.wg.Add(1)
		go m.replaceDeleted(gen)
	case len(m.conversations) == 0:
		m.prependLocked(m.guestConversation())
	case m.activeID == id:
		m.activeID = m.conversations[0].ID
		m.hydrateLocked(m.activeID)
	}
	return remoteErr
}

// replaceDeleted creates the stored conversation that follows deletion of
// the last one. If the store refuses, a local conversation takes its place
// so the list is never left empty.
func (m *Manager) replaceDeleted(gen uint64) {
	defer m.wg.Done()

	created, err := m.store.CreateConversation(m.ctx, models.DefaultTitle)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	var ev Event
	if err != nil {
		logger.L.Error("failed to create replacement conversation", "error", err)
		if len(m.conversations) == 0 {
			m.prependLocked(m.guestConversation())
		}
		ev = Event{Kind: EventReplacementFailed, ConversationID: m.activeID, Err: fmt.Errorf("create conversation: %w", err)}
	} else {
		conv := fromSummary(*created, m.now())
		m.prependLocked(conv)
		ev = Event{Kind: EventReplacementCreated, ConversationID: conv.ID}
	}
	m.mu.Unlock()

	m.emit(ev)
}

// Rename sets a conversation's title, locally and, when stored, remotely.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("session: title must not be empty")
	}

	m.mu.Lock()
	if m.Mode() == ModeTornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	m.conversations[idx].Title = title
	remote := m.Mode() == ModeAuthenticated && m.conversations[idx].Persisted
	m.mu.Unlock()

	if !remote {
		return nil
	}
	if _, err := m.store.RenameConversation(ctx, id, title); err != nil {
		logger.L.Error("failed to rename conversation", "conversation_id", id, "error", err)
		return fmt.Errorf("rename conversation %s: %w", id, err)
	}
	return nil
}

// Reconcile re-reads the stored conversation list and brings the local list
// in line with it after failed writes or changes made elsewhere:
//   - stored conversations missing locally are added, unhydrated;
//   - local stored conversations the store no longer has are dropped;
//   - a hydrated conversation whose stored count exceeds what this client
//     has acknowledged, with nothing of its own pending, is unloaded so the
//     next selection fetches it again.
//
// Local-only conversations are kept at the front.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	mode, gen := m.Mode(), m.generation
	m.mu.Unlock()
	switch mode {
	case ModeTornDown:
		return ErrTornDown
	case ModeGuest, ModeInit:
		return nil
	}

	summaries, err := m.store.ListConversations(ctx)
	if err != nil {
		logger.L.Error("failed to reconcile conversations", "error", err)
		return fmt.Errorf("list conversations: %w", err)
	}

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrSessionChanged
	}

	local := make(map[string]models.Conversation, len(m.conversations))
	var next []models.Conversation
	for _, c := range m.conversations {
		if !c.Persisted {
			next = append(next, c)
			continue
		}
		local[c.ID] = c
	}

	now := m.now()
	for _, s := range summaries {
		remote := fromSummary(s, now)
		c, ok := local[remote.ID]
		if !ok {
			next = append(next, remote)
			continue
		}
		if len(c.Messages) > 0 && remote.MessageCount > len(m.synced[c.ID]) && len(m.pendingLocked(c.ID)) == 0 {
			c.Messages = []models.Message{}
			delete(m.synced, c.ID)
		}
		c.Title = remote.Title
		c.MessageCount = remote.MessageCount
		next = append(next, c)
		delete(local, remote.ID)
	}
	for id := range local {
		delete(m.synced, id)
	}

	m.conversations = next
	needsReplacement := len(next) == 0
	if !needsReplacement && m.indexLocked(m.activeID) < 0 {
		m.activeID = next[0].ID
	}
	m.mu.Unlock()

	if needsReplacement {
		created, err := m.store.CreateConversation(ctx, models.DefaultTitle)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.generation {
			return ErrSessionChanged
		}
		m.prependLocked(fromSummary(*created, m.now()))
		m.hydrateLocked(m.activeID)
		return nil
	}

	// Start hydrating the active conversation if reconciliation unloaded it.
	m.Select(m.ActiveID())
	return nil
}

func (m *Manager) prependLocked(conv models.Conversation) {
	m.conversations = append([]models.Conversation{conv}, m.conversations...)
	m.activeID = conv.ID
}

var _ Store = (*backend.Client)(nil)
