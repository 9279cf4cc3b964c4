package session

import (
	"context"
	"fmt"

	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// Select makes id the active conversation. The switch is immediate; if the
// conversation is persisted but its history has not been loaded yet, the
// history is fetched in the background and merged in when it arrives.
// The returned bool reports whether such a fetch was started.
//
// Selecting a conversation that is already hydrated, or whose fetch is
// still in flight, starts nothing.
func (m *Manager) Select(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Mode() == ModeTornDown {
		return false
	}
	m.activeID = id
	return m.hydrateLocked(id) != nil
}

// AwaitHydration blocks until the stored history of a conversation is
// loaded, starting the fetch if none is in flight. Guest, local and
// already hydrated conversations return at once. A failed fetch is
// reported as ErrNotHydrated; calling again retries it.
func (m *Manager) AwaitHydration(ctx context.Context, id string) error {
	m.mu.Lock()
	if m.Mode() == ModeTornDown {
		m.mu.Unlock()
		return ErrTornDown
	}
	if m.indexLocked(id) < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	done, inFlight := m.hydrating[id]
	if !inFlight {
		done = m.hydrateLocked(id)
	}
	gen := m.generation
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return ErrSessionChanged
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if m.conversations[idx].NeedsHydration() {
		return fmt.Errorf("%w: %s", ErrNotHydrated, id)
	}
	return nil
}

// hydrateLocked starts fetching the history of id when it is persisted and
// still unloaded. It returns the channel closed when the fetch ends, or nil
// when nothing was started.
func (m *Manager) hydrateLocked(id string) chan struct{} {
	if m.Mode() != ModeAuthenticated {
		return nil
	}
	idx := m.indexLocked(id)
	if idx < 0 || !m.conversations[idx].NeedsHydration() {
		return nil
	}
	if _, inFlight := m.hydrating[id]; inFlight {
		return nil
	}

	done := make(chan struct{})
	m.hydrating[id] = done
	m.wg.Add(1)
	go m.hydrate(id, m.generation, done)
	return done
}

func (m *Manager) hydrate(id string, gen uint64, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	detail, err := m.store.GetConversation(m.ctx, id)

	m.mu.Lock()
	current := gen == m.generation
	if current && m.hydrating[id] == done {
		delete(m.hydrating, id)
	}
	if err != nil {
		m.mu.Unlock()
		logger.L.Error("failed to load conversation messages", "conversation_id", id, "error", err)
		if current {
			m.emit(Event{Kind: EventHydrationFailed, ConversationID: id, Err: fmt.Errorf("load conversation %s: %w", id, err)})
		}
		return
	}
	// Dropped when the user signed out or switched accounts meanwhile.
	if !current || m.Mode() != ModeAuthenticated {
		m.mu.Unlock()
		return
	}
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return
	}

	fetched := make([]models.Message, 0, len(detail.Messages))
	for _, sm := range detail.Messages {
		msg := sm.ToMessage()
		fetched = append(fetched, msg)
		m.markSyncedLocked(id, msg.ID)
	}
	conv := &m.conversations[idx]
	// Messages sent while the fetch was in flight stay after the history,
	// minus those the store already returned.
	local := conv.Messages[m.overlapLocked(id, fetched, conv.Messages):]
	conv.Messages = append(fetched, local...)
	conv.MessageCount = len(conv.Messages)
	m.mu.Unlock()

	logger.L.Debug("conversation hydrated", "conversation_id", id, "messages", len(fetched))
	m.emit(Event{Kind: EventHydrated, ConversationID: id})
}

// overlapLocked returns how many leading local messages are already the
// tail of fetched. Only messages the store acknowledged can overlap; the
// store assigns its own ids and timestamps, so role and content are compared.
func (m *Manager) overlapLocked(id string, fetched, local []models.Message) int {
	synced := m.synced[id]
	for n := min(len(fetched), len(local)); n > 0; n-- {
		tail := fetched[len(fetched)-n:]
		match := true
		for i, msg := range local[:n] {
			_, acked := synced[msg.ID]
			if !acked || msg.Role != tail[i].Role || msg.Content != tail[i].Content {
				match = false
				break
			}
		}
		if match {
			return n
		}
	}
	return 0
}
