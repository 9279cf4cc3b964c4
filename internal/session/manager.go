// Package session implements the conversation session manager: the list of
// conversations, the active one, lazy hydration of message history and the
// guest/authenticated persistence policy.
//
// The manager owns the in-memory conversation list. When signed in, the
// remote store owns the durable copy and the manager keeps it in step:
// new messages are appended to the store one at a time, in order, and
// histories are fetched on first selection.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

var (
	// ErrUnknownConversation is returned for ids the manager does not hold.
	ErrUnknownConversation = errors.New("session: unknown conversation")
	// ErrTornDown is returned by every operation after Close.
	ErrTornDown = errors.New("session: manager is torn down")
	// ErrSessionChanged is returned when a sign-in or sign-out happened
	// while the operation was waiting on the store.
	ErrSessionChanged = errors.New("session: signed-in user changed during operation")
	// ErrMissingMessageID is returned when UpdateMessages receives a message without an id.
	ErrMissingMessageID = errors.New("session: message without id")
	// ErrNotHydrated is returned when a stored conversation's history has
	// not been loaded and cannot be written to yet.
	ErrNotHydrated = errors.New("session: conversation history not loaded")
)

// Store is the remote conversation store.
type Store interface {
	ListConversations(ctx context.Context) ([]backend.ConversationSummary, error)
	GetConversation(ctx context.Context, id string) (*backend.ConversationDetail, error)
	CreateConversation(ctx context.Context, title string) (*backend.ConversationSummary, error)
	AddMessage(ctx context.Context, id string, msg backend.NewMessage) (*backend.ConversationAck, error)
	RenameConversation(ctx context.Context, id, title string) (*backend.ConversationAck, error)
	DeleteConversation(ctx context.Context, id string) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier registers the callback receiving background outcomes.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the guest conversation id generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// Manager is the conversation session manager. It is safe for concurrent use.
type Manager struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	newID    func() string

	mu            sync.Mutex
	fsm           *stateless.StateMachine
	conversations []models.Conversation
	activeID      string
	// generation changes on every sign-in, sign-out and teardown; async
	// results carrying an older generation are dropped.
	generation uint64
	synced     map[string]map[string]struct{}
	hydrating  map[string]chan struct{}
	persistMu  map[string]*sync.Mutex

	// ctx bounds background work; cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a manager in guest mode holding the single default conversation.
func New(store Store, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:  store,
		now:    time.Now,
		newID:  models.NewConversationID,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.fsm = m.newLifecycle()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fsm.FireCtx(ctx, triggerStartGuest); err != nil {
		logger.L.Error("session lifecycle start failed", "error", err)
	}
	return m
}

// Mode reports the current lifecycle state.
func (m *Manager) Mode() Mode {
	return m.fsm.MustState().(Mode)
}

// Authenticated reports whether conversations are backed by the remote store.
func (m *Manager) Authenticated() bool {
	return m.Mode() == ModeAuthenticated
}

// Conversations returns a snapshot of the conversation list in display order.
func (m *Manager) Conversations() []models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Conversation, len(m.conversations))
	for i, c := range m.conversations {
		out[i] = c.Clone()
	}
	return out
}

// Conversation returns a snapshot of one conversation.
func (m *Manager) Conversation(id string) (models.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return models.Conversation{}, false
	}
	return m.conversations[idx].Clone(), true
}

// ActiveID returns the active conversation id.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Active returns a snapshot of the active conversation. It is false while
// the active id names nothing, e.g. right after the last signed-in
// conversation was deleted and its replacement is still being created.
func (m *Manager) Active() (models.Conversation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(m.activeID)
	if idx < 0 {
		return models.Conversation{}, false
	}
	return m.conversations[idx].Clone(), true
}

// Wait blocks until background hydrations and replacements have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close tears the manager down: background work is cancelled and all
// conversation state is discarded.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.Mode() == ModeTornDown {
		m.mu.Unlock()
		return nil
	}
	err := m.fsm.FireCtx(m.ctx, triggerTeardown)
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	return err
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) resetLocked(convs []models.Conversation, activeID string) {
	m.generation++
	m.conversations = convs
	m.activeID = activeID
	m.synced = make(map[string]map[string]struct{})
	m.hydrating = make(map[string]chan struct{})
	m.persistMu = make(map[string]*sync.Mutex)
}

func (m *Manager) guestConversation() models.Conversation {
	return models.NewGuestConversation(m.newID(), m.now())
}

func (m *Manager) emit(ev Event) {
	if m.notifier != nil {
		m.notifier(ev)
	}
}

func fromSummary(s backend.ConversationSummary, now time.Time) models.Conversation {
	created := backend.ParseTime(s.CreatedAt)
	if created.IsZero() {
		created = now
	}
	title := s.Title
	if title == "" {
		title = models.DefaultTitle
	}
	return models.Conversation{
		ID:           s.ID.String(),
		Title:        title,
		Messages:     []models.Message{},
		CreatedAt:    created,
		Persisted:    true,
		MessageCount: s.MessageCount,
	}
}
