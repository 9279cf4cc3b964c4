package session

import (
	"context"
	"strconv"
	"sync"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/models"
)

// mockStore mirrors Store. Unset funcs fall back to an in-memory behaviour.
type mockStore struct {
	ListFunc   func(ctx context.Context) ([]backend.ConversationSummary, error)
	GetFunc    func(ctx context.Context, id string) (*backend.ConversationDetail, error)
	CreateFunc func(ctx context.Context, title string) (*backend.ConversationSummary, error)
	AddFunc    func(ctx context.Context, id string, msg backend.NewMessage) (*backend.ConversationAck, error)
	RenameFunc func(ctx context.Context, id, title string) (*backend.ConversationAck, error)
	DeleteFunc func(ctx context.Context, id string) error

	mu      sync.Mutex
	nextID  int
	added   map[string][]backend.NewMessage
	gets    map[string]int
	creates int
	deletes []string
	renames map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{
		nextID:  100,
		added:   make(map[string][]backend.NewMessage),
		gets:    make(map[string]int),
		renames: make(map[string]string),
	}
}

func (m *mockStore) ListConversations(ctx context.Context) ([]backend.ConversationSummary, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) GetConversation(ctx context.Context, id string) (*backend.ConversationDetail, error) {
	m.mu.Lock()
	m.gets[id]++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &backend.ConversationDetail{ID: models.ID(id)}, nil
}

func (m *mockStore) CreateConversation(ctx context.Context, title string) (*backend.ConversationSummary, error) {
	m.mu.Lock()
	m.creates++
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, title)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return &backend.ConversationSummary{ID: models.ID(strconv.Itoa(m.nextID)), Title: title, CreatedAt: "2025-01-01T00:00:00"}, nil
}

func (m *mockStore) AddMessage(ctx context.Context, id string, msg backend.NewMessage) (*backend.ConversationAck, error) {
	if m.AddFunc != nil {
		if _, err := m.AddFunc(ctx, id, msg); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added[id] = append(m.added[id], msg)
	return &backend.ConversationAck{ID: models.ID(id)}, nil
}

func (m *mockStore) RenameConversation(ctx context.Context, id, title string) (*backend.ConversationAck, error) {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, id, title)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renames[id] = title
	return &backend.ConversationAck{ID: models.ID(id), Title: title}, nil
}

func (m *mockStore) DeleteConversation(ctx context.Context, id string) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, id)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) addedTo(id string) []backend.NewMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.NewMessage(nil), m.added[id]...)
}

func (m *mockStore) getCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets[id]
}

func (m *mockStore) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}
