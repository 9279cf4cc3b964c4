// Package chat implements sending a user message and recording the
// assistant's reply in the conversation it belongs to.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/comigor/healthassist-go/internal/assistant"
	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
	"github.com/comigor/healthassist-go/internal/session"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrSendInFlight is returned while the conversation is still waiting for a reply.
	ErrSendInFlight = errors.New("chat: a message is already being sent in this conversation")
)

// FallbackMessage replaces the reply when the assistant cannot be reached.
const FallbackMessage = "I'm having trouble connecting to the server. Please make sure the backend is running on port 8080 and try again. If you need immediate help, call Medicare at 1-800-MEDICARE."

// Sessions is the part of the session manager the sender needs.
type Sessions interface {
	AwaitHydration(ctx context.Context, id string) error
	Conversation(id string) (models.Conversation, bool)
	UpdateMessages(ctx context.Context, conversationID string, msgs []models.Message) error
}

// PlanSource provides the user's saved insurance plan.
type PlanSource interface {
	InsurancePlan() (models.InsurancePlan, bool)
}

// Sender sends messages on behalf of the user.
type Sender struct {
	sessions  Sessions
	assistant assistant.Assistant
	plans     PlanSource
	now       func() time.Time

	mu         sync.Mutex
	inFlight   map[string]struct{}
	sessionIDs map[string]string
}

// NewSender creates a Sender. plans may be nil.
func NewSender(sessions Sessions, a assistant.Assistant, plans PlanSource) *Sender {
	return &Sender{
		sessions:   sessions,
		assistant:  a,
		plans:      plans,
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
		sessionIDs: make(map[string]string),
	}
}

// Send appends text as a user message to the conversation, asks the
// assistant for a reply and appends that too. It returns the reply, which
// is an ERROR message carrying FallbackMessage when the assistant failed.
//
// A stored conversation's history is loaded before anything is sent, so
// the request carries the full history. Only one send per conversation may
// be in flight. A *session.PersistError
// from either update is returned together with the reply; the messages are
// in the local conversation regardless.
func (s *Sender) Send(ctx context.Context, conversationID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if !s.begin(conversationID) {
		return models.Message{}, ErrSendInFlight
	}
	defer s.end(conversationID)

	if err := s.sessions.AwaitHydration(ctx, conversationID); err != nil {
		return models.Message{}, fmt.Errorf("load history: %w", err)
	}
	conv, ok := s.sessions.Conversation(conversationID)
	if !ok {
		return models.Message{}, fmt.Errorf("%w: %s", session.ErrUnknownConversation, conversationID)
	}
	prior := conv.Messages
	first := len(prior) == 0 && conv.MessageCount == 0

	user := models.Message{
		ID:          models.NewMessageID(),
		Role:        models.RoleUser,
		Content:     text,
		ContentType: models.ContentText,
		Timestamp:   models.Timestamp(s.now()),
	}
	updated := append(append(make([]models.Message, 0, len(prior)+2), prior...), user)
	persistErr, err := s.update(ctx, conversationID, updated)
	if err != nil {
		return models.Message{}, err
	}

	req := backend.ChatRequest{
		Message:             s.withPlanHint(text, first),
		ConversationHistory: history(prior),
		SessionID:           s.sessionID(conversationID),
	}
	reply := s.ask(ctx, conversationID, req)

	// Re-read so history merged in while waiting is kept.
	if cur, ok := s.sessions.Conversation(conversationID); ok {
		updated = cur.Messages
	}
	latePersistErr, err := s.update(ctx, conversationID, append(updated, reply))
	if err != nil {
		return reply, err
	}
	return reply, errors.Join(persistErr, latePersistErr)
}

// ResetSessions forgets assistant session ids; called on sign-out.
func (s *Sender) ResetSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionIDs = make(map[string]string)
}

// Sending reports whether a send is in flight for the conversation.
func (s *Sender) Sending(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[conversationID]
	return ok
}

func (s *Sender) ask(ctx context.Context, conversationID string, req backend.ChatRequest) models.Message {
	reply := models.Message{
		ID:        models.NewMessageID(),
		Role:      models.RoleAssistant,
		Timestamp: models.Timestamp(s.now()),
	}

	resp, err := s.assistant.Chat(ctx, req)
	if err != nil {
		logger.L.Error("failed to get assistant reply", "conversation_id", conversationID, "error", err)
		reply.Content = FallbackMessage
		reply.ContentType = models.ContentError
		return reply
	}

	if resp.SessionID != "" {
		s.mu.Lock()
		s.sessionIDs[conversationID] = resp.SessionID
		s.mu.Unlock()
	}
	reply.Content = resp.Message
	reply.ContentType = resp.ContentType.OrText()
	reply.DoctorSearchResult = resp.DoctorSearchResult
	return reply
}

// update separates persistence failures, which leave the local state
// intact, from errors that mean the update did not happen at all.
func (s *Sender) update(ctx context.Context, conversationID string, msgs []models.Message) (persistErr, err error) {
	err = s.sessions.UpdateMessages(ctx, conversationID, msgs)
	var perr *session.PersistError
	if errors.As(err, &perr) {
		logger.L.Warn("messages kept locally but not persisted", "conversation_id", conversationID, "failed", perr.FailedMessageIDs)
		return err, nil
	}
	return nil, err
}

// withPlanHint prefixes the first message of a conversation with the
// user's saved insurance plan.
func (s *Sender) withPlanHint(text string, first bool) string {
	if !first || s.plans == nil {
		return text
	}
	plan, ok := s.plans.InsurancePlan()
	if !ok || plan.Label() == "" {
		return text
	}
	return "[User's insurance plan: " + plan.Label() + "]\n\n" + text
}

func (s *Sender) sessionID(conversationID string) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessionIDs[conversationID]
	if !ok {
		return nil
	}
	return &id
}

func (s *Sender) begin(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[conversationID]; busy {
		return false
	}
	s.inFlight[conversationID] = struct{}{}
	return true
}

func (s *Sender) end(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, conversationID)
}

func history(msgs []models.Message) []backend.HistoryEntry {
	out := make([]backend.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, backend.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return out
}
