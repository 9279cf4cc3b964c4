package session

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// Mode is a lifecycle state of the manager.
type Mode string

const (
	ModeInit          Mode = "Init"
	ModeGuest         Mode = "Guest"
	ModeAuthenticated Mode = "Authenticated"
	ModeTornDown      Mode = "TornDown"
)

type trigger string

const (
	triggerStartGuest trigger = "StartGuest"
	triggerSignIn     trigger = "SignIn"
	triggerSignOut    trigger = "SignOut"
	triggerTeardown   trigger = "Teardown"
)

// newLifecycle wires init → guest ⇄ authenticated → torn down.
//
// Entry actions run with m.mu held by the caller of Fire.
func (m *Manager) newLifecycle() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(ModeInit)

	fsm.Configure(ModeInit).
		Permit(triggerStartGuest, ModeGuest).
		Permit(triggerSignIn, ModeAuthenticated).
		Permit(triggerTeardown, ModeTornDown)

	// Guest: a single in-memory default conversation, nothing persisted.
	fsm.Configure(ModeGuest).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("session: entering guest mode")
			m.resetLocked([]models.Conversation{
				models.NewGuestConversation(models.DefaultConversationID, m.now()),
			}, models.DefaultConversationID)
			return nil
		}).
		PermitReentry(triggerSignOut).
		Permit(triggerSignIn, ModeAuthenticated).
		Permit(triggerTeardown, ModeTornDown)

	// Authenticated: the conversations loaded from the store, unhydrated.
	fsm.Configure(ModeAuthenticated).
		OnEntry(func(ctx context.Context, args ...any) error {
			if len(args) != 1 {
				return fmt.Errorf("session: sign-in needs the loaded conversations, got %d args", len(args))
			}
			convs, ok := args[0].([]models.Conversation)
			if !ok || len(convs) == 0 {
				return fmt.Errorf("session: sign-in needs at least one conversation")
			}
			logger.L.Debug("session: entering authenticated mode", "conversations", len(convs))
			m.resetLocked(convs, convs[0].ID)
			return nil
		}).
		PermitReentry(triggerSignIn).
		Permit(triggerSignOut, ModeGuest).
		Permit(triggerTeardown, ModeTornDown)

	fsm.Configure(ModeTornDown).
		OnEntry(func(ctx context.Context, args ...any) error {
			logger.L.Debug("session: torn down")
			m.resetLocked(nil, "")
			return nil
		})

	return fsm
}

// SignIn switches to authenticated mode for the user the store client is
// bound to. Summaries are fetched first; when there are none, exactly one
// new conversation is created. The first conversation becomes active and
// its history starts loading in the background.
//
// If loading fails the manager stays in its previous mode with its state
// untouched and the error is returned so the caller can retry.
func (m *Manager) SignIn(ctx context.Context) error {
	if m.Mode() == ModeTornDown {
		return ErrTornDown
	}

	convs, err := m.loadRemote(ctx)
	if err != nil {
		logger.L.Error("failed to load conversations", "error", err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Mode() == ModeTornDown {
		return ErrTornDown
	}
	if err := m.fsm.FireCtx(ctx, triggerSignIn, convs); err != nil {
		return err
	}
	m.hydrateLocked(m.activeID)
	return nil
}

// SignOut discards all conversation state and resets to the single
// in-memory "default" conversation.
func (m *Manager) SignOut() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Mode() == ModeTornDown {
		return ErrTornDown
	}
	return m.fsm.FireCtx(m.ctx, triggerSignOut)
}

func (m *Manager) loadRemote(ctx context.Context) ([]models.Conversation, error) {
	summaries, err := m.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	if len(summaries) == 0 {
		created, err := m.store.CreateConversation(ctx, models.DefaultTitle)
		if err != nil {
			return nil, fmt.Errorf("create first conversation: %w", err)
		}
		summaries = []backend.ConversationSummary{*created}
	}

	now := m.now()
	convs := make([]models.Conversation, 0, len(summaries))
	for _, s := range summaries {
		convs = append(convs, fromSummary(s, now))
	}
	return convs, nil
}
