package main

import (
	"context"
	"errors"

	"github.com/comigor/healthassist-go/internal/assistant"
	"github.com/comigor/healthassist-go/internal/auth"
	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/chat"
	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/localstore"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/session"
)

// app wires the collaborators shared by the serve and chat commands.
type app struct {
	local    *localstore.Store
	client   *backend.Client
	identity *auth.Identity
	sessions *session.Manager
	sender   *chat.Sender
}

func newApp(cfg *config.Config, notify session.Notifier) (*app, error) {
	local := localstore.Open(cfg.LocalStore.Path)
	client := backend.NewClient(cfg.Backend, nil)
	identity := auth.NewIdentity(local, client)
	client.SetIdentity(identity)

	asst, err := assistant.New(cfg.Assistant, client)
	if err != nil {
		_ = local.Close()
		return nil, err
	}

	sessions := session.New(client, session.WithNotifier(notify))
	return &app{
		local:    local,
		client:   client,
		identity: identity,
		sessions: sessions,
		sender:   chat.NewSender(sessions, asst, local),
	}, nil
}

// restore signs the session back in for a user cached on this device.
// On failure the session stays in guest mode.
func (a *app) restore(ctx context.Context) {
	if !a.identity.SignedIn() {
		return
	}
	if err := a.sessions.SignIn(ctx); err != nil {
		logger.L.Warn("could not restore signed-in session", "user_id", a.identity.UserID(), "error", err)
	}
}

func (a *app) signIn(ctx context.Context, token string) error {
	if _, err := a.identity.SignInWithGoogle(ctx, token); err != nil {
		return err
	}
	return a.sessions.SignIn(ctx)
}

func (a *app) signOut() error {
	a.identity.SignOut()
	a.sender.ResetSessions()
	return a.sessions.SignOut()
}

func (a *app) Close() error {
	return errors.Join(a.sessions.Close(), a.local.Close())
}
