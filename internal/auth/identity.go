// Package auth holds the signed-in identity. It is an explicit handle:
// whoever needs the current user gets the *Identity passed in.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/comigor/healthassist-go/internal/localstore"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
)

// ErrMissingToken is returned when sign-in is attempted without a token.
var ErrMissingToken = errors.New("auth: token is required")

// Verifier exchanges a Google ID token for a user record.
type Verifier interface {
	GoogleSignIn(ctx context.Context, idToken string) (*models.User, error)
}

// Identity tracks the current user and mirrors it into the local store so
// it survives restarts.
type Identity struct {
	mu       sync.RWMutex
	user     *models.User
	store    *localstore.Store
	verifier Verifier
}

// NewIdentity restores a cached user from store, if one is present.
func NewIdentity(store *localstore.Store, verifier Verifier) *Identity {
	id := &Identity{store: store, verifier: verifier}
	var cached models.User
	if err := store.GetJSON(localstore.KeyUser, &cached); err == nil && cached.ID != "" {
		id.user = &cached
		logger.L.Debug("restored cached user", "user_id", cached.ID.String())
	}
	return id
}

// UserID returns the signed-in user's id, or "" for a guest.
func (i *Identity) UserID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return ""
	}
	return i.user.ID.String()
}

// User returns a copy of the signed-in user.
func (i *Identity) User() (models.User, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return models.User{}, false
	}
	return *i.user, true
}

// SignedIn reports whether a user is present.
func (i *Identity) SignedIn() bool {
	return i.UserID() != ""
}

// SignInWithGoogle verifies token with the backend and caches the user.
func (i *Identity) SignInWithGoogle(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	user, err := i.verifier.GoogleSignIn(ctx, token)
	if err != nil {
		logger.L.Error("google sign-in failed", "error", err)
		return nil, err
	}
	i.set(user)
	return user, nil
}

// Replace swaps the cached record, e.g. after a profile update.
func (i *Identity) Replace(user *models.User) {
	if user == nil || user.ID == "" {
		return
	}
	i.set(user)
}

func (i *Identity) set(user *models.User) {
	cp := *user
	i.mu.Lock()
	i.user = &cp
	i.mu.Unlock()
	if err := i.store.SetJSON(localstore.KeyUser, cp); err != nil {
		logger.L.Warn("failed to cache user", "error", err)
	}
}

// SignOut forgets the user.
func (i *Identity) SignOut() {
	i.mu.Lock()
	i.user = nil
	i.mu.Unlock()
	i.store.Delete(localstore.KeyUser)
}
