package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/healthassist-go/internal/localstore"
	"github.com/comigor/healthassist-go/internal/models"
)

type mockVerifier struct {
	user  *models.User
	err   error
	calls int
}

func (m *mockVerifier) GoogleSignIn(ctx context.Context, idToken string) (*models.User, error) {
	m.calls++
	return m.user, m.err
}

func TestSignInCachesUserAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	store := localstore.Open(path)
	v := &mockVerifier{user: &models.User{ID: "42", Email: "p@example.com"}}

	id := NewIdentity(store, v)
	require.False(t, id.SignedIn())

	_, err := id.SignInWithGoogle(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "42", id.UserID())
	require.NoError(t, store.Close())

	reopened := localstore.Open(path)
	t.Cleanup(func() { reopened.Close() })
	restored := NewIdentity(reopened, v)
	require.Equal(t, "42", restored.UserID())

	restored.SignOut()
	require.False(t, restored.SignedIn())
	_, err = reopened.Get(localstore.KeyUser)
	require.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestSignInRejectsBlankToken(t *testing.T) {
	v := &mockVerifier{}
	id := NewIdentity(localstore.Open(""), v)

	_, err := id.SignInWithGoogle(context.Background(), "  ")
	require.ErrorIs(t, err, ErrMissingToken)
	require.Zero(t, v.calls)
}

func TestSignInFailureLeavesGuest(t *testing.T) {
	id := NewIdentity(localstore.Open(""), &mockVerifier{err: errors.New("401")})

	_, err := id.SignInWithGoogle(context.Background(), "tok")
	require.Error(t, err)
	require.False(t, id.SignedIn())
}
