package backend

import (
	"context"
	"net/http"

	"github.com/comigor/healthassist-go/internal/models"
)

// ProfileUpdate carries the editable profile fields; nil fields are left alone.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// GetProfile returns the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/profile", upd, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// GoogleSignIn exchanges a Google ID token for the backend's user record.
func (c *Client) GoogleSignIn(ctx context.Context, idToken string) (*models.User, error) {
	var out models.User
	body := map[string]string{"token": idToken}
	if err := c.do(ctx, http.MethodPost, "/auth/google", body, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}
