// Package backend is the HTTP client for the healthcare assistant backend:
// the conversation store, the chat assistant, the doctor directory, the
// scheduling and payment endpoints, the profile and Google sign-in.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/healthassist-go/internal/config"
)

// UserIDHeader carries the locally cached user id. The backend trusts it as
// asserted; it is not a credential.
const UserIDHeader = "X-User-Id"

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNoIdentity is returned when an identity-bound call is made while signed out.
	ErrNoIdentity = errors.New("backend: no signed-in user")
)

// APIError is a non-2xx response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap lets errors.Is match ErrNotFound and ErrUnauthorized.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// IdentitySource yields the id sent in UserIDHeader; empty when signed out.
type IdentitySource interface {
	UserID() string
}

// Client is a client for the backend API
type Client struct {
	baseURL  string
	client   *http.Client
	identity IdentitySource
}

// NewClient creates a new Client. identity may be nil for callers that
// never touch identity-bound endpoints.
func NewClient(cfg config.BackendConfig, identity IdentitySource) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		identity: identity,
	}
}

// SetIdentity replaces the identity source.
func (c *Client) SetIdentity(identity IdentitySource) {
	c.identity = identity
}

type requestOptions struct {
	withIdentity bool
}

// do sends body as JSON and decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts requestOptions) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.withIdentity {
		if c.identity == nil || c.identity.UserID() == "" {
			return ErrNoIdentity
		}
		req.Header.Set(UserIDHeader, c.identity.UserID())
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of an error body, falling back to the raw text.
func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// timeLayouts covers RFC 3339 and the zone-less LocalDateTime form the backend emits.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime parses a backend timestamp. Zone-less values are read as UTC.
// The zero time is returned when nothing matches.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
