package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/models"
)

func newTestApp(t *testing.T, handler http.HandlerFunc) *app {
	t.Helper()
	color.NoColor = true
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	a, err := newApp(&config.Config{
		Backend:   config.BackendConfig{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second},
		Assistant: config.AssistantConfig{Provider: config.ProviderBackend},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestREPL_GuestConversation(t *testing.T) {
	var got []backend.ChatRequest
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		var req backend.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)
		_ = json.NewEncoder(w).Encode(backend.ChatResponse{Message: "Part B covers outpatient care.", ContentType: models.ContentText, SessionID: "s-1"})
	})

	var out bytes.Buffer
	r := &repl{app: a, out: &out}
	in := strings.NewReader("/plan Medicare|Original Medicare\nWhat does Part B cover?\n/list\n/quit\n")
	require.NoError(t, r.run(context.Background(), in))

	require.Len(t, got, 1)
	require.Equal(t, "[User's insurance plan: Medicare — Original Medicare]\n\nWhat does Part B cover?", got[0].Message)
	require.Contains(t, out.String(), "assistant> Part B covers outpatient care.")
	require.Contains(t, out.String(), "* default")
	require.Contains(t, out.String(), "What does Part B cover?")

	conv, ok := a.sessions.Active()
	require.True(t, ok)
	require.Equal(t, "What does Part B cover?", conv.Title)
	require.Len(t, conv.Messages, 2)
}

func TestREPL_BackendDownShowsFallback(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	var out bytes.Buffer
	r := &repl{app: a, out: &out}
	require.NoError(t, r.run(context.Background(), strings.NewReader("hello\n")))
	require.Contains(t, out.String(), "1-800-MEDICARE")
}

func TestREPL_UnknownCommand(t *testing.T) {
	a := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {})

	var out bytes.Buffer
	r := &repl{app: a, out: &out}
	require.NoError(t, r.run(context.Background(), strings.NewReader("/bogus\n/switch nope\n")))
	require.Contains(t, out.String(), "unknown command /bogus")
	require.Contains(t, out.String(), "unknown conversation")
}
