package server

import (
	"net/http"
	"strings"

	"github.com/comigor/healthassist-go/internal/models"
	"github.com/comigor/healthassist-go/internal/session"
)

type sessionView struct {
	Mode     session.Mode `json:"mode"`
	SignedIn bool         `json:"signedIn"`
	User     *models.User `json:"user,omitempty"`
	ActiveID string       `json:"activeId"`
}

func (s *Server) sessionView() sessionView {
	v := sessionView{Mode: s.Sessions.Mode(), ActiveID: s.Sessions.ActiveID()}
	if user, ok := s.Identity.User(); ok {
		v.SignedIn = true
		v.User = &user
	}
	return v
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView())
}

// handleSignIn verifies a Google ID token and loads the user's
// conversations. Without a token it retries loading for the user already
// signed in.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"idToken"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}

	if strings.TrimSpace(body.IDToken) != "" || !s.Identity.SignedIn() {
		if _, err := s.Identity.SignInWithGoogle(r.Context(), body.IDToken); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.Sessions.SignIn(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.Identity.SignOut()
	s.Sender.ResetSessions()
	if err := s.Sessions.SignOut(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.Events.Drain()})
}
