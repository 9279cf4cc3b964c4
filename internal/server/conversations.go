package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/comigor/healthassist-go/internal/models"
	"github.com/comigor/healthassist-go/internal/render"
	"github.com/comigor/healthassist-go/internal/session"
)

type conversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
	Persisted    bool      `json:"persisted"`
	Active       bool      `json:"active"`
	Loaded       bool      `json:"loaded"`
}

type messageView struct {
	models.Message
	HTML string `json:"html"`
}

type conversationView struct {
	conversationSummary
	Messages []messageView `json:"messages"`
	Pending  []string      `json:"pending"`
}

func (s *Server) summary(c models.Conversation, activeID string) conversationSummary {
	return conversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		MessageCount: c.MessageCount,
		Persisted:    c.Persisted,
		Active:       c.ID == activeID,
		Loaded:       !c.NeedsHydration(),
	}
}

func (s *Server) view(c models.Conversation) conversationView {
	v := conversationView{
		conversationSummary: s.summary(c, s.Sessions.ActiveID()),
		Messages:            make([]messageView, 0, len(c.Messages)),
		Pending:             s.Sessions.Pending(c.ID),
	}
	for _, m := range c.Messages {
		v.Messages = append(v.Messages, messageView{Message: m, HTML: render.MessageHTML(m)})
	}
	if v.Pending == nil {
		v.Pending = []string{}
	}
	return v
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	activeID := s.Sessions.ActiveID()
	convs := s.Sessions.Conversations()
	out := make([]conversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, s.summary(c, activeID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out, "activeId": activeID})
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.Sessions.NewConversation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(conv))
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.Sessions.Conversation(r.PathValue("id"))
	if !ok {
		writeError(w, session.ErrUnknownConversation)
		return
	}
	writeJSON(w, http.StatusOK, s.view(conv))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Sessions.Conversation(id); !ok {
		writeError(w, session.ErrUnknownConversation)
		return
	}
	loading := s.Sessions.Select(id)
	conv, ok := s.Sessions.Conversation(id)
	if !ok {
		writeError(w, session.ErrUnknownConversation)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loading": loading, "conversation": s.view(conv)})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := s.Sessions.Rename(r.Context(), id, body.Title); err != nil {
		writeError(w, err)
		return
	}
	conv, _ := s.Sessions.Conversation(id)
	writeJSON(w, http.StatusOK, s.view(conv))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")

	reply, err := s.Sender.Send(r.Context(), id, body.Text)
	resp := map[string]any{}
	var perr *session.PersistError
	switch {
	case errors.As(err, &perr):
		// The exchange happened; only persistence is behind.
		resp["persistError"] = err.Error()
	case err != nil:
		writeError(w, err)
		return
	}
	resp["reply"] = messageView{Message: reply, HTML: render.MessageHTML(reply)}
	if conv, ok := s.Sessions.Conversation(id); ok {
		resp["conversation"] = s.view(conv)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Sessions.Flush(r.Context(), id); err != nil {
		var perr *session.PersistError
		if !errors.As(err, &perr) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pending": perr.FailedMessageIDs, "persistError": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": []string{}})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Reconcile(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.handleListConversations(w, r)
}
