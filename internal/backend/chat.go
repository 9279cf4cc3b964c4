package backend

import (
	"context"
	"net/http"

	"github.com/comigor/healthassist-go/internal/models"
)

// HistoryEntry is one prior turn sent as chat context.
type HistoryEntry struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []HistoryEntry `json:"conversationHistory"`
	SessionID           *string        `json:"sessionId"`
}

// DoctorSearchParams is the search the assistant decided to run.
type DoctorSearchParams struct {
	Specialty string `json:"specialty,omitempty"`
	Location  string `json:"location,omitempty"`
	Insurance string `json:"insurance,omitempty"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Message              string                     `json:"message"`
	ContentType          models.ContentType         `json:"contentType"`
	DoctorSearchResult   *models.DoctorSearchResult `json:"doctorSearchResult,omitempty"`
	SessionID            string                     `json:"sessionId,omitempty"`
	RequiresDoctorSearch bool                       `json:"requiresDoctorSearch,omitempty"`
	DoctorSearchParams   *DoctorSearchParams        `json:"doctorSearchParams,omitempty"`
}

// Chat sends one user message to the assistant.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []HistoryEntry{}
	}
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &out, requestOptions{}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health probes the chat service.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/chat/health", nil, nil, requestOptions{})
}
