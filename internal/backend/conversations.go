package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/comigor/healthassist-go/internal/models"
)

// ConversationSummary is a conversation without its messages.
type ConversationSummary struct {
	ID           models.ID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    string    `json:"createdAt"`
	UpdatedAt    string    `json:"updatedAt,omitempty"`
	MessageCount int       `json:"messageCount"`
}

// ConversationDetail is a conversation with its full history.
type ConversationDetail struct {
	ID       models.ID       `json:"id"`
	Title    string          `json:"title"`
	Messages []StoredMessage `json:"messages"`
}

// StoredMessage is a message as the store returns it.
type StoredMessage struct {
	ID                 models.ID                  `json:"id"`
	Role               string                     `json:"role"`
	Content            string                     `json:"content"`
	ContentType        models.ContentType         `json:"contentType"`
	DoctorSearchResult *models.DoctorSearchResult `json:"doctorSearchResult,omitempty"`
	// DoctorSearchResultJSON is the store's serialized form of the payload.
	DoctorSearchResultJSON string `json:"doctorSearchResultJson,omitempty"`
	Timestamp              string `json:"timestamp"`
}

// ToMessage remaps the server id into the local id space and decodes the
// doctor payload from whichever field carries it.
func (m StoredMessage) ToMessage() models.Message {
	out := models.Message{
		ID:                 models.LocalMessageID(m.ID.String()),
		Role:               models.ParseRole(m.Role),
		Content:            m.Content,
		ContentType:        m.ContentType,
		DoctorSearchResult: m.DoctorSearchResult,
		Timestamp:          m.Timestamp,
	}
	if out.DoctorSearchResult == nil && m.DoctorSearchResultJSON != "" {
		var dsr models.DoctorSearchResult
		if err := json.Unmarshal([]byte(m.DoctorSearchResultJSON), &dsr); err == nil {
			out.DoctorSearchResult = &dsr
		}
	}
	return out
}

// NewMessage is the body of POST /conversations/{id}/messages.
type NewMessage struct {
	Role               models.Role                `json:"role"`
	Content            string                     `json:"content"`
	ContentType        models.ContentType         `json:"contentType"`
	DoctorSearchResult *models.DoctorSearchResult `json:"doctorSearchResult"`
}

// NewMessageFrom builds the persistence body for a local message.
func NewMessageFrom(m models.Message) NewMessage {
	return NewMessage{
		Role:               m.Role,
		Content:            m.Content,
		ContentType:        m.ContentType.OrText(),
		DoctorSearchResult: m.DoctorSearchResult,
	}
}

// ConversationAck is returned by message appends and title updates.
type ConversationAck struct {
	ID    models.ID `json:"id"`
	Title string    `json:"title"`
}

func conversationPath(id string) string {
	return "/conversations/" + url.PathEscape(id)
}

var withIdentity = requestOptions{withIdentity: true}

// ListConversations returns the signed-in user's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var out []ConversationSummary
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out, withIdentity); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConversation returns one conversation with its full message history.
func (c *Client) GetConversation(ctx context.Context, id string) (*ConversationDetail, error) {
	var out ConversationDetail
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateConversation creates an empty conversation with the given title.
func (c *Client) CreateConversation(ctx context.Context, title string) (*ConversationSummary, error) {
	var out ConversationSummary
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/conversations", body, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMessage appends one message to a conversation.
func (c *Client) AddMessage(ctx context.Context, id string, msg NewMessage) (*ConversationAck, error) {
	var out ConversationAck
	if err := c.do(ctx, http.MethodPost, conversationPath(id)+"/messages", msg, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameConversation sets a conversation's title.
func (c *Client) RenameConversation(ctx context.Context, id, title string) (*ConversationAck, error) {
	var out ConversationAck
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPatch, conversationPath(id), body, &out, withIdentity); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil, withIdentity)
}
