package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout mirrors the millisecond ISO-8601 form browsers produce.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole normalises the role spellings the backend emits ("USER", "user").
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "assistant":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// ContentType selects the auxiliary renderer attached to a message.
type ContentType string

const (
	ContentText                    ContentType = "TEXT"
	ContentDoctorResults           ContentType = "DOCTOR_RESULTS"
	ContentAppointmentConfirmation ContentType = "APPOINTMENT_CONFIRMATION"
	ContentError                   ContentType = "ERROR"
)

// OrText returns ContentText for an unset content type.
func (c ContentType) OrText() ContentType {
	if c == "" {
		return ContentText
	}
	return c
}

// Message is a single chat entry. ID is client-local; server ids are
// remapped with LocalMessageID on load.
type Message struct {
	ID                 string              `json:"id"`
	Role               Role                `json:"role"`
	Content            string              `json:"content"`
	ContentType        ContentType         `json:"contentType,omitempty"`
	DoctorSearchResult *DoctorSearchResult `json:"doctorSearchResult,omitempty"`
	Timestamp          string              `json:"timestamp"`
}

// LocalMessageID maps a server-issued message id into the client id space.
func LocalMessageID(serverID string) string {
	return "msg-" + serverID
}

// Timestamp formats t the way message timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewMessageID returns a fresh client-local message id. Ids are
// time-ordered so they sort in creation order.
func NewMessageID() string {
	if id, err := uuid.NewV7(); err == nil {
		return "msg-" + id.String()
	}
	return "msg-" + uuid.NewString()
}

// NewConversationID returns a fresh client-generated conversation id.
func NewConversationID() string {
	if id, err := uuid.NewV7(); err == nil {
		return "conv-" + id.String()
	}
	return "conv-" + uuid.NewString()
}
