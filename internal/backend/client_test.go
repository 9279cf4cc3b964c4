package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/models"
)

type staticIdentity string

func (s staticIdentity) UserID() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{BaseURL: srv.URL + "/api/", Timeout: time.Second}, staticIdentity("7"))
}

func TestListConversations_SendsIdentityAndDecodesNumericIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/conversations", r.URL.Path)
		require.Equal(t, "7", r.Header.Get(UserIDHeader))
		_, _ = io.WriteString(w, `[{"id": 12, "title": "Medicare", "createdAt": "2025-01-02T03:04:05.123456", "messageCount": 5}]`)
	})

	out, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, models.ID("12"), out[0].ID)
	require.Equal(t, 5, out[0].MessageCount)
	require.Equal(t, 2025, ParseTime(out[0].CreatedAt).Year())
}

func TestIdentityBoundCallWithoutUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("request should not be sent")
	})
	c.SetIdentity(staticIdentity(""))

	_, err := c.ListConversations(context.Background())
	require.ErrorIs(t, err, ErrNoIdentity)
}

func TestGetConversation_RemapsIDsAndDecodesDoctorJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversations/3", r.URL.Path)
		_, _ = io.WriteString(w, `{"id": 3, "title": "t", "messages": [
			{"id": 1, "role": "user", "content": "find a cardiologist", "contentType": "TEXT", "timestamp": "2025-01-01T00:00:00"},
			{"id": 2, "role": "assistant", "content": "here", "contentType": "DOCTOR_RESULTS", "timestamp": "2025-01-01T00:00:01",
			 "doctorSearchResultJson": "{\"totalResults\":1,\"specialty\":\"Cardiology\",\"doctors\":[{\"id\":\"d1\",\"firstName\":\"Ann\",\"lastName\":\"Lee\"}]}"}
		]}`)
	})

	detail, err := c.GetConversation(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, detail.Messages, 2)

	first := detail.Messages[0].ToMessage()
	require.Equal(t, "msg-1", first.ID)
	require.Equal(t, models.RoleUser, first.Role)

	second := detail.Messages[1].ToMessage()
	require.Equal(t, models.RoleAssistant, second.Role)
	require.NotNil(t, second.DoctorSearchResult)
	require.Equal(t, "Cardiology", second.DoctorSearchResult.Specialty)
	require.Equal(t, "Ann Lee", second.DoctorSearchResult.Doctors[0].FullName())
}

func TestAddMessage_DefaultsContentType(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/conversations/9/messages", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "user", body["role"])
		require.Equal(t, "TEXT", body["contentType"])
		require.Contains(t, body, "doctorSearchResult")
		_, _ = io.WriteString(w, `{"id": 9, "title": "hi"}`)
	})

	ack, err := c.AddMessage(context.Background(), "9", NewMessageFrom(models.Message{Role: models.RoleUser, Content: "hi"}))
	require.NoError(t, err)
	require.Equal(t, models.ID("9"), ack.ID)
}

func TestErrorsCarryStatusAndMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conversations/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error": "Conversation not found"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error": "Invalid token"}`)
		}
	})

	err := c.DeleteConversation(context.Background(), "404")
	require.ErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Conversation not found", apiErr.Message)

	_, err = c.GoogleSignIn(context.Background(), "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestChat_SendsNullSessionAndEmptyHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get(UserIDHeader))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"message":"hi","conversationHistory":[],"sessionId":null}`, string(raw))
		_, _ = io.WriteString(w, `{"message":"Hello!","contentType":"TEXT","sessionId":"s-1"}`)
	})

	resp, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "Hello!", resp.Message)
	require.Equal(t, "s-1", resp.SessionID)
}

func TestSchedulingAndPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/scheduling/slots":
			_, _ = io.WriteString(w, `{"slots":[{"start":"2025-01-06T09:00:00-05:00","time":"9:00 AM","dayOfWeek":"MONDAY"}]}`)
		case "/api/scheduling/book":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "a@b.c", body["email"])
			require.Equal(t, "2025-01-06T09:00:00-05:00", body["startTime"])
			_, _ = io.WriteString(w, `{"success":true,"eventId":"e1"}`)
		case "/api/payment/create-checkout-session":
			_, _ = io.WriteString(w, `{"success":true,"sessionId":"cs_1","checkoutUrl":"https://pay.example/cs_1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	slots, err := c.AvailableSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	require.Equal(t, "MONDAY", slots[0].DayOfWeek)

	booked, err := c.BookSlot(ctx, BookingRequest{StartTime: slots[0].Start, ContactDetails: ContactDetails{Email: "a@b.c", FirstName: "A"}})
	require.NoError(t, err)
	require.True(t, booked.Success)

	session, err := c.CreateCheckoutSession(ctx, CheckoutRequest{SlotStart: slots[0].Start, ContactDetails: ContactDetails{Email: "a@b.c"}})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/cs_1", session.CheckoutURL)
}

func TestParseTime(t *testing.T) {
	require.False(t, ParseTime("2025-03-04T05:06:07Z").IsZero())
	require.False(t, ParseTime("2025-03-04T05:06:07").IsZero())
	require.True(t, ParseTime("yesterday").IsZero())
}

func TestHealth(t *testing.T) {
	healthy := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"UP"}`)
	})

	require.NoError(t, c.Health(context.Background()))

	healthy = false
	var apiErr *APIError
	require.ErrorAs(t, c.Health(context.Background()), &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}
