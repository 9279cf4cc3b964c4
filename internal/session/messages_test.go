package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/healthassist-go/internal/backend"
	"github.com/comigor/healthassist-go/internal/models"
)

func TestUpdateMessages_GuestScenario(t *testing.T) {
	store := newMockStore()
	m := newTestManager(t, store)
	ctx := context.Background()

	user := msg("msg-1", models.RoleUser, "Hello")
	require.NoError(t, m.UpdateMessages(ctx, models.DefaultConversationID, []models.Message{user}))

	convs := m.Conversations()
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 1)
	require.Equal(t, models.RoleUser, convs[0].Messages[0].Role)
	require.Equal(t, "Hello", convs[0].Title)

	reply := msg("msg-2", models.RoleAssistant, "Hi! How can I help?")
	require.NoError(t, m.UpdateMessages(ctx, models.DefaultConversationID, []models.Message{user, reply}))

	c, _ := m.Conversation(models.DefaultConversationID)
	require.Len(t, c.Messages, 2)
	require.Equal(t, "Hello", c.Title)
	require.Empty(t, store.addedTo(models.DefaultConversationID))
	require.Nil(t, m.Pending(models.DefaultConversationID))
}

func TestUpdateMessages_TitleTruncatedToFifty(t *testing.T) {
	m := newTestManager(t, newMockStore())
	long := strings.Repeat("x", 60)

	require.NoError(t, m.UpdateMessages(context.Background(), models.DefaultConversationID,
		[]models.Message{msg("msg-1", models.RoleUser, long)}))

	c, _ := m.Conversation(models.DefaultConversationID)
	require.Equal(t, strings.Repeat("x", 50)+"...", c.Title)
}

func TestUpdateMessages_SendsOnlyTheNewSuffixInOrder(t *testing.T) {
	store := newMockStore()
	m := newTestManager(t, store)
	ctx := context.Background()
	require.NoError(t, m.SignIn(ctx))
	id := m.ActiveID()

	first := []models.Message{
		msg("msg-a", models.RoleUser, "one"),
		msg("msg-b", models.RoleAssistant, "two"),
	}
	require.NoError(t, m.UpdateMessages(ctx, id, first))
	require.Len(t, store.addedTo(id), 2)

	all := append(append([]models.Message(nil), first...),
		msg("msg-c", models.RoleUser, "three"),
		models.Message{ID: "msg-d", Role: models.RoleAssistant, Content: "four", ContentType: models.ContentDoctorResults,
			DoctorSearchResult: &models.DoctorSearchResult{TotalResults: 1, Specialty: "Cardiology"}},
	)
	require.NoError(t, m.UpdateMessages(ctx, id, all))

	sent := store.addedTo(id)
	require.Len(t, sent, 4)
	require.Equal(t, "three", sent[2].Content)
	require.Equal(t, models.ContentText, sent[2].ContentType)
	require.Equal(t, "four", sent[3].Content)
	require.Equal(t, models.ContentDoctorResults, sent[3].ContentType)
	require.Equal(t, "Cardiology", sent[3].DoctorSearchResult.Specialty)
	require.Empty(t, m.Pending(id))
}

func TestUpdateMessages_FailuresDoNotStopTheBatch(t *testing.T) {
	store := newMockStore()
	store.AddFunc = func(ctx context.Context, id string, nm backend.NewMessage) (*backend.ConversationAck, error) {
		if nm.Content == "bad" {
			return nil, errors.New("500")
		}
		return nil, nil
	}
	m := newTestManager(t, store)
	ctx := context.Background()
	require.NoError(t, m.SignIn(ctx))
	id := m.ActiveID()

	msgs := []models.Message{
		msg("msg-1", models.RoleUser, "good"),
		msg("msg-2", models.RoleAssistant, "bad"),
		msg("msg-3", models.RoleUser, "also good"),
	}
	err := m.UpdateMessages(ctx, id, msgs)

	var perr *PersistError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, []string{"msg-2"}, perr.FailedMessageIDs)
	require.Equal(t, id, perr.ConversationID)

	sent := store.addedTo(id)
	require.Len(t, sent, 2)
	require.Equal(t, "also good", sent[1].Content)

	// Local state is not rolled back.
	c, _ := m.Conversation(id)
	require.Len(t, c.Messages, 3)
	require.Equal(t, []string{"msg-2"}, m.Pending(id))

	// Once the store recovers, Flush sends what is left.
	store.AddFunc = nil
	require.NoError(t, m.Flush(ctx, id))
	require.Empty(t, m.Pending(id))
	require.Len(t, store.addedTo(id), 3)
}

func TestUpdateMessages_ConcurrentUpdatesNeverDuplicate(t *testing.T) {
	store := newMockStore()
	m := newTestManager(t, store)
	ctx := context.Background()
	require.NoError(t, m.SignIn(ctx))
	id := m.ActiveID()

	msgs := []models.Message{
		msg("msg-1", models.RoleUser, "q"),
		msg("msg-2", models.RoleAssistant, "a"),
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.UpdateMessages(ctx, id, msgs)
		}()
	}
	wg.Wait()

	sent := store.addedTo(id)
	require.Len(t, sent, 2)
	require.Equal(t, "q", sent[0].Content)
	require.Equal(t, "a", sent[1].Content)
}

func TestUpdateMessages_HydratedHistoryIsNotResent(t *testing.T) {
	store := newMockStore()
	store.ListFunc = summaries(2)
	store.GetFunc = func(ctx context.Context, id string) (*backend.ConversationDetail, error) {
		return storedMessages(2), nil
	}
	m := newTestManager(t, store)
	ctx := context.Background()
	require.NoError(t, m.SignIn(ctx))
	m.Select("1")
	m.Wait()

	c, _ := m.Conversation("1")
	next := append(c.Messages, msg("msg-new", models.RoleUser, "follow-up"))
	require.NoError(t, m.UpdateMessages(ctx, "1", next))

	sent := store.addedTo("1")
	require.Len(t, sent, 1)
	require.Equal(t, "follow-up", sent[0].Content)
}

func TestUpdateMessages_Errors(t *testing.T) {
	m := newTestManager(t, newMockStore())
	ctx := context.Background()

	require.ErrorIs(t, m.UpdateMessages(ctx, "missing", nil), ErrUnknownConversation)
	require.ErrorIs(t, m.UpdateMessages(ctx, models.DefaultConversationID, []models.Message{{Role: models.RoleUser}}), ErrMissingMessageID)
}

func TestUpdateMessages_RefusesUnloadedHistory(t *testing.T) {
	store := newMockStore()
	store.ListFunc = summaries(0, 3)
	m := newTestManager(t, store)
	ctx := context.Background()
	require.NoError(t, m.SignIn(ctx))

	err := m.UpdateMessages(ctx, "2", []models.Message{msg("local-1", models.RoleUser, "hi")})
	require.ErrorIs(t, err, ErrNotHydrated)

	c, _ := m.Conversation("2")
	require.Empty(t, c.Messages)
	require.Equal(t, 3, c.MessageCount)
	require.Empty(t, store.addedTo("2"))
}
