package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yourorg/amity/internal/config"
	"github.com/yourorg/amity/internal/logger"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/internal/store"
	"github.com/yourorg/amity/internal/ws"
)

type fakePublisher struct {
	keys []string
	fail bool
}

func (f *fakePublisher) Publish(_ context.Context, key string, _ any) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.keys = append(f.keys, key)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	return db
}

func TestRelayPersistsPerRecipient(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	relay := New(db, nil, pub, logger.Nop())

	ev := store.Event{
		Type:       models.NotifNewMessage,
		ActorID:    "sender",
		Recipients: []string{"r1", "r2"},
		Message:    "New message: hi",
		EntityID:   "chat-1",
	}
	relay.Publish(context.Background(), ev)

	var rows []models.Notification
	require.NoError(t, db.Order("recipient_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].RecipientID)
	assert.Equal(t, models.NotifNewMessage, rows[0].Type)
	assert.False(t, rows[0].IsRead)

	require.Len(t, pub.keys, 1)
	assert.Equal(t, "chat-1", pub.keys[0])
}

func TestRelaySwallowsBrokerFailure(t *testing.T) {
	db := newTestDB(t)
	relay := New(db, nil, &fakePublisher{fail: true}, logger.Nop())

	// must not panic or surface the failure
	relay.Publish(context.Background(), store.Event{
		Type:       models.NotifMessageLiked,
		Recipients: []string{"r1"},
		EntityID:   "msg-1",
	})

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

type nopConn struct{}

func (nopConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (nopConn) WriteMessage(int, []byte) error    { return nil }
func (nopConn) SetWriteDeadline(time.Time) error  { return nil }
func (nopConn) SetReadLimit(int64)                {}
func (nopConn) Close() error                      { return nil }

func TestRelayPushesLiveNotification(t *testing.T) {
	db := newTestDB(t)
	hub := ws.NewHub(logger.Nop())
	relay := New(db, hub, nil, logger.Nop())

	bob := ws.NewClient(nopConn{}, "bob")
	hub.Register(bob)

	relay.Publish(context.Background(), store.Event{
		Type:       models.NotifChatCreated,
		Recipients: []string{"bob"},
		EntityID:   "chat-9",
	})

	select {
	case raw := <-bob.Send:
		var env ws.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "newNotification", env.Event)
	case <-time.After(time.Second):
		t.Fatal("no live notification delivered")
	}
}

func recvPush(t *testing.T, c *ws.Client) (string, map[string]any) {
	t.Helper()
	select {
	case raw := <-c.Send:
		var env ws.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		var body map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &body))
		return env.Event, body
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return "", nil
	}
}

// Walks a direct conversation end to end: the store commits, the relay fans
// out, and the receiver's live socket sees every step.
func TestSendReceiveEditFlow(t *testing.T) {
	db := newTestDB(t)
	hub := ws.NewHub(logger.Nop())
	pub := &fakePublisher{}
	relay := New(db, hub, pub, logger.Nop())
	st := store.New(db, nil, relay, config.Default(), logger.Nop())
	ctx := context.Background()

	alice := &models.User{ID: uuid.NewString(), Name: "Alice", Lastname: "Tester", Active: true}
	bob := &models.User{ID: uuid.NewString(), Name: "Bob", Lastname: "Tester", Active: true}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	bobSock := ws.NewClient(nopConn{}, bob.ID)
	hub.Register(bobSock)

	chat, err := st.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	event, body := recvPush(t, bobSock)
	assert.Equal(t, "newNotification", event)
	assert.Equal(t, string(models.NotifChatCreated), body["type"])

	msg, err := st.SendMessage(ctx, chat.ID, alice.ID, "hello bob", nil)
	require.NoError(t, err)
	_, body = recvPush(t, bobSock)
	assert.Equal(t, string(models.NotifNewMessage), body["type"])
	assert.Equal(t, "New message: hello bob", body["message"])

	_, err = st.EditMessage(ctx, chat.ID, msg.ID, alice.ID, "hello again", nil, nil)
	require.NoError(t, err)
	_, body = recvPush(t, bobSock)
	assert.Equal(t, string(models.NotifMessageEdited), body["type"])

	msgs, _, err := st.GetMessagesByChat(ctx, chat.ID, bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello again", msgs[0].Content)
	assert.True(t, msgs[0].IsEdited)

	var rows int64
	require.NoError(t, db.Model(&models.Notification{}).Where("recipient_id = ?", bob.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
	assert.Len(t, pub.keys, 3)
}
