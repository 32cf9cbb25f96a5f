package store

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

func TestCreateChat(t *testing.T) {
	s, _, relay := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")

	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, chat.SenderID)
	assert.Equal(t, bob.ID, chat.ReceiverID)
	assert.True(t, chat.Active)

	events := relay.all()
	require.Len(t, events, 1)
	assert.Equal(t, models.NotifChatCreated, events[0].Type)

	t.Run("duplicate in same order", func(t *testing.T) {
		_, err := s.CreateChat(ctx, alice.ID, bob.ID)
		requireCode(t, err, apperr.CodeAlreadyExists)
	})

	t.Run("duplicate in reverse order", func(t *testing.T) {
		_, err := s.CreateChat(ctx, bob.ID, alice.ID)
		requireCode(t, err, apperr.CodeAlreadyExists)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := s.CreateChat(ctx, alice.ID, "no-such-user")
		requireCode(t, err, apperr.CodeNotFound)
	})
}

func TestSendMessage(t *testing.T) {
	s, up, relay := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := s.SendMessage(ctx, chat.ID, alice.ID, "hello", []media.File{
		{Name: "pic.png", ContentType: "image/png", Data: []byte{1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)
	require.Len(t, msg.Attachments, 1)
	assert.Len(t, up.uploaded, 1)

	var found bool
	for _, ev := range relay.all() {
		if ev.Type == models.NotifNewMessage {
			found = true
			assert.Equal(t, []string{bob.ID}, ev.Recipients)
		}
	}
	assert.True(t, found)

	t.Run("only the initiator may send", func(t *testing.T) {
		_, err := s.SendMessage(ctx, chat.ID, bob.ID, "hi back", nil)
		requireCode(t, err, apperr.CodeUnauthenticated)
	})

	t.Run("unsupported file type rejects before upload", func(t *testing.T) {
		_, err := s.SendMessage(ctx, chat.ID, alice.ID, "doc", []media.File{
			{Name: "x.pdf", ContentType: "application/pdf", Data: []byte{1}},
		})
		requireCode(t, err, apperr.CodeInvalidArgument)
	})

	t.Run("failed upload rolls the message back", func(t *testing.T) {
		up.failFrom = len(up.uploaded) + 1
		_, err := s.SendMessage(ctx, chat.ID, alice.ID, "two files", []media.File{
			{Name: "a.png", ContentType: "image/png", Data: []byte{1}},
			{Name: "b.png", ContentType: "image/png", Data: []byte{1}},
		})
		require.Error(t, err)

		var count int64
		require.NoError(t, s.db.Model(&models.Message{}).
			Where("chat_id = ? AND content = ?", chat.ID, "two files").
			Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestEditMessage(t *testing.T) {
	s, up, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := s.SendMessage(ctx, chat.ID, alice.ID, "original", []media.File{
		{Name: "old.png", ContentType: "image/png", Data: []byte{1}},
	})
	require.NoError(t, err)
	oldAttachment := msg.Attachments[0]

	t.Run("only the sender may edit", func(t *testing.T) {
		_, err := s.EditMessage(ctx, chat.ID, msg.ID, bob.ID, "hacked", nil, nil)
		requireCode(t, err, apperr.CodeUnauthenticated)
	})

	t.Run("missing attachment aborts the whole edit", func(t *testing.T) {
		_, err := s.EditMessage(ctx, chat.ID, msg.ID, alice.ID, "changed",
			[]string{oldAttachment.ID, "no-such-attachment"}, nil)
		requireCode(t, err, apperr.CodeNotFound)

		got, err := activeMessage(s.db, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, "original", got.Content)
		assert.Len(t, got.Attachments, 1)
	})

	t.Run("edit replaces attachments and flags the message", func(t *testing.T) {
		edited, err := s.EditMessage(ctx, chat.ID, msg.ID, alice.ID, "updated",
			[]string{oldAttachment.ID},
			[]media.File{{Name: "new.png", ContentType: "image/png", Data: []byte{1}}})
		require.NoError(t, err)
		assert.Equal(t, "updated", edited.Content)
		assert.True(t, edited.IsEdited)
		require.Len(t, edited.Attachments, 1)
		assert.NotEqual(t, oldAttachment.ID, edited.Attachments[0].ID)
		assert.Contains(t, up.uploaded[len(up.uploaded)-1], "new.png")
	})
}

func TestDeleteMessageSoftDeletes(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := s.SendMessage(ctx, chat.ID, alice.ID, "bye", []media.File{
		{Name: "pic.png", ContentType: "image/png", Data: []byte{1}},
	})
	require.NoError(t, err)

	_, err = s.MarkAsRead(ctx, msg.ID, alice.ID)
	requireCode(t, err, apperr.CodeUnauthenticated)

	err = s.DeleteMessage(ctx, chat.ID, msg.ID, bob.ID)
	requireCode(t, err, apperr.CodeUnauthenticated)

	require.NoError(t, s.DeleteMessage(ctx, chat.ID, msg.ID, alice.ID))

	_, err = activeMessage(s.db, msg.ID)
	requireCode(t, err, apperr.CodeNotFound)

	// rows survive the soft delete
	var raw models.Message
	require.NoError(t, s.db.First(&raw, "id = ?", msg.ID).Error)
	assert.False(t, raw.Active)
}

func TestLikeUnlike(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	msg, err := s.SendMessage(ctx, chat.ID, alice.ID, "like me", nil)
	require.NoError(t, err)

	_, err = s.UnlikeMessage(ctx, bob.ID, msg.ID)
	requireCode(t, err, apperr.CodeNotFound)

	_, err = s.LikeMessage(ctx, bob.ID, msg.ID)
	require.NoError(t, err)

	_, err = s.LikeMessage(ctx, bob.ID, msg.ID)
	requireCode(t, err, apperr.CodeAlreadyExists)

	_, err = s.UnlikeMessage(ctx, bob.ID, msg.ID)
	require.NoError(t, err)

	_, err = s.LikeMessage(ctx, bob.ID, msg.ID)
	require.NoError(t, err)
}

func TestListAndSearchChats(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	carol := seedUser(t, s, "Carol")

	chatWithBob, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.CreateChat(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, chatWithBob.ID, alice.ID, "latest", nil)
	require.NoError(t, err)

	chats, err := s.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	results, err := s.SearchChats(ctx, alice.ID, "bob")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chatWithBob.ID, results[0].ChatID)
	require.NotNil(t, results[0].LastMessage)
	assert.Equal(t, "latest", results[0].LastMessage.Content)

	t.Run("message search is participant only", func(t *testing.T) {
		_, err := s.SearchMessagesInChat(ctx, carol.ID, chatWithBob.ID, "latest")
		requireCode(t, err, apperr.CodePermissionDenied)

		msgs, err := s.SearchMessagesInChat(ctx, bob.ID, chatWithBob.ID, "latest")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
	})
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ñ", 60)
	got := preview("New message", long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "New message: "+strings.Repeat("ñ", 50)+"...", got)

	short := preview("New message", "hola")
	assert.Equal(t, "New message: hola", short)
}
