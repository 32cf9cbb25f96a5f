package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

func TestHideChat(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("empty password rejected", func(t *testing.T) {
		err := s.HideChat(ctx, chat.ID, alice.ID, "")
		requireCode(t, err, apperr.CodeInvalidArgument)
	})

	t.Run("non-participant cannot hide", func(t *testing.T) {
		carol := seedUser(t, s, "Carol")
		err := s.HideChat(ctx, chat.ID, carol.ID, "secret")
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	before := time.Now().UTC()
	require.NoError(t, s.HideChat(ctx, chat.ID, alice.ID, "secret"))

	t.Run("first hide stores a hash, not the password", func(t *testing.T) {
		var u models.User
		require.NoError(t, s.db.First(&u, "id = ?", alice.ID).Error)
		require.NotEmpty(t, u.HiddenPassword)
		assert.NotEqual(t, "secret", u.HiddenPassword)
	})

	t.Run("expiry timer is armed", func(t *testing.T) {
		var c models.Chat
		require.NoError(t, s.db.First(&c, "id = ?", chat.ID).Error)
		require.NotNil(t, c.ExpiresAt)
		assert.WithinDuration(t, before.Add(s.cfg.HideChatTTL), *c.ExpiresAt, 5*time.Second)
	})

	t.Run("hidden chat leaves the visible list", func(t *testing.T) {
		chats, err := s.ListChats(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, chats)

		// the other participant still sees it
		chats, err = s.ListChats(ctx, bob.ID)
		require.NoError(t, err)
		assert.Len(t, chats, 1)
	})

	t.Run("second hide must match the password", func(t *testing.T) {
		other, err := s.CreateChat(ctx, alice.ID, seedUser(t, s, "Dave").ID)
		require.NoError(t, err)

		err = s.HideChat(ctx, other.ID, alice.ID, "wrong")
		requireCode(t, err, apperr.CodePermissionDenied)
		require.NoError(t, s.HideChat(ctx, other.ID, alice.ID, "secret"))
	})

	t.Run("hiding twice conflicts", func(t *testing.T) {
		err := s.HideChat(ctx, chat.ID, alice.ID, "secret")
		requireCode(t, err, apperr.CodeAlreadyExists)
	})
}

func TestRevealHiddenChats(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "Alice")
	bob := seedUser(t, s, "Bob")
	chat, err := s.CreateChat(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.SendMessage(ctx, chat.ID, alice.ID, "secret plans", nil)
	require.NoError(t, err)

	t.Run("reveal without a hide password set", func(t *testing.T) {
		_, err := s.RevealHiddenChats(ctx, alice.ID, "anything")
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	require.NoError(t, s.HideChat(ctx, chat.ID, alice.ID, "secret"))

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.RevealHiddenChats(ctx, alice.ID, "nope")
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	revealed, err := s.RevealHiddenChats(ctx, alice.ID, "secret")
	require.NoError(t, err)
	require.Len(t, revealed, 1)
	assert.Equal(t, chat.ID, revealed[0].ChatID)
	require.NotNil(t, revealed[0].LastMessage)
	assert.Equal(t, "secret plans", revealed[0].LastMessage.Content)
}

func TestHideAndRevealGroups(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	admin := seedUser(t, s, "Admin")
	member := seedUser(t, s, "Member")
	g := seedGroup(t, s, admin, member)

	t.Run("outsider cannot hide", func(t *testing.T) {
		outsider := seedUser(t, s, "Outsider")
		err := s.HideGroup(ctx, g.ID, outsider.ID, "pw")
		requireCode(t, err, apperr.CodePermissionDenied)
	})

	require.NoError(t, s.HideGroup(ctx, g.ID, member.ID, "pw"))

	var refreshed models.Group
	require.NoError(t, s.db.First(&refreshed, "id = ?", g.ID).Error)
	require.NotNil(t, refreshed.ExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(s.cfg.HideGroupTTL), *refreshed.ExpiresAt, 5*time.Second)

	groups, err := s.ListGroups(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)

	revealed, err := s.RevealHiddenGroups(ctx, member.ID, "pw")
	require.NoError(t, err)
	require.Len(t, revealed, 1)
	assert.Equal(t, g.ID, revealed[0].GroupID)
}
