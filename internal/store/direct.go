package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

func activeUser(tx *gorm.DB, id string) (*models.User, error) {
	var u models.User
	err := tx.Scopes(models.ActiveOnly).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func activeChat(tx *gorm.DB, id string) (*models.Chat, error) {
	var c models.Chat
	err := tx.Scopes(models.ActiveOnly).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func activeMessage(tx *gorm.DB, id string) (*models.Message, error) {
	var m models.Message
	err := tx.Scopes(models.ActiveOnly).
		Preload("Attachments", models.ActiveOnly).
		First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateChat opens a direct chat between two users. A chat between the same
// pair, in either participant order, must never be duplicated.
func (s *Store) CreateChat(ctx context.Context, userID, receiverID string) (*models.Chat, error) {
	var chat *models.Chat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sender, err := activeUser(tx, userID)
		if err != nil {
			return err
		}
		receiver, err := activeUser(tx, receiverID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Chat{}).Scopes(models.ActiveOnly).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				sender.ID, receiver.ID, receiver.ID, sender.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.AlreadyExists("chat already exists")
		}

		chat = &models.Chat{
			ID:         uuid.NewString(),
			SenderID:   sender.ID,
			ReceiverID: receiver.ID,
			Active:     true,
		}
		return tx.Create(chat).Error
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifChatCreated,
		ActorID:    userID,
		Recipients: []string{receiverID},
		Message:    "You have a new chat",
		EntityID:   chat.ID,
		Payload:    chat,
	})
	return chat, nil
}

// SendMessage persists a message and its attachments atomically. All uploads
// run inside the open transaction; if any fails, no message is created.
func (s *Store) SendMessage(ctx context.Context, chatID, senderID, content string, files []media.File) (*models.Message, error) {
	var msg *models.Message
	var receiverID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chat, err := activeChat(tx, chatID)
		if err != nil {
			return err
		}
		sender, err := activeUser(tx, senderID)
		if err != nil {
			return err
		}
		if chat.SenderID != sender.ID {
			return apperr.Unauthorized("you don't have permission to send a message in this chat")
		}
		receiverID = chat.ReceiverID

		urls, err := s.uploadAll(ctx, files)
		if err != nil {
			return err
		}

		msg = &models.Message{
			ID:         uuid.NewString(),
			ChatID:     chat.ID,
			SenderID:   sender.ID,
			ReceiverID: chat.ReceiverID,
			Content:    content,
			Active:     true,
		}
		for _, url := range urls {
			id := msg.ID
			msg.Attachments = append(msg.Attachments, models.Attachment{
				ID:        uuid.NewString(),
				MessageID: &id,
				URL:       url,
				Active:    true,
			})
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues("chat").Inc()

	s.notify(ctx, Event{
		Type:       models.NotifNewMessage,
		ActorID:    senderID,
		Recipients: []string{receiverID},
		Message:    preview("New message", content),
		EntityID:   chatID,
		Payload:    msg,
	})
	return msg, nil
}

// EditMessage replaces content and the attachment set. Removal and upload
// are all-or-nothing: a missing prior attachment or a failed upload rolls
// the whole edit back.
func (s *Store) EditMessage(ctx context.Context, chatID, messageID, editorID, newContent string, removeAttachmentIDs []string, newFiles []media.File) (*models.Message, error) {
	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeChat(tx, chatID); err != nil {
			return err
		}
		m, err := activeMessage(tx, messageID)
		if err != nil {
			return err
		}
		editor, err := activeUser(tx, editorID)
		if err != nil {
			return err
		}
		if m.SenderID != editor.ID {
			return apperr.Unauthorized("you don't have permission to edit this message")
		}

		if len(removeAttachmentIDs) > 0 {
			var found int64
			if err := tx.Model(&models.Attachment{}).Scopes(models.ActiveOnly).
				Where("id IN ? AND message_id = ?", removeAttachmentIDs, m.ID).
				Count(&found).Error; err != nil {
				return err
			}
			if found != int64(len(removeAttachmentIDs)) {
				return apperr.NotFound("one of the attachments was not found")
			}
			if err := tx.Model(&models.Attachment{}).
				Where("id IN ?", removeAttachmentIDs).
				Update("active", false).Error; err != nil {
				return err
			}
		}

		urls, err := s.uploadAll(ctx, newFiles)
		if err != nil {
			return err
		}
		for _, url := range urls {
			id := m.ID
			if err := tx.Create(&models.Attachment{
				ID:        uuid.NewString(),
				MessageID: &id,
				URL:       url,
				Active:    true,
			}).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(m).Updates(map[string]any{
			"content":   newContent,
			"is_edited": true,
		}).Error; err != nil {
			return err
		}

		msg, err = activeMessage(tx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifMessageEdited,
		ActorID:    editorID,
		Recipients: []string{msg.ReceiverID},
		Message:    "A message has been edited",
		EntityID:   msg.ID,
		Payload:    msg,
	})
	return msg, nil
}

// DeleteMessage soft-deletes a message together with all its attachments.
func (s *Store) DeleteMessage(ctx context.Context, chatID, messageID, actorID string) error {
	var receiverID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeChat(tx, chatID); err != nil {
			return err
		}
		m, err := activeMessage(tx, messageID)
		if err != nil {
			return err
		}
		actor, err := activeUser(tx, actorID)
		if err != nil {
			return err
		}
		if m.SenderID != actor.ID {
			return apperr.Unauthorized("you don't have permission to delete this message")
		}
		receiverID = m.ReceiverID

		if err := tx.Model(&models.Attachment{}).
			Where("message_id = ?", m.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(m).Update("active", false).Error
	})
	if err != nil {
		return err
	}

	s.notify(ctx, Event{
		Type:       models.NotifMessageDeleted,
		ActorID:    actorID,
		Recipients: []string{receiverID},
		Message:    "A message has been deleted",
		EntityID:   messageID,
	})
	return nil
}

// DeleteChat soft-deletes a direct chat. Only the chat's initiator may do it.
func (s *Store) DeleteChat(ctx context.Context, chatID, actorID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := activeUser(tx, actorID)
		if err != nil {
			return err
		}
		chat, err := activeChat(tx, chatID)
		if err != nil {
			return err
		}
		if chat.SenderID != actor.ID {
			return apperr.Unauthorized("you don't have permission to delete this chat")
		}
		return tx.Model(chat).Update("active", false).Error
	})
}

// MarkAsRead flips the read flag; only the message's receiver may do it.
func (s *Store) MarkAsRead(ctx context.Context, messageID, userID string) (*models.Message, error) {
	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reader, err := activeUser(tx, userID)
		if err != nil {
			return err
		}
		m, err := activeMessage(tx, messageID)
		if err != nil {
			return err
		}
		if m.ReceiverID != reader.ID {
			return apperr.Unauthorized("you don't have permission to mark this message as read")
		}
		if err := tx.Model(m).Update("is_read", true).Error; err != nil {
			return err
		}
		m.IsRead = true
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// LikeMessage records a reaction; a user may react to a message at most once.
func (s *Store) LikeMessage(ctx context.Context, userID, messageID string) (*models.Message, error) {
	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := activeUser(tx, userID)
		if err != nil {
			return err
		}
		m, err := activeMessage(tx, messageID)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.MessageLike{}).
			Where("user_id = ? AND message_id = ?", user.ID, m.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.AlreadyExists("you already liked this message")
		}

		if err := tx.Create(&models.MessageLike{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			MessageID: m.ID,
		}).Error; err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifMessageLiked,
		ActorID:    userID,
		Recipients: []string{msg.SenderID},
		Message:    "Someone liked your message",
		EntityID:   msg.ID,
	})
	return msg, nil
}

// UnlikeMessage removes a previously recorded reaction.
func (s *Store) UnlikeMessage(ctx context.Context, userID, messageID string) (*models.Message, error) {
	var msg *models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := activeMessage(tx, messageID)
		if err != nil {
			return err
		}
		var like models.MessageLike
		err = tx.Where("user_id = ? AND message_id = ?", userID, m.ID).First(&like).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("you haven't liked this message yet")
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&like).Error; err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ChatSummary is a row of the chat list: the pair plus a last-message
// preview.
type ChatSummary struct {
	ChatID      string          `json:"chatId"`
	Partner     models.User     `json:"partner"`
	LastMessage *models.Message `json:"lastMessage,omitempty"`
	UpdatedAt   string          `json:"updatedAt"`
}

// ListChats returns the user's visible (non-hidden) active chats, most
// recently updated first.
func (s *Store) ListChats(ctx context.Context, userID string) ([]ChatSummary, error) {
	db := s.db.WithContext(ctx)
	if _, err := activeUser(db, userID); err != nil {
		return nil, err
	}

	hidden, err := s.hiddenSet(db, userID, models.KindChat)
	if err != nil {
		return nil, err
	}

	var chats []models.Chat
	if err := db.Scopes(models.ActiveOnly).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Preload("Sender").Preload("Receiver").
		Order("updated_at DESC").
		Find(&chats).Error; err != nil {
		return nil, err
	}

	out := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		if hidden[chat.ID] {
			continue
		}
		partner := chat.Sender
		if chat.SenderID == userID {
			partner = chat.Receiver
		}
		last, err := s.lastMessage(db, chat.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ChatSummary{
			ChatID:      chat.ID,
			Partner:     partner,
			LastMessage: last,
			UpdatedAt:   chat.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *Store) lastMessage(db *gorm.DB, chatID string) (*models.Message, error) {
	var m models.Message
	err := db.Scopes(models.ActiveOnly).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SearchChats finds the user's chats whose partner name matches the term.
func (s *Store) SearchChats(ctx context.Context, userID, term string) ([]ChatSummary, error) {
	summaries, err := s.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := summaries[:0]
	for _, sum := range summaries {
		if containsFold(sum.Partner.Name, term) || containsFold(sum.Partner.Lastname, term) {
			out = append(out, sum)
		}
	}
	return out, nil
}

// SearchMessagesInChat returns active messages in a chat matching the term.
// The caller must be one of the two participants.
func (s *Store) SearchMessagesInChat(ctx context.Context, userID, chatID, term string) ([]models.Message, error) {
	db := s.db.WithContext(ctx)
	chat, err := activeChat(db, chatID)
	if err != nil {
		return nil, err
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		return nil, apperr.Forbidden("user is not a member of this chat")
	}

	var msgs []models.Message
	if err := db.Scopes(models.ActiveOnly).
		Where("chat_id = ? AND content LIKE ?", chatID, "%"+term+"%").
		Preload("Sender").
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func preview(prefix, content string) string {
	const max = 50
	if r := []rune(content); len(r) > max {
		return prefix + ": " + string(r[:max]) + "..."
	}
	return prefix + ": " + content
}
