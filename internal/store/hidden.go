package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

// hiddenSet returns the ids of conversations the user has hidden, for
// filtering the visible list queries.
func (s *Store) hiddenSet(db *gorm.DB, userID string, kind models.ConversationKind) (map[string]bool, error) {
	var entries []models.HiddenEntry
	if err := db.Where("user_id = ? AND kind = ?", userID, kind).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.ConversationID] = true
	}
	return set, nil
}

// checkHidePassword verifies the user's hide password, hashing and storing
// it on first use. Later hides and every reveal must present the same
// password.
func checkHidePassword(tx *gorm.DB, user *models.User, password string) error {
	if password == "" {
		return apperr.InvalidArg("password is required")
	}
	if user.HiddenPassword == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		return tx.Model(user).Update("hidden_password", string(hash)).Error
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HiddenPassword), []byte(password)) != nil {
		return apperr.Forbidden("invalid password")
	}
	return nil
}

func createHiddenEntry(tx *gorm.DB, userID, conversationID string, kind models.ConversationKind) error {
	var existing int64
	if err := tx.Model(&models.HiddenEntry{}).
		Where("user_id = ? AND conversation_id = ? AND kind = ?", userID, conversationID, kind).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return apperr.AlreadyExists("conversation is already hidden")
	}
	return tx.Create(&models.HiddenEntry{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: conversationID,
		Kind:           kind,
	}).Error
}

// HideChat hides a direct chat behind the user's hide password and arms its
// expiry timer. Participants only.
func (s *Store) HideChat(ctx context.Context, chatID, userID, password string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := activeUser(tx, userID)
		if err != nil {
			return err
		}
		chat, err := activeChat(tx, chatID)
		if err != nil {
			return err
		}
		if chat.SenderID != userID && chat.ReceiverID != userID {
			return apperr.Forbidden("user is not part of this chat")
		}
		if err := checkHidePassword(tx, user, password); err != nil {
			return err
		}
		if err := createHiddenEntry(tx, userID, chat.ID, models.KindChat); err != nil {
			return err
		}
		expires := time.Now().UTC().Add(s.cfg.HideChatTTL)
		return tx.Model(chat).Update("expires_at", expires).Error
	})
}

// HideGroup hides a group the same way, with the longer group TTL. Members
// only.
func (s *Store) HideGroup(ctx context.Context, groupID, userID, password string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := activeUser(tx, userID)
		if err != nil {
			return err
		}
		group, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if memberOf(group, userID) == nil {
			return apperr.Forbidden("user is not a member of this group")
		}
		if err := checkHidePassword(tx, user, password); err != nil {
			return err
		}
		if err := createHiddenEntry(tx, userID, group.ID, models.KindGroup); err != nil {
			return err
		}
		expires := time.Now().UTC().Add(s.cfg.HideGroupTTL)
		return tx.Model(group).Update("expires_at", expires).Error
	})
}

func (s *Store) verifyHidePassword(db *gorm.DB, userID, password string) error {
	user, err := activeUser(db, userID)
	if err != nil {
		return err
	}
	if user.HiddenPassword == "" {
		return apperr.Forbidden("no hidden conversations password set")
	}
	if password == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.HiddenPassword), []byte(password)) != nil {
		return apperr.Forbidden("invalid password")
	}
	return nil
}

// RevealHiddenChats lists the user's hidden direct chats that have not yet
// expired, after checking the hide password.
func (s *Store) RevealHiddenChats(ctx context.Context, userID, password string) ([]ChatSummary, error) {
	db := s.db.WithContext(ctx)
	if err := s.verifyHidePassword(db, userID, password); err != nil {
		return nil, err
	}

	hidden, err := s.hiddenSet(db, userID, models.KindChat)
	if err != nil {
		return nil, err
	}

	out := []ChatSummary{}
	for chatID := range hidden {
		var chat models.Chat
		err := db.Scopes(models.ActiveOnly).
			Preload("Sender").
			Preload("Receiver").
			First(&chat, "id = ?", chatID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		partner := chat.Receiver
		if chat.ReceiverID == userID {
			partner = chat.Sender
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

// RevealHiddenGroups is the group counterpart of RevealHiddenChats.
func (s *Store) RevealHiddenGroups(ctx context.Context, userID, password string) ([]GroupSummary, error) {
	db := s.db.WithContext(ctx)
	if err := s.verifyHidePassword(db, userID, password); err != nil {
		return nil, err
	}

	hidden, err := s.hiddenSet(db, userID, models.KindGroup)
	if err != nil {
		return nil, err
	}

	out := []GroupSummary{}
	for groupID := range hidden {
		var group models.Group
		err := db.Scopes(models.ActiveOnly).First(&group, "id = ?", groupID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		last, err := s.lastGroupMessage(db, group.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupSummary{
			GroupID:     group.ID,
			Name:        group.Name,
			Description: group.Description,
			LastMessage: last,
		})
	}
	return out, nil
}
