package store

import (
	"context"

	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

// Meta describes one page of a paginated result.
type Meta struct {
	CurrentPage int   `json:"currentPage"`
	LastPage    int   `json:"lastPage"`
	TotalItems  int64 `json:"totalItems"`
}

func pageBounds(page, limit, defaultLimit int) (int, int, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		return 0, 0, apperr.InvalidArg("limit must not exceed 100")
	}
	return page, limit, nil
}

func lastPage(total int64, limit int) int {
	lp := int(total) / limit
	if int(total)%limit != 0 {
		lp++
	}
	return lp
}

// GetMessagesByChat returns one page of a direct chat's history in
// chronological order. Pages count from the newest end: page 1 holds the
// most recent messages. Participants only; hidden chats are unreachable.
func (s *Store) GetMessagesByChat(ctx context.Context, chatID, userID string, page, limit int) ([]models.Message, *Meta, error) {
	db := s.db.WithContext(ctx)
	chat, err := activeChat(db, chatID)
	if err != nil {
		return nil, nil, err
	}
	if chat.SenderID != userID && chat.ReceiverID != userID {
		return nil, nil, apperr.Forbidden("user is not part of this chat")
	}

	hidden, err := s.hiddenSet(db, userID, models.KindChat)
	if err != nil {
		return nil, nil, err
	}
	if hidden[chat.ID] {
		return nil, nil, apperr.NotFound("chat not found")
	}

	page, limit, err = pageBounds(page, limit, s.cfg.Chat.DefaultPageLimit)
	if err != nil {
		return nil, nil, err
	}

	var total int64
	if err := db.Model(&models.Message{}).Scopes(models.ActiveOnly).
		Where("chat_id = ?", chat.ID).
		Count(&total).Error; err != nil {
		return nil, nil, err
	}

	lp := lastPage(total, limit)
	if page > lp {
		return nil, nil, apperr.NotFound("page not found")
	}

	var msgs []models.Message
	if err := db.Scopes(models.ActiveOnly).
		Where("chat_id = ?", chat.ID).
		Preload("Sender").
		Preload("Attachments", models.ActiveOnly).
		Preload("Likes").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, nil, err
	}
	reverseMessages(msgs)

	return msgs, &Meta{CurrentPage: page, LastPage: lp, TotalItems: total}, nil
}

// GetGroupMessages is the group counterpart of GetMessagesByChat. Members
// only; hidden groups are unreachable.
func (s *Store) GetGroupMessages(ctx context.Context, groupID, userID string, page, limit int) ([]models.GroupMessage, *Meta, error) {
	db := s.db.WithContext(ctx)
	group, err := activeGroup(db, groupID)
	if err != nil {
		return nil, nil, err
	}
	if memberOf(group, userID) == nil {
		return nil, nil, apperr.Forbidden("user is not a member of this group")
	}

	hidden, err := s.hiddenSet(db, userID, models.KindGroup)
	if err != nil {
		return nil, nil, err
	}
	if hidden[group.ID] {
		return nil, nil, apperr.NotFound("group not found")
	}

	page, limit, err = pageBounds(page, limit, s.cfg.Chat.DefaultPageLimit)
	if err != nil {
		return nil, nil, err
	}

	var total int64
	if err := db.Model(&models.GroupMessage{}).Scopes(models.ActiveOnly).
		Where("group_id = ?", group.ID).
		Count(&total).Error; err != nil {
		return nil, nil, err
	}

	lp := lastPage(total, limit)
	if page > lp {
		return nil, nil, apperr.NotFound("page not found")
	}

	var msgs []models.GroupMessage
	if err := db.Scopes(models.ActiveOnly).
		Where("group_id = ?", group.ID).
		Preload("Sender").
		Preload("Attachments", models.ActiveOnly).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, nil, err
	}
	reverseGroupMessages(msgs)

	return msgs, &Meta{CurrentPage: page, LastPage: lp, TotalItems: total}, nil
}

func reverseMessages(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

func reverseGroupMessages(msgs []models.GroupMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
