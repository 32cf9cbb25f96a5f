package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/models"
	"github.com/yourorg/amity/pkg/apperr"
)

func activeGroup(tx *gorm.DB, id string) (*models.Group, error) {
	var g models.Group
	err := tx.Scopes(models.ActiveOnly).
		Preload("Members").
		First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func activeGroupMessage(tx *gorm.DB, id string) (*models.GroupMessage, error) {
	var m models.GroupMessage
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

func memberOf(g *models.Group, userID string) *models.GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

func memberIDs(g *models.Group, exclude string) []string {
	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.UserID != exclude {
			out = append(out, m.UserID)
		}
	}
	return out
}

func adminCount(g *models.Group) int {
	n := 0
	for _, m := range g.Members {
		if m.Role == models.RoleAdmin {
			n++
		}
	}
	return n
}

// CreateGroup creates the group with the creator as its only admin and every
// listed member in the member role.
func (s *Store) CreateGroup(ctx context.Context, actorID, name, description string, memberUserIDs []string) (*models.Group, error) {
	var group *models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, err := activeUser(tx, actorID)
		if err != nil {
			return err
		}

		var members []models.User
		if len(memberUserIDs) > 0 {
			if err := tx.Scopes(models.ActiveOnly).
				Where("id IN ?", memberUserIDs).
				Find(&members).Error; err != nil {
				return err
			}
			if len(members) == 0 {
				return apperr.NotFound("members not found")
			}
		}

		group = &models.Group{
			ID:          uuid.NewString(),
			Name:        name,
			Description: description,
			Active:      true,
		}
		if err := tx.Create(group).Error; err != nil {
			return err
		}

		roster := []models.GroupMember{{
			ID:      uuid.NewString(),
			GroupID: group.ID,
			UserID:  creator.ID,
			Role:    models.RoleAdmin,
		}}
		for _, member := range members {
			if member.ID == creator.ID {
				continue
			}
			roster = append(roster, models.GroupMember{
				ID:      uuid.NewString(),
				GroupID: group.ID,
				UserID:  member.ID,
				Role:    models.RoleMember,
			})
		}
		if err := tx.Create(&roster).Error; err != nil {
			return err
		}
		group.Members = roster
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifGroupCreated,
		ActorID:    actorID,
		Recipients: memberIDs(group, actorID),
		Message:    "You have been added to the new group \"" + group.Name + "\"",
		EntityID:   group.ID,
		Payload:    group,
	})
	return group, nil
}

// EditGroup updates name/description. Admins and helpers only.
func (s *Store) EditGroup(ctx context.Context, groupID, actorID, name, description string) (*models.Group, error) {
	var group *models.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		member := memberOf(g, actorID)
		if member == nil || !member.Role.HasAnyRole(models.RoleAdmin, models.RoleHelper) {
			return apperr.Forbidden("user is not authorized to edit group")
		}

		updates := map[string]any{}
		if name != "" {
			updates["name"] = name
		}
		if description != "" {
			updates["description"] = description
		}
		if len(updates) > 0 {
			if err := tx.Model(g).Updates(updates).Error; err != nil {
				return err
			}
		}
		group = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifGroupEdited,
		ActorID:    actorID,
		Recipients: memberIDs(group, actorID),
		Message:    "The group \"" + group.Name + "\" has been updated",
		EntityID:   group.ID,
	})
	return group, nil
}

// AddMembers adds users to the roster in the member role; users already on
// the roster are skipped. Admins and helpers only.
func (s *Store) AddMembers(ctx context.Context, groupID, actorID string, memberUserIDs []string) ([]models.GroupMember, error) {
	if len(memberUserIDs) == 0 {
		return nil, apperr.InvalidArg("no member ids provided")
	}

	var added []models.GroupMember
	var groupName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		actor := memberOf(g, actorID)
		if actor == nil || !actor.Role.HasAnyRole(models.RoleAdmin, models.RoleHelper) {
			return apperr.Forbidden("user is not an admin or helper")
		}
		groupName = g.Name

		var users []models.User
		if err := tx.Scopes(models.ActiveOnly).
			Where("id IN ?", memberUserIDs).
			Find(&users).Error; err != nil {
			return err
		}
		if len(users) == 0 {
			return apperr.NotFound("members not found")
		}

		for _, u := range users {
			if memberOf(g, u.ID) != nil {
				continue
			}
			gm := models.GroupMember{
				ID:      uuid.NewString(),
				GroupID: g.ID,
				UserID:  u.ID,
				Role:    models.RoleMember,
			}
			if err := tx.Create(&gm).Error; err != nil {
				return err
			}
			added = append(added, gm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, gm := range added {
		s.notify(ctx, Event{
			Type:       models.NotifMemberAdded,
			ActorID:    actorID,
			Recipients: []string{gm.UserID},
			Message:    "You have been added to the group \"" + groupName + "\"",
			EntityID:   groupID,
		})
	}
	return added, nil
}

// RemoveMembers removes users from the roster. Admins and helpers only; an
// admin can only be removed by another admin, and the roster must always
// retain at least one admin.
func (s *Store) RemoveMembers(ctx context.Context, groupID, actorID string, memberUserIDs []string) error {
	var removed []string
	var groupName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		actor := memberOf(g, actorID)
		if actor == nil || !actor.Role.HasAnyRole(models.RoleAdmin, models.RoleHelper) {
			return apperr.Forbidden("user is not authorized to remove members")
		}
		groupName = g.Name

		admins := adminCount(g)
		var targets []*models.GroupMember
		for _, id := range memberUserIDs {
			target := memberOf(g, id)
			if target == nil {
				continue
			}
			if target.Role == models.RoleAdmin {
				if actor.Role != models.RoleAdmin {
					return apperr.Forbidden("only an admin can remove an admin")
				}
				if admins <= 1 {
					return apperr.Forbidden("cannot remove the group's only admin")
				}
				admins--
			}
			targets = append(targets, target)
		}
		if len(targets) == 0 {
			return apperr.NotFound("members to remove not found")
		}

		for _, target := range targets {
			if err := tx.Delete(&models.GroupMember{}, "id = ?", target.ID).Error; err != nil {
				return err
			}
			removed = append(removed, target.UserID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, userID := range removed {
		s.notify(ctx, Event{
			Type:       models.NotifMemberRemoved,
			ActorID:    actorID,
			Recipients: []string{userID},
			Message:    "You have been removed from the group \"" + groupName + "\"",
			EntityID:   groupID,
		})
	}
	return nil
}

// LeaveGroup removes the actor from the roster; blocked when the actor is
// the group's only admin.
func (s *Store) LeaveGroup(ctx context.Context, groupID, actorID string) error {
	var groupName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		member := memberOf(g, actorID)
		if member == nil {
			return apperr.Forbidden("you are not a member of this group")
		}
		if member.Role == models.RoleAdmin && adminCount(g) == 1 {
			return apperr.Forbidden("cannot leave the group as you are the only admin")
		}
		groupName = g.Name
		return tx.Delete(&models.GroupMember{}, "id = ?", member.ID).Error
	})
	if err != nil {
		return err
	}

	s.notify(ctx, Event{
		Type:       models.NotifMemberLeft,
		ActorID:    actorID,
		Recipients: []string{actorID},
		Message:    "You have left the group \"" + groupName + "\"",
		EntityID:   groupID,
	})
	return nil
}

// DeleteGroup soft-deletes the group, its messages and their attachments.
// Admin only.
func (s *Store) DeleteGroup(ctx context.Context, groupID, actorID string) error {
	var recipients []string
	var groupName string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		member := memberOf(g, actorID)
		if member == nil || member.Role != models.RoleAdmin {
			return apperr.Forbidden("user is not authorized to delete this group")
		}
		recipients = memberIDs(g, actorID)
		groupName = g.Name

		if err := tx.Model(&models.Attachment{}).
			Where("group_message_id IN (?)",
				tx.Model(&models.GroupMessage{}).Select("id").Where("group_id = ?", g.ID)).
			Update("active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.GroupMessage{}).
			Where("group_id = ?", g.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(g).Update("active", false).Error
	})
	if err != nil {
		return err
	}

	s.notify(ctx, Event{
		Type:       models.NotifGroupDeleted,
		ActorID:    actorID,
		Recipients: recipients,
		Message:    "The group \"" + groupName + "\" has been deleted",
		EntityID:   groupID,
	})
	return nil
}

// SendGroupMessage persists a group message and its attachments atomically.
// Any active roster member may send.
func (s *Store) SendGroupMessage(ctx context.Context, groupID, senderID, content string, files []media.File) (*models.GroupMessage, error) {
	var msg *models.GroupMessage
	var recipients []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, senderID); err != nil {
			return err
		}
		if memberOf(g, senderID) == nil {
			return apperr.Forbidden("you are not a member of this group")
		}
		recipients = memberIDs(g, senderID)

		urls, err := s.uploadAll(ctx, files)
		if err != nil {
			return err
		}

		msg = &models.GroupMessage{
			ID:       uuid.NewString(),
			GroupID:  g.ID,
			SenderID: senderID,
			Content:  content,
			Active:   true,
		}
		for _, url := range urls {
			id := msg.ID
			msg.Attachments = append(msg.Attachments, models.Attachment{
				ID:             uuid.NewString(),
				GroupMessageID: &id,
				URL:            url,
				Active:         true,
			})
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.WithLabelValues("group").Inc()

	s.notify(ctx, Event{
		Type:       models.NotifGroupMessage,
		ActorID:    senderID,
		Recipients: recipients,
		Message:    preview("New group message", content),
		EntityID:   groupID,
		Payload:    msg,
	})
	return msg, nil
}

// EditGroupMessage mirrors the direct-chat edit contract: sender only,
// attachment replacement all-or-nothing, IsEdited set.
func (s *Store) EditGroupMessage(ctx context.Context, groupID, messageID, editorID, newContent string, removeAttachmentIDs []string, newFiles []media.File) (*models.GroupMessage, error) {
	var msg *models.GroupMessage
	var recipients []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, editorID); err != nil {
			return err
		}
		m, err := activeGroupMessage(tx, messageID)
		if err != nil {
			return err
		}
		if m.SenderID != editorID {
			return apperr.Forbidden("you can only edit your own messages")
		}
		recipients = memberIDs(g, editorID)

		if len(removeAttachmentIDs) > 0 {
			var found int64
			if err := tx.Model(&models.Attachment{}).Scopes(models.ActiveOnly).
				Where("id IN ? AND group_message_id = ?", removeAttachmentIDs, m.ID).
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
				ID:             uuid.NewString(),
				GroupMessageID: &id,
				URL:            url,
				Active:         true,
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

		msg, err = activeGroupMessage(tx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:       models.NotifGroupMessageEdited,
		ActorID:    editorID,
		Recipients: recipients,
		Message:    "A message has been edited in the group",
		EntityID:   msg.ID,
		Payload:    msg,
	})
	return msg, nil
}

// DeleteGroupMessage soft-deletes a group message with its attachments.
// Sender only.
func (s *Store) DeleteGroupMessage(ctx context.Context, groupID, messageID, actorID string) error {
	var recipients []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID)
		if err != nil {
			return err
		}
		if _, err := activeUser(tx, actorID); err != nil {
			return err
		}
		m, err := activeGroupMessage(tx, messageID)
		if err != nil {
			return err
		}
		if m.SenderID != actorID {
			return apperr.Forbidden("you can only delete your own messages")
		}
		recipients = memberIDs(g, actorID)

		if err := tx.Model(&models.Attachment{}).
			Where("group_message_id = ?", m.ID).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(m).Update("active", false).Error
	})
	if err != nil {
		return err
	}

	s.notify(ctx, Event{
		Type:       models.NotifGroupMessageDeleted,
		ActorID:    actorID,
		Recipients: recipients,
		Message:    "A message has been deleted in the group",
		EntityID:   messageID,
	})
	return nil
}

// GroupSummary is a row of the user's group list.
type GroupSummary struct {
	GroupID     string               `json:"groupId"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	LastMessage *models.GroupMessage `json:"lastMessage,omitempty"`
}

// ListGroups returns the user's visible (non-hidden) active groups.
func (s *Store) ListGroups(ctx context.Context, userID string) ([]GroupSummary, error) {
	db := s.db.WithContext(ctx)
	if _, err := activeUser(db, userID); err != nil {
		return nil, err
	}

	hidden, err := s.hiddenSet(db, userID, models.KindGroup)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := db.Scopes(models.ActiveOnly).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error; err != nil {
		return nil, err
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		if hidden[g.ID] {
			continue
		}
		last, err := s.lastGroupMessage(db, g.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupSummary{
			GroupID:     g.ID,
			Name:        g.Name,
			Description: g.Description,
			LastMessage: last,
		})
	}
	return out, nil
}

func (s *Store) lastGroupMessage(db *gorm.DB, groupID string) (*models.GroupMessage, error) {
	var m models.GroupMessage
	err := db.Scopes(models.ActiveOnly).
		Where("group_id = ?", groupID).
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

// SearchGroups finds the user's groups matching the term in name or
// description.
func (s *Store) SearchGroups(ctx context.Context, userID, term string) ([]GroupSummary, error) {
	groups, err := s.ListGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := groups[:0]
	for _, g := range groups {
		if containsFold(g.Name, term) || containsFold(g.Description, term) {
			out = append(out, g)
		}
	}
	return out, nil
}

// SearchMessagesInGroup returns active group messages matching the term.
// Members only.
func (s *Store) SearchMessagesInGroup(ctx context.Context, groupID, userID, term string) ([]models.GroupMessage, error) {
	db := s.db.WithContext(ctx)
	g, err := activeGroup(db, groupID)
	if err != nil {
		return nil, err
	}
	if memberOf(g, userID) == nil {
		return nil, apperr.Forbidden("user is not a member of this group")
	}

	var msgs []models.GroupMessage
	if err := db.Scopes(models.ActiveOnly).
		Where("group_id = ? AND content LIKE ?", groupID, "%"+term+"%").
		Preload("Sender").
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
