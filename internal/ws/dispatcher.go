package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/yourorg/amity/internal/presence"
	"github.com/yourorg/amity/internal/store"
	"github.com/yourorg/amity/pkg/apperr"
)

// Envelope is the wire frame for every inbound command and outbound event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope wraps data into an outbound frame; marshal failures degrade
// to an empty payload rather than blocking delivery.
func NewEnvelope(name string, data any) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return Envelope{Event: name, Data: raw}
}

// Inbound command names.
const (
	CmdCreateChat        = "createChat"
	CmdSendMessage       = "sendMessage"
	CmdEditMessage       = "editMessage"
	CmdDeleteMessage     = "deleteMessage"
	CmdLikeMessage       = "likeMessage"
	CmdUnlikeMessage     = "unlikeMessage"
	CmdGetMessagesByChat = "getMessagesByChat"
	CmdMarkAsRead        = "markAsRead"
	CmdJoinChat          = "joinChat"

	CmdCreateGroup        = "groupCreateGroup"
	CmdEditGroup          = "groupEditGroup"
	CmdAddMembers         = "groupAddMembers"
	CmdRemoveMembers      = "groupRemoveUserFromGroup"
	CmdLeaveGroup         = "groupLeaveGroup"
	CmdDeleteGroup        = "groupDeleteGroup"
	CmdGetUserGroups      = "groupGetUserGroups"
	CmdSendGroupMessage   = "groupSendMessage"
	CmdEditGroupMessage   = "groupEditMessage"
	CmdDeleteGroupMessage = "groupDeleteMessage"
	CmdGetGroupMessages   = "groupGetGroupMessages"
	CmdJoinGroup          = "joinGroup"

	CmdCheckUserStatus = "checkUserStatus"
)

// Outbound event names.
const (
	EvtChatCreated     = "chatCreated"
	EvtMessageReceived = "messageReceived"
	EvtMessageEdited   = "messageEdited"
	EvtMessageDeleted  = "messageDeleted"
	EvtMessageLiked    = "messageLiked"
	EvtMessageUnliked  = "messageUnliked"
	EvtMessageRead     = "messageRead"
	EvtMessagePage     = "messagesByChat"

	EvtGroupCreated         = "groupCreated"
	EvtGroupEdited          = "groupEdited"
	EvtGroupDeleted         = "groupDeleted"
	EvtUserAddedToGroup     = "userAddedToGroup"
	EvtUserRemovedFromGroup = "userRemovedFromGroup"
	EvtUserLeftGroup        = "userLeftGroup"
	EvtUserGroups           = "userGroups"
	EvtGroupMessageSent     = "groupMessageSent"
	EvtGroupMessageEdited   = "groupMessageEdited"
	EvtGroupMessageDeleted  = "groupMessageDeleted"
	EvtGroupMessagePage     = "groupMessages"

	EvtUserStatus = "userStatus"

	EvtError = "error"
)

type command struct {
	UserID      string   `json:"userId"`
	ChatID      string   `json:"chatId"`
	GroupID     string   `json:"groupId"`
	MessageID   string   `json:"messageId"`
	ReceiverID  string   `json:"receiverId"`
	Content     string   `json:"content"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"membersIds"`
	RemoveFiles []string `json:"removeFileIds"`
	Page        int      `json:"page"`
	Limit       int      `json:"limit"`
}

// PresenceReader answers liveness queries for checkUserStatus.
type PresenceReader interface {
	Get(ctx context.Context, userID string) (presence.Status, error)
}

// Dispatcher routes inbound envelopes to the store and pushes the results
// back out. Attachments travel over the REST surface; socket commands carry
// text only.
type Dispatcher struct {
	store    *store.Store
	hub      *Hub
	presence PresenceReader
	log      *zap.SugaredLogger
}

func NewDispatcher(st *store.Store, hub *Hub, pres PresenceReader, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{store: st, hub: hub, presence: pres, log: log}
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail reports a command failure to the origin socket only; other
// participants never see it.
func (d *Dispatcher) fail(userID string, err error) {
	d.hub.SendToUser(userID, NewEnvelope(EvtError, wsError{
		Code:    string(apperr.CodeOf(err)),
		Message: apperr.MessageOf(err),
	}))
}

// Dispatch handles one inbound envelope from the given user.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, env Envelope) {
	var cmd command
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			d.fail(userID, apperr.InvalidArg("malformed command payload"))
			return
		}
	}

	switch env.Event {
	case CmdJoinChat:
		d.hub.JoinRoom(cmd.ChatID, userID)
	case CmdJoinGroup:
		d.hub.JoinRoom(cmd.GroupID, userID)

	case CmdCreateChat:
		chat, err := d.store.CreateChat(ctx, userID, cmd.ReceiverID)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.SendToUsers([]string{chat.SenderID, chat.ReceiverID}, NewEnvelope(EvtChatCreated, chat))

	case CmdSendMessage:
		msg, err := d.store.SendMessage(ctx, cmd.ChatID, userID, cmd.Content, nil)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.ChatID, NewEnvelope(EvtMessageReceived, msg))

	case CmdEditMessage:
		msg, err := d.store.EditMessage(ctx, cmd.ChatID, cmd.MessageID, userID, cmd.Content, cmd.RemoveFiles, nil)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.ChatID, NewEnvelope(EvtMessageEdited, msg))

	case CmdDeleteMessage:
		if err := d.store.DeleteMessage(ctx, cmd.ChatID, cmd.MessageID, userID); err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.ChatID, NewEnvelope(EvtMessageDeleted, map[string]string{
			"chatId":    cmd.ChatID,
			"messageId": cmd.MessageID,
		}))

	case CmdLikeMessage:
		msg, err := d.store.LikeMessage(ctx, userID, cmd.MessageID)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(msg.ChatID, NewEnvelope(EvtMessageLiked, msg))

	case CmdUnlikeMessage:
		msg, err := d.store.UnlikeMessage(ctx, userID, cmd.MessageID)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(msg.ChatID, NewEnvelope(EvtMessageUnliked, msg))

	case CmdMarkAsRead:
		msg, err := d.store.MarkAsRead(ctx, cmd.MessageID, userID)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(msg.ChatID, NewEnvelope(EvtMessageRead, msg))

	case CmdGetMessagesByChat:
		msgs, meta, err := d.store.GetMessagesByChat(ctx, cmd.ChatID, userID, cmd.Page, cmd.Limit)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.SendToUser(userID, NewEnvelope(EvtMessagePage, map[string]any{
			"messages": msgs,
			"meta":     meta,
		}))

	case CmdCreateGroup:
		g, err := d.store.CreateGroup(ctx, userID, cmd.Name, cmd.Description, cmd.MemberIDs)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.JoinRoom(g.ID, userID)
		d.hub.SendToUser(userID, NewEnvelope(EvtGroupCreated, g))

	case CmdEditGroup:
		g, err := d.store.EditGroup(ctx, cmd.GroupID, userID, cmd.Name, cmd.Description)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtGroupEdited, g))

	case CmdAddMembers:
		members, err := d.store.AddMembers(ctx, cmd.GroupID, userID, cmd.MemberIDs)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtUserAddedToGroup, map[string]any{
			"groupId": cmd.GroupID,
			"members": members,
		}))

	case CmdRemoveMembers:
		if err := d.store.RemoveMembers(ctx, cmd.GroupID, userID, cmd.MemberIDs); err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtUserRemovedFromGroup, map[string]any{
			"groupId":    cmd.GroupID,
			"membersIds": cmd.MemberIDs,
		}))
		for _, id := range cmd.MemberIDs {
			d.hub.LeaveRoom(cmd.GroupID, id)
		}

	case CmdLeaveGroup:
		if err := d.store.LeaveGroup(ctx, cmd.GroupID, userID); err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtUserLeftGroup, map[string]string{
			"groupId": cmd.GroupID,
			"userId":  userID,
		}))
		d.hub.LeaveRoom(cmd.GroupID, userID)

	case CmdDeleteGroup:
		if err := d.store.DeleteGroup(ctx, cmd.GroupID, userID); err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtGroupDeleted, map[string]string{
			"groupId": cmd.GroupID,
		}))

	case CmdGetUserGroups:
		groups, err := d.store.ListGroups(ctx, userID)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.SendToUser(userID, NewEnvelope(EvtUserGroups, groups))

	case CmdSendGroupMessage:
		msg, err := d.store.SendGroupMessage(ctx, cmd.GroupID, userID, cmd.Content, nil)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtGroupMessageSent, msg))

	case CmdEditGroupMessage:
		msg, err := d.store.EditGroupMessage(ctx, cmd.GroupID, cmd.MessageID, userID, cmd.Content, cmd.RemoveFiles, nil)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtGroupMessageEdited, msg))

	case CmdDeleteGroupMessage:
		if err := d.store.DeleteGroupMessage(ctx, cmd.GroupID, cmd.MessageID, userID); err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.Broadcast(cmd.GroupID, NewEnvelope(EvtGroupMessageDeleted, map[string]string{
			"groupId":   cmd.GroupID,
			"messageId": cmd.MessageID,
		}))

	case CmdGetGroupMessages:
		msgs, meta, err := d.store.GetGroupMessages(ctx, cmd.GroupID, userID, cmd.Page, cmd.Limit)
		if err != nil {
			d.fail(userID, err)
			return
		}
		d.hub.SendToUser(userID, NewEnvelope(EvtGroupMessagePage, map[string]any{
			"messages": msgs,
			"meta":     meta,
		}))

	case CmdCheckUserStatus:
		if cmd.UserID == "" {
			d.fail(userID, apperr.InvalidArg("userId is required"))
			return
		}
		out := map[string]any{
			"userId": cmd.UserID,
			"online": d.hub.Online(cmd.UserID),
		}
		if d.presence != nil {
			if st, err := d.presence.Get(ctx, cmd.UserID); err == nil {
				out["online"] = st.Online
				out["lastSeen"] = st.LastSeen
			} else {
				d.log.Warnw("presence lookup failed", "user", cmd.UserID, "error", err)
			}
		}
		d.hub.SendToUser(userID, NewEnvelope(EvtUserStatus, out))

	default:
		d.fail(userID, apperr.InvalidArg("unknown event: "+env.Event))
	}
}
