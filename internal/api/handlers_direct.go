package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type createChatReq struct {
	ReceiverID string `json:"receiverId"`
}

func (h *Handler) CreateChat(c *fiber.Ctx) error {
	var req createChatReq
	if err := c.BodyParser(&req); err != nil || req.ReceiverID == "" {
		return fail(c, errInvalidBody)
	}
	chat, err := h.store.CreateChat(c.UserContext(), callerID(c), req.ReceiverID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, chat)
}

func (h *Handler) ListChats(c *fiber.Ctx) error {
	chats, err := h.store.ListChats(c.UserContext(), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, chats)
}

func (h *Handler) SearchChats(c *fiber.Ctx) error {
	chats, err := h.store.SearchChats(c.UserContext(), callerID(c), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, chats)
}

func (h *Handler) DeleteChat(c *fiber.Ctx) error {
	if err := h.store.DeleteChat(c.UserContext(), c.Params("chatID"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"deleted": true})
}

// SendMessage accepts multipart form data: a "content" value plus any
// number of "files" parts.
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	files, err := formFiles(c, "files")
	if err != nil {
		return fail(c, err)
	}
	body, err := messagePayload(c)
	if err != nil {
		return fail(c, err)
	}
	msg, err := h.store.SendMessage(c.UserContext(), c.Params("chatID"), callerID(c), body.Content, files)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, msg)
}

func (h *Handler) GetMessagesByChat(c *fiber.Ctx) error {
	page, limit := queryPage(c)
	msgs, meta, err := h.store.GetMessagesByChat(c.UserContext(), c.Params("chatID"), callerID(c), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"messages": msgs, "meta": meta})
}

func (h *Handler) SearchMessagesInChat(c *fiber.Ctx) error {
	msgs, err := h.store.SearchMessagesInChat(c.UserContext(), callerID(c), c.Params("chatID"), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msgs)
}

// EditMessage accepts multipart form data: "content", repeated
// "removeFileIds" values and new "files" parts.
func (h *Handler) EditMessage(c *fiber.Ctx) error {
	files, err := formFiles(c, "files")
	if err != nil {
		return fail(c, err)
	}
	body, err := messagePayload(c)
	if err != nil {
		return fail(c, err)
	}
	msg, err := h.store.EditMessage(
		c.UserContext(),
		c.Params("chatID"),
		c.Params("messageID"),
		callerID(c),
		body.Content,
		body.RemoveFileIDs,
		files,
	)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msg)
}

func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	err := h.store.DeleteMessage(c.UserContext(), c.Params("chatID"), c.Params("messageID"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"deleted": true})
}

func (h *Handler) MarkAsRead(c *fiber.Ctx) error {
	msg, err := h.store.MarkAsRead(c.UserContext(), c.Params("messageID"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msg)
}

func (h *Handler) LikeMessage(c *fiber.Ctx) error {
	msg, err := h.store.LikeMessage(c.UserContext(), callerID(c), c.Params("messageID"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msg)
}

func (h *Handler) UnlikeMessage(c *fiber.Ctx) error {
	msg, err := h.store.UnlikeMessage(c.UserContext(), callerID(c), c.Params("messageID"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msg)
}

type hideReq struct {
	Password string `json:"password"`
}

func (h *Handler) HideChat(c *fiber.Ctx) error {
	var req hideReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	if err := h.store.HideChat(c.UserContext(), c.Params("chatID"), callerID(c), req.Password); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"hidden": true})
}

func (h *Handler) RevealHiddenChats(c *fiber.Ctx) error {
	var req hideReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	chats, err := h.store.RevealHiddenChats(c.UserContext(), callerID(c), req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, chats)
}
