package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

type createGroupReq struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"memberIds"`
}

func (h *Handler) CreateGroup(c *fiber.Ctx) error {
	var req createGroupReq
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return fail(c, errInvalidBody)
	}
	group, err := h.store.CreateGroup(c.UserContext(), callerID(c), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, group)
}

type editGroupReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) EditGroup(c *fiber.Ctx) error {
	var req editGroupReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	group, err := h.store.EditGroup(c.UserContext(), c.Params("groupID"), callerID(c), req.Name, req.Description)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, group)
}

func (h *Handler) ListGroups(c *fiber.Ctx) error {
	groups, err := h.store.ListGroups(c.UserContext(), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, groups)
}

func (h *Handler) SearchGroups(c *fiber.Ctx) error {
	groups, err := h.store.SearchGroups(c.UserContext(), callerID(c), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, groups)
}

func (h *Handler) DeleteGroup(c *fiber.Ctx) error {
	if err := h.store.DeleteGroup(c.UserContext(), c.Params("groupID"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"deleted": true})
}

type membersReq struct {
	MemberIDs []string `json:"memberIds"`
}

func (h *Handler) AddMembers(c *fiber.Ctx) error {
	var req membersReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	added, err := h.store.AddMembers(c.UserContext(), c.Params("groupID"), callerID(c), req.MemberIDs)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, added)
}

func (h *Handler) RemoveMembers(c *fiber.Ctx) error {
	var req membersReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	if err := h.store.RemoveMembers(c.UserContext(), c.Params("groupID"), callerID(c), req.MemberIDs); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"removed": true})
}

func (h *Handler) LeaveGroup(c *fiber.Ctx) error {
	if err := h.store.LeaveGroup(c.UserContext(), c.Params("groupID"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"left": true})
}

func (h *Handler) SendGroupMessage(c *fiber.Ctx) error {
	files, err := formFiles(c, "files")
	if err != nil {
		return fail(c, err)
	}
	body, err := messagePayload(c)
	if err != nil {
		return fail(c, err)
	}
	msg, err := h.store.SendGroupMessage(c.UserContext(), c.Params("groupID"), callerID(c), body.Content, files)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusCreated, msg)
}

func (h *Handler) GetGroupMessages(c *fiber.Ctx) error {
	page, limit := queryPage(c)
	msgs, meta, err := h.store.GetGroupMessages(c.UserContext(), c.Params("groupID"), callerID(c), page, limit)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"messages": msgs, "meta": meta})
}

func (h *Handler) SearchMessagesInGroup(c *fiber.Ctx) error {
	msgs, err := h.store.SearchMessagesInGroup(c.UserContext(), c.Params("groupID"), callerID(c), c.Query("term"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, msgs)
}

func (h *Handler) EditGroupMessage(c *fiber.Ctx) error {
	files, err := formFiles(c, "files")
	if err != nil {
		return fail(c, err)
	}
	body, err := messagePayload(c)
	if err != nil {
		return fail(c, err)
	}
	msg, err := h.store.EditGroupMessage(
		c.UserContext(),
		c.Params("groupID"),
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

func (h *Handler) DeleteGroupMessage(c *fiber.Ctx) error {
	err := h.store.DeleteGroupMessage(c.UserContext(), c.Params("groupID"), c.Params("messageID"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"deleted": true})
}

func (h *Handler) HideGroup(c *fiber.Ctx) error {
	var req hideReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	if err := h.store.HideGroup(c.UserContext(), c.Params("groupID"), callerID(c), req.Password); err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, fiber.Map{"hidden": true})
}

func (h *Handler) RevealHiddenGroups(c *fiber.Ctx) error {
	var req hideReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	groups, err := h.store.RevealHiddenGroups(c.UserContext(), callerID(c), req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, http.StatusOK, groups)
}
