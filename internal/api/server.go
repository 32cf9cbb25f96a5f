package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/yourorg/amity/internal/auth"
	"github.com/yourorg/amity/internal/ws"
)

// NewApp assembles the fiber application: health probe, websocket upgrade
// and the authenticated REST routes.
func NewApp(h *Handler, wsSrv *ws.Server, validator *auth.Validator, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Errorw("unhandled request error", "path", c.Path(), "error", err)
			return fail(c, err)
		},
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsSrv.Handle))

	v1 := app.Group("/api/v1", JWTAuth(validator))

	chats := v1.Group("/chats")
	chats.Post("/", h.CreateChat)
	chats.Get("/", h.ListChats)
	chats.Get("/search", h.SearchChats)
	chats.Post("/hidden", h.RevealHiddenChats)
	chats.Delete("/:chatID", h.DeleteChat)
	chats.Post("/:chatID/hide", h.HideChat)
	chats.Post("/:chatID/messages", h.SendMessage)
	chats.Get("/:chatID/messages", h.GetMessagesByChat)
	chats.Get("/:chatID/messages/search", h.SearchMessagesInChat)
	chats.Patch("/:chatID/messages/:messageID", h.EditMessage)
	chats.Delete("/:chatID/messages/:messageID", h.DeleteMessage)

	messages := v1.Group("/messages")
	messages.Post("/:messageID/read", h.MarkAsRead)
	messages.Post("/:messageID/like", h.LikeMessage)
	messages.Delete("/:messageID/like", h.UnlikeMessage)

	groups := v1.Group("/groups")
	groups.Post("/", h.CreateGroup)
	groups.Get("/", h.ListGroups)
	groups.Get("/search", h.SearchGroups)
	groups.Post("/hidden", h.RevealHiddenGroups)
	groups.Patch("/:groupID", h.EditGroup)
	groups.Delete("/:groupID", h.DeleteGroup)
	groups.Post("/:groupID/hide", h.HideGroup)
	groups.Post("/:groupID/members", h.AddMembers)
	groups.Delete("/:groupID/members", h.RemoveMembers)
	groups.Post("/:groupID/leave", h.LeaveGroup)
	groups.Post("/:groupID/messages", h.SendGroupMessage)
	groups.Get("/:groupID/messages", h.GetGroupMessages)
	groups.Get("/:groupID/messages/search", h.SearchMessagesInGroup)
	groups.Patch("/:groupID/messages/:messageID", h.EditGroupMessage)
	groups.Delete("/:groupID/messages/:messageID", h.DeleteGroupMessage)

	return app
}
