package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/amity/pkg/apperr"
)

func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyExists:
		return http.StatusConflict
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	msg := apperr.MessageOf(err)
	if code == apperr.CodeUnknown || code == apperr.CodeInternal {
		msg = "internal error"
	}
	return c.Status(statusOf(code)).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": msg},
	})
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"data": data})
}
