package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/amity/internal/auth"
)

const localUserID = "userID"

// JWTAuth authenticates every request and stores the caller's id in locals.
func JWTAuth(v *auth.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearer(c.Get("Authorization"))
		if err != nil {
			return fail(c, err)
		}
		userID, err := v.Validate(token)
		if err != nil {
			return fail(c, err)
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
