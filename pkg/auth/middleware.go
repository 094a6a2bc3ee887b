package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-formcoach/pkg/store"
)

// Locals keys set by Middleware. Websocket handlers read them through
// websocket.Conn.Locals.
const (
	LocalsUser  = "auth.user"
	LocalsToken = "auth.token"
)

// Middleware requires a valid token on every request. The token is read
// from the Authorization header ("Bearer <token>" or the bare token) and,
// for websocket upgrades that cannot set headers, from the "token" query
// parameter.
func (s *Service) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFrom(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization token is missing"})
		}

		u, err := s.Authenticate(c.UserContext(), token)
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionRevoked):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrInvalidToken.Error()})
		case errors.Is(err, ErrUserNotFound):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			s.logger.Error("token validation failed", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token validation failed"})
		}

		c.Locals(LocalsUser, u)
		c.Locals(LocalsToken, token)
		return c.Next()
	}
}

// TokenFrom extracts the raw token from a request.
func TokenFrom(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
		return h
	}
	return c.Query("token")
}

// UserFrom returns the user stored by Middleware, or nil.
func UserFrom(c *fiber.Ctx) *store.User {
	u, _ := c.Locals(LocalsUser).(*store.User)
	return u
}

// TokenOf returns the token stored by Middleware.
func TokenOf(c *fiber.Ctx) string {
	t, _ := c.Locals(LocalsToken).(string)
	return t
}
