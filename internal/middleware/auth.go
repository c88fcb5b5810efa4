package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/leadgen-dashboard/backend/internal/auth"
	"github.com/leadgen-dashboard/backend/internal/config"
	"go.uber.org/zap"
)

const (
	CtxUserID       = "user_id"
	CtxSessionToken = "session_token"
)

// AuthMiddleware accepts a session bearer token in the Authorization header, or in
// the token query parameter for websocket upgrades.
func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				return unauthorized(c, "invalid authorization format")
			}
		}
		if tokenStr == "" {
			return unauthorized(c, "No active session. Please log in.")
		}

		claims, err := auth.ParseJWT(cfg.SessionJWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxUserID, userID)
		c.Locals(CtxSessionToken, tokenStr)

		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": msg})
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxUserID).(uuid.UUID)
	return id
}

// GetSession rebuilds the caller's session from the request locals.
func GetSession(c *fiber.Ctx) auth.Session {
	token, _ := c.Locals(CtxSessionToken).(string)
	return auth.Session{UserID: GetUserID(c), AccessToken: token}
}
