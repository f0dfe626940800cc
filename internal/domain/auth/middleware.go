package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reservio/reservio/internal/domain/session"
	"github.com/reservio/reservio/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
	// SessionCookie is the cookie carrying the bearer token when no
	// Authorization header is present
	SessionCookie = "reservio_session"
)

// Identity is attached to the request context after a successful validation
type Identity struct {
	UserID    string
	SessionID string
	Session   *session.Session
}

// Middleware extracts the bearer token, validates it against the session
// store, and attaches the identity. Any non-valid outcome lets the
// request proceed unauthenticated; the cookie is cleared when the record
// is gone for good (not found, revoked, or expired).
func Middleware(keyStore *KeyStore, sessions session.Service, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := keyStore.Verify(token)
		if err != nil {
			return c.Next()
		}
		if err := claims.Validate(issuer); err != nil {
			return c.Next()
		}

		sid := claims.GetSid()
		if sid == "" {
			return c.Next()
		}

		result, err := sessions.Validate(c.UserContext(), sid, token)
		if err != nil {
			return utils.ErrorResponse(c, "session_validation_error", fiber.StatusInternalServerError)
		}

		if !result.Valid {
			switch result.Reason {
			case session.ReasonNotFound, session.ReasonRevoked, session.ReasonExpired:
				clearSessionCookie(c)
			}
			return c.Next()
		}

		c.Locals(IdentityKey, &Identity{
			UserID:    result.Session.UserID,
			SessionID: result.Session.ID,
			Session:   result.Session,
		})

		return c.Next()
	}
}

// RequireAuth rejects requests that carry no validated identity
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetIdentity(c) == nil {
			return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

func extractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Cookies(SessionCookie)
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
	})
}
