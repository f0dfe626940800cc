package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reservio/reservio/internal/domain/session"
	"github.com/reservio/reservio/internal/utils"
)

// SessionResponse is the client-facing view of a session record.
// The token hash never leaves the server.
type SessionResponse struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
	ExpiresAt time.Time        `json:"expires_at"`
	Metadata  session.Metadata `json:"metadata"`
	Current   bool             `json:"current"`
}

// Handler serves the session management endpoints
type Handler struct {
	Auth *Service
}

// NewHandler creates a new auth handler
func NewHandler(svc *Service) *Handler {
	return &Handler{Auth: svc}
}

// ListSessions returns the caller's active sessions, newest first
func (h *Handler) ListSessions(c *fiber.Ctx) error {
	identity := GetIdentity(c)

	sessions, err := h.Auth.Sessions.ListUserSessions(c.UserContext(), identity.UserID)
	if err != nil {
		return utils.ErrorResponse(c, "failed_to_list_sessions", fiber.StatusInternalServerError)
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionResponse{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			LastSeen:  sess.LastSeen,
			ExpiresAt: sess.ExpiresAt,
			Metadata:  sess.Metadata,
			Current:   sess.ID == identity.SessionID,
		})
	}

	return utils.SuccessResponse(c, out, "sessions listed")
}

// Logout revokes the caller's current session and clears the cookie
func (h *Handler) Logout(c *fiber.Ctx) error {
	identity := GetIdentity(c)

	if err := h.Auth.Logout(c.UserContext(), identity.SessionID); err != nil {
		return utils.ErrorResponse(c, "failed_to_logout", fiber.StatusInternalServerError)
	}

	clearSessionCookie(c)
	return utils.SuccessResponse(c, nil, "logged out")
}

// LogoutAll revokes every session of the caller
func (h *Handler) LogoutAll(c *fiber.Ctx) error {
	identity := GetIdentity(c)

	if err := h.Auth.LogoutAll(c.UserContext(), identity.UserID); err != nil {
		return utils.ErrorResponse(c, "failed_to_logout", fiber.StatusInternalServerError)
	}

	clearSessionCookie(c)
	return utils.SuccessResponse(c, nil, "logged out everywhere")
}
