package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/api/dto"
	"github.com/spec-kit/backoffice-service/internal/audit"
	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/session"
)

// MonitorHandler exposes the online-session monitor.
type MonitorHandler struct {
	sessions   *session.Manager
	dispatcher *audit.Dispatcher
}

// NewMonitorHandler constructs handler.
func NewMonitorHandler(sessions *session.Manager, dispatcher *audit.Dispatcher) *MonitorHandler {
	return &MonitorHandler{sessions: sessions, dispatcher: dispatcher}
}

// Online handles GET /monitor/online.
func (h *MonitorHandler) Online(c *fiber.Ctx) error {
	sessions, err := h.sessions.ListOnline(c.Context())
	if err != nil {
		return err
	}

	out := make([]dto.OnlineSession, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, dto.OnlineSession{
			Key:        sess.Key,
			Username:   sess.Identity.Username,
			IPAddress:  sess.IPAddress,
			CreatedAt:  sess.CreatedAt,
			LastAccess: sess.LastAccess,
			ExpiresAt:  sess.ExpiresAt,
		})
	}
	return c.JSON(fiber.Map{"data": out})
}

// ForceLogout handles DELETE /monitor/online/:key, revoking a session by its
// cache key. Revoking a dead session is not an error.
func (h *MonitorHandler) ForceLogout(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return fiber.NewError(http.StatusBadRequest, "session key required")
	}

	username := ""
	if sessions, err := h.sessions.ListOnline(c.Context()); err == nil {
		for _, sess := range sessions {
			if sess.Key == key {
				username = sess.Identity.Username
				break
			}
		}
	}

	if err := h.sessions.RevokeKey(c.Context(), key); err != nil {
		return err
	}
	if username != "" {
		h.dispatcher.Submit(audit.Task{
			Username:  username,
			Event:     domain.AuditEventLogout,
			Outcome:   domain.AuditOutcomeSuccess,
			Message:   "forced logout",
			IPAddress: c.IP(),
		})
	}
	return c.SendStatus(http.StatusNoContent)
}
