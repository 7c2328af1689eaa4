package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/session"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

const (
	sessionLocal = "auth_session"
	bearerLocal  = "auth_bearer"
)

// Middleware resolves bearer tokens to live sessions.
type Middleware struct {
	sessions *session.Manager
}

// NewMiddleware constructs middleware.
func NewMiddleware(sessions *session.Manager) *Middleware {
	return &Middleware{sessions: sessions}
}

// Handle enforces authentication for protected routes. A malformed token is
// reported distinctly from an expired or missing session; a cache outage
// resolves as expired, never as authenticated.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	sess, err := m.sessions.Resolve(c.Context(), parts[1])
	if err != nil {
		if errors.Is(err, session.ErrInvalid) {
			return apperrors.NewSessionInvalid()
		}
		return apperrors.NewSessionExpired()
	}

	c.Locals(sessionLocal, sess)
	c.Locals(bearerLocal, parts[1])
	return c.Next()
}

// SessionFromContext retrieves the resolved session.
func SessionFromContext(c *fiber.Ctx) (*session.Session, bool) {
	val := c.Locals(sessionLocal)
	if val == nil {
		return nil, false
	}
	sess, ok := val.(*session.Session)
	return sess, ok
}

// BearerFromContext retrieves the raw bearer token for the request.
func BearerFromContext(c *fiber.Ctx) string {
	val := c.Locals(bearerLocal)
	if val == nil {
		return ""
	}
	bearer, _ := val.(string)
	return bearer
}
