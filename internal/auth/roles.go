package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/authz"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

// RequireAuthenticated ensures a session was resolved for the request.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequirePerm ensures the session's permission snapshot grants the required
// permission string. The universal wildcard always passes.
func RequirePerm(perm string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !authz.HasPermission(authz.SetOf(sess.Permissions), perm) {
			return apperrors.NewPermissionDenied(perm)
		}
		return c.Next()
	}
}

// RequireRole ensures the session's identity holds the role label.
// Administrator identities hold the "admin" label unconditionally.
func RequireRole(label string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if sess.Identity.Admin && label == authz.AdminRoleLabel {
			return c.Next()
		}
		for _, key := range sess.Identity.RoleKeys {
			if key == label {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}
