package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/api/dto"
	"github.com/spec-kit/backoffice-service/internal/auth"
	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/menu"
	"github.com/spec-kit/backoffice-service/internal/service"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

// AuthHandler exposes login, logout, registration, and account info
// endpoints.
type AuthHandler struct {
	auth  *service.AuthService
	menus *menu.Service
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, menuService *menu.Service) *AuthHandler {
	return &AuthHandler{auth: authService, menus: menuService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	token, err := h.auth.Login(c.Context(), req.Username, req.Password, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{Token: token}})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.Context(), auth.BearerFromContext(c), c.IP()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.auth.Register(c.Context(), req.Username, req.Password, c.IP())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
			},
		},
	})
}

// GetInfo handles GET /auth/info. Roles and permissions are recomputed from
// the authoritative store; a stale session snapshot is refreshed as a side
// effect.
func (h *AuthHandler) GetInfo(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, roles, perms, err := h.auth.AccountInfo(c.Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": fiber.Map{
				"id":       user.ID,
				"username": user.Username,
				"nickname": user.Nickname,
				"admin":    user.Admin,
			},
			"roles":       roles,
			"permissions": perms,
		},
	})
}

// GetRouters handles GET /auth/routers, returning the navigation tree for
// the session's identity.
func (h *AuthHandler) GetRouters(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user := &domain.User{ID: sess.Identity.UserID, Admin: sess.Identity.Admin}
	routes, err := h.menus.RoutesForUser(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routes})
}
