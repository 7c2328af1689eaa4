package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/auth"
	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/menu"
	apperrors "github.com/spec-kit/backoffice-service/pkg/util"
)

// MenuHandler exposes administrative menu endpoints.
type MenuHandler struct {
	menus *menu.Service
}

// NewMenuHandler constructs handler.
func NewMenuHandler(menuService *menu.Service) *MenuHandler {
	return &MenuHandler{menus: menuService}
}

// Tree handles GET /system/menu/tree, returning the nested administration
// forest visible to the caller.
func (h *MenuHandler) Tree(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user := &domain.User{ID: sess.Identity.UserID, Admin: sess.Identity.Admin}
	forest, err := h.menus.TreeForUser(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": forest})
}

// Delete handles DELETE /system/menu/:id. Deleting a record that still has
// children or role assignments is rejected.
func (h *MenuHandler) Delete(c *fiber.Ctx) error {
	menuID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid menu id")
	}
	if err := h.menus.Delete(c.Context(), menuID); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
