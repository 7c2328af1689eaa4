package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backoffice-service/internal/api/http/handlers"
	"github.com/spec-kit/backoffice-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Menu           *handlers.MenuHandler
	Monitor        *handlers.MonitorHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/info", cfg.Auth.GetInfo)
	protected.Get("/routers", cfg.Auth.GetRouters)

	system := app.Group("/system", cfg.AuthMiddleware.Handle)
	system.Get("/menu/tree", auth.RequirePerm("system:menu:list"), cfg.Menu.Tree)
	system.Delete("/menu/:id", auth.RequirePerm("system:menu:remove"), cfg.Menu.Delete)

	monitor := app.Group("/monitor", cfg.AuthMiddleware.Handle)
	monitor.Get("/online", auth.RequirePerm("monitor:online:list"), cfg.Monitor.Online)
	monitor.Delete("/online/:key", auth.RequirePerm("monitor:online:forceLogout"), cfg.Monitor.ForceLogout)
}
