package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reservio/reservio/internal/domain/auth"
)

// SetupRoutes sets up the routes for the application
func SetupRoutes(app *fiber.App, deps *App) {
	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	api.Use(auth.Middleware(deps.Auth.KeyStore, deps.Sessions, deps.Config.Auth.Issuer))

	handler := auth.NewHandler(deps.Auth)

	sessions := api.Group("/sessions", auth.RequireAuth())
	sessions.Get("/", handler.ListSessions)
	sessions.Post("/logout", handler.Logout)
	sessions.Post("/logout-all", handler.LogoutAll)
}
