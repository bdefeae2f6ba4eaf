package handlers

import (
	"hazari-game-system/middleware"
	"hazari-game-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTableRoutes(app *fiber.App, tableService *services.TableService) {
	api := app.Group("/api", middleware.UserContextMiddleware())

	api.Post("/tables", tableService.CreateTable)
	api.Get("/tables", tableService.GetActiveTables)
	api.Get("/tables/:code", tableService.GetTableDetails)
	api.Post("/tables/:code/join", tableService.JoinTable)
	api.Post("/tables/:code/leave", tableService.LeaveTable)
	api.Post("/tables/:code/reset", tableService.ResetTable)
}
