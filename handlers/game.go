package handlers

import (
	"hazari-game-system/middleware"
	"hazari-game-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGameRoutes(app *fiber.App, gameService *services.GameService, settlementService *services.SettlementService) {
	api := app.Group("/api", middleware.UserContextMiddleware())

	// Static segments first — "/games/:id" would otherwise swallow these
	api.Get("/games/table/:code/active", gameService.GetActiveGame)
	api.Get("/games/history/:userId", gameService.GetGameHistory)
	api.Get("/games/:id", gameService.GetGameDetails)
	api.Post("/games/:id/rounds", gameService.AddRound)
	api.Put("/games/:id/rounds/:roundNumber", gameService.EditRound)

	// Settlement: idempotent — safe to retry until the prize credit lands
	api.Put("/games/:id/complete", settlementService.CompleteGame)
}
