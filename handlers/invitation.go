package handlers

import (
	"hazari-game-system/middleware"
	"hazari-game-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupInvitationRoutes(app *fiber.App, invitationService *services.InvitationService) {
	api := app.Group("/api", middleware.UserContextMiddleware())

	api.Post("/invitations", invitationService.SendInvitation)
	api.Get("/invitations/user/:playerId", invitationService.GetUserInvitations)
	api.Get("/invitations/table/:code", invitationService.GetTableInvitations)
	api.Put("/invitations/:id/accept", invitationService.AcceptInvitation)
	api.Put("/invitations/:id/reject", invitationService.RejectInvitation)
}
