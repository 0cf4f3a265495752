// handlers/engagement_routes.go
package handlers

import (
	"incident-report-system/middleware"
	"incident-report-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEngagementRoutes(app *fiber.App, rewardService *services.RewardService, notificationService *services.NotificationService) {
	app.Get("/badges", rewardService.ListBadges)
	app.Get("/users/:id/ledger", rewardService.GetLedger)

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/badges", rewardService.CreateBadge)
	secured.Get("/users/:id/notifications", notificationService.ListForUser)
	secured.Patch("/notifications/:notif_id/read", notificationService.MarkRead)
}
