// handlers/report_routes.go
package handlers

import (
	"incident-report-system/middleware"
	"incident-report-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReportRoutes(app *fiber.App, reportService *services.ReportService) {
	// 🔓 Public reads — no user context, but still behind Gateway auth
	app.Get("/reports", reportService.HandleList)
	app.Get("/reports/nearby", reportService.HandleNearby)
	app.Get("/reports/:id", reportService.HandleGet)
	app.Post("/locations/verify", reportService.HandleVerifyLocation)

	// 🔐 Secured routes — require user context (userID, role)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/reports", reportService.HandleSubmit)
	secured.Patch("/reports/:id/status", reportService.HandleTransition)
	secured.Post("/reports/:id/approve", reportService.HandleApprove)
	secured.Post("/reports/:id/reject", reportService.HandleReject)
	secured.Post("/reports/:id/comments", reportService.HandleComment)
	secured.Post("/reports/:id/upvote", reportService.HandleUpvote)

	secured.Get("/admin/audit", reportService.HandleAuditLog)
}
