// services/report_handlers.go — HTTP surface of the report lifecycle
package services

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"incident-report-system/models"
)

// httpError maps the service error taxonomy onto status codes. Media
// failures confirm to the caller that no partial report was created.
func httpError(c *fiber.Ctx, err error) error {
	var ve *ValidationError
	var te *TransitionError
	var tre *TranscodeError

	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ve.Msg})
	case errors.As(err, &te):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": te.Error()})
	case errors.As(err, &tre):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":                  tre.Error(),
			"failed_file":            tre.Filename,
			"partial_report_created": false,
		})
	case errors.Is(err, ErrUnsupportedMediaType):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": err.Error(), "partial_report_created": false})
	case errors.Is(err, ErrPayloadTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error(), "partial_report_created": false})
	case errors.Is(err, ErrTooManyFiles):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "partial_report_created": false})
	case errors.Is(err, ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "storage unavailable", "partial_report_created": false})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
	case errors.Is(err, ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient role for this action"})
	case errors.Is(err, ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many submissions, slow down"})
	default:
		log.Printf("❌ [REPORT] unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

// HandleSubmit accepts a multipart submission with up to 5 photos.
func (s *ReportService) HandleSubmit(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	lon, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "longitude is required and must be a number"})
	}
	lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "latitude is required and must be a number"})
	}

	fields := SubmitFields{
		Title:        c.FormValue("title"),
		IncidentType: models.IncidentType(c.FormValue("incident_type")),
		Description:  c.FormValue("description"),
		Severity:     models.Severity(c.FormValue("severity")),
		Longitude:    lon,
		Latitude:     lat,
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart form required"})
	}
	files := form.File["photos"]

	report, warnings, err := s.SubmitReport(c.UserContext(), userID, fields, files)
	if err != nil {
		return httpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"report": report, "warnings": warnings})
}

// HandleList returns filtered, paginated reports.
func (s *ReportService) HandleList(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))
	f := ListFilter{
		Status:       models.ReportStatus(c.Query("status")),
		Severity:     models.Severity(c.Query("severity")),
		IncidentType: models.IncidentType(c.Query("type")),
		Page:         page,
		Size:         size,
	}
	reports, total, err := s.ListReports(f)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"page":    f.Page,
		"size":    f.Size,
	})
}

// HandleGet fetches one report and counts the view.
func (s *ReportService) HandleGet(c *fiber.Ctx) error {
	report, err := s.GetReport(c.Params("id"))
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(report)
}

// HandleTransition moves a report to a target status (reviewer/admin).
func (s *ReportService) HandleTransition(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req struct {
		Status models.ReportStatus `json:"status"`
		Notes  string              `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	report, warnings, err := s.TransitionReport(c.Params("id"), userID, req.Status, req.Notes)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"report": report, "warnings": warnings})
}

// HandleApprove is the admin shortcut for verified, with an audit entry.
func (s *ReportService) HandleApprove(c *fiber.Ctx) error {
	return s.handleDecision(c, s.ApproveReport)
}

// HandleReject is the admin shortcut for false_positive.
func (s *ReportService) HandleReject(c *fiber.Ctx) error {
	return s.handleDecision(c, s.RejectReport)
}

func (s *ReportService) handleDecision(c *fiber.Ctx, decide func(reportID, actorID, notes string) (*models.Report, []string, error)) error {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("user_role").(models.Role)
	if role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}
	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&req)

	report, warnings, err := decide(c.Params("id"), userID, req.Notes)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"report": report, "warnings": warnings})
}

// HandleComment appends a comment.
func (s *ReportService) HandleComment(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	comment, err := s.AddComment(c.Params("id"), userID, req.Text)
	if err != nil {
		return httpError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// HandleUpvote toggles the caller's vote.
func (s *ReportService) HandleUpvote(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	upvoted, count, err := s.ToggleUpvote(c.Params("id"), userID)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"upvoted": upvoted, "count": count})
}

// HandleNearby lists reports around a point, closest first.
func (s *ReportService) HandleNearby(c *fiber.Ctx) error {
	lon, err := parseFloatQuery(c, "lon")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	lat, err := parseFloatQuery(c, "lat")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km", "10"), 64)
	if radiusKm < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "radius_km must be non-negative"})
	}
	if err := models.ValidateCoordinates(lon, lat); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	results, err := s.Geo.Nearby(lon, lat, radiusKm)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(fiber.Map{"results": results, "count": len(results)})
}

// HandleVerifyLocation runs the standalone on-site reference check.
func (s *ReportService) HandleVerifyLocation(c *fiber.Ctx) error {
	var req struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	check, err := s.Geo.VerifyOnSite(req.Longitude, req.Latitude)
	if err != nil {
		return httpError(c, err)
	}
	return c.JSON(check)
}

// HandleAuditLog returns recent administrative activity (admin only).
func (s *ReportService) HandleAuditLog(c *fiber.Ctx) error {
	role, _ := c.Locals("user_role").(models.Role)
	if role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}
	var entries []models.AuditEntry
	if err := s.DB.Order("created_at DESC").Limit(200).Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(entries)
}
