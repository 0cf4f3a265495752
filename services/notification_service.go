package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"incident-report-system/models"
	"incident-report-system/utils"
)

// NotificationService fans domain events out into per-recipient
// notification rows. It never retries failed writes; retries are a
// delivery-layer concern.
type NotificationService struct {
	DB         *gorm.DB
	WebhookURL string // optional urgent-alert webhook
}

func NewNotificationService(db *gorm.DB, webhookURL string) *NotificationService {
	return &NotificationService{DB: db, WebhookURL: webhookURL}
}

func (s *NotificationService) newNotification(recipientID string, typ models.NotificationType, title, message string) models.Notification {
	return models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Priority:    models.PriorityNormal,
		Channels:    models.ChannelInApp,
		ExpiresAt:   time.Now().Add(models.NotificationRetention),
	}
}

// Dispatch persists a single notification record.
func (s *NotificationService) Dispatch(n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = time.Now().Add(models.NotificationRetention)
	}
	return s.DB.Create(n).Error
}

// DispatchBulk writes one record per recipient as a single batch.
func (s *NotificationService) DispatchBulk(ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.NewString()
		}
		if ns[i].ExpiresAt.IsZero() {
			ns[i].ExpiresAt = time.Now().Add(models.NotificationRetention)
		}
	}
	return s.DB.CreateInBatches(ns, 100).Error
}

// NotifySubmitted tells the reporter their report was received.
func (s *NotificationService) NotifySubmitted(report *models.Report) error {
	n := s.newNotification(report.ReporterID, models.NotifSubmitted,
		"Report submitted",
		fmt.Sprintf("Your report %q was received and is pending review.", report.Title))
	n.ReportID = &report.ID
	return s.Dispatch(&n)
}

// NotifyStatusChanged tells the reporter about a lifecycle transition.
func (s *NotificationService) NotifyStatusChanged(report *models.Report, from models.ReportStatus) error {
	n := s.newNotification(report.ReporterID, models.NotifStatusChanged,
		"Report status changed",
		fmt.Sprintf("Your report %q moved from %s to %s.", report.Title, from, report.Status))
	n.ReportID = &report.ID
	return s.Dispatch(&n)
}

// NotifyCommentAdded tells the reporter someone commented.
func (s *NotificationService) NotifyCommentAdded(report *models.Report, commenterID string) error {
	n := s.newNotification(report.ReporterID, models.NotifCommentAdded,
		"New comment",
		fmt.Sprintf("Your report %q received a new comment.", report.Title))
	n.ReportID = &report.ID
	n.UserID = &commenterID
	return s.Dispatch(&n)
}

// NotifyUpvote tells the reporter their report was upvoted.
func (s *NotificationService) NotifyUpvote(report *models.Report, voterID string) error {
	n := s.newNotification(report.ReporterID, models.NotifUpvoteReceived,
		"Report upvoted",
		fmt.Sprintf("Your report %q was upvoted.", report.Title))
	n.ReportID = &report.ID
	n.UserID = &voterID
	return s.Dispatch(&n)
}

// NotifyBadgeEarned tells a user about a newly earned badge.
func (s *NotificationService) NotifyBadgeEarned(userID string, badge *models.Badge) error {
	n := s.newNotification(userID, models.NotifBadgeEarned,
		"Badge earned",
		fmt.Sprintf("You earned the %q badge (+%d points).", badge.Name, badge.Points))
	n.BadgeID = &badge.ID
	return s.Dispatch(&n)
}

// NotifyUrgent fans an urgent alert out to every opted-in reviewer and
// admin as one batch, and best-effort posts the alert webhook. Returns
// the number of recipients recorded.
func (s *NotificationService) NotifyUrgent(report *models.Report) (int, error) {
	var reviewers []models.User
	if err := s.DB.Where("role IN ? AND alert_opt_in = ?",
		[]models.Role{models.RoleReviewer, models.RoleAdmin}, true).
		Find(&reviewers).Error; err != nil {
		return 0, err
	}

	ns := make([]models.Notification, 0, len(reviewers))
	for _, rv := range reviewers {
		n := s.newNotification(rv.ID, models.NotifUrgent,
			"Urgent: critical incident reported",
			fmt.Sprintf("Critical %s report %q needs review.", report.IncidentType, report.Title))
		n.ReportID = &report.ID
		n.Priority = models.PriorityUrgent
		n.Channels = models.ChannelInApp + "," + models.ChannelWebhook
		ns = append(ns, n)
	}
	if err := s.DispatchBulk(ns); err != nil {
		return 0, err
	}

	s.postAlertWebhook(report)
	return len(ns), nil
}

func (s *NotificationService) postAlertWebhook(report *models.Report) {
	if s.WebhookURL == "" {
		return
	}
	payload, _ := json.Marshal(fiber.Map{
		"type":      "urgent_report",
		"report_id": report.ID,
		"title":     report.Title,
		"severity":  report.Severity,
		"longitude": report.Longitude,
		"latitude":  report.Latitude,
	})
	resp, err := utils.HTTPClient.Post(s.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ [NOTIFY] alert webhook failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		log.Printf("⚠️ [NOTIFY] alert webhook returned %d", resp.StatusCode)
	}
}

// DeleteExpired removes records past the retention window.
func (s *NotificationService) DeleteExpired() (int64, error) {
	res := s.DB.Where("expires_at <= ?", time.Now()).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

// --- Fiber handlers ---

// ListForUser returns a user's notification feed, unread first.
func (s *NotificationService) ListForUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	var ns []models.Notification
	if err := s.DB.Where("recipient_id = ? AND expires_at > ?", userID, time.Now()).
		Order("read ASC, created_at DESC").
		Limit(100).
		Find(&ns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(ns)
}

// MarkRead flips the read flag; only the recipient may do so.
func (s *NotificationService) MarkRead(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	notifID := c.Params("notif_id")

	var n models.Notification
	if err := s.DB.Where("id = ?", notifID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if n.RecipientID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not your notification"})
	}
	now := time.Now()
	if err := s.DB.Model(&n).Updates(map[string]interface{}{"read": true, "read_at": &now}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(fiber.Map{"ok": true})
}
