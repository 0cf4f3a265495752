package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"incident-report-system/models"
)

// Point values per lifecycle action.
const (
	PointsSubmitCritical   = 50
	PointsSubmitHigh       = 30
	PointsSubmitDefault    = 20
	PointsValidateVerified = 15
	PointsValidateOther    = 5
	PointsReporterBonus    = 10
	PointsComment          = 2
	PointsUpvote           = 1
)

func pointsForSeverity(sev models.Severity) int64 {
	switch sev {
	case models.SeverityCritical:
		return PointsSubmitCritical
	case models.SeverityHigh:
		return PointsSubmitHigh
	default:
		return PointsSubmitDefault
	}
}

// RateLimiter gates report submission per key. Injected so the core
// stays testable without wall-clock coupling.
type RateLimiter interface {
	Allow(key string) bool
}

// AuditSink is the append-only administrative activity log.
type AuditSink interface {
	Append(actorID, action, targetID, details string) error
}

// DBAuditSink appends audit rows to the service database.
type DBAuditSink struct {
	DB *gorm.DB
}

func (a *DBAuditSink) Append(actorID, action, targetID, details string) error {
	return a.DB.Create(&models.AuditEntry{
		ID:       uuid.NewString(),
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Details:  details,
	}).Error
}

// ReportService drives the report lifecycle: submission, transitions,
// comments, upvotes, and the reward/notification side effects each
// triggers. Side effects run after the primary mutation commits and
// never roll it back; their failures come back as warnings.
type ReportService struct {
	DB       *gorm.DB
	Media    *MediaService
	Geo      *GeoService
	Rewards  *RewardService
	Notifier *NotificationService
	Audit    AuditSink
	Limiter  RateLimiter
}

func NewReportService(db *gorm.DB, media *MediaService, geo *GeoService, rewards *RewardService, notifier *NotificationService, audit AuditSink, limiter RateLimiter) *ReportService {
	return &ReportService{DB: db, Media: media, Geo: geo, Rewards: rewards, Notifier: notifier, Audit: audit, Limiter: limiter}
}

// SubmitFields are the validated scalar inputs of a submission.
type SubmitFields struct {
	Title        string
	IncidentType models.IncidentType
	Description  string
	Severity     models.Severity
	Longitude    float64
	Latitude     float64
}

func (f SubmitFields) validate() error {
	if f.Title == "" {
		return validationf("title is required")
	}
	if !models.ValidIncidentType(f.IncidentType) {
		return validationf("unknown incident type %q", f.IncidentType)
	}
	if !models.ValidSeverity(f.Severity) {
		return validationf("unknown severity %q", f.Severity)
	}
	if err := models.ValidateCoordinates(f.Longitude, f.Latitude); err != nil {
		return validationf("%v", err)
	}
	return nil
}

// SubmitReport runs the full submission pipeline: media ingest, report
// creation with the location indexed, then reward, badge and
// notification side effects. If report creation fails after media
// ingest succeeded, every durable artifact is removed — no partial
// report ever references orphaned media.
func (s *ReportService) SubmitReport(ctx context.Context, reporterID string, fields SubmitFields, files []*multipart.FileHeader) (*models.Report, []string, error) {
	if s.Limiter != nil && !s.Limiter.Allow(reporterID) {
		return nil, nil, ErrRateLimited
	}
	if err := fields.validate(); err != nil {
		return nil, nil, err
	}
	if _, err := s.Rewards.EnsureUser(reporterID); err != nil {
		return nil, nil, err
	}

	photos, err := s.Media.ProcessBatch(ctx, files)
	if err != nil {
		return nil, nil, err
	}

	report := &models.Report{
		ID:           uuid.NewString(),
		Title:        fields.Title,
		IncidentType: fields.IncidentType,
		Description:  fields.Description,
		Severity:     fields.Severity,
		Priority:     models.PriorityForSeverity(fields.Severity),
		Longitude:    fields.Longitude,
		Latitude:     fields.Latitude,
		ReporterID:   reporterID,
		Status:       models.StatusPending,
	}
	for i := range photos {
		photos[i].ReportID = report.ID
	}
	report.Photos = photos

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		return s.Geo.Upsert(tx, report.ID, report.Longitude, report.Latitude)
	})
	if err != nil {
		s.Media.CleanupPhotos(photos)
		return nil, nil, fmt.Errorf("failed to persist report: %w", err)
	}

	warnings := s.submitSideEffects(report)
	return report, warnings, nil
}

// submitSideEffects is best-effort bookkeeping after the report row is
// committed: award → counter → badge evaluation → notifications, in
// that order so badge checks read the freshly updated ledger.
func (s *ReportService) submitSideEffects(report *models.Report) []string {
	var warnings []string
	warn := func(what string, err error) {
		log.Printf("⚠️ [REPORT] %s failed for %s: %v", what, report.ID, err)
		warnings = append(warnings, fmt.Sprintf("%s failed: %v", what, err))
	}

	if err := s.Rewards.Award(s.DB, report.ReporterID, pointsForSeverity(report.Severity), "report_submitted", &report.ID); err != nil {
		warn("submission reward", err)
	}
	if err := s.DB.Model(&models.User{}).Where("id = ?", report.ReporterID).
		UpdateColumn("reports_submitted", gorm.Expr("reports_submitted + 1")).Error; err != nil {
		warn("submission counter", err)
	}

	var reporter models.User
	if err := s.DB.Where("id = ?", report.ReporterID).First(&reporter).Error; err != nil {
		warn("ledger read", err)
	} else {
		s.awardBadges(report.ReporterID, models.CriterionReportCount, reporter.ReportsSubmitted, &warnings)
		s.awardBadges(report.ReporterID, models.CriterionPointsTotal, reporter.TotalPoints, &warnings)
	}

	if err := s.Notifier.NotifySubmitted(report); err != nil {
		warn("submission notification", err)
	}
	if report.Severity == models.SeverityCritical {
		if n, err := s.Notifier.NotifyUrgent(report); err != nil {
			warn("urgent alert", err)
		} else {
			log.Printf("🚨 [REPORT] urgent alert dispatched to %d reviewers for %s", n, report.ID)
		}
	}
	return warnings
}

func (s *ReportService) awardBadges(userID string, kind models.CriterionKind, current int64, warnings *[]string) {
	newly, err := s.Rewards.EvaluateAndAward(userID, kind, current)
	if err != nil {
		log.Printf("⚠️ [REPORT] badge evaluation (%s) failed for %s: %v", kind, userID, err)
		*warnings = append(*warnings, fmt.Sprintf("badge evaluation (%s) failed: %v", kind, err))
		return
	}
	for i := range newly {
		if err := s.Notifier.NotifyBadgeEarned(userID, &newly[i]); err != nil {
			log.Printf("⚠️ [REPORT] badge notification failed for %s: %v", userID, err)
		}
	}
}

// TransitionReport moves a report to a new lifecycle state. Validation
// and authorization happen before any mutation; the reward and
// notification side effects follow the committed status change.
func (s *ReportService) TransitionReport(reportID, actorID string, target models.ReportStatus, notes string) (*models.Report, []string, error) {
	var report models.Report
	if err := s.DB.Preload("Photos").Where("id = ?", reportID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var actor models.User
	if err := s.DB.Where("id = ?", actorID).First(&actor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrForbidden
		}
		return nil, nil, err
	}
	if !actor.Role.CanValidate() {
		return nil, nil, ErrForbidden
	}

	if !models.ValidStatus(target) {
		return nil, nil, validationf("unknown status %q", target)
	}
	if !models.CanTransition(report.Status, target) {
		return nil, nil, &TransitionError{From: report.Status, To: target}
	}

	from := report.Status
	updates := map[string]interface{}{"status": target}
	if target == models.StatusVerified || target == models.StatusFalsePositive {
		now := time.Now()
		updates["validated_by_id"] = actorID
		updates["validated_at"] = &now
		updates["validation_notes"] = notes
	}
	if err := s.DB.Model(&report).Updates(updates).Error; err != nil {
		return nil, nil, err
	}
	report.Status = target

	warnings := s.transitionSideEffects(&report, from, &actor)
	return &report, warnings, nil
}

func (s *ReportService) transitionSideEffects(report *models.Report, from models.ReportStatus, actor *models.User) []string {
	var warnings []string
	warn := func(what string, err error) {
		log.Printf("⚠️ [REPORT] %s failed for %s: %v", what, report.ID, err)
		warnings = append(warnings, fmt.Sprintf("%s failed: %v", what, err))
	}

	validatorPoints := int64(PointsValidateOther)
	if report.Status == models.StatusVerified {
		validatorPoints = PointsValidateVerified
	}
	if err := s.Rewards.Award(s.DB, actor.ID, validatorPoints, "report_validated", &report.ID); err != nil {
		warn("validator reward", err)
	}
	if err := s.DB.Model(&models.User{}).Where("id = ?", actor.ID).
		UpdateColumn("reports_validated", gorm.Expr("reports_validated + 1")).Error; err != nil {
		warn("validation counter", err)
	}

	var validator models.User
	if err := s.DB.Where("id = ?", actor.ID).First(&validator).Error; err != nil {
		warn("validator ledger read", err)
	} else {
		s.awardBadges(actor.ID, models.CriterionValidationCount, validator.ReportsValidated, &warnings)
		s.awardBadges(actor.ID, models.CriterionPointsTotal, validator.TotalPoints, &warnings)
	}

	if report.Status == models.StatusVerified {
		if err := s.Rewards.Award(s.DB, report.ReporterID, PointsReporterBonus, "report_verified_bonus", &report.ID); err != nil {
			warn("reporter bonus", err)
		} else {
			var reporter models.User
			if err := s.DB.Where("id = ?", report.ReporterID).First(&reporter).Error; err == nil {
				s.awardBadges(report.ReporterID, models.CriterionPointsTotal, reporter.TotalPoints, &warnings)
			}
		}
	}

	if err := s.Notifier.NotifyStatusChanged(report, from); err != nil {
		warn("status notification", err)
	}
	return warnings
}

// ApproveReport is the administrative shortcut for target=verified,
// with an audit entry appended on top of the normal side effects.
func (s *ReportService) ApproveReport(reportID, actorID, notes string) (*models.Report, []string, error) {
	report, warnings, err := s.TransitionReport(reportID, actorID, models.StatusVerified, notes)
	if err != nil {
		return nil, warnings, err
	}
	if err := s.Audit.Append(actorID, "report_approved", reportID, notes); err != nil {
		log.Printf("⚠️ [REPORT] audit append failed for %s: %v", reportID, err)
		warnings = append(warnings, fmt.Sprintf("audit entry failed: %v", err))
	}
	return report, warnings, nil
}

// RejectReport is the administrative shortcut for target=false_positive.
func (s *ReportService) RejectReport(reportID, actorID, notes string) (*models.Report, []string, error) {
	report, warnings, err := s.TransitionReport(reportID, actorID, models.StatusFalsePositive, notes)
	if err != nil {
		return nil, warnings, err
	}
	if err := s.Audit.Append(actorID, "report_rejected", reportID, notes); err != nil {
		log.Printf("⚠️ [REPORT] audit append failed for %s: %v", reportID, err)
		warnings = append(warnings, fmt.Sprintf("audit entry failed: %v", err))
	}
	return report, warnings, nil
}

// AddComment appends a comment, credits the commenter, and notifies the
// reporter unless they commented on their own report.
func (s *ReportService) AddComment(reportID, userID, text string) (*models.Comment, error) {
	if text == "" {
		return nil, validationf("comment text is required")
	}
	var report models.Report
	if err := s.DB.Where("id = ?", reportID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.Rewards.EnsureUser(userID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:       uuid.NewString(),
		ReportID: reportID,
		UserID:   userID,
		Text:     text,
	}
	if err := s.DB.Create(&comment).Error; err != nil {
		return nil, err
	}

	if err := s.Rewards.Award(s.DB, userID, PointsComment, "comment_added", &reportID); err != nil {
		log.Printf("⚠️ [REPORT] comment reward failed for %s: %v", userID, err)
	}
	if userID != report.ReporterID {
		if err := s.Notifier.NotifyCommentAdded(&report, userID); err != nil {
			log.Printf("⚠️ [REPORT] comment notification failed for %s: %v", reportID, err)
		}
	}
	return &comment, nil
}

// ToggleUpvote flips a user's vote on a report as one atomic unit.
// A fresh upvote credits the voter and notifies the reporter (skipped
// on self-upvote); removal reverses neither — the ledger stays
// monotonic, points granted on add are not clawed back.
func (s *ReportService) ToggleUpvote(reportID, userID string) (bool, int64, error) {
	var report models.Report
	if err := s.DB.Where("id = ?", reportID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, 0, ErrNotFound
		}
		return false, 0, err
	}
	if _, err := s.Rewards.EnsureUser(userID); err != nil {
		return false, 0, err
	}

	var upvoted bool
	var count int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Upvote
		err := tx.Where("report_id = ? AND user_id = ?", reportID, userID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Report{}).
				Where("id = ? AND upvote_count > 0", reportID).
				UpdateColumn("upvote_count", gorm.Expr("upvote_count - 1")).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Upvote{ID: uuid.NewString(), ReportID: reportID, UserID: userID}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			upvoted = true
			if err := tx.Model(&models.Report{}).Where("id = ?", reportID).
				UpdateColumn("upvote_count", gorm.Expr("upvote_count + 1")).Error; err != nil {
				return err
			}
		default:
			return err
		}
		// count inside the same transaction so the returned pair is
		// consistent with the toggle it reports
		return tx.Model(&models.Upvote{}).Where("report_id = ?", reportID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}

	if upvoted {
		if err := s.Rewards.Award(s.DB, userID, PointsUpvote, "report_upvoted", &reportID); err != nil {
			log.Printf("⚠️ [REPORT] upvote reward failed for %s: %v", userID, err)
		}
		if userID != report.ReporterID {
			if err := s.Notifier.NotifyUpvote(&report, userID); err != nil {
				log.Printf("⚠️ [REPORT] upvote notification failed for %s: %v", reportID, err)
			}
		}
	}
	return upvoted, count, nil
}

// GetReport fetches one report with its photos and comments and bumps
// the view counter.
func (s *ReportService) GetReport(reportID string) (*models.Report, error) {
	var report models.Report
	if err := s.DB.Preload("Photos").Preload("Comments").Where("id = ?", reportID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.DB.Model(&report).UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		log.Printf("⚠️ [REPORT] view counter failed for %s: %v", reportID, err)
	}
	report.ViewCount++
	return &report, nil
}

// ListFilter narrows the report listing.
type ListFilter struct {
	Status       models.ReportStatus
	Severity     models.Severity
	IncidentType models.IncidentType
	Page         int
	Size         int
}

// ListReports returns a filtered, paginated page of reports plus the
// total match count.
func (s *ReportService) ListReports(f ListFilter) ([]models.Report, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 100 {
		f.Size = 20
	}

	q := s.DB.Model(&models.Report{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.IncidentType != "" {
		q = q.Where("incident_type = ?", f.IncidentType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.Report
	err := q.Preload("Photos").
		Order("created_at DESC").
		Limit(f.Size).Offset((f.Page - 1) * f.Size).
		Find(&reports).Error
	return reports, total, err
}

// parseFloatQuery is shared by the geo handlers.
func parseFloatQuery(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s query parameter is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
