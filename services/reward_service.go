// services/reward_service.go
package services

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"incident-report-system/models"
)

// RewardService maintains the per-user point ledger and evaluates badge
// eligibility. Points only ever go up; concurrent awards land as atomic
// SQL increments so simultaneous calls never race-overwrite.
type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// EnsureUser creates the ledger row for a gateway-authenticated user on
// first contact (idempotent).
func (s *RewardService) EnsureUser(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{ID: userID, Username: userID, Role: models.RoleReporter}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Award credits points to a user's ledger. The increment is applied in
// SQL so two concurrent awards both land. Points must be non-negative;
// the ledger never decreases.
func (s *RewardService) Award(db *gorm.DB, userID string, points int64, reason string, reportID *string) error {
	if points < 0 {
		return validationf("points must be non-negative, got %d", points)
	}
	res := db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	txn := models.PointTransaction{
		ID:       uuid.NewString(),
		UserID:   userID,
		Points:   points,
		Reason:   reason,
		ReportID: reportID,
	}
	if err := db.Create(&txn).Error; err != nil {
		return err
	}
	log.Printf("🏅 [REWARD] +%d points → %s (%s)", points, userID, reason)
	return nil
}

// Evaluate returns every active badge of the given criterion kind whose
// threshold the current value meets or exceeds, most stringent first.
// It does not diff against the user's existing badge set; that is the
// caller's job (or AwardBadge's, which is idempotent).
func (s *RewardService) Evaluate(kind models.CriterionKind, current int64) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.Where("active = ? AND criterion_kind = ? AND criterion_threshold <= ?", true, kind, current).
		Order("criterion_threshold DESC").
		Find(&badges).Error
	return badges, err
}

// AwardBadge grants a badge to a user. Awarding one the user already
// holds is a no-op; the badge's global earned counter and its point
// value apply only on first award to that user.
func (s *RewardService) AwardBadge(userID string, badge *models.Badge) (bool, error) {
	newlyEarned := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.UserBadge{}).
			Where("user_id = ? AND badge_id = ?", userID, badge.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		ub := models.UserBadge{ID: uuid.NewString(), UserID: userID, BadgeID: badge.ID}
		if err := tx.Create(&ub).Error; err != nil {
			// Lost a race with a concurrent award of the same badge.
			if strings.Contains(strings.ToLower(err.Error()), "unique") ||
				strings.Contains(strings.ToLower(err.Error()), "duplicate") {
				return nil
			}
			return err
		}
		if err := tx.Model(&models.Badge{}).Where("id = ?", badge.ID).
			UpdateColumn("times_earned", gorm.Expr("times_earned + 1")).Error; err != nil {
			return err
		}
		if badge.Points > 0 {
			if err := s.Award(tx, userID, badge.Points, "badge_"+badge.Name, nil); err != nil {
				return err
			}
		}
		newlyEarned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if newlyEarned {
		log.Printf("🎖️ [REWARD] badge awarded: %s → %s", badge.Name, userID)
	}
	return newlyEarned, nil
}

// EvaluateAndAward runs Evaluate and grants everything qualifying the
// user doesn't yet hold, returning only the newly earned badges.
func (s *RewardService) EvaluateAndAward(userID string, kind models.CriterionKind, current int64) ([]models.Badge, error) {
	qualifying, err := s.Evaluate(kind, current)
	if err != nil {
		return nil, err
	}
	var newly []models.Badge
	for i := range qualifying {
		earned, err := s.AwardBadge(userID, &qualifying[i])
		if err != nil {
			return newly, err
		}
		if earned {
			newly = append(newly, qualifying[i])
		}
	}
	return newly, nil
}

// --- Fiber handlers ---

// GetLedger returns a user's points, counters and earned badges.
func (s *RewardService) GetLedger(c *fiber.Ctx) error {
	id := c.Params("id")
	var user models.User
	if err := s.DB.Preload("Badges.Badge").Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(user)
}

// ListBadges returns the active badge catalog.
func (s *RewardService) ListBadges(c *fiber.Ctx) error {
	var badges []models.Badge
	if err := s.DB.Where("active = ?", true).Order("criterion_kind, criterion_threshold").Find(&badges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(badges)
}

// CreateBadge registers a new badge definition (admin only).
func (s *RewardService) CreateBadge(c *fiber.Ctx) error {
	role, _ := c.Locals("user_role").(models.Role)
	if role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	var req struct {
		Name      string               `json:"name"`
		Category  string               `json:"category"`
		Tier      string               `json:"tier"`
		Kind      models.CriterionKind `json:"criterion_kind"`
		Threshold int64                `json:"criterion_threshold"`
		Timeframe string               `json:"criterion_timeframe"`
		Points    int64                `json:"points"`
		Rarity    string               `json:"rarity"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.Kind == "" || req.Threshold < 0 || req.Points < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, criterion_kind and non-negative threshold/points are required"})
	}

	badge := models.Badge{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Category:           req.Category,
		Tier:               req.Tier,
		CriterionKind:      req.Kind,
		CriterionThreshold: req.Threshold,
		CriterionTimeframe: req.Timeframe,
		Points:             req.Points,
		Rarity:             req.Rarity,
		Active:             true,
	}
	if err := s.DB.Create(&badge).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") ||
			strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "badge name already exists"})
		}
		log.Printf("DB Error creating badge: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create badge"})
	}
	return c.Status(fiber.StatusCreated).JSON(badge)
}

// SeedDefaultBadges inserts the default catalog if it is missing.
func (s *RewardService) SeedDefaultBadges() error {
	for _, b := range models.DefaultBadges {
		var count int64
		if err := s.DB.Model(&models.Badge{}).Where("name = ?", b.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		b.ID = uuid.NewString()
		b.Active = true
		if err := s.DB.Create(&b).Error; err != nil {
			return err
		}
	}
	return nil
}
