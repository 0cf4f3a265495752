package models

import "time"

// CriterionKind selects which ledger figure a badge threshold compares against
type CriterionKind string

const (
	CriterionReportCount     CriterionKind = "report_count"
	CriterionValidationCount CriterionKind = "validation_count"
	CriterionPointsTotal     CriterionKind = "points_total"
	CriterionConsecutiveDays CriterionKind = "consecutive_days"
	CriterionSpecialAction   CriterionKind = "special_action"
)

// Badge is a reward definition, not a per-user instance. Administered
// externally; the reward engine only reads it and bumps TimesEarned.
type Badge struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Category string `gorm:"type:varchar(32)" json:"category"`
	Tier     string `gorm:"type:varchar(16)" json:"tier"`

	CriterionKind      CriterionKind `gorm:"type:varchar(32);not null;index" json:"criterion_kind"`
	CriterionThreshold int64         `gorm:"not null" json:"criterion_threshold"`
	CriterionTimeframe string        `gorm:"type:varchar(32)" json:"criterion_timeframe,omitempty"`

	Points      int64  `gorm:"default:0" json:"points"`
	Rarity      string `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Active      bool   `gorm:"default:true;index" json:"active"`
	TimesEarned int64  `gorm:"default:0" json:"times_earned"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge is one award of a badge to one user. The unique index makes
// double-award a constraint violation rather than a silent duplicate.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// DefaultBadges seeds the catalog on first boot; admins manage the rest.
var DefaultBadges = []Badge{
	{Name: "First Report", Category: "reporting", Tier: "bronze", CriterionKind: CriterionReportCount, CriterionThreshold: 1, Points: 10, Rarity: "common"},
	{Name: "Field Regular", Category: "reporting", Tier: "silver", CriterionKind: CriterionReportCount, CriterionThreshold: 10, Points: 50, Rarity: "rare"},
	{Name: "Forest Sentinel", Category: "reporting", Tier: "gold", CriterionKind: CriterionReportCount, CriterionThreshold: 50, Points: 200, Rarity: "epic"},
	{Name: "First Validation", Category: "validation", Tier: "bronze", CriterionKind: CriterionValidationCount, CriterionThreshold: 1, Points: 10, Rarity: "common"},
	{Name: "Trusted Reviewer", Category: "validation", Tier: "gold", CriterionKind: CriterionValidationCount, CriterionThreshold: 25, Points: 150, Rarity: "epic"},
	{Name: "Centurion", Category: "points", Tier: "silver", CriterionKind: CriterionPointsTotal, CriterionThreshold: 100, Points: 25, Rarity: "rare"},
	{Name: "Guardian", Category: "points", Tier: "gold", CriterionKind: CriterionPointsTotal, CriterionThreshold: 1000, Points: 100, Rarity: "legendary"},
}
