package models

import "time"

// Role names the coarse permission tier set by the gateway.
type Role string

const (
	RoleReporter Role = "reporter"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

// CanValidate reports whether the role may drive lifecycle transitions.
func (r Role) CanValidate() bool {
	return r == RoleReviewer || r == RoleAdmin
}

// User is the ledger-bearing subset of the platform user. Identity and
// auth live in the external profile service; this row tracks points,
// activity counters and earned badges only.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"index;not null" json:"username"`
	Role     Role   `gorm:"type:varchar(16);not null;default:'reporter';index" json:"role"`

	// TotalPoints only ever increases; concurrent awards are applied as
	// atomic SQL increments, never read-modify-write.
	TotalPoints      int64 `gorm:"default:0" json:"total_points"`
	ReportsSubmitted int64 `gorm:"default:0" json:"reports_submitted"`
	ReportsValidated int64 `gorm:"default:0" json:"reports_validated"`

	// AlertOptIn gates urgent fan-out for reviewer roles
	AlertOptIn bool `gorm:"default:false" json:"alert_opt_in"`

	Badges []UserBadge `gorm:"foreignKey:UserID" json:"badges,omitempty"`

	Timestamps
}

// PointTransaction is the append-only trail behind TotalPoints. The
// denormalized total on User is authoritative for reads; rows here
// exist for audit and the points-total badge criterion.
type PointTransaction struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Points    int64     `gorm:"not null" json:"points"`
	Reason    string    `gorm:"type:varchar(64);not null" json:"reason"`
	ReportID  *string   `gorm:"type:uuid" json:"report_id,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
