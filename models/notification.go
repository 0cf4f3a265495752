package models

import "time"

// NotificationType is the closed set of domain events that fan out to users
type NotificationType string

const (
	NotifSubmitted      NotificationType = "submitted"
	NotifValidated      NotificationType = "validated"
	NotifStatusChanged  NotificationType = "status_changed"
	NotifBadgeEarned    NotificationType = "badge_earned"
	NotifPointsAwarded  NotificationType = "points_awarded"
	NotifCommentAdded   NotificationType = "comment_added"
	NotifUpvoteReceived NotificationType = "upvote_received"
	NotifUrgent         NotificationType = "urgent"
	NotifAnnouncement   NotificationType = "announcement"
	NotifAchievement    NotificationType = "achievement"
)

// NotificationRetention is how long records stay eligible for delivery
// before the background sweep removes them.
const NotificationRetention = 30 * 24 * time.Hour

// Channel flags are stored as a comma-joined set; the presentation
// layer decides actual delivery per channel.
const (
	ChannelInApp   = "in_app"
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// Notification is created exclusively by the dispatcher in response to
// domain events and mutated only by read-state updates.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string           `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Type        NotificationType `gorm:"type:varchar(32);not null;index" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Message     string           `gorm:"type:text" json:"message"`

	ReportID *string `gorm:"type:uuid" json:"report_id,omitempty"`
	UserID   *string `gorm:"type:uuid" json:"user_id,omitempty"`
	BadgeID  *string `gorm:"type:uuid" json:"badge_id,omitempty"`

	Priority Priority `gorm:"type:varchar(16);default:'normal'" json:"priority"`
	Channels string   `gorm:"type:varchar(64);default:'in_app'" json:"channels"`

	Read      bool       `gorm:"default:false;index" json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ExpiresAt time.Time  `gorm:"index" json:"expires_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AuditEntry is one row of the append-only administrative activity log.
type AuditEntry struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ActorID   string    `gorm:"type:uuid;not null;index" json:"actor_id"`
	Action    string    `gorm:"type:varchar(64);not null" json:"action"`
	TargetID  string    `gorm:"type:uuid;index" json:"target_id"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
