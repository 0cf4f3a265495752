package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ReportStatus is the verification lifecycle state of a report
type ReportStatus string

const (
	StatusPending       ReportStatus = "pending"
	StatusUnderReview   ReportStatus = "under_review"
	StatusVerified      ReportStatus = "verified"
	StatusFalsePositive ReportStatus = "false_positive"
	StatusResolved      ReportStatus = "resolved"
)

// statusRank orders the lifecycle; transitions never decrease rank.
var statusRank = map[ReportStatus]int{
	StatusPending:       0,
	StatusUnderReview:   1,
	StatusVerified:      2,
	StatusFalsePositive: 2,
	StatusResolved:      3,
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s ReportStatus) bool {
	_, ok := statusRank[s]
	return ok
}

// transitions is the full edge set. pending may jump straight to any
// later state (administrative override); resolved is terminal; nothing
// ever moves backward.
var transitions = map[ReportStatus][]ReportStatus{
	StatusPending:       {StatusUnderReview, StatusVerified, StatusFalsePositive, StatusResolved},
	StatusUnderReview:   {StatusVerified, StatusFalsePositive},
	StatusVerified:      {StatusResolved},
	StatusFalsePositive: {StatusResolved},
	StatusResolved:      {},
}

// CanTransition reports whether a report may move from → to.
func CanTransition(from, to ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Severity is the reporter-declared harm level
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Priority is derived from severity, never set by the reporter
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PriorityForSeverity derives the urgency flag used for triage ordering
func PriorityForSeverity(s Severity) Priority {
	switch s {
	case SeverityCritical:
		return PriorityUrgent
	case SeverityHigh:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// IncidentType is a closed enum of report categories
type IncidentType string

const (
	IncidentDeforestation    IncidentType = "deforestation"
	IncidentIllegalDumping   IncidentType = "illegal_dumping"
	IncidentWaterPollution   IncidentType = "water_pollution"
	IncidentAirPollution     IncidentType = "air_pollution"
	IncidentWildlifePoaching IncidentType = "wildlife_poaching"
	IncidentForestFire       IncidentType = "forest_fire"
	IncidentOther            IncidentType = "other"
)

func ValidIncidentType(t IncidentType) bool {
	switch t {
	case IncidentDeforestation, IncidentIllegalDumping, IncidentWaterPollution,
		IncidentAirPollution, IncidentWildlifePoaching, IncidentForestFire, IncidentOther:
		return true
	}
	return false
}

// Report is an incident record
type Report struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	IncidentType IncidentType `gorm:"type:varchar(32);not null;index" json:"incident_type"`
	Description  string       `gorm:"type:text" json:"description"`
	Severity     Severity     `gorm:"type:varchar(16);not null;index" json:"severity"`
	Priority     Priority     `gorm:"type:varchar(16);not null" json:"priority"`

	// Location is a single geographic point, range-validated at creation
	Longitude float64 `gorm:"not null;index:idx_reports_lon" json:"longitude"`
	Latitude  float64 `gorm:"not null;index:idx_reports_lat" json:"latitude"`

	ReporterID string       `gorm:"type:uuid;not null;index" json:"reporter_id"`
	Status     ReportStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	ValidatedByID   *string    `gorm:"type:uuid" json:"validated_by,omitempty"`
	ValidatedAt     *time.Time `json:"validated_at,omitempty"`
	ValidationNotes string     `gorm:"type:text" json:"validation_notes,omitempty"`

	Photos   []Photo   `gorm:"foreignKey:ReportID" json:"photos"`
	Comments []Comment `gorm:"foreignKey:ReportID" json:"comments,omitempty"`
	Upvotes  []Upvote  `gorm:"foreignKey:ReportID" json:"-"`

	ViewCount   int64 `gorm:"default:0" json:"view_count"`
	UpvoteCount int64 `gorm:"default:0" json:"upvote_count"`

	Timestamps
}

// ValidateCoordinates rejects out-of-range points before anything is persisted
func ValidateCoordinates(lon, lat float64) error {
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	return nil
}

// Photo is owned exclusively by one report and immutable after ingest
type Photo struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	ReportID         string `gorm:"type:uuid;not null;index" json:"-"`
	StoredFilename   string `gorm:"not null" json:"stored_filename"`
	OriginalFilename string `gorm:"not null" json:"original_filename"`
	StoragePath      string `gorm:"not null" json:"storage_path"`
	ThumbnailPath    string `gorm:"not null" json:"thumbnail_path"`
	ByteSize         int64  `json:"byte_size"`
	MimeType         string `gorm:"type:varchar(64)" json:"mime_type"`

	// Extracted metadata; all optional, extraction failure is non-fatal
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	GPSLat      *float64   `json:"gps_lat,omitempty"`
	GPSLon      *float64   `json:"gps_lon,omitempty"`
	DeviceMake  string     `json:"device_make,omitempty"`
	DeviceModel string     `json:"device_model,omitempty"`

	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// Comment is an embedded sub-record of a report
type Comment struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReportID  string    `gorm:"type:uuid;not null;index" json:"report_id"`
	UserID    string    `gorm:"type:uuid;not null" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Upvote records one user's vote; the unique index enforces at most one
// row per (report, user) pair even under concurrent toggles.
type Upvote struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReportID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_report_user" json:"report_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_upvote_report_user" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
