package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-report-system/models"
)

func TestDispatchFillsDefaults(t *testing.T) {
	db := setupDB(t)
	svc := NewNotificationService(db, "")
	user := createUser(t, db, models.RoleReporter, false)

	n := models.Notification{
		RecipientID: user.ID,
		Type:        models.NotifAnnouncement,
		Title:       "Maintenance window",
		Message:     "Uploads paused for 10 minutes tonight.",
	}
	require.NoError(t, svc.Dispatch(&n))

	assert.NotEmpty(t, n.ID)
	assert.WithinDuration(t, time.Now().Add(models.NotificationRetention), n.ExpiresAt, time.Minute)
}

func TestNotifyUrgentRecipientCount(t *testing.T) {
	db := setupDB(t)
	svc := NewNotificationService(db, "")
	createUser(t, db, models.RoleReviewer, true)
	createUser(t, db, models.RoleAdmin, true)
	createUser(t, db, models.RoleReviewer, false)
	createUser(t, db, models.RoleReporter, true) // opted in but not review staff

	report := &models.Report{
		ID:           "r-1",
		Title:        "Chemical runoff into creek",
		IncidentType: models.IncidentWaterPollution,
		Severity:     models.SeverityCritical,
	}
	sent, err := svc.NotifyUrgent(report)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	var total int64
	require.NoError(t, db.Model(&models.Notification{}).Where("type = ?", models.NotifUrgent).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestDeleteExpiredKeepsLiveRows(t *testing.T) {
	db := setupDB(t)
	svc := NewNotificationService(db, "")
	user := createUser(t, db, models.RoleReporter, false)

	live := models.Notification{RecipientID: user.ID, Type: models.NotifAnnouncement, Title: "live"}
	require.NoError(t, svc.Dispatch(&live))

	expired := models.Notification{
		ID:          uuid.NewString(),
		RecipientID: user.ID,
		Type:        models.NotifAnnouncement,
		Title:       "stale",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)

	// Dispatch would have refreshed ExpiresAt, so the stale row went in raw
	deleted, err := svc.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, live.ID, remaining[0].ID)
}
