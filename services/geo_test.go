package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-report-system/models"
)

func seedReportAt(t *testing.T, svc *GeoService, title string, lon, lat float64) *models.Report {
	t.Helper()
	r := &models.Report{
		ID:           uuid.NewString(),
		Title:        title,
		IncidentType: models.IncidentOther,
		Severity:     models.SeverityLow,
		Priority:     models.PriorityNormal,
		Longitude:    lon,
		Latitude:     lat,
		ReporterID:   uuid.NewString(),
		Status:       models.StatusPending,
	}
	require.NoError(t, svc.DB.Create(r).Error)
	return r
}

func TestHaversineKnownDistance(t *testing.T) {
	// Mumbai → Delhi is roughly 1150 km
	d := Haversine(72.8777, 19.0760, 77.1025, 28.7041)
	assert.InDelta(t, 1150, d, 25)

	// a point is zero distance from itself
	assert.Zero(t, Haversine(88.9, 21.9, 88.9, 21.9))
}

func TestVerifyOnSiteNearMumbai(t *testing.T) {
	svc := NewGeoService(setupDB(t))

	check, err := svc.VerifyOnSite(72.8777, 19.0760)
	require.NoError(t, err)

	assert.True(t, check.IsValid)
	assert.Equal(t, "Sanjay Gandhi National Park", check.NearestName)
	assert.Less(t, check.DistanceKm, 30.0)
}

func TestVerifyOnSiteFarFromEverything(t *testing.T) {
	svc := NewGeoService(setupDB(t))

	// middle of the Atlantic
	check, err := svc.VerifyOnSite(-30.0, 10.0)
	require.NoError(t, err)

	assert.False(t, check.IsValid)
	assert.NotEmpty(t, check.NearestName)
	assert.Greater(t, check.DistanceKm, DefaultOnSiteThresholdKm)
}

func TestVerifyOnSiteRejectsBadCoordinates(t *testing.T) {
	svc := NewGeoService(setupDB(t))

	_, err := svc.VerifyOnSite(200, 19.0)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNearbyOrdersByDistance(t *testing.T) {
	svc := NewGeoService(setupDB(t))

	far := seedReportAt(t, svc, "far", 88.95, 22.40)     // ~50 km north
	near := seedReportAt(t, svc, "near", 88.95, 21.96)   // ~1 km north
	mid := seedReportAt(t, svc, "mid", 88.95, 22.13)     // ~20 km north
	seedReportAt(t, svc, "distant", 77.1025, 28.7041)    // Delhi, excluded

	results, err := svc.Nearby(88.9497, 21.9497, 60)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, near.ID, results[0].ID)
	assert.Equal(t, mid.ID, results[1].ID)
	assert.Equal(t, far.ID, results[2].ID)
	assert.True(t, results[0].DistanceKm <= results[1].DistanceKm)
	assert.True(t, results[1].DistanceKm <= results[2].DistanceKm)
}

func TestNearbyEmptyAndZeroRadius(t *testing.T) {
	svc := NewGeoService(setupDB(t))

	coincident := seedReportAt(t, svc, "exact", 88.9497, 21.9497)
	seedReportAt(t, svc, "close but not exact", 88.9497, 21.9600)

	// no points in range is an empty result, not an error
	results, err := svc.Nearby(0, 0, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	// radius 0 matches only exact-coincident points
	results, err = svc.Nearby(88.9497, 21.9497, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, coincident.ID, results[0].ID)
	assert.Zero(t, results[0].DistanceKm)
}

func TestGeoUpsert(t *testing.T) {
	svc := NewGeoService(setupDB(t))
	r := seedReportAt(t, svc, "movable", 10, 10)

	require.NoError(t, svc.Upsert(svc.DB, r.ID, 20, 30))

	var got models.Report
	require.NoError(t, svc.DB.Where("id = ?", r.ID).First(&got).Error)
	assert.Equal(t, 20.0, got.Longitude)
	assert.Equal(t, 30.0, got.Latitude)

	assert.ErrorIs(t, svc.Upsert(svc.DB, uuid.NewString(), 0, 0), ErrNotFound)
}
