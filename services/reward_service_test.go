package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-report-system/models"
)

func createBadge(t *testing.T, svc *RewardService, name string, kind models.CriterionKind, threshold, points int64) *models.Badge {
	t.Helper()
	b := &models.Badge{
		ID:                 uuid.NewString(),
		Name:               name,
		CriterionKind:      kind,
		CriterionThreshold: threshold,
		Points:             points,
		Active:             true,
	}
	require.NoError(t, svc.DB.Create(b).Error)
	return b
}

func TestAwardIncrementsLedger(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	user := createUser(t, svc.DB, models.RoleReporter, false)

	require.NoError(t, svc.Award(svc.DB, user.ID, 20, "report_submitted", nil))
	require.NoError(t, svc.Award(svc.DB, user.ID, 5, "report_validated", nil))

	var got models.User
	require.NoError(t, svc.DB.Where("id = ?", user.ID).First(&got).Error)
	assert.Equal(t, int64(25), got.TotalPoints)

	var txns int64
	require.NoError(t, svc.DB.Model(&models.PointTransaction{}).Where("user_id = ?", user.ID).Count(&txns).Error)
	assert.Equal(t, int64(2), txns)
}

func TestAwardRejectsNegativePoints(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	user := createUser(t, svc.DB, models.RoleReporter, false)

	err := svc.Award(svc.DB, user.ID, -5, "nope", nil)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestAwardUnknownUser(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	assert.ErrorIs(t, svc.Award(svc.DB, uuid.NewString(), 10, "x", nil), ErrNotFound)
}

func TestConcurrentAwardsAllLand(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	user := createUser(t, svc.DB, models.RoleReporter, false)

	const workers = 20
	const perWorker = int64(7)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Award(svc.DB, user.ID, perWorker, "concurrent", nil); err != nil {
				t.Errorf("award failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var got models.User
	require.NoError(t, svc.DB.Where("id = ?", user.ID).First(&got).Error)
	assert.Equal(t, int64(workers)*perWorker, got.TotalPoints)
}

func TestEvaluateThresholdAndOrdering(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	small := createBadge(t, svc, "Starter", models.CriterionReportCount, 1, 10)
	big := createBadge(t, svc, "Veteran", models.CriterionReportCount, 10, 50)
	createBadge(t, svc, "Legend", models.CriterionReportCount, 100, 500)
	inactive := createBadge(t, svc, "Retired", models.CriterionReportCount, 1, 10)
	require.NoError(t, svc.DB.Model(inactive).Update("active", false).Error)
	createBadge(t, svc, "Pointer", models.CriterionPointsTotal, 1, 5) // wrong kind

	// exactly at threshold qualifies, most stringent first
	badges, err := svc.Evaluate(models.CriterionReportCount, 10)
	require.NoError(t, err)
	require.Len(t, badges, 2)
	assert.Equal(t, big.ID, badges[0].ID)
	assert.Equal(t, small.ID, badges[1].ID)

	badges, err = svc.Evaluate(models.CriterionReportCount, 0)
	require.NoError(t, err)
	assert.Empty(t, badges)
}

func TestAwardBadgeIdempotent(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	user := createUser(t, svc.DB, models.RoleReporter, false)
	badge := createBadge(t, svc, "First Report", models.CriterionReportCount, 1, 10)

	earned, err := svc.AwardBadge(user.ID, badge)
	require.NoError(t, err)
	assert.True(t, earned)

	earned, err = svc.AwardBadge(user.ID, badge)
	require.NoError(t, err)
	assert.False(t, earned)

	var held int64
	require.NoError(t, svc.DB.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", user.ID, badge.ID).Count(&held).Error)
	assert.Equal(t, int64(1), held)

	var got models.Badge
	require.NoError(t, svc.DB.Where("id = ?", badge.ID).First(&got).Error)
	assert.Equal(t, int64(1), got.TimesEarned)

	// the badge's point value landed exactly once
	var ledger models.User
	require.NoError(t, svc.DB.Where("id = ?", user.ID).First(&ledger).Error)
	assert.Equal(t, int64(10), ledger.TotalPoints)
}

func TestAwardBadgeSecondUserBumpsCounter(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	badge := createBadge(t, svc, "Shared", models.CriterionReportCount, 1, 0)
	a := createUser(t, svc.DB, models.RoleReporter, false)
	b := createUser(t, svc.DB, models.RoleReporter, false)

	earned, err := svc.AwardBadge(a.ID, badge)
	require.NoError(t, err)
	assert.True(t, earned)
	earned, err = svc.AwardBadge(b.ID, badge)
	require.NoError(t, err)
	assert.True(t, earned)

	var got models.Badge
	require.NoError(t, svc.DB.Where("id = ?", badge.ID).First(&got).Error)
	assert.Equal(t, int64(2), got.TimesEarned)
}

func TestEvaluateAndAwardReturnsOnlyNew(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	user := createUser(t, svc.DB, models.RoleReporter, false)
	createBadge(t, svc, "Bronze", models.CriterionValidationCount, 1, 5)
	silver := createBadge(t, svc, "Silver", models.CriterionValidationCount, 5, 20)

	newly, err := svc.EvaluateAndAward(user.ID, models.CriterionValidationCount, 1)
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, "Bronze", newly[0].Name)

	newly, err = svc.EvaluateAndAward(user.ID, models.CriterionValidationCount, 5)
	require.NoError(t, err)
	require.Len(t, newly, 1)
	assert.Equal(t, silver.ID, newly[0].ID)

	newly, err = svc.EvaluateAndAward(user.ID, models.CriterionValidationCount, 5)
	require.NoError(t, err)
	assert.Empty(t, newly)
}

func TestSeedDefaultBadgesIdempotent(t *testing.T) {
	svc := NewRewardService(setupDB(t))
	require.NoError(t, svc.SeedDefaultBadges())
	require.NoError(t, svc.SeedDefaultBadges())

	var count int64
	require.NoError(t, svc.DB.Model(&models.Badge{}).Count(&count).Error)
	assert.Equal(t, int64(len(models.DefaultBadges)), count)
}
