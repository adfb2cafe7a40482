package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bistro/internal/models"
	"github.com/example/bistro/internal/testutil"
)

func newReconciler(e *engine, bonus SignupBonus) *Reconciler {
	return NewReconciler(e.db, e.issuer, e.notifier, e.alerter, bonus).WithClock(fixedClock)
}

func TestReconciler_ContinuesPastFailures(t *testing.T) {
	e := newEngine(t)
	first := testutil.CreateUser(t, e.db, 10, 10)
	second := testutil.CreateUser(t, e.db, 10, 10)
	gone := testutil.CreateUser(t, e.db, 10, 10)

	a := testutil.CreateOrder(t, e.db, &first.ID, StatusDelivered.String(), "20.00")
	orphan := testutil.CreateOrder(t, e.db, &gone.ID, StatusDelivered.String(), "30.00")
	b := testutil.CreateOrder(t, e.db, &second.ID, StatusDelivered.String(), "40.50")
	require.NoError(t, e.db.Delete(&models.User{}, "id = ?", gone.ID).Error)

	summary, err := newReconciler(e, SignupBonus{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrdersProcessed)
	assert.Equal(t, 1, summary.OrdersFailed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, orphan.ID, summary.Failures[0].OrderID)
	assert.Equal(t, int64(60), summary.XPIssued)
	assert.Equal(t, int64(60), summary.TokensIssued)

	assert.True(t, reloadOrder(t, e.db, a.ID).Rewarded)
	assert.True(t, reloadOrder(t, e.db, b.ID).Rewarded)
	assert.False(t, reloadOrder(t, e.db, orphan.ID).Rewarded)
	assert.Equal(t, int64(30), reloadUser(t, e.db, first.ID).XP)
	assert.Equal(t, int64(50), reloadUser(t, e.db, second.ID).XP)

	require.Len(t, e.alerter.summaries, 1)
	assert.Equal(t, 2, e.alerter.summaries[0].OrdersProcessed)
	assert.Equal(t, []string{models.NotificationKindLoyaltyReward, models.NotificationKindLoyaltyReward}, e.notifier.kinds())
}

func TestReconciler_IgnoresIneligibleOrders(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 5, 5)
	cancelled := testutil.CreateOrder(t, e.db, &user.ID, StatusCancelled.String(), "90.00")
	ready := testutil.CreateOrder(t, e.db, &user.ID, StatusReady.String(), "90.00")
	guest := testutil.CreateOrder(t, e.db, nil, StatusDelivered.String(), "90.00")

	summary, err := newReconciler(e, SignupBonus{}).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, summary.OrdersProcessed)
	assert.Zero(t, summary.OrdersFailed)
	for _, id := range []uint{cancelled.ID, ready.ID, guest.ID} {
		assert.False(t, reloadOrder(t, e.db, id).Rewarded)
	}
	assert.Equal(t, int64(5), reloadUser(t, e.db, user.ID).XP)
}

func TestReconciler_SignupBonusGrantedOnce(t *testing.T) {
	e := newEngine(t)
	fresh := testutil.CreateUser(t, e.db, 0, 0)
	veteran := testutil.CreateUser(t, e.db, 400, 12)
	bonus := SignupBonus{XP: 100, Tokens: 50}

	first, err := newReconciler(e, bonus).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.UsersFixed)

	second, err := newReconciler(e, bonus).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.UsersFixed)

	credited := reloadUser(t, e.db, fresh.ID)
	assert.Equal(t, int64(100), credited.XP)
	assert.Equal(t, int64(50), credited.Tokens)
	assert.Equal(t, int64(400), reloadUser(t, e.db, veteran.ID).XP)

	var ledger []models.LoyaltyTransaction
	require.NoError(t, e.db.Where("kind = ?", models.LoyaltyKindSignupBonus).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, fresh.ID, ledger[0].UserID)
	assert.Nil(t, ledger[0].OrderID)

	assert.Equal(t, []string{models.NotificationKindSignupBonus}, e.notifier.kinds())
}

func TestReconciler_ZeroBonusSkipsSignupPass(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 0, 0)

	summary, err := newReconciler(e, SignupBonus{}).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, summary.UsersFixed)
	assert.Zero(t, reloadUser(t, e.db, user.ID).XP)
}

func TestReconciler_NeverRegressesBalances(t *testing.T) {
	e := newEngine(t)
	users := []models.User{
		testutil.CreateUser(t, e.db, 0, 0),
		testutil.CreateUser(t, e.db, 7, 0),
		testutil.CreateUser(t, e.db, 250, 80),
	}
	for i, u := range users {
		id := u.ID
		testutil.CreateOrder(t, e.db, &id, StatusDelivered.String(), "11.00")
		if i%2 == 0 {
			testutil.CreateOrder(t, e.db, &id, StatusPending.String(), "11.00")
		}
	}

	reconciler := newReconciler(e, SignupBonus{XP: 100, Tokens: 50})
	for run := 0; run < 3; run++ {
		before := make(map[int][2]int64, len(users))
		for i, u := range users {
			r := reloadUser(t, e.db, u.ID)
			before[i] = [2]int64{r.XP, r.Tokens}
		}

		_, err := reconciler.Run(context.Background())
		require.NoError(t, err)

		for i, u := range users {
			r := reloadUser(t, e.db, u.ID)
			assert.GreaterOrEqual(t, r.XP, before[i][0])
			assert.GreaterOrEqual(t, r.Tokens, before[i][1])
		}
	}

	var rewardedNotDelivered int64
	require.NoError(t, e.db.Model(&models.Order{}).
		Where("rewarded = ? AND status <> ?", true, StatusDelivered.String()).
		Count(&rewardedNotDelivered).Error)
	assert.Zero(t, rewardedNotDelivered)
}
