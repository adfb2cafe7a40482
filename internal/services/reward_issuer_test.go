package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bistro/internal/models"
	"github.com/example/bistro/internal/testutil"
)

func TestMultiplierResolver(t *testing.T) {
	e := newEngine(t)
	resolver := NewMultiplierResolver(NewGormBoostSource(e.db))
	ctx := context.Background()

	t.Run("no_boosts_is_neutral", func(t *testing.T) {
		user := testutil.CreateUser(t, e.db, 0, 0)
		m, err := resolver.Resolve(ctx, user.ID, fixedNow)
		require.NoError(t, err)
		assert.True(t, m.XP.Equal(NeutralMultipliers().XP))
		assert.True(t, m.Tokens.Equal(NeutralMultipliers().Tokens))
	})

	t.Run("window_evaluated_at_given_instant", func(t *testing.T) {
		user := testutil.CreateUser(t, e.db, 0, 0)
		start := fixedNow.Add(-time.Hour)
		end := fixedNow.Add(time.Hour)
		testutil.CreateBoost(t, e.db, user.ID, models.BoostKindTokens, "2", &start, &end)
		testutil.CreateBoost(t, e.db, user.ID, models.BoostKindXP, "1.5", nil, nil)

		inside, err := resolver.Resolve(ctx, user.ID, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, "1.5", inside.XP.String())
		assert.Equal(t, "2", inside.Tokens.String())

		after, err := resolver.Resolve(ctx, user.ID, end.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "1.5", after.XP.String())
		assert.Equal(t, "1", after.Tokens.String())
	})

	t.Run("missing_user", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, uuid.New(), fixedNow)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestIssueRewardIfDue_DeliveredOrder(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, 10, 5)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "42.90")

	first, err := e.issuer.IssueRewardIfDue(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIssued, first.Outcome)
	assert.Equal(t, Reward{XP: 42, Tokens: 42}, first.Reward)

	second, err := e.issuer.IssueRewardIfDue(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, second.Outcome)
	assert.Equal(t, SkipAlreadyRewarded, second.SkipReason)

	reloaded := reloadUser(t, e.db, user.ID)
	assert.Equal(t, int64(52), reloaded.XP)
	assert.Equal(t, int64(47), reloaded.Tokens)
	assert.True(t, reloadOrder(t, e.db, order.ID).Rewarded)

	var ledger []models.LoyaltyTransaction
	require.NoError(t, e.db.Where("order_id = ?", order.ID).Find(&ledger).Error)
	require.Len(t, ledger, 1)
	assert.Equal(t, models.LoyaltyKindOrderReward, ledger[0].Kind)
	assert.Equal(t, int64(42), ledger[0].XP)
}

func TestIssueRewardIfDue_WithXPBoost(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 0, 0)
	testutil.CreateBoost(t, e.db, user.ID, models.BoostKindXP, "1.5", nil, nil)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "50.00")

	result, err := e.issuer.IssueRewardIfDue(context.Background(), order.ID)

	require.NoError(t, err)
	assert.Equal(t, Reward{XP: 75, Tokens: 50}, result.Reward)
	require.NotNil(t, result.Multipliers)
	assert.Equal(t, "1.5", result.Multipliers.XP.String())

	reloaded := reloadUser(t, e.db, user.ID)
	assert.Equal(t, int64(75), reloaded.XP)
	assert.Equal(t, int64(50), reloaded.Tokens)
}

func TestIssueRewardIfDue_Skips(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, 0, 0)

	tests := []struct {
		name   string
		userID *uuid.UUID
		status OrderStatus
		want   SkipReason
	}{
		{name: "guest_order", userID: nil, status: StatusDelivered, want: SkipGuestOrder},
		{name: "preparing", userID: &user.ID, status: StatusPreparing, want: SkipNotDelivered},
		{name: "cancelled", userID: &user.ID, status: StatusCancelled, want: SkipNotDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := testutil.CreateOrder(t, e.db, tt.userID, tt.status.String(), "30.00")

			result, err := e.issuer.IssueRewardIfDue(ctx, order.ID)

			require.NoError(t, err)
			assert.Equal(t, OutcomeSkipped, result.Outcome)
			assert.Equal(t, tt.want, result.SkipReason)
			assert.False(t, reloadOrder(t, e.db, order.ID).Rewarded)
		})
	}

	reloaded := reloadUser(t, e.db, user.ID)
	assert.Zero(t, reloaded.XP)
	assert.Zero(t, reloaded.Tokens)
}

func TestIssueRewardIfDue_MissingOrder(t *testing.T) {
	e := newEngine(t)

	_, err := e.issuer.IssueRewardIfDue(context.Background(), 4242)

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestIssueRewardIfDue_DeletedUserKeepsOrderEligible(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 0, 0)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "20.00")
	require.NoError(t, e.db.Delete(&models.User{}, "id = ?", user.ID).Error)

	_, err := e.issuer.IssueRewardIfDue(context.Background(), order.ID)

	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.False(t, reloadOrder(t, e.db, order.ID).Rewarded)

	var ledgerRows int64
	require.NoError(t, e.db.Model(&models.LoyaltyTransaction{}).Count(&ledgerRows).Error)
	assert.Zero(t, ledgerRows)
}

func TestIssueRewardIfDue_FailedLedgerWriteRollsBack(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 7, 7)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "60.00")
	require.NoError(t, e.db.Migrator().DropTable(&models.LoyaltyTransaction{}))

	_, err := e.issuer.IssueRewardIfDue(context.Background(), order.ID)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.False(t, reloadOrder(t, e.db, order.ID).Rewarded)
	reloaded := reloadUser(t, e.db, user.ID)
	assert.Equal(t, int64(7), reloaded.XP)
	assert.Equal(t, int64(7), reloaded.Tokens)
}

func TestIssueRewardIfDue_ConcurrentCallsCreditOnce(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 0, 0)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "80.00")

	const callers = 8
	results := make([]IssuanceResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = e.issuer.IssueRewardIfDue(context.Background(), order.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	issued := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i].Issued() {
			issued++
			continue
		}
		assert.Equal(t, SkipAlreadyRewarded, results[i].SkipReason)
	}
	assert.Equal(t, 1, issued)

	reloaded := reloadUser(t, e.db, user.ID)
	assert.Equal(t, int64(80), reloaded.XP)
	assert.Equal(t, int64(80), reloaded.Tokens)
}

func TestIssueRewardIfDue_ZeroTotalStillMarksRewarded(t *testing.T) {
	e := newEngine(t)
	user := testutil.CreateUser(t, e.db, 3, 3)
	order := testutil.CreateOrder(t, e.db, &user.ID, StatusDelivered.String(), "0.40")

	result, err := e.issuer.IssueRewardIfDue(context.Background(), order.ID)

	require.NoError(t, err)
	assert.True(t, result.Issued())
	assert.True(t, result.Reward.IsZero())
	assert.True(t, reloadOrder(t, e.db, order.ID).Rewarded)
	assert.Equal(t, int64(3), reloadUser(t, e.db, user.ID).XP)
}
