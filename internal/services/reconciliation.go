package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/models"
)

// AdminAlerter delivers operator-facing alerts.
type AdminAlerter interface {
	AlertRewardFailure(orderID uint, orderNumber string, cause error) error
	NotifyReconciliation(summary ReconciliationSummary) error
}

// SignupBonus is the one-time credit granted to new accounts.
type SignupBonus struct {
	XP     int64
	Tokens int64
}

// ReconciliationFailure records one order the run could not reward.
type ReconciliationFailure struct {
	OrderID uint   `json:"order_id"`
	Error   string `json:"error"`
}

// ReconciliationSummary aggregates one reconciliation run.
type ReconciliationSummary struct {
	UsersFixed      int                     `json:"users_fixed"`
	OrdersProcessed int                     `json:"orders_processed"`
	OrdersSkipped   int                     `json:"orders_skipped"`
	OrdersFailed    int                     `json:"orders_failed"`
	XPIssued        int64                   `json:"xp_issued"`
	TokensIssued    int64                   `json:"tokens_issued"`
	Failures        []ReconciliationFailure `json:"failures,omitempty"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
}

// Reconciler repairs loyalty drift: missed signup bonuses and delivered
// orders whose reward was never issued.
type Reconciler struct {
	db       *gorm.DB
	issuer   *RewardIssuer
	notifier Notifier
	alerter  AdminAlerter
	bonus    SignupBonus
	now      func() time.Time
}

func NewReconciler(db *gorm.DB, issuer *RewardIssuer, notifier Notifier, alerter AdminAlerter, bonus SignupBonus) *Reconciler {
	return &Reconciler{
		db:       db,
		issuer:   issuer,
		notifier: notifier,
		alerter:  alerter,
		bonus:    bonus,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for ledger timestamps.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run executes both repair passes. Individual failures are counted and logged;
// only a failure to enumerate candidates aborts the run.
func (r *Reconciler) Run(ctx context.Context) (ReconciliationSummary, error) {
	summary := ReconciliationSummary{StartedAt: r.now()}

	fixed, err := r.grantMissedSignupBonuses(ctx)
	summary.UsersFixed = fixed
	if err != nil {
		return summary, err
	}

	if err := r.issueMissedOrderRewards(ctx, &summary); err != nil {
		return summary, err
	}

	summary.FinishedAt = r.now()
	log.Info().
		Int("users_fixed", summary.UsersFixed).
		Int("orders_processed", summary.OrdersProcessed).
		Int("orders_skipped", summary.OrdersSkipped).
		Int("orders_failed", summary.OrdersFailed).
		Int64("xp_issued", summary.XPIssued).
		Int64("tokens_issued", summary.TokensIssued).
		Msg("reconciliation: finished")

	if r.alerter != nil {
		if err := r.alerter.NotifyReconciliation(summary); err != nil {
			log.Warn().Err(err).Msg("reconciliation: admin summary not delivered")
		}
	}

	return summary, nil
}

// grantMissedSignupBonuses credits every user still at a zero balance.
func (r *Reconciler) grantMissedSignupBonuses(ctx context.Context) (int, error) {
	if r.bonus.XP == 0 && r.bonus.Tokens == 0 {
		return 0, nil
	}

	var userIDs []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("xp = ? AND tokens = ?", 0, 0).
		Order("created_at asc").
		Pluck("id", &userIDs).Error; err != nil {
		return 0, fmt.Errorf("%w: list users without balance: %w", ErrPersistence, err)
	}

	fixed := 0
	for _, userID := range userIDs {
		granted, err := r.grantSignupBonus(ctx, userID)
		if err != nil {
			log.Error().Err(err).Stringer("user_id", userID).Msg("reconciliation: signup bonus failed")
			continue
		}
		if !granted {
			continue
		}
		fixed++

		if r.notifier != nil {
			message := fmt.Sprintf("Welcome aboard! You received %d XP and %d tokens.", r.bonus.XP, r.bonus.Tokens)
			if err := r.notifier.Notify(ctx, userID, "Signup bonus", message, models.NotificationKindSignupBonus, "/profile"); err != nil {
				log.Warn().Err(err).Stringer("user_id", userID).Msg("reconciliation: signup bonus notification failed")
			}
		}
	}

	return fixed, nil
}

// grantSignupBonus re-checks the zero balance inside the credit so a balance
// that moved since listing is left alone.
func (r *Reconciler) grantSignupBonus(ctx context.Context, userID uuid.UUID) (bool, error) {
	granted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit := tx.Model(&models.User{}).
			Where("id = ? AND xp = ? AND tokens = ?", userID, 0, 0).
			Updates(map[string]any{
				"xp":     gorm.Expr("xp + ?", r.bonus.XP),
				"tokens": gorm.Expr("tokens + ?", r.bonus.Tokens),
			})
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return nil
		}

		entry := models.LoyaltyTransaction{
			UserID:     userID,
			Kind:       models.LoyaltyKindSignupBonus,
			XP:         r.bonus.XP,
			Tokens:     r.bonus.Tokens,
			OccurredAt: r.now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: signup bonus for %s: %w", ErrPersistence, userID, err)
	}
	return granted, nil
}

func (r *Reconciler) issueMissedOrderRewards(ctx context.Context, summary *ReconciliationSummary) error {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Select("id", "order_number", "total_amount").
		Where("status = ? AND rewarded = ? AND user_id IS NOT NULL", StatusDelivered.String(), false).
		Order("id asc").
		Find(&orders).Error; err != nil {
		return fmt.Errorf("%w: list unrewarded orders: %w", ErrPersistence, err)
	}

	for _, order := range orders {
		result, err := r.issuer.IssueRewardIfDue(ctx, order.ID)
		if err != nil {
			summary.OrdersFailed++
			summary.Failures = append(summary.Failures, ReconciliationFailure{OrderID: order.ID, Error: err.Error()})

			event := log.Error()
			if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrOrderNotFound) {
				event = log.Warn()
			}
			event.Err(err).Uint("order_id", order.ID).Msg("reconciliation: order reward failed")
			continue
		}

		if !result.Issued() {
			summary.OrdersSkipped++
			continue
		}

		summary.OrdersProcessed++
		summary.XPIssued += result.Reward.XP
		summary.TokensIssued += result.Reward.Tokens
		notifyReward(ctx, r.notifier, order, result)
	}

	return nil
}

// notifyReward tells the customer about an issued reward. Failures are logged only.
func notifyReward(ctx context.Context, notifier Notifier, order models.Order, result IssuanceResult) {
	if notifier == nil || result.UserID == nil || !result.Issued() {
		return
	}

	message := fmt.Sprintf("Order %s earned you %d XP and %d tokens.", order.OrderNumber, result.Reward.XP, result.Reward.Tokens)
	if err := notifier.Notify(ctx, *result.UserID, "Loyalty reward", message, models.NotificationKindLoyaltyReward, orderLink(order.ID)); err != nil {
		log.Warn().Err(err).Uint("order_id", order.ID).Msg("reward: notification failed")
	}
}
