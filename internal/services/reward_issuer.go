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

type IssuanceOutcome string

const (
	OutcomeIssued  IssuanceOutcome = "issued"
	OutcomeSkipped IssuanceOutcome = "skipped"
)

// SkipReason explains why an order was not rewarded. Skips are successful no-ops.
type SkipReason string

const (
	SkipNotDelivered    SkipReason = "not_delivered"
	SkipAlreadyRewarded SkipReason = "already_rewarded"
	SkipGuestOrder      SkipReason = "guest_order"
)

// IssuanceResult describes what IssueRewardIfDue did for one order.
type IssuanceResult struct {
	Outcome     IssuanceOutcome `json:"outcome"`
	SkipReason  SkipReason      `json:"skip_reason,omitempty"`
	OrderID     uint            `json:"order_id"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Reward      Reward          `json:"reward"`
	Multipliers *Multipliers    `json:"multipliers,omitempty"`
}

// Issued reports whether the call credited the user.
func (r IssuanceResult) Issued() bool {
	return r.Outcome == OutcomeIssued
}

// RewardIssuer converts delivered orders into loyalty credit exactly once.
type RewardIssuer struct {
	db       *gorm.DB
	resolver *MultiplierResolver
	now      func() time.Time
}

func NewRewardIssuer(db *gorm.DB, resolver *MultiplierResolver) *RewardIssuer {
	return &RewardIssuer{db: db, resolver: resolver, now: time.Now}
}

// WithClock replaces the clock used for boost evaluation and ledger timestamps.
func (i *RewardIssuer) WithClock(now func() time.Time) *RewardIssuer {
	i.now = now
	return i
}

// IssueRewardIfDue credits the owner of a delivered, unrewarded order.
//
// Safe to call any number of times for the same order: the rewarded flag is
// flipped with a compare-and-set inside the transaction that increments the
// balances and writes the ledger row, so concurrent or repeated calls credit
// at most once. Skips return a nil error.
func (i *RewardIssuer) IssueRewardIfDue(ctx context.Context, orderID uint) (IssuanceResult, error) {
	var order models.Order
	if err := i.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IssuanceResult{OrderID: orderID}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
		}
		return IssuanceResult{OrderID: orderID}, fmt.Errorf("%w: load order %d: %w", ErrPersistence, orderID, err)
	}

	result := IssuanceResult{OrderID: order.ID, UserID: order.UserID}
	if reason, skip := rewardSkipReason(&order); skip {
		result.Outcome = OutcomeSkipped
		result.SkipReason = reason
		log.Debug().Uint("order_id", order.ID).Str("reason", string(reason)).Msg("reward: skipped")
		return result, nil
	}

	userID := *order.UserID
	at := i.now()

	multipliers, err := i.resolver.Resolve(ctx, userID, at)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return result, err
		}
		return result, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	reward := ComputeReward(order.TotalAmount, multipliers)
	if reward.IsZero() {
		log.Debug().Uint("order_id", order.ID).Stringer("total", order.TotalAmount).Msg("reward: total below one unit, recording zero reward")
	}

	var lostTo SkipReason
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flip := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND rewarded = ? AND user_id = ?", order.ID, StatusDelivered.String(), false, userID).
			Update("rewarded", true)
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			var fresh models.Order
			if err := tx.First(&fresh, order.ID).Error; err != nil {
				return err
			}
			lostTo = SkipAlreadyRewarded
			if reason, skip := rewardSkipReason(&fresh); skip {
				lostTo = reason
			}
			return nil
		}

		credit := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"xp":     gorm.Expr("xp + ?", reward.XP),
				"tokens": gorm.Expr("tokens + ?", reward.Tokens),
			})
		if credit.Error != nil {
			return credit.Error
		}
		if credit.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}

		entry := models.LoyaltyTransaction{
			UserID:          userID,
			Kind:            models.LoyaltyKindOrderReward,
			XP:              reward.XP,
			Tokens:          reward.Tokens,
			OrderID:         &order.ID,
			XPMultiplier:    multipliers.XP,
			TokenMultiplier: multipliers.Tokens,
			OccurredAt:      at,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return result, err
		}
		return result, fmt.Errorf("%w: issue reward for order %d: %w", ErrPersistence, order.ID, err)
	}

	if lostTo != "" {
		result.Outcome = OutcomeSkipped
		result.SkipReason = lostTo
		log.Debug().Uint("order_id", order.ID).Str("reason", string(lostTo)).Msg("reward: lost compare-and-set, skipped")
		return result, nil
	}

	result.Outcome = OutcomeIssued
	result.Reward = reward
	result.Multipliers = &multipliers

	log.Info().
		Uint("order_id", order.ID).
		Stringer("user_id", userID).
		Int64("xp", reward.XP).
		Int64("tokens", reward.Tokens).
		Stringer("xp_multiplier", multipliers.XP).
		Stringer("token_multiplier", multipliers.Tokens).
		Msg("reward: issued")

	return result, nil
}

func rewardSkipReason(order *models.Order) (SkipReason, bool) {
	switch {
	case order.Status != StatusDelivered.String():
		return SkipNotDelivered, true
	case order.Rewarded:
		return SkipAlreadyRewarded, true
	case order.UserID == nil:
		return SkipGuestOrder, true
	}
	return "", false
}
