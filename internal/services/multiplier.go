package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/models"
)

// Multipliers is the effective reward multiplier pair for one user at one instant.
type Multipliers struct {
	XP     decimal.Decimal `json:"xp"`
	Tokens decimal.Decimal `json:"tokens"`
}

// NeutralMultipliers is the pair applied when no boost is active.
func NeutralMultipliers() Multipliers {
	return Multipliers{XP: decimal.NewFromInt(1), Tokens: decimal.NewFromInt(1)}
}

// ComposeMultipliers folds every boost active at `at` into the neutral pair.
// Boosts of the same kind multiply; a "both" boost multiplies each side.
func ComposeMultipliers(boosts []models.Boost, at time.Time) Multipliers {
	m := NeutralMultipliers()
	for _, b := range boosts {
		if !b.ActiveAt(at) {
			continue
		}
		if !b.Magnitude.IsPositive() {
			log.Warn().Stringer("boost_id", b.ID).Stringer("magnitude", b.Magnitude).Msg("multiplier: ignoring boost with non-positive magnitude")
			continue
		}

		switch b.Kind {
		case models.BoostKindXP:
			m.XP = m.XP.Mul(b.Magnitude)
		case models.BoostKindTokens:
			m.Tokens = m.Tokens.Mul(b.Magnitude)
		case models.BoostKindBoth:
			m.XP = m.XP.Mul(b.Magnitude)
			m.Tokens = m.Tokens.Mul(b.Magnitude)
		default:
			log.Warn().Stringer("boost_id", b.ID).Str("kind", string(b.Kind)).Msg("multiplier: ignoring boost of unknown kind")
		}
	}
	return m
}

// BoostSource is the read-only view of users and their boosts.
type BoostSource interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	BoostsForUser(ctx context.Context, userID uuid.UUID) ([]models.Boost, error)
}

// GormBoostSource reads boosts straight from the database.
type GormBoostSource struct {
	db *gorm.DB
}

func NewGormBoostSource(db *gorm.DB) *GormBoostSource {
	return &GormBoostSource{db: db}
}

func (s *GormBoostSource) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// BoostsForUser returns every boost of the user; window filtering happens in
// ComposeMultipliers so the evaluation instant stays explicit.
func (s *GormBoostSource) BoostsForUser(ctx context.Context, userID uuid.UUID) ([]models.Boost, error) {
	var boosts []models.Boost
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&boosts).Error; err != nil {
		return nil, err
	}
	return boosts, nil
}

// MultiplierResolver computes the multiplier pair of a user at a given instant.
type MultiplierResolver struct {
	source BoostSource
}

func NewMultiplierResolver(source BoostSource) *MultiplierResolver {
	return &MultiplierResolver{source: source}
}

// Resolve fails only when the user does not exist; no boosts yields the neutral pair.
func (r *MultiplierResolver) Resolve(ctx context.Context, userID uuid.UUID, at time.Time) (Multipliers, error) {
	exists, err := r.source.UserExists(ctx, userID)
	if err != nil {
		return Multipliers{}, fmt.Errorf("multiplier: lookup user %s: %w", userID, err)
	}
	if !exists {
		return Multipliers{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	boosts, err := r.source.BoostsForUser(ctx, userID)
	if err != nil {
		return Multipliers{}, fmt.Errorf("multiplier: load boosts for %s: %w", userID, err)
	}

	return ComposeMultipliers(boosts, at), nil
}
