package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BoostKind selects which currency a boost multiplies.
type BoostKind string

const (
	BoostKindXP     BoostKind = "xp"
	BoostKindTokens BoostKind = "tokens"
	BoostKindBoth   BoostKind = "both"
)

// Boost is a multiplicative reward modifier owned by a user. Boosts are
// granted and expired by the shop and quest systems; the order core only reads them.
type Boost struct {
	BaseModel
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind      BoostKind       `gorm:"type:varchar(16);not null" json:"kind"`
	Magnitude decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"magnitude"`
	Permanent bool            `gorm:"not null;default:false" json:"permanent"`
	StartsAt  *time.Time      `json:"starts_at"`
	EndsAt    *time.Time      `json:"ends_at"`
	Source    string          `json:"source"`
}

// ActiveAt reports whether the boost's validity window contains t.
// An open bound (nil StartsAt or EndsAt) does not restrict the window.
func (b Boost) ActiveAt(t time.Time) bool {
	if b.Permanent {
		return true
	}
	if b.StartsAt != nil && t.Before(*b.StartsAt) {
		return false
	}
	if b.EndsAt != nil && !t.Before(*b.EndsAt) {
		return false
	}
	return true
}
