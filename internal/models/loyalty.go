package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoyaltyKindOrderReward = "order_reward"
	LoyaltyKindSignupBonus = "signup_bonus"
)

// LoyaltyTransaction is the ledger entry written alongside every balance credit.
// OrderID is unique so an order can back at most one reward row.
type LoyaltyTransaction struct {
	BaseModel
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind            string          `gorm:"type:varchar(32);not null" json:"kind"`
	XP              int64           `gorm:"column:xp;not null" json:"xp"`
	Tokens          int64           `gorm:"not null" json:"tokens"`
	OrderID         *uint           `gorm:"uniqueIndex" json:"order_id"`
	XPMultiplier    decimal.Decimal `gorm:"column:xp_multiplier;type:numeric(10,4)" json:"xp_multiplier"`
	TokenMultiplier decimal.Decimal `gorm:"type:numeric(10,4)" json:"token_multiplier"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
