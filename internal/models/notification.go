package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationKindOrderStatus   = "order_status"
	NotificationKindLoyaltyReward = "loyalty_reward"
	NotificationKindSignupBonus   = "signup_bonus"
)

type Notification struct {
	BaseModel
	UserID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Kind    string     `gorm:"type:varchar(32)" json:"kind"`
	Link    string     `json:"link"`
	ReadAt  *time.Time `json:"read_at"`
}
