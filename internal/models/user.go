package models

// User is the loyalty-relevant slice of a customer account.
// XP and Tokens only ever grow; they are incremented in SQL, never overwritten.
type User struct {
	BaseModel
	DisplayName string  `json:"display_name"`
	Phone       string  `gorm:"index" json:"phone"`
	Role        string  `gorm:"not null;default:customer" json:"role"`
	XP          int64   `gorm:"column:xp;not null;default:0" json:"xp"`
	Tokens      int64   `gorm:"not null;default:0" json:"tokens"`
	Boosts      []Boost `json:"boosts,omitempty"`
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)
