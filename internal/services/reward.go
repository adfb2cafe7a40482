package services

import "github.com/shopspring/decimal"

// Reward is the loyalty credit earned by one order.
type Reward struct {
	XP     int64 `json:"xp"`
	Tokens int64 `json:"tokens"`
}

// IsZero reports whether the reward credits nothing.
func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Tokens == 0
}

// ComputeReward converts a monetary amount into XP and tokens.
// Fractional currency is truncated before multiplying and each product is
// floored again. Non-positive amounts earn nothing.
func ComputeReward(amount decimal.Decimal, m Multipliers) Reward {
	if !amount.IsPositive() {
		return Reward{}
	}

	base := amount.Floor()
	return Reward{
		XP:     floorNonNegative(base.Mul(m.XP)),
		Tokens: floorNonNegative(base.Mul(m.Tokens)),
	}
}

func floorNonNegative(v decimal.Decimal) int64 {
	n := v.Floor().IntPart()
	if n < 0 {
		return 0
	}
	return n
}
