// Package testutil provides in-memory databases for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/bistro/internal/database"
	"github.com/example/bistro/internal/models"
)

// NewDB opens a private in-memory sqlite database with the production schema.
// The pool is limited to one connection so concurrent callers serialize the
// way row locks would serialize them on postgres.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

// CreateUser inserts a customer with the given balances.
func CreateUser(t *testing.T, db *gorm.DB, xp, tokens int64) models.User {
	t.Helper()

	user := models.User{DisplayName: "Test User", Role: models.RoleCustomer, XP: xp, Tokens: tokens}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateOrder inserts an order in the given status owned by userID (nil for guests).
func CreateOrder(t *testing.T, db *gorm.DB, userID *uuid.UUID, status, total string) models.Order {
	t.Helper()

	amount := decimal.RequireFromString(total)
	order := models.Order{
		OrderNumber:    "#" + uuid.NewString()[:8],
		UserID:         userID,
		Status:         status,
		DeliveryMethod: "delivery",
		Subtotal:       amount,
		DeliveryFee:    decimal.Zero,
		TotalAmount:    amount,
		Currency:       "USD",
		PaymentMethod:  "cash",
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

// CreateBoost inserts a boost for userID; a zero window makes it permanent.
func CreateBoost(t *testing.T, db *gorm.DB, userID uuid.UUID, kind models.BoostKind, magnitude string, startsAt, endsAt *time.Time) models.Boost {
	t.Helper()

	boost := models.Boost{
		UserID:    userID,
		Kind:      kind,
		Magnitude: decimal.RequireFromString(magnitude),
		Permanent: startsAt == nil && endsAt == nil,
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		Source:    "test",
	}
	require.NoError(t, db.Create(&boost).Error)
	return boost
}
