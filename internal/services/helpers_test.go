package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bistro/internal/models"
	"github.com/example/bistro/internal/testutil"
)

var fixedNow = time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type sentNotification struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Kind    string
	Link    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, title, message, kind, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Message: message, Kind: kind, Link: link})
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

type recordingAlerter struct {
	mu             sync.Mutex
	rewardFailures []uint
	summaries      []ReconciliationSummary
}

func (a *recordingAlerter) AlertRewardFailure(orderID uint, _ string, _ error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rewardFailures = append(a.rewardFailures, orderID)
	return nil
}

func (a *recordingAlerter) NotifyReconciliation(summary ReconciliationSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append(a.summaries, summary)
	return nil
}

type engine struct {
	db       *gorm.DB
	issuer   *RewardIssuer
	notifier *recordingNotifier
	alerter  *recordingAlerter
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	db := testutil.NewDB(t)
	resolver := NewMultiplierResolver(NewGormBoostSource(db))
	return &engine{
		db:       db,
		issuer:   NewRewardIssuer(db, resolver).WithClock(fixedClock),
		notifier: &recordingNotifier{},
		alerter:  &recordingAlerter{},
	}
}

func reloadUser(t *testing.T, db *gorm.DB, id uuid.UUID) models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

func reloadOrder(t *testing.T, db *gorm.DB, id uint) models.Order {
	t.Helper()
	var order models.Order
	if err := db.First(&order, id).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}
